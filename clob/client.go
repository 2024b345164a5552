// Copyright (c) 2025 BVK Chaitanya

package clob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/time/rate"

	"github.com/bvk/polytrade/ctxutil"
)

// VenueError is a structured rejection from the order book service. It is
// surfaced verbatim and never retried automatically because it usually
// indicates insufficient funds, a missing approval or a stale price.
type VenueError struct {
	Status  int
	Message string
}

func (e *VenueError) Error() string {
	return fmt.Sprintf("venue rejected request (status %d): %s", e.Status, e.Message)
}

// Client accesses the order book REST service.
type Client struct {
	cg ctxutil.CloseGroup

	opts Options

	address common.Address

	mu    sync.Mutex
	creds *Credentials

	client  *http.Client
	limiter *rate.Limiter

	// scheme is overridden by tests against local servers.
	scheme string
}

// New creates a client for the order book service. Credentials may be nil
// when only public endpoints are needed; authenticated calls will then fail
// with ErrAuthMisconfigured.
func New(address common.Address, creds *Credentials, opts *Options) (*Client, error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()

	c := &Client{
		opts:    *opts,
		address: address,
		creds:   creds,
		client: &http.Client{
			Timeout: opts.HttpClientTimeout,
		},
		limiter: rate.NewLimiter(10, 1),
		scheme:  "https",
	}
	return c, nil
}

// Close shuts down the client.
func (c *Client) Close() error {
	c.cg.Close()
	return nil
}

// Address returns the trading account address.
func (c *Client) Address() common.Address {
	return c.address
}

// Credentials returns the current api credentials, which may be nil.
func (c *Client) Credentials() *Credentials {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creds
}

// SetCredentials replaces the api credentials used for authenticated calls.
func (c *Client) SetCredentials(creds *Credentials) {
	c.mu.Lock()
	c.creds = creds
	c.mu.Unlock()
}

func (c *Client) restURL(path string, values url.Values) *url.URL {
	return &url.URL{
		Scheme:   c.scheme,
		Host:     c.opts.RestHostname,
		Path:     path,
		RawQuery: values.Encode(),
	}
}

func (c *Client) do(ctx context.Context, req *http.Request, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		slog.Error("http request is unsuccessful", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode)
		return &VenueError{Status: resp.StatusCode, Message: venueMessage(body)}
	}
	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			slog.Error("could not decode response to json", "path", req.URL.Path, "err", err)
			return err
		}
	}
	return nil
}

// venueMessage extracts the error string from a structured error body,
// falling back to the raw body text.
func venueMessage(body []byte) string {
	var v struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &v); err == nil && len(v.Error) > 0 {
		return v.Error
	}
	return string(body)
}

func (c *Client) getJSON(ctx context.Context, url *url.URL, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url.String(), nil)
	if err != nil {
		return err
	}
	return c.do(ctx, req, result)
}

// doSigned sends an authenticated request. The body bytes passed here are
// the exact bytes signed and the exact bytes transmitted.
func (c *Client) doSigned(ctx context.Context, method string, url *url.URL, body []byte, result interface{}) error {
	creds := c.Credentials()
	headers, err := creds.SignRequest(c.address, time.Now(), method, url.Path, body)
	if err != nil {
		return err
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url.String(), reader)
	if err != nil {
		return err
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(ctx, req, result)
}

type orderRequest struct {
	Order     *Order    `json:"order"`
	Owner     string    `json:"owner"`
	OrderType OrderType `json:"orderType"`
}

// OrderResponse is the order placement result.
type OrderResponse struct {
	Success     bool     `json:"success"`
	ErrorMsg    string   `json:"errorMsg"`
	OrderID     string   `json:"orderId"`
	OrderHashes []string `json:"orderHashes"`

	// Status is one of "matched", "live", "delayed" or "unmatched".
	Status string `json:"status"`
}

// coldStart reports proxy statuses worth a bounded retry. Structured venue
// rejections are never retried.
func coldStart(err error) bool {
	var ve *VenueError
	if errors.As(err, &ve) {
		return ve.Status == http.StatusBadGateway || ve.Status == http.StatusServiceUnavailable
	}
	return false
}

// PostOrder submits a signed order. Submission goes through a proxy that may
// be transiently cold-starting, so those statuses are retried a small bounded
// number of times with a fixed backoff.
func (c *Client) PostOrder(ctx context.Context, order *Order, typ OrderType) (*OrderResponse, error) {
	creds := c.Credentials()
	if err := creds.Check(); err != nil {
		return nil, err
	}
	request := &orderRequest{
		Order:     order,
		Owner:     creds.Key,
		OrderType: typ,
	}
	body, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}

	url := c.restURL("/order", nil)
	resp := new(OrderResponse)
	for i := 0; ; i++ {
		err = c.doSigned(ctx, http.MethodPost, url, body, resp)
		if err == nil || i >= c.opts.ColdStartRetryCount || !coldStart(err) {
			break
		}
		slog.Warn("order submission hit a cold proxy (will retry)", "attempt", i+1, "err", err)
		ctxutil.Sleep(ctx, c.opts.ColdStartRetryInterval)
		if ctx.Err() != nil {
			return nil, context.Cause(ctx)
		}
	}
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &VenueError{Status: http.StatusOK, Message: resp.ErrorMsg}
	}
	return resp, nil
}

// CancelResponse is the order cancellation result.
type CancelResponse struct {
	Canceled    []string          `json:"canceled"`
	NotCanceled map[string]string `json:"not_canceled"`
}

// CancelOrder cancels one resting order by its server order id.
func (c *Client) CancelOrder(ctx context.Context, orderID string) (*CancelResponse, error) {
	body, err := json.Marshal(map[string]string{"orderID": orderID})
	if err != nil {
		return nil, err
	}
	resp := new(CancelResponse)
	if err := c.doSigned(ctx, http.MethodDelete, c.restURL("/order", nil), body, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// CancelAll cancels all resting orders for the account.
func (c *Client) CancelAll(ctx context.Context) (*CancelResponse, error) {
	resp := new(CancelResponse)
	if err := c.doSigned(ctx, http.MethodDelete, c.restURL("/cancel-all", nil), nil, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// OpenOrder describes a live resting order.
type OpenOrder struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Market       string `json:"market"`
	AssetID      string `json:"asset_id"`
	Side         string `json:"side"`
	OriginalSize string `json:"original_size"`
	SizeMatched  string `json:"size_matched"`
	Price        string `json:"price"`
}

// GetOrder fetches one order by its server order id.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*OpenOrder, error) {
	resp := new(OpenOrder)
	if err := c.doSigned(ctx, http.MethodGet, c.restURL("/data/order/"+orderID, nil), nil, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// PriceLevel is one bid or ask level. Values are decimal strings.
type PriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// OrderBook is a point-in-time view of one token's order book.
type OrderBook struct {
	Market    string       `json:"market"`
	AssetID   string       `json:"asset_id"`
	Hash      string       `json:"hash"`
	Timestamp string       `json:"timestamp"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
}

// GetOrderBook fetches the order book for an outcome token.
func (c *Client) GetOrderBook(ctx context.Context, tokenID string) (*OrderBook, error) {
	values := make(url.Values)
	values.Set("token_id", tokenID)
	resp := new(OrderBook)
	if err := c.getJSON(ctx, c.restURL("/book", values), resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetTickSize fetches the market price granularity for an outcome token.
func (c *Client) GetTickSize(ctx context.Context, tokenID string) (string, error) {
	values := make(url.Values)
	values.Set("token_id", tokenID)
	resp := new(struct {
		MinimumTickSize json.Number `json:"minimum_tick_size"`
	})
	if err := c.getJSON(ctx, c.restURL("/tick-size", values), resp); err != nil {
		return "", err
	}
	return resp.MinimumTickSize.String(), nil
}
