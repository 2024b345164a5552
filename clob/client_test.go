// Copyright (c) 2025 BVK Chaitanya

package clob

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func testClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	addr := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	c, err := New(addr, testCredentials(), &Options{RestHostname: u.Host})
	if err != nil {
		t.Fatal(err)
	}
	c.scheme = "http"
	t.Cleanup(func() { c.Close() })
	return c
}

func TestPostOrderSignsTransmittedBody(t *testing.T) {
	creds := testCredentials()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("could not read request body: %v", err)
		}
		ts, err := strconv.ParseInt(r.Header.Get("POLY_TIMESTAMP"), 10, 64)
		if err != nil {
			t.Errorf("bad timestamp header: %v", err)
		}
		// The signature must cover the exact bytes received.
		want := creds.Sign(ts, r.Method, r.URL.Path, body)
		if got := r.Header.Get("POLY_SIGNATURE"); got != want {
			t.Errorf("want signature %q, got %q", want, got)
		}

		var req struct {
			Owner     string `json:"owner"`
			OrderType string `json:"orderType"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("could not parse order request: %v", err)
		}
		if req.Owner != creds.Key {
			t.Errorf("want owner %q, got %q", creds.Key, req.Owner)
		}
		if req.OrderType != "GTC" {
			t.Errorf("want orderType GTC, got %q", req.OrderType)
		}
		json.NewEncoder(w).Encode(&OrderResponse{Success: true, OrderID: "0xorder", Status: "live"})
	}))
	defer server.Close()

	c := testClient(t, server)
	resp, err := c.PostOrder(context.Background(), &Order{Salt: "123"}, OrderTypeGTC)
	if err != nil {
		t.Fatal(err)
	}
	if resp.OrderID != "0xorder" || resp.Status != "live" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestPostOrderColdStartRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(&OrderResponse{Success: true, OrderID: "warm", Status: "live"})
	}))
	defer server.Close()

	u, _ := url.Parse(server.URL)
	addr := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	c, err := New(addr, testCredentials(), &Options{
		RestHostname:           u.Host,
		ColdStartRetryCount:    3,
		ColdStartRetryInterval: 1, // effectively immediate
	})
	if err != nil {
		t.Fatal(err)
	}
	c.scheme = "http"
	defer c.Close()

	resp, err := c.PostOrder(context.Background(), &Order{Salt: "123"}, OrderTypeFOK)
	if err != nil {
		t.Fatal(err)
	}
	if resp.OrderID != "warm" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if n := calls.Load(); n != 3 {
		t.Fatalf("want 3 attempts, got %d", n)
	}
}

func TestVenueRejectionNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "not enough balance / allowance"})
	}))
	defer server.Close()

	c := testClient(t, server)
	_, err := c.PostOrder(context.Background(), &Order{Salt: "123"}, OrderTypeGTC)
	var ve *VenueError
	if !errors.As(err, &ve) {
		t.Fatalf("want a VenueError, got %v", err)
	}
	if ve.Status != http.StatusBadRequest || ve.Message != "not enough balance / allowance" {
		t.Fatalf("unexpected venue error %+v", ve)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("venue rejection was retried %d times", n-1)
	}
}

func TestPostOrderNoCredentials(t *testing.T) {
	addr := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	c, err := New(addr, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, err := c.PostOrder(context.Background(), &Order{}, OrderTypeGTC); !errors.Is(err, ErrAuthMisconfigured) {
		t.Fatalf("want %v, got %v", ErrAuthMisconfigured, err)
	}
}

func TestGetOrderBook(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/book" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if v := r.URL.Query().Get("token_id"); v != "777" {
			t.Errorf("want token_id 777, got %q", v)
		}
		json.NewEncoder(w).Encode(&OrderBook{
			AssetID: "777",
			Bids:    []PriceLevel{{Price: "0.40", Size: "100"}},
			Asks:    []PriceLevel{{Price: "0.60", Size: "50"}},
		})
	}))
	defer server.Close()

	c := testClient(t, server)
	book, err := c.GetOrderBook(context.Background(), "777")
	if err != nil {
		t.Fatal(err)
	}
	if len(book.Bids) != 1 || book.Bids[0].Price != "0.40" {
		t.Fatalf("unexpected book %+v", book)
	}
}
