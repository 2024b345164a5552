// Copyright (c) 2025 BVK Chaitanya

// Package daemon runs the background service: it keeps the market data feed
// connected for watched assets, records price observations and refreshes the
// status of placed orders.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/bvkgo/kv"
	"github.com/ethereum/go-ethereum/common"

	"github.com/bvk/polytrade/api"
	"github.com/bvk/polytrade/clob"
	"github.com/bvk/polytrade/ctxutil"
	"github.com/bvk/polytrade/dbutil"
	"github.com/bvk/polytrade/feed"
	"github.com/bvk/polytrade/gobs"
	"github.com/bvk/polytrade/kvutil"
	"github.com/bvk/polytrade/syncmap"
)

const (
	watchListKey = "/daemon/watchlist"
	addressKey   = "/daemon/address"
)

type Server struct {
	cg ctxutil.CloseGroup

	opts Options

	db        kv.Database
	datastore *clob.Datastore

	clob *clob.Client
	feed *feed.Feed

	startTime time.Time

	// watchSubs holds the live feed subscription for each watched asset.
	watchSubs syncmap.Map[string, *feed.Subscription]
}

func New(secrets *Secrets, db kv.Database, opts *Options) (*Server, error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()

	s := &Server{
		opts:      *opts,
		db:        db,
		datastore: clob.NewDatastore(db),
		startTime: time.Now(),
	}

	if secrets != nil && secrets.Polymarket != nil {
		addr := common.HexToAddress(secrets.Polymarket.Address)
		var creds *clob.Credentials
		if secrets.HasCredentials() {
			creds = &secrets.Polymarket.Credentials
		}
		c, err := clob.New(addr, creds, nil)
		if err != nil {
			return nil, fmt.Errorf("could not create venue client: %w", err)
		}
		s.clob = c
	}

	fopts := new(feed.Options)
	if len(opts.FeedURL) != 0 {
		fopts.URL = opts.FeedURL
	}
	if opts.FeedDial != nil {
		fopts.Dial = opts.FeedDial
	}
	s.feed = feed.New(fopts)
	return s, nil
}

func (s *Server) Close() error {
	s.cg.Close()
	s.feed.Close()
	if s.clob != nil {
		s.clob.Close()
	}
	return nil
}

// Start resumes watches from the datastore and begins the background tasks.
func (s *Server) Start(ctx context.Context) error {
	if s.clob != nil {
		addr := s.clob.Address().String()
		if err := dbutil.SetString(ctx, s.db, addressKey, addr); err != nil {
			return fmt.Errorf("could not record account address: %w", err)
		}
	}

	wl, err := kvutil.GetDB[gobs.WatchList](ctx, s.db, watchListKey)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("could not load watch list: %w", err)
	}
	if wl != nil {
		for _, id := range wl.AssetIDs {
			s.watch(id)
		}
	}

	if !s.opts.NoRecordPrices {
		s.cg.Go(s.recordPrices)
	}
	if s.clob != nil && s.clob.Credentials() != nil {
		s.cg.Go(s.syncOrders)
	}
	return nil
}

// Stop cancels the background tasks. The http handlers stay registered until
// Close.
func (s *Server) Stop(ctx context.Context) error {
	s.cg.Close()
	return nil
}

func (s *Server) watch(assetID string) {
	if _, ok := s.watchSubs.Load(assetID); ok {
		return
	}
	sub := s.feed.Subscribe([]string{assetID}, nil)
	s.watchSubs.Store(assetID, sub)
}

func (s *Server) unwatch(assetID string) {
	if sub, ok := s.watchSubs.LoadAndDelete(assetID); ok {
		s.feed.Unsubscribe(sub)
	}
}

func (s *Server) watchedIDs() []string {
	var ids []string
	s.watchSubs.Range(func(id string, _ *feed.Subscription) bool {
		ids = append(ids, id)
		return true
	})
	sort.Strings(ids)
	return ids
}

func (s *Server) saveWatchList(ctx context.Context) error {
	wl := &gobs.WatchList{AssetIDs: s.watchedIDs()}
	return kvutil.SetDB(ctx, s.db, watchListKey, wl)
}

// recordPrices persists every accepted price observation.
func (s *Server) recordPrices(ctx context.Context) {
	ch, stop, err := s.feed.PriceCh()
	if err != nil {
		slog.Error("could not subscribe to feed prices", "err", err)
		return
	}
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-ch:
			if !ok {
				return
			}
			record := &gobs.PricePoint{
				AssetID: p.AssetID,
				Price:   p.Price,
				At:      p.At,
			}
			if err := s.datastore.SavePrice(ctx, record); err != nil && ctx.Err() == nil {
				slog.Warn("could not save price observation", "asset", p.AssetID, "err", err)
			}
		}
	}
}

// syncOrders periodically refreshes the status of non-final placed orders
// from the venue.
func (s *Server) syncOrders(ctx context.Context) {
	for ctxutil.Sleep(ctx, s.opts.SyncOrderInterval); ctx.Err() == nil; ctxutil.Sleep(ctx, s.opts.SyncOrderInterval) {
		var pending []*gobs.PlacedOrder
		collect := func(p *gobs.PlacedOrder) error {
			if len(p.ServerOrderID) == 0 {
				return nil
			}
			// Placement reports statuses in lowercase while order
			// lookups report uppercase.
			if strings.EqualFold(p.Status, "CANCELED") || strings.EqualFold(p.Status, "MATCHED") {
				return nil
			}
			pending = append(pending, p)
			return nil
		}
		if err := s.datastore.ScanOrders(ctx, collect); err != nil {
			if ctx.Err() == nil {
				slog.Warn("could not scan placed orders (can retry)", "err", err)
			}
			continue
		}

		for _, p := range pending {
			open, err := s.clob.GetOrder(ctx, p.ServerOrderID)
			if err != nil {
				if ctx.Err() == nil {
					slog.Warn("could not fetch order status (can retry)", "order", p.ServerOrderID, "err", err)
				}
				continue
			}
			if strings.EqualFold(open.Status, p.Status) {
				continue
			}
			if err := s.datastore.UpdateOrderStatus(ctx, p.Salt, open.Status); err != nil && ctx.Err() == nil {
				slog.Warn("could not update order status", "order", p.ServerOrderID, "err", err)
			}
		}
	}
}

// HandlerMap returns the daemon's http endpoints.
func (s *Server) HandlerMap() map[string]http.Handler {
	return map[string]http.Handler{
		api.StatusPath: postJSONHandler(s.doStatus),
		api.WatchPath:  postJSONHandler(s.doWatch),
		api.PricesPath: postJSONHandler(s.doPrices),
	}
}

func (s *Server) doStatus(ctx context.Context, req *api.StatusRequest) (*api.StatusResponse, error) {
	resp := &api.StatusResponse{
		Pid:            os.Getpid(),
		StartTime:      s.startTime,
		FeedState:      s.feed.State().String(),
		NumWatched:     len(s.watchedIDs()),
		HasCredentials: s.clob != nil && s.clob.Credentials() != nil,
	}
	return resp, nil
}

func (s *Server) doWatch(ctx context.Context, req *api.WatchRequest) (*api.WatchResponse, error) {
	for _, id := range req.Add {
		if len(id) == 0 {
			return nil, fmt.Errorf("asset id cannot be empty")
		}
	}
	for _, id := range req.Add {
		s.watch(id)
	}
	for _, id := range req.Remove {
		s.unwatch(id)
	}
	if err := s.saveWatchList(ctx); err != nil {
		return nil, fmt.Errorf("could not save watch list: %w", err)
	}
	return &api.WatchResponse{AssetIDs: s.watchedIDs()}, nil
}

func (s *Server) doPrices(ctx context.Context, req *api.PricesRequest) (*api.PricesResponse, error) {
	ids := req.AssetIDs
	if len(ids) == 0 {
		ids = s.watchedIDs()
	}
	resp := new(api.PricesResponse)
	for _, id := range ids {
		if price, ok := s.feed.LastPrice(id); ok {
			resp.Prices = append(resp.Prices, &api.PricesResponseItem{
				AssetID: id,
				Price:   price,
				At:      time.Now(),
			})
			continue
		}
		// Fall back to the last recorded observation.
		p, err := s.datastore.LoadPrice(ctx, id)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("could not load price for asset %q: %w", id, err)
		}
		resp.Prices = append(resp.Prices, &api.PricesResponseItem{
			AssetID: p.AssetID,
			Price:   p.Price,
			At:      p.At,
		})
	}
	slices.SortFunc(resp.Prices, func(a, b *api.PricesResponseItem) int {
		return strings.Compare(a.AssetID, b.AssetID)
	})
	return resp, nil
}
