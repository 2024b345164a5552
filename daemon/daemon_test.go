// Copyright (c) 2025 BVK Chaitanya

package daemon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bvkgo/kv"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/shopspring/decimal"

	"github.com/bvk/polytrade/api"
	"github.com/bvk/polytrade/feed"
	"github.com/bvk/polytrade/gobs"
	"github.com/bvk/polytrade/kvutil"
)

// testConn blocks reads until the connection is closed.
type testConn struct {
	stopc chan struct{}
}

func newTestConn() *testConn {
	return &testConn{stopc: make(chan struct{})}
}

func (c *testConn) ReadMessage() (int, []byte, error) {
	<-c.stopc
	return 0, nil, errors.New("connection is closed")
}

func (c *testConn) WriteJSON(v interface{}) error { return nil }

func (c *testConn) SetReadDeadline(t time.Time) error { return nil }

func (c *testConn) Close() error {
	select {
	case <-c.stopc:
	default:
		close(c.stopc)
	}
	return nil
}

func testDial(ctx context.Context, url string) (feed.Conn, error) {
	return newTestConn(), nil
}

func newTestServer(t *testing.T, db kv.Database) *Server {
	t.Helper()
	opts := &Options{
		FeedDial:       testDial,
		NoRecordPrices: true,
	}
	s, err := New(nil, db, opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestWatchPersistence(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	s := newTestServer(t, db)
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}

	resp, err := s.doWatch(ctx, &api.WatchRequest{Add: []string{"a2", "a1"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.AssetIDs) != 2 || resp.AssetIDs[0] != "a1" || resp.AssetIDs[1] != "a2" {
		t.Fatalf("unexpected watch list %v", resp.AssetIDs)
	}

	wl, err := kvutil.GetDB[gobs.WatchList](ctx, db, watchListKey)
	if err != nil {
		t.Fatal(err)
	}
	if len(wl.AssetIDs) != 2 {
		t.Fatalf("watch list not persisted: %v", wl.AssetIDs)
	}
	s.Close()

	// A new server resumes the saved watches.
	s2 := newTestServer(t, db)
	if err := s2.Start(ctx); err != nil {
		t.Fatal(err)
	}
	status, err := s2.doStatus(ctx, &api.StatusRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if status.NumWatched != 2 {
		t.Fatalf("want 2 resumed watches, got %d", status.NumWatched)
	}
	if status.HasCredentials {
		t.Fatal("server without secrets cannot have credentials")
	}
}

func TestWatchRemove(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, kvmemdb.New())
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := s.doWatch(ctx, &api.WatchRequest{Add: []string{"a1", "a2"}}); err != nil {
		t.Fatal(err)
	}
	resp, err := s.doWatch(ctx, &api.WatchRequest{Remove: []string{"a1"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.AssetIDs) != 1 || resp.AssetIDs[0] != "a2" {
		t.Fatalf("unexpected watch list %v", resp.AssetIDs)
	}

	if _, err := s.doWatch(ctx, &api.WatchRequest{Add: []string{""}}); err == nil {
		t.Fatal("empty asset id must be rejected")
	}
}

func TestPricesFallback(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()
	s := newTestServer(t, db)
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}

	// No live feed observation; the recorded price is served instead.
	saved := &gobs.PricePoint{
		AssetID: "a1",
		Price:   decimal.RequireFromString("0.42"),
		At:      time.Now().Add(-time.Minute),
	}
	if err := s.datastore.SavePrice(ctx, saved); err != nil {
		t.Fatal(err)
	}

	resp, err := s.doPrices(ctx, &api.PricesRequest{AssetIDs: []string{"a1", "missing"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Prices) != 1 {
		t.Fatalf("want one price, got %v", resp.Prices)
	}
	if p := resp.Prices[0]; p.AssetID != "a1" || !p.Price.Equal(saved.Price) {
		t.Fatalf("unexpected price %+v", p)
	}
}
