// Copyright (c) 2025 BVK Chaitanya

package feed

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// fakeConn is an in-memory transport. Reads block until a message is pushed
// or the connection is broken.
type fakeConn struct {
	mu     sync.Mutex
	readc  chan []byte
	stopc  chan struct{}
	broken bool

	writes [][]byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		readc: make(chan []byte, 16),
		stopc: make(chan struct{}),
	}
}

func (c *fakeConn) push(msg string) {
	c.readc <- []byte(msg)
}

// breakConn makes all pending and future reads fail.
func (c *fakeConn) breakConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.broken {
		c.broken = true
		close(c.stopc)
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-c.readc:
		return 1, msg, nil
	case <-c.stopc:
		return 0, nil, errors.New("connection is broken")
	}
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return errors.New("connection is broken")
	}
	c.writes = append(c.writes, data)
	return nil
}

func (c *fakeConn) subscribeMessages() []*subscribeMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	var msgs []*subscribeMessage
	for _, data := range c.writes {
		m := new(subscribeMessage)
		if err := json.Unmarshal(data, m); err == nil && m.Type == "Market" {
			msgs = append(msgs, m)
		}
	}
	return msgs
}

func (c *fakeConn) SetReadDeadline(t time.Time) error {
	if !t.IsZero() && !t.After(time.Now()) {
		c.breakConn()
	}
	return nil
}

func (c *fakeConn) Close() error {
	c.breakConn()
	return nil
}

// fakeDialer hands out fresh fake connections and counts dial attempts.
type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	fail  bool
}

func (d *fakeDialer) dial(ctx context.Context, url string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		d.conns = append(d.conns, nil)
		return nil, errors.New("dial refused")
	}
	conn := newFakeConn()
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func (d *fakeDialer) last() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := len(d.conns) - 1; i >= 0; i-- {
		if d.conns[i] != nil {
			return d.conns[i]
		}
	}
	return nil
}

func testOptions(d *fakeDialer) *Options {
	return &Options{
		URL:                "ws://test",
		Dial:               d.dial,
		DebounceWindow:     20 * time.Millisecond,
		HeartbeatInterval:  time.Hour,
		ReconnectBaseDelay: time.Millisecond,
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not reached within %s", timeout)
}

func TestBookMidPrice(t *testing.T) {
	f := New(testOptions(new(fakeDialer)))
	defer f.Close()

	var mu sync.Mutex
	prices := make(map[string]*PricePoint)
	f.SubscribeAll(func(p *PricePoint) {
		mu.Lock()
		prices[p.AssetID] = p
		mu.Unlock()
	})

	f.handleData([]byte(`{"asset_id":"777","bids":[{"price":"0.40","size":"10"}],"asks":[{"price":"0.60","size":"5"}]}`))

	mu.Lock()
	defer mu.Unlock()
	p := prices["777"]
	if p == nil || !p.Price.Equal(decimal.RequireFromString("0.50")) {
		t.Fatalf("want mid price 0.50, got %v", p)
	}
	if p.Source != SourceBookMid {
		t.Fatalf("want source BOOK_MID, got %s", p.Source)
	}
}

func TestBookEmptyAskDefault(t *testing.T) {
	f := New(testOptions(new(fakeDialer)))
	defer f.Close()

	f.handleData([]byte(`{"asset_id":"777","bids":[{"price":"0.30","size":"10"}],"asks":[]}`))

	// An empty ask side defaults to 1, so the mid is (0.30+1)/2.
	p, ok := f.LastPrice("777")
	if !ok {
		t.Fatal("no price recorded")
	}
	if !p.Equal(decimal.RequireFromString("0.65")) {
		t.Fatalf("want price 0.65, got %s", p)
	}
}

func TestPriceChangeEvents(t *testing.T) {
	f := New(testOptions(new(fakeDialer)))
	defer f.Close()

	// Mid of best bid and ask is preferred over the flat price.
	f.handleData([]byte(`{"event_type":"price_change","changes":[{"asset_id":"a1","price":"0.99","best_bid":"0.40","best_ask":"0.50"},{"asset_id":"a2","price":"0.33"}]}`))

	if p, _ := f.LastPrice("a1"); !p.Equal(decimal.RequireFromString("0.45")) {
		t.Fatalf("want a1 price 0.45, got %s", p)
	}
	if p, _ := f.LastPrice("a2"); !p.Equal(decimal.RequireFromString("0.33")) {
		t.Fatalf("want a2 price 0.33, got %s", p)
	}

	f.handleData([]byte(`{"event_type":"last_trade_price","asset_id":"a3","price":"0.77"}`))
	if p, _ := f.LastPrice("a3"); !p.Equal(decimal.RequireFromString("0.77")) {
		t.Fatalf("want a3 price 0.77, got %s", p)
	}

	f.handleData([]byte(`{"event_type":"tick_size_change","asset_id":"a3","new_tick_size":"0.001"}`))
	if p, _ := f.LastPrice("a3"); !p.Equal(decimal.RequireFromString("0.77")) {
		t.Fatalf("tick_size_change must not move the price, got %s", p)
	}
}

func TestMalformedPayloads(t *testing.T) {
	f := New(testOptions(new(fakeDialer)))
	defer f.Close()

	// None of these may panic or record a price.
	f.handleData([]byte("OK subscribed"))
	f.handleData([]byte("ERROR bad subscription"))
	f.handleData([]byte("INVALID message"))
	f.handleData([]byte("random text"))
	f.handleData([]byte(`{"event_type":`))
	f.handleData([]byte(`[{"event_type":"price_change","changes":[{"asset_id":"x","price":"not-a-number"}]}]`))
	f.handleData(nil)

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.priceMap) != 0 {
		t.Fatalf("malformed payloads recorded prices: %v", f.priceMap)
	}
}

func TestDebounceCoalescing(t *testing.T) {
	d := new(fakeDialer)
	f := New(testOptions(d))
	defer f.Close()

	if err := f.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	conn := d.last()

	f.Subscribe([]string{"a1"}, nil)
	f.Subscribe([]string{"a2"}, nil)
	f.Subscribe([]string{"a3"}, nil)

	waitFor(t, time.Second, func() bool { return len(conn.subscribeMessages()) > 0 })
	time.Sleep(50 * time.Millisecond)

	msgs := conn.subscribeMessages()
	if len(msgs) != 1 {
		t.Fatalf("want exactly one subscription message, got %d", len(msgs))
	}
	got := append([]string{}, msgs[0].AssetIDs...)
	sort.Strings(got)
	want := []string{"a1", "a2", "a3"}
	if len(got) != len(want) {
		t.Fatalf("want assets %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("want assets %v, got %v", want, got)
		}
	}
}

func TestReconnectDelays(t *testing.T) {
	base := 2 * time.Second
	want := []time.Duration{2 * time.Second, 4 * time.Second, 6 * time.Second, 8 * time.Second, 10 * time.Second}
	for i, w := range want {
		if d := reconnectDelay(base, i+1); d != w {
			t.Fatalf("attempt %d: want delay %s, got %s", i+1, w, d)
		}
	}
}

func TestReconnectBound(t *testing.T) {
	d := new(fakeDialer)
	f := New(testOptions(d))
	defer f.Close()

	if err := f.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	f.Subscribe([]string{"a1"}, nil)

	// Every future dial fails; exactly five reconnect attempts follow.
	d.mu.Lock()
	d.fail = true
	first := d.conns[0]
	d.mu.Unlock()
	first.breakConn()

	waitFor(t, 5*time.Second, func() bool { return f.State() == StateDisconnected })
	if n := d.count(); n != 6 { // initial dial + five retries
		t.Fatalf("want 6 dial attempts, got %d", n)
	}
}

func TestNoReconnectWithoutSubscriptions(t *testing.T) {
	d := new(fakeDialer)
	f := New(testOptions(d))
	defer f.Close()

	if err := f.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	d.last().breakConn()

	waitFor(t, time.Second, func() bool { return f.State() == StateDisconnected })
	time.Sleep(20 * time.Millisecond)
	if n := d.count(); n != 1 {
		t.Fatalf("want no reconnect attempts, got %d dials", n)
	}
}

func TestReconnectResubscribes(t *testing.T) {
	d := new(fakeDialer)
	f := New(testOptions(d))
	defer f.Close()

	if err := f.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	f.Subscribe([]string{"a1", "a2"}, nil)
	waitFor(t, time.Second, func() bool { return len(d.last().subscribeMessages()) > 0 })

	first := d.last()
	first.breakConn()
	waitFor(t, time.Second, func() bool { return d.count() == 2 && f.State() == StateOpen })

	second := d.last()
	waitFor(t, time.Second, func() bool { return len(second.subscribeMessages()) > 0 })
	msg := second.subscribeMessages()[0]
	if len(msg.AssetIDs) != 2 {
		t.Fatalf("want both assets resubscribed, got %v", msg.AssetIDs)
	}
}

func TestUnsubscribeRemovalOnEmpty(t *testing.T) {
	f := New(testOptions(new(fakeDialer)))
	defer f.Close()

	fn := func(*PricePoint) {}
	s1 := f.Subscribe([]string{"a1"}, fn)
	s2 := f.Subscribe([]string{"a1"}, fn)

	f.Unsubscribe(s1)
	f.mu.Lock()
	_, ok := f.registry["a1"]
	f.mu.Unlock()
	if !ok {
		t.Fatal("registry entry removed while a listener remains")
	}

	f.Unsubscribe(s2)
	f.mu.Lock()
	_, ok = f.registry["a1"]
	_, lok := f.listenerMap["a1"]
	f.mu.Unlock()
	if ok || lok {
		t.Fatal("registry entry must be removed with its last listener")
	}
}

func TestListenerOrdering(t *testing.T) {
	f := New(testOptions(new(fakeDialer)))
	defer f.Close()

	var order []string
	var mu sync.Mutex
	f.Subscribe([]string{"a1"}, func(*PricePoint) {
		mu.Lock()
		order = append(order, "asset")
		mu.Unlock()
	})
	f.SubscribeAll(func(*PricePoint) {
		mu.Lock()
		order = append(order, "global")
		mu.Unlock()
	})

	f.handleData([]byte(`{"event_type":"last_trade_price","asset_id":"a1","price":"0.50"}`))

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "asset" || order[1] != "global" {
		t.Fatalf("want asset listener before global listener, got %v", order)
	}
}

func TestCloseClearsState(t *testing.T) {
	d := new(fakeDialer)
	f := New(testOptions(d))

	if err := f.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	f.Subscribe([]string{"a1"}, func(*PricePoint) {})
	f.handleData([]byte(`{"event_type":"last_trade_price","asset_id":"a1","price":"0.50"}`))

	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	if _, ok := f.LastPrice("a1"); ok {
		t.Fatal("cached prices must be cleared on teardown")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.registry) != 0 || len(f.listenerMap) != 0 {
		t.Fatal("registries must be cleared on teardown")
	}
}
