// Copyright (c) 2025 BVK Chaitanya

// Package feed implements a resilient market data stream over a websocket
// transport, with debounced subscription management, keep-alive
// resubscription and a bounded reconnect policy.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/bvkgo/topic"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bvk/polytrade/ctxutil"
)

// ErrDisconnected is reported when the reconnect budget is exhausted. The
// feed then stays disconnected until Connect is called again.
var ErrDisconnected = errors.New("feed is disconnected")

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateReconnectWait
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateReconnectWait:
		return "RECONNECT_WAIT"
	}
	return "DISCONNECTED"
}

// Source identifies which message kind a price observation came from.
type Source int

const (
	SourceBookMid Source = iota
	SourceLastTrade
	SourcePriceChange
)

func (s Source) String() string {
	switch s {
	case SourceLastTrade:
		return "LAST_TRADE"
	case SourcePriceChange:
		return "PRICE_CHANGE"
	}
	return "BOOK_MID"
}

// PricePoint is one accepted price observation.
type PricePoint struct {
	AssetID string
	Price   decimal.Decimal
	Source  Source
	At      time.Time
}

// Listener receives price observations synchronously on the message
// delivery context. A listener may fire once more after its subscription is
// logically removed; implementations must tolerate that.
type Listener func(*PricePoint)

// Subscription is a handle for removing previously registered listeners.
type Subscription struct {
	id       uuid.UUID
	assetIDs []string
	global   bool
}

// Feed maintains one transport connection and one subscription registry.
type Feed struct {
	cg ctxutil.CloseGroup

	opts Options

	topic *topic.Topic[*PricePoint]

	mu     sync.Mutex
	closed bool
	state  State
	conn   Conn

	// attemptc is non-nil while a connection attempt cycle is in flight;
	// it is closed when the cycle resolves and attemptErr holds the
	// outcome.
	attemptc   chan struct{}
	attemptErr error

	listenerMap map[string]map[uuid.UUID]Listener
	globalMap   map[uuid.UUID]Listener

	// registry refcounts the assetIDs subscribed on the wire, one count
	// per live subscription.
	registry map[string]int

	priceMap map[string]decimal.Decimal

	debounce *time.Timer
}

// New creates a feed. The feed does not connect until Connect is called or a
// subscription is added.
func New(opts *Options) *Feed {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	return &Feed{
		opts:        *opts,
		topic:       topic.New[*PricePoint](),
		listenerMap: make(map[string]map[uuid.UUID]Listener),
		globalMap:   make(map[uuid.UUID]Listener),
		registry:    make(map[string]int),
		priceMap:    make(map[string]decimal.Decimal),
	}
}

// Close tears the feed down. All registries and cached prices are cleared;
// callers must re-subscribe explicitly after a fresh Connect on a new feed.
func (f *Feed) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.state = StateDisconnected
	conn := f.conn
	f.conn = nil
	f.listenerMap = make(map[string]map[uuid.UUID]Listener)
	f.globalMap = make(map[uuid.UUID]Listener)
	f.registry = make(map[string]int)
	f.priceMap = make(map[string]decimal.Decimal)
	if f.debounce != nil {
		f.debounce.Stop()
		f.debounce = nil
	}
	f.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	f.cg.Close()
	f.topic.Close()
	return nil
}

// State returns the current connection state.
func (f *Feed) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// LastPrice returns the last accepted price for an asset.
func (f *Feed) LastPrice(assetID string) (decimal.Decimal, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.priceMap[assetID]
	return p, ok
}

// Connect opens the transport. It is a no-op when already open, and when an
// attempt is already in flight the call waits on that attempt instead of
// starting a second one.
func (f *Feed) Connect(ctx context.Context) error {
	waited := false
	for {
		f.mu.Lock()
		if f.closed {
			f.mu.Unlock()
			return os.ErrClosed
		}
		switch f.state {
		case StateOpen:
			f.mu.Unlock()
			return nil

		case StateConnecting, StateReconnectWait:
			waitc := f.attemptc
			f.mu.Unlock()
			select {
			case <-waitc:
			case <-ctx.Done():
				return context.Cause(ctx)
			}
			waited = true
			continue

		default:
			if waited {
				err := f.attemptErr
				f.mu.Unlock()
				if err == nil {
					err = ErrDisconnected
				}
				return err
			}
			f.attemptc = make(chan struct{})
			f.state = StateConnecting
			f.mu.Unlock()
		}

		conn, err := f.opts.Dial(ctx, f.opts.URL)

		f.mu.Lock()
		if f.closed {
			close(f.attemptc)
			f.mu.Unlock()
			if conn != nil {
				conn.Close()
			}
			return os.ErrClosed
		}
		f.attemptErr = err
		close(f.attemptc)
		if err != nil {
			f.state = StateDisconnected
			f.mu.Unlock()
			return err
		}
		f.openLocked(conn)
		f.mu.Unlock()
		return nil
	}
}

// openLocked installs a freshly dialed transport: flushes the current
// subscription set and starts the reader and heartbeat tasks. Callers hold
// the feed mutex.
func (f *Feed) openLocked(conn Conn) {
	f.conn = conn
	f.state = StateOpen
	if ids := f.registryLocked(); len(ids) > 0 {
		if err := conn.WriteJSON(newSubscribeMessage(ids)); err != nil {
			slog.Warn("could not flush subscriptions on new feed connection", "err", err)
		}
	}
	f.cg.Go(func(ctx context.Context) {
		f.readLoop(ctx, conn)
	})
	f.cg.Go(func(ctx context.Context) {
		f.heartbeatLoop(ctx, conn)
	})
}

func (f *Feed) registryLocked() []string {
	ids := make([]string, 0, len(f.registry))
	for id := range f.registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// heartbeatLoop periodically re-sends the subscription set as a keep-alive.
// It exits when the transport is replaced or torn down.
func (f *Feed) heartbeatLoop(ctx context.Context, conn Conn) {
	for ctxutil.Sleep(ctx, f.opts.HeartbeatInterval); ctx.Err() == nil; ctxutil.Sleep(ctx, f.opts.HeartbeatInterval) {
		f.mu.Lock()
		if f.conn != conn {
			f.mu.Unlock()
			return
		}
		ids := f.registryLocked()
		f.mu.Unlock()

		if len(ids) == 0 {
			continue
		}
		if err := conn.WriteJSON(newSubscribeMessage(ids)); err != nil {
			slog.Warn("could not send feed keep-alive (reader will reconnect)", "err", err)
			return
		}
	}
}

func (f *Feed) readLoop(ctx context.Context, conn Conn) {
	for ctx.Err() == nil {
		msg, err := readMessage(ctx, conn)
		if err != nil {
			conn.Close()
			if ctx.Err() == nil {
				slog.Warn("feed connection is broken", "err", err)
				f.reconnect(ctx, conn)
			}
			return
		}
		f.handleData(msg)
	}
}

// reconnectDelay grows linearly with the attempt number.
func reconnectDelay(base time.Duration, attempt int) time.Duration {
	return time.Duration(attempt) * base
}

// reconnect re-dials after a transport failure. Retries are bounded and are
// attempted only when subscriptions exist; otherwise there is nothing to
// resume and the feed simply goes quiet until the next Connect.
func (f *Feed) reconnect(ctx context.Context, failed Conn) {
	f.mu.Lock()
	if f.closed || f.conn != failed {
		f.mu.Unlock()
		return
	}
	f.conn = nil
	if len(f.registry) == 0 {
		f.state = StateDisconnected
		f.mu.Unlock()
		return
	}
	f.attemptc = make(chan struct{})
	f.state = StateReconnectWait
	f.mu.Unlock()

	resolve := func(err error) {
		f.mu.Lock()
		f.attemptErr = err
		close(f.attemptc)
		f.mu.Unlock()
	}

	for attempt := 1; attempt <= f.opts.MaxReconnectAttempts; attempt++ {
		ctxutil.Sleep(ctx, reconnectDelay(f.opts.ReconnectBaseDelay, attempt))
		if ctx.Err() != nil {
			f.setState(StateDisconnected)
			resolve(context.Cause(ctx))
			return
		}

		conn, err := f.opts.Dial(ctx, f.opts.URL)
		if err != nil {
			slog.Warn("could not reopen feed connection (can retry)", "attempt", attempt, "err", err)
			continue
		}

		f.mu.Lock()
		if f.closed {
			close(f.attemptc)
			f.mu.Unlock()
			conn.Close()
			return
		}
		f.attemptErr = nil
		close(f.attemptc)
		f.openLocked(conn)
		f.mu.Unlock()
		return
	}

	slog.Error("feed reconnect budget is exhausted; staying disconnected")
	f.setState(StateDisconnected)
	resolve(ErrDisconnected)
}

func (f *Feed) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

// Subscribe registers a listener for the given assetIDs and schedules a
// debounced wire subscription for any newly added ids. A nil listener adds
// the assetIDs to the wire subscription without a callback (bulk warm-up).
// If the feed is disconnected, a connection attempt is started in the
// background and the subscription is applied once open.
func (f *Feed) Subscribe(assetIDs []string, fn Listener) *Subscription {
	sub := &Subscription{id: uuid.New()}
	sub.assetIDs = append(sub.assetIDs, assetIDs...)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return sub
	}
	added := false
	for _, id := range assetIDs {
		if fn != nil {
			m, ok := f.listenerMap[id]
			if !ok {
				m = make(map[uuid.UUID]Listener)
				f.listenerMap[id] = m
			}
			m[sub.id] = fn
		}
		f.registry[id]++
		if f.registry[id] == 1 {
			added = true
		}
	}
	if added {
		f.scheduleSubscribeLocked()
	}
	needConnect := f.state == StateDisconnected
	f.mu.Unlock()

	if needConnect {
		f.cg.Go(func(ctx context.Context) {
			if err := f.Connect(ctx); err != nil && ctx.Err() == nil {
				slog.Warn("could not connect feed for new subscription", "err", err)
			}
		})
	}
	return sub
}

// SubscribeAll registers a listener for every accepted price observation.
func (f *Feed) SubscribeAll(fn Listener) *Subscription {
	sub := &Subscription{id: uuid.New(), global: true}
	f.mu.Lock()
	if !f.closed {
		f.globalMap[sub.id] = fn
	}
	f.mu.Unlock()
	return sub
}

// Unsubscribe removes the subscription's listeners. An assetID held by no
// remaining subscription is also dropped from the wire subscription; the
// venue treats absence from the next resubscribe list as an implicit drop,
// so no unsubscribe message is sent.
func (f *Feed) Unsubscribe(sub *Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if sub.global {
		delete(f.globalMap, sub.id)
		return
	}
	for _, id := range sub.assetIDs {
		if m, ok := f.listenerMap[id]; ok {
			delete(m, sub.id)
			if len(m) == 0 {
				delete(f.listenerMap, id)
			}
		}
		if n := f.registry[id]; n > 1 {
			f.registry[id] = n - 1
		} else {
			delete(f.registry, id)
		}
	}
	sub.assetIDs = nil
}

// scheduleSubscribeLocked arranges a single wire subscription message for
// all registered assetIDs after the debounce window. Calls arriving within
// the window coalesce into the pending send.
func (f *Feed) scheduleSubscribeLocked() {
	if f.debounce != nil {
		return
	}
	f.debounce = time.AfterFunc(f.opts.DebounceWindow, f.flushSubscriptions)
}

func (f *Feed) flushSubscriptions() {
	f.mu.Lock()
	f.debounce = nil
	conn := f.conn
	var ids []string
	if conn != nil && f.state == StateOpen {
		ids = f.registryLocked()
	}
	f.mu.Unlock()

	if conn == nil || len(ids) == 0 {
		// Not connected; openLocked flushes the set once a transport
		// is available.
		return
	}
	if err := conn.WriteJSON(newSubscribeMessage(ids)); err != nil {
		slog.Warn("could not send feed subscription message", "err", err)
	}
}

// PriceCh returns a channel carrying every accepted price observation, with
// the most recent observation replayed first. The returned stop function
// releases the channel.
func (f *Feed) PriceCh() (<-chan *PricePoint, func(), error) {
	recv, ch, err := f.topic.Subscribe(1, true /* includeRecent */)
	if err != nil {
		return nil, nil, err
	}
	return ch, recv.Unsubscribe, nil
}

// publish records an accepted price and notifies the asset-scoped listeners
// followed by the global listeners, synchronously on the calling context.
func (f *Feed) publish(assetID string, price decimal.Decimal, src Source) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.priceMap[assetID] = price
	var fns []Listener
	for _, fn := range f.listenerMap[assetID] {
		fns = append(fns, fn)
	}
	for _, fn := range f.globalMap {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	p := &PricePoint{AssetID: assetID, Price: price, Source: src, At: time.Now()}
	for _, fn := range fns {
		fn(p)
	}
	f.topic.SendCh() <- p
}
