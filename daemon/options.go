// Copyright (c) 2025 BVK Chaitanya

package daemon

import (
	"time"

	"github.com/bvk/polytrade/feed"
)

type Options struct {
	// FeedURL overrides the market data websocket endpoint.
	FeedURL string

	// FeedDial overrides the websocket transport, for tests.
	FeedDial feed.Dialer

	// NoRecordPrices disables persisting price observations to the
	// datastore.
	NoRecordPrices bool

	// SyncOrderInterval is how often open order statuses are refreshed
	// from the venue. Zero picks the default; requires api credentials.
	SyncOrderInterval time.Duration
}

func (v *Options) setDefaults() {
	if v.SyncOrderInterval == 0 {
		v.SyncOrderInterval = time.Minute
	}
}
