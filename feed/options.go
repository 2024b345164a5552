// Copyright (c) 2025 BVK Chaitanya

package feed

import "time"

var WebsocketURL = "wss://ws-subscriptions-clob.polymarket.com/ws/market"

type Options struct {
	// URL for the websocket market channel.
	URL string

	// Dial opens the websocket transport. Overridable for tests.
	Dial Dialer

	// DebounceWindow coalesces subscribe calls arriving close together
	// into a single wire message.
	DebounceWindow time.Duration

	// HeartbeatInterval between keep-alive resubscriptions.
	HeartbeatInterval time.Duration

	// ReconnectBaseDelay scales linearly with the attempt number. The
	// attempt counter bounds retries at MaxReconnectAttempts.
	ReconnectBaseDelay   time.Duration
	MaxReconnectAttempts int
}

func (v *Options) setDefaults() {
	if v.URL == "" {
		v.URL = WebsocketURL
	}
	if v.Dial == nil {
		v.Dial = websocketDial
	}
	if v.DebounceWindow == 0 {
		v.DebounceWindow = 100 * time.Millisecond
	}
	if v.HeartbeatInterval == 0 {
		v.HeartbeatInterval = 10 * time.Second
	}
	if v.ReconnectBaseDelay == 0 {
		v.ReconnectBaseDelay = 2 * time.Second
	}
	if v.MaxReconnectAttempts == 0 {
		v.MaxReconnectAttempts = 5
	}
}
