// Copyright (c) 2025 BVK Chaitanya

package clob

import "time"

var RestHostname = "clob.polymarket.com"

type Options struct {
	// Hostname for the REST service endpoint.
	RestHostname string

	// Timeout to use for the HTTP requests.
	HttpClientTimeout time.Duration

	// Signing timeout for order signatures. Interactive signers may wait
	// on a human, so this is much larger than the network timeouts.
	SigningTimeout time.Duration

	// Number of times order submission is retried when the proxy reports
	// a cold start, and the fixed interval between the attempts.
	ColdStartRetryCount    int
	ColdStartRetryInterval time.Duration
}

func (v *Options) setDefaults() {
	if v.RestHostname == "" {
		v.RestHostname = RestHostname
	}
	if v.HttpClientTimeout == 0 {
		v.HttpClientTimeout = 10 * time.Second
	}
	if v.SigningTimeout == 0 {
		v.SigningTimeout = 30 * time.Second
	}
	if v.ColdStartRetryCount == 0 {
		v.ColdStartRetryCount = 3
	}
	if v.ColdStartRetryInterval == 0 {
		v.ColdStartRetryInterval = 500 * time.Millisecond
	}
}
