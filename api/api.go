// Copyright (c) 2025 BVK Chaitanya

// Package api defines the request/response types for the daemon's local http
// endpoints.
package api

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPath = "/daemon/status"
	WatchPath  = "/daemon/watch"
	PricesPath = "/daemon/prices"
)

type StatusRequest struct {
}

type StatusResponse struct {
	Pid int

	StartTime time.Time

	FeedState string

	NumWatched int

	HasCredentials bool
}

type WatchRequest struct {
	Add []string

	Remove []string
}

type WatchResponse struct {
	AssetIDs []string
}

type PricesRequest struct {
	// AssetIDs limits the response to the given assets. All watched assets
	// are returned when empty.
	AssetIDs []string
}

type PricesResponseItem struct {
	AssetID string
	Price   decimal.Decimal
	At      time.Time
}

type PricesResponse struct {
	Prices []*PricesResponseItem
}
