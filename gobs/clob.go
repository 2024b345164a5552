// Copyright (c) 2025 BVK Chaitanya

package gobs

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlacedOrder records one signed order submission and its outcome.
type PlacedOrder struct {
	Salt    string
	TokenID string
	Side    string

	Price decimal.Decimal
	Size  decimal.Decimal

	OrderType string
	NegRisk   bool

	// OrderJSON is the exact signed wire form that was transmitted.
	OrderJSON string

	ServerOrderID string
	Status        string

	CreateTime time.Time
	UpdateTime time.Time
}

// PricePoint records one accepted price observation from the market data
// feed.
type PricePoint struct {
	AssetID string
	Price   decimal.Decimal
	At      time.Time
}
