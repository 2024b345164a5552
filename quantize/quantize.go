// Copyright (c) 2025 BVK Chaitanya

// Package quantize converts human-readable price and size values into the
// fixed-point integer amounts expected by the exchange contracts. All
// functions are pure and safe for concurrent use.
package quantize

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"
)

// ErrZeroAmount is returned when rounding collapses either side of an order
// to a zero amount.
var ErrZeroAmount = errors.New("quantized amount is zero")

// Collateral amounts are always expressed with six decimal places.
const collateralDecimals = 6

// Profile holds the rounding precision associated with a market tick size.
type Profile struct {
	PriceDecimals  int32
	SizeDecimals   int32
	AmountDecimals int32
}

var tickProfileMap = map[string]Profile{
	"0.1":    {PriceDecimals: 1, SizeDecimals: 2, AmountDecimals: 3},
	"0.01":   {PriceDecimals: 2, SizeDecimals: 2, AmountDecimals: 4},
	"0.001":  {PriceDecimals: 3, SizeDecimals: 2, AmountDecimals: 5},
	"0.0001": {PriceDecimals: 4, SizeDecimals: 2, AmountDecimals: 6},
}

// ProfileFor returns the rounding profile for a tick size. Unrecognized tick
// sizes fall back to the "0.01" profile.
func ProfileFor(tickSize string) Profile {
	if p, ok := tickProfileMap[tickSize]; ok {
		return p
	}
	return tickProfileMap["0.01"]
}

// Amounts holds the rounded price/size and the integer maker/taker amounts
// for one side of an order.
type Amounts struct {
	// Price and Size are the user inputs rounded down to the tick profile
	// precision.
	Price decimal.Decimal
	Size  decimal.Decimal

	// MakerAmount and TakerAmount are non-negative integers at the
	// collateral scale.
	MakerAmount *big.Int
	TakerAmount *big.Int
}

// ForBuy computes the maker/taker amounts for a buy order. The taker amount
// is the number of outcome tokens received and the maker amount is the
// collateral paid.
func ForBuy(tickSize string, price, size decimal.Decimal) (*Amounts, error) {
	p := ProfileFor(tickSize)
	rprice := price.Truncate(p.PriceDecimals)
	rsize := size.Truncate(p.SizeDecimals)

	taker := rsize.Shift(collateralDecimals).Round(0).BigInt()
	maker := rsize.Mul(rprice).Truncate(p.AmountDecimals).Shift(collateralDecimals).Round(0).BigInt()
	if taker.Sign() <= 0 || maker.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	return &Amounts{Price: rprice, Size: rsize, MakerAmount: maker, TakerAmount: taker}, nil
}

// ForSell computes the maker/taker amounts for a sell order. The maker amount
// is the number of outcome tokens paid and the taker amount is the collateral
// received.
func ForSell(tickSize string, price, size decimal.Decimal) (*Amounts, error) {
	p := ProfileFor(tickSize)
	rprice := price.Truncate(p.PriceDecimals)
	rsize := size.Truncate(p.SizeDecimals)

	maker := rsize.Shift(collateralDecimals).Round(0).BigInt()
	taker := rsize.Mul(rprice).Truncate(p.AmountDecimals).Shift(collateralDecimals).Round(0).BigInt()
	if taker.Sign() <= 0 || maker.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	return &Amounts{Price: rprice, Size: rsize, MakerAmount: maker, TakerAmount: taker}, nil
}
