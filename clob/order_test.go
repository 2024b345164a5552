// Copyright (c) 2025 BVK Chaitanya

package clob

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/shopspring/decimal"

	"github.com/bvk/polytrade/wallet"
)

// fixedReader feeds constant bytes so salt generation is repeatable.
type fixedReader byte

func (r fixedReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(r)
	}
	return len(p), nil
}

func testUserOrder() *UserOrder {
	return &UserOrder{
		TokenID:  "71321045679252212594626385532706912750332728571942532289631379312455583992563",
		Side:     SideBuy,
		Price:    decimal.RequireFromString("0.55"),
		Size:     decimal.NewFromInt(100),
		TickSize: "0.01",
	}
}

func TestBuildDeterminism(t *testing.T) {
	signer, err := wallet.NewKeySignerFromHex("59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d")
	if err != nil {
		t.Fatal(err)
	}

	b := NewBuilder(signer.Address())
	b.Rand = fixedReader(7)

	o1, d1, err := b.Build(testUserOrder())
	if err != nil {
		t.Fatal(err)
	}
	o2, d2, err := b.Build(testUserOrder())
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(o1, o2) {
		t.Fatalf("want identical orders, got %#v and %#v", o1, o2)
	}
	h1, _, err := apitypes.TypedDataAndHash(*d1)
	if err != nil {
		t.Fatal(err)
	}
	h2, _, err := apitypes.TypedDataAndHash(*d2)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(h1, h2) {
		t.Fatalf("want identical typed-data hashes, got %x and %x", h1, h2)
	}
}

func TestBuildAmounts(t *testing.T) {
	signer, err := wallet.NewKeySignerFromHex("59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d")
	if err != nil {
		t.Fatal(err)
	}

	b := NewBuilder(signer.Address())
	order, _, err := b.Build(testUserOrder())
	if err != nil {
		t.Fatal(err)
	}
	if order.MakerAmount != "55000000" {
		t.Errorf("want maker amount 55000000, got %s", order.MakerAmount)
	}
	if order.TakerAmount != "100000000" {
		t.Errorf("want taker amount 100000000, got %s", order.TakerAmount)
	}
	if order.Side != "BUY" {
		t.Errorf("want side BUY, got %s", order.Side)
	}
}

func TestBuildInvalidParams(t *testing.T) {
	b := NewBuilder(common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"))
	for _, uo := range []*UserOrder{
		{TokenID: "1", Price: decimal.Zero, Size: decimal.NewFromInt(1), TickSize: "0.01"},
		{TokenID: "1", Price: decimal.NewFromInt(1), Size: decimal.NewFromInt(1), TickSize: "0.01"},
		{TokenID: "1", Price: decimal.RequireFromString("1.5"), Size: decimal.NewFromInt(1), TickSize: "0.01"},
		{TokenID: "1", Price: decimal.RequireFromString("0.5"), Size: decimal.Zero, TickSize: "0.01"},
		{TokenID: "1", Price: decimal.RequireFromString("-0.5"), Size: decimal.NewFromInt(1), TickSize: "0.01"},
	} {
		if _, _, err := b.Build(uo); !errors.Is(err, ErrInvalidOrderParams) {
			t.Errorf("price %s size %s: want %v, got %v", uo.Price, uo.Size, ErrInvalidOrderParams, err)
		}
	}
}

func TestSignRecover(t *testing.T) {
	signer, err := wallet.NewKeySignerFromHex("59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d")
	if err != nil {
		t.Fatal(err)
	}

	b := NewBuilder(signer.Address())
	order, data, err := b.Build(testUserOrder())
	if err != nil {
		t.Fatal(err)
	}
	if err := Sign(context.Background(), signer, order, data, time.Second); err != nil {
		t.Fatal(err)
	}

	sig, err := hexutil.Decode(order.Signature)
	if err != nil {
		t.Fatal(err)
	}
	if len(sig) != 65 {
		t.Fatalf("want 65 byte signature, got %d", len(sig))
	}
	sig[64] -= 27

	hash, _, err := apitypes.TypedDataAndHash(*data)
	if err != nil {
		t.Fatal(err)
	}
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		t.Fatal(err)
	}
	if addr := crypto.PubkeyToAddress(*pub); addr != signer.Address() {
		t.Fatalf("want recovered address %s, got %s", signer.Address(), addr)
	}
}

func TestExchangeFor(t *testing.T) {
	if v := ExchangeFor(false); v != ExchangeAddress {
		t.Fatalf("want %s, got %s", ExchangeAddress, v)
	}
	if v := ExchangeFor(true); v != NegRiskExchangeAddress {
		t.Fatalf("want %s, got %s", NegRiskExchangeAddress, v)
	}
}
