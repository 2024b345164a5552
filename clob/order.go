// Copyright (c) 2025 BVK Chaitanya

// Package clob implements a client for the Polymarket central limit order
// book service. It covers order construction and typed-data signing, the
// authenticated REST interface and api-key credential management.
package clob

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/shopspring/decimal"

	"github.com/bvk/polytrade/quantize"
	"github.com/bvk/polytrade/wallet"
)

// ErrInvalidOrderParams is returned when an order's price is outside (0,1)
// or the size is not positive.
var ErrInvalidOrderParams = errors.New("invalid order price or size")

const (
	// DefaultChainID is the Polygon mainnet chain id.
	DefaultChainID = 137

	domainName    = "Polymarket CTF Exchange"
	domainVersion = "1"
)

var (
	// ExchangeAddress is the standard CTF exchange contract.
	ExchangeAddress = common.HexToAddress("0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E")

	// NegRiskExchangeAddress is the exchange contract for negated-risk
	// markets.
	NegRiskExchangeAddress = common.HexToAddress("0xC5d563A36AE78145C45a50134d48A1215220f80a")
)

// ExchangeFor returns the exchange contract verifying order signatures for
// the given market risk category.
func ExchangeFor(negRisk bool) common.Address {
	if negRisk {
		return NegRiskExchangeAddress
	}
	return ExchangeAddress
}

type Side uint8

const (
	SideBuy  Side = 0
	SideSell Side = 1
)

func (s Side) String() string {
	if s == SideSell {
		return "SELL"
	}
	return "BUY"
}

// SignatureType selects how the exchange contract verifies the order
// signature.
type SignatureType uint8

const (
	// SignatureEOA is a direct EOA signature where maker == signer.
	SignatureEOA SignatureType = 0

	// SignatureProxy is a signature by the owner of a proxy wallet.
	SignatureProxy SignatureType = 1

	// SignatureGnosisSafe is a signature by a Gnosis Safe owner.
	SignatureGnosisSafe SignatureType = 2
)

// OrderType selects the time-in-force for order placement.
type OrderType string

const (
	OrderTypeGTC OrderType = "GTC"
	OrderTypeGTD OrderType = "GTD"
	OrderTypeFOK OrderType = "FOK"
)

// UserOrder holds the human-readable order parameters.
type UserOrder struct {
	// TokenID is the outcome token id as a decimal string.
	TokenID string

	Side  Side
	Price decimal.Decimal
	Size  decimal.Decimal

	// TickSize is the market price granularity; it selects the rounding
	// profile for the amounts.
	TickSize string

	// NegRisk markets verify signatures on a different exchange contract.
	NegRisk bool

	// Expiration is a unix timestamp; zero means no expiry.
	Expiration int64

	Nonce      int64
	FeeRateBps int64
}

// Order is the wire form of a signed exchange order. Numeric fields are
// decimal strings; the field set and ordering match the on-chain order
// struct verified by the exchange contract.
type Order struct {
	Salt          string `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	Side          string `json:"side"`
	SignatureType uint8  `json:"signatureType"`
	Signature     string `json:"signature"`
}

// Builder constructs signable orders for one maker wallet.
type Builder struct {
	// ChainID identifies the network in the signing domain.
	ChainID int64

	// Maker is the funding wallet and Signer is the key that signs. They
	// are equal for direct EOA orders.
	Maker  common.Address
	Signer common.Address

	SignatureType SignatureType

	// Rand is the salt entropy source. Defaults to crypto/rand.
	Rand io.Reader
}

// NewBuilder creates a Builder for direct EOA orders where the signing key
// owns the funding wallet.
func NewBuilder(addr common.Address) *Builder {
	return &Builder{
		ChainID:       DefaultChainID,
		Maker:         addr,
		Signer:        addr,
		SignatureType: SignatureEOA,
	}
}

var maxSalt = new(big.Int).Lsh(big.NewInt(1), 256)

func (b *Builder) newSalt() (*big.Int, error) {
	src := b.Rand
	if src == nil {
		src = rand.Reader
	}
	salt, err := rand.Int(src, maxSalt)
	if err != nil {
		return nil, fmt.Errorf("could not generate order salt: %w", err)
	}
	return salt, nil
}

// Build validates and quantizes the user order and returns the wire order
// together with the typed-data payload that must be signed over. Parameter
// validation happens before any salt randomness is consumed.
func (b *Builder) Build(uo *UserOrder) (*Order, *apitypes.TypedData, error) {
	one := decimal.NewFromInt(1)
	if uo.Price.Sign() <= 0 || uo.Price.GreaterThanOrEqual(one) || uo.Size.Sign() <= 0 {
		return nil, nil, fmt.Errorf("price %s size %s: %w", uo.Price, uo.Size, ErrInvalidOrderParams)
	}

	var as *quantize.Amounts
	var err error
	if uo.Side == SideSell {
		as, err = quantize.ForSell(uo.TickSize, uo.Price, uo.Size)
	} else {
		as, err = quantize.ForBuy(uo.TickSize, uo.Price, uo.Size)
	}
	if err != nil {
		return nil, nil, err
	}

	salt, err := b.newSalt()
	if err != nil {
		return nil, nil, err
	}

	tokenID, ok := new(big.Int).SetString(uo.TokenID, 10)
	if !ok {
		return nil, nil, fmt.Errorf("token id %q is not a decimal number: %w", uo.TokenID, ErrInvalidOrderParams)
	}

	order := &Order{
		Salt:          salt.String(),
		Maker:         b.Maker.Hex(),
		Signer:        b.Signer.Hex(),
		Taker:         common.Address{}.Hex(),
		TokenID:       uo.TokenID,
		MakerAmount:   as.MakerAmount.String(),
		TakerAmount:   as.TakerAmount.String(),
		Expiration:    fmt.Sprintf("%d", uo.Expiration),
		Nonce:         fmt.Sprintf("%d", uo.Nonce),
		FeeRateBps:    fmt.Sprintf("%d", uo.FeeRateBps),
		Side:          uo.Side.String(),
		SignatureType: uint8(b.SignatureType),
	}

	message := map[string]interface{}{
		"salt":          salt,
		"maker":         order.Maker,
		"signer":        order.Signer,
		"taker":         order.Taker,
		"tokenId":       tokenID,
		"makerAmount":   as.MakerAmount,
		"takerAmount":   as.TakerAmount,
		"expiration":    big.NewInt(uo.Expiration),
		"nonce":         big.NewInt(uo.Nonce),
		"feeRateBps":    big.NewInt(uo.FeeRateBps),
		"side":          big.NewInt(int64(uo.Side)),
		"signatureType": big.NewInt(int64(b.SignatureType)),
	}
	return order, b.typedData(uo.NegRisk, message), nil
}

// Field order and types must match the exchange contract's order schema
// exactly.
var orderSchema = []apitypes.Type{
	{Name: "salt", Type: "uint256"},
	{Name: "maker", Type: "address"},
	{Name: "signer", Type: "address"},
	{Name: "taker", Type: "address"},
	{Name: "tokenId", Type: "uint256"},
	{Name: "makerAmount", Type: "uint256"},
	{Name: "takerAmount", Type: "uint256"},
	{Name: "expiration", Type: "uint256"},
	{Name: "nonce", Type: "uint256"},
	{Name: "feeRateBps", Type: "uint256"},
	{Name: "side", Type: "uint8"},
	{Name: "signatureType", Type: "uint8"},
}

func (b *Builder) typedData(negRisk bool, message map[string]interface{}) *apitypes.TypedData {
	return &apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Order": orderSchema,
		},
		PrimaryType: "Order",
		Domain: apitypes.TypedDataDomain{
			Name:              domainName,
			Version:           domainVersion,
			ChainId:           math.NewHexOrDecimal256(b.ChainID),
			VerifyingContract: ExchangeFor(negRisk).Hex(),
		},
		Message: message,
	}
}

// Sign asks the signer to authorize the typed-data payload and attaches the
// signature to the order. The timeout covers a potential human approval step
// and should be generous compared to network timeouts.
func Sign(ctx context.Context, signer wallet.Signer, order *Order, data *apitypes.TypedData, timeout time.Duration) error {
	sig, err := wallet.SignWithTimeout(ctx, signer, data, timeout)
	if err != nil {
		return err
	}
	order.Signature = hexutil.Encode(sig)
	return nil
}
