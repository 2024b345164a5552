// Copyright (c) 2025 BVK Chaitanya

// Package allowance checks collateral balances and exchange spending
// approvals through read-only contract calls.
package allowance

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/bvk/polytrade/clob"
	"github.com/bvk/polytrade/ctxutil"
)

// CollateralAddress is the USDC contract on Polygon. Balances and
// allowances are raw 6-decimal units.
var CollateralAddress = common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174")

const collateralDecimals = 6

// ERC20 function selectors.
var (
	balanceOfSig = common.Hex2Bytes("70a08231")
	allowanceSig = common.Hex2Bytes("dd62ed3e")
	approveSig   = common.Hex2Bytes("095ea7b3")
)

// Caller is the read-only contract call capability. *ethclient.Client
// satisfies this interface.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type Options struct {
	// Token contract to check. Defaults to the Polygon USDC contract.
	Token common.Address

	// Approval confirmation polls the on-chain allowance at a fixed
	// interval for a bounded number of attempts.
	PollInterval time.Duration
	PollCount    int
}

func (v *Options) setDefaults() {
	if v.Token == (common.Address{}) {
		v.Token = CollateralAddress
	}
	if v.PollInterval == 0 {
		v.PollInterval = 2 * time.Second
	}
	if v.PollCount == 0 {
		v.PollCount = 20
	}
}

// Status reports whether a wallet can fund an order of the required size.
type Status struct {
	Balance   decimal.Decimal
	Allowance decimal.Decimal

	RawBalance   *big.Int
	RawAllowance *big.Int

	HasEnoughBalance bool
	HasApproval      bool
	NeedsApproval    bool
}

// Checker reads balances and allowances for one token contract.
type Checker struct {
	caller Caller
	opts   Options
}

func New(caller Caller, opts *Options) *Checker {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	return &Checker{caller: caller, opts: *opts}
}

func (c *Checker) callUint(ctx context.Context, data []byte) (*big.Int, error) {
	result, err := c.caller.CallContract(ctx, ethereum.CallMsg{
		To:   &c.opts.Token,
		Data: data,
	}, nil)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(result), nil
}

// Balance reads the raw token balance of an owner.
func (c *Checker) Balance(ctx context.Context, owner common.Address) (*big.Int, error) {
	data := append(append([]byte{}, balanceOfSig...), common.LeftPadBytes(owner.Bytes(), 32)...)
	v, err := c.callUint(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("could not read token balance: %w", err)
	}
	return v, nil
}

// Allowance reads the raw allowance granted by an owner to a spender.
func (c *Checker) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	data := append(append([]byte{}, allowanceSig...), common.LeftPadBytes(owner.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(spender.Bytes(), 32)...)
	v, err := c.callUint(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("could not read token allowance: %w", err)
	}
	return v, nil
}

// CheckRequirements reads the balance and the allowance for the exchange
// contract of the given risk category concurrently and compares both against
// the required raw amount. The needs-approval decision is made in integer
// space so decimal rounding cannot flip it.
func (c *Checker) CheckRequirements(ctx context.Context, owner common.Address, required *big.Int, negRisk bool) (*Status, error) {
	spender := clob.ExchangeFor(negRisk)

	var wg sync.WaitGroup
	var balance, allowed *big.Int
	var balanceErr, allowedErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		balance, balanceErr = c.Balance(ctx, owner)
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		allowed, allowedErr = c.Allowance(ctx, owner, spender)
	}()
	wg.Wait()

	if balanceErr != nil {
		return nil, balanceErr
	}
	if allowedErr != nil {
		return nil, allowedErr
	}

	s := &Status{
		Balance:      decimal.NewFromBigInt(balance, -collateralDecimals),
		Allowance:    decimal.NewFromBigInt(allowed, -collateralDecimals),
		RawBalance:   balance,
		RawAllowance: allowed,
	}
	s.HasEnoughBalance = balance.Cmp(required) >= 0
	s.HasApproval = allowed.Sign() > 0
	s.NeedsApproval = allowed.Cmp(required) < 0
	return s, nil
}

// ApprovalCallData encodes an ERC20 approve call for the spender. Callers
// are expected to approve only the exact amount needed per trade rather than
// an unlimited allowance.
func ApprovalCallData(spender common.Address, amount *big.Int) []byte {
	data := append(append([]byte{}, approveSig...), common.LeftPadBytes(spender.Bytes(), 32)...)
	return append(data, common.LeftPadBytes(amount.Bytes(), 32)...)
}

// Confirmation is the outcome of waiting for an approval to land.
type Confirmation int

const (
	// ConfirmationPending means the bounded polling window elapsed
	// without observing the allowance; the approval is probably still
	// pending and callers proceed optimistically.
	ConfirmationPending Confirmation = iota

	ConfirmationConfirmed
	ConfirmationFailed
)

func (c Confirmation) String() string {
	switch c {
	case ConfirmationConfirmed:
		return "confirmed"
	case ConfirmationFailed:
		return "failed"
	}
	return "pending"
}

// WaitForApproval polls the on-chain allowance, not the transaction receipt,
// until it reaches the required amount or the attempt budget runs out.
func (c *Checker) WaitForApproval(ctx context.Context, owner common.Address, required *big.Int, negRisk bool) (Confirmation, error) {
	spender := clob.ExchangeFor(negRisk)
	for i := 0; i < c.opts.PollCount; i++ {
		if i > 0 {
			ctxutil.Sleep(ctx, c.opts.PollInterval)
		}
		if ctx.Err() != nil {
			return ConfirmationFailed, context.Cause(ctx)
		}
		allowed, err := c.Allowance(ctx, owner, spender)
		if err != nil {
			slog.Warn("could not poll token allowance (can retry)", "err", err)
			continue
		}
		if allowed.Cmp(required) >= 0 {
			return ConfirmationConfirmed, nil
		}
	}
	return ConfirmationPending, nil
}
