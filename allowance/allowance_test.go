// Copyright (c) 2025 BVK Chaitanya

package allowance

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/bvk/polytrade/clob"
)

var (
	testOwner = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

// fakeCaller answers ERC20 reads from fixed values, switching on the
// function selector.
type fakeCaller struct {
	mu        sync.Mutex
	balance   *big.Int
	allowance *big.Int
	calls     int
	err       error
}

func (c *fakeCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	switch {
	case bytes.HasPrefix(msg.Data, balanceOfSig):
		return common.LeftPadBytes(c.balance.Bytes(), 32), nil
	case bytes.HasPrefix(msg.Data, allowanceSig):
		return common.LeftPadBytes(c.allowance.Bytes(), 32), nil
	}
	return nil, errors.New("unexpected call data")
}

func (c *fakeCaller) setAllowance(v *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.allowance = v
}

func TestCheckRequirements(t *testing.T) {
	caller := &fakeCaller{
		balance:   big.NewInt(150_000000),
		allowance: big.NewInt(50_000000),
	}
	checker := New(caller, nil)

	required := big.NewInt(100_000000)
	s, err := checker.CheckRequirements(context.Background(), testOwner, required, false /* negRisk */)
	if err != nil {
		t.Fatal(err)
	}
	if !s.HasEnoughBalance {
		t.Fatal("balance 150 must cover required 100")
	}
	if !s.HasApproval {
		t.Fatal("nonzero allowance must report an existing approval")
	}
	if !s.NeedsApproval {
		t.Fatal("allowance 50 below required 100 must need approval")
	}
	if !s.Balance.Equal(decimal.RequireFromString("150")) {
		t.Fatalf("want balance 150, got %s", s.Balance)
	}
	if !s.Allowance.Equal(decimal.RequireFromString("50")) {
		t.Fatalf("want allowance 50, got %s", s.Allowance)
	}
}

func TestNeedsApprovalBoundary(t *testing.T) {
	required := big.NewInt(100_000000)

	exact := &fakeCaller{balance: big.NewInt(1), allowance: new(big.Int).Set(required)}
	s, err := New(exact, nil).CheckRequirements(context.Background(), testOwner, required, false)
	if err != nil {
		t.Fatal(err)
	}
	if s.NeedsApproval {
		t.Fatal("allowance equal to required must not need approval")
	}

	short := &fakeCaller{balance: big.NewInt(1), allowance: new(big.Int).Sub(required, big.NewInt(1))}
	s, err = New(short, nil).CheckRequirements(context.Background(), testOwner, required, false)
	if err != nil {
		t.Fatal(err)
	}
	if !s.NeedsApproval {
		t.Fatal("allowance one unit below required must need approval")
	}
}

func TestCheckRequirementsError(t *testing.T) {
	caller := &fakeCaller{err: errors.New("rpc is unavailable")}
	if _, err := New(caller, nil).CheckRequirements(context.Background(), testOwner, big.NewInt(1), false); err == nil {
		t.Fatal("want error from failing contract reads")
	}
}

func TestApprovalCallData(t *testing.T) {
	spender := clob.ExchangeFor(false)
	amount := big.NewInt(55_000000)
	data := ApprovalCallData(spender, amount)

	if len(data) != 4+32+32 {
		t.Fatalf("want 68 bytes of call data, got %d", len(data))
	}
	if !bytes.HasPrefix(data, approveSig) {
		t.Fatalf("want approve selector prefix, got %x", data[:4])
	}
	if got := common.BytesToAddress(data[4:36]); got != spender {
		t.Fatalf("want spender %s, got %s", spender, got)
	}
	if got := new(big.Int).SetBytes(data[36:68]); got.Cmp(amount) != 0 {
		t.Fatalf("want amount %s, got %s", amount, got)
	}
}

func TestWaitForApprovalConfirmed(t *testing.T) {
	caller := &fakeCaller{balance: big.NewInt(0), allowance: big.NewInt(0)}
	checker := New(caller, &Options{PollInterval: time.Millisecond, PollCount: 10})

	required := big.NewInt(100_000000)
	go func() {
		time.Sleep(3 * time.Millisecond)
		caller.setAllowance(required)
	}()

	c, err := checker.WaitForApproval(context.Background(), testOwner, required, false)
	if err != nil {
		t.Fatal(err)
	}
	if c != ConfirmationConfirmed {
		t.Fatalf("want confirmed, got %s", c)
	}
}

func TestWaitForApprovalPending(t *testing.T) {
	caller := &fakeCaller{balance: big.NewInt(0), allowance: big.NewInt(0)}
	checker := New(caller, &Options{PollInterval: time.Millisecond, PollCount: 3})

	c, err := checker.WaitForApproval(context.Background(), testOwner, big.NewInt(1), false)
	if err != nil {
		t.Fatal(err)
	}
	if c != ConfirmationPending {
		t.Fatalf("want pending after exhausting the poll budget, got %s", c)
	}
}

func TestWaitForApprovalCanceled(t *testing.T) {
	caller := &fakeCaller{balance: big.NewInt(0), allowance: big.NewInt(0)}
	checker := New(caller, &Options{PollInterval: time.Hour, PollCount: 5})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c, err := checker.WaitForApproval(ctx, testOwner, big.NewInt(1), false)
	if err == nil {
		t.Fatal("want a context error")
	}
	if c != ConfirmationFailed {
		t.Fatalf("want failed on cancellation, got %s", c)
	}
}
