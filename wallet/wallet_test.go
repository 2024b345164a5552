// Copyright (c) 2025 BVK Chaitanya

package wallet

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

const testKeyHex = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"

func testTypedData() *apitypes.TypedData {
	return &apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
			},
			"Note": []apitypes.Type{
				{Name: "text", Type: "string"},
			},
		},
		PrimaryType: "Note",
		Domain: apitypes.TypedDataDomain{
			Name:    "Test",
			Version: "1",
			ChainId: math.NewHexOrDecimal256(137),
		},
		Message: apitypes.TypedDataMessage{
			"text": "hello",
		},
	}
}

func TestKeySignerAddress(t *testing.T) {
	signer, err := NewKeySignerFromHex(testKeyHex)
	if err != nil {
		t.Fatal(err)
	}
	want := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	if signer.Address() != want {
		t.Fatalf("want address %s, got %s", want, signer.Address())
	}

	prefixed, err := NewKeySignerFromHex("0x" + testKeyHex)
	if err != nil {
		t.Fatal(err)
	}
	if prefixed.Address() != want {
		t.Fatalf("want same address with 0x prefix, got %s", prefixed.Address())
	}
}

func TestSignRecover(t *testing.T) {
	signer, err := NewKeySignerFromHex(testKeyHex)
	if err != nil {
		t.Fatal(err)
	}
	data := testTypedData()
	sig, err := signer.SignTypedData(context.Background(), data)
	if err != nil {
		t.Fatal(err)
	}
	if len(sig) != 65 {
		t.Fatalf("want 65 byte signature, got %d", len(sig))
	}
	if sig[64] != 27 && sig[64] != 28 {
		t.Fatalf("want recovery byte 27 or 28, got %d", sig[64])
	}

	hash, _, err := apitypes.TypedDataAndHash(*data)
	if err != nil {
		t.Fatal(err)
	}
	rsig := append([]byte{}, sig...)
	rsig[64] -= 27
	pub, err := crypto.SigToPub(hash, rsig)
	if err != nil {
		t.Fatal(err)
	}
	if addr := crypto.PubkeyToAddress(*pub); addr != signer.Address() {
		t.Fatalf("want recovered address %s, got %s", signer.Address(), addr)
	}
}

type slowSigner struct {
	addr common.Address
}

func (s *slowSigner) Address() common.Address {
	return s.addr
}

func (s *slowSigner) SignTypedData(ctx context.Context, data *apitypes.TypedData) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	case <-time.After(time.Hour):
		return nil, nil
	}
}

func TestSignWithTimeout(t *testing.T) {
	_, err := SignWithTimeout(context.Background(), new(slowSigner), testTypedData(), time.Millisecond)
	if !errors.Is(err, ErrSigningTimeout) {
		t.Fatalf("want ErrSigningTimeout, got %v", err)
	}
}

func TestKeystoreRoundTrip(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "key.jwe")

	if err := SaveKey(path, key, "open sesame"); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadKey(path, "open sesame")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.D.Cmp(key.D) != 0 {
		t.Fatal("loaded key differs from saved key")
	}

	if _, err := LoadKey(path, "wrong passphrase"); err == nil {
		t.Fatal("want an error with the wrong passphrase")
	}
}

func TestSaveKeyInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.jwe")
	if err := SaveKey(path, nil, "x"); err == nil {
		t.Fatal("want an error for a nil key")
	}
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	if err := SaveKey(path, key, ""); err == nil {
		t.Fatal("want an error for an empty passphrase")
	}
}
