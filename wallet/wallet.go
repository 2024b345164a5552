// Copyright (c) 2025 BVK Chaitanya

// Package wallet holds the private-key handling and typed-data signing
// support for order signatures.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

var (
	// ErrSigningTimeout is returned when a signer does not produce a
	// signature within the allowed duration.
	ErrSigningTimeout = errors.New("signing request timed out")

	// ErrSigningRejected is returned when a signer refuses to sign.
	ErrSigningRejected = errors.New("signing request rejected")
)

// Signer can authorize typed-data payloads for an address. Signing may block
// for a long time when a human has to approve the request, so implementations
// must honor context cancellation.
type Signer interface {
	Address() common.Address
	SignTypedData(ctx context.Context, data *apitypes.TypedData) ([]byte, error)
}

// KeySigner signs typed-data payloads with an in-memory ECDSA private key.
type KeySigner struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

// NewKeySigner creates a signer from a private key.
func NewKeySigner(key *ecdsa.PrivateKey) (*KeySigner, error) {
	if key == nil {
		return nil, os.ErrInvalid
	}
	return &KeySigner{
		key:  key,
		addr: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// NewKeySignerFromHex creates a signer from a hex-encoded private key, with
// or without the "0x" prefix.
func NewKeySignerFromHex(keyHex string) (*KeySigner, error) {
	if len(keyHex) > 1 && keyHex[0] == '0' && (keyHex[1] == 'x' || keyHex[1] == 'X') {
		keyHex = keyHex[2:]
	}
	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("could not parse private key: %w", err)
	}
	return NewKeySigner(key)
}

func (s *KeySigner) Address() common.Address {
	return s.addr
}

// Key returns the underlying private key, for saving to a key file.
func (s *KeySigner) Key() *ecdsa.PrivateKey {
	return s.key
}

// SignTypedData hashes the typed-data payload and signs the digest. The
// recovery byte is adjusted to the 27/28 convention expected by on-chain
// signature verification.
func (s *KeySigner) SignTypedData(ctx context.Context, data *apitypes.TypedData) ([]byte, error) {
	hash, _, err := apitypes.TypedDataAndHash(*data)
	if err != nil {
		return nil, fmt.Errorf("could not hash typed data: %w", err)
	}
	sig, err := crypto.Sign(hash, s.key)
	if err != nil {
		return nil, fmt.Errorf("could not sign typed data: %w", err)
	}
	sig[64] += 27
	return sig, nil
}

// SignWithTimeout runs a signing request with a deadline. Interactive signers
// can take tens of seconds waiting on a human, so the timeout here is
// independent of any network timeouts. A timeout is reported as
// ErrSigningTimeout and is an expected outcome, not a fatal error.
func SignWithTimeout(ctx context.Context, signer Signer, data *apitypes.TypedData, timeout time.Duration) ([]byte, error) {
	sctx, scancel := context.WithTimeout(ctx, timeout)
	defer scancel()

	sig, err := signer.SignTypedData(sctx, data)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && sctx.Err() != nil {
			return nil, ErrSigningTimeout
		}
		return nil, err
	}
	return sig, nil
}
