// Copyright (c) 2025 BVK Chaitanya

package clob

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/bvk/polytrade/wallet"
)

// ErrAuthMisconfigured is returned when api credentials are missing or
// incomplete. It is fatal for the current session and never retried.
var ErrAuthMisconfigured = errors.New("api credentials are not configured")

// Credentials holds the api-key material for the authenticated REST
// interface. Credentials are a capability: they are never logged in full.
type Credentials struct {
	Key        string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// String returns a redacted form safe for logs.
func (c *Credentials) String() string {
	key := c.Key
	if len(key) > 8 {
		key = key[:8] + "..."
	}
	return fmt.Sprintf("Credentials{Key: %q, Secret: <redacted>, Passphrase: <redacted>}", key)
}

func (c *Credentials) Check() error {
	if c == nil || len(c.Key) == 0 || len(c.Secret) == 0 || len(c.Passphrase) == 0 {
		return ErrAuthMisconfigured
	}
	return nil
}

// hmacKey decodes the base64 secret. Secrets are normally url-safe base64;
// standard base64 and raw strings are accepted as fallbacks.
func (c *Credentials) hmacKey() []byte {
	if key, err := base64.URLEncoding.DecodeString(c.Secret); err == nil {
		return key
	}
	if key, err := base64.StdEncoding.DecodeString(c.Secret); err == nil {
		return key
	}
	return []byte(c.Secret)
}

// Sign computes the request signature over timestamp+method+path+body. The
// body must be the exact byte sequence transmitted on the wire; signing a
// re-serialization of the same logical object can reorder keys and
// invalidate the signature.
func (c *Credentials) Sign(timestamp int64, method, path string, body []byte) string {
	mac := hmac.New(sha256.New, c.hmacKey())
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte(method))
	mac.Write([]byte(path))
	mac.Write(body)
	return base64.URLEncoding.EncodeToString(mac.Sum(nil))
}

// SignRequest returns the authentication header set for one request. The
// timestamp is whole seconds and is computed fresh per request.
func (c *Credentials) SignRequest(address common.Address, at time.Time, method, path string, body []byte) (http.Header, error) {
	if err := c.Check(); err != nil {
		return nil, err
	}
	timestamp := at.Unix()
	headers := make(http.Header)
	headers.Set("POLY_ADDRESS", address.Hex())
	headers.Set("POLY_SIGNATURE", c.Sign(timestamp, method, path, body))
	headers.Set("POLY_TIMESTAMP", strconv.FormatInt(timestamp, 10))
	headers.Set("POLY_API_KEY", c.Key)
	headers.Set("POLY_PASSPHRASE", c.Passphrase)
	return headers, nil
}

const attestation = "This message attests that I control the given wallet"

// attestationHeaders computes the wallet-signature header set used by the
// api-key management endpoints.
func attestationHeaders(ctx context.Context, signer wallet.Signer, chainID, nonce int64, timeout time.Duration) (http.Header, error) {
	at := time.Now().Unix()
	data := &apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
			},
			"ClobAuth": []apitypes.Type{
				{Name: "address", Type: "address"},
				{Name: "timestamp", Type: "string"},
				{Name: "nonce", Type: "uint256"},
				{Name: "message", Type: "string"},
			},
		},
		PrimaryType: "ClobAuth",
		Domain: apitypes.TypedDataDomain{
			Name:    "ClobAuthDomain",
			Version: domainVersion,
			ChainId: math.NewHexOrDecimal256(chainID),
		},
		Message: map[string]interface{}{
			"address":   signer.Address().Hex(),
			"timestamp": strconv.FormatInt(at, 10),
			"nonce":     big.NewInt(nonce),
			"message":   attestation,
		},
	}
	sig, err := wallet.SignWithTimeout(ctx, signer, data, timeout)
	if err != nil {
		return nil, err
	}

	headers := make(http.Header)
	headers.Set("POLY_ADDRESS", signer.Address().Hex())
	headers.Set("POLY_SIGNATURE", hexutil.Encode(sig))
	headers.Set("POLY_TIMESTAMP", strconv.FormatInt(at, 10))
	headers.Set("POLY_NONCE", strconv.FormatInt(nonce, 10))
	return headers, nil
}
