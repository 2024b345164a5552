// Copyright (c) 2025 BVK Chaitanya

package clob

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func testCredentials() *Credentials {
	return &Credentials{
		Key:        "e2f9d1c0-8a34-4c25-9f6e-aa91c2f6d001",
		Secret:     base64.URLEncoding.EncodeToString([]byte("super-secret-hmac-key-material!!")),
		Passphrase: "correct-horse-battery-staple",
	}
}

func TestSignDeterministic(t *testing.T) {
	creds := testCredentials()
	body := []byte(`{"order":{"salt":"12345"},"owner":"abc","orderType":"GTC"}`)

	s1 := creds.Sign(1700000000, "POST", "/order", body)
	s2 := creds.Sign(1700000000, "POST", "/order", body)
	if s1 != s2 {
		t.Fatalf("want identical signatures, got %q and %q", s1, s2)
	}

	mac := hmac.New(sha256.New, []byte("super-secret-hmac-key-material!!"))
	mac.Write([]byte("1700000000POST/order"))
	mac.Write(body)
	if want := base64.URLEncoding.EncodeToString(mac.Sum(nil)); s1 != want {
		t.Fatalf("want signature %q, got %q", want, s1)
	}
}

func TestSignatureAvalanche(t *testing.T) {
	creds := testCredentials()
	body := []byte(`{"order":{"salt":"12345","maker":"0xabc"},"owner":"key","orderType":"GTC"}`)

	seen := map[string]int{
		creds.Sign(1700000000, "POST", "/order", body): -1,
	}
	for i := range body {
		flipped := append([]byte{}, body...)
		flipped[i] ^= 0x01
		sig := creds.Sign(1700000000, "POST", "/order", flipped)
		if at, ok := seen[sig]; ok {
			t.Fatalf("signature collision between byte %d and %d", i, at)
		}
		seen[sig] = i
	}
}

func TestSignRequest(t *testing.T) {
	creds := testCredentials()
	addr := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	at := time.Unix(1700000000, 0)

	headers, err := creds.SignRequest(addr, at, "POST", "/order", []byte("{}"))
	if err != nil {
		t.Fatal(err)
	}
	if v := headers.Get("POLY_ADDRESS"); v != addr.Hex() {
		t.Errorf("want address %s, got %s", addr.Hex(), v)
	}
	if v := headers.Get("POLY_TIMESTAMP"); v != "1700000000" {
		t.Errorf("want timestamp 1700000000, got %s", v)
	}
	if v := headers.Get("POLY_API_KEY"); v != creds.Key {
		t.Errorf("want api key %s, got %s", creds.Key, v)
	}
	if v := headers.Get("POLY_PASSPHRASE"); v != creds.Passphrase {
		t.Errorf("want passphrase header, got %s", v)
	}
	if v := headers.Get("POLY_SIGNATURE"); v != creds.Sign(1700000000, "POST", "/order", []byte("{}")) {
		t.Errorf("signature header does not match Sign output")
	}
}

func TestAuthMisconfigured(t *testing.T) {
	var creds *Credentials
	if err := creds.Check(); !errors.Is(err, ErrAuthMisconfigured) {
		t.Fatalf("want %v, got %v", ErrAuthMisconfigured, err)
	}
	partial := &Credentials{Key: "only-a-key"}
	if _, err := partial.SignRequest(common.Address{}, time.Now(), "GET", "/", nil); !errors.Is(err, ErrAuthMisconfigured) {
		t.Fatalf("want %v, got %v", ErrAuthMisconfigured, err)
	}
}

func TestCredentialsRedacted(t *testing.T) {
	creds := testCredentials()
	text := creds.String()
	if strings.Contains(text, creds.Secret) || strings.Contains(text, creds.Passphrase) {
		t.Fatalf("secret material leaked into %q", text)
	}
}
