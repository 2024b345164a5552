// Copyright (c) 2025 BVK Chaitanya

package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/term"
	jose "gopkg.in/square/go-jose.v2"
)

// SaveKey writes the private key to a file encrypted with the passphrase.
// The key bytes are wrapped in a compact JWE token using PBES2 key
// derivation, so the file is useless without the passphrase.
func SaveKey(path string, key *ecdsa.PrivateKey, passphrase string) error {
	if key == nil || len(passphrase) == 0 {
		return os.ErrInvalid
	}
	enc, err := jose.NewEncrypter(jose.A128GCM, jose.Recipient{
		Algorithm: jose.PBES2_HS256_A128KW,
		Key:       passphrase,
	}, nil)
	if err != nil {
		return fmt.Errorf("could not create go-jose.v2 pkg encrypter: %w", err)
	}
	obj, err := enc.Encrypt(crypto.FromECDSA(key))
	if err != nil {
		return fmt.Errorf("could not encrypt private key: %w", err)
	}
	text, err := obj.CompactSerialize()
	if err != nil {
		return fmt.Errorf("could not serialize encrypted key: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), os.FileMode(0600)); err != nil {
		return fmt.Errorf("could not write key file %q: %w", path, err)
	}
	return nil
}

// LoadKey reads a private key saved by SaveKey.
func LoadKey(path, passphrase string) (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read key file %q: %w", path, err)
	}
	obj, err := jose.ParseEncrypted(string(data))
	if err != nil {
		return nil, fmt.Errorf("could not parse encrypted key file: %w", err)
	}
	raw, err := obj.Decrypt([]byte(passphrase))
	if err != nil {
		return nil, fmt.Errorf("could not decrypt key file: %w", err)
	}
	key, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("could not parse decrypted key: %w", err)
	}
	return key, nil
}

// ReadPassphrase prompts on the terminal and reads a passphrase with echo
// turned off.
func ReadPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)

	data, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("could not read passphrase: %w", err)
	}
	return string(data), nil
}
