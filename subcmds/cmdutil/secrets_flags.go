// Copyright (c) 2025 BVK Chaitanya

package cmdutil

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bvk/polytrade/daemon"
	"github.com/bvk/polytrade/wallet"
)

// SecretsFlags locate the secrets file holding the account address, the api
// credentials and the encrypted key file path.
type SecretsFlags struct {
	secretsPath string
}

func (sf *SecretsFlags) SetFlags(fset *flag.FlagSet) {
	fset.StringVar(&sf.secretsPath, "secrets-file", "", "path to the secrets file")
}

func (sf *SecretsFlags) Path() string {
	if len(sf.secretsPath) != 0 {
		return sf.secretsPath
	}
	return filepath.Join(os.Getenv("HOME"), ".polytrade", "secrets.json")
}

func (sf *SecretsFlags) Load() (*daemon.Secrets, error) {
	s, err := daemon.SecretsFromFile(sf.Path())
	if err != nil {
		return nil, fmt.Errorf("could not load secrets file %q: %w", sf.Path(), err)
	}
	return s, nil
}

// Save writes the secrets file, creating the parent directory on first use.
func (sf *SecretsFlags) Save(s *daemon.Secrets) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("could not json-encode secrets: %w", err)
	}
	dir := filepath.Dir(sf.Path())
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("could not create directory %q: %w", dir, err)
	}
	if err := os.WriteFile(sf.Path(), data, os.FileMode(0600)); err != nil {
		return fmt.Errorf("could not write secrets file %q: %w", sf.Path(), err)
	}
	return nil
}

// Address returns the configured trading account address.
func (sf *SecretsFlags) Address(s *daemon.Secrets) (common.Address, error) {
	if s.Polymarket == nil {
		return common.Address{}, fmt.Errorf("no polymarket account in secrets file %q", sf.Path())
	}
	return common.HexToAddress(s.Polymarket.Address), nil
}

// Signer decrypts the configured key file, prompting for the passphrase.
func (sf *SecretsFlags) Signer(s *daemon.Secrets) (*wallet.KeySigner, error) {
	if s.Polymarket == nil || len(s.Polymarket.KeyFile) == 0 {
		return nil, fmt.Errorf("no key file configured in secrets file %q", sf.Path())
	}
	passphrase, err := wallet.ReadPassphrase("Passphrase: ")
	if err != nil {
		return nil, err
	}
	key, err := wallet.LoadKey(s.Polymarket.KeyFile, passphrase)
	if err != nil {
		return nil, err
	}
	signer, err := wallet.NewKeySigner(key)
	if err != nil {
		return nil, err
	}
	if want := common.HexToAddress(s.Polymarket.Address); signer.Address() != want {
		return nil, fmt.Errorf("key file address %s does not match account address %s", signer.Address(), want)
	}
	return signer, nil
}
