// Copyright (c) 2025 BVK Chaitanya

package daemon

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bvk/polytrade/clob"
)

// PolymarketSecrets holds the trading account identity. The private key is
// never stored here; it stays in the encrypted key file.
type PolymarketSecrets struct {
	Address string `json:"address"`

	KeyFile string `json:"keyFile"`

	clob.Credentials
}

type Secrets struct {
	Polymarket *PolymarketSecrets `json:"polymarket"`
}

func SecretsFromFile(fpath string) (*Secrets, error) {
	data, err := os.ReadFile(fpath)
	if err != nil {
		return nil, err
	}
	s := new(Secrets)
	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}
	if err := s.Check(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Secrets) Check() error {
	if s.Polymarket != nil {
		if !common.IsHexAddress(s.Polymarket.Address) {
			return fmt.Errorf("invalid polymarket account address %q", s.Polymarket.Address)
		}
	}
	return nil
}

// HasCredentials reports whether api credentials for authenticated venue
// operations are present.
func (s *Secrets) HasCredentials() bool {
	return s.Polymarket != nil && s.Polymarket.Credentials.Check() == nil
}
