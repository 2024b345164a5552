// Copyright (c) 2025 BVK Chaitanya

package order

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bvk/polytrade/clob"
	"github.com/bvk/polytrade/subcmds/cmdutil"
)

// newAuthenticatedClient creates a venue client with the api credentials from
// the secrets file. The private key is not needed for these operations.
func newAuthenticatedClient(sf *cmdutil.SecretsFlags) (*clob.Client, error) {
	secrets, err := sf.Load()
	if err != nil {
		return nil, err
	}
	if !secrets.HasCredentials() {
		return nil, fmt.Errorf("no api credentials in secrets file; run setup api-key first")
	}
	addr := common.HexToAddress(secrets.Polymarket.Address)
	return clob.New(addr, &secrets.Polymarket.Credentials, nil)
}
