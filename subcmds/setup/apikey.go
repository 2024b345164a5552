// Copyright (c) 2025 BVK Chaitanya

package setup

import (
	"context"
	"flag"
	"fmt"

	"github.com/bvk/polytrade/cli"
	"github.com/bvk/polytrade/clob"
	"github.com/bvk/polytrade/subcmds/cmdutil"
)

type APIKey struct {
	cmdutil.SecretsFlags

	nonce int64

	create bool
}

func (c *APIKey) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("api-key", flag.ContinueOnError)
	c.SecretsFlags.SetFlags(fset)
	fset.Int64Var(&c.nonce, "nonce", 0, "nonce for the api key derivation")
	fset.BoolVar(&c.create, "create", false, "create a new api key instead of deriving the existing one")
	return fset, cli.CmdFunc(c.run)
}

func (c *APIKey) Synopsis() string {
	return "Derives or creates the venue api credentials"
}

func (c *APIKey) CommandHelp() string {
	return `

Command "api-key" obtains the api credentials used for authenticated venue
operations. The request is authorized with a one-time signature from the
account key; the resulting key, secret and passphrase are recorded in the
secrets file.

`
}

func (c *APIKey) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}

	secrets, err := c.SecretsFlags.Load()
	if err != nil {
		return err
	}
	signer, err := c.SecretsFlags.Signer(secrets)
	if err != nil {
		return err
	}

	client, err := clob.New(signer.Address(), nil, nil)
	if err != nil {
		return err
	}
	defer client.Close()

	var creds *clob.Credentials
	if c.create {
		creds, err = client.CreateCredentials(ctx, signer, c.nonce)
	} else {
		creds, err = client.DeriveCredentials(ctx, signer, c.nonce)
	}
	if err != nil {
		return err
	}

	secrets.Polymarket.Credentials = *creds
	if err := c.SecretsFlags.Save(secrets); err != nil {
		return err
	}

	fmt.Printf("api credentials saved: %s\n", creds)
	return nil
}
