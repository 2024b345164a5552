// Copyright (c) 2025 BVK Chaitanya

package setup

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/bvk/polytrade/cli"
	"github.com/bvk/polytrade/daemon"
	"github.com/bvk/polytrade/subcmds/cmdutil"
	"github.com/bvk/polytrade/wallet"
)

type Key struct {
	cmdutil.SecretsFlags

	keyFile string

	importHex bool
}

func (c *Key) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("key", flag.ContinueOnError)
	c.SecretsFlags.SetFlags(fset)
	fset.StringVar(&c.keyFile, "key-file", "", "path for the encrypted key file")
	fset.BoolVar(&c.importHex, "import", false, "import an existing hex private key instead of generating one")
	return fset, cli.CmdFunc(c.run)
}

func (c *Key) Synopsis() string {
	return "Creates or imports the trading account private key"
}

func (c *Key) CommandHelp() string {
	return `

Command "key" prepares the account private key. By default a fresh key is
generated; with the -import flag the hex private key is read from the
terminal instead. The key is saved to an encrypted key file and the account
address and key file path are recorded in the secrets file.

The passphrase is prompted twice and never stored.

`
}

func (c *Key) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}

	secrets, err := c.SecretsFlags.Load()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		secrets = new(daemon.Secrets)
	}
	if secrets.Polymarket != nil && len(secrets.Polymarket.KeyFile) != 0 {
		return fmt.Errorf("a key file is already configured at %q", secrets.Polymarket.KeyFile)
	}

	signer, err := c.makeSigner(ctx)
	if err != nil {
		return err
	}

	passphrase, err := wallet.ReadPassphrase("Passphrase for the key file: ")
	if err != nil {
		return err
	}
	confirm, err := wallet.ReadPassphrase("Repeat passphrase: ")
	if err != nil {
		return err
	}
	if passphrase != confirm {
		return fmt.Errorf("passphrases do not match")
	}

	keyFile := c.keyFile
	if len(keyFile) == 0 {
		keyFile = filepath.Join(filepath.Dir(c.SecretsFlags.Path()), "key.jwe")
	}
	if err := wallet.SaveKey(keyFile, signer.Key(), passphrase); err != nil {
		return err
	}

	if secrets.Polymarket == nil {
		secrets.Polymarket = new(daemon.PolymarketSecrets)
	}
	secrets.Polymarket.Address = signer.Address().String()
	secrets.Polymarket.KeyFile = keyFile
	if err := c.SecretsFlags.Save(secrets); err != nil {
		return err
	}

	fmt.Printf("account address: %s\n", signer.Address())
	fmt.Printf("key file: %s\n", keyFile)
	return nil
}

func (c *Key) makeSigner(ctx context.Context) (*wallet.KeySigner, error) {
	if !c.importHex {
		key, err := crypto.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("could not generate private key: %w", err)
		}
		return wallet.NewKeySigner(key)
	}
	hex, err := wallet.ReadPassphrase("Private key (hex): ")
	if err != nil {
		return nil, err
	}
	return wallet.NewKeySignerFromHex(strings.TrimSpace(hex))
}
