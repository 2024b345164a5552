// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/bvk/polytrade/allowance"
	"github.com/bvk/polytrade/cli"
	"github.com/bvk/polytrade/subcmds/cmdutil"
)

type Balance struct {
	cmdutil.SecretsFlags

	rpcURL string

	required float64
	negRisk  bool
}

func (c *Balance) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("balance", flag.ContinueOnError)
	c.SecretsFlags.SetFlags(fset)
	fset.StringVar(&c.rpcURL, "rpc-url", "https://polygon-rpc.com", "Polygon json-rpc endpoint")
	fset.Float64Var(&c.required, "required", 0, "collateral amount to check the balance and allowance against")
	fset.BoolVar(&c.negRisk, "neg-risk", false, "check the allowance for the negative-risk exchange")
	return fset, cli.CmdFunc(c.run)
}

func (c *Balance) Synopsis() string {
	return "Prints the collateral balance and exchange allowance"
}

func (c *Balance) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}

	secrets, err := c.SecretsFlags.Load()
	if err != nil {
		return err
	}
	owner, err := c.SecretsFlags.Address(secrets)
	if err != nil {
		return err
	}

	client, err := ethclient.DialContext(ctx, c.rpcURL)
	if err != nil {
		return fmt.Errorf("could not dial rpc endpoint %q: %w", c.rpcURL, err)
	}
	defer client.Close()

	required := decimal.NewFromFloat(c.required).Shift(6).BigInt()
	if required.Sign() == 0 {
		required = big.NewInt(1)
	}

	checker := allowance.New(client, nil)
	status, err := checker.CheckRequirements(ctx, owner, required, c.negRisk)
	if err != nil {
		return err
	}

	fmt.Printf("balance: %s\n", status.Balance.StringFixed(6))
	fmt.Printf("allowance: %s\n", status.Allowance.StringFixed(6))
	if c.required > 0 {
		fmt.Printf("has enough balance: %t\n", status.HasEnoughBalance)
		fmt.Printf("needs approval: %t\n", status.NeedsApproval)
	}
	return nil
}
