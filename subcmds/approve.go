// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/bvk/polytrade/allowance"
	"github.com/bvk/polytrade/cli"
	"github.com/bvk/polytrade/clob"
	"github.com/bvk/polytrade/subcmds/cmdutil"
)

type Approve struct {
	cmdutil.SecretsFlags

	rpcURL string

	amount  float64
	negRisk bool

	wait bool
}

func (c *Approve) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("approve", flag.ContinueOnError)
	c.SecretsFlags.SetFlags(fset)
	fset.StringVar(&c.rpcURL, "rpc-url", "https://polygon-rpc.com", "Polygon json-rpc endpoint")
	fset.Float64Var(&c.amount, "amount", 0, "collateral amount to approve for the exchange")
	fset.BoolVar(&c.negRisk, "neg-risk", false, "approve the negative-risk exchange contract")
	fset.BoolVar(&c.wait, "wait", false, "wait for a submitted approval to become visible on-chain")
	return fset, cli.CmdFunc(c.run)
}

func (c *Approve) Synopsis() string {
	return "Prepares an exact-amount collateral approval for the exchange"
}

func (c *Approve) CommandHelp() string {
	return `

Command "approve" prints the call data for an ERC20 approval granting the
exchange contract exactly the given collateral amount. The transaction must
be submitted with an external wallet; this program never spends gas on its
own. With the -wait flag the command polls the on-chain allowance until the
approval is visible.

`
}

func (c *Approve) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}
	if c.amount <= 0 {
		return fmt.Errorf("needs a positive -amount")
	}

	secrets, err := c.SecretsFlags.Load()
	if err != nil {
		return err
	}
	owner, err := c.SecretsFlags.Address(secrets)
	if err != nil {
		return err
	}

	spender := clob.ExchangeFor(c.negRisk)
	required := decimal.NewFromFloat(c.amount).Shift(6).BigInt()

	client, err := ethclient.DialContext(ctx, c.rpcURL)
	if err != nil {
		return fmt.Errorf("could not dial rpc endpoint %q: %w", c.rpcURL, err)
	}
	defer client.Close()

	checker := allowance.New(client, nil)
	status, err := checker.CheckRequirements(ctx, owner, required, c.negRisk)
	if err != nil {
		return err
	}
	if !status.NeedsApproval {
		fmt.Printf("allowance %s already covers %s; nothing to approve\n",
			status.Allowance.StringFixed(6), decimal.NewFromFloat(c.amount).StringFixed(6))
		return nil
	}

	data := allowance.ApprovalCallData(spender, required)
	fmt.Printf("token: %s\n", allowance.CollateralAddress)
	fmt.Printf("spender: %s\n", spender)
	fmt.Printf("call data: 0x%x\n", data)

	if !c.wait {
		return nil
	}
	fmt.Printf("waiting for the approval to become visible on-chain\n")
	confirmation, err := checker.WaitForApproval(ctx, owner, required, c.negRisk)
	if err != nil {
		return err
	}
	fmt.Printf("approval: %s\n", confirmation)
	return nil
}
