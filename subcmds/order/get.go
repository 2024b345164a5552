// Copyright (c) 2025 BVK Chaitanya

package order

import (
	"context"
	"flag"
	"fmt"

	"github.com/bvk/polytrade/cli"
	"github.com/bvk/polytrade/subcmds/cmdutil"
)

type Get struct {
	cmdutil.SecretsFlags
}

func (c *Get) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("get", flag.ContinueOnError)
	c.SecretsFlags.SetFlags(fset)
	return fset, cli.CmdFunc(c.run)
}

func (c *Get) Synopsis() string {
	return "Prints a resting order's live status"
}

func (c *Get) run(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("command takes one (order-id) argument")
	}

	client, err := newAuthenticatedClient(&c.SecretsFlags)
	if err != nil {
		return err
	}
	defer client.Close()

	open, err := client.GetOrder(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("id: %s\n", open.ID)
	fmt.Printf("status: %s\n", open.Status)
	fmt.Printf("market: %s\n", open.Market)
	fmt.Printf("asset: %s\n", open.AssetID)
	fmt.Printf("side: %s\n", open.Side)
	fmt.Printf("price: %s\n", open.Price)
	fmt.Printf("size: %s\n", open.OriginalSize)
	fmt.Printf("matched: %s\n", open.SizeMatched)
	return nil
}
