// Copyright (c) 2025 BVK Chaitanya

package order

import (
	"context"
	"flag"
	"fmt"

	"github.com/bvk/polytrade/cli"
	"github.com/bvk/polytrade/clob"
	"github.com/bvk/polytrade/subcmds/cmdutil"
)

type Cancel struct {
	cmdutil.SecretsFlags

	all bool
}

func (c *Cancel) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("cancel", flag.ContinueOnError)
	c.SecretsFlags.SetFlags(fset)
	fset.BoolVar(&c.all, "all", false, "cancel all resting orders")
	return fset, cli.CmdFunc(c.run)
}

func (c *Cancel) Synopsis() string {
	return "Cancels one or all resting orders"
}

func (c *Cancel) run(ctx context.Context, args []string) error {
	if c.all && len(args) != 0 {
		return fmt.Errorf("-all takes no arguments")
	}
	if !c.all && len(args) != 1 {
		return fmt.Errorf("command takes one (order-id) argument")
	}

	client, err := newAuthenticatedClient(&c.SecretsFlags)
	if err != nil {
		return err
	}
	defer client.Close()

	var resp *clob.CancelResponse
	if c.all {
		resp, err = client.CancelAll(ctx)
	} else {
		resp, err = client.CancelOrder(ctx, args[0])
	}
	if err != nil {
		return err
	}

	for _, id := range resp.Canceled {
		fmt.Printf("canceled: %s\n", id)
	}
	for id, reason := range resp.NotCanceled {
		fmt.Printf("not canceled: %s: %s\n", id, reason)
	}
	return nil
}
