// Copyright (c) 2025 BVK Chaitanya

// Package watch implements commands for managing the daemon's market data
// subscriptions.
package watch

import (
	"context"
	"flag"
	"fmt"

	"github.com/bvk/polytrade/api"
	"github.com/bvk/polytrade/cli"
	"github.com/bvk/polytrade/subcmds/cmdutil"
)

type Add struct {
	cmdutil.ClientFlags
}

func (c *Add) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("add", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return fset, cli.CmdFunc(c.run)
}

func (c *Add) Synopsis() string {
	return "Adds assets to the daemon's watch list"
}

func (c *Add) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("needs one or more asset-id arguments")
	}
	req := &api.WatchRequest{Add: args}
	resp, err := cmdutil.Post[api.WatchResponse](ctx, &c.ClientFlags, api.WatchPath, req)
	if err != nil {
		return err
	}
	for _, id := range resp.AssetIDs {
		fmt.Println(id)
	}
	return nil
}
