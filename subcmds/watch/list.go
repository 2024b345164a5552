// Copyright (c) 2025 BVK Chaitanya

package watch

import (
	"context"
	"flag"
	"fmt"

	"github.com/bvk/polytrade/api"
	"github.com/bvk/polytrade/cli"
	"github.com/bvk/polytrade/subcmds/cmdutil"
)

type List struct {
	cmdutil.ClientFlags
}

func (c *List) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("list", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return fset, cli.CmdFunc(c.run)
}

func (c *List) Synopsis() string {
	return "Prints the daemon's watch list"
}

func (c *List) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}
	req := new(api.WatchRequest)
	resp, err := cmdutil.Post[api.WatchResponse](ctx, &c.ClientFlags, api.WatchPath, req)
	if err != nil {
		return err
	}
	for _, id := range resp.AssetIDs {
		fmt.Println(id)
	}
	return nil
}
