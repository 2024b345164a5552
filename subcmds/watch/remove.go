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

type Remove struct {
	cmdutil.ClientFlags
}

func (c *Remove) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("remove", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return fset, cli.CmdFunc(c.run)
}

func (c *Remove) Synopsis() string {
	return "Removes assets from the daemon's watch list"
}

func (c *Remove) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("needs one or more asset-id arguments")
	}
	req := &api.WatchRequest{Remove: args}
	resp, err := cmdutil.Post[api.WatchResponse](ctx, &c.ClientFlags, api.WatchPath, req)
	if err != nil {
		return err
	}
	for _, id := range resp.AssetIDs {
		fmt.Println(id)
	}
	return nil
}
