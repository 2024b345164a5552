// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/bvk/polytrade/api"
	"github.com/bvk/polytrade/cli"
	"github.com/bvk/polytrade/subcmds/cmdutil"
)

type Status struct {
	cmdutil.ClientFlags
}

func (c *Status) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("status", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return fset, cli.CmdFunc(c.run)
}

func (c *Status) Synopsis() string {
	return "Prints the daemon's runtime status"
}

func (c *Status) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}
	req := new(api.StatusRequest)
	resp, err := cmdutil.Post[api.StatusResponse](ctx, &c.ClientFlags, api.StatusPath, req)
	if err != nil {
		return err
	}
	fmt.Printf("Pid: %d\n", resp.Pid)
	fmt.Printf("Start time: %s (up %s)\n", resp.StartTime.Format(time.RFC3339), time.Since(resp.StartTime).Truncate(time.Second))
	fmt.Printf("Feed state: %s\n", resp.FeedState)
	fmt.Printf("Watched assets: %d\n", resp.NumWatched)
	fmt.Printf("Has credentials: %t\n", resp.HasCredentials)
	return nil
}
