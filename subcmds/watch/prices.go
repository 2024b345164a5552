// Copyright (c) 2025 BVK Chaitanya

package watch

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/bvk/polytrade/api"
	"github.com/bvk/polytrade/cli"
	"github.com/bvk/polytrade/subcmds/cmdutil"
)

type Prices struct {
	cmdutil.ClientFlags
}

func (c *Prices) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("prices", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return fset, cli.CmdFunc(c.run)
}

func (c *Prices) Synopsis() string {
	return "Prints the latest prices for watched assets"
}

func (c *Prices) run(ctx context.Context, args []string) error {
	req := &api.PricesRequest{AssetIDs: args}
	resp, err := cmdutil.Post[api.PricesResponse](ctx, &c.ClientFlags, api.PricesPath, req)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 1, ' ', 0)
	fmt.Fprintf(tw, "Asset\tPrice\tAt\t\n")
	for _, p := range resp.Prices {
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", p.AssetID, p.Price.String(), p.At.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}
