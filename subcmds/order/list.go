// Copyright (c) 2025 BVK Chaitanya

package order

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/bvk/polytrade/cli"
	"github.com/bvk/polytrade/clob"
	"github.com/bvk/polytrade/gobs"
	"github.com/bvk/polytrade/subcmds/cmdutil"
)

type List struct {
	cmdutil.DBFlags

	status string
}

func (c *List) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("list", flag.ContinueOnError)
	c.DBFlags.SetFlags(fset)
	fset.StringVar(&c.status, "status", "", "only list orders with this status")
	return fset, cli.CmdFunc(c.run)
}

func (c *List) Synopsis() string {
	return "Lists orders recorded in the database"
}

func (c *List) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}

	db, closer, err := c.DBFlags.GetDatabase(ctx)
	if err != nil {
		return err
	}
	defer closer()

	datastore := clob.NewDatastore(db)

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 1, ' ', 0)
	fmt.Fprintf(tw, "OrderID\tToken\tSide\tPrice\tSize\tType\tStatus\tCreated\t\n")
	print := func(p *gobs.PlacedOrder) error {
		if len(c.status) != 0 && !strings.EqualFold(p.Status, c.status) {
			return nil
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			p.ServerOrderID, p.TokenID, p.Side, p.Price.String(), p.Size.String(),
			p.OrderType, p.Status, p.CreateTime.Format("2006-01-02 15:04:05"))
		return nil
	}
	if err := datastore.ScanOrders(ctx, print); err != nil {
		return err
	}
	return tw.Flush()
}
