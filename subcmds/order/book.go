// Copyright (c) 2025 BVK Chaitanya

package order

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bvk/polytrade/cli"
	"github.com/bvk/polytrade/clob"
)

type Book struct {
	depth int
}

func (c *Book) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("book", flag.ContinueOnError)
	fset.IntVar(&c.depth, "depth", 10, "number of levels to print per side")
	return fset, cli.CmdFunc(c.run)
}

func (c *Book) Synopsis() string {
	return "Prints the order book for an outcome token"
}

func (c *Book) run(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("command takes one (token-id) argument")
	}

	// The book endpoint is public; no account or credentials are needed.
	client, err := clob.New(common.Address{}, nil, nil)
	if err != nil {
		return err
	}
	defer client.Close()

	book, err := client.GetOrderBook(ctx, args[0])
	if err != nil {
		return err
	}

	limit := func(levels []clob.PriceLevel) []clob.PriceLevel {
		if len(levels) > c.depth {
			return levels[:c.depth]
		}
		return levels
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 1, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Side\tPrice\tSize\t\n")
	for _, l := range limit(book.Asks) {
		fmt.Fprintf(tw, "ask\t%s\t%s\t\n", l.Price, l.Size)
	}
	for _, l := range limit(book.Bids) {
		fmt.Fprintf(tw, "bid\t%s\t%s\t\n", l.Price, l.Size)
	}
	return tw.Flush()
}
