// Copyright (c) 2025 BVK Chaitanya

package order

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bvk/polytrade/cli"
	"github.com/bvk/polytrade/clob"
	"github.com/bvk/polytrade/subcmds/cmdutil"
)

type Place struct {
	cmdutil.DBFlags
	cmdutil.SecretsFlags

	side      string
	price     float64
	size      float64
	tickSize  string
	negRisk   bool
	orderType string

	expiration time.Duration
	feeRateBps int64
}

func (c *Place) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("place", flag.ContinueOnError)
	c.DBFlags.SetFlags(fset)
	c.SecretsFlags.SetFlags(fset)
	fset.StringVar(&c.side, "side", "", "order side: buy or sell")
	fset.Float64Var(&c.price, "price", 0, "limit price between 0 and 1")
	fset.Float64Var(&c.size, "size", 0, "order size in outcome tokens")
	fset.StringVar(&c.tickSize, "tick-size", "", "market tick size (fetched from the venue when empty)")
	fset.BoolVar(&c.negRisk, "neg-risk", false, "true for negative-risk markets")
	fset.StringVar(&c.orderType, "type", "GTC", "order type: GTC, GTD or FOK")
	fset.DurationVar(&c.expiration, "expiration", 0, "time until a GTD order expires")
	fset.Int64Var(&c.feeRateBps, "fee-rate-bps", 0, "fee rate in basis points")
	return fset, cli.CmdFunc(c.run)
}

func (c *Place) Synopsis() string {
	return "Signs and places a limit order for an outcome token"
}

func (c *Place) CommandHelp() string {
	return `

Command "place" builds a limit order for the given outcome token, signs it
with the account key and submits it to the venue. The signed order and the
placement result are recorded in the database keyed by the order salt.

`
}

func (c *Place) run(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("command takes one (token-id) argument")
	}
	tokenID := args[0]

	var side clob.Side
	switch strings.ToUpper(c.side) {
	case "BUY":
		side = clob.SideBuy
	case "SELL":
		side = clob.SideSell
	default:
		return fmt.Errorf("side must be buy or sell")
	}

	var typ clob.OrderType
	switch strings.ToUpper(c.orderType) {
	case "GTC":
		typ = clob.OrderTypeGTC
	case "GTD":
		typ = clob.OrderTypeGTD
	case "FOK":
		typ = clob.OrderTypeFOK
	default:
		return fmt.Errorf("invalid order type %q", c.orderType)
	}
	if typ == clob.OrderTypeGTD && c.expiration <= 0 {
		return fmt.Errorf("GTD orders need a positive -expiration")
	}

	secrets, err := c.SecretsFlags.Load()
	if err != nil {
		return err
	}
	if !secrets.HasCredentials() {
		return fmt.Errorf("no api credentials in secrets file; run setup api-key first")
	}
	signer, err := c.SecretsFlags.Signer(secrets)
	if err != nil {
		return err
	}

	client, err := clob.New(signer.Address(), &secrets.Polymarket.Credentials, nil)
	if err != nil {
		return err
	}
	defer client.Close()

	tickSize := c.tickSize
	if len(tickSize) == 0 {
		v, err := client.GetTickSize(ctx, tokenID)
		if err != nil {
			return fmt.Errorf("could not fetch tick size: %w", err)
		}
		tickSize = v
	}

	uo := &clob.UserOrder{
		TokenID:    tokenID,
		Side:       side,
		Price:      decimal.NewFromFloat(c.price),
		Size:       decimal.NewFromFloat(c.size),
		TickSize:   tickSize,
		NegRisk:    c.negRisk,
		FeeRateBps: c.feeRateBps,
	}
	if typ == clob.OrderTypeGTD {
		uo.Expiration = time.Now().Add(c.expiration).Unix()
	}

	builder := clob.NewBuilder(signer.Address())
	order, data, err := builder.Build(uo)
	if err != nil {
		return err
	}
	if err := clob.Sign(ctx, signer, order, data, 30*time.Second); err != nil {
		return err
	}

	resp, err := client.PostOrder(ctx, order, typ)

	db, closer, derr := c.DBFlags.GetDatabase(ctx)
	if derr == nil {
		defer closer()
		datastore := clob.NewDatastore(db)
		if serr := datastore.SaveOrder(ctx, order, uo, typ, resp); serr != nil {
			fmt.Printf("warning: could not record order in the database: %v\n", serr)
		}
	}
	if err != nil {
		return err
	}

	fmt.Printf("order id: %s\n", resp.OrderID)
	fmt.Printf("status: %s\n", resp.Status)
	fmt.Printf("salt: %s\n", order.Salt)
	return nil
}
