// Copyright (c) 2025 BVK Chaitanya

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bvk/polytrade/cli"
	"github.com/bvk/polytrade/subcmds"
	"github.com/bvk/polytrade/subcmds/db"
	"github.com/bvk/polytrade/subcmds/order"
	"github.com/bvk/polytrade/subcmds/setup"
	"github.com/bvk/polytrade/subcmds/watch"
)

func main() {
	dbCmds := []cli.Command{
		new(db.Get),
		new(db.Set),
		new(db.Delete),
		new(db.List),
		new(db.Backup),
		new(db.Restore),
	}

	setupCmds := []cli.Command{
		new(setup.Key),
		new(setup.APIKey),
	}

	orderCmds := []cli.Command{
		new(order.Place),
		new(order.Cancel),
		new(order.Get),
		new(order.List),
		new(order.Book),
	}

	watchCmds := []cli.Command{
		new(watch.Add),
		new(watch.Remove),
		new(watch.List),
		new(watch.Prices),
	}

	cmds := []cli.Command{
		new(subcmds.Run),
		new(subcmds.Status),
		new(subcmds.Balance),
		new(subcmds.Approve),
		cli.CommandGroup("setup", setupCmds...),
		cli.CommandGroup("order", orderCmds...),
		cli.CommandGroup("watch", watchCmds...),
		cli.CommandGroup("db", dbCmds...),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Run(ctx, cmds, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
