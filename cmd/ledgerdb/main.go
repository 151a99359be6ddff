// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ava-labs/ledgerdb/config"
	"github.com/ava-labs/ledgerdb/reconcile"
)

const (
	exitCodeError      = 1
	exitCodeDivergence = 2
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ledgerdb",
		Short:         "Inspects versioned ledger stores and reconciles their states",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.AddFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(
		compareCommand(),
		satisfiesCommand(),
		compareStatesCommand(),
		compareBalancesCommand(),
		inspectCommand(),
	)
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	fmt.Fprintf(os.Stderr, "ledgerdb: %s\n", err)
	if errors.Is(err, reconcile.ErrUnsatisfied) {
		os.Exit(exitCodeDivergence)
	}
	os.Exit(exitCodeError)
}
