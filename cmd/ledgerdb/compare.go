// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ava-labs/ledgerdb/reconcile"
	"github.com/ava-labs/ledgerdb/statedb"
)

const (
	versionAKey = "version-a"
	versionBKey = "version-b"
)

func compareCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "compare",
		Short: "Lists every divergence between the two stores at the given versions",
		Args:  cobra.NoArgs,
		RunE:  compareFunc,
	}
	flags := c.Flags()
	flags.Uint64(versionAKey, 0, "Version of the first store. Defaults to its latest version")
	flags.Uint64(versionBKey, 0, "Version of the second store. Defaults to its latest version")
	return c
}

func compareFunc(c *cobra.Command, _ []string) error {
	a, err := newApp(c.Flags())
	if err != nil {
		return err
	}
	defer a.Close()

	storeA, storeB, err := a.openPair()
	if err != nil {
		return err
	}
	defer a.closeStores(storeA, storeB)

	versionA, err := versionFlag(c, versionAKey, storeA)
	if err != nil {
		return err
	}
	versionB, err := versionFlag(c, versionBKey, storeB)
	if err != nil {
		return err
	}

	divergences, err := a.reconciler().Compare(c.Context(), storeA, versionA, storeB, versionB)
	if err != nil {
		return err
	}
	printDivergences(os.Stdout, divergences)
	first, ok := divergences.First()
	if !ok {
		return nil
	}
	return &reconcile.UnsatisfiedError{
		First: first,
		Count: divergences.Len(),
	}
}

func satisfiesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "satisfies",
		Short: "Checks that the two stores hold the same state at their latest versions",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			a, err := newApp(c.Flags())
			if err != nil {
				return err
			}
			defer a.Close()

			storeA, storeB, err := a.openPair()
			if err != nil {
				return err
			}
			defer a.closeStores(storeA, storeB)

			if err := a.reconciler().Satisfies(c.Context(), storeA, storeB); err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, "stores hold the same state")
			return nil
		},
	}
}

func compareStatesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "compare-states <hash,versionA,versionB> <hash,versionA,versionB>",
		Short: "Lists the divergences after the second transaction that already existed after the first",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			first, err := reconcile.ParseTxVersions(args[0])
			if err != nil {
				return err
			}
			second, err := reconcile.ParseTxVersions(args[1])
			if err != nil {
				return err
			}

			a, err := newApp(c.Flags())
			if err != nil {
				return err
			}
			defer a.Close()

			storeA, storeB, err := a.openPair()
			if err != nil {
				return err
			}
			defer a.closeStores(storeA, storeB)

			divergences, err := a.reconciler().CompareVersionPairs(c.Context(), storeA, storeB, first, second)
			if err != nil {
				return err
			}
			printDivergences(os.Stdout, divergences)
			return nil
		},
	}
}

func compareBalancesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "compare-balances <path>",
		Short: "Compares the stores after every transaction listed in a file of hash,versionA,versionB lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			a, err := newApp(c.Flags())
			if err != nil {
				return err
			}
			defer a.Close()

			storeA, storeB, err := a.openPair()
			if err != nil {
				return err
			}
			defer a.closeStores(storeA, storeB)

			var numDiverged int
			err = a.reconciler().CompareFromReader(c.Context(), storeA, storeB, f, func(tx reconcile.TxVersions, divergences *reconcile.DivergenceSet) error {
				fmt.Fprintf(os.Stdout, "%s: %d divergence(s)\n", tx, divergences.Len())
				printDivergences(os.Stdout, divergences)
				if divergences.Len() > 0 {
					numDiverged++
				}
				return nil
			})
			if err != nil {
				return err
			}
			if numDiverged > 0 {
				return fmt.Errorf("%w after %d transaction(s)", reconcile.ErrUnsatisfied, numDiverged)
			}
			return nil
		},
	}
}

// versionFlag returns the version named by flag [key], or the latest version
// of [r] if the flag was not set.
func versionFlag(c *cobra.Command, key string, r statedb.Reader) (uint64, error) {
	if c.Flags().Changed(key) {
		return c.Flags().GetUint64(key)
	}
	return r.GetLatestVersion()
}

func printDivergences(w io.Writer, divergences *reconcile.DivergenceSet) {
	divergences.Ascend(func(d reconcile.Divergence) bool {
		fmt.Fprintf(w, "  %s\n", d)
		return true
	})
}
