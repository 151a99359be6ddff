// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ava-labs/ledgerdb/finality"
	"github.com/ava-labs/ledgerdb/reconcile"
	"github.com/ava-labs/ledgerdb/statedb"
	"github.com/ava-labs/ledgerdb/statedb/pruner"
	"github.com/ava-labs/ledgerdb/types"
)

const (
	finalizedHeightKey = "finalized-height"
	keyKey             = "key"
	versionKey         = "version"
)

type inspection struct {
	LatestVersion      uint64                          `json:"latestVersion"`
	LatestLedgerInfo   *types.LedgerInfoWithSignatures `json:"latestLedgerInfo,omitempty"`
	RootDigest         string                          `json:"rootDigest"`
	MinReadableVersion map[string]uint64               `json:"minReadableVersion"`
	Key                string                          `json:"key,omitempty"`
	Value              string                          `json:"value,omitempty"`
	Decoded            any                             `json:"decoded,omitempty"`
}

func inspectCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "inspect",
		Short: "Prints the latest state of a store and, optionally, the value of one key",
		Args:  cobra.NoArgs,
		RunE:  inspectFunc,
	}
	flags := c.Flags()
	flags.Uint64(finalizedHeightKey, 0, "If set, report the store as of this finalized block height")
	flags.String(keyKey, "", "Hex encoded state key to read")
	flags.Uint64(versionKey, 0, "Version to read the key at. Defaults to the latest version")
	return c
}

func inspectFunc(c *cobra.Command, _ []string) error {
	a, err := newApp(c.Flags())
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := a.openStore("a", a.config.DB)
	if err != nil {
		return err
	}
	defer a.closeStores(store)

	var reader statedb.Reader = store
	if c.Flags().Changed(finalizedHeightKey) {
		height, err := c.Flags().GetUint64(finalizedHeightKey)
		if err != nil {
			return err
		}
		view := finality.NewView(store)
		if err := view.SetFinalizedBlockHeight(height); err != nil {
			return err
		}
		reader = view
	}

	latest, err := reader.GetLatestVersion()
	if err != nil {
		return err
	}
	root, err := reader.RootDigest(latest)
	if err != nil {
		return err
	}
	result := inspection{
		LatestVersion: latest,
		RootDigest:    root.String(),
		MinReadableVersion: map[string]uint64{
			pruner.LedgerDomain.String():        reader.MinReadableVersionFor(pruner.LedgerDomain),
			pruner.StateMerkleDomain.String():   reader.MinReadableVersionFor(pruner.StateMerkleDomain),
			pruner.EpochSnapshotDomain.String(): reader.MinReadableVersionFor(pruner.EpochSnapshotDomain),
		},
	}
	if li, err := reader.GetLatestLedgerInfo(); err == nil {
		result.LatestLedgerInfo = li
	}

	if rawKey, _ := c.Flags().GetString(keyKey); rawKey != "" {
		version := latest
		if c.Flags().Changed(versionKey) {
			version, err = c.Flags().GetUint64(versionKey)
			if err != nil {
				return err
			}
		}
		if err := inspectKey(reader, rawKey, version, &result); err != nil {
			return err
		}
	}

	b, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(b))
	return nil
}

func inspectKey(reader statedb.Reader, rawKey string, version uint64, result *inspection) error {
	b, err := hex.DecodeString(strings.TrimPrefix(rawKey, "0x"))
	if err != nil {
		return fmt.Errorf("couldn't decode key: %w", err)
	}
	key, err := types.ParseStateKey(b)
	if err != nil {
		return err
	}
	value, err := reader.Get(key, version)
	if err != nil {
		return err
	}

	result.Key = key.String()
	if value.IsNothing() {
		return nil
	}
	result.Value = "0x" + hex.EncodeToString(value.Value())

	switch shape := reconcile.Classify(key); shape {
	case reconcile.AccountShape:
		result.Decoded, err = reconcile.ParseAccount(value.Value())
	case reconcile.CoinStoreShape:
		result.Decoded, err = reconcile.ParseCoinStore(value.Value())
	case reconcile.FungibleStoreShape:
		result.Decoded, err = reconcile.ParseFungibleStore(value.Value())
	}
	return err
}
