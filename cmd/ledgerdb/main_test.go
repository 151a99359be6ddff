// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/ledgerdb/config"
	"github.com/ava-labs/ledgerdb/database/memdb"
	"github.com/ava-labs/ledgerdb/reconcile"
	"github.com/ava-labs/ledgerdb/statedb"
)

func execute(args ...string) error {
	cmd := newRootCommand()
	cmd.SetArgs(append(args,
		"--"+config.DBTypeKey+"="+memdb.Name,
		"--"+config.DBPathKey+"=a",
	))
	return cmd.ExecuteContext(context.Background())
}

func TestCommandsRequireOtherStore(t *testing.T) {
	for _, name := range []string{"compare", "satisfies"} {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, execute(name), errMissingOtherDBPath)
		})
	}
}

func TestEmptyStores(t *testing.T) {
	require := require.New(t)

	err := execute("satisfies", "--"+config.DBOtherPathKey+"=b")
	require.ErrorIs(err, reconcile.ErrInternal)
	require.ErrorIs(err, statedb.ErrNotFound)

	require.ErrorIs(execute("inspect"), statedb.ErrNotFound)
}

func TestCompareStatesArgs(t *testing.T) {
	err := execute("compare-states", "tx,1", "tx,1,2", "--"+config.DBOtherPathKey+"=b")
	require.ErrorContains(t, err, "malformed transaction line")
}

func TestCompareBalancesEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "txs.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	require.NoError(t, execute("compare-balances", path, "--"+config.DBOtherPathKey+"=b"))
}
