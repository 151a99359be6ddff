// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/ledgerdb/database/memdb"
	"github.com/ava-labs/ledgerdb/reconcile"
	"github.com/ava-labs/ledgerdb/statedb"
	"github.com/ava-labs/ledgerdb/statedb/pruner"
	"github.com/ava-labs/ledgerdb/utils/logging"
)

func parse(t *testing.T, args ...string) (Config, error) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(fs)
	require.NoError(t, fs.Parse(args))

	v, err := BuildViper(fs)
	require.NoError(t, err)
	return GetConfig(v)
}

func TestDefaults(t *testing.T) {
	require := require.New(t)

	config, err := parse(t)
	require.NoError(err)
	require.Equal(statedb.DefaultConfig(), config.Store)
	require.Equal(defaultDBDir, config.DB.Path)
	require.Empty(config.OtherDB.Path)
	require.False(config.DB.DisableMetrics)
	require.Equal(reconcile.StopOnStructural, config.Reconcile)
	require.Equal(logging.Info, config.Log.LogLevel)
	require.Equal(logging.Info, config.Log.DisplayLevel)
	require.True(config.Log.DisableFile)
	require.False(config.Trace.Enabled)
}

func TestFlags(t *testing.T) {
	require := require.New(t)

	config, err := parse(t,
		"--"+DBTypeKey+"="+memdb.Name,
		"--"+DBPathKey+"=/tmp/a",
		"--"+DBOtherPathKey+"=/tmp/b",
		"--"+LedgerPruneWindowKey+"=10",
		"--"+StateMerklePrunerEnabledKey+"=false",
		"--"+LogLevelKey+"=debug",
		"--"+LogDisplayLevelKey+"=warn",
		"--"+LogFormatKey+"=json",
		"--"+ReconcileModeKey+"=full-report",
		"--"+TracingEnabledKey,
	)
	require.NoError(err)
	require.Equal(memdb.Name, config.DB.Name)
	require.Equal(memdb.Name, config.OtherDB.Name)
	require.Equal("/tmp/a", config.DB.Path)
	require.Equal("/tmp/b", config.OtherDB.Path)
	require.Equal(uint64(10), config.Store.Pruner.Ledger.PruneWindow)
	require.False(config.Store.Pruner.StateMerkle.Enable)
	require.Equal(logging.Debug, config.Log.LogLevel)
	require.Equal(logging.Warn, config.Log.DisplayLevel)
	require.True(config.Log.JSONFormat)
	require.Equal(reconcile.FullReport, config.Reconcile)
	require.True(config.Trace.Enabled)
}

func TestConfigFile(t *testing.T) {
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(os.WriteFile(path, []byte(`{
		"db-path": "/tmp/from-file",
		"node-cache-size": 7,
		"reconcile-mode": "fail-fast"
	}`), 0o600))

	config, err := parse(t,
		"--"+ConfigFileKey+"="+path,
		"--"+NodeCacheSizeKey+"=9",
	)
	require.NoError(err)
	require.Equal("/tmp/from-file", config.DB.Path)
	require.Equal(9, config.Store.NodeCacheSize)
	require.Equal(reconcile.FailFast, config.Reconcile)
}

func TestInvalidConfig(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		expectedErr error
	}{
		{
			name:        "unknown log format",
			args:        []string{"--" + LogFormatKey + "=xml"},
			expectedErr: errUnknownLogFormat,
		},
		{
			name:        "empty db path",
			args:        []string{"--" + DBPathKey + "="},
			expectedErr: errMissingDBPath,
		},
		{
			name:        "epoch window below state merkle window",
			args:        []string{"--" + EpochSnapshotPruneWindowKey + "=1"},
			expectedErr: pruner.ErrWindowTooSmall,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := parse(t, test.args...)
			require.ErrorIs(t, err, test.expectedErr)
		})
	}
}
