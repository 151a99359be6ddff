// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ava-labs/ledgerdb/database/leveldb"
	"github.com/ava-labs/ledgerdb/database/memdb"
	"github.com/ava-labs/ledgerdb/database/pebble"
	"github.com/ava-labs/ledgerdb/reconcile"
	"github.com/ava-labs/ledgerdb/statedb"
	"github.com/ava-labs/ledgerdb/utils/logging"
)

const appName = "ledgerdb"

var (
	defaultDataDir = filepath.Join(os.ExpandEnv("$HOME"), "."+appName)
	defaultDBDir   = filepath.Join(defaultDataDir, "db")
	defaultLogDir  = filepath.Join(defaultDataDir, "logs")
)

// AddFlags registers every configuration flag on [fs] with its default.
func AddFlags(fs *pflag.FlagSet) {
	storeDefaults := statedb.DefaultConfig()
	logDefaults := logging.DefaultConfig()

	fs.String(ConfigFileKey, "", fmt.Sprintf("Specifies a config file. Flags override values read from it. Ignored if %s is not set", ConfigFileKey))

	// Database
	fs.String(DBTypeKey, leveldb.Name, fmt.Sprintf("Database type to use. Must be one of {%s, %s, %s}", leveldb.Name, memdb.Name, pebble.Name))
	fs.String(DBPathKey, defaultDBDir, "Path to the database directory")
	fs.String(DBOtherPathKey, "", "Path to the database directory of the store to reconcile against")
	fs.Bool(DBMetricsEnabledKey, true, "If true, database calls are metered")

	// Store
	fs.Int(BufferedStateTargetItemsKey, storeDefaults.BufferedStateTargetItems, "Number of changed keys after which buffered tree updates are flushed")
	fs.Int(NodeCacheSizeKey, storeDefaults.NodeCacheSize, "Number of decoded tree nodes to cache")
	fs.String(MetricsNamespaceKey, storeDefaults.MetricsNamespace, "Namespace of the store's metrics")

	// Pruners
	pruners := storeDefaults.Pruner
	fs.Bool(LedgerPrunerEnabledKey, pruners.Ledger.Enable, "If true, write sets and ledger infos older than the ledger prune window are deleted")
	fs.Uint64(LedgerPruneWindowKey, pruners.Ledger.PruneWindow, "Number of versions of ledger history to keep")
	fs.Uint64(LedgerPrunerBatchSizeKey, pruners.Ledger.BatchSize, "Most versions the ledger pruner deletes per batch")
	fs.Bool(StateMerklePrunerEnabledKey, pruners.StateMerkle.Enable, "If true, stale state tree nodes older than the state merkle prune window are deleted")
	fs.Uint64(StateMerklePruneWindowKey, pruners.StateMerkle.PruneWindow, "Number of versions of state tree history to keep")
	fs.Uint64(StateMerklePrunerBatchSizeKey, pruners.StateMerkle.BatchSize, "Most versions the state merkle pruner deletes per batch")
	fs.Bool(EpochSnapshotPrunerEnabledKey, pruners.EpochSnapshot.Enable, "If true, epoch ending state trees older than the epoch snapshot prune window are deleted")
	fs.Uint64(EpochSnapshotPruneWindowKey, pruners.EpochSnapshot.PruneWindow, "Number of versions of epoch ending state trees to keep")
	fs.Uint64(EpochSnapshotPrunerBatchSizeKey, pruners.EpochSnapshot.BatchSize, "Most versions the epoch snapshot pruner deletes per batch")

	// Logging
	fs.String(LogsDirKey, defaultLogDir, "Logging directory")
	fs.String(LogLevelKey, logDefaults.LogLevel.String(), "The log level. Should be one of {verbo, debug, trace, info, warn, error, fatal, off}")
	fs.String(LogDisplayLevelKey, "", "The log display level. If left blank, will inherit the value of log-level. Otherwise, should be one of {verbo, debug, trace, info, warn, error, fatal, off}")
	fs.String(LogFormatKey, "plain", "The structure of log format. Should be one of {plain, json}")
	fs.Bool(LogFileEnabledKey, !logDefaults.DisableFile, "If true, logs are also written to rotated files in the logging directory")
	fs.Int(LogRotaterMaxSizeKey, logDefaults.MaxSize, "The maximum file size in megabytes of the log file before it gets rotated")
	fs.Int(LogRotaterMaxFilesKey, logDefaults.MaxFiles, "The maximum number of old log files to retain. 0 means retain all old log files")
	fs.Int(LogRotaterMaxAgeKey, logDefaults.MaxAge, "The maximum number of days to retain old log files based on the timestamp encoded in their filename. 0 means retain all old log files")
	fs.Bool(LogRotaterCompressEnabledKey, logDefaults.Compress, "Enables the compression of rotated log files through gzip")

	// Tracing
	fs.Bool(TracingEnabledKey, false, "If true, spans are exported through the globally registered OpenTelemetry provider")

	// Reconciliation
	fs.String(ReconcileModeKey, reconcile.StopOnStructural.String(), fmt.Sprintf(
		"When a reconciliation walk stops. Should be one of {%s, %s, %s}",
		reconcile.StopOnStructural,
		reconcile.FailFast,
		reconcile.FullReport,
	))
}

// BuildViper returns a viper instance bound to the flags of [fs]. If the
// config file flag is set, values are first read from that file.
func BuildViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	if v.IsSet(ConfigFileKey) {
		v.SetConfigFile(os.ExpandEnv(v.GetString(ConfigFileKey)))
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("couldn't read config file: %w", err)
		}
	}
	return v, nil
}
