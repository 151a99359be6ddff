// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

const (
	ConfigFileKey = "config-file"

	DBTypeKey           = "db-type"
	DBPathKey           = "db-path"
	DBOtherPathKey      = "db-other-path"
	DBMetricsEnabledKey = "db-metrics-enabled"

	BufferedStateTargetItemsKey = "buffered-state-target-items"
	NodeCacheSizeKey            = "node-cache-size"
	MetricsNamespaceKey         = "metrics-namespace"

	LedgerPrunerEnabledKey          = "ledger-pruner-enabled"
	LedgerPruneWindowKey            = "ledger-prune-window"
	LedgerPrunerBatchSizeKey        = "ledger-pruner-batch-size"
	StateMerklePrunerEnabledKey     = "state-merkle-pruner-enabled"
	StateMerklePruneWindowKey       = "state-merkle-prune-window"
	StateMerklePrunerBatchSizeKey   = "state-merkle-pruner-batch-size"
	EpochSnapshotPrunerEnabledKey   = "epoch-snapshot-pruner-enabled"
	EpochSnapshotPruneWindowKey     = "epoch-snapshot-prune-window"
	EpochSnapshotPrunerBatchSizeKey = "epoch-snapshot-pruner-batch-size"

	LogsDirKey                   = "log-dir"
	LogLevelKey                  = "log-level"
	LogDisplayLevelKey           = "log-display-level"
	LogFormatKey                 = "log-format"
	LogFileEnabledKey            = "log-file-enabled"
	LogRotaterMaxSizeKey         = "log-rotater-max-size"
	LogRotaterMaxFilesKey        = "log-rotater-max-files"
	LogRotaterMaxAgeKey          = "log-rotater-max-age"
	LogRotaterCompressEnabledKey = "log-rotater-compress-enabled"

	TracingEnabledKey = "tracing-enabled"

	ReconcileModeKey = "reconcile-mode"
)
