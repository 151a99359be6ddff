// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/ava-labs/ledgerdb/database/factory"
	"github.com/ava-labs/ledgerdb/reconcile"
	"github.com/ava-labs/ledgerdb/statedb"
	"github.com/ava-labs/ledgerdb/statedb/pruner"
	"github.com/ava-labs/ledgerdb/trace"
	"github.com/ava-labs/ledgerdb/utils/logging"
)

var (
	errUnknownLogFormat = errors.New("unknown log format")
	errMissingDBPath    = errors.New("database path must be set")
)

type Config struct {
	DB        factory.DatabaseConfig `json:"db"`
	OtherDB   factory.DatabaseConfig `json:"otherDB"`
	Store     statedb.Config         `json:"store"`
	Log       logging.Config         `json:"log"`
	Trace     trace.Config           `json:"trace"`
	Reconcile reconcile.Mode         `json:"reconcileMode"`
}

func (c Config) Verify() error {
	if c.DB.Path == "" {
		return errMissingDBPath
	}
	if err := c.Store.Verify(); err != nil {
		return fmt.Errorf("invalid store config: %w", err)
	}
	if err := c.Log.Verify(); err != nil {
		return fmt.Errorf("invalid log config: %w", err)
	}
	return nil
}

// GetConfig reads a Config out of [v] and verifies it.
func GetConfig(v *viper.Viper) (Config, error) {
	logConfig, err := getLogConfig(v)
	if err != nil {
		return Config{}, err
	}
	mode, err := reconcile.ModeFromString(v.GetString(ReconcileModeKey))
	if err != nil {
		return Config{}, err
	}

	config := Config{
		DB: factory.DatabaseConfig{
			Name:           v.GetString(DBTypeKey),
			Path:           getExpandedPath(v, DBPathKey),
			DisableMetrics: !v.GetBool(DBMetricsEnabledKey),
		},
		OtherDB: factory.DatabaseConfig{
			Name:           v.GetString(DBTypeKey),
			Path:           getExpandedPath(v, DBOtherPathKey),
			DisableMetrics: !v.GetBool(DBMetricsEnabledKey),
		},
		Store: statedb.Config{
			BufferedStateTargetItems: v.GetInt(BufferedStateTargetItemsKey),
			NodeCacheSize:            v.GetInt(NodeCacheSizeKey),
			MetricsNamespace:         v.GetString(MetricsNamespaceKey),
			Pruner: pruner.ManagerConfig{
				Ledger: pruner.Config{
					Enable:      v.GetBool(LedgerPrunerEnabledKey),
					PruneWindow: v.GetUint64(LedgerPruneWindowKey),
					BatchSize:   v.GetUint64(LedgerPrunerBatchSizeKey),
				},
				StateMerkle: pruner.Config{
					Enable:      v.GetBool(StateMerklePrunerEnabledKey),
					PruneWindow: v.GetUint64(StateMerklePruneWindowKey),
					BatchSize:   v.GetUint64(StateMerklePrunerBatchSizeKey),
				},
				EpochSnapshot: pruner.Config{
					Enable:      v.GetBool(EpochSnapshotPrunerEnabledKey),
					PruneWindow: v.GetUint64(EpochSnapshotPruneWindowKey),
					BatchSize:   v.GetUint64(EpochSnapshotPrunerBatchSizeKey),
				},
			},
		},
		Log: logConfig,
		Trace: trace.Config{
			Enabled: v.GetBool(TracingEnabledKey),
		},
		Reconcile: mode,
	}
	return config, config.Verify()
}

func getLogConfig(v *viper.Viper) (logging.Config, error) {
	config := logging.DefaultConfig()

	level, err := logging.ToLevel(v.GetString(LogLevelKey))
	if err != nil {
		return logging.Config{}, err
	}
	config.LogLevel = level

	config.DisplayLevel = level
	if v.IsSet(LogDisplayLevelKey) {
		displayLevel, err := logging.ToLevel(v.GetString(LogDisplayLevelKey))
		if err != nil {
			return logging.Config{}, err
		}
		config.DisplayLevel = displayLevel
	}

	switch format := v.GetString(LogFormatKey); format {
	case "plain", "":
		config.JSONFormat = false
	case "json":
		config.JSONFormat = true
	default:
		return logging.Config{}, fmt.Errorf("%w: %q", errUnknownLogFormat, format)
	}

	config.DisableFile = !v.GetBool(LogFileEnabledKey)
	config.Directory = getExpandedPath(v, LogsDirKey)
	config.MaxSize = v.GetInt(LogRotaterMaxSizeKey)
	config.MaxFiles = v.GetInt(LogRotaterMaxFilesKey)
	config.MaxAge = v.GetInt(LogRotaterMaxAgeKey)
	config.Compress = v.GetBool(LogRotaterCompressEnabledKey)
	config.LoggerName = appName
	return config, nil
}

func getExpandedPath(v *viper.Viper, key string) string {
	path := v.GetString(key)
	if path == "" {
		return ""
	}
	return filepath.Clean(os.ExpandEnv(path))
}
