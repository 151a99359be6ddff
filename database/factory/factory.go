// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package factory

import (
	"encoding/json"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ava-labs/ledgerdb/database"
	"github.com/ava-labs/ledgerdb/database/corruptabledb"
	"github.com/ava-labs/ledgerdb/database/leveldb"
	"github.com/ava-labs/ledgerdb/database/memdb"
	"github.com/ava-labs/ledgerdb/database/meterdb"
	"github.com/ava-labs/ledgerdb/database/pebble"
	"github.com/ava-labs/ledgerdb/utils/logging"
)

type DatabaseConfig struct {
	// Path to database
	Path string `json:"path"`

	// Name of the database type to use
	Name string `json:"name"`

	// Backend specific options, decoded into the backend's Config on top of
	// its defaults.
	Config []byte `json:"-"`

	// If true, the database is not wrapped with meterdb.
	DisableMetrics bool `json:"disableMetrics"`
}

// NewDatabase opens the backend named by [dbConfig], wraps it with a
// corruptable DB and, unless disabled, a meter DB registered on [reg] under
// [metricsPrefix].
func NewDatabase(
	dbConfig DatabaseConfig,
	reg prometheus.Registerer,
	log logging.Logger,
	metricsPrefix string,
) (database.Database, error) {
	var (
		db  database.Database
		err error
	)
	switch dbConfig.Name {
	case leveldb.Name:
		cfg := leveldb.DefaultConfig
		if err := parseConfig(dbConfig.Config, &cfg); err != nil {
			return nil, err
		}
		db, err = leveldb.New(dbConfig.Path, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("couldn't create %s at %s: %w", leveldb.Name, dbConfig.Path, err)
		}
	case memdb.Name:
		db = memdb.New()
	case pebble.Name:
		cfg := pebble.DefaultConfig
		if err := parseConfig(dbConfig.Config, &cfg); err != nil {
			return nil, err
		}
		db, err = pebble.New(dbConfig.Path, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("couldn't create %s at %s: %w", pebble.Name, dbConfig.Path, err)
		}
	default:
		return nil, fmt.Errorf(
			"db-type was %q but should have been one of {%s, %s, %s}",
			dbConfig.Name,
			leveldb.Name,
			memdb.Name,
			pebble.Name,
		)
	}

	db = corruptabledb.New(db)

	if dbConfig.DisableMetrics || reg == nil {
		return db, nil
	}

	meterDB, err := meterdb.New(prometheus.WrapRegistererWithPrefix(metricsPrefix, reg), db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create meterdb: %w", err)
	}

	log.Info("opened database",
		zap.String("type", dbConfig.Name),
		zap.String("path", dbConfig.Path),
	)
	return meterDB, nil
}

func parseConfig(b []byte, cfg interface{}) error {
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("failed to parse db config: %w", err)
	}
	return nil
}
