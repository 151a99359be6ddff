// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package statedb

import (
	"errors"
	"fmt"

	"github.com/ava-labs/ledgerdb/statedb/pruner"
)

var (
	errInvalidBufferSize = errors.New("buffered state target items must be positive")
	errInvalidCacheSize  = errors.New("node cache size must be positive")
)

type Config struct {
	// BufferedStateTargetItems is the number of changed keys after which the
	// buffered tree updates are flushed to the database.
	BufferedStateTargetItems int `json:"bufferedStateTargetItems" mapstructure:"buffered-state-target-items"`
	// NodeCacheSize is the number of decoded tree nodes kept in memory.
	NodeCacheSize int `json:"nodeCacheSize" mapstructure:"node-cache-size"`
	// MetricsNamespace prefixes every metric the store registers.
	MetricsNamespace string `json:"metricsNamespace" mapstructure:"metrics-namespace"`

	Pruner pruner.ManagerConfig `json:"pruner" mapstructure:"pruner"`
}

func DefaultConfig() Config {
	return Config{
		BufferedStateTargetItems: 100_000,
		NodeCacheSize:            1 << 16,
		MetricsNamespace:         "ledgerdb",
		Pruner:                   pruner.DefaultManagerConfig(),
	}
}

func (c Config) Verify() error {
	switch {
	case c.BufferedStateTargetItems <= 0:
		return fmt.Errorf("%w: %d", errInvalidBufferSize, c.BufferedStateTargetItems)
	case c.NodeCacheSize <= 0:
		return fmt.Errorf("%w: %d", errInvalidCacheSize, c.NodeCacheSize)
	default:
		return c.Pruner.Verify()
	}
}
