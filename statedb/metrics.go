// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package statedb

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/ledgerdb/utils/wrappers"
)

type metrics struct {
	latestVersion    prometheus.Gauge
	snapshotVersion  prometheus.Gauge
	committedVersion prometheus.Counter
	commitDuration   prometheus.Histogram
	reverts          prometheus.Counter
}

func newMetrics(namespace string, reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		latestVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "latest_version",
			Help:      "latest committed version",
		}),
		snapshotVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_version",
			Help:      "latest version whose tree is persisted",
		}),
		committedVersion: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "committed_versions",
			Help:      "cumulative number of versions committed",
		}),
		commitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "commit_duration_seconds",
			Help:      "time spent committing a batch of write sets",
			Buckets:   prometheus.ExponentialBuckets(.0001, 4, 10),
		}),
		reverts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reverts",
			Help:      "cumulative number of reverted commits",
		}),
	}
	errs := wrappers.Errs{}
	errs.Add(
		reg.Register(m.latestVersion),
		reg.Register(m.snapshotVersion),
		reg.Register(m.committedVersion),
		reg.Register(m.commitDuration),
		reg.Register(m.reverts),
	)
	return m, errs.Err
}
