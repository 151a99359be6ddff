// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pruner

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/ledgerdb/utils/wrappers"
)

type metrics struct {
	minReadableVersion prometheus.Gauge
	targetVersion      prometheus.Gauge
	prunedItems        prometheus.Counter
}

func newMetrics(namespace string, reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		minReadableVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "min_readable_version",
			Help:      "oldest version the pruner keeps readable",
		}),
		targetVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "target_version",
			Help:      "minimum readable version the pruner is working towards",
		}),
		prunedItems: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pruned_items",
			Help:      "cumulative number of entities deleted by the pruner",
		}),
	}
	errs := wrappers.Errs{}
	errs.Add(
		reg.Register(m.minReadableVersion),
		reg.Register(m.targetVersion),
		reg.Register(m.prunedItems),
	)
	return m, errs.Err
}
