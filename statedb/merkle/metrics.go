// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package merkle

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/ledgerdb/utils/wrappers"
)

var (
	_ nodeMetrics = (*mockMetrics)(nil)
	_ nodeMetrics = (*metrics)(nil)
)

type nodeMetrics interface {
	DatabaseNodeRead()
	DatabaseNodeWrite()
	DatabaseNodeDelete()
	NodeCacheHit()
	NodeCacheMiss()
}

type mockMetrics struct {
	nodeReadCount   int64
	nodeWriteCount  int64
	nodeDeleteCount int64
	nodeCacheHit    int64
	nodeCacheMiss   int64
}

func (m *mockMetrics) DatabaseNodeRead() {
	atomic.AddInt64(&m.nodeReadCount, 1)
}

func (m *mockMetrics) DatabaseNodeWrite() {
	atomic.AddInt64(&m.nodeWriteCount, 1)
}

func (m *mockMetrics) DatabaseNodeDelete() {
	atomic.AddInt64(&m.nodeDeleteCount, 1)
}

func (m *mockMetrics) NodeCacheHit() {
	atomic.AddInt64(&m.nodeCacheHit, 1)
}

func (m *mockMetrics) NodeCacheMiss() {
	atomic.AddInt64(&m.nodeCacheMiss, 1)
}

type metrics struct {
	ioNodeRead    prometheus.Counter
	ioNodeWrite   prometheus.Counter
	ioNodeDelete  prometheus.Counter
	nodeCacheHit  prometheus.Counter
	nodeCacheMiss prometheus.Counter
}

func newMetrics(namespace string, reg prometheus.Registerer) (nodeMetrics, error) {
	if reg == nil {
		return &mockMetrics{}, nil
	}
	m := metrics{
		ioNodeRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "io_node_read",
			Help:      "cumulative amount of tree node reads from the node db",
		}),
		ioNodeWrite: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "io_node_write",
			Help:      "cumulative amount of tree node writes to the node db",
		}),
		ioNodeDelete: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "io_node_delete",
			Help:      "cumulative amount of tree node deletions from the node db",
		}),
		nodeCacheHit: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_cache_hit",
			Help:      "cumulative amount of hits on the tree node cache",
		}),
		nodeCacheMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_cache_miss",
			Help:      "cumulative amount of misses on the tree node cache",
		}),
	}
	errs := wrappers.Errs{}
	errs.Add(
		reg.Register(m.ioNodeRead),
		reg.Register(m.ioNodeWrite),
		reg.Register(m.ioNodeDelete),
		reg.Register(m.nodeCacheHit),
		reg.Register(m.nodeCacheMiss),
	)
	return &m, errs.Err
}

func (m *metrics) DatabaseNodeRead() {
	m.ioNodeRead.Inc()
}

func (m *metrics) DatabaseNodeWrite() {
	m.ioNodeWrite.Inc()
}

func (m *metrics) DatabaseNodeDelete() {
	m.ioNodeDelete.Inc()
}

func (m *metrics) NodeCacheHit() {
	m.nodeCacheHit.Inc()
}

func (m *metrics) NodeCacheMiss() {
	m.nodeCacheMiss.Inc()
}
