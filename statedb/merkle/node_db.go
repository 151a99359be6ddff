// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package merkle

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/ledgerdb/database"

	lru "github.com/hashicorp/golang-lru/v2"
)

var _ NodeReader = (*NodeDB)(nil)

// NodeReader returns the tree node stored at a key, or an error wrapping
// database.ErrNotFound if there is none.
type NodeReader interface {
	GetNode(key NodeKey) (Node, error)
}

// NodeDB persists tree nodes keyed by NodeKey.Bytes() and caches decoded
// nodes. Nodes are immutable once written, so a cached entry is only invalid
// after the node is deleted.
type NodeDB struct {
	db      database.Database
	cache   *lru.Cache[NodeKey, Node]
	metrics nodeMetrics
}

func NewNodeDB(
	db database.Database,
	cacheSize int,
	namespace string,
	reg prometheus.Registerer,
) (*NodeDB, error) {
	cache, err := lru.New[NodeKey, Node](cacheSize)
	if err != nil {
		return nil, err
	}
	metrics, err := newMetrics(namespace, reg)
	if err != nil {
		return nil, err
	}
	return &NodeDB{
		db:      db,
		cache:   cache,
		metrics: metrics,
	}, nil
}

func (n *NodeDB) GetNode(key NodeKey) (Node, error) {
	if node, ok := n.cache.Get(key); ok {
		n.metrics.NodeCacheHit()
		return node, nil
	}
	n.metrics.NodeCacheMiss()

	n.metrics.DatabaseNodeRead()
	b, err := n.db.Get(key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to read node %s: %w", key, err)
	}
	node, err := decodeNode(b)
	if err != nil {
		return nil, fmt.Errorf("failed to decode node %s: %w", key, err)
	}
	n.cache.Add(key, node)
	return node, nil
}

// PutNodes writes [nodes] into [w], which is expected to be a batch over the
// same database this NodeDB reads from.
func (n *NodeDB) PutNodes(w database.KeyValueWriter, nodes []NodeEntry) error {
	for _, entry := range nodes {
		if err := w.Put(entry.Key.Bytes(), encodeNode(entry.Node)); err != nil {
			return err
		}
		n.metrics.DatabaseNodeWrite()
	}
	return nil
}

// Evict drops [key] from the cache after it was deleted from the database.
func (n *NodeDB) Evict(key NodeKey) {
	n.cache.Remove(key)
	n.metrics.DatabaseNodeDelete()
}

// Purge drops every cached node.
func (n *NodeDB) Purge() {
	n.cache.Purge()
}

// Has reports whether [key] is persisted, bypassing the cache.
func (n *NodeDB) Has(key NodeKey) (bool, error) {
	return n.db.Has(key.Bytes())
}

// Keys returns the key of every persisted node in key order.
func (n *NodeDB) Keys() ([]NodeKey, error) {
	it := n.db.NewIterator()
	defer it.Release()

	var keys []NodeKey
	for it.Next() {
		key, err := ParseNodeKey(it.Key())
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, it.Error()
}
