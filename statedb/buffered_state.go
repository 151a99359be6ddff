// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package statedb

import (
	"sync"

	"github.com/google/btree"

	"github.com/ava-labs/ledgerdb/database"
	"github.com/ava-labs/ledgerdb/statedb/merkle"
	"github.com/ava-labs/ledgerdb/statedb/schema"
	"github.com/ava-labs/ledgerdb/types"
	"github.com/ava-labs/ledgerdb/utils/maybe"
)

const deltaDegree = 32

var _ merkle.NodeReader = (*BufferedState)(nil)

type deltaEntry struct {
	key   types.StateKey
	value maybe.Maybe[[]byte]
}

func deltaLess(a, b deltaEntry) bool {
	return a.key.Less(b.key)
}

// BufferedState holds the tree updates of every version after the last
// persisted checkpoint, along with the state delta they produced. Values and
// write sets are persisted at commit; only tree nodes and their stale indexes
// wait here until the buffer is flushed.
type BufferedState struct {
	db          *schema.DB
	nodes       *merkle.NodeDB
	targetItems int
	onFlush     func(checkpoint uint64) error

	lock             sync.RWMutex
	persistedVersion maybe.Maybe[uint64]
	currentVersion   maybe.Maybe[uint64]
	delta            *btree.BTreeG[deltaEntry]
	pendingNodes     map[merkle.NodeKey]merkle.Node
	stale            []merkle.StaleNodeIndex
	staleCrossEpoch  []merkle.StaleNodeIndex
}

func NewBufferedState(
	db *schema.DB,
	nodes *merkle.NodeDB,
	targetItems int,
	persistedVersion maybe.Maybe[uint64],
) *BufferedState {
	return &BufferedState{
		db:               db,
		nodes:            nodes,
		targetItems:      targetItems,
		onFlush:          func(uint64) error { return nil },
		persistedVersion: persistedVersion,
		currentVersion:   persistedVersion,
		delta:            btree.NewG[deltaEntry](deltaDegree, deltaLess),
		pendingNodes:     make(map[merkle.NodeKey]merkle.Node),
	}
}

// GetNode returns buffered nodes before falling back to the database.
func (b *BufferedState) GetNode(key merkle.NodeKey) (merkle.Node, error) {
	b.lock.RLock()
	node, ok := b.pendingNodes[key]
	b.lock.RUnlock()
	if ok {
		return node, nil
	}
	return b.nodes.GetNode(key)
}

// Apply adds the result of committing [writeSet] at [version].
func (b *BufferedState) Apply(version uint64, writeSet types.WriteSet, update *merkle.TreeUpdateBatch) {
	b.lock.Lock()
	defer b.lock.Unlock()

	for _, op := range writeSet {
		b.delta.ReplaceOrInsert(deltaEntry{key: op.Key, value: op.Value})
	}
	for _, entry := range update.Nodes {
		b.pendingNodes[entry.Key] = entry.Node
	}
	b.stale = append(b.stale, update.StaleNodes...)
	b.staleCrossEpoch = append(b.staleCrossEpoch, update.StaleNodesCrossEpoch...)
	b.currentVersion = maybe.Some(version)
}

// Len returns the number of keys changed since the last flush.
func (b *BufferedState) Len() int {
	b.lock.RLock()
	defer b.lock.RUnlock()

	return b.delta.Len()
}

func (b *BufferedState) PersistedVersion() maybe.Maybe[uint64] {
	b.lock.RLock()
	defer b.lock.RUnlock()

	return b.persistedVersion
}

// MaybeFlush flushes once the delta reaches the target item count.
func (b *BufferedState) MaybeFlush() error {
	if b.Len() < b.targetItems {
		return nil
	}
	return b.Flush()
}

// Flush persists every buffered node and stale index, and records the
// current version as the state checkpoint.
func (b *BufferedState) Flush() error {
	b.lock.RLock()
	version := b.currentVersion
	if version == b.persistedVersion {
		b.lock.RUnlock()
		return nil
	}

	batch := b.db.NewBatch()
	entries := make([]merkle.NodeEntry, 0, len(b.pendingNodes))
	for key, node := range b.pendingNodes {
		entries = append(entries, merkle.NodeEntry{Key: key, Node: node})
	}
	err := b.nodes.PutNodes(batch.Nodes, entries)
	for _, index := range b.stale {
		if err != nil {
			break
		}
		err = batch.StaleNodes.Put(index.Bytes(), nil)
	}
	for _, index := range b.staleCrossEpoch {
		if err != nil {
			break
		}
		err = batch.StaleNodesCrossEpoch.Put(index.Bytes(), nil)
	}
	b.lock.RUnlock()
	if err != nil {
		return wrapDBErr(err, "failed to buffer tree nodes")
	}

	checkpoint := version.Value()
	if err := database.PutUInt64(batch.Metadata, schema.SnapshotVersionKey, checkpoint); err != nil {
		return wrapDBErr(err, "failed to buffer checkpoint")
	}
	if err := batch.Write(); err != nil {
		return wrapDBErr(err, "failed to flush tree nodes")
	}

	b.lock.Lock()
	b.reset(version)
	b.lock.Unlock()

	return b.onFlush(checkpoint)
}

// Reset drops everything buffered and marks [version] as persisted.
func (b *BufferedState) Reset(version maybe.Maybe[uint64]) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.reset(version)
}

func (b *BufferedState) reset(version maybe.Maybe[uint64]) {
	b.persistedVersion = version
	b.currentVersion = version
	b.delta.Clear(false)
	b.pendingNodes = make(map[merkle.NodeKey]merkle.Node)
	b.stale = nil
	b.staleCrossEpoch = nil
}

func (b *BufferedState) pendingNodeKeys() []merkle.NodeKey {
	b.lock.RLock()
	defer b.lock.RUnlock()

	keys := make([]merkle.NodeKey, 0, len(b.pendingNodes))
	for key := range b.pendingNodes {
		keys = append(keys, key)
	}
	return keys
}

// CurrentSnapshot returns an immutable view of the buffer. Later writes to
// the buffer are not visible through it.
func (b *BufferedState) CurrentSnapshot() *StateSnapshot {
	// Clone mutates the delta's copy-on-write state.
	b.lock.Lock()
	defer b.lock.Unlock()

	return &StateSnapshot{
		PersistedVersion: b.persistedVersion,
		Version:          b.currentVersion,
		delta:            b.delta.Clone(),
	}
}

// StateSnapshot is the persisted checkpoint plus the changes made after it.
type StateSnapshot struct {
	PersistedVersion maybe.Maybe[uint64]
	Version          maybe.Maybe[uint64]

	delta *btree.BTreeG[deltaEntry]
}

// Get returns the value [key] was changed to after the persisted checkpoint.
// It returns false if [key] did not change.
func (s *StateSnapshot) Get(key types.StateKey) (maybe.Maybe[[]byte], bool) {
	entry, ok := s.delta.Get(deltaEntry{key: key})
	return entry.value, ok
}

// Len returns the number of keys changed after the persisted checkpoint.
func (s *StateSnapshot) Len() int {
	return s.delta.Len()
}

// Ascend calls [f] on every changed key in key order until [f] returns false.
func (s *StateSnapshot) Ascend(f func(key types.StateKey, value maybe.Maybe[[]byte]) bool) {
	s.delta.Ascend(func(entry deltaEntry) bool {
		return f(entry.key, entry.value)
	})
}
