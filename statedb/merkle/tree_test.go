// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package merkle

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/ledgerdb/database/memdb"
	"github.com/ava-labs/ledgerdb/ids"
	"github.com/ava-labs/ledgerdb/utils/maybe"
)

type testTree struct {
	db   *NodeDB
	tree *Tree
}

func newTestTree(t testing.TB) *testTree {
	db, err := NewNodeDB(memdb.New(), 1024, "", nil)
	require.NoError(t, err)
	return &testTree{
		db:   db,
		tree: NewTree(db),
	}
}

func (tt *testTree) commit(
	version uint64,
	base maybe.Maybe[uint64],
	updates []Update,
	lastEpochEnding maybe.Maybe[uint64],
) (*TreeUpdateBatch, error) {
	batch, err := tt.tree.Update(version, base, updates, lastEpochEnding)
	if err != nil {
		return nil, err
	}
	return batch, tt.db.PutNodes(tt.db.db, batch.Nodes)
}

// testKey returns keys 0-15 sharing the first two nibbles and hashed keys
// otherwise, so trees contain both deep chains and wide fan-out.
func testKey(k byte) ids.ID {
	if k < 16 {
		return ids.ID{0xab, k << 4}
	}
	return ids.Digest([]byte{k})
}

func put(k byte, v byte) Update {
	return Update{KeyHash: testKey(k), ValueHash: maybe.Some(ids.Digest([]byte{'v', v}))}
}

func del(k byte) Update {
	return Update{KeyHash: testKey(k), ValueHash: maybe.Nothing[ids.ID]()}
}

func TestEmptyTree(t *testing.T) {
	require := require.New(t)

	tt := newTestTree(t)
	batch, err := tt.commit(0, maybe.Nothing[uint64](), nil, maybe.Nothing[uint64]())
	require.NoError(err)
	require.Equal(ids.Empty, batch.RootHash)
	require.Equal([]NodeEntry{{Key: RootKey(0), Node: &NullNode{}}}, batch.Nodes)
	require.Empty(batch.StaleNodes)

	root, err := tt.tree.GetRootHash(0)
	require.NoError(err)
	require.Equal(ids.Empty, root)

	_, err = tt.tree.GetRootHash(1)
	require.True(IsNotFound(err))
}

func TestSingleLeafIsRoot(t *testing.T) {
	require := require.New(t)

	tt := newTestTree(t)
	update := put(1, 1)
	batch, err := tt.commit(0, maybe.Nothing[uint64](), []Update{update}, maybe.Nothing[uint64]())
	require.NoError(err)

	leaf := &LeafNode{KeyHash: update.KeyHash, ValueHash: update.ValueHash.Value()}
	require.Equal(leaf.Hash(), batch.RootHash)
	require.Len(batch.Nodes, 1)
}

func TestUpdateRequiresIncreasingVersion(t *testing.T) {
	require := require.New(t)

	tt := newTestTree(t)
	_, err := tt.commit(3, maybe.Nothing[uint64](), nil, maybe.Nothing[uint64]())
	require.NoError(err)

	_, err = tt.commit(3, maybe.Some[uint64](3), nil, maybe.Nothing[uint64]())
	require.ErrorIs(err, ErrVersionNotIncreasing)

	_, err = tt.commit(5, maybe.Some[uint64](4), nil, maybe.Nothing[uint64]())
	require.ErrorIs(err, ErrMissingRoot)
}

func TestLastWriteWins(t *testing.T) {
	require := require.New(t)

	tt := newTestTree(t)
	first, err := tt.commit(0, maybe.Nothing[uint64](), []Update{put(1, 1), put(1, 2), del(2), put(2, 2), del(2)}, maybe.Nothing[uint64]())
	require.NoError(err)

	expected := newTestTree(t)
	second, err := expected.commit(0, maybe.Nothing[uint64](), []Update{put(1, 2)}, maybe.Nothing[uint64]())
	require.NoError(err)
	require.Equal(second.RootHash, first.RootHash)
}

func TestDeleteCollapsesToLeaf(t *testing.T) {
	require := require.New(t)

	a := Update{KeyHash: ids.ID{0x12}, ValueHash: maybe.Some(ids.ID{1})}
	b := Update{KeyHash: ids.ID{0x13}, ValueHash: maybe.Some(ids.ID{2})}

	tt := newTestTree(t)
	batch, err := tt.commit(0, maybe.Nothing[uint64](), []Update{a, b}, maybe.Nothing[uint64]())
	require.NoError(err)
	// root, the lone internal child at nibble 1, and two leaves
	require.Len(batch.Nodes, 4)

	batch, err = tt.commit(1, maybe.Some[uint64](0), []Update{{KeyHash: b.KeyHash, ValueHash: maybe.Nothing[ids.ID]()}}, maybe.Nothing[uint64]())
	require.NoError(err)

	leaf := &LeafNode{KeyHash: a.KeyHash, ValueHash: a.ValueHash.Value()}
	require.Equal(leaf.Hash(), batch.RootHash)
	require.Equal([]NodeEntry{{Key: RootKey(1), Node: leaf}}, batch.Nodes)
	require.ElementsMatch([]StaleNodeIndex{
		{StaleSince: 1, NodeKey: RootKey(0)},
		{StaleSince: 1, NodeKey: NodeKey{Version: 0, Path: NibblePath([]byte{1})}},
		{StaleSince: 1, NodeKey: NodeKey{Version: 0, Path: NibblePath([]byte{1, 2})}},
		{StaleSince: 1, NodeKey: NodeKey{Version: 0, Path: NibblePath([]byte{1, 3})}},
	}, batch.StaleNodes)
	require.Empty(batch.StaleNodesCrossEpoch)

	reachable, err := tt.tree.NodesReachable(1)
	require.NoError(err)
	require.Equal([]NodeKey{RootKey(1)}, reachable)
}

func TestUnchangedRootIsRewritten(t *testing.T) {
	require := require.New(t)

	tt := newTestTree(t)
	first, err := tt.commit(0, maybe.Nothing[uint64](), []Update{put(1, 1), put(2, 2), put(20, 3)}, maybe.Nothing[uint64]())
	require.NoError(err)

	second, err := tt.commit(1, maybe.Some[uint64](0), []Update{put(1, 1), del(5)}, maybe.Nothing[uint64]())
	require.NoError(err)
	require.Equal(first.RootHash, second.RootHash)
	require.Len(second.Nodes, 1)
	require.Equal(RootKey(1), second.Nodes[0].Key)
	require.Equal([]StaleNodeIndex{{StaleSince: 1, NodeKey: RootKey(0)}}, second.StaleNodes)

	reachable0, err := tt.tree.NodesReachable(0)
	require.NoError(err)
	reachable1, err := tt.tree.NodesReachable(1)
	require.NoError(err)
	require.Len(reachable1, len(reachable0))
}

func TestStaleNodesSplitAtEpochBoundary(t *testing.T) {
	require := require.New(t)

	tt := newTestTree(t)
	_, err := tt.commit(0, maybe.Nothing[uint64](), []Update{put(1, 1)}, maybe.Nothing[uint64]())
	require.NoError(err)
	_, err = tt.commit(1, maybe.Some[uint64](0), []Update{put(20, 1)}, maybe.Nothing[uint64]())
	require.NoError(err)

	// Version 1 ended an epoch: everything created at or before it is
	// reachable from an epoch-ending root.
	batch, err := tt.commit(2, maybe.Some[uint64](1), []Update{put(1, 2)}, maybe.Some[uint64](1))
	require.NoError(err)
	require.Empty(batch.StaleNodes)
	require.NotEmpty(batch.StaleNodesCrossEpoch)
	for _, stale := range batch.StaleNodesCrossEpoch {
		require.LessOrEqual(stale.NodeKey.Version, uint64(1))
		require.Equal(uint64(2), stale.StaleSince)
	}

	// Nodes created at version 2 were never part of an epoch-ending root.
	batch, err = tt.commit(3, maybe.Some[uint64](2), []Update{put(1, 3)}, maybe.Some[uint64](1))
	require.NoError(err)
	for _, stale := range batch.StaleNodes {
		require.Equal(uint64(2), stale.NodeKey.Version)
	}
	require.NotEmpty(batch.StaleNodes)
}

func TestStaleNodesAreUnreachable(t *testing.T) {
	require := require.New(t)

	tt := newTestTree(t)
	_, err := tt.commit(0, maybe.Nothing[uint64](), []Update{put(1, 1), put(2, 1), put(3, 1), put(30, 1), put(31, 1)}, maybe.Nothing[uint64]())
	require.NoError(err)

	steps := [][]Update{
		{put(1, 2)},
		{del(2), put(40, 1)},
		{del(1), del(3)},
		{del(30), del(31), del(40)},
		{put(2, 9)},
	}
	for i, updates := range steps {
		version := uint64(i + 1)
		before, err := tt.tree.NodesReachable(version - 1)
		require.NoError(err)

		batch, err := tt.commit(version, maybe.Some(version-1), updates, maybe.Nothing[uint64]())
		require.NoError(err)

		after, err := tt.tree.NodesReachable(version)
		require.NoError(err)

		// Every node of the previous version is either still reachable or
		// marked stale exactly once.
		afterSet := make(map[NodeKey]struct{}, len(after))
		for _, key := range after {
			afterSet[key] = struct{}{}
		}
		var expectedStale []NodeKey
		for _, key := range before {
			if _, ok := afterSet[key]; !ok {
				expectedStale = append(expectedStale, key)
			}
		}
		var stale []NodeKey
		for _, index := range batch.StaleNodes {
			stale = append(stale, index.NodeKey)
		}
		require.ElementsMatch(expectedStale, stale, "version %d", version)
	}
}

// TestRootIndependentOfHistory checks that the root hash only depends on the
// final set of leaves, however the updates were spread over versions.
func TestRootIndependentOfHistory(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("root matches a tree built in one step", prop.ForAll(
		func(ops []uint16, chunk int) string {
			tt := newTestTree(t)
			if _, err := tt.commit(0, maybe.Nothing[uint64](), nil, maybe.Nothing[uint64]()); err != nil {
				return err.Error()
			}

			model := make(map[ids.ID]ids.ID)
			version := uint64(0)
			var lastRoot ids.ID
			for start := 0; start < len(ops); start += chunk {
				end := min(start+chunk, len(ops))
				updates := make([]Update, 0, end-start)
				for _, op := range ops[start:end] {
					k, v := byte(op>>8)%32, byte(op)%4
					if v == 0 {
						updates = append(updates, del(k))
						delete(model, testKey(k))
						continue
					}
					update := put(k, v)
					updates = append(updates, update)
					model[update.KeyHash] = update.ValueHash.Value()
				}
				version++
				batch, err := tt.commit(version, maybe.Some(version-1), updates, maybe.Nothing[uint64]())
				if err != nil {
					return err.Error()
				}
				lastRoot = batch.RootHash
			}
			if version == 0 {
				lastRoot = ids.Empty
			}

			fresh := newTestTree(t)
			updates := make([]Update, 0, len(model))
			for k, v := range model {
				updates = append(updates, Update{KeyHash: k, ValueHash: maybe.Some(v)})
			}
			batch, err := fresh.commit(0, maybe.Nothing[uint64](), updates, maybe.Nothing[uint64]())
			if err != nil {
				return err.Error()
			}
			if batch.RootHash != lastRoot {
				return fmt.Sprintf("expected root %s but got %s", batch.RootHash, lastRoot)
			}
			return ""
		},
		gen.SliceOf(gen.UInt16()),
		gen.IntRange(1, 8),
	))

	properties.TestingRun(t)
}
