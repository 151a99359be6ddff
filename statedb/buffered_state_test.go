// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package statedb

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/ledgerdb/types"
	"github.com/ava-labs/ledgerdb/utils/maybe"
)

func TestBufferedStateFlushesAtTarget(t *testing.T) {
	require := require.New(t)

	config := testConfig()
	config.BufferedStateTargetItems = 3
	s := newTestStore(t, config)
	ctx := context.Background()

	require.NoError(s.Commit(ctx, []types.WriteSet{putSet(testKey(0), "a")}, 0))
	require.NoError(s.Commit(ctx, []types.WriteSet{putSet(testKey(1), "b", testKey(0), "c")}, 1))

	snapshot := s.CurrentSnapshot()
	require.True(snapshot.PersistedVersion.IsNothing())
	require.Equal(maybe.Some[uint64](1), snapshot.Version)
	require.Equal(2, snapshot.Len())

	value, ok := snapshot.Get(testKey(0))
	require.True(ok)
	requireValue(t, "c", value)
	_, ok = snapshot.Get(testKey(2))
	require.False(ok)

	persisted, err := s.nodes.Keys()
	require.NoError(err)
	require.Empty(persisted)

	// A deletion counts towards the target even if nothing was deleted.
	require.NoError(s.Commit(ctx, []types.WriteSet{putSet(testKey(2), nil)}, 2))
	flushed := s.CurrentSnapshot()
	require.Equal(maybe.Some[uint64](2), flushed.PersistedVersion)
	require.Zero(flushed.Len())

	// The snapshot taken before the flush is unaffected by it.
	require.Equal(2, snapshot.Len())
	var keys []types.StateKey
	snapshot.Ascend(func(key types.StateKey, _ maybe.Maybe[[]byte]) bool {
		keys = append(keys, key)
		return true
	})
	require.Equal([]types.StateKey{testKey(0), testKey(1)}, keys)

	persisted, err = s.nodes.Keys()
	require.NoError(err)
	all, err := s.AllNodeKeys()
	require.NoError(err)
	require.Equal(persisted, all)

	require.NoError(s.Commit(ctx, []types.WriteSet{putSet(testKey(2), "d")}, 3))
	snapshot = s.CurrentSnapshot()
	require.Equal(maybe.Some[uint64](2), snapshot.PersistedVersion)
	require.Equal(1, snapshot.Len())

	for version := uint64(0); version <= 3; version++ {
		_, err := s.RootDigest(version)
		require.NoError(err)
	}
}

func TestBufferedStateServesPendingNodes(t *testing.T) {
	require := require.New(t)

	s := newTestStore(t, testConfig())
	states := commitHistory(t, s)

	pending := s.buffered.pendingNodeKeys()
	require.NotEmpty(pending)
	for _, key := range pending {
		node, err := s.buffered.GetNode(key)
		require.NoError(err)
		require.NotNil(node)

		has, err := s.nodes.Has(key)
		require.NoError(err)
		require.False(has)
	}

	all, err := s.AllNodeKeys()
	require.NoError(err)
	require.Len(all, len(pending))

	require.NoError(s.buffered.Flush())
	require.NoError(s.buffered.Flush())
	require.Empty(s.buffered.pendingNodeKeys())

	root, err := s.RootDigest(3)
	require.NoError(err)
	require.Equal(states[3].root(t), root)
}

func TestStateSnapshotIgnoresLaterApply(t *testing.T) {
	require := require.New(t)

	s := newTestStore(t, testConfig())
	ctx := context.Background()

	require.NoError(s.Commit(ctx, []types.WriteSet{putSet(testKey(0), "a")}, 0))
	snapshot := s.CurrentSnapshot()

	require.NoError(s.Commit(ctx, []types.WriteSet{putSet(testKey(0), "b", testKey(1), "c")}, 1))
	require.True(s.CurrentSnapshot().PersistedVersion.IsNothing())

	require.Equal(maybe.Some[uint64](0), snapshot.Version)
	require.Equal(1, snapshot.Len())
	value, ok := snapshot.Get(testKey(0))
	require.True(ok)
	requireValue(t, "a", value)
	_, ok = snapshot.Get(testKey(1))
	require.False(ok)

	latest := s.CurrentSnapshot()
	require.Equal(maybe.Some[uint64](1), latest.Version)
	require.Equal(2, latest.Len())
	value, ok = latest.Get(testKey(0))
	require.True(ok)
	requireValue(t, "b", value)
}

func TestConcurrentSnapshots(t *testing.T) {
	require := require.New(t)

	s := newTestStore(t, testConfig())
	ctx := context.Background()
	require.NoError(s.Commit(ctx, []types.WriteSet{putSet(testKey(0), "a", testKey(1), "b")}, 0))

	var wg sync.WaitGroup
	lens := make([]int, 4)
	for i := range lens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			for round := 0; round < 100; round++ {
				lens[i] = s.CurrentSnapshot().Len()
			}
		}(i)
	}
	wg.Wait()

	for _, l := range lens {
		require.Equal(2, l)
	}
}
