// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package merkle

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/ledgerdb/ids"
	"github.com/ava-labs/ledgerdb/utils/maybe"
)

func TestProofEmptyTree(t *testing.T) {
	require := require.New(t)

	tt := newTestTree(t)
	_, err := tt.commit(0, maybe.Nothing[uint64](), nil, maybe.Nothing[uint64]())
	require.NoError(err)

	value, proof, err := tt.tree.GetWithProof(testKey(1), 0)
	require.NoError(err)
	require.True(value.IsNothing())
	require.NoError(proof.Verify(ids.Empty, value))
	require.ErrorIs(proof.Verify(ids.Empty, maybe.Some(ids.ID{1})), ErrProofValueDoesntMatch)
}

func TestProofs(t *testing.T) {
	tt := newTestTree(t)
	present := []Update{put(1, 1), put(2, 2), put(3, 3), put(20, 1), put(21, 2)}
	batch, err := tt.commit(0, maybe.Nothing[uint64](), present, maybe.Nothing[uint64]())
	require.NoError(t, err)
	root := batch.RootHash

	t.Run("inclusion", func(t *testing.T) {
		require := require.New(t)

		for _, update := range present {
			value, proof, err := tt.tree.GetWithProof(update.KeyHash, 0)
			require.NoError(err)
			require.Equal(update.ValueHash, value)
			require.NoError(proof.Verify(root, value))
			require.ErrorIs(proof.Verify(root, maybe.Nothing[ids.ID]()), ErrProofValueDoesntMatch)
			require.ErrorIs(proof.Verify(root, maybe.Some(ids.ID{9})), ErrProofValueDoesntMatch)
		}
	})

	t.Run("exclusion", func(t *testing.T) {
		require := require.New(t)

		for _, k := range []byte{4, 5, 15, 22, 23, 100} {
			value, proof, err := tt.tree.GetWithProof(testKey(k), 0)
			require.NoError(err)
			require.True(value.IsNothing())
			require.NoError(proof.Verify(root, value))
		}
	})

	t.Run("wrong root", func(t *testing.T) {
		require := require.New(t)

		value, proof, err := tt.tree.GetWithProof(testKey(1), 0)
		require.NoError(err)
		require.ErrorIs(proof.Verify(ids.ID{1}, value), ErrInvalidProof)
	})

	t.Run("tampered sibling", func(t *testing.T) {
		require := require.New(t)

		value, proof, err := tt.tree.GetWithProof(testKey(1), 0)
		require.NoError(err)
		require.NotEmpty(proof.Siblings)
		last := proof.Siblings[len(proof.Siblings)-1]
		require.NotEmpty(last)
		last[0].Hash = ids.ID{0xff}
		require.ErrorIs(proof.Verify(root, value), ErrInvalidProof)
	})

	t.Run("sibling on path", func(t *testing.T) {
		require := require.New(t)

		value, proof, err := tt.tree.GetWithProof(testKey(1), 0)
		require.NoError(err)
		proof.Siblings[0] = append(proof.Siblings[0], ProofChild{Nibble: NibbleAt(testKey(1), 0)})
		require.ErrorIs(proof.Verify(root, value), ErrDuplicateSibling)
	})

	t.Run("leaf off path", func(t *testing.T) {
		require := require.New(t)

		_, proof, err := tt.tree.GetWithProof(testKey(1), 0)
		require.NoError(err)
		proof.Key = ids.ID{0x00, 0x01}
		require.ErrorIs(proof.Verify(root, maybe.Nothing[ids.ID]()), ErrNonInclusionLeaf)
	})
}

func TestProofAtOlderVersion(t *testing.T) {
	require := require.New(t)

	tt := newTestTree(t)
	v0, err := tt.commit(0, maybe.Nothing[uint64](), []Update{put(1, 1), put(2, 1)}, maybe.Nothing[uint64]())
	require.NoError(err)
	_, err = tt.commit(1, maybe.Some[uint64](0), []Update{put(1, 2), del(2)}, maybe.Nothing[uint64]())
	require.NoError(err)

	value, proof, err := tt.tree.GetWithProof(testKey(2), 0)
	require.NoError(err)
	require.True(value.HasValue())
	require.NoError(proof.Verify(v0.RootHash, value))

	value, _, err = tt.tree.GetWithProof(testKey(2), 1)
	require.NoError(err)
	require.True(value.IsNothing())
}
