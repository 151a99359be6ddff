// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/ledgerdb/ids"
	"github.com/ava-labs/ledgerdb/utils/maybe"
)

func TestStateKeyShapes(t *testing.T) {
	require := require.New(t)

	address := ids.ID{0xaa}
	key := NewAccessPathKey(address, "0x1::account::Account")
	require.Equal(AccessPathTag, key.Tag())
	gotAddress, resource, ok := key.AccessPath()
	require.True(ok)
	require.Equal(address, gotAddress)
	require.Equal("0x1::account::Account", resource)
	_, _, ok = key.TableItem()
	require.False(ok)

	item := NewTableItemKey(ids.ID{0xbb}, []byte{1, 2})
	handle, itemKey, ok := item.TableItem()
	require.True(ok)
	require.Equal(ids.ID{0xbb}, handle)
	require.Equal([]byte{1, 2}, itemKey)

	raw := NewRawKey([]byte("config"))
	require.Equal(RawTag, raw.Tag())
	require.Equal("raw:636f6e666967", raw.String())

	for _, k := range []StateKey{key, item, raw} {
		parsed, err := ParseStateKey(k.Bytes())
		require.NoError(err)
		require.Equal(k, parsed)
		require.Equal(k.Hash(), parsed.Hash())
	}
}

func TestParseStateKeyErrors(t *testing.T) {
	require := require.New(t)

	_, err := ParseStateKey(nil)
	require.ErrorIs(err, ErrEmptyStateKey)

	_, err = ParseStateKey([]byte{9})
	require.ErrorIs(err, ErrUnknownKeyTag)

	_, err = ParseStateKey([]byte{byte(AccessPathTag), 1, 2})
	require.ErrorIs(err, ErrShortStateKey)
}

func TestStateKeyOrdering(t *testing.T) {
	require := require.New(t)

	a := NewRawKey([]byte("a"))
	b := NewRawKey([]byte("b"))
	require.True(a.Less(b))
	require.Negative(a.Compare(b))
	require.Zero(a.Compare(NewRawKey([]byte("a"))))
}

func TestWriteSetCodec(t *testing.T) {
	require := require.New(t)

	var ws WriteSet
	ws.Put(NewRawKey([]byte("a")), []byte("1"))
	ws.Delete(NewRawKey([]byte("b")))
	ws.Put(NewRawKey([]byte("c")), []byte{})

	b, err := ws.Marshal()
	require.NoError(err)
	parsed, err := ParseWriteSet(b)
	require.NoError(err)
	require.True(ws.Equal(parsed))
	require.True(parsed[1].IsDeletion())

	_, err = ParseWriteSet(b[:len(b)-1])
	require.Error(err)

	_, err = ParseWriteSet(append(b, 0))
	require.Error(err)

	b[0] = 9
	_, err = ParseWriteSet(b)
	require.ErrorIs(err, errUnknownCodecVersion)
}

func TestWriteSetDedup(t *testing.T) {
	require := require.New(t)

	a := NewRawKey([]byte("a"))
	b := NewRawKey([]byte("b"))
	ws := WriteSet{
		{Key: a, Value: maybe.Some([]byte("1"))},
		{Key: b, Value: maybe.Some([]byte("2"))},
		{Key: a, Value: maybe.Nothing[[]byte]()},
	}
	deduped := ws.Dedup()
	require.Len(deduped, 2)
	require.Equal(a, deduped[0].Key)
	require.True(deduped[0].IsDeletion())
	require.Equal([]byte("2"), deduped[1].Value.Value())
}

func TestLedgerInfoCodec(t *testing.T) {
	require := require.New(t)

	li := &LedgerInfoWithSignatures{
		LedgerInfo: LedgerInfo{
			Epoch:         3,
			Round:         17,
			BlockID:       ids.ID{1},
			RootDigest:    ids.ID{2},
			Version:       99,
			TimestampUsec: 1_700_000_000_000_000,
			EndsEpoch:     true,
		},
		Signatures: []byte("quorum"),
	}
	b, err := li.Marshal()
	require.NoError(err)
	parsed, err := ParseLedgerInfoWithSignatures(b)
	require.NoError(err)
	require.True(li.Equal(parsed))

	_, err = ParseLedgerInfoWithSignatures(append(b, 1))
	require.ErrorIs(err, errTrailingBytes)
}

func TestBlockInfoCodec(t *testing.T) {
	require := require.New(t)

	bi := &BlockInfo{
		Height:       4,
		FirstVersion: 10,
		LastVersion:  14,
		Epoch:        1,
		Round:        8,
		BlockID:      ids.ID{7},
		RootDigest:   ids.ID{9},
	}
	b, err := bi.Marshal()
	require.NoError(err)
	parsed, err := ParseBlockInfo(b)
	require.NoError(err)
	require.Equal(bi, parsed)

	_, err = ParseBlockInfo(b[:10])
	require.Error(err)
}
