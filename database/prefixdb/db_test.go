// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package prefixdb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/ledgerdb/database"
	"github.com/ava-labs/ledgerdb/database/dbtest"
	"github.com/ava-labs/ledgerdb/database/memdb"
)

func TestInterface(t *testing.T) {
	for name, test := range dbtest.Tests {
		t.Run(name, func(t *testing.T) {
			db := memdb.New()
			test(t, New([]byte("hello"), db))
			test(t, New([]byte("world"), db))
			test(t, New([]byte("wor"), New([]byte("ld"), db)))
			test(t, NewNested([]byte("ld"), New([]byte("wor"), db)))
		})
	}
}

func TestPrefixIsolation(t *testing.T) {
	require := require.New(t)

	base := memdb.New()
	nodes := New([]byte("node"), base)
	values := New([]byte("value"), base)

	require.NoError(nodes.Put([]byte("k"), []byte("n")))
	require.NoError(values.Put([]byte("k"), []byte("v")))

	got, err := nodes.Get([]byte("k"))
	require.NoError(err)
	require.Equal([]byte("n"), got)

	require.NoError(nodes.Delete([]byte("k")))
	_, err = nodes.Get([]byte("k"))
	require.ErrorIs(err, database.ErrNotFound)

	got, err = values.Get([]byte("k"))
	require.NoError(err)
	require.Equal([]byte("v"), got)

	count, err := database.Count(values)
	require.NoError(err)
	require.Equal(1, count)
}

func TestCloseLeavesInnerOpen(t *testing.T) {
	require := require.New(t)

	base := memdb.New()
	db := New([]byte("p"), base)
	require.NoError(db.Close())
	require.ErrorIs(db.Close(), database.ErrClosed)
	require.NoError(base.Put([]byte("k"), []byte("v")))
}

func TestWrapBatchSharesCommit(t *testing.T) {
	require := require.New(t)

	base := memdb.New()
	nodes := NewNested([]byte("node"), base)
	values := NewNested([]byte("value"), base)

	shared := base.NewBatch()
	require.NoError(nodes.WrapBatch(shared).Put([]byte("k"), []byte("n")))
	require.NoError(values.WrapBatch(shared).Put([]byte("k"), []byte("v")))

	has, err := nodes.Has([]byte("k"))
	require.NoError(err)
	require.False(has)

	require.NoError(shared.Write())

	got, err := nodes.Get([]byte("k"))
	require.NoError(err)
	require.Equal([]byte("n"), got)
	got, err = values.Get([]byte("k"))
	require.NoError(err)
	require.Equal([]byte("v"), got)
}
