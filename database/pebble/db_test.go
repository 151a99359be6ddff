// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pebble

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/ledgerdb/database"
	"github.com/ava-labs/ledgerdb/database/dbtest"
	"github.com/ava-labs/ledgerdb/utils/logging"
)

func newDB(t testing.TB) *Database {
	cfg := DefaultConfig
	cfg.CacheSize = 8 << 20
	db, err := New(t.TempDir(), cfg, logging.NoLog{})
	require.NoError(t, err)
	return db
}

func TestInterface(t *testing.T) {
	for name, test := range dbtest.Tests {
		t.Run(name, func(t *testing.T) {
			db := newDB(t)
			test(t, db)

			// The database may have been closed by the test, so we don't care if it
			// errors here.
			_ = db.Close()
		})
	}
}

func TestBytesPrefix(t *testing.T) {
	require := require.New(t)

	opts := bytesPrefix([]byte{0x01, 0xff})
	require.Equal([]byte{0x01, 0xff}, opts.LowerBound)
	require.Equal([]byte{0x02}, opts.UpperBound)

	opts = bytesPrefix([]byte{0xff, 0xff})
	require.Nil(opts.UpperBound)
}

func TestBatchRewrite(t *testing.T) {
	require := require.New(t)

	db := newDB(t)
	defer db.Close()

	b := db.NewBatch()
	require.NoError(b.Put([]byte("k"), []byte("v1")))
	require.NoError(b.Write())
	require.NoError(db.Put([]byte("k"), []byte("v2")))
	require.NoError(b.Write())

	v, err := db.Get([]byte("k"))
	require.NoError(err)
	require.Equal([]byte("v1"), v)
}

func TestCompactNilLimit(t *testing.T) {
	require := require.New(t)

	db := newDB(t)
	defer db.Close()

	require.NoError(db.Compact(nil, nil))
	require.NoError(db.Put([]byte("a"), []byte("1")))
	require.NoError(db.Put([]byte("b"), []byte("2")))
	require.NoError(db.Compact(nil, nil))

	count, err := database.Count(db)
	require.NoError(err)
	require.Equal(2, count)
}
