// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package corruptabledb

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/ledgerdb/database"
	"github.com/ava-labs/ledgerdb/database/dbtest"
	"github.com/ava-labs/ledgerdb/database/memdb"
)

var errTest = errors.New("non-nil error")

func TestInterface(t *testing.T) {
	for name, test := range dbtest.Tests {
		t.Run(name, func(t *testing.T) {
			test(t, New(memdb.New()))
		})
	}
}

// failingDB fails every Put after [failAfter] successful calls.
type failingDB struct {
	database.Database
	puts      int
	failAfter int
}

func (db *failingDB) Put(key, value []byte) error {
	db.puts++
	if db.puts > db.failAfter {
		return errTest
	}
	return db.Database.Put(key, value)
}

func TestCorruption(t *testing.T) {
	require := require.New(t)

	db := New(&failingDB{Database: memdb.New(), failAfter: 1})
	require.NoError(db.Put([]byte("a"), []byte("1")))
	require.ErrorIs(db.Put([]byte("b"), []byte("2")), errTest)

	_, err := db.Get([]byte("a"))
	require.ErrorIs(err, database.ErrAvoidCorruption)
	require.ErrorIs(err, errTest)

	_, err = db.Has([]byte("a"))
	require.ErrorIs(err, database.ErrAvoidCorruption)
	require.ErrorIs(db.Delete([]byte("a")), database.ErrAvoidCorruption)
	require.ErrorIs(db.NewBatch().Write(), database.ErrAvoidCorruption)
}

func TestNotFoundIsNotCorruption(t *testing.T) {
	require := require.New(t)

	db := New(memdb.New())
	_, err := db.Get([]byte("missing"))
	require.ErrorIs(err, database.ErrNotFound)
	require.NoError(db.Put([]byte("a"), []byte("1")))
}
