// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package leveldb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/ledgerdb/database"
	"github.com/ava-labs/ledgerdb/database/dbtest"
	"github.com/ava-labs/ledgerdb/utils/logging"
)

func newDB(t testing.TB) *Database {
	folder := filepath.Join(t.TempDir(), "db")
	db, err := New(folder, DefaultConfig, logging.NoLog{})
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

func TestReopenKeepsData(t *testing.T) {
	require := require.New(t)

	folder := filepath.Join(t.TempDir(), "db")
	db, err := New(folder, DefaultConfig, logging.NoLog{})
	require.NoError(err)
	require.NoError(db.Put([]byte("version"), database.PackUInt64(9)))
	require.NoError(db.Close())

	db, err = New(folder, DefaultConfig, logging.NoLog{})
	require.NoError(err)
	defer db.Close()

	v, err := database.GetUInt64(db, []byte("version"))
	require.NoError(err)
	require.Equal(uint64(9), v)
}

func TestHealthCheck(t *testing.T) {
	require := require.New(t)

	db := newDB(t)
	_, err := db.HealthCheck(context.Background())
	require.NoError(err)
	require.NoError(db.Close())
	_, err = db.HealthCheck(context.Background())
	require.ErrorIs(err, database.ErrClosed)
}
