// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package meterdb

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/ledgerdb/database/dbtest"
	"github.com/ava-labs/ledgerdb/database/memdb"
)

func TestInterface(t *testing.T) {
	for name, test := range dbtest.Tests {
		t.Run(name, func(t *testing.T) {
			db, err := New(prometheus.NewRegistry(), memdb.New())
			require.NoError(t, err)

			test(t, db)
		})
	}
}

func TestCallsCounted(t *testing.T) {
	require := require.New(t)

	db, err := New(prometheus.NewRegistry(), memdb.New())
	require.NoError(err)

	require.NoError(db.Put([]byte("k"), []byte("v")))
	_, err = db.Get([]byte("k"))
	require.NoError(err)
	_, err = db.Get([]byte("k"))
	require.NoError(err)

	require.InDelta(1, testutil.ToFloat64(db.calls.With(putLabel)), 0)
	require.InDelta(2, testutil.ToFloat64(db.calls.With(getLabel)), 0)
	require.InDelta(2, testutil.ToFloat64(db.size.With(putLabel)), 0)
	require.InDelta(4, testutil.ToFloat64(db.size.With(getLabel)), 0)
}

func TestDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg, memdb.New())
	require.NoError(t, err)
	_, err = New(reg, memdb.New())
	require.Error(t, err)
}
