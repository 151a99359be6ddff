// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package database_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/ledgerdb/database"
	"github.com/ava-labs/ledgerdb/database/memdb"
)

func TestDeleteRange(t *testing.T) {
	tests := []struct {
		name         string
		start        []byte
		end          []byte
		expectedLeft []uint64
	}{
		{
			name:         "bounded",
			start:        database.PackUInt64(1),
			end:          database.PackUInt64(3),
			expectedLeft: []uint64{0, 3, 4},
		},
		{
			name:         "unbounded",
			start:        database.PackUInt64(2),
			expectedLeft: []uint64{0, 1},
		},
		{
			name:         "empty",
			start:        database.PackUInt64(3),
			end:          database.PackUInt64(3),
			expectedLeft: []uint64{0, 1, 2, 3, 4},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			db := memdb.New()
			for i := uint64(0); i < 5; i++ {
				require.NoError(database.PutUInt64(db, database.PackUInt64(i), i))
			}

			batch := db.NewBatch()
			deleted, err := database.DeleteRange(db, batch, test.start, test.end)
			require.NoError(err)
			require.Equal(5-len(test.expectedLeft), deleted)
			require.NoError(batch.Write())

			var left []uint64
			it := db.NewIterator()
			defer it.Release()
			for it.Next() {
				v, err := database.ParseUInt64(it.Value())
				require.NoError(err)
				left = append(left, v)
			}
			require.NoError(it.Error())
			require.Equal(test.expectedLeft, left)
		})
	}
}
