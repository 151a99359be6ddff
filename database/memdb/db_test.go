// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package memdb

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/ledgerdb/database/dbtest"
)

func TestInterface(t *testing.T) {
	for name, test := range dbtest.Tests {
		t.Run(name, func(t *testing.T) {
			test(t, New())
		})
	}
}

func TestIteratorSpansChunks(t *testing.T) {
	require := require.New(t)

	db := New()
	const numKeys = 3*iteratorChunkSize + 7
	for i := 0; i < numKeys; i++ {
		require.NoError(db.Put([]byte(fmt.Sprintf("k%06d", i)), []byte{byte(i)}))
	}
	require.NoError(db.Put([]byte("z"), nil))

	it := db.NewIteratorWithPrefix([]byte("k"))
	defer it.Release()

	count := 0
	for it.Next() {
		require.Equal([]byte(fmt.Sprintf("k%06d", count)), it.Key())
		count++
	}
	require.NoError(it.Error())
	require.Equal(numKeys, count)
}

func TestIteratorSnapshot(t *testing.T) {
	require := require.New(t)

	db := New()
	require.NoError(db.Put([]byte("a"), []byte("1")))

	it := db.NewIterator()
	defer it.Release()

	require.NoError(db.Put([]byte("b"), []byte("2")))
	require.NoError(db.Delete([]byte("a")))

	require.True(it.Next())
	require.Equal([]byte("a"), it.Key())
	require.False(it.Next())
}

func TestCopy(t *testing.T) {
	require := require.New(t)

	db := New()
	require.NoError(db.Put([]byte("a"), []byte("1")))

	cp, err := Copy(db)
	require.NoError(err)
	require.NoError(db.Delete([]byte("a")))

	v, err := cp.Get([]byte("a"))
	require.NoError(err)
	require.Equal([]byte("1"), v)
	require.Zero(db.Len())
}

func TestConcurrentIterators(t *testing.T) {
	require := require.New(t)

	db := New()
	const numKeys = 64
	for i := 0; i < numKeys; i++ {
		require.NoError(db.Put([]byte(fmt.Sprintf("k%03d", i)), []byte{byte(i)}))
	}

	var (
		wg     sync.WaitGroup
		counts = make([]int, 4)
	)
	for i := range counts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			for round := 0; round < 100; round++ {
				it := db.NewIterator()
				for it.Next() {
					counts[i]++
				}
				it.Release()
			}
		}(i)
	}
	for i := 0; i < numKeys; i++ {
		require.NoError(db.Put([]byte(fmt.Sprintf("k%03d", i)), []byte{byte(i + 1)}))
	}
	wg.Wait()

	for _, count := range counts {
		require.Equal(100*numKeys, count)
	}
}
