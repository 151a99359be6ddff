// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package memdb

import (
	"bytes"
	"context"
	"slices"
	"sync"

	"github.com/google/btree"

	"github.com/ava-labs/ledgerdb/database"
)

const (
	// Name is the name of this database for database switches
	Name = "memdb"

	// degree of the backing b-tree
	treeDegree = 32

	// number of entries an iterator pulls from its snapshot at a time
	iteratorChunkSize = 256
)

var (
	_ database.Database = (*Database)(nil)
	_ database.Batch    = (*batch)(nil)
	_ database.Iterator = (*iterator)(nil)
)

type entry struct {
	key   []byte
	value []byte
}

func entryLess(a, b entry) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// Database is an ephemeral, ordered key-value store that implements the
// Database interface. Iterators read from a copy-on-write snapshot of the
// tree taken when they are created.
type Database struct {
	lock   sync.RWMutex
	tree   *btree.BTreeG[entry]
	closed bool
}

// New returns an empty in-memory database.
func New() *Database {
	return &Database{tree: btree.NewG[entry](treeDegree, entryLess)}
}

// Copy returns a Database with the same key-value pairs as db
func Copy(db *Database) (*Database, error) {
	// Clone mutates the tree's copy-on-write state.
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.closed {
		return nil, database.ErrClosed
	}
	return &Database{tree: db.tree.Clone()}, nil
}

func (db *Database) Close() error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.closed {
		return database.ErrClosed
	}
	db.closed = true
	db.tree = nil
	return nil
}

func (db *Database) isClosed() bool {
	db.lock.RLock()
	defer db.lock.RUnlock()

	return db.closed
}

func (db *Database) Has(key []byte) (bool, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.closed {
		return false, database.ErrClosed
	}
	return db.tree.Has(entry{key: key}), nil
}

func (db *Database) Get(key []byte) ([]byte, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.closed {
		return nil, database.ErrClosed
	}
	if e, ok := db.tree.Get(entry{key: key}); ok {
		return slices.Clone(e.value), nil
	}
	return nil, database.ErrNotFound
}

func (db *Database) Put(key []byte, value []byte) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.closed {
		return database.ErrClosed
	}
	db.tree.ReplaceOrInsert(entry{
		key:   slices.Clone(key),
		value: slices.Clone(value),
	})
	return nil
}

func (db *Database) Delete(key []byte) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.closed {
		return database.ErrClosed
	}
	db.tree.Delete(entry{key: key})
	return nil
}

// Len returns the number of keys in the database.
func (db *Database) Len() int {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.closed {
		return 0
	}
	return db.tree.Len()
}

func (db *Database) NewBatch() database.Batch {
	return &batch{db: db}
}

func (db *Database) NewIterator() database.Iterator {
	return db.NewIteratorWithStartAndPrefix(nil, nil)
}

func (db *Database) NewIteratorWithStart(start []byte) database.Iterator {
	return db.NewIteratorWithStartAndPrefix(start, nil)
}

func (db *Database) NewIteratorWithPrefix(prefix []byte) database.Iterator {
	return db.NewIteratorWithStartAndPrefix(nil, prefix)
}

func (db *Database) NewIteratorWithStartAndPrefix(start, prefix []byte) database.Iterator {
	// Clone mutates the tree's copy-on-write state.
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.closed {
		return &database.IteratorError{
			Err: database.ErrClosed,
		}
	}

	// Keys need to be both >= start and >= prefix to be returned.
	seek := start
	if bytes.Compare(prefix, seek) > 0 {
		seek = prefix
	}
	return &iterator{
		db:       db,
		snapshot: db.tree.Clone(),
		next:     slices.Clone(seek),
		prefix:   slices.Clone(prefix),
	}
}

func (db *Database) Compact(_, _ []byte) error {
	if db.isClosed() {
		return database.ErrClosed
	}
	return nil
}

func (db *Database) HealthCheck(context.Context) (interface{}, error) {
	if db.isClosed() {
		return nil, database.ErrClosed
	}
	return nil, nil
}

type batch struct {
	database.BatchOps

	db *Database
}

func (b *batch) Write() error {
	b.db.lock.Lock()
	defer b.db.lock.Unlock()

	if b.db.closed {
		return database.ErrClosed
	}

	for _, op := range b.Ops {
		if op.Delete {
			b.db.tree.Delete(entry{key: op.Key})
		} else {
			b.db.tree.ReplaceOrInsert(entry{key: op.Key, value: op.Value})
		}
	}
	return nil
}

func (b *batch) Inner() database.Batch {
	return b
}

type iterator struct {
	db       *Database
	snapshot *btree.BTreeG[entry]
	prefix   []byte

	// next is the smallest key the following refill may return. It is nil
	// once the snapshot is exhausted and [started] is true.
	next    []byte
	started bool
	done    bool

	buffered []entry
	current  entry
	err      error
}

func (it *iterator) Next() bool {
	// Short-circuit and set an error if the underlying database has been closed.
	if it.db.isClosed() {
		it.release()
		it.err = database.ErrClosed
		return false
	}
	if len(it.buffered) == 0 && !it.done {
		it.fill()
	}
	if len(it.buffered) == 0 {
		it.current = entry{}
		return false
	}
	it.current = it.buffered[0]
	it.buffered = it.buffered[1:]
	return true
}

func (it *iterator) fill() {
	if it.snapshot == nil {
		it.done = true
		return
	}
	pivot := entry{key: it.next}
	skipPivot := it.started
	it.started = true
	it.snapshot.AscendGreaterOrEqual(pivot, func(e entry) bool {
		if skipPivot && bytes.Equal(e.key, pivot.key) {
			return true
		}
		if !bytes.HasPrefix(e.key, it.prefix) {
			it.done = true
			return false
		}
		it.buffered = append(it.buffered, e)
		return len(it.buffered) < iteratorChunkSize
	})
	if len(it.buffered) < iteratorChunkSize {
		it.done = true
		return
	}
	it.next = it.buffered[len(it.buffered)-1].key
}

func (it *iterator) Error() error {
	return it.err
}

func (it *iterator) Key() []byte {
	return it.current.key
}

func (it *iterator) Value() []byte {
	return it.current.value
}

func (it *iterator) Release() {
	it.release()
}

func (it *iterator) release() {
	it.snapshot = nil
	it.buffered = nil
	it.current = entry{}
	it.done = true
}
