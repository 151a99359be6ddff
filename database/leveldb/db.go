// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package leveldb

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"sync/atomic"

	"github.com/syndtr/goleveldb/leveldb"
	lvlerrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
	"go.uber.org/zap"

	"github.com/ava-labs/ledgerdb/database"
	"github.com/ava-labs/ledgerdb/utils/logging"
	"github.com/ava-labs/ledgerdb/utils/units"
)

const (
	Name = "leveldb"

	// levelDBByteOverhead is the number of bytes of constant overhead that
	// should be added to a batch size per operation.
	levelDBByteOverhead = 8
)

var (
	_ database.Database = (*Database)(nil)
	_ database.Batch    = (*batch)(nil)
	_ database.Iterator = (*iter)(nil)

	DefaultConfig = Config{
		BlockCacheCapacity:     12 * units.MiB,
		BlockSize:              4 * units.KiB,
		CompactionTableSize:    2 * units.MiB,
		OpenFilesCacheCapacity: 1024,
		WriteBuffer:            6 * units.MiB,
		FilterBitsPerKey:       10,
	}
)

// Config is the subset of goleveldb options exposed to operators.
type Config struct {
	BlockCacheCapacity     int `json:"blockCacheCapacity"`
	BlockSize              int `json:"blockSize"`
	CompactionTableSize    int `json:"compactionTableSize"`
	OpenFilesCacheCapacity int `json:"openFilesCacheCapacity"`
	WriteBuffer            int `json:"writeBuffer"`
	FilterBitsPerKey       int `json:"filterBitsPerKey"`
	// SyncWrites forces an fsync on every write and batch commit.
	SyncWrites bool `json:"syncWrites"`
}

// Database is a persistent key-value store backed by goleveldb.
type Database struct {
	db *leveldb.DB

	log          logging.Logger
	writeOptions *opt.WriteOptions
	closed       atomic.Bool
}

// New returns a wrapped LevelDB object.
func New(file string, cfg Config, log logging.Logger) (*Database, error) {
	opts := &opt.Options{
		BlockCacheCapacity:     cfg.BlockCacheCapacity,
		BlockSize:              cfg.BlockSize,
		CompactionTableSize:    cfg.CompactionTableSize,
		OpenFilesCacheCapacity: cfg.OpenFilesCacheCapacity,
		WriteBuffer:            cfg.WriteBuffer,
	}
	if cfg.FilterBitsPerKey > 0 {
		opts.Filter = filter.NewBloomFilter(cfg.FilterBitsPerKey)
	}

	db, err := leveldb.OpenFile(file, opts)
	if lvlerrors.IsCorrupted(err) {
		log.Warn("recovering corrupted leveldb",
			zap.String("path", file),
			zap.Error(err),
		)
		db, err = leveldb.RecoverFile(file, opts)
	}
	if err != nil {
		return nil, err
	}

	log.Info("opened leveldb",
		zap.String("path", file),
		zap.Int("blockCacheCapacity", cfg.BlockCacheCapacity),
	)
	return &Database{
		db:           db,
		log:          log,
		writeOptions: &opt.WriteOptions{Sync: cfg.SyncWrites},
	}, nil
}

func (db *Database) Has(key []byte) (bool, error) {
	if db.closed.Load() {
		return false, database.ErrClosed
	}
	has, err := db.db.Has(key, nil)
	return has, updateError(err)
}

func (db *Database) Get(key []byte) ([]byte, error) {
	if db.closed.Load() {
		return nil, database.ErrClosed
	}
	value, err := db.db.Get(key, nil)
	return value, updateError(err)
}

func (db *Database) Put(key []byte, value []byte) error {
	if db.closed.Load() {
		return database.ErrClosed
	}
	return updateError(db.db.Put(key, value, db.writeOptions))
}

func (db *Database) Delete(key []byte) error {
	if db.closed.Load() {
		return database.ErrClosed
	}
	return updateError(db.db.Delete(key, db.writeOptions))
}

func (db *Database) NewBatch() database.Batch {
	return &batch{db: db}
}

func (db *Database) NewIterator() database.Iterator {
	return db.newIterator(nil)
}

func (db *Database) NewIteratorWithStart(start []byte) database.Iterator {
	return db.newIterator(&util.Range{Start: start})
}

func (db *Database) NewIteratorWithPrefix(prefix []byte) database.Iterator {
	return db.newIterator(util.BytesPrefix(prefix))
}

// NewIteratorWithStartAndPrefix iterates over keys beginning with [prefix],
// skipping those lexically smaller than [start].
func (db *Database) NewIteratorWithStartAndPrefix(start, prefix []byte) database.Iterator {
	iterRange := util.BytesPrefix(prefix)
	if bytes.Compare(start, prefix) == 1 {
		iterRange.Start = start
	}
	return db.newIterator(iterRange)
}

func (db *Database) newIterator(r *util.Range) database.Iterator {
	if db.closed.Load() {
		return &database.IteratorError{
			Err: database.ErrClosed,
		}
	}
	return &iter{
		db:       db,
		Iterator: db.db.NewIterator(r, nil),
	}
}

// Compact a range of keys. A nil limit compacts to the end of the keyspace.
func (db *Database) Compact(start []byte, limit []byte) error {
	if db.closed.Load() {
		return database.ErrClosed
	}
	return updateError(db.db.CompactRange(util.Range{Start: start, Limit: limit}))
}

func (db *Database) Close() error {
	if db.closed.Swap(true) {
		return database.ErrClosed
	}
	return updateError(db.db.Close())
}

func (db *Database) HealthCheck(context.Context) (interface{}, error) {
	if db.closed.Load() {
		return nil, database.ErrClosed
	}
	var stats leveldb.DBStats
	if err := db.db.Stats(&stats); err != nil {
		return nil, updateError(err)
	}
	return map[string]interface{}{
		"openedTables": stats.OpenedTablesCount,
		"aliveIters":   stats.AliveIterators,
	}, nil
}

// batch is a wrapper around a levelDB batch to contain sizes.
type batch struct {
	leveldb.Batch
	db   *Database
	size int
}

func (b *batch) Put(key, value []byte) error {
	b.Batch.Put(key, value)
	b.size += len(key) + len(value) + levelDBByteOverhead
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.Batch.Delete(key)
	b.size += len(key) + levelDBByteOverhead
	return nil
}

func (b *batch) Size() int {
	return b.size
}

func (b *batch) Write() error {
	if b.db.closed.Load() {
		return database.ErrClosed
	}
	return updateError(b.db.db.Write(&b.Batch, b.db.writeOptions))
}

func (b *batch) Reset() {
	b.Batch.Reset()
	b.size = 0
}

func (b *batch) Replay(w database.KeyValueWriterDeleter) error {
	replay := &replayer{writerDeleter: w}
	if err := b.Batch.Replay(replay); err != nil {
		// Never actually returns an error, because Replay just returns nil
		return err
	}
	return replay.err
}

func (b *batch) Inner() database.Batch {
	return b
}

type replayer struct {
	writerDeleter database.KeyValueWriterDeleter
	err           error
}

func (r *replayer) Put(key, value []byte) {
	if r.err != nil {
		return
	}
	r.err = r.writerDeleter.Put(slices.Clone(key), slices.Clone(value))
}

func (r *replayer) Delete(key []byte) {
	if r.err != nil {
		return
	}
	r.err = r.writerDeleter.Delete(slices.Clone(key))
}

type iter struct {
	iterator.Iterator

	db  *Database
	key []byte
	val []byte
	err error
}

func (it *iter) Next() bool {
	// Short-circuit and set an error if the underlying database has been closed.
	if it.db.closed.Load() {
		it.key = nil
		it.val = nil
		it.err = database.ErrClosed
		return false
	}

	hasNext := it.Iterator.Next()
	if hasNext {
		it.key = slices.Clone(it.Iterator.Key())
		it.val = slices.Clone(it.Iterator.Value())
	} else {
		it.key = nil
		it.val = nil
	}
	return hasNext
}

func (it *iter) Error() error {
	if it.err != nil {
		return it.err
	}
	return updateError(it.Iterator.Error())
}

func (it *iter) Key() []byte {
	return it.key
}

func (it *iter) Value() []byte {
	return it.val
}

// updateError casts leveldb-specific errors to the errors callers of
// [database.Database] expect to see.
func updateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, leveldb.ErrClosed):
		return database.ErrClosed
	case errors.Is(err, leveldb.ErrNotFound):
		return database.ErrNotFound
	default:
		return err
	}
}
