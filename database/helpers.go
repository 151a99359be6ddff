// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package database

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const Uint64Size = 8 // bytes

var errWrongSize = errors.New("value has unexpected size")

func PutUInt64(db KeyValueWriter, key []byte, val uint64) error {
	return db.Put(key, PackUInt64(val))
}

func GetUInt64(db KeyValueReader, key []byte) (uint64, error) {
	b, err := db.Get(key)
	if err != nil {
		return 0, err
	}
	return ParseUInt64(b)
}

func PackUInt64(val uint64) []byte {
	bytes := make([]byte, Uint64Size)
	binary.BigEndian.PutUint64(bytes, val)
	return bytes
}

func ParseUInt64(b []byte) (uint64, error) {
	if len(b) != Uint64Size {
		return 0, fmt.Errorf("%w: expected %d bytes but got %d", errWrongSize, Uint64Size, len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

// WithDefault returns the value at [key] in [db]. If the key doesn't exist, it
// returns [def].
func WithDefault[V any](
	get func(KeyValueReader, []byte) (V, error),
	db KeyValueReader,
	key []byte,
	def V,
) (V, error) {
	v, err := get(db, key)
	if errors.Is(err, ErrNotFound) {
		return def, nil
	}
	return v, err
}

// Count returns the number of keys in [db].
func Count(db Iteratee) (int, error) {
	return CountPrefix(db, nil)
}

// CountPrefix returns the number of keys in [db] starting with [prefix].
func CountPrefix(db Iteratee, prefix []byte) (int, error) {
	iterator := db.NewIteratorWithPrefix(prefix)
	defer iterator.Release()

	count := 0
	for iterator.Next() {
		count++
	}
	return count, iterator.Error()
}

// ClearPrefix removes all keys with the given [prefix] from [db].
// Writes each batch when it reaches [writeSize].
func ClearPrefix(db Database, prefix []byte, writeSize int) error {
	b := db.NewBatch()
	it := db.NewIteratorWithPrefix(prefix)
	// Defer the release of the iterator inside a closure to guarantee that the
	// latest, not the first, iterator is released on return.
	defer func() {
		it.Release()
	}()

	for it.Next() {
		if err := b.Delete(it.Key()); err != nil {
			return err
		}
		if b.Size() < writeSize {
			continue
		}

		if err := b.Write(); err != nil {
			return err
		}
		b.Reset()

		// Reset the iterator to release references to now deleted keys.
		if err := it.Error(); err != nil {
			return err
		}
		it.Release()
		it = db.NewIteratorWithPrefix(prefix)
	}

	if err := b.Write(); err != nil {
		return err
	}
	return it.Error()
}

// DeleteRange deletes from [w] every key of [db] in [start, end). A nil [end]
// deletes every key from [start] on. It returns the number of deleted keys.
func DeleteRange(db Iteratee, w KeyValueDeleter, start, end []byte) (int, error) {
	it := db.NewIteratorWithStart(start)
	defer it.Release()

	deleted := 0
	for it.Next() {
		key := it.Key()
		if end != nil && bytes.Compare(key, end) >= 0 {
			break
		}
		if err := w.Delete(key); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, it.Error()
}
