// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package schema

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/ava-labs/ledgerdb/database"
	"github.com/ava-labs/ledgerdb/ids"
	"github.com/ava-labs/ledgerdb/types"
	"github.com/ava-labs/ledgerdb/utils/maybe"
	"github.com/ava-labs/ledgerdb/utils/wrappers"
)

const (
	valueKeyLen        = ids.IDLen + database.Uint64Size
	staleValueIndexLen = database.Uint64Size + valueKeyLen
)

var (
	errInvalidKeyLen  = errors.New("invalid key length")
	errTrailingRecord = errors.New("trailing bytes in value record")
)

// ValueKey orders the versions of a key from newest to oldest, so the first
// entry at or after ValueKey(keyHash, v) is the latest write at or before v.
func ValueKey(keyHash ids.ID, version uint64) []byte {
	b := make([]byte, valueKeyLen)
	copy(b, keyHash[:])
	binary.BigEndian.PutUint64(b[ids.IDLen:], math.MaxUint64-version)
	return b
}

func ParseValueKey(b []byte) (ids.ID, uint64, error) {
	if len(b) != valueKeyLen {
		return ids.Empty, 0, fmt.Errorf("%w: value key of %d bytes", errInvalidKeyLen, len(b))
	}
	var keyHash ids.ID
	copy(keyHash[:], b)
	return keyHash, math.MaxUint64 - binary.BigEndian.Uint64(b[ids.IDLen:]), nil
}

// StaleValueIndex records that the write of [KeyHash] at [Version] is shadowed
// by a newer write from [StaleSince] on.
type StaleValueIndex struct {
	StaleSince uint64
	KeyHash    ids.ID
	Version    uint64
}

func (s StaleValueIndex) Bytes() []byte {
	b := make([]byte, staleValueIndexLen)
	binary.BigEndian.PutUint64(b, s.StaleSince)
	copy(b[database.Uint64Size:], s.KeyHash[:])
	binary.BigEndian.PutUint64(b[database.Uint64Size+ids.IDLen:], s.Version)
	return b
}

func ParseStaleValueIndex(b []byte) (StaleValueIndex, error) {
	if len(b) != staleValueIndexLen {
		return StaleValueIndex{}, fmt.Errorf("%w: stale value index of %d bytes", errInvalidKeyLen, len(b))
	}
	s := StaleValueIndex{
		StaleSince: binary.BigEndian.Uint64(b),
		Version:    binary.BigEndian.Uint64(b[database.Uint64Size+ids.IDLen:]),
	}
	copy(s.KeyHash[:], b[database.Uint64Size:])
	return s, nil
}

// VersionKey is the key of per-version and per-height records. Big endian
// keeps iteration in numeric order.
func VersionKey(version uint64) []byte {
	return database.PackUInt64(version)
}

func ParseVersionKey(b []byte) (uint64, error) {
	return database.ParseUInt64(b)
}

// EncodeValue encodes the value written to [key] in the value namespace.
func EncodeValue(key types.StateKey, value maybe.Maybe[[]byte]) []byte {
	keyBytes := key.Bytes()
	size := wrappers.IntLen + len(keyBytes) + wrappers.BoolLen
	if value.HasValue() {
		size += wrappers.IntLen + len(value.Value())
	}
	p := wrappers.Packer{Bytes: make([]byte, 0, size), MaxSize: math.MaxInt32}
	p.PackBytes(keyBytes)
	p.PackBool(value.HasValue())
	if value.HasValue() {
		p.PackBytes(value.Value())
	}
	return p.Bytes
}

func DecodeValue(b []byte) (types.StateKey, maybe.Maybe[[]byte], error) {
	p := wrappers.Packer{Bytes: b}
	keyBytes := p.UnpackBytes()
	hasValue := p.UnpackBool()
	value := maybe.Nothing[[]byte]()
	if hasValue {
		value = maybe.Some(bytes.Clone(p.UnpackBytes()))
	}
	if p.Errored() {
		return types.StateKey{}, value, p.Err
	}
	if p.Offset != len(b) {
		return types.StateKey{}, value, fmt.Errorf("%w: %d", errTrailingRecord, len(b)-p.Offset)
	}
	key, err := types.ParseStateKey(keyBytes)
	return key, value, err
}
