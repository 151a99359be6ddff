// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/ava-labs/ledgerdb/utils/maybe"
	"github.com/ava-labs/ledgerdb/utils/wrappers"
)

const writeSetCodecVersion = 0

var errUnknownCodecVersion = errors.New("unknown codec version")

// WriteOp sets [Key] to [Value]. A Nothing value deletes the key.
type WriteOp struct {
	Key   StateKey
	Value maybe.Maybe[[]byte]
}

func (op WriteOp) IsDeletion() bool {
	return op.Value.IsNothing()
}

// WriteSet is the ordered list of writes produced by one transaction.
type WriteSet []WriteOp

// Put appends a write of [value] to [key].
func (ws *WriteSet) Put(key StateKey, value []byte) {
	*ws = append(*ws, WriteOp{Key: key, Value: maybe.Some(value)})
}

// Delete appends a deletion of [key].
func (ws *WriteSet) Delete(key StateKey) {
	*ws = append(*ws, WriteOp{Key: key, Value: maybe.Nothing[[]byte]()})
}

// Dedup returns the last write to every key, in order of first appearance.
func (ws WriteSet) Dedup() WriteSet {
	index := make(map[StateKey]int, len(ws))
	out := make(WriteSet, 0, len(ws))
	for _, op := range ws {
		if i, ok := index[op.Key]; ok {
			out[i] = op
			continue
		}
		index[op.Key] = len(out)
		out = append(out, op)
	}
	return out
}

func (ws WriteSet) Equal(other WriteSet) bool {
	if len(ws) != len(other) {
		return false
	}
	for i, op := range ws {
		o := other[i]
		if op.Key != o.Key || !maybe.Equal(op.Value, o.Value, bytes.Equal) {
			return false
		}
	}
	return true
}

func (ws WriteSet) Marshal() ([]byte, error) {
	p := wrappers.Packer{MaxSize: math.MaxInt32}
	p.PackByte(writeSetCodecVersion)
	p.PackInt(uint32(len(ws)))
	for _, op := range ws {
		p.PackBytes(op.Key.Bytes())
		p.PackBool(op.Value.HasValue())
		if op.Value.HasValue() {
			p.PackBytes(op.Value.Value())
		}
	}
	return p.Bytes, p.Err
}

func ParseWriteSet(b []byte) (WriteSet, error) {
	p := wrappers.Packer{Bytes: b}
	if v := p.UnpackByte(); !p.Errored() && v != writeSetCodecVersion {
		return nil, fmt.Errorf("%w: %d", errUnknownCodecVersion, v)
	}
	numOps := p.UnpackInt()
	if p.Errored() {
		return nil, p.Err
	}
	// Every op takes at least 5 bytes
	if uint64(numOps)*5 > uint64(len(b)) {
		return nil, wrappers.ErrInsufficientLength
	}

	ws := make(WriteSet, 0, numOps)
	for i := uint32(0); i < numOps && !p.Errored(); i++ {
		keyBytes := p.UnpackBytes()
		hasValue := p.UnpackBool()
		value := maybe.Nothing[[]byte]()
		if hasValue {
			value = maybe.Some(bytes.Clone(p.UnpackBytes()))
		}
		if p.Errored() {
			break
		}
		key, err := ParseStateKey(keyBytes)
		if err != nil {
			return nil, err
		}
		ws = append(ws, WriteOp{Key: key, Value: value})
	}
	if p.Errored() {
		return nil, p.Err
	}
	if p.Offset != len(b) {
		return nil, fmt.Errorf("%w: %d trailing bytes", wrappers.ErrInsufficientLength, len(b)-p.Offset)
	}
	return ws, nil
}
