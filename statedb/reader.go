// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package statedb

import (
	"github.com/ava-labs/ledgerdb/ids"
	"github.com/ava-labs/ledgerdb/statedb/merkle"
	"github.com/ava-labs/ledgerdb/statedb/pruner"
	"github.com/ava-labs/ledgerdb/types"
	"github.com/ava-labs/ledgerdb/utils/maybe"
)

var _ Reader = (*Store)(nil)

// Reader is the read-only view of a ledger store's committed history. Every
// read names the version it reads at.
type Reader interface {
	// Get returns the value of [key] at [version]. It returns ErrPruned if
	// [version] is below the ledger's minimum readable version, ErrNotFound
	// if [version] is above the latest version, and Nothing if [key] had no
	// value at [version].
	Get(key types.StateKey, version uint64) (maybe.Maybe[[]byte], error)
	// IterateKeys returns every key whose latest write is at or after
	// [fromVersion], ordered by key hash.
	IterateKeys(fromVersion uint64) (KeyIterator, error)
	// RootDigest returns the root hash of the state at [version].
	RootDigest(version uint64) (ids.ID, error)
	// GetWithProof returns the value of [key] at [version] and a proof of it
	// against RootDigest(version).
	GetWithProof(key types.StateKey, version uint64) (maybe.Maybe[[]byte], *merkle.Proof, error)

	GetWriteSet(version uint64) (types.WriteSet, error)
	// GetWriteSets returns up to [limit] write sets of the window described by
	// [order] and [start], in ascending version order.
	GetWriteSets(order types.Order, start, limit uint64) ([]types.WriteSet, error)

	GetLatestVersion() (uint64, error)
	GetLatestLedgerInfo() (*types.LedgerInfoWithSignatures, error)
	GetLatestStateCheckpointVersion() (uint64, error)
	GetBlockInfoByHeight(height uint64) (*types.BlockInfo, error)
	GetEpochEndingLedgerInfo(epoch uint64) (*types.LedgerInfoWithSignatures, error)

	MinReadableVersionFor(domain pruner.Domain) uint64
}

// KeyIterator is a lazy, forward only sequence of keys. It must be released.
type KeyIterator interface {
	Next() bool
	Key() types.StateKey
	Error() error
	Release()
}

// StateView reads a Reader at a fixed version.
type StateView struct {
	reader  Reader
	version uint64
}

func NewStateView(reader Reader, version uint64) *StateView {
	return &StateView{
		reader:  reader,
		version: version,
	}
}

func (v *StateView) Version() uint64 {
	return v.version
}

func (v *StateView) Get(key types.StateKey) (maybe.Maybe[[]byte], error) {
	return v.reader.Get(key, v.version)
}

// Keys iterates every key the underlying store has ever written, including
// keys written after this view's version.
func (v *StateView) Keys() (KeyIterator, error) {
	return v.reader.IterateKeys(0)
}
