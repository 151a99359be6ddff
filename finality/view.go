// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package finality exposes the finalized prefix of a ledger store. A store
// may be synced past the latest block agreed on by consensus; the View hides
// everything after it from callers asking for the latest state.
package finality

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ava-labs/ledgerdb/statedb"
	"github.com/ava-labs/ledgerdb/types"
)

var (
	_ statedb.Reader = (*View)(nil)

	ErrNoLedgerState   = errors.New("no ledger states to finalize")
	ErrFinalityTooHigh = errors.New("finality version exceeds committed version")
)

// View is a statedb.Reader whose latest version is the last version of the
// latest finalized block. Every other read is served by the wrapped reader.
type View struct {
	statedb.Reader

	lock      sync.RWMutex
	finalized *types.LedgerInfoWithSignatures
}

func NewView(reader statedb.Reader) *View {
	return &View{Reader: reader}
}

// SetFinalizedBlockHeight marks the block at [height] as the latest finalized
// block. The block must already be committed.
//
// The resulting ledger info carries no signatures.
func (v *View) SetFinalizedBlockHeight(height uint64) error {
	committed, err := v.Reader.GetLatestStateCheckpointVersion()
	if errors.Is(err, statedb.ErrNotFound) {
		return ErrNoLedgerState
	}
	if err != nil {
		return err
	}
	info, err := v.Reader.GetBlockInfoByHeight(height)
	if err != nil {
		return fmt.Errorf("failed to get block at height %d: %w", height, err)
	}
	if info.LastVersion > committed {
		return fmt.Errorf("%w: %d > %d", ErrFinalityTooHigh, info.LastVersion, committed)
	}
	finalized := &types.LedgerInfoWithSignatures{
		LedgerInfo: types.LedgerInfo{
			Epoch:         info.Epoch,
			Round:         info.Round,
			BlockID:       info.BlockID,
			RootDigest:    info.RootDigest,
			Version:       info.LastVersion,
			TimestampUsec: info.TimestampUsec,
		},
	}

	v.lock.Lock()
	defer v.lock.Unlock()

	v.finalized = finalized
	return nil
}

func (v *View) GetLatestVersion() (uint64, error) {
	finalized, err := v.GetLatestLedgerInfo()
	if err != nil {
		return 0, err
	}
	return finalized.Version, nil
}

func (v *View) GetLatestLedgerInfo() (*types.LedgerInfoWithSignatures, error) {
	v.lock.RLock()
	defer v.lock.RUnlock()

	if v.finalized == nil {
		return nil, fmt.Errorf("%w: no finalized block", statedb.ErrNotFound)
	}
	return v.finalized, nil
}

// GetLatestStateCheckpointVersion returns the last version of the latest
// finalized block.
func (v *View) GetLatestStateCheckpointVersion() (uint64, error) {
	return v.GetLatestVersion()
}
