// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/ava-labs/ledgerdb/ids"
	"github.com/ava-labs/ledgerdb/utils/wrappers"
)

const maxSignaturesLen = 1 << 20

var errTrailingBytes = errors.New("trailing bytes")

// LedgerInfo certifies the ledger state committed up to [Version].
type LedgerInfo struct {
	Epoch         uint64 `json:"epoch"`
	Round         uint64 `json:"round"`
	BlockID       ids.ID `json:"blockID"`
	RootDigest    ids.ID `json:"rootDigest"`
	Version       uint64 `json:"version"`
	TimestampUsec uint64 `json:"timestampUsec"`
	// EndsEpoch is set on the last ledger info of an epoch.
	EndsEpoch bool `json:"endsEpoch"`
}

// LedgerInfoWithSignatures is a finality certificate. Signatures are carried
// as opaque bytes.
type LedgerInfoWithSignatures struct {
	LedgerInfo `json:"ledgerInfo"`
	Signatures []byte `json:"signatures"`
}

func (li *LedgerInfoWithSignatures) Equal(other *LedgerInfoWithSignatures) bool {
	if li == nil || other == nil {
		return li == other
	}
	return li.LedgerInfo == other.LedgerInfo && bytes.Equal(li.Signatures, other.Signatures)
}

func (li *LedgerInfoWithSignatures) Marshal() ([]byte, error) {
	p := wrappers.Packer{MaxSize: math.MaxInt32}
	p.PackLong(li.Epoch)
	p.PackLong(li.Round)
	p.PackFixedBytes(li.BlockID[:])
	p.PackFixedBytes(li.RootDigest[:])
	p.PackLong(li.Version)
	p.PackLong(li.TimestampUsec)
	p.PackBool(li.EndsEpoch)
	p.PackBytes(li.Signatures)
	return p.Bytes, p.Err
}

func ParseLedgerInfoWithSignatures(b []byte) (*LedgerInfoWithSignatures, error) {
	p := wrappers.Packer{Bytes: b}
	li := &LedgerInfoWithSignatures{}
	li.Epoch = p.UnpackLong()
	li.Round = p.UnpackLong()
	copy(li.BlockID[:], p.UnpackFixedBytes(ids.IDLen))
	copy(li.RootDigest[:], p.UnpackFixedBytes(ids.IDLen))
	li.Version = p.UnpackLong()
	li.TimestampUsec = p.UnpackLong()
	li.EndsEpoch = p.UnpackBool()
	li.Signatures = bytes.Clone(p.UnpackLimitedBytes(maxSignaturesLen))
	if p.Errored() {
		return nil, p.Err
	}
	if p.Offset != len(b) {
		return nil, fmt.Errorf("%w: %d", errTrailingBytes, len(b)-p.Offset)
	}
	return li, nil
}

// BlockInfo describes the version range committed by one block. RootDigest
// is the state root at LastVersion and outlives the pruned tree nodes.
type BlockInfo struct {
	Height        uint64 `json:"height"`
	FirstVersion  uint64 `json:"firstVersion"`
	LastVersion   uint64 `json:"lastVersion"`
	Epoch         uint64 `json:"epoch"`
	Round         uint64 `json:"round"`
	BlockID       ids.ID `json:"blockID"`
	RootDigest    ids.ID `json:"rootDigest"`
	TimestampUsec uint64 `json:"timestampUsec"`
}

func (bi *BlockInfo) Marshal() ([]byte, error) {
	p := wrappers.Packer{MaxSize: math.MaxInt32}
	p.PackLong(bi.Height)
	p.PackLong(bi.FirstVersion)
	p.PackLong(bi.LastVersion)
	p.PackLong(bi.Epoch)
	p.PackLong(bi.Round)
	p.PackFixedBytes(bi.BlockID[:])
	p.PackFixedBytes(bi.RootDigest[:])
	p.PackLong(bi.TimestampUsec)
	return p.Bytes, p.Err
}

func ParseBlockInfo(b []byte) (*BlockInfo, error) {
	p := wrappers.Packer{Bytes: b}
	bi := &BlockInfo{}
	bi.Height = p.UnpackLong()
	bi.FirstVersion = p.UnpackLong()
	bi.LastVersion = p.UnpackLong()
	bi.Epoch = p.UnpackLong()
	bi.Round = p.UnpackLong()
	copy(bi.BlockID[:], p.UnpackFixedBytes(ids.IDLen))
	copy(bi.RootDigest[:], p.UnpackFixedBytes(ids.IDLen))
	bi.TimestampUsec = p.UnpackLong()
	if p.Errored() {
		return nil, p.Err
	}
	if p.Offset != len(b) {
		return nil, fmt.Errorf("%w: %d", errTrailingBytes, len(b)-p.Offset)
	}
	return bi, nil
}
