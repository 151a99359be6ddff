// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package schema defines how the ledger store lays its data out in a
// database.Database. Every family of records lives under its own prefix and
// all of them are written through one base batch so a commit is atomic.
package schema

import (
	"github.com/ava-labs/ledgerdb/database"
	"github.com/ava-labs/ledgerdb/database/prefixdb"
	"github.com/ava-labs/ledgerdb/utils/wrappers"
)

var (
	valuePrefix               = []byte("value")
	staleValuePrefix          = []byte("staleValue")
	nodePrefix                = []byte("node")
	staleNodePrefix           = []byte("staleNode")
	staleNodeCrossEpochPrefix = []byte("staleNodeCrossEpoch")
	writeSetPrefix            = []byte("writeSet")
	ledgerInfoPrefix          = []byte("ledgerInfo")
	epochPrefix               = []byte("epoch")
	epochVersionPrefix        = []byte("epochVersion")
	blockInfoPrefix           = []byte("blockInfo")
	metadataPrefix            = []byte("metadata")

	LatestVersionKey            = []byte("latestVersion")
	LatestLedgerInfoKey         = []byte("latestLedgerInfo")
	SnapshotVersionKey          = []byte("snapshotVersion")
	LatestEpochEndingVersionKey = []byte("latestEpochEndingVersion")
	NextBlockHeightKey          = []byte("nextBlockHeight")
)

// DB is a database split into the namespaces of the ledger store.
type DB struct {
	Base database.Database

	// keyHash || ^version -> value record
	Values *prefixdb.Database
	// staleSince || keyHash || version -> nil
	StaleValues *prefixdb.Database
	// merkle.NodeKey -> node
	Nodes *prefixdb.Database
	// merkle.StaleNodeIndex -> nil
	StaleNodes *prefixdb.Database
	// merkle.StaleNodeIndex -> nil
	StaleNodesCrossEpoch *prefixdb.Database
	// version -> types.WriteSet
	WriteSets *prefixdb.Database
	// version -> types.LedgerInfoWithSignatures committed with the version
	LedgerInfos *prefixdb.Database
	// epoch -> epoch-ending types.LedgerInfoWithSignatures
	Epochs *prefixdb.Database
	// epoch-ending version -> epoch
	EpochVersions *prefixdb.Database
	// height -> types.BlockInfo
	BlockInfos *prefixdb.Database
	Metadata   *prefixdb.Database
}

func New(base database.Database) *DB {
	return &DB{
		Base:                 base,
		Values:               prefixdb.NewNested(valuePrefix, base),
		StaleValues:          prefixdb.NewNested(staleValuePrefix, base),
		Nodes:                prefixdb.NewNested(nodePrefix, base),
		StaleNodes:           prefixdb.NewNested(staleNodePrefix, base),
		StaleNodesCrossEpoch: prefixdb.NewNested(staleNodeCrossEpochPrefix, base),
		WriteSets:            prefixdb.NewNested(writeSetPrefix, base),
		LedgerInfos:          prefixdb.NewNested(ledgerInfoPrefix, base),
		Epochs:               prefixdb.NewNested(epochPrefix, base),
		EpochVersions:        prefixdb.NewNested(epochVersionPrefix, base),
		BlockInfos:           prefixdb.NewNested(blockInfoPrefix, base),
		Metadata:             prefixdb.NewNested(metadataPrefix, base),
	}
}

// Batch writes to every namespace and commits them together.
type Batch struct {
	base database.Batch

	Values               database.Batch
	StaleValues          database.Batch
	Nodes                database.Batch
	StaleNodes           database.Batch
	StaleNodesCrossEpoch database.Batch
	WriteSets            database.Batch
	LedgerInfos          database.Batch
	Epochs               database.Batch
	EpochVersions        database.Batch
	BlockInfos           database.Batch
	Metadata             database.Batch
}

func (d *DB) NewBatch() *Batch {
	base := d.Base.NewBatch()
	return &Batch{
		base:                 base,
		Values:               d.Values.WrapBatch(base),
		StaleValues:          d.StaleValues.WrapBatch(base),
		Nodes:                d.Nodes.WrapBatch(base),
		StaleNodes:           d.StaleNodes.WrapBatch(base),
		StaleNodesCrossEpoch: d.StaleNodesCrossEpoch.WrapBatch(base),
		WriteSets:            d.WriteSets.WrapBatch(base),
		LedgerInfos:          d.LedgerInfos.WrapBatch(base),
		Epochs:               d.Epochs.WrapBatch(base),
		EpochVersions:        d.EpochVersions.WrapBatch(base),
		BlockInfos:           d.BlockInfos.WrapBatch(base),
		Metadata:             d.Metadata.WrapBatch(base),
	}
}

// Size is the amount of data queued across all namespaces.
func (b *Batch) Size() int {
	return b.base.Size()
}

func (b *Batch) Write() error {
	return b.base.Write()
}

// Close releases every namespace. The base database is left open.
func (d *DB) Close() error {
	errs := wrappers.Errs{}
	errs.Add(
		d.Values.Close(),
		d.StaleValues.Close(),
		d.Nodes.Close(),
		d.StaleNodes.Close(),
		d.StaleNodesCrossEpoch.Close(),
		d.WriteSets.Close(),
		d.LedgerInfos.Close(),
		d.Epochs.Close(),
		d.EpochVersions.Close(),
		d.BlockInfos.Close(),
		d.Metadata.Close(),
	)
	return errs.Err
}
