// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pruner

import (
	"context"

	"github.com/ava-labs/ledgerdb/database"
	"github.com/ava-labs/ledgerdb/statedb/merkle"
	"github.com/ava-labs/ledgerdb/statedb/schema"
)

const (
	StateMerklePrunerName   = "state_merkle_pruner"
	EpochSnapshotPrunerName = "epoch_snapshot_pruner"
)

var (
	_ Pruner = (*StateMerklePruner)(nil)

	stateMerkleProgressKey   = []byte("stateMerklePrunerProgress")
	epochSnapshotProgressKey = []byte("epochSnapshotPrunerProgress")
)

// StateMerklePruner deletes tree nodes listed in one stale node index once
// they are unreachable from every readable version. The state merkle pruner
// reads the regular index. The epoch snapshot pruner reads the index of
// nodes that some epoch-ending version still reaches.
type StateMerklePruner struct {
	progress

	name  string
	db    *schema.DB
	nodes *merkle.NodeDB
	index func(*schema.DB) database.Database
	batch func(*schema.Batch) database.Batch
}

func NewStateMerklePruner(db *schema.DB, nodes *merkle.NodeDB) *StateMerklePruner {
	return &StateMerklePruner{
		progress: progress{
			db:  db,
			key: stateMerkleProgressKey,
		},
		name:  StateMerklePrunerName,
		db:    db,
		nodes: nodes,
		index: func(db *schema.DB) database.Database { return db.StaleNodes },
		batch: func(b *schema.Batch) database.Batch { return b.StaleNodes },
	}
}

func NewEpochSnapshotPruner(db *schema.DB, nodes *merkle.NodeDB) *StateMerklePruner {
	return &StateMerklePruner{
		progress: progress{
			db:  db,
			key: epochSnapshotProgressKey,
		},
		name:  EpochSnapshotPrunerName,
		db:    db,
		nodes: nodes,
		index: func(db *schema.DB) database.Database { return db.StaleNodesCrossEpoch },
		batch: func(b *schema.Batch) database.Batch { return b.StaleNodesCrossEpoch },
	}
}

func (p *StateMerklePruner) Name() string {
	return p.name
}

func (p *StateMerklePruner) Prune(ctx context.Context, _, target uint64) (int, error) {
	var (
		batch   = p.db.NewBatch()
		stale   = p.batch(batch)
		deleted = 0
		evicted []merkle.NodeKey
	)

	it := p.index(p.db).NewIterator()
	defer it.Release()

	for it.Next() {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		index, err := merkle.ParseStaleNodeIndex(it.Key())
		if err != nil {
			return 0, err
		}
		if index.StaleSince > target {
			break
		}
		if err := batch.Nodes.Delete(index.NodeKey.Bytes()); err != nil {
			return 0, err
		}
		if err := stale.Delete(it.Key()); err != nil {
			return 0, err
		}
		evicted = append(evicted, index.NodeKey)
		deleted++
	}
	if err := it.Error(); err != nil {
		return 0, err
	}

	if err := p.save(batch, target); err != nil {
		return 0, err
	}
	if err := batch.Write(); err != nil {
		return 0, err
	}
	for _, key := range evicted {
		p.nodes.Evict(key)
	}
	return deleted, nil
}
