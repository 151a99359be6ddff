// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pruner

import (
	"context"

	"github.com/ava-labs/ledgerdb/database"
	"github.com/ava-labs/ledgerdb/statedb/schema"
)

const LedgerPrunerName = "ledger_pruner"

var (
	_ Pruner = (*LedgerPruner)(nil)

	ledgerProgressKey = []byte("ledgerPrunerProgress")
)

// LedgerPruner deletes the write sets and ledger infos of unreadable versions
// and the state values they shadowed.
type LedgerPruner struct {
	progress

	db *schema.DB
}

func NewLedgerPruner(db *schema.DB) *LedgerPruner {
	return &LedgerPruner{
		progress: progress{
			db:  db,
			key: ledgerProgressKey,
		},
		db: db,
	}
}

func (*LedgerPruner) Name() string {
	return LedgerPrunerName
}

func (p *LedgerPruner) Prune(ctx context.Context, current, target uint64) (int, error) {
	batch := p.db.NewBatch()
	deleted := 0

	for _, records := range []struct {
		db    database.Iteratee
		batch database.KeyValueDeleter
	}{
		{db: p.db.WriteSets, batch: batch.WriteSets},
		{db: p.db.LedgerInfos, batch: batch.LedgerInfos},
	} {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n, err := database.DeleteRange(records.db, records.batch, schema.VersionKey(current), schema.VersionKey(target))
		if err != nil {
			return 0, err
		}
		deleted += n
	}

	staleValues := p.db.StaleValues.NewIterator()
	defer staleValues.Release()

	for staleValues.Next() {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		index, err := schema.ParseStaleValueIndex(staleValues.Key())
		if err != nil {
			return 0, err
		}
		if index.StaleSince > target {
			break
		}
		if err := batch.Values.Delete(schema.ValueKey(index.KeyHash, index.Version)); err != nil {
			return 0, err
		}
		if err := batch.StaleValues.Delete(staleValues.Key()); err != nil {
			return 0, err
		}
		deleted++
	}
	if err := staleValues.Error(); err != nil {
		return 0, err
	}

	if err := p.save(batch, target); err != nil {
		return 0, err
	}
	return deleted, batch.Write()
}
