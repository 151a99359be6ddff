// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pruner

import (
	"context"

	"github.com/ava-labs/ledgerdb/database"
	"github.com/ava-labs/ledgerdb/statedb/schema"
)

// Pruner deletes one kind of retained entity. Its progress is the minimum
// readable version of that kind and is persisted in the same batch as the
// deletions, so an interrupted Prune leaves no trace.
type Pruner interface {
	Name() string
	// Prune deletes everything that is not needed to read any version at or
	// after [target], assuming nothing below [current] is needed already.
	// It returns the number of deleted entities.
	Prune(ctx context.Context, current, target uint64) (int, error)
	// Progress returns the persisted minimum readable version.
	Progress() (uint64, error)
	// SaveProgress persists [version] as the minimum readable version without
	// deleting anything.
	SaveProgress(version uint64) error
}

type progress struct {
	db  *schema.DB
	key []byte
}

func (p *progress) Progress() (uint64, error) {
	return database.WithDefault(database.GetUInt64, p.db.Metadata, p.key, 0)
}

func (p *progress) SaveProgress(version uint64) error {
	return database.PutUInt64(p.db.Metadata, p.key, version)
}

func (p *progress) save(batch *schema.Batch, version uint64) error {
	return database.PutUInt64(batch.Metadata, p.key, version)
}
