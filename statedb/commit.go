// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package statedb

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/ava-labs/ledgerdb/database"
	"github.com/ava-labs/ledgerdb/ids"
	"github.com/ava-labs/ledgerdb/statedb/merkle"
	"github.com/ava-labs/ledgerdb/statedb/pruner"
	"github.com/ava-labs/ledgerdb/statedb/schema"
	"github.com/ava-labs/ledgerdb/types"
	"github.com/ava-labs/ledgerdb/utils/maybe"
)

var (
	errEmptyBatch = errors.New("empty batch")
	errClosed     = errors.New("store closed")
)

// CommitPipeline appends batches of write sets to a Store. Commits and
// reverts through any pipeline of a store are serialized.
type CommitPipeline struct {
	store *Store
	// skipContiguityCheck allows a commit to start after latest+1. It is used
	// to bootstrap an empty store at a restored version.
	skipContiguityCheck bool
}

func NewCommitPipeline(store *Store, skipContiguityCheck bool) *CommitPipeline {
	return &CommitPipeline{
		store:               store,
		skipContiguityCheck: skipContiguityCheck,
	}
}

// Commit appends [batch] as versions [firstVersion, firstVersion+len(batch)).
func (s *Store) Commit(ctx context.Context, batch []types.WriteSet, firstVersion uint64) error {
	s.lock.RLock()
	base := s.latestVersion
	s.lock.RUnlock()

	return NewCommitPipeline(s, false).SaveTransactions(ctx, batch, firstVersion, base, nil, false)
}

// RevertTo truncates every version above [version]. The ledger info committed
// with [version], if any, becomes the latest ledger info again.
func (s *Store) RevertTo(ctx context.Context, version uint64, expectedRoot ids.ID) error {
	prior, err := s.GetLedgerInfo(version)
	if errors.Is(err, ErrNotFound) {
		prior = nil
	} else if err != nil {
		return err
	}
	return NewCommitPipeline(s, false).RevertLastCommit(ctx, version, expectedRoot, prior)
}

// SaveTransactions commits [batch] as the versions following [baseVersion].
//
// If [cert] is provided, it must certify the last version of the batch and
// becomes the latest ledger info. If [syncCommit] is true, the tree updates
// are persisted before returning; otherwise they are buffered.
func (p *CommitPipeline) SaveTransactions(
	ctx context.Context,
	batch []types.WriteSet,
	firstVersion uint64,
	baseVersion maybe.Maybe[uint64],
	cert *types.LedgerInfoWithSignatures,
	syncCommit bool,
) error {
	if len(batch) == 0 {
		return errEmptyBatch
	}
	s := p.store
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	start := time.Now()
	s.lock.RLock()
	var (
		latest          = s.latestVersion
		lastEpochEnding = s.lastEpochEnding
		height          = s.nextBlockHeight
		closed          = s.closed
	)
	s.lock.RUnlock()

	if closed {
		return errClosed
	}
	if err := p.checkContiguity(latest, firstVersion); err != nil {
		return err
	}
	if baseVersion != latest {
		return fmt.Errorf("%w: base version %s != latest version %s", ErrConflict, baseVersion, latest)
	}
	if uint64(len(batch)-1) > math.MaxUint64-firstVersion {
		return fmt.Errorf("%w: %d versions after %d overflow", ErrConflict, len(batch), firstVersion)
	}
	lastVersion := firstVersion + uint64(len(batch)-1)

	var (
		dbBatch   = s.db.NewBatch()
		overlay   = newNodeOverlay(s.buffered)
		tree      = merkle.NewTree(overlay)
		writeSets = make([]types.WriteSet, len(batch))
		updates   = make([]*merkle.TreeUpdateBatch, len(batch))
		lastWrite = make(map[ids.ID]write)
		base      = latest
	)
	for i, writeSet := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		version := firstVersion + uint64(i)
		b, err := writeSet.Marshal()
		if err != nil {
			return fmt.Errorf("failed to marshal write set %d: %w", version, err)
		}
		if err := dbBatch.WriteSets.Put(schema.VersionKey(version), b); err != nil {
			return wrapDBErr(err, "failed to buffer write set %d", version)
		}

		writeSets[i] = writeSet.Dedup()
		for _, op := range writeSets[i] {
			if err := p.putValue(dbBatch, lastWrite, op, version); err != nil {
				return err
			}
		}

		update, err := tree.Update(version, base, treeUpdates(writeSets[i]), lastEpochEnding)
		if err != nil {
			return fmt.Errorf("%w: failed to update tree at %d: %w", ErrInternal, version, err)
		}
		overlay.add(update)
		updates[i] = update
		base = maybe.Some(version)
	}

	root := updates[len(updates)-1].RootHash
	info := &types.BlockInfo{
		Height:       height,
		FirstVersion: firstVersion,
		LastVersion:  lastVersion,
		RootDigest:   root,
	}
	if cert != nil {
		if err := p.putLedgerInfo(dbBatch, cert, lastVersion, root); err != nil {
			return err
		}
		info.Epoch = cert.Epoch
		info.Round = cert.Round
		info.BlockID = cert.BlockID
		info.TimestampUsec = cert.TimestampUsec
	}
	infoBytes, err := info.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal block info: %w", err)
	}
	if err := dbBatch.BlockInfos.Put(schema.VersionKey(height), infoBytes); err != nil {
		return wrapDBErr(err, "failed to buffer block info")
	}
	if err := database.PutUInt64(dbBatch.Metadata, schema.NextBlockHeightKey, height+1); err != nil {
		return wrapDBErr(err, "failed to buffer block height")
	}
	if err := database.PutUInt64(dbBatch.Metadata, schema.LatestVersionKey, lastVersion); err != nil {
		return wrapDBErr(err, "failed to buffer latest version")
	}

	if latest.IsNothing() && firstVersion > 0 {
		// Bootstrapping at a restored version: nothing below it is readable.
		if err := s.pruners.SaveMinReadableVersion(firstVersion); err != nil {
			return wrapDBErr(err, "failed to save bootstrap version")
		}
	}
	if err := dbBatch.Write(); err != nil {
		return wrapDBErr(err, "failed to commit versions [%d, %d]", firstVersion, lastVersion)
	}

	for i, update := range updates {
		s.buffered.Apply(firstVersion+uint64(i), writeSets[i], update)
	}
	s.lock.Lock()
	s.latestVersion = maybe.Some(lastVersion)
	s.nextBlockHeight = height + 1
	if cert != nil {
		s.latestLedgerInfo = cert
		if cert.EndsEpoch {
			s.lastEpochEnding = maybe.Some(lastVersion)
		}
	}
	s.lock.Unlock()

	s.metrics.latestVersion.Set(float64(lastVersion))
	s.metrics.committedVersion.Add(float64(len(batch)))
	s.log.Debug("committed versions",
		zap.Uint64("firstVersion", firstVersion),
		zap.Uint64("lastVersion", lastVersion),
		zap.Stringer("root", root),
		zap.Bool("certified", cert != nil),
	)

	if checkpoint := s.buffered.PersistedVersion(); checkpoint.HasValue() {
		s.pruners.OnCommit(lastVersion, checkpoint.Value())
	}
	if syncCommit {
		err = s.buffered.Flush()
	} else {
		err = s.buffered.MaybeFlush()
	}
	if err != nil {
		return err
	}
	s.metrics.commitDuration.Observe(time.Since(start).Seconds())
	return nil
}

func (p *CommitPipeline) checkContiguity(latest maybe.Maybe[uint64], firstVersion uint64) error {
	var expected uint64
	if latest.HasValue() {
		if latest.Value() == math.MaxUint64 {
			return fmt.Errorf("%w: latest version is %d", ErrConflict, latest.Value())
		}
		expected = latest.Value() + 1
	}
	switch {
	case firstVersion == expected:
		return nil
	case p.skipContiguityCheck && firstVersion > expected:
		return nil
	default:
		return fmt.Errorf("%w: first version %d != expected %d", ErrConflict, firstVersion, expected)
	}
}

// write is the latest write to a key seen by a commit.
type write struct {
	version uint64
	deleted bool
}

// putValue writes [op] at [version] and marks the write it shadows as stale.
func (p *CommitPipeline) putValue(
	batch *schema.Batch,
	lastWrite map[ids.ID]write,
	op types.WriteOp,
	version uint64,
) error {
	keyHash := op.Key.Hash()
	prev, ok := lastWrite[keyHash]
	if !ok {
		var err error
		prev, ok, err = p.latestWrite(keyHash)
		if err != nil {
			return err
		}
	}
	// Deleting a key without a value leaves nothing to shadow.
	if op.IsDeletion() && (!ok || prev.deleted) {
		return nil
	}
	if ok {
		index := schema.StaleValueIndex{
			StaleSince: version,
			KeyHash:    keyHash,
			Version:    prev.version,
		}
		if err := batch.StaleValues.Put(index.Bytes(), nil); err != nil {
			return wrapDBErr(err, "failed to buffer stale value")
		}
	}
	if err := batch.Values.Put(schema.ValueKey(keyHash, version), schema.EncodeValue(op.Key, op.Value)); err != nil {
		return wrapDBErr(err, "failed to buffer value of %s", op.Key)
	}
	lastWrite[keyHash] = write{
		version: version,
		deleted: op.IsDeletion(),
	}
	return nil
}

// latestWrite returns the newest persisted write of [keyHash].
func (p *CommitPipeline) latestWrite(keyHash ids.ID) (write, bool, error) {
	it := p.store.db.Values.NewIteratorWithPrefix(keyHash[:])
	defer it.Release()

	if !it.Next() {
		return write{}, false, wrapDBErr(it.Error(), "failed to read latest write")
	}
	_, version, err := schema.ParseValueKey(it.Key())
	if err != nil {
		return write{}, false, fmt.Errorf("%w: %w", ErrInternal, err)
	}
	_, value, err := schema.DecodeValue(it.Value())
	if err != nil {
		return write{}, false, fmt.Errorf("%w: %w", ErrInternal, err)
	}
	return write{
		version: version,
		deleted: value.IsNothing(),
	}, true, nil
}

func (*CommitPipeline) putLedgerInfo(
	batch *schema.Batch,
	cert *types.LedgerInfoWithSignatures,
	lastVersion uint64,
	root ids.ID,
) error {
	if cert.Version != lastVersion {
		return fmt.Errorf("%w: ledger info version %d != last version %d", ErrInvariantViolation, cert.Version, lastVersion)
	}
	if cert.RootDigest != root {
		return fmt.Errorf("%w: ledger info root %s != root %s at %d", ErrInvariantViolation, cert.RootDigest, root, lastVersion)
	}
	b, err := cert.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal ledger info: %w", err)
	}
	versionKey := schema.VersionKey(lastVersion)
	if err := batch.LedgerInfos.Put(versionKey, b); err != nil {
		return wrapDBErr(err, "failed to buffer ledger info")
	}
	if err := batch.Metadata.Put(schema.LatestLedgerInfoKey, b); err != nil {
		return wrapDBErr(err, "failed to buffer latest ledger info")
	}
	if !cert.EndsEpoch {
		return nil
	}
	if err := batch.Epochs.Put(schema.VersionKey(cert.Epoch), b); err != nil {
		return wrapDBErr(err, "failed to buffer epoch %d", cert.Epoch)
	}
	if err := batch.EpochVersions.Put(versionKey, schema.VersionKey(cert.Epoch)); err != nil {
		return wrapDBErr(err, "failed to buffer epoch ending %d", lastVersion)
	}
	if err := database.PutUInt64(batch.Metadata, schema.LatestEpochEndingVersionKey, lastVersion); err != nil {
		return wrapDBErr(err, "failed to buffer latest epoch ending")
	}
	return nil
}

// RevertLastCommit truncates every version above [targetVersion] after
// checking that the tree at [targetVersion] has root [expectedRoot].
// [priorLedgerInfo] becomes the latest ledger info; it may be nil if
// [targetVersion] was not certified.
//
// A digest mismatch returns ErrInvariantViolation and leaves the store
// untouched.
func (p *CommitPipeline) RevertLastCommit(
	ctx context.Context,
	targetVersion uint64,
	expectedRoot ids.ID,
	priorLedgerInfo *types.LedgerInfoWithSignatures,
) error {
	s := p.store
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	s.lock.RLock()
	latest, closed := s.latestVersion, s.closed
	s.lock.RUnlock()
	switch {
	case closed:
		return errClosed
	case latest.IsNothing():
		return fmt.Errorf("%w: nothing committed", ErrNotFound)
	case targetVersion >= latest.Value():
		return fmt.Errorf("%w: revert target %d >= latest version %d", ErrConflict, targetVersion, latest.Value())
	}

	if err := s.buffered.Flush(); err != nil {
		return err
	}
	if err := s.pruners.WaitForPruners(ctx); err != nil {
		return err
	}
	if err := s.checkReadable(pruner.LedgerDomain, targetVersion); err != nil {
		return err
	}
	root, err := s.RootDigest(targetVersion)
	if err != nil {
		return err
	}
	if root != expectedRoot {
		return fmt.Errorf("%w: root at %d is %s, expected %s", ErrInvariantViolation, targetVersion, root, expectedRoot)
	}
	if priorLedgerInfo != nil && (priorLedgerInfo.Version != targetVersion || priorLedgerInfo.RootDigest != root) {
		return fmt.Errorf("%w: prior ledger info certifies %s at %d, reverting to %s at %d",
			ErrInvariantViolation,
			priorLedgerInfo.RootDigest,
			priorLedgerInfo.Version,
			root,
			targetVersion,
		)
	}

	batch := s.db.NewBatch()
	from := schema.VersionKey(targetVersion + 1)
	for _, records := range []struct {
		db    database.Iteratee
		batch database.KeyValueDeleter
	}{
		// Keys of all of these start with a big endian version.
		{db: s.db.Nodes, batch: batch.Nodes},
		{db: s.db.StaleNodes, batch: batch.StaleNodes},
		{db: s.db.StaleNodesCrossEpoch, batch: batch.StaleNodesCrossEpoch},
		{db: s.db.StaleValues, batch: batch.StaleValues},
		{db: s.db.LedgerInfos, batch: batch.LedgerInfos},
	} {
		if err := deleteFrom(records.db, records.batch, from); err != nil {
			return err
		}
	}
	if err := p.revertWriteSets(batch, from); err != nil {
		return err
	}
	if err := p.revertEpochs(batch, from); err != nil {
		return err
	}
	height, err := p.revertBlockInfos(batch, targetVersion)
	if err != nil {
		return err
	}
	lastEpochEnding, err := s.lastEpochEndingBefore(targetVersion + 1)
	if err != nil {
		return wrapDBErr(err, "failed to find last epoch ending")
	}

	errs := []error{
		database.PutUInt64(batch.Metadata, schema.LatestVersionKey, targetVersion),
		database.PutUInt64(batch.Metadata, schema.SnapshotVersionKey, targetVersion),
		database.PutUInt64(batch.Metadata, schema.NextBlockHeightKey, height),
	}
	if lastEpochEnding.HasValue() {
		errs = append(errs, database.PutUInt64(batch.Metadata, schema.LatestEpochEndingVersionKey, lastEpochEnding.Value()))
	} else {
		errs = append(errs, batch.Metadata.Delete(schema.LatestEpochEndingVersionKey))
	}
	if priorLedgerInfo != nil {
		b, err := priorLedgerInfo.Marshal()
		if err != nil {
			return fmt.Errorf("failed to marshal ledger info: %w", err)
		}
		errs = append(errs, batch.Metadata.Put(schema.LatestLedgerInfoKey, b))
	} else {
		errs = append(errs, batch.Metadata.Delete(schema.LatestLedgerInfoKey))
	}
	if err := errors.Join(errs...); err != nil {
		return wrapDBErr(err, "failed to buffer metadata")
	}
	if err := batch.Write(); err != nil {
		return wrapDBErr(err, "failed to revert to %d", targetVersion)
	}

	s.buffered.Reset(maybe.Some(targetVersion))
	s.nodes.Purge()

	s.lock.Lock()
	s.latestVersion = maybe.Some(targetVersion)
	s.latestLedgerInfo = priorLedgerInfo
	s.lastEpochEnding = lastEpochEnding
	s.nextBlockHeight = height
	s.lock.Unlock()

	s.metrics.latestVersion.Set(float64(targetVersion))
	s.metrics.snapshotVersion.Set(float64(targetVersion))
	s.metrics.reverts.Inc()
	s.log.Warn("reverted commit",
		zap.Uint64("targetVersion", targetVersion),
		zap.Uint64("revertedVersion", latest.Value()),
		zap.Stringer("root", root),
	)
	return nil
}

// revertWriteSets deletes the write sets from [from] on and the values they
// wrote.
func (p *CommitPipeline) revertWriteSets(batch *schema.Batch, from []byte) error {
	it := p.store.db.WriteSets.NewIteratorWithStart(from)
	defer it.Release()

	for it.Next() {
		version, err := schema.ParseVersionKey(it.Key())
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInternal, err)
		}
		writeSet, err := types.ParseWriteSet(it.Value())
		if err != nil {
			return fmt.Errorf("%w: failed to parse write set %d: %w", ErrInternal, version, err)
		}
		for _, op := range writeSet {
			if err := batch.Values.Delete(schema.ValueKey(op.Key.Hash(), version)); err != nil {
				return wrapDBErr(err, "failed to delete value")
			}
		}
		if err := batch.WriteSets.Delete(it.Key()); err != nil {
			return wrapDBErr(err, "failed to delete write set")
		}
	}
	return wrapDBErr(it.Error(), "failed to iterate write sets")
}

func (p *CommitPipeline) revertEpochs(batch *schema.Batch, from []byte) error {
	it := p.store.db.EpochVersions.NewIteratorWithStart(from)
	defer it.Release()

	for it.Next() {
		if err := batch.Epochs.Delete(it.Value()); err != nil {
			return wrapDBErr(err, "failed to delete epoch")
		}
		if err := batch.EpochVersions.Delete(it.Key()); err != nil {
			return wrapDBErr(err, "failed to delete epoch ending")
		}
	}
	return wrapDBErr(it.Error(), "failed to iterate epoch endings")
}

// revertBlockInfos deletes every block ending after [targetVersion] and
// returns the height of the next block.
func (p *CommitPipeline) revertBlockInfos(batch *schema.Batch, targetVersion uint64) (uint64, error) {
	s := p.store
	s.lock.RLock()
	nextHeight := s.nextBlockHeight
	s.lock.RUnlock()

	var searchErr error
	height := uint64(sort.Search(int(nextHeight), func(i int) bool {
		if searchErr != nil {
			return true
		}
		info, err := s.GetBlockInfoByHeight(uint64(i))
		if err != nil {
			searchErr = err
			return true
		}
		return info.LastVersion > targetVersion
	}))
	if searchErr != nil {
		return 0, searchErr
	}
	for h := height; h < nextHeight; h++ {
		if err := batch.BlockInfos.Delete(schema.VersionKey(h)); err != nil {
			return 0, wrapDBErr(err, "failed to delete block %d", h)
		}
	}
	return height, nil
}

func deleteFrom(db database.Iteratee, batch database.KeyValueDeleter, from []byte) error {
	_, err := database.DeleteRange(db, batch, from, nil)
	return wrapDBErr(err, "failed to delete from %x", from)
}

// nodeOverlay reads the nodes of a commit's earlier versions before they are
// applied to the buffered state.
type nodeOverlay struct {
	base  merkle.NodeReader
	nodes map[merkle.NodeKey]merkle.Node
}

func newNodeOverlay(base merkle.NodeReader) *nodeOverlay {
	return &nodeOverlay{
		base:  base,
		nodes: make(map[merkle.NodeKey]merkle.Node),
	}
}

func (o *nodeOverlay) add(update *merkle.TreeUpdateBatch) {
	for _, entry := range update.Nodes {
		o.nodes[entry.Key] = entry.Node
	}
}

func (o *nodeOverlay) GetNode(key merkle.NodeKey) (merkle.Node, error) {
	if node, ok := o.nodes[key]; ok {
		return node, nil
	}
	return o.base.GetNode(key)
}
