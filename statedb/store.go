// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package statedb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ava-labs/ledgerdb/database"
	"github.com/ava-labs/ledgerdb/ids"
	"github.com/ava-labs/ledgerdb/statedb/merkle"
	"github.com/ava-labs/ledgerdb/statedb/pruner"
	"github.com/ava-labs/ledgerdb/statedb/schema"
	"github.com/ava-labs/ledgerdb/types"
	"github.com/ava-labs/ledgerdb/utils/logging"
	"github.com/ava-labs/ledgerdb/utils/maybe"
	"github.com/ava-labs/ledgerdb/utils/wrappers"
)

var (
	_ pruner.EpochEndings = (*Store)(nil)

	errValueHashMismatch = errors.New("stored value doesn't match the tree")
)

// Store is a versioned key/value store whose state at every retained version
// is committed to by the root of a Merkle tree.
//
// Values, write sets and ledger records are persisted when a version is
// committed. Tree nodes are buffered and persisted when the buffer is
// flushed; on restart the write sets after the last flushed version are
// replayed to rebuild the buffer.
type Store struct {
	log      logging.Logger
	config   Config
	db       *schema.DB
	nodes    *merkle.NodeDB
	buffered *BufferedState
	tree     *merkle.Tree
	pruners  *pruner.Manager
	metrics  *metrics

	// writeLock serializes commits and reverts.
	writeLock sync.Mutex

	lock             sync.RWMutex
	latestVersion    maybe.Maybe[uint64]
	latestLedgerInfo *types.LedgerInfoWithSignatures
	lastEpochEnding  maybe.Maybe[uint64]
	nextBlockHeight  uint64
	closed           bool
}

// New opens the store persisted in [db]. The caller keeps ownership of [db].
func New(
	log logging.Logger,
	db database.Database,
	config Config,
	reg prometheus.Registerer,
) (*Store, error) {
	if err := config.Verify(); err != nil {
		return nil, err
	}

	sdb := schema.New(db)
	nodes, err := merkle.NewNodeDB(sdb.Nodes, config.NodeCacheSize, config.MetricsNamespace, reg)
	if err != nil {
		return nil, err
	}
	metrics, err := newMetrics(config.MetricsNamespace, reg)
	if err != nil {
		return nil, err
	}

	latestVersion, err := getVersion(sdb.Metadata, schema.LatestVersionKey)
	if err != nil {
		return nil, err
	}
	snapshotVersion, err := getVersion(sdb.Metadata, schema.SnapshotVersionKey)
	if err != nil {
		return nil, err
	}
	lastEpochEnding, err := getVersion(sdb.Metadata, schema.LatestEpochEndingVersionKey)
	if err != nil {
		return nil, err
	}
	nextBlockHeight, err := database.WithDefault(database.GetUInt64, sdb.Metadata, schema.NextBlockHeightKey, 0)
	if err != nil {
		return nil, err
	}
	var latestLedgerInfo *types.LedgerInfoWithSignatures
	switch b, err := sdb.Metadata.Get(schema.LatestLedgerInfoKey); {
	case err == nil:
		latestLedgerInfo, err = types.ParseLedgerInfoWithSignatures(b)
		if err != nil {
			return nil, err
		}
	case !errors.Is(err, database.ErrNotFound):
		return nil, err
	}

	buffered := NewBufferedState(sdb, nodes, config.BufferedStateTargetItems, snapshotVersion)
	s := &Store{
		log:              log,
		config:           config,
		db:               sdb,
		nodes:            nodes,
		buffered:         buffered,
		tree:             merkle.NewTree(buffered),
		metrics:          metrics,
		latestVersion:    latestVersion,
		latestLedgerInfo: latestLedgerInfo,
		lastEpochEnding:  lastEpochEnding,
		nextBlockHeight:  nextBlockHeight,
	}
	s.pruners, err = pruner.NewManager(log, sdb, nodes, s, config.Pruner, reg)
	if err != nil {
		return nil, err
	}
	buffered.onFlush = s.onFlush

	if err := s.replay(); err != nil {
		s.pruners.Close()
		return nil, err
	}

	if snapshotVersion.HasValue() {
		checkpoint := snapshotVersion.Value()
		s.metrics.snapshotVersion.Set(float64(checkpoint))
		if err := s.pruners.OnFlush(checkpoint); err != nil {
			s.pruners.Close()
			return nil, err
		}
		if latestVersion.HasValue() {
			s.pruners.OnCommit(latestVersion.Value(), checkpoint)
		}
	}
	if latestVersion.HasValue() {
		s.metrics.latestVersion.Set(float64(latestVersion.Value()))
	}

	s.log.Info("opened ledger store",
		zap.Stringer("latestVersion", latestVersion),
		zap.Stringer("snapshotVersion", snapshotVersion),
		zap.Uint64("nextBlockHeight", nextBlockHeight),
	)
	return s, nil
}

// replay rebuilds the tree updates of the versions committed after the last
// flush.
func (s *Store) replay() error {
	base := s.buffered.PersistedVersion()
	var start uint64
	if base.HasValue() {
		start = base.Value() + 1
	}
	lastEpochEnding, err := s.lastEpochEndingBefore(start)
	if err != nil {
		return err
	}

	it := s.db.WriteSets.NewIteratorWithStart(schema.VersionKey(start))
	defer it.Release()

	replayed := 0
	for it.Next() {
		version, err := schema.ParseVersionKey(it.Key())
		if err != nil {
			return err
		}
		writeSet, err := types.ParseWriteSet(it.Value())
		if err != nil {
			return fmt.Errorf("failed to parse write set %d: %w", version, err)
		}
		update, err := s.tree.Update(version, base, treeUpdates(writeSet), lastEpochEnding)
		if err != nil {
			return fmt.Errorf("failed to replay version %d: %w", version, err)
		}
		s.buffered.Apply(version, writeSet, update)

		isEnding, err := s.db.EpochVersions.Has(schema.VersionKey(version))
		if err != nil {
			return err
		}
		if isEnding {
			lastEpochEnding = maybe.Some(version)
		}
		base = maybe.Some(version)
		replayed++
	}
	if err := it.Error(); err != nil {
		return err
	}
	if replayed > 0 {
		s.log.Info("replayed buffered versions",
			zap.Int("numVersions", replayed),
			zap.Stringer("latestVersion", base),
		)
	}
	return nil
}

func (s *Store) onFlush(checkpoint uint64) error {
	s.metrics.snapshotVersion.Set(float64(checkpoint))
	return s.pruners.OnFlush(checkpoint)
}

// treeUpdates converts [writeSet] into the leaf updates of the state tree.
func treeUpdates(writeSet types.WriteSet) []merkle.Update {
	updates := make([]merkle.Update, len(writeSet))
	for i, op := range writeSet {
		updates[i] = merkle.Update{
			KeyHash:   op.Key.Hash(),
			ValueHash: maybe.Bind(op.Value, ids.Digest),
		}
	}
	return updates
}

func getVersion(db database.KeyValueReader, key []byte) (maybe.Maybe[uint64], error) {
	v, err := database.GetUInt64(db, key)
	switch {
	case err == nil:
		return maybe.Some(v), nil
	case errors.Is(err, database.ErrNotFound):
		return maybe.Nothing[uint64](), nil
	default:
		return maybe.Nothing[uint64](), err
	}
}

func (s *Store) latest() (uint64, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.latestVersion.Value(), s.latestVersion.HasValue()
}

// checkCommitted returns ErrNotFound if [version] is not committed yet.
func (s *Store) checkCommitted(version uint64) error {
	latest, ok := s.latest()
	switch {
	case !ok:
		return fmt.Errorf("%w: version %d: nothing committed", ErrNotFound, version)
	case version > latest:
		return fmt.Errorf("%w: version %d > latest %d", ErrNotFound, version, latest)
	default:
		return nil
	}
}

// checkReadable returns ErrPruned if [domain] no longer serves [version].
func (s *Store) checkReadable(domain pruner.Domain, version uint64) error {
	if minReadable := s.pruners.MinReadableVersionFor(domain); version < minReadable {
		return fmt.Errorf("%w: version %d < %s min readable version %d", ErrPruned, version, domain, minReadable)
	}
	return nil
}

// checkRootReadable returns ErrPruned if the tree at [version] may have been
// pruned. Epoch-ending versions are kept by the epoch snapshot pruner after
// the state merkle pruner passed them.
func (s *Store) checkRootReadable(version uint64) error {
	if err := s.checkReadable(pruner.EpochSnapshotDomain, version); err != nil {
		return err
	}
	if s.checkReadable(pruner.StateMerkleDomain, version) == nil {
		return nil
	}
	isEnding, err := s.db.EpochVersions.Has(schema.VersionKey(version))
	if err != nil {
		return wrapDBErr(err, "failed to read epoch ending %d", version)
	}
	if !isEnding {
		return s.checkReadable(pruner.StateMerkleDomain, version)
	}
	return nil
}

func (s *Store) Get(key types.StateKey, version uint64) (maybe.Maybe[[]byte], error) {
	if err := s.checkReadable(pruner.LedgerDomain, version); err != nil {
		return maybe.Nothing[[]byte](), err
	}
	if err := s.checkCommitted(version); err != nil {
		return maybe.Nothing[[]byte](), err
	}

	value, err := s.getValue(key, version)
	if err != nil {
		return maybe.Nothing[[]byte](), err
	}
	// The ledger pruner may have passed [version] during the read.
	if err := s.checkReadable(pruner.LedgerDomain, version); err != nil {
		return maybe.Nothing[[]byte](), err
	}
	return value, nil
}

func (s *Store) getValue(key types.StateKey, version uint64) (maybe.Maybe[[]byte], error) {
	keyHash := key.Hash()
	it := s.db.Values.NewIteratorWithStartAndPrefix(schema.ValueKey(keyHash, version), keyHash[:])
	defer it.Release()

	if !it.Next() {
		return maybe.Nothing[[]byte](), wrapDBErr(it.Error(), "failed to read %s", key)
	}
	storedKey, value, err := schema.DecodeValue(it.Value())
	if err != nil {
		return maybe.Nothing[[]byte](), fmt.Errorf("%w: failed to decode %s: %w", ErrInternal, key, err)
	}
	if storedKey != key {
		return maybe.Nothing[[]byte](), nil
	}
	return value, nil
}

func (s *Store) IterateKeys(fromVersion uint64) (KeyIterator, error) {
	return &keyIterator{
		it:          s.db.Values.NewIterator(),
		fromVersion: fromVersion,
	}, nil
}

func (s *Store) RootDigest(version uint64) (ids.ID, error) {
	if err := s.checkCommitted(version); err != nil {
		return ids.Empty, err
	}
	if err := s.checkRootReadable(version); err != nil {
		return ids.Empty, err
	}
	root, err := s.tree.GetRootHash(version)
	if err != nil {
		if rerr := s.checkRootReadable(version); rerr != nil {
			return ids.Empty, rerr
		}
		return ids.Empty, wrapDBErr(err, "failed to read root of version %d", version)
	}
	return root, s.checkRootReadable(version)
}

func (s *Store) GetWithProof(key types.StateKey, version uint64) (maybe.Maybe[[]byte], *merkle.Proof, error) {
	value, err := s.Get(key, version)
	if err != nil {
		return maybe.Nothing[[]byte](), nil, err
	}
	if err := s.checkRootReadable(version); err != nil {
		return maybe.Nothing[[]byte](), nil, err
	}
	valueHash, proof, err := s.tree.GetWithProof(key.Hash(), version)
	if err != nil {
		if rerr := s.checkRootReadable(version); rerr != nil {
			return maybe.Nothing[[]byte](), nil, rerr
		}
		return maybe.Nothing[[]byte](), nil, wrapDBErr(err, "failed to prove %s at %d", key, version)
	}
	if !maybe.Equal(valueHash, maybe.Bind(value, ids.Digest), func(a, b ids.ID) bool { return a == b }) {
		return maybe.Nothing[[]byte](), nil, fmt.Errorf("%w: %w: %s at %d", ErrInternal, errValueHashMismatch, key, version)
	}
	return value, proof, s.checkRootReadable(version)
}

func (s *Store) GetWriteSet(version uint64) (types.WriteSet, error) {
	writeSets, err := s.GetWriteSets(types.Ascending, version, 1)
	if err != nil {
		return nil, err
	}
	return writeSets[0], nil
}

func (s *Store) GetWriteSets(order types.Order, start, limit uint64) ([]types.WriteSet, error) {
	first, limit, err := FirstSeqNumAndLimit(order, start, limit)
	if err != nil {
		return nil, err
	}
	if err := errorIfTooManyRequested(limit); err != nil {
		return nil, err
	}
	if err := s.checkReadable(pruner.LedgerDomain, first); err != nil {
		return nil, err
	}
	if err := s.checkCommitted(first); err != nil {
		return nil, err
	}
	latest, _ := s.latest()
	limit = min(limit, latest-first+1)

	it := s.db.WriteSets.NewIteratorWithStart(schema.VersionKey(first))
	defer it.Release()

	writeSets := make([]types.WriteSet, 0, limit)
	for uint64(len(writeSets)) < limit && it.Next() {
		version, err := schema.ParseVersionKey(it.Key())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInternal, err)
		}
		if want := first + uint64(len(writeSets)); version != want {
			return nil, fmt.Errorf("%w: write set %d", ErrNotFound, want)
		}
		writeSet, err := types.ParseWriteSet(it.Value())
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse write set %d: %w", ErrInternal, version, err)
		}
		writeSets = append(writeSets, writeSet)
	}
	if err := it.Error(); err != nil {
		return nil, wrapDBErr(err, "failed to iterate write sets")
	}
	if err := s.checkReadable(pruner.LedgerDomain, first); err != nil {
		return nil, err
	}
	if uint64(len(writeSets)) < limit {
		return nil, fmt.Errorf("%w: write set %d", ErrNotFound, first+uint64(len(writeSets)))
	}
	return writeSets, nil
}

func (s *Store) GetLatestVersion() (uint64, error) {
	latest, ok := s.latest()
	if !ok {
		return 0, fmt.Errorf("%w: nothing committed", ErrNotFound)
	}
	return latest, nil
}

func (s *Store) GetLatestLedgerInfo() (*types.LedgerInfoWithSignatures, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.latestLedgerInfo == nil {
		return nil, fmt.Errorf("%w: no ledger info", ErrNotFound)
	}
	return s.latestLedgerInfo, nil
}

// GetLatestStateCheckpointVersion returns the last version of the latest
// committed block. Every block ends with a state checkpoint.
func (s *Store) GetLatestStateCheckpointVersion() (uint64, error) {
	return s.GetLatestVersion()
}

func (s *Store) GetBlockInfoByHeight(height uint64) (*types.BlockInfo, error) {
	b, err := s.db.BlockInfos.Get(schema.VersionKey(height))
	if err != nil {
		return nil, wrapDBErr(err, "block at height %d", height)
	}
	info, err := types.ParseBlockInfo(b)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse block %d: %w", ErrInternal, height, err)
	}
	return info, nil
}

func (s *Store) GetEpochEndingLedgerInfo(epoch uint64) (*types.LedgerInfoWithSignatures, error) {
	b, err := s.db.Epochs.Get(schema.VersionKey(epoch))
	if err != nil {
		return nil, wrapDBErr(err, "ledger info ending epoch %d", epoch)
	}
	li, err := types.ParseLedgerInfoWithSignatures(b)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse ledger info of epoch %d: %w", ErrInternal, epoch, err)
	}
	return li, nil
}

// GetLedgerInfo returns the ledger info committed with [version].
func (s *Store) GetLedgerInfo(version uint64) (*types.LedgerInfoWithSignatures, error) {
	if err := s.checkReadable(pruner.LedgerDomain, version); err != nil {
		return nil, err
	}
	b, err := s.db.LedgerInfos.Get(schema.VersionKey(version))
	if err != nil {
		return nil, wrapDBErr(err, "ledger info at %d", version)
	}
	li, err := types.ParseLedgerInfoWithSignatures(b)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse ledger info at %d: %w", ErrInternal, version, err)
	}
	return li, nil
}

func (s *Store) MinReadableVersionFor(domain pruner.Domain) uint64 {
	return s.pruners.MinReadableVersionFor(domain)
}

// FirstEpochEndingAtOrAfter returns the lowest epoch-ending version that is
// >= [version].
func (s *Store) FirstEpochEndingAtOrAfter(version uint64) (uint64, bool, error) {
	it := s.db.EpochVersions.NewIteratorWithStart(schema.VersionKey(version))
	defer it.Release()

	if !it.Next() {
		return 0, false, it.Error()
	}
	ending, err := schema.ParseVersionKey(it.Key())
	return ending, err == nil, err
}

// lastEpochEndingBefore returns the highest epoch-ending version that is
// < [version].
func (s *Store) lastEpochEndingBefore(version uint64) (maybe.Maybe[uint64], error) {
	it := s.db.EpochVersions.NewIterator()
	defer it.Release()

	last := maybe.Nothing[uint64]()
	for it.Next() {
		ending, err := schema.ParseVersionKey(it.Key())
		if err != nil {
			return last, err
		}
		if ending >= version {
			break
		}
		last = maybe.Some(ending)
	}
	return last, it.Error()
}

// CurrentSnapshot returns the persisted checkpoint and the changes buffered
// after it.
func (s *Store) CurrentSnapshot() *StateSnapshot {
	return s.buffered.CurrentSnapshot()
}

// StateView returns a reader of the state at [version].
func (s *Store) StateView(version uint64) (*StateView, error) {
	if err := s.checkReadable(pruner.LedgerDomain, version); err != nil {
		return nil, err
	}
	if err := s.checkCommitted(version); err != nil {
		return nil, err
	}
	return NewStateView(s, version), nil
}

// NodesReferenced returns the key of every tree node reachable from the root
// at [version].
func (s *Store) NodesReferenced(version uint64) ([]merkle.NodeKey, error) {
	if err := s.checkRootReadable(version); err != nil {
		return nil, err
	}
	keys, err := s.tree.NodesReachable(version)
	if err != nil {
		return nil, wrapDBErr(err, "failed to walk tree at %d", version)
	}
	return keys, nil
}

// AllNodeKeys returns the key of every tree node, persisted or buffered, in
// key order.
func (s *Store) AllNodeKeys() ([]merkle.NodeKey, error) {
	keys, err := s.nodes.Keys()
	if err != nil {
		return nil, wrapDBErr(err, "failed to iterate nodes")
	}
	keys = append(keys, s.buffered.pendingNodeKeys()...)
	slices.SortFunc(keys, func(a, b merkle.NodeKey) int {
		return bytes.Compare(a.Bytes(), b.Bytes())
	})
	return slices.CompactFunc(keys, func(a, b merkle.NodeKey) bool {
		return a == b
	}), nil
}

// WaitForPruners blocks until every enabled pruner reached its target.
func (s *Store) WaitForPruners(ctx context.Context) error {
	return s.pruners.WaitForPruners(ctx)
}

// Close flushes the buffered tree updates and stops the pruners. The
// underlying database is left open.
func (s *Store) Close() error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		return nil
	}
	s.closed = true
	s.lock.Unlock()

	errs := wrappers.Errs{}
	errs.Add(s.buffered.Flush())
	s.pruners.Close()
	errs.Add(s.db.Close())
	return errs.Err
}

// keyIterator yields the newest write of every key hash. Entries of one key
// are adjacent and ordered from newest to oldest.
type keyIterator struct {
	it          database.Iterator
	fromVersion uint64

	started  bool
	lastHash ids.ID
	key      types.StateKey
	err      error
}

func (i *keyIterator) Next() bool {
	if i.err != nil {
		return false
	}
	for i.it.Next() {
		keyHash, version, err := schema.ParseValueKey(i.it.Key())
		if err != nil {
			i.err = fmt.Errorf("%w: %w", ErrInternal, err)
			return false
		}
		if i.started && keyHash == i.lastHash {
			continue
		}
		i.started = true
		i.lastHash = keyHash
		if version < i.fromVersion {
			continue
		}
		key, _, err := schema.DecodeValue(i.it.Value())
		if err != nil {
			i.err = fmt.Errorf("%w: %w", ErrInternal, err)
			return false
		}
		i.key = key
		return true
	}
	if err := i.it.Error(); err != nil {
		i.err = wrapDBErr(err, "failed to iterate keys")
	}
	return false
}

func (i *keyIterator) Key() types.StateKey {
	return i.key
}

func (i *keyIterator) Error() error {
	return i.err
}

func (i *keyIterator) Release() {
	i.it.Release()
}
