// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pruner

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/ledgerdb/statedb/merkle"
	"github.com/ava-labs/ledgerdb/statedb/schema"
	"github.com/ava-labs/ledgerdb/utils/logging"
	"github.com/ava-labs/ledgerdb/utils/wrappers"
)

// Domain names the set of entities one pruner is responsible for. Readers
// must check the minimum readable version of the domain they read from.
type Domain uint8

const (
	LedgerDomain Domain = iota
	StateMerkleDomain
	EpochSnapshotDomain
)

func (d Domain) String() string {
	switch d {
	case LedgerDomain:
		return "ledger"
	case StateMerkleDomain:
		return "stateMerkle"
	case EpochSnapshotDomain:
		return "epochSnapshot"
	default:
		return "unknown"
	}
}

type ManagerConfig struct {
	Ledger        Config `json:"ledger" mapstructure:"ledger"`
	StateMerkle   Config `json:"stateMerkle" mapstructure:"state-merkle"`
	EpochSnapshot Config `json:"epochSnapshot" mapstructure:"epoch-snapshot"`
}

func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Ledger: Config{
			Enable:      true,
			PruneWindow: 90_000_000,
			BatchSize:   5_000,
		},
		StateMerkle: Config{
			Enable:      true,
			PruneWindow: 1_000_000,
			BatchSize:   1_000,
		},
		EpochSnapshot: Config{
			Enable:      true,
			PruneWindow: 80_000_000,
			BatchSize:   1_000,
		},
	}
}

func (c ManagerConfig) Verify() error {
	errs := wrappers.Errs{}
	errs.Add(
		c.Ledger.Verify(),
		c.StateMerkle.Verify(),
		c.EpochSnapshot.Verify(),
	)
	if errs.Errored() {
		return errs.Err
	}
	if c.StateMerkle.Enable && c.EpochSnapshot.Enable && c.EpochSnapshot.PruneWindow < c.StateMerkle.PruneWindow {
		return fmt.Errorf("%w: %d < %d", ErrWindowTooSmall, c.EpochSnapshot.PruneWindow, c.StateMerkle.PruneWindow)
	}
	return nil
}

// EpochEndings finds epoch-ending versions.
type EpochEndings interface {
	// FirstEpochEndingAtOrAfter returns the lowest epoch-ending version that
	// is >= [version], and false if there is none.
	FirstEpochEndingAtOrAfter(version uint64) (uint64, bool, error)
}

// Manager owns the three pruners of a store. Each pruner keeps its own
// progress; the manager only decides their targets.
type Manager struct {
	log    logging.Logger
	epochs EpochEndings

	ledger        *PrunerManager
	stateMerkle   *PrunerManager
	epochSnapshot *PrunerManager
}

func NewManager(
	log logging.Logger,
	db *schema.DB,
	nodes *merkle.NodeDB,
	epochs EpochEndings,
	config ManagerConfig,
	reg prometheus.Registerer,
) (*Manager, error) {
	if err := config.Verify(); err != nil {
		return nil, err
	}

	ledger, err := NewPrunerManager(log, NewLedgerPruner(db), config.Ledger, reg)
	if err != nil {
		return nil, err
	}
	stateMerkle, err := NewPrunerManager(log, NewStateMerklePruner(db, nodes), config.StateMerkle, reg)
	if err != nil {
		ledger.Close()
		return nil, err
	}
	epochSnapshot, err := NewPrunerManager(log, NewEpochSnapshotPruner(db, nodes), config.EpochSnapshot, reg)
	if err != nil {
		ledger.Close()
		stateMerkle.Close()
		return nil, err
	}
	return &Manager{
		log:           log,
		epochs:        epochs,
		ledger:        ledger,
		stateMerkle:   stateMerkle,
		epochSnapshot: epochSnapshot,
	}, nil
}

func (m *Manager) Pruner(domain Domain) (*PrunerManager, error) {
	switch domain {
	case LedgerDomain:
		return m.ledger, nil
	case StateMerkleDomain:
		return m.stateMerkle, nil
	case EpochSnapshotDomain:
		return m.epochSnapshot, nil
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownPruner, domain)
	}
}

// MinReadableVersionFor returns the oldest version [domain] still serves.
func (m *Manager) MinReadableVersionFor(domain Domain) uint64 {
	p, err := m.Pruner(domain)
	if err != nil {
		return 0
	}
	return p.MinReadableVersion()
}

// OnCommit moves the ledger target after versions up to [latest] were
// committed. Write sets after [checkpoint] are kept so unflushed tree updates
// can be replayed.
func (m *Manager) OnCommit(latest, checkpoint uint64) {
	if latest < m.ledger.GetPruneWindow() {
		return
	}
	target := latest - m.ledger.GetPruneWindow()
	if checkpoint+1 < target {
		target = checkpoint + 1
	}
	m.ledger.SetWorkerTargetVersion(target)
}

// OnFlush moves the tree pruners' targets after the tree up to [checkpoint]
// was persisted.
func (m *Manager) OnFlush(checkpoint uint64) error {
	window := m.stateMerkle.GetPruneWindow()
	if checkpoint < window {
		return nil
	}
	stateMerkleTarget := checkpoint - window
	m.stateMerkle.SetWorkerTargetVersion(stateMerkleTarget)
	if !m.stateMerkle.IsPrunerEnabled() {
		// Every version stays readable, so must every cross-epoch node.
		return nil
	}

	// Cross-epoch stale nodes are only deletable once no epoch-ending version
	// in the epoch window, nor any version in the state merkle window, reaches
	// them.
	var epochThreshold uint64
	if epochWindow := m.epochSnapshot.GetPruneWindow(); checkpoint > epochWindow {
		epochThreshold = checkpoint - epochWindow
	}
	epochTarget := stateMerkleTarget
	firstEnding, ok, err := m.epochs.FirstEpochEndingAtOrAfter(epochThreshold)
	if err != nil {
		return err
	}
	if ok && firstEnding < epochTarget {
		epochTarget = firstEnding
	}
	m.epochSnapshot.SetWorkerTargetVersion(epochTarget)
	return nil
}

// SaveMinReadableVersion records that no domain serves versions below
// [version].
func (m *Manager) SaveMinReadableVersion(version uint64) error {
	for _, p := range []*PrunerManager{m.ledger, m.stateMerkle, m.epochSnapshot} {
		if err := p.SaveMinReadableVersion(version); err != nil {
			return fmt.Errorf("failed to save %s progress: %w", p.Name(), err)
		}
	}
	return nil
}

// WaitForPruners blocks until every enabled pruner reached its target.
func (m *Manager) WaitForPruners(ctx context.Context) error {
	for _, p := range []*PrunerManager{m.ledger, m.stateMerkle, m.epochSnapshot} {
		if err := p.WaitForPruner(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) Close() {
	m.ledger.Close()
	m.stateMerkle.Close()
	m.epochSnapshot.Close()
}
