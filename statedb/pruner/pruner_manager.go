// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pruner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ava-labs/ledgerdb/utils/logging"
)

var (
	ErrClosed         = errors.New("pruner closed")
	errZeroBatchSize  = errors.New("batch size must be positive")
	errPrunerFailed   = errors.New("pruner failed")
	errUnknownPruner  = errors.New("unknown pruner")
	ErrWindowTooSmall = errors.New("epoch snapshot prune window is smaller than the state merkle prune window")
)

type State uint8

const (
	Idle State = iota
	Pruning
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pruning:
		return "pruning"
	default:
		return "unknown"
	}
}

type Config struct {
	Enable bool `json:"enable" mapstructure:"enable"`
	// PruneWindow is the number of versions kept readable behind the version
	// the target is computed from.
	PruneWindow uint64 `json:"pruneWindow" mapstructure:"prune-window"`
	// BatchSize is the most versions one pruning batch covers.
	BatchSize uint64 `json:"batchSize" mapstructure:"batch-size"`
}

func (c Config) Verify() error {
	if c.BatchSize == 0 {
		return errZeroBatchSize
	}
	return nil
}

// PrunerManager drives a Pruner from a background goroutine. The minimum
// readable version only moves forward and only after the pruner has persisted
// it.
type PrunerManager struct {
	log     logging.Logger
	pruner  Pruner
	config  Config
	metrics *metrics

	ctx    context.Context
	cancel context.CancelFunc
	wake   chan struct{}
	wg     sync.WaitGroup

	lock               sync.Mutex
	state              State
	minReadableVersion uint64
	// pruningVersion is the target of the batch being pruned. Data below it
	// may already be gone even though the batch is not persisted yet.
	pruningVersion uint64
	targetVersion  uint64
	err            error
	closed         bool
	// progressed is closed, and replaced, every time the minimum readable
	// version, the error or the closed flag changes.
	progressed chan struct{}
}

func NewPrunerManager(
	log logging.Logger,
	pruner Pruner,
	config Config,
	reg prometheus.Registerer,
) (*PrunerManager, error) {
	if err := config.Verify(); err != nil {
		return nil, fmt.Errorf("invalid %s config: %w", pruner.Name(), err)
	}
	metrics, err := newMetrics(pruner.Name(), reg)
	if err != nil {
		return nil, err
	}
	minReadable, err := pruner.Progress()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &PrunerManager{
		log:                log,
		pruner:             pruner,
		config:             config,
		metrics:            metrics,
		ctx:                ctx,
		cancel:             cancel,
		wake:               make(chan struct{}, 1),
		minReadableVersion: minReadable,
		targetVersion:      minReadable,
		progressed:         make(chan struct{}),
	}
	m.metrics.minReadableVersion.Set(float64(minReadable))
	m.metrics.targetVersion.Set(float64(minReadable))

	if config.Enable {
		m.wg.Add(1)
		go m.run()
	}
	return m, nil
}

func (m *PrunerManager) Name() string {
	return m.pruner.Name()
}

func (m *PrunerManager) IsPrunerEnabled() bool {
	return m.config.Enable
}

func (m *PrunerManager) GetPruneWindow() uint64 {
	return m.config.PruneWindow
}

// MinReadableVersion returns the oldest version whose data is neither deleted
// nor being deleted.
func (m *PrunerManager) MinReadableVersion() uint64 {
	m.lock.Lock()
	defer m.lock.Unlock()

	return max(m.minReadableVersion, m.pruningVersion)
}

// Progress returns the persisted minimum readable version.
func (m *PrunerManager) Progress() uint64 {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.minReadableVersion
}

func (m *PrunerManager) TargetVersion() uint64 {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.targetVersion
}

func (m *PrunerManager) State() State {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.state
}

// SetWorkerTargetVersion raises the target minimum readable version to
// [target]. Lower targets are ignored.
func (m *PrunerManager) SetWorkerTargetVersion(target uint64) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if target <= m.targetVersion {
		return
	}
	m.targetVersion = target
	m.metrics.targetVersion.Set(float64(target))

	if !m.config.Enable || m.closed || target <= m.minReadableVersion {
		return
	}
	m.state = Pruning
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// MaybeSetPrunerTargetDBVersion targets keeping [PruneWindow] versions
// readable behind [latest].
func (m *PrunerManager) MaybeSetPrunerTargetDBVersion(latest uint64) {
	if latest < m.config.PruneWindow {
		return
	}
	m.SetWorkerTargetVersion(latest - m.config.PruneWindow)
}

// SaveMinReadableVersion records that nothing below [version] is readable,
// for example after restoring from a snapshot at [version].
func (m *PrunerManager) SaveMinReadableVersion(version uint64) error {
	if err := m.pruner.SaveProgress(version); err != nil {
		return err
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	m.setMinReadable(version)
	if version > m.targetVersion {
		m.targetVersion = version
		m.metrics.targetVersion.Set(float64(version))
	}
	return nil
}

// WaitForPruner blocks until the minimum readable version reaches the target.
// It returns immediately if the pruner is disabled.
func (m *PrunerManager) WaitForPruner(ctx context.Context) error {
	for {
		m.lock.Lock()
		var (
			done       = !m.config.Enable || m.minReadableVersion >= m.targetVersion
			err        = m.err
			closed     = m.closed
			progressed = m.progressed
		)
		m.lock.Unlock()

		switch {
		case err != nil:
			return err
		case done:
			return nil
		case closed:
			return ErrClosed
		}

		select {
		case <-progressed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops the worker. A batch being pruned is abandoned without being
// persisted.
func (m *PrunerManager) Close() {
	m.lock.Lock()
	if m.closed {
		m.lock.Unlock()
		return
	}
	m.closed = true
	m.notify()
	m.lock.Unlock()

	m.cancel()
	m.wg.Wait()
}

func (m *PrunerManager) run() {
	defer m.wg.Done()
	defer m.log.StopOnPanic()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.wake:
		}

		for {
			m.lock.Lock()
			current, target := m.minReadableVersion, m.targetVersion
			if current >= target || m.err != nil {
				m.state = Idle
				m.lock.Unlock()
				break
			}
			next := target
			if target-current > m.config.BatchSize {
				next = current + m.config.BatchSize
			}
			m.pruningVersion = next
			m.lock.Unlock()

			deleted, err := m.pruner.Prune(m.ctx, current, next)
			if m.ctx.Err() != nil {
				m.lock.Lock()
				m.pruningVersion = m.minReadableVersion
				m.lock.Unlock()
				return
			}
			if err != nil {
				m.log.Error("pruning failed",
					zap.String("pruner", m.pruner.Name()),
					zap.Uint64("minReadableVersion", current),
					zap.Uint64("targetVersion", next),
					zap.Error(err),
				)
				m.lock.Lock()
				m.err = fmt.Errorf("%w: %s: %w", errPrunerFailed, m.pruner.Name(), err)
				m.pruningVersion = m.minReadableVersion
				m.state = Idle
				m.notify()
				m.lock.Unlock()
				break
			}

			m.metrics.prunedItems.Add(float64(deleted))
			m.log.Debug("pruned",
				zap.String("pruner", m.pruner.Name()),
				zap.Uint64("minReadableVersion", next),
				zap.Int("numDeleted", deleted),
			)

			m.lock.Lock()
			m.setMinReadable(next)
			m.lock.Unlock()
		}
	}
}

func (m *PrunerManager) setMinReadable(version uint64) {
	if version <= m.minReadableVersion {
		return
	}
	m.minReadableVersion = version
	m.metrics.minReadableVersion.Set(float64(version))
	m.notify()
}

func (m *PrunerManager) notify() {
	close(m.progressed)
	m.progressed = make(chan struct{})
}
