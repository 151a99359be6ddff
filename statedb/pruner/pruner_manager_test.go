// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pruner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/ledgerdb/utils/logging"
)

var _ Pruner = (*testPruner)(nil)

type testPruner struct {
	lock     sync.Mutex
	progress uint64
	calls    [][2]uint64
	err      error
	block    chan struct{}
}

func (*testPruner) Name() string {
	return "test_pruner"
}

func (p *testPruner) Prune(ctx context.Context, current, target uint64) (int, error) {
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	if p.err != nil {
		return 0, p.err
	}
	p.calls = append(p.calls, [2]uint64{current, target})
	p.progress = target
	return int(target - current), nil
}

func (p *testPruner) Progress() (uint64, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.progress, nil
}

func (p *testPruner) SaveProgress(version uint64) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.progress = version
	return nil
}

func (p *testPruner) Calls() [][2]uint64 {
	p.lock.Lock()
	defer p.lock.Unlock()

	return append([][2]uint64(nil), p.calls...)
}

func newTestManager(t *testing.T, pruner Pruner, config Config) (*PrunerManager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	m, err := NewPrunerManager(logging.NoLog{}, pruner, config, reg)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m, reg
}

func TestPrunerManagerAdvancesInBatches(t *testing.T) {
	require := require.New(t)

	pruner := &testPruner{}
	m, _ := newTestManager(t, pruner, Config{
		Enable:      true,
		PruneWindow: 10,
		BatchSize:   4,
	})
	require.True(m.IsPrunerEnabled())
	require.Equal(uint64(10), m.GetPruneWindow())

	m.MaybeSetPrunerTargetDBVersion(5)
	require.Zero(m.TargetVersion())

	m.MaybeSetPrunerTargetDBVersion(20)
	require.Equal(uint64(10), m.TargetVersion())
	require.NoError(m.WaitForPruner(context.Background()))
	require.Equal(uint64(10), m.MinReadableVersion())
	require.Equal([][2]uint64{{0, 4}, {4, 8}, {8, 10}}, pruner.Calls())

	require.Eventually(func() bool {
		return m.State() == Idle
	}, time.Second, time.Millisecond)

	progress, err := pruner.Progress()
	require.NoError(err)
	require.Equal(uint64(10), progress)
}

func TestPrunerManagerTargetIsMonotonic(t *testing.T) {
	require := require.New(t)

	pruner := &testPruner{}
	m, reg := newTestManager(t, pruner, Config{
		Enable:    true,
		BatchSize: 100,
	})

	m.SetWorkerTargetVersion(7)
	require.NoError(m.WaitForPruner(context.Background()))

	m.SetWorkerTargetVersion(3)
	require.Equal(uint64(7), m.TargetVersion())
	require.NoError(m.WaitForPruner(context.Background()))
	require.Equal(uint64(7), m.MinReadableVersion())
	require.Len(pruner.Calls(), 1)

	require.Equal(float64(7), testutil.ToFloat64(m.metrics.minReadableVersion))
	require.Equal(float64(7), testutil.ToFloat64(m.metrics.prunedItems))
	count, err := testutil.GatherAndCount(reg, "test_pruner_target_version")
	require.NoError(err)
	require.Equal(1, count)
}

func TestPrunerManagerDisabledNeverAdvances(t *testing.T) {
	require := require.New(t)

	pruner := &testPruner{}
	m, _ := newTestManager(t, pruner, Config{
		Enable:      false,
		PruneWindow: 1,
		BatchSize:   1,
	})

	m.MaybeSetPrunerTargetDBVersion(50)
	require.Equal(uint64(49), m.TargetVersion())
	require.NoError(m.WaitForPruner(context.Background()))
	require.Zero(m.MinReadableVersion())
	require.Equal(Idle, m.State())
	require.Empty(pruner.Calls())
}

func TestPrunerManagerResumesFromProgress(t *testing.T) {
	require := require.New(t)

	pruner := &testPruner{progress: 12}
	m, _ := newTestManager(t, pruner, Config{
		Enable:    true,
		BatchSize: 5,
	})
	require.Equal(uint64(12), m.MinReadableVersion())

	m.SetWorkerTargetVersion(14)
	require.NoError(m.WaitForPruner(context.Background()))
	require.Equal([][2]uint64{{12, 14}}, pruner.Calls())
}

func TestPrunerManagerError(t *testing.T) {
	require := require.New(t)

	errFailed := errors.New("failed")
	pruner := &testPruner{err: errFailed}
	m, _ := newTestManager(t, pruner, Config{
		Enable:    true,
		BatchSize: 5,
	})

	m.SetWorkerTargetVersion(3)
	err := m.WaitForPruner(context.Background())
	require.ErrorIs(err, errFailed)
	require.ErrorIs(err, errPrunerFailed)
	require.Zero(m.MinReadableVersion())
}

func TestPrunerManagerWaitHonorsContext(t *testing.T) {
	require := require.New(t)

	pruner := &testPruner{block: make(chan struct{})}
	m, _ := newTestManager(t, pruner, Config{
		Enable:    true,
		BatchSize: 5,
	})

	m.SetWorkerTargetVersion(3)
	require.Equal(Pruning, m.State())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(m.WaitForPruner(ctx), context.DeadlineExceeded)

	// Closing abandons the blocked batch without persisting it.
	m.Close()
	require.Zero(m.MinReadableVersion())
	require.Empty(pruner.Calls())
	require.ErrorIs(m.WaitForPruner(context.Background()), ErrClosed)
}

func TestSaveMinReadableVersion(t *testing.T) {
	require := require.New(t)

	pruner := &testPruner{}
	m, _ := newTestManager(t, pruner, Config{
		Enable:    true,
		BatchSize: 5,
	})

	require.NoError(m.SaveMinReadableVersion(30))
	require.Equal(uint64(30), m.MinReadableVersion())
	require.Equal(uint64(30), m.TargetVersion())
	require.NoError(m.WaitForPruner(context.Background()))
	require.Empty(pruner.Calls())

	progress, err := pruner.Progress()
	require.NoError(err)
	require.Equal(uint64(30), progress)
}

func TestConfigVerify(t *testing.T) {
	require := require.New(t)

	require.ErrorIs(Config{}.Verify(), errZeroBatchSize)

	config := DefaultManagerConfig()
	require.NoError(config.Verify())

	config.EpochSnapshot.PruneWindow = config.StateMerkle.PruneWindow - 1
	require.ErrorIs(config.Verify(), ErrWindowTooSmall)

	config.EpochSnapshot.Enable = false
	require.NoError(config.Verify())

	_, err := NewPrunerManager(logging.NoLog{}, &testPruner{}, Config{}, prometheus.NewRegistry())
	require.ErrorIs(err, errZeroBatchSize)
}
