// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pruner

import (
	"context"
	"sort"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/ledgerdb/utils/logging"
)

type testEpochs []uint64

func (e testEpochs) FirstEpochEndingAtOrAfter(version uint64) (uint64, bool, error) {
	i := sort.Search(len(e), func(i int) bool {
		return e[i] >= version
	})
	if i == len(e) {
		return 0, false, nil
	}
	return e[i], true, nil
}

func newTestManagerWith(t *testing.T, epochs EpochEndings, config ManagerConfig) *Manager {
	db, nodes := newTestDB(t)
	m, err := NewManager(logging.NoLog{}, db, nodes, epochs, config, prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func testManagerConfig() ManagerConfig {
	return ManagerConfig{
		Ledger:        Config{Enable: true, PruneWindow: 10, BatchSize: 3},
		StateMerkle:   Config{Enable: true, PruneWindow: 5, BatchSize: 3},
		EpochSnapshot: Config{Enable: true, PruneWindow: 10, BatchSize: 3},
	}
}

func TestManagerTargets(t *testing.T) {
	tests := []struct {
		name               string
		epochs             testEpochs
		checkpoint         uint64
		latest             uint64
		expectedLedger     uint64
		expectedMerkle     uint64
		expectedEpochSnap  uint64
	}{
		{
			name:              "inside every window",
			checkpoint:        4,
			latest:            4,
			expectedLedger:    0,
			expectedMerkle:    0,
			expectedEpochSnap: 0,
		},
		{
			name:              "no epoch endings",
			checkpoint:        30,
			latest:            30,
			expectedLedger:    20,
			expectedMerkle:    25,
			expectedEpochSnap: 25,
		},
		{
			name:              "epoch ending inside the epoch window",
			epochs:            testEpochs{3, 12, 22, 28},
			checkpoint:        30,
			latest:            30,
			expectedLedger:    20,
			expectedMerkle:    25,
			expectedEpochSnap: 22,
		},
		{
			name:              "epoch ending only inside the state merkle window",
			epochs:            testEpochs{3, 27},
			checkpoint:        30,
			latest:            30,
			expectedLedger:    20,
			expectedMerkle:    25,
			expectedEpochSnap: 25,
		},
		{
			name:              "ledger waits for the checkpoint",
			checkpoint:        12,
			latest:            40,
			expectedLedger:    13,
			expectedMerkle:    7,
			expectedEpochSnap: 7,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			m := newTestManagerWith(t, test.epochs, testManagerConfig())
			m.OnCommit(test.latest, test.checkpoint)
			require.NoError(m.OnFlush(test.checkpoint))
			require.NoError(m.WaitForPruners(context.Background()))

			require.Equal(test.expectedLedger, m.MinReadableVersionFor(LedgerDomain))
			require.Equal(test.expectedMerkle, m.MinReadableVersionFor(StateMerkleDomain))
			require.Equal(test.expectedEpochSnap, m.MinReadableVersionFor(EpochSnapshotDomain))
		})
	}
}

func TestManagerDisabledStateMerkleHoldsEpochSnapshots(t *testing.T) {
	require := require.New(t)

	config := testManagerConfig()
	config.StateMerkle.Enable = false
	m := newTestManagerWith(t, testEpochs{1}, config)

	require.NoError(m.OnFlush(100))
	require.NoError(m.WaitForPruners(context.Background()))
	require.Zero(m.MinReadableVersionFor(StateMerkleDomain))
	require.Zero(m.MinReadableVersionFor(EpochSnapshotDomain))

	p, err := m.Pruner(StateMerkleDomain)
	require.NoError(err)
	require.Equal(uint64(95), p.TargetVersion())
}

func TestManagerUnknownDomain(t *testing.T) {
	require := require.New(t)

	m := newTestManagerWith(t, testEpochs{}, testManagerConfig())
	_, err := m.Pruner(Domain(9))
	require.ErrorIs(err, errUnknownPruner)
	require.Zero(m.MinReadableVersionFor(Domain(9)))
	require.Equal("unknown", Domain(9).String())
}
