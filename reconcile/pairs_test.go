// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package reconcile

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTxVersions(t *testing.T) {
	tests := []struct {
		line        string
		expected    TxVersions
		expectedErr error
	}{
		{
			line:     "0xabc,1,2",
			expected: TxVersions{Hash: "0xabc", VersionA: 1, VersionB: 2},
		},
		{
			line:     " 0xabc , 10 , 20 ",
			expected: TxVersions{Hash: "0xabc", VersionA: 10, VersionB: 20},
		},
		{
			line:        "0xabc,1",
			expectedErr: errMalformedLine,
		},
		{
			line:        "0xabc,1,2,3",
			expectedErr: errMalformedLine,
		},
		{
			line:        "0xabc,-1,2",
			expectedErr: strconv.ErrSyntax,
		},
	}
	for _, test := range tests {
		t.Run(test.line, func(t *testing.T) {
			require := require.New(t)

			tx, err := ParseTxVersions(test.line)
			require.ErrorIs(err, test.expectedErr)
			require.Equal(test.expected, tx)
		})
	}
}

func TestCompareVersionPairs(t *testing.T) {
	require := require.New(t)

	a := newStore(t,
		putSet(testKey(1), "a"),
		putSet(testKey(2), "b"),
	)
	b := newStore(t,
		putSet(testKey(1), "x"),
		putSet(testKey(2), "c"),
	)
	r := newReconciler(StopOnStructural)

	divergences, err := r.CompareVersionPairs(
		context.Background(),
		a,
		b,
		TxVersions{Hash: "tx0", VersionA: 0, VersionB: 0},
		TxVersions{Hash: "tx1", VersionA: 1, VersionB: 1},
	)
	require.NoError(err)
	require.Equal([]kindKey{{kind: RawValueMismatch, key: testKey(1)}}, kindKeys(divergences))

	_, err = r.CompareVersionPairs(
		context.Background(),
		a,
		b,
		TxVersions{Hash: "tx0", VersionA: 0, VersionB: 0},
		TxVersions{Hash: "tx9", VersionA: 9, VersionB: 1},
	)
	require.ErrorIs(err, ErrInternal)
}

func TestCompareVersionPairsChangedValues(t *testing.T) {
	require := require.New(t)

	a := newStore(t,
		putSet(testKey(1), "a"),
		putSet(testKey(1), "b"),
	)
	b := newStore(t,
		putSet(testKey(1), "x"),
		putSet(testKey(1), "x"),
	)
	r := newReconciler(FullReport)

	// key-1 diverges after both transactions, but with different values.
	divergences, err := r.CompareVersionPairs(
		context.Background(),
		a,
		b,
		TxVersions{Hash: "tx0", VersionA: 0, VersionB: 0},
		TxVersions{Hash: "tx1", VersionA: 1, VersionB: 1},
	)
	require.NoError(err)
	require.Zero(divergences.Len())
}

func TestCompareFromReader(t *testing.T) {
	require := require.New(t)

	a := newStore(t,
		putSet(testKey(1), "a"),
		putSet(testKey(2), "b"),
	)
	b := newStore(t,
		putSet(testKey(1), "a"),
		putSet(testKey(2), "c"),
	)
	r := newReconciler(StopOnStructural)

	var (
		hashes []string
		counts []int
	)
	input := "tx0,0,0\n\ntx1,1,1\n"
	err := r.CompareFromReader(context.Background(), a, b, strings.NewReader(input), func(tx TxVersions, divergences *DivergenceSet) error {
		hashes = append(hashes, tx.Hash)
		counts = append(counts, divergences.Len())
		return nil
	})
	require.NoError(err)
	require.Equal([]string{"tx0", "tx1"}, hashes)
	require.Equal([]int{0, 1}, counts)

	err = r.CompareFromReader(context.Background(), a, b, strings.NewReader("tx0,0,0\ntx1,1\n"), func(TxVersions, *DivergenceSet) error {
		return nil
	})
	require.ErrorIs(err, errMalformedLine)
	require.ErrorContains(err, "line 2")

	err = r.CompareFromReader(context.Background(), a, b, strings.NewReader(input), func(TxVersions, *DivergenceSet) error {
		return errTest
	})
	require.ErrorIs(err, errTest)
}
