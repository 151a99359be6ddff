// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package statedb

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/ledgerdb/types"
)

func TestFirstSeqNumAndLimit(t *testing.T) {
	tests := []struct {
		order         types.Order
		start         uint64
		limit         uint64
		expectedFirst uint64
		expectedLimit uint64
		expectedErr   error
	}{
		{order: types.Ascending, start: 2, limit: 1, expectedFirst: 2, expectedLimit: 1},
		{order: types.Ascending, start: 2, limit: 3, expectedFirst: 2, expectedLimit: 3},
		{order: types.Ascending, start: 2, limit: 4, expectedFirst: 2, expectedLimit: 4},
		{order: types.Descending, start: 2, limit: 1, expectedFirst: 2, expectedLimit: 1},
		{order: types.Descending, start: 2, limit: 2, expectedFirst: 1, expectedLimit: 2},
		{order: types.Descending, start: 2, limit: 3, expectedFirst: 0, expectedLimit: 3},
		{order: types.Descending, start: 2, limit: 4, expectedFirst: 0, expectedLimit: 3},
		{order: types.Descending, start: 0, limit: 5, expectedFirst: 0, expectedLimit: 1},
		{order: types.Ascending, start: 2, limit: 0, expectedErr: ErrInvalidLimit},
		{order: types.Descending, start: 2, limit: 0, expectedErr: ErrInvalidLimit},
	}
	for _, test := range tests {
		first, limit, err := FirstSeqNumAndLimit(test.order, test.start, test.limit)
		require.ErrorIs(t, err, test.expectedErr, "%s(%d, %d)", test.order, test.start, test.limit)
		if test.expectedErr != nil {
			continue
		}
		require.Equal(t, test.expectedFirst, first, "%s(%d, %d)", test.order, test.start, test.limit)
		require.Equal(t, test.expectedLimit, limit, "%s(%d, %d)", test.order, test.start, test.limit)
	}
}

func TestFirstSeqNumAndLimitProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("ascending windows are unchanged", prop.ForAll(
		func(start, limit uint64) bool {
			first, n, err := FirstSeqNumAndLimit(types.Ascending, start, limit)
			return err == nil && first == start && n == limit
		},
		gen.UInt64(),
		gen.UInt64Range(1, 1<<32),
	))

	properties.Property("descending windows end at start", prop.ForAll(
		func(start, limit uint64) bool {
			first, n, err := FirstSeqNumAndLimit(types.Descending, start, limit)
			return err == nil &&
				n >= 1 &&
				n <= limit &&
				first <= start &&
				first+n-1 == start &&
				(first == 0 || n == limit)
		},
		gen.UInt64Range(0, 1<<40),
		gen.UInt64Range(1, 1<<41),
	))

	properties.TestingRun(t)
}
