// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package statedb

import (
	"fmt"

	"github.com/ava-labs/ledgerdb/types"
)

// MaxRequestLimit is the most records a single range read returns.
const MaxRequestLimit = 1000

// FirstSeqNumAndLimit converts a window anchored at [start] into an ascending
// window. A descending window ends at [start] and is clipped at zero.
func FirstSeqNumAndLimit(order types.Order, start, limit uint64) (uint64, uint64, error) {
	if limit == 0 {
		return 0, 0, ErrInvalidLimit
	}
	if order == types.Ascending {
		return start, limit, nil
	}
	if limit <= start {
		return start + 1 - limit, limit, nil
	}
	return 0, start + 1, nil
}

func errorIfTooManyRequested(numRequested uint64) error {
	if numRequested > MaxRequestLimit {
		return fmt.Errorf("%w: %d > %d", ErrTooManyRequested, numRequested, MaxRequestLimit)
	}
	return nil
}
