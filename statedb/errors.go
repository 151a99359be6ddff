// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package statedb

import (
	"errors"
	"fmt"

	"github.com/ava-labs/ledgerdb/database"
)

var (
	// ErrNotFound means the requested version or record never existed.
	ErrNotFound = errors.New("not found")
	// ErrPruned means the requested version existed but is outside the
	// retention window of the pruner that owns it.
	ErrPruned = errors.New("pruned")
	// ErrConflict means a commit did not extend the latest version.
	ErrConflict = errors.New("conflict")
	// ErrInvariantViolation means the stored state disagrees with what the
	// caller proved it to be. It must not be retried.
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrInternal wraps storage failures.
	ErrInternal = errors.New("internal error")

	ErrTooManyRequested = errors.New("too many items requested")
	ErrInvalidLimit     = errors.New("limit must be positive")
)

// wrapDBErr maps database errors into this package's taxonomy.
func wrapDBErr(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	if errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	}
	return fmt.Errorf("%w: %s: %w", ErrInternal, msg, err)
}
