// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package reconcile

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ava-labs/ledgerdb/statedb"
)

const txVersionsParts = 3

var errMalformedLine = errors.New("malformed transaction line")

// TxVersions names the versions of store A and store B right after the same
// transaction was applied to each.
type TxVersions struct {
	Hash     string
	VersionA uint64
	VersionB uint64
}

// ParseTxVersions parses a "hash,versionA,versionB" line.
func ParseTxVersions(line string) (TxVersions, error) {
	parts := strings.Split(line, ",")
	if len(parts) != txVersionsParts {
		return TxVersions{}, fmt.Errorf("%w: expected %d parts but found %d", errMalformedLine, txVersionsParts, len(parts))
	}
	versionA, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return TxVersions{}, fmt.Errorf("%w: version A: %w", errMalformedLine, err)
	}
	versionB, err := strconv.ParseUint(strings.TrimSpace(parts[2]), 10, 64)
	if err != nil {
		return TxVersions{}, fmt.Errorf("%w: version B: %w", errMalformedLine, err)
	}
	return TxVersions{
		Hash:     strings.TrimSpace(parts[0]),
		VersionA: versionA,
		VersionB: versionB,
	}, nil
}

func (t TxVersions) String() string {
	return fmt.Sprintf("%s,%d,%d", t.Hash, t.VersionA, t.VersionB)
}

// CompareVersionPairs compares [a] and [b] after each of two transactions and
// returns the divergences of [second] that already existed at [first].
func (r *Reconciler) CompareVersionPairs(
	ctx context.Context,
	a statedb.Reader,
	b statedb.Reader,
	first TxVersions,
	second TxVersions,
) (*DivergenceSet, error) {
	results := make([]*DivergenceSet, 0, 2)
	for _, tx := range []TxVersions{first, second} {
		r.log.Info("comparing post transaction state",
			zap.String("txHash", tx.Hash),
			zap.Uint64("versionA", tx.VersionA),
			zap.Uint64("versionB", tx.VersionB),
		)
		divergences, err := r.Compare(ctx, a, tx.VersionA, b, tx.VersionB)
		if err != nil {
			return nil, fmt.Errorf("comparing after %s: %w", tx.Hash, err)
		}
		results = append(results, divergences)
	}
	return results[1].Intersect(results[0]), nil
}

// CompareFromReader compares [a] and [b] after every transaction listed in
// [in], one "hash,versionA,versionB" line each, and passes each result to
// [onResult]. Blank lines are skipped. It stops at the first error, including
// one returned by [onResult].
func (r *Reconciler) CompareFromReader(
	ctx context.Context,
	a statedb.Reader,
	b statedb.Reader,
	in io.Reader,
	onResult func(TxVersions, *DivergenceSet) error,
) error {
	scanner := bufio.NewScanner(in)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		tx, err := ParseTxVersions(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}

		r.log.Info("processing transaction",
			zap.String("txHash", tx.Hash),
			zap.Uint64("versionA", tx.VersionA),
			zap.Uint64("versionB", tx.VersionB),
		)
		divergences, err := r.Compare(ctx, a, tx.VersionA, b, tx.VersionB)
		if err != nil {
			return fmt.Errorf("comparing after %s: %w", tx.Hash, err)
		}
		if err := onResult(tx, divergences); err != nil {
			return err
		}
	}
	return scanner.Err()
}
