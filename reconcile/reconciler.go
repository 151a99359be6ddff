// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/ava-labs/ledgerdb/statedb"
	"github.com/ava-labs/ledgerdb/trace"
	"github.com/ava-labs/ledgerdb/types"
	"github.com/ava-labs/ledgerdb/utils/logging"
	"github.com/ava-labs/ledgerdb/utils/maybe"
)

var (
	// ErrInternal wraps every failure to read either store. A walk that fails
	// returns no divergences.
	ErrInternal = errors.New("reconcile: internal error")
	// ErrUnsatisfied is wrapped by the error Satisfies returns when the stores
	// diverge.
	ErrUnsatisfied = errors.New("stores diverge")

	errUnknownMode = errors.New("unknown reconcile mode")
)

// Mode controls when a walk stops.
type Mode uint8

const (
	// StopOnStructural stops a walk at its first missing or unexpectedly
	// present value and collects every value mismatch before it.
	StopOnStructural Mode = iota
	// FailFast stops a walk at its first divergence of any kind.
	FailFast
	// FullReport walks the whole keyspace and collects every divergence.
	FullReport
)

func (m Mode) String() string {
	switch m {
	case StopOnStructural:
		return "stop-on-structural"
	case FailFast:
		return "fail-fast"
	case FullReport:
		return "full-report"
	default:
		return "unknown"
	}
}

func ModeFromString(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case StopOnStructural.String(), "":
		return StopOnStructural, nil
	case FailFast.String():
		return FailFast, nil
	case FullReport.String():
		return FullReport, nil
	default:
		return 0, fmt.Errorf("%w: %q", errUnknownMode, s)
	}
}

func (m Mode) stopsAt(kind Kind) bool {
	switch m {
	case FailFast:
		return true
	case FullReport:
		return false
	default:
		return kind.Structural()
	}
}

// UnsatisfiedError reports the lowest ranked divergence between two stores.
type UnsatisfiedError struct {
	First Divergence
	Count int
}

func (e *UnsatisfiedError) Error() string {
	return fmt.Sprintf("%s: %d divergence(s), first: %s", ErrUnsatisfied, e.Count, e.First)
}

func (*UnsatisfiedError) Unwrap() error {
	return ErrUnsatisfied
}

// Reconciler compares the states of two stores key by key.
type Reconciler struct {
	log    logging.Logger
	tracer trace.Tracer
	mode   Mode
}

func New(log logging.Logger, tracer trace.Tracer, mode Mode) *Reconciler {
	return &Reconciler{
		log:    log,
		tracer: tracer,
		mode:   mode,
	}
}

func (r *Reconciler) Mode() Mode {
	return r.mode
}

// Compare returns the divergences between the state of [a] at [versionA] and
// the state of [b] at [versionB]. It walks the keyspace of each store against
// the other concurrently, so a key known to only one store is still found.
// Comparing a store with itself at one version returns an empty set.
func (r *Reconciler) Compare(
	ctx context.Context,
	a statedb.Reader,
	versionA uint64,
	b statedb.Reader,
	versionB uint64,
) (*DivergenceSet, error) {
	ctx, span := r.tracer.Start(ctx, "Reconciler.Compare", oteltrace.WithAttributes(
		attribute.Int64("versionA", int64(versionA)),
		attribute.Int64("versionB", int64(versionB)),
		attribute.Stringer("mode", r.mode),
	))
	defer span.End()

	start := time.Now()
	var (
		fromA = walk{
			base:   statedb.NewStateView(a, versionA),
			other:  statedb.NewStateView(b, versionB),
			walked: SideA,
		}
		fromB = walk{
			base:   statedb.NewStateView(b, versionB),
			other:  statedb.NewStateView(a, versionA),
			walked: SideB,
		}
		resultA *DivergenceSet
		resultB *DivergenceSet
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer r.log.StopOnPanic()

		var err error
		resultA, err = r.walk(gctx, fromA)
		return err
	})
	g.Go(func() error {
		defer r.log.StopOnPanic()

		var err error
		resultB, err = r.walk(gctx, fromB)
		return err
	})
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	resultA.Union(resultB)
	span.SetAttributes(attribute.Int("numDivergences", resultA.Len()))
	r.log.Info("compared stores",
		zap.Uint64("versionA", versionA),
		zap.Uint64("versionB", versionB),
		zap.Stringer("mode", r.mode),
		zap.Int("numDivergences", resultA.Len()),
		zap.Duration("duration", time.Since(start)),
	)
	return resultA, nil
}

// Satisfies compares [a] and [b] at their latest versions and returns an
// *UnsatisfiedError if they diverge.
func (r *Reconciler) Satisfies(ctx context.Context, a, b statedb.Reader) error {
	versionA, err := a.GetLatestVersion()
	if err != nil {
		return fmt.Errorf("%w: latest version of A: %w", ErrInternal, err)
	}
	versionB, err := b.GetLatestVersion()
	if err != nil {
		return fmt.Errorf("%w: latest version of B: %w", ErrInternal, err)
	}

	divergences, err := r.Compare(ctx, a, versionA, b, versionB)
	if err != nil {
		return err
	}
	first, ok := divergences.First()
	if !ok {
		return nil
	}
	return &UnsatisfiedError{
		First: first,
		Count: divergences.Len(),
	}
}

type walk struct {
	base   *statedb.StateView
	other  *statedb.StateView
	walked Side
}

// divergence orients a base/other observation as A/B.
func (w walk) divergence(kind Kind, key types.StateKey, base, other maybe.Maybe[[]byte], detail string) Divergence {
	d := Divergence{
		Kind:   kind,
		Key:    key,
		Walked: w.walked,
		A:      base,
		B:      other,
		Detail: detail,
	}
	if w.walked == SideB {
		d.A, d.B = other, base
	}
	return d
}

func (r *Reconciler) walk(ctx context.Context, w walk) (*DivergenceSet, error) {
	ctx, span := r.tracer.Start(ctx, "Reconciler.walk", oteltrace.WithAttributes(
		attribute.Stringer("walked", w.walked),
		attribute.Int64("baseVersion", int64(w.base.Version())),
		attribute.Int64("otherVersion", int64(w.other.Version())),
	))
	defer span.End()

	it, err := w.base.Keys()
	if err != nil {
		return nil, fmt.Errorf("%w: iterating keys of %s: %w", ErrInternal, w.walked, err)
	}
	defer it.Release()

	var (
		result  = NewDivergenceSet()
		numKeys int
	)
	for it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		numKeys++

		key := it.Key()
		base, err := w.base.Get(key)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s from %s at %d: %w", ErrInternal, key, w.walked, w.base.Version(), err)
		}
		other, err := w.other.Get(key)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s from the store other than %s at %d: %w", ErrInternal, key, w.walked, w.other.Version(), err)
		}

		var d Divergence
		switch {
		case base.IsNothing() && other.IsNothing():
			continue
		case base.IsNothing():
			d = w.divergence(UnexpectedlyPresentValue, key, base, other, "")
		case other.IsNothing():
			d = w.divergence(MissingValue, key, base, other, "")
		default:
			a, b := base.Value(), other.Value()
			if w.walked == SideB {
				a, b = b, a
			}
			kind, detail, diverged := compareValues(key, a, b)
			if !diverged {
				continue
			}
			d = w.divergence(kind, key, base, other, detail)
		}

		result.Add(d)
		if r.mode.stopsAt(d.Kind) {
			r.log.Debug("stopping walk",
				zap.Stringer("walked", w.walked),
				zap.Stringer("divergence", d),
			)
			break
		}
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("%w: iterating keys of %s: %w", ErrInternal, w.walked, err)
	}

	span.SetAttributes(
		attribute.Int("numKeys", numKeys),
		attribute.Int("numDivergences", result.Len()),
	)
	return result, nil
}
