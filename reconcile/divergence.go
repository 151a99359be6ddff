// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package reconcile

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/google/btree"

	"github.com/ava-labs/ledgerdb/types"
	"github.com/ava-labs/ledgerdb/utils/maybe"
)

const (
	btreeDegree = 16

	// maxPrintedValueLen bounds how much of a value is rendered by String.
	maxPrintedValueLen = 64
)

// Kind classifies a divergence. Kinds are ranked in declaration order and
// lower kinds are reported first.
type Kind uint8

const (
	// BalanceMismatch means both stores hold a balance resource for the key
	// and the balances differ.
	BalanceMismatch Kind = iota
	// AccountMismatch means both stores hold an account resource for the key
	// and at least one field differs.
	AccountMismatch
	// RawValueMismatch means both stores hold a value for the key and the
	// bytes differ.
	RawValueMismatch
	// UnexpectedlyPresentValue means the walked store has no value for the
	// key while the other store has one.
	UnexpectedlyPresentValue
	// MissingValue means the walked store has a value for the key while the
	// other store has none.
	MissingValue
)

func (k Kind) String() string {
	switch k {
	case BalanceMismatch:
		return "balance mismatch"
	case AccountMismatch:
		return "account mismatch"
	case RawValueMismatch:
		return "raw value mismatch"
	case UnexpectedlyPresentValue:
		return "unexpectedly present value"
	case MissingValue:
		return "missing value"
	default:
		return "unknown"
	}
}

// Structural reports whether a divergence of this kind means the two
// keyspaces disagree, as opposed to two values disagreeing.
func (k Kind) Structural() bool {
	return k == UnexpectedlyPresentValue || k == MissingValue
}

// Side names one of the two stores passed to Compare.
type Side uint8

const (
	SideA Side = iota
	SideB
)

func (s Side) String() string {
	if s == SideA {
		return "A"
	}
	return "B"
}

// Divergence is one difference between store A and store B. A and B always
// hold the values observed in the store of that name, whichever store's
// keyspace was being walked.
type Divergence struct {
	Kind Kind
	Key  types.StateKey
	// Walked is the store whose keyspace produced this divergence.
	Walked Side
	A      maybe.Maybe[[]byte]
	B      maybe.Maybe[[]byte]
	// Detail describes which decoded fields differ, if the values were
	// decoded.
	Detail string
}

// Less orders divergences by kind and then by key.
func (d Divergence) Less(other Divergence) bool {
	if d.Kind != other.Kind {
		return d.Kind < other.Kind
	}
	return d.Key.Less(other.Key)
}

func (d Divergence) String() string {
	s := fmt.Sprintf("%s at %s: A=%s B=%s", d.Kind, d.Key, formatValue(d.A), formatValue(d.B))
	if d.Detail != "" {
		s += " (" + d.Detail + ")"
	}
	return s
}

func formatValue(v maybe.Maybe[[]byte]) string {
	if v.IsNothing() {
		return "<none>"
	}
	b := v.Value()
	if len(b) > maxPrintedValueLen {
		return "0x" + hex.EncodeToString(b[:maxPrintedValueLen]) + "..."
	}
	return "0x" + hex.EncodeToString(b)
}

// DivergenceSet is an ordered set of divergences keyed by kind and key. The
// first divergence added for a kind and key is the one kept.
//
// DivergenceSet is not safe for concurrent use.
type DivergenceSet struct {
	tree *btree.BTreeG[Divergence]
}

func NewDivergenceSet() *DivergenceSet {
	return &DivergenceSet{
		tree: btree.NewG[Divergence](btreeDegree, Divergence.Less),
	}
}

// Add inserts [d] and reports whether the set did not already hold a
// divergence of the same kind for the same key.
func (s *DivergenceSet) Add(d Divergence) bool {
	if s.tree.Has(d) {
		return false
	}
	s.tree.ReplaceOrInsert(d)
	return true
}

// Union adds every divergence of [other] to the set.
func (s *DivergenceSet) Union(other *DivergenceSet) {
	other.tree.Ascend(func(d Divergence) bool {
		s.Add(d)
		return true
	})
}

// Intersect returns the divergences of [s] that [other] also holds with the
// same observed values.
func (s *DivergenceSet) Intersect(other *DivergenceSet) *DivergenceSet {
	result := NewDivergenceSet()
	s.tree.Ascend(func(d Divergence) bool {
		if o, ok := other.tree.Get(d); ok && d.sameValues(o) {
			result.tree.ReplaceOrInsert(d)
		}
		return true
	})
	return result
}

func (d Divergence) sameValues(other Divergence) bool {
	return maybe.Equal(d.A, other.A, bytes.Equal) && maybe.Equal(d.B, other.B, bytes.Equal)
}

func (s *DivergenceSet) Has(kind Kind, key types.StateKey) bool {
	return s.tree.Has(Divergence{Kind: kind, Key: key})
}

func (s *DivergenceSet) Len() int {
	return s.tree.Len()
}

// First returns the lowest ranked divergence.
func (s *DivergenceSet) First() (Divergence, bool) {
	return s.tree.Min()
}

// Ascend calls [f] on every divergence in rank order until [f] returns false.
func (s *DivergenceSet) Ascend(f func(Divergence) bool) {
	s.tree.Ascend(f)
}

// List returns the divergences in rank order.
func (s *DivergenceSet) List() []Divergence {
	list := make([]Divergence, 0, s.tree.Len())
	s.tree.Ascend(func(d Divergence) bool {
		list = append(list, d)
		return true
	})
	return list
}
