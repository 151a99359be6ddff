// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

// Version identifies the ledger state after a committed transaction. Versions
// are assigned contiguously and version 0 is the genesis state.
type Version = uint64

// Order selects the direction of a windowed read.
type Order byte

const (
	Ascending Order = iota
	Descending
)

func (o Order) String() string {
	switch o {
	case Ascending:
		return "ascending"
	case Descending:
		return "descending"
	default:
		return "unknown"
	}
}
