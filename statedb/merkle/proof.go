// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package merkle

import (
	"errors"
	"fmt"

	"github.com/ava-labs/ledgerdb/ids"
	"github.com/ava-labs/ledgerdb/utils/maybe"
)

var (
	ErrInvalidProof          = errors.New("proof obtained an invalid root ID")
	ErrProofValueDoesntMatch = errors.New("the provided value does not match the proof node for the provided key's value")
	ErrNonInclusionLeaf      = errors.New("exclusion proof leaf is not on the key's path")
	ErrProofTooDeep          = errors.New("proof has more levels than the key has nibbles")
	ErrDuplicateSibling      = errors.New("proof lists a sibling on the key's path")
)

// ProofChild is a child of an internal node on the proven path that is not
// itself on the path.
type ProofChild struct {
	Nibble byte
	Hash   ids.ID
}

// Proof shows that [Key] maps to a value hash, or to nothing, under a root.
type Proof struct {
	Key ids.ID
	// Leaf is the leaf the path ends at. It is nil if the path ends at an
	// empty child or an empty tree.
	Leaf *LeafNode
	// Siblings[i] are the other children of the internal node at depth i.
	Siblings [][]ProofChild
}

// Verify returns nil iff this proof shows that [valueHash] is the value of
// [Key] in the tree with root hash [expectedRoot].
func (p *Proof) Verify(expectedRoot ids.ID, valueHash maybe.Maybe[ids.ID]) error {
	if len(p.Siblings) > MaxDepth {
		return ErrProofTooDeep
	}

	var (
		current ids.ID
		present bool
	)
	switch {
	case p.Leaf == nil:
		if valueHash.HasValue() {
			return ErrProofValueDoesntMatch
		}
	case p.Leaf.KeyHash == p.Key:
		if valueHash.IsNothing() || valueHash.Value() != p.Leaf.ValueHash {
			return ErrProofValueDoesntMatch
		}
		current, present = p.Leaf.Hash(), true
	default:
		if valueHash.HasValue() {
			return ErrProofValueDoesntMatch
		}
		if !NibblePath(pathOf(p.Key, len(p.Siblings))).IsPrefixOf(p.Leaf.KeyHash) {
			return ErrNonInclusionLeaf
		}
		current, present = p.Leaf.Hash(), true
	}

	for depth := len(p.Siblings) - 1; depth >= 0; depth-- {
		var (
			hashes   [BranchFactor]ids.ID
			occupied [BranchFactor]bool
			nibble   = NibbleAt(p.Key, depth)
		)
		for _, sibling := range p.Siblings[depth] {
			if sibling.Nibble >= BranchFactor || sibling.Nibble == nibble {
				return ErrDuplicateSibling
			}
			hashes[sibling.Nibble] = sibling.Hash
			occupied[sibling.Nibble] = true
		}
		if present {
			hashes[nibble] = current
			occupied[nibble] = true
		}
		current, present = hashChildren(hashes, occupied), true
	}

	if !present {
		current = ids.Empty
	}
	if current != expectedRoot {
		return fmt.Errorf("%w: expected %s got %s", ErrInvalidProof, expectedRoot, current)
	}
	return nil
}

func pathOf(keyHash ids.ID, depth int) []byte {
	path := make([]byte, depth)
	for i := range path {
		path[i] = NibbleAt(keyHash, i)
	}
	return path
}
