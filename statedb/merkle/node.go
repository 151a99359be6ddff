// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package merkle

import (
	"github.com/ava-labs/ledgerdb/ids"
	"github.com/ava-labs/ledgerdb/utils/hashing"
)

const (
	nullNodeKind byte = iota
	internalNodeKind
	leafNodeKind
)

var (
	_ Node = (*NullNode)(nil)
	_ Node = (*InternalNode)(nil)
	_ Node = (*LeafNode)(nil)

	leafDomain     = []byte{0x00}
	internalDomain = []byte{0x01}
)

// Node is a node of the state tree. Nodes are immutable once created.
type Node interface {
	Hash() ids.ID
	kind() byte
}

// NullNode is the root of an empty tree.
type NullNode struct{}

func (*NullNode) Hash() ids.ID {
	return ids.Empty
}

func (*NullNode) kind() byte {
	return nullNodeKind
}

// LeafNode commits to a single key.
type LeafNode struct {
	KeyHash   ids.ID
	ValueHash ids.ID
}

func (n *LeafNode) Hash() ids.ID {
	return hashing.ComputeHash256Parts(leafDomain, n.KeyHash[:], n.ValueHash[:])
}

func (*LeafNode) kind() byte {
	return leafNodeKind
}

// Child references a node one level below an internal node. The child's
// NodeKey is the parent's path extended by its nibble, at [Version].
type Child struct {
	Version uint64
	Hash    ids.ID
	IsLeaf  bool
}

// InternalNode has between 1 and BranchFactor children. An internal node with a
// single child always has an internal child; a lone leaf is stored in its
// parent's place instead.
type InternalNode struct {
	Children [BranchFactor]*Child

	hash ids.ID
}

func newInternalNode(children [BranchFactor]*Child) *InternalNode {
	n := &InternalNode{Children: children}
	n.hash = n.computeHash()
	return n
}

func (n *InternalNode) Hash() ids.ID {
	return n.hash
}

func (*InternalNode) kind() byte {
	return internalNodeKind
}

func (n *InternalNode) NumChildren() int {
	count := 0
	for _, c := range n.Children {
		if c != nil {
			count++
		}
	}
	return count
}

func (n *InternalNode) computeHash() ids.ID {
	var hashes [BranchFactor]ids.ID
	var present [BranchFactor]bool
	for i, c := range n.Children {
		if c != nil {
			hashes[i] = c.Hash
			present[i] = true
		}
	}
	return hashChildren(hashes, present)
}

// hashChildren hashes the domain tag, a 16 bit presence bitmap and the
// present child hashes in nibble order.
func hashChildren(hashes [BranchFactor]ids.ID, present [BranchFactor]bool) ids.ID {
	var bitmap uint16
	parts := make([][]byte, 0, 2+BranchFactor)
	parts = append(parts, internalDomain, nil)
	for i := range hashes {
		if !present[i] {
			continue
		}
		bitmap |= 1 << (BranchFactor - 1 - i)
		parts = append(parts, hashes[i][:])
	}
	parts[1] = []byte{byte(bitmap >> 8), byte(bitmap)}
	return hashing.ComputeHash256Parts(parts...)
}
