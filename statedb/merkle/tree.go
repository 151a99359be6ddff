// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package merkle

import (
	"bytes"
	"errors"
	"fmt"
	"slices"

	"github.com/ava-labs/ledgerdb/database"
	"github.com/ava-labs/ledgerdb/ids"
	"github.com/ava-labs/ledgerdb/utils/maybe"
)

var (
	ErrVersionNotIncreasing = errors.New("tree version must be greater than its base version")
	ErrMissingRoot          = errors.New("missing root node")
)

// Update sets [KeyHash] to [ValueHash], or deletes it if ValueHash is Nothing.
type Update struct {
	KeyHash   ids.ID
	ValueHash maybe.Maybe[ids.ID]
}

type NodeEntry struct {
	Key  NodeKey
	Node Node
}

// TreeUpdateBatch is everything that must be persisted to make the tree at
// [Version] readable.
type TreeUpdateBatch struct {
	Version  uint64
	RootHash ids.ID
	Nodes    []NodeEntry
	// StaleNodes are only reachable from versions that do not end an epoch.
	StaleNodes []StaleNodeIndex
	// StaleNodesCrossEpoch are reachable from at least one epoch-ending
	// version.
	StaleNodesCrossEpoch []StaleNodeIndex
}

// Tree is a versioned 16-ary Merkle tree over 32 byte key hashes. Every
// version's root lives at RootKey(version); nodes that did not change between
// versions are shared. The shape of the tree, and therefore its root hash,
// depends only on the set of leaves:
//
//   - no leaves is the NullNode
//   - one leaf is that leaf
//   - two or more leaves form an internal node with one child per distinct
//     next nibble
type Tree struct {
	reader NodeReader
}

func NewTree(reader NodeReader) *Tree {
	return &Tree{reader: reader}
}

// GetRootHash returns the root hash of the tree at [version].
func (t *Tree) GetRootHash(version uint64) (ids.ID, error) {
	root, err := t.reader.GetNode(RootKey(version))
	if err != nil {
		return ids.Empty, err
	}
	return root.Hash(), nil
}

// Update applies [updates] on top of the tree at [base] and returns the nodes
// of the tree at [version]. If [base] is Nothing, the updates are applied to an
// empty tree. [lastEpochEnding] is the latest version before [version] that
// ended an epoch, which decides which stale index replaced nodes go to.
func (t *Tree) Update(
	version uint64,
	base maybe.Maybe[uint64],
	updates []Update,
	lastEpochEnding maybe.Maybe[uint64],
) (*TreeUpdateBatch, error) {
	u := &updater{
		reader:          t.reader,
		version:         version,
		lastEpochEnding: lastEpochEnding,
		batch:           &TreeUpdateBatch{Version: version},
	}

	var existing *located
	if base.HasValue() {
		if version <= base.Value() {
			return nil, fmt.Errorf("%w: %d <= %d", ErrVersionNotIncreasing, version, base.Value())
		}
		rootKey := RootKey(base.Value())
		root, err := t.reader.GetNode(rootKey)
		if err != nil {
			return nil, fmt.Errorf("%w at version %d: %w", ErrMissingRoot, base.Value(), err)
		}
		existing = &located{key: rootKey, node: root}
	}

	result, err := u.apply(existing, "", dedupUpdates(updates))
	if err != nil {
		return nil, err
	}

	var root Node = &NullNode{}
	if result != nil {
		root = result.node
	}
	if existing != nil && (existing.node.kind() == nullNodeKind || result != nil && result.persisted) {
		// The recursion only marks nodes it replaced. An untouched root, or
		// an empty one, is still superseded by the copy at the new root key.
		u.markStale(existing.key)
	}
	u.put(RootKey(version), root)
	u.batch.RootHash = root.Hash()
	return u.batch, nil
}

// dedupUpdates keeps the last update per key and sorts by key hash.
func dedupUpdates(updates []Update) []Update {
	latest := make(map[ids.ID]int, len(updates))
	for i, update := range updates {
		latest[update.KeyHash] = i
	}
	deduped := make([]Update, 0, len(latest))
	for i, update := range updates {
		if latest[update.KeyHash] == i {
			deduped = append(deduped, update)
		}
	}
	slices.SortFunc(deduped, func(a, b Update) int {
		return a.KeyHash.Compare(b.KeyHash)
	})
	return deduped
}

type located struct {
	key  NodeKey
	node Node
}

// subtree is the result of applying updates below a path. If persisted is
// true, node is unchanged and already stored at key.
type subtree struct {
	node      Node
	persisted bool
	key       NodeKey
}

type updater struct {
	reader          NodeReader
	version         uint64
	lastEpochEnding maybe.Maybe[uint64]
	batch           *TreeUpdateBatch
}

func (u *updater) put(key NodeKey, node Node) {
	u.batch.Nodes = append(u.batch.Nodes, NodeEntry{Key: key, Node: node})
}

func (u *updater) markStale(key NodeKey) {
	index := StaleNodeIndex{
		StaleSince: u.version,
		NodeKey:    key,
	}
	if u.lastEpochEnding.HasValue() && key.Version <= u.lastEpochEnding.Value() {
		u.batch.StaleNodesCrossEpoch = append(u.batch.StaleNodesCrossEpoch, index)
		return
	}
	u.batch.StaleNodes = append(u.batch.StaleNodes, index)
}

// apply returns the subtree at [path] after applying [updates], which are
// sorted, unique and all share [path] as a prefix. [existing] is the node
// currently at [path], or nil.
func (u *updater) apply(existing *located, path NibblePath, updates []Update) (*subtree, error) {
	if existing != nil && existing.node.kind() == nullNodeKind {
		existing = nil
	}
	if len(updates) == 0 {
		if existing == nil {
			return nil, nil
		}
		return &subtree{node: existing.node, persisted: true, key: existing.key}, nil
	}
	if existing == nil {
		return u.build(path, leavesOf(nil, updates)), nil
	}

	switch n := existing.node.(type) {
	case *LeafNode:
		leaves := leavesOf(n, updates)
		if len(leaves) == 1 && *leaves[0] == *n {
			return &subtree{node: n, persisted: true, key: existing.key}, nil
		}
		u.markStale(existing.key)
		return u.build(path, leaves), nil
	case *InternalNode:
		return u.applyInternal(existing.key, n, path, updates)
	default:
		return nil, fmt.Errorf("unexpected node type %T at %s", n, existing.key)
	}
}

func (u *updater) applyInternal(
	key NodeKey,
	n *InternalNode,
	path NibblePath,
	updates []Update,
) (*subtree, error) {
	var (
		children [BranchFactor]*subtree
		changed  bool
		depth    = path.Len()
	)
	for nibble, child := range n.Children {
		if child == nil {
			continue
		}
		children[nibble] = &subtree{
			persisted: true,
			key:       key.child(byte(nibble), child.Version),
		}
	}

	for start := 0; start < len(updates); {
		nibble := NibbleAt(updates[start].KeyHash, depth)
		end := start + 1
		for end < len(updates) && NibbleAt(updates[end].KeyHash, depth) == nibble {
			end++
		}

		var childExisting *located
		if c := children[nibble]; c != nil {
			node, err := u.reader.GetNode(c.key)
			if err != nil {
				return nil, err
			}
			childExisting = &located{key: c.key, node: node}
		}
		result, err := u.apply(childExisting, path.Append(nibble), updates[start:end])
		if err != nil {
			return nil, err
		}
		if result == nil && children[nibble] != nil || result != nil && !result.persisted {
			changed = true
		}
		children[nibble] = result
		start = end
	}

	if !changed {
		return &subtree{node: n, persisted: true, key: key}, nil
	}
	u.markStale(key)

	var (
		count      int
		lastNibble int
	)
	for nibble, child := range children {
		if child != nil {
			count++
			lastNibble = nibble
		}
	}
	switch count {
	case 0:
		return nil, nil
	case 1:
		only := children[lastNibble]
		if only.persisted {
			isLeaf := n.Children[lastNibble] != nil && n.Children[lastNibble].IsLeaf
			if only.node == nil && !isLeaf {
				// A lone untouched internal child stays where it is.
				return u.internalFrom(n, path, children), nil
			}
			if only.node == nil {
				node, err := u.reader.GetNode(only.key)
				if err != nil {
					return nil, err
				}
				only.node = node
			}
			if only.node.kind() == leafNodeKind {
				u.markStale(only.key)
				return &subtree{node: only.node}, nil
			}
		} else if only.node.kind() == leafNodeKind {
			return only, nil
		}
	}
	return u.internalFrom(n, path, children), nil
}

// internalFrom assembles a new internal node at [path], writing every child
// that is not yet persisted. [prev] supplies the hashes of untouched children.
func (u *updater) internalFrom(prev *InternalNode, path NibblePath, children [BranchFactor]*subtree) *subtree {
	var refs [BranchFactor]*Child
	for nibble, child := range children {
		if child == nil {
			continue
		}
		switch {
		case child.persisted && child.node == nil:
			refs[nibble] = prev.Children[nibble]
		case child.persisted:
			refs[nibble] = &Child{
				Version: child.key.Version,
				Hash:    child.node.Hash(),
				IsLeaf:  child.node.kind() == leafNodeKind,
			}
		default:
			refs[nibble] = u.place(path, byte(nibble), child.node)
		}
	}
	return &subtree{node: newInternalNode(refs)}
}

// build returns the canonical subtree at [path] holding [leaves], which are
// sorted by key hash.
func (u *updater) build(path NibblePath, leaves []*LeafNode) *subtree {
	switch len(leaves) {
	case 0:
		return nil
	case 1:
		return &subtree{node: leaves[0]}
	}

	var (
		refs  [BranchFactor]*Child
		depth = path.Len()
	)
	for start := 0; start < len(leaves); {
		nibble := NibbleAt(leaves[start].KeyHash, depth)
		end := start + 1
		for end < len(leaves) && NibbleAt(leaves[end].KeyHash, depth) == nibble {
			end++
		}
		child := u.build(path.Append(nibble), leaves[start:end])
		refs[nibble] = u.place(path, nibble, child.node)
		start = end
	}
	return &subtree{node: newInternalNode(refs)}
}

// place writes [node] as the child of [path] at [nibble] in this version.
func (u *updater) place(path NibblePath, nibble byte, node Node) *Child {
	u.put(NodeKey{Version: u.version, Path: path.Append(nibble)}, node)
	return &Child{
		Version: u.version,
		Hash:    node.Hash(),
		IsLeaf:  node.kind() == leafNodeKind,
	}
}

// leavesOf merges [updates] into the optional [existing] leaf and returns the
// resulting leaves sorted by key hash.
func leavesOf(existing *LeafNode, updates []Update) []*LeafNode {
	leaves := make([]*LeafNode, 0, len(updates)+1)
	replaced := false
	for _, update := range updates {
		if existing != nil && update.KeyHash == existing.KeyHash {
			replaced = true
		}
		if update.ValueHash.IsNothing() {
			continue
		}
		leaves = append(leaves, &LeafNode{
			KeyHash:   update.KeyHash,
			ValueHash: update.ValueHash.Value(),
		})
	}
	if existing != nil && !replaced {
		leaves = append(leaves, existing)
		slices.SortFunc(leaves, func(a, b *LeafNode) int {
			return bytes.Compare(a.KeyHash[:], b.KeyHash[:])
		})
	}
	return leaves
}

// GetWithProof returns the value hash of [keyHash] at [version] along with a
// proof of its inclusion, or of its absence, against the root at [version].
func (t *Tree) GetWithProof(keyHash ids.ID, version uint64) (maybe.Maybe[ids.ID], *Proof, error) {
	proof := &Proof{Key: keyHash}
	key := RootKey(version)
	node, err := t.reader.GetNode(key)
	if err != nil {
		return maybe.Nothing[ids.ID](), nil, err
	}

	for depth := 0; ; depth++ {
		switch n := node.(type) {
		case *NullNode:
			return maybe.Nothing[ids.ID](), proof, nil
		case *LeafNode:
			proof.Leaf = n
			if n.KeyHash != keyHash {
				return maybe.Nothing[ids.ID](), proof, nil
			}
			return maybe.Some(n.ValueHash), proof, nil
		case *InternalNode:
			nibble := NibbleAt(keyHash, depth)
			var siblings []ProofChild
			for i, c := range n.Children {
				if c != nil && byte(i) != nibble {
					siblings = append(siblings, ProofChild{Nibble: byte(i), Hash: c.Hash})
				}
			}
			proof.Siblings = append(proof.Siblings, siblings)

			child := n.Children[nibble]
			if child == nil {
				return maybe.Nothing[ids.ID](), proof, nil
			}
			key = key.child(nibble, child.Version)
			node, err = t.reader.GetNode(key)
			if err != nil {
				return maybe.Nothing[ids.ID](), nil, err
			}
		default:
			return maybe.Nothing[ids.ID](), nil, fmt.Errorf("unexpected node type %T at %s", n, key)
		}
	}
}

// NodesReachable returns the key of every node reachable from the root at
// [version], including the root.
func (t *Tree) NodesReachable(version uint64) ([]NodeKey, error) {
	var (
		keys  []NodeKey
		stack = []NodeKey{RootKey(version)}
	)
	for len(stack) > 0 {
		key := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		keys = append(keys, key)

		node, err := t.reader.GetNode(key)
		if err != nil {
			return nil, err
		}
		internal, ok := node.(*InternalNode)
		if !ok {
			continue
		}
		for nibble, c := range internal.Children {
			if c != nil {
				stack = append(stack, key.child(byte(nibble), c.Version))
			}
		}
	}
	return keys, nil
}

// IsNotFound reports whether [err] came from reading a node that is not
// stored.
func IsNotFound(err error) bool {
	return errors.Is(err, database.ErrNotFound)
}
