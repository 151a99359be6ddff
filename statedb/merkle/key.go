// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package merkle

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ava-labs/ledgerdb/database"
	"github.com/ava-labs/ledgerdb/ids"
)

const (
	// BranchFactor is the number of children of an internal node.
	BranchFactor = 16
	// MaxDepth is the number of nibbles in a key hash.
	MaxDepth = 2 * ids.IDLen

	nodeKeyMinLen = database.Uint64Size + 1
)

var (
	errInvalidNodeKey    = errors.New("invalid node key")
	errNonZeroKeyPadding = errors.New("node key partial byte should be padded with 0s")
)

// NibbleAt returns the [depth]th nibble of [keyHash], most significant first.
func NibbleAt(keyHash ids.ID, depth int) byte {
	b := keyHash[depth/2]
	if depth%2 == 0 {
		return b >> 4
	}
	return b & 0x0f
}

// NibblePath is the position of a node below the root. Each byte of the
// string holds one nibble.
type NibblePath string

// Append returns the path of the child of [p] at [nibble].
func (p NibblePath) Append(nibble byte) NibblePath {
	return p + NibblePath([]byte{nibble})
}

func (p NibblePath) Len() int {
	return len(p)
}

// IsPrefixOf reports whether [keyHash] lies below [p].
func (p NibblePath) IsPrefixOf(keyHash ids.ID) bool {
	for i := 0; i < len(p); i++ {
		if NibbleAt(keyHash, i) != p[i] {
			return false
		}
	}
	return true
}

// packed returns the nibbles of [p] two per byte, padding the last byte with
// a zero nibble.
func (p NibblePath) packed() []byte {
	out := make([]byte, (len(p)+1)/2)
	for i := 0; i < len(p); i++ {
		if i%2 == 0 {
			out[i/2] = p[i] << 4
		} else {
			out[i/2] |= p[i]
		}
	}
	return out
}

func (p NibblePath) String() string {
	var b strings.Builder
	for i := 0; i < len(p); i++ {
		b.WriteString(hex.EncodeToString([]byte{p[i]})[1:])
	}
	return b.String()
}

// NodeKey addresses a node by the version that wrote it and its position.
type NodeKey struct {
	Version uint64
	Path    NibblePath
}

// RootKey returns the key of the root written at [version].
func RootKey(version uint64) NodeKey {
	return NodeKey{Version: version}
}

func (k NodeKey) child(nibble byte, version uint64) NodeKey {
	return NodeKey{
		Version: version,
		Path:    k.Path.Append(nibble),
	}
}

// Bytes encodes [k] as version || nibble count || packed nibbles. Keys sort by
// version first.
func (k NodeKey) Bytes() []byte {
	packed := k.Path.packed()
	b := make([]byte, nodeKeyMinLen+len(packed))
	binary.BigEndian.PutUint64(b, k.Version)
	b[database.Uint64Size] = byte(len(k.Path))
	copy(b[nodeKeyMinLen:], packed)
	return b
}

func (k NodeKey) String() string {
	return fmt.Sprintf("%d/%s", k.Version, k.Path)
}

func ParseNodeKey(b []byte) (NodeKey, error) {
	if len(b) < nodeKeyMinLen {
		return NodeKey{}, fmt.Errorf("%w: %d bytes", errInvalidNodeKey, len(b))
	}
	numNibbles := int(b[database.Uint64Size])
	packed := b[nodeKeyMinLen:]
	if numNibbles > MaxDepth || len(packed) != (numNibbles+1)/2 {
		return NodeKey{}, fmt.Errorf("%w: %d nibbles in %d bytes", errInvalidNodeKey, numNibbles, len(packed))
	}
	if numNibbles%2 == 1 && packed[len(packed)-1]&0x0f != 0 {
		return NodeKey{}, errNonZeroKeyPadding
	}

	path := make([]byte, numNibbles)
	for i := range path {
		if i%2 == 0 {
			path[i] = packed[i/2] >> 4
		} else {
			path[i] = packed[i/2] & 0x0f
		}
	}
	return NodeKey{
		Version: binary.BigEndian.Uint64(b),
		Path:    NibblePath(path),
	}, nil
}
