// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package merkle

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ava-labs/ledgerdb/ids"
)

const (
	kindLen   = 1
	bitmapLen = 2
	// Child version, child hash
	estimatedChildLen = binary.MaxVarintLen64 + ids.IDLen
	leafNodeLen       = kindLen + 2*ids.IDLen
)

var (
	ErrUnknownNodeKind = errors.New("unknown node kind")
	ErrLeadingZeroes   = errors.New("varint has leading zeroes")
	ErrExtraSpace      = errors.New("trailing buffer space")
	errEmptyInternal   = errors.New("internal node without children")
	errLeafMaskUnset   = errors.New("leaf bitmap marks a missing child")
)

// encodeNode returns the persisted form of [n]:
//
//	null:     kind
//	leaf:     kind || keyHash || valueHash
//	internal: kind || childBitmap || leafBitmap || (uvarint(version) || hash)*
//
// with children in nibble order.
func encodeNode(n Node) []byte {
	switch n := n.(type) {
	case *NullNode:
		return []byte{nullNodeKind}
	case *LeafNode:
		b := make([]byte, 0, leafNodeLen)
		b = append(b, leafNodeKind)
		b = append(b, n.KeyHash[:]...)
		return append(b, n.ValueHash[:]...)
	case *InternalNode:
		buf := bytes.NewBuffer(make([]byte, 0, kindLen+2*bitmapLen+n.NumChildren()*estimatedChildLen))
		_ = buf.WriteByte(internalNodeKind)

		var childBitmap, leafBitmap uint16
		for i, c := range n.Children {
			if c == nil {
				continue
			}
			childBitmap |= 1 << i
			if c.IsLeaf {
				leafBitmap |= 1 << i
			}
		}
		encodeUint16(buf, childBitmap)
		encodeUint16(buf, leafBitmap)

		var varint [binary.MaxVarintLen64]byte
		for _, c := range n.Children {
			if c == nil {
				continue
			}
			size := binary.PutUvarint(varint[:], c.Version)
			_, _ = buf.Write(varint[:size])
			_, _ = buf.Write(c.Hash[:])
		}
		return buf.Bytes()
	default:
		panic(fmt.Sprintf("unexpected node type %T", n))
	}
}

func encodeUint16(dst *bytes.Buffer, v uint16) {
	_, _ = dst.Write([]byte{byte(v >> 8), byte(v)})
}

func decodeNode(b []byte) (Node, error) {
	if len(b) < kindLen {
		return nil, io.ErrUnexpectedEOF
	}
	switch b[0] {
	case nullNodeKind:
		if len(b) != kindLen {
			return nil, ErrExtraSpace
		}
		return &NullNode{}, nil
	case leafNodeKind:
		switch {
		case len(b) < leafNodeLen:
			return nil, io.ErrUnexpectedEOF
		case len(b) > leafNodeLen:
			return nil, ErrExtraSpace
		}
		n := &LeafNode{}
		copy(n.KeyHash[:], b[kindLen:])
		copy(n.ValueHash[:], b[kindLen+ids.IDLen:])
		return n, nil
	case internalNodeKind:
		return decodeInternalNode(bytes.NewReader(b[kindLen:]))
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownNodeKind, b[0])
	}
}

func decodeInternalNode(src *bytes.Reader) (*InternalNode, error) {
	childBitmap, err := decodeUint16(src)
	if err != nil {
		return nil, err
	}
	leafBitmap, err := decodeUint16(src)
	if err != nil {
		return nil, err
	}
	if childBitmap == 0 {
		return nil, errEmptyInternal
	}
	if leafBitmap&^childBitmap != 0 {
		return nil, errLeafMaskUnset
	}

	var children [BranchFactor]*Child
	for i := range children {
		if childBitmap&(1<<i) == 0 {
			continue
		}
		version, err := decodeUint(src)
		if err != nil {
			return nil, err
		}
		var hash ids.ID
		if _, err := io.ReadFull(src, hash[:]); err != nil {
			return nil, io.ErrUnexpectedEOF
		}
		children[i] = &Child{
			Version: version,
			Hash:    hash,
			IsLeaf:  leafBitmap&(1<<i) != 0,
		}
	}
	if src.Len() != 0 {
		return nil, ErrExtraSpace
	}
	return newInternalNode(children), nil
}

func decodeUint16(src *bytes.Reader) (uint16, error) {
	var b [bitmapLen]byte
	if _, err := io.ReadFull(src, b[:]); err != nil {
		return 0, io.ErrUnexpectedEOF
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

func decodeUint(src *bytes.Reader) (uint64, error) {
	// To ensure encoding/decoding is canonical, we need to check for leading
	// zeroes in the varint.
	// The last byte of the varint we read is the most significant byte.
	// If it's 0, then it's a leading zero, which is considered invalid in the
	// canonical encoding.
	startLen := src.Len()
	val64, err := binary.ReadUvarint(src)
	if err != nil {
		if err == io.EOF {
			return 0, io.ErrUnexpectedEOF
		}
		return 0, err
	}
	endLen := src.Len()

	// Just 0x00 is a valid value so don't check if the varint is 1 byte
	if startLen-endLen > 1 {
		if err := src.UnreadByte(); err != nil {
			return 0, err
		}
		lastByte, err := src.ReadByte()
		if err != nil {
			return 0, err
		}
		if lastByte == 0x00 {
			return 0, ErrLeadingZeroes
		}
	}
	return val64, nil
}
