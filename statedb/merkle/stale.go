// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package merkle

import (
	"encoding/binary"
	"fmt"

	"github.com/ava-labs/ledgerdb/database"
)

// StaleNodeIndex records that the node at [NodeKey] is not reachable from the
// root of any version at or after [StaleSince].
type StaleNodeIndex struct {
	StaleSince uint64
	NodeKey    NodeKey
}

// Bytes encodes [s] as staleSince || nodeKey so that indexes sort by the
// version they became stale at.
func (s StaleNodeIndex) Bytes() []byte {
	nodeKey := s.NodeKey.Bytes()
	b := make([]byte, database.Uint64Size+len(nodeKey))
	binary.BigEndian.PutUint64(b, s.StaleSince)
	copy(b[database.Uint64Size:], nodeKey)
	return b
}

func ParseStaleNodeIndex(b []byte) (StaleNodeIndex, error) {
	if len(b) < database.Uint64Size {
		return StaleNodeIndex{}, fmt.Errorf("%w: stale index of %d bytes", errInvalidNodeKey, len(b))
	}
	nodeKey, err := ParseNodeKey(b[database.Uint64Size:])
	if err != nil {
		return StaleNodeIndex{}, err
	}
	return StaleNodeIndex{
		StaleSince: binary.BigEndian.Uint64(b),
		NodeKey:    nodeKey,
	}, nil
}
