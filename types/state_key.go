// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ava-labs/ledgerdb/ids"
	"github.com/ava-labs/ledgerdb/utils/hashing"
)

// KeyTag identifies the shape of a StateKey's payload.
type KeyTag byte

const (
	// AccessPathTag keys address a resource stored under an account:
	// address(32) || resource type tag.
	AccessPathTag KeyTag = iota
	// TableItemTag keys address an entry in a table: handle(32) || key.
	TableItemTag
	// RawTag keys are arbitrary bytes.
	RawTag
)

var (
	ErrEmptyStateKey = errors.New("empty state key")
	ErrUnknownKeyTag = errors.New("unknown state key tag")
	ErrShortStateKey = errors.New("state key payload too short")
)

func (t KeyTag) String() string {
	switch t {
	case AccessPathTag:
		return "access_path"
	case TableItemTag:
		return "table_item"
	case RawTag:
		return "raw"
	default:
		return "unknown"
	}
}

// StateKey identifies one storage slot. The zero value is not a valid key.
// StateKeys are immutable and ordered bytewise on their encoding.
type StateKey struct {
	enc string
}

// NewAccessPathKey returns the key of [resource] stored under [address].
func NewAccessPathKey(address ids.ID, resource string) StateKey {
	var b strings.Builder
	b.Grow(1 + ids.IDLen + len(resource))
	b.WriteByte(byte(AccessPathTag))
	b.Write(address[:])
	b.WriteString(resource)
	return StateKey{enc: b.String()}
}

// NewTableItemKey returns the key of [key] in the table [handle].
func NewTableItemKey(handle ids.ID, key []byte) StateKey {
	var b strings.Builder
	b.Grow(1 + ids.IDLen + len(key))
	b.WriteByte(byte(TableItemTag))
	b.Write(handle[:])
	b.Write(key)
	return StateKey{enc: b.String()}
}

func NewRawKey(key []byte) StateKey {
	return StateKey{enc: string(byte(RawTag)) + string(key)}
}

// ParseStateKey is the inverse of StateKey.Bytes.
func ParseStateKey(b []byte) (StateKey, error) {
	if len(b) == 0 {
		return StateKey{}, ErrEmptyStateKey
	}
	switch tag := KeyTag(b[0]); tag {
	case AccessPathTag, TableItemTag:
		if len(b) < 1+ids.IDLen {
			return StateKey{}, fmt.Errorf("%w: %s key of %d bytes", ErrShortStateKey, tag, len(b))
		}
	case RawTag:
	default:
		return StateKey{}, fmt.Errorf("%w: %d", ErrUnknownKeyTag, b[0])
	}
	return StateKey{enc: string(b)}, nil
}

func (k StateKey) IsZero() bool {
	return len(k.enc) == 0
}

func (k StateKey) Tag() KeyTag {
	return KeyTag(k.enc[0])
}

// Bytes returns a copy of the key's encoding.
func (k StateKey) Bytes() []byte {
	return []byte(k.enc)
}

// Hash returns the SHA3-256 digest of the key's encoding. It positions the
// key in the state tree.
func (k StateKey) Hash() ids.ID {
	return hashing.ComputeHash256Array([]byte(k.enc))
}

func (k StateKey) Compare(other StateKey) int {
	return strings.Compare(k.enc, other.enc)
}

func (k StateKey) Less(other StateKey) bool {
	return k.enc < other.enc
}

// AccessPath returns the address and resource type tag of an access path key.
func (k StateKey) AccessPath() (ids.ID, string, bool) {
	if k.IsZero() || k.Tag() != AccessPathTag {
		return ids.Empty, "", false
	}
	var address ids.ID
	copy(address[:], k.enc[1:1+ids.IDLen])
	return address, k.enc[1+ids.IDLen:], true
}

// TableItem returns the handle and item key of a table item key.
func (k StateKey) TableItem() (ids.ID, []byte, bool) {
	if k.IsZero() || k.Tag() != TableItemTag {
		return ids.Empty, nil, false
	}
	var handle ids.ID
	copy(handle[:], k.enc[1:1+ids.IDLen])
	return handle, []byte(k.enc[1+ids.IDLen:]), true
}

func (k StateKey) String() string {
	if k.IsZero() {
		return "<empty>"
	}
	switch k.Tag() {
	case AccessPathTag:
		address, resource, _ := k.AccessPath()
		return fmt.Sprintf("%s/%s", address, resource)
	case TableItemTag:
		handle, key, _ := k.TableItem()
		return fmt.Sprintf("table:%s/%s", handle, hex.EncodeToString(key))
	default:
		return "raw:" + hex.EncodeToString([]byte(k.enc[1:]))
	}
}
