// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ids

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ava-labs/ledgerdb/utils/hashing"
)

const IDLen = 32

var (
	// Empty is a useful all zero value
	Empty = ID{}

	errMissingQuotes = errors.New("first and last characters should be quotes")
)

// ID wraps a 32 byte hash used as an identifier
type ID [IDLen]byte

// ToID attempt to convert a byte slice into an id
func ToID(bytes []byte) (ID, error) {
	return hashing.ToHash256(bytes)
}

// FromString is the inverse of ID.String()
func FromString(idStr string) (ID, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(idStr, "0x"))
	if err != nil {
		return ID{}, err
	}
	return ToID(b)
}

// Digest hashes [b] into an ID.
func Digest(b []byte) ID {
	return hashing.ComputeHash256Array(b)
}

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

func (id *ID) UnmarshalJSON(b []byte) error {
	str := string(b)
	if str == "null" { // If "null", do nothing
		return nil
	} else if len(str) < 2 {
		return errMissingQuotes
	}

	lastIndex := len(str) - 1
	if str[0] != '"' || str[lastIndex] != '"' {
		return errMissingQuotes
	}

	newID, err := FromString(str[1:lastIndex])
	if err != nil {
		return fmt.Errorf("couldn't decode ID %q: %w", str, err)
	}
	*id = newID
	return nil
}

func (id ID) IsEmpty() bool {
	return id == Empty
}

func (id ID) Compare(other ID) int {
	return bytes.Compare(id[:], other[:])
}

func (id ID) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

// Hex returns a hex encoded string of this id without the 0x prefix.
func (id ID) Hex() string {
	return hex.EncodeToString(id[:])
}
