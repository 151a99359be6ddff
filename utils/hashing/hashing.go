// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hashing

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/sha3"
)

const HashLen = 32

var ErrInvalidHashLen = errors.New("invalid hash length")

// Hash256 A 256 bit long hash value.
type Hash256 = [HashLen]byte

// ComputeHash256Array computes a SHA3-256 hash of the input byte slice.
func ComputeHash256Array(buf []byte) Hash256 {
	return sha3.Sum256(buf)
}

// ComputeHash256 computes a SHA3-256 hash of the input byte slice.
func ComputeHash256(buf []byte) []byte {
	arr := ComputeHash256Array(buf)
	return arr[:]
}

// ComputeHash256Parts hashes the concatenation of [parts] without copying
// them into a single buffer.
func ComputeHash256Parts(parts ...[]byte) Hash256 {
	h := sha3.New256()
	for _, part := range parts {
		_, _ = h.Write(part)
	}
	var out Hash256
	h.Sum(out[:0])
	return out
}

func ToHash256(bytes []byte) (Hash256, error) {
	hash := Hash256{}
	if bytesLen := len(bytes); bytesLen != HashLen {
		return hash, fmt.Errorf("%w: expected 32 bytes but got %d", ErrInvalidHashLen, bytesLen)
	}
	copy(hash[:], bytes)
	return hash, nil
}
