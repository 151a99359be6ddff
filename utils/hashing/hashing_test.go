// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hashing

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeHash256Empty(t *testing.T) {
	// SHA3-256 of the empty string.
	expected := "a7ffc6f8bf1ed76651c14756a061d662f580ff4de43b49fa82d80a4b80f8434a"
	require.Equal(t, expected, hex.EncodeToString(ComputeHash256(nil)))
}

func TestComputeHash256Parts(t *testing.T) {
	require := require.New(t)

	whole := ComputeHash256Array([]byte("ledger state"))
	parts := ComputeHash256Parts([]byte("ledger"), []byte(" "), []byte("state"))
	require.Equal(whole, parts)
}

func TestToHash256(t *testing.T) {
	require := require.New(t)

	_, err := ToHash256([]byte{1, 2, 3})
	require.ErrorIs(err, ErrInvalidHashLen)

	h := ComputeHash256Array([]byte{1})
	got, err := ToHash256(h[:])
	require.NoError(err)
	require.Equal(h, got)
}
