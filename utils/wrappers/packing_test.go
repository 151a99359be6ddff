// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wrappers

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackerRoundTrip(t *testing.T) {
	require := require.New(t)

	p := Packer{MaxSize: math.MaxInt32}
	p.PackByte(7)
	p.PackLong(math.MaxUint64 - 1)
	p.PackBool(true)
	p.PackBytes([]byte("payload"))
	p.PackStr("0x1::coin::CoinStore")
	require.NoError(p.Err)

	u := Packer{Bytes: p.Bytes}
	require.Equal(byte(7), u.UnpackByte())
	require.Equal(uint64(math.MaxUint64-1), u.UnpackLong())
	require.True(u.UnpackBool())
	require.Equal([]byte("payload"), u.UnpackBytes())
	require.Equal("0x1::coin::CoinStore", u.UnpackStr())
	require.NoError(u.Err)
	require.Equal(len(p.Bytes), u.Offset)
}

func TestPackerErrors(t *testing.T) {
	require := require.New(t)

	p := Packer{MaxSize: 4}
	p.PackLong(1)
	require.ErrorIs(p.Err, ErrInsufficientLength)

	u := Packer{Bytes: []byte{2}}
	require.False(u.UnpackBool())
	require.ErrorIs(u.Err, errBadBool)

	u = Packer{Bytes: []byte{0, 0, 0, 9, 1}}
	require.Nil(u.UnpackLimitedBytes(4))
	require.ErrorIs(u.Err, errOversized)
}
