// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package reconcile

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/ava-labs/ledgerdb/ids"
	"github.com/ava-labs/ledgerdb/utils/maybe"
	"github.com/ava-labs/ledgerdb/utils/wrappers"
)

const (
	// maxULEB128Len is the longest encoding of a uint32 length.
	maxULEB128Len = 5

	// maxVectorLen bounds decoded vector lengths.
	maxVectorLen = 1 << 20
)

var (
	errInsufficientLength = errors.New("bcs: insufficient length")
	errBadBool            = errors.New("bcs: unexpected value for bool")
	errBadOption          = errors.New("bcs: unexpected option tag")
	errBadULEB128         = errors.New("bcs: malformed uleb128")
	errOversized          = errors.New("bcs: vector longer than limit")
	errTrailingBytes      = errors.New("bcs: trailing bytes")
)

// bcsPacker reads and writes the little-endian binary canonical serialization
// used by the resources the reconciler decodes. Like wrappers.Packer it records
// the first error and turns every later call into a no-op.
type bcsPacker struct {
	wrappers.Errs

	Bytes  []byte
	Offset int
}

func (p *bcsPacker) checkSpace(n int) {
	if p.Errored() {
		return
	}
	if n < 0 || len(p.Bytes)-p.Offset < n {
		p.Add(errInsufficientLength)
	}
}

func (p *bcsPacker) UnpackByte() byte {
	p.checkSpace(1)
	if p.Errored() {
		return 0
	}
	b := p.Bytes[p.Offset]
	p.Offset++
	return b
}

func (p *bcsPacker) PackByte(b byte) {
	p.Bytes = append(p.Bytes, b)
	p.Offset++
}

func (p *bcsPacker) UnpackU64() uint64 {
	p.checkSpace(wrappers.LongLen)
	if p.Errored() {
		return 0
	}
	v := binary.LittleEndian.Uint64(p.Bytes[p.Offset:])
	p.Offset += wrappers.LongLen
	return v
}

func (p *bcsPacker) PackU64(v uint64) {
	p.Bytes = binary.LittleEndian.AppendUint64(p.Bytes, v)
	p.Offset += wrappers.LongLen
}

func (p *bcsPacker) UnpackBool() bool {
	switch p.UnpackByte() {
	case 0:
		return false
	case 1:
		return true
	default:
		p.Add(errBadBool)
		return false
	}
}

func (p *bcsPacker) PackBool(b bool) {
	if b {
		p.PackByte(1)
	} else {
		p.PackByte(0)
	}
}

func (p *bcsPacker) UnpackULEB128() uint32 {
	var v uint64
	for i := 0; i < maxULEB128Len; i++ {
		b := p.UnpackByte()
		if p.Errored() {
			return 0
		}
		v |= uint64(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			// Canonical encodings never end in a zero continuation byte.
			if i > 0 && b == 0 || v > math.MaxUint32 {
				p.Add(errBadULEB128)
				return 0
			}
			return uint32(v)
		}
	}
	p.Add(errBadULEB128)
	return 0
}

func (p *bcsPacker) PackULEB128(v uint32) {
	for v >= 0x80 {
		p.PackByte(byte(v) | 0x80)
		v >>= 7
	}
	p.PackByte(byte(v))
}

func (p *bcsPacker) UnpackBytes() []byte {
	n := p.UnpackULEB128()
	if n > maxVectorLen {
		p.Add(errOversized)
	}
	p.checkSpace(int(n))
	if p.Errored() {
		return nil
	}
	b := p.Bytes[p.Offset : p.Offset+int(n)]
	p.Offset += int(n)
	return b
}

func (p *bcsPacker) PackBytes(b []byte) {
	p.PackULEB128(uint32(len(b)))
	p.Bytes = append(p.Bytes, b...)
	p.Offset += len(b)
}

func (p *bcsPacker) UnpackAddress() ids.ID {
	p.checkSpace(ids.IDLen)
	if p.Errored() {
		return ids.Empty
	}
	var address ids.ID
	copy(address[:], p.Bytes[p.Offset:])
	p.Offset += ids.IDLen
	return address
}

func (p *bcsPacker) PackAddress(address ids.ID) {
	p.Bytes = append(p.Bytes, address[:]...)
	p.Offset += ids.IDLen
}

// UnpackOptionalAddress reads an Option<address>, which is encoded as a
// vector of at most one element.
func (p *bcsPacker) UnpackOptionalAddress() maybe.Maybe[ids.ID] {
	switch p.UnpackULEB128() {
	case 0:
		return maybe.Nothing[ids.ID]()
	case 1:
		return maybe.Some(p.UnpackAddress())
	default:
		p.Add(errBadOption)
		return maybe.Nothing[ids.ID]()
	}
}

func (p *bcsPacker) PackOptionalAddress(address maybe.Maybe[ids.ID]) {
	if address.IsNothing() {
		p.PackULEB128(0)
		return
	}
	p.PackULEB128(1)
	p.PackAddress(address.Value())
}

// Done records an error if any bytes were left unread.
func (p *bcsPacker) Done() {
	if !p.Errored() && p.Offset != len(p.Bytes) {
		p.Add(errTrailingBytes)
	}
}
