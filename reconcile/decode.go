// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package reconcile

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ava-labs/ledgerdb/ids"
	"github.com/ava-labs/ledgerdb/types"
	"github.com/ava-labs/ledgerdb/utils/maybe"
)

var errNoBalance = errors.New("value holds no balance")

const (
	AccountResource       = "0x1::account::Account"
	CoinStorePrefix       = "0x1::coin::CoinStore<"
	FungibleStoreResource = "0x1::fungible_asset::FungibleStore"
)

// Shape is the layout a value is decoded with before comparing.
type Shape uint8

const (
	RawShape Shape = iota
	AccountShape
	CoinStoreShape
	FungibleStoreShape
)

func (s Shape) String() string {
	switch s {
	case RawShape:
		return "raw"
	case AccountShape:
		return "account"
	case CoinStoreShape:
		return "coin store"
	case FungibleStoreShape:
		return "fungible store"
	default:
		return "unknown"
	}
}

// Classify returns the shape of the values stored under [key]. Only access
// path keys carry a resource type, every other key is raw.
func Classify(key types.StateKey) Shape {
	_, resource, ok := key.AccessPath()
	switch {
	case !ok:
		return RawShape
	case resource == AccountResource:
		return AccountShape
	case strings.HasPrefix(resource, CoinStorePrefix) && strings.HasSuffix(resource, ">"):
		return CoinStoreShape
	case resource == FungibleStoreResource:
		return FungibleStoreShape
	default:
		return RawShape
	}
}

type GUID struct {
	CreationNum uint64
	Address     ids.ID
}

type EventHandle struct {
	Counter uint64
	GUID    GUID
}

type Account struct {
	AuthenticationKey       []byte
	SequenceNumber          uint64
	GUIDCreationNum         uint64
	CoinRegisterEvents      EventHandle
	KeyRotationEvents       EventHandle
	RotationCapabilityOffer maybe.Maybe[ids.ID]
	SignerCapabilityOffer   maybe.Maybe[ids.ID]
}

type CoinStore struct {
	Value          uint64
	Frozen         bool
	DepositEvents  EventHandle
	WithdrawEvents EventHandle
}

type FungibleStore struct {
	Metadata ids.ID
	Balance  uint64
	Frozen   bool
}

func ParseAccount(b []byte) (*Account, error) {
	p := bcsPacker{Bytes: b}
	a := &Account{
		AuthenticationKey: p.UnpackBytes(),
		SequenceNumber:    p.UnpackU64(),
		GUIDCreationNum:   p.UnpackU64(),
	}
	a.CoinRegisterEvents = unpackEventHandle(&p)
	a.KeyRotationEvents = unpackEventHandle(&p)
	a.RotationCapabilityOffer = p.UnpackOptionalAddress()
	a.SignerCapabilityOffer = p.UnpackOptionalAddress()
	p.Done()
	if p.Err != nil {
		return nil, fmt.Errorf("couldn't parse account: %w", p.Err)
	}
	return a, nil
}

func (a *Account) Bytes() []byte {
	p := bcsPacker{}
	p.PackBytes(a.AuthenticationKey)
	p.PackU64(a.SequenceNumber)
	p.PackU64(a.GUIDCreationNum)
	packEventHandle(&p, a.CoinRegisterEvents)
	packEventHandle(&p, a.KeyRotationEvents)
	p.PackOptionalAddress(a.RotationCapabilityOffer)
	p.PackOptionalAddress(a.SignerCapabilityOffer)
	return p.Bytes
}

// Diff returns the names of the fields that differ between [a] and [other].
func (a *Account) Diff(other *Account) []string {
	var fields []string
	if !bytes.Equal(a.AuthenticationKey, other.AuthenticationKey) {
		fields = append(fields, "authentication_key")
	}
	if a.SequenceNumber != other.SequenceNumber {
		fields = append(fields, "sequence_number")
	}
	if a.GUIDCreationNum != other.GUIDCreationNum {
		fields = append(fields, "guid_creation_num")
	}
	if a.CoinRegisterEvents != other.CoinRegisterEvents {
		fields = append(fields, "coin_register_events")
	}
	if a.KeyRotationEvents != other.KeyRotationEvents {
		fields = append(fields, "key_rotation_events")
	}
	if !maybe.Equal(a.RotationCapabilityOffer, other.RotationCapabilityOffer, idEqual) {
		fields = append(fields, "rotation_capability_offer")
	}
	if !maybe.Equal(a.SignerCapabilityOffer, other.SignerCapabilityOffer, idEqual) {
		fields = append(fields, "signer_capability_offer")
	}
	return fields
}

func ParseCoinStore(b []byte) (*CoinStore, error) {
	p := bcsPacker{Bytes: b}
	s := &CoinStore{
		Value:  p.UnpackU64(),
		Frozen: p.UnpackBool(),
	}
	s.DepositEvents = unpackEventHandle(&p)
	s.WithdrawEvents = unpackEventHandle(&p)
	p.Done()
	if p.Err != nil {
		return nil, fmt.Errorf("couldn't parse coin store: %w", p.Err)
	}
	return s, nil
}

func (s *CoinStore) Bytes() []byte {
	p := bcsPacker{}
	p.PackU64(s.Value)
	p.PackBool(s.Frozen)
	packEventHandle(&p, s.DepositEvents)
	packEventHandle(&p, s.WithdrawEvents)
	return p.Bytes
}

func ParseFungibleStore(b []byte) (*FungibleStore, error) {
	p := bcsPacker{Bytes: b}
	s := &FungibleStore{
		Metadata: p.UnpackAddress(),
		Balance:  p.UnpackU64(),
		Frozen:   p.UnpackBool(),
	}
	p.Done()
	if p.Err != nil {
		return nil, fmt.Errorf("couldn't parse fungible store: %w", p.Err)
	}
	return s, nil
}

func (s *FungibleStore) Bytes() []byte {
	p := bcsPacker{}
	p.PackAddress(s.Metadata)
	p.PackU64(s.Balance)
	p.PackBool(s.Frozen)
	return p.Bytes
}

// ParseBalance returns the balance held by a value of [shape].
func ParseBalance(shape Shape, b []byte) (uint64, error) {
	switch shape {
	case CoinStoreShape:
		s, err := ParseCoinStore(b)
		if err != nil {
			return 0, err
		}
		return s.Value, nil
	case FungibleStoreShape:
		s, err := ParseFungibleStore(b)
		if err != nil {
			return 0, err
		}
		return s.Balance, nil
	default:
		return 0, fmt.Errorf("%w: %s", errNoBalance, shape)
	}
}

func unpackEventHandle(p *bcsPacker) EventHandle {
	return EventHandle{
		Counter: p.UnpackU64(),
		GUID: GUID{
			CreationNum: p.UnpackU64(),
			Address:     p.UnpackAddress(),
		},
	}
}

func packEventHandle(p *bcsPacker, h EventHandle) {
	p.PackU64(h.Counter)
	p.PackU64(h.GUID.CreationNum)
	p.PackAddress(h.GUID.Address)
}

func idEqual(a, b ids.ID) bool {
	return a == b
}

// compareValues compares two present values of the same key. It returns false
// if they do not diverge.
func compareValues(key types.StateKey, a, b []byte) (Kind, string, bool) {
	if bytes.Equal(a, b) {
		return 0, "", false
	}

	switch shape := Classify(key); shape {
	case AccountShape:
		accountA, errA := ParseAccount(a)
		accountB, errB := ParseAccount(b)
		if errA != nil || errB != nil {
			return RawValueMismatch, undecodable(shape, errA, errB), true
		}
		fields := accountA.Diff(accountB)
		if len(fields) == 0 {
			return 0, "", false
		}
		return AccountMismatch, "fields: " + strings.Join(fields, ", "), true
	case CoinStoreShape, FungibleStoreShape:
		balanceA, errA := ParseBalance(shape, a)
		balanceB, errB := ParseBalance(shape, b)
		if errA != nil || errB != nil {
			return RawValueMismatch, undecodable(shape, errA, errB), true
		}
		if balanceA == balanceB {
			return 0, "", false
		}
		return BalanceMismatch, fmt.Sprintf("balance: A=%d B=%d", balanceA, balanceB), true
	default:
		return RawValueMismatch, "", true
	}
}

func undecodable(shape Shape, errA, errB error) string {
	if errA != nil {
		return fmt.Sprintf("undecodable %s in A: %s", shape, errA)
	}
	return fmt.Sprintf("undecodable %s in B: %s", shape, errB)
}
