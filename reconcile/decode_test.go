// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package reconcile

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/ledgerdb/ids"
	"github.com/ava-labs/ledgerdb/types"
	"github.com/ava-labs/ledgerdb/utils/maybe"
)

var testAddress = ids.ID{0x01, 0x02}

func testAccount() *Account {
	return &Account{
		AuthenticationKey: testAddress[:],
		SequenceNumber:    7,
		GUIDCreationNum:   3,
		CoinRegisterEvents: EventHandle{
			Counter: 1,
			GUID:    GUID{CreationNum: 0, Address: testAddress},
		},
		KeyRotationEvents: EventHandle{
			GUID: GUID{CreationNum: 1, Address: testAddress},
		},
		RotationCapabilityOffer: maybe.Nothing[ids.ID](),
		SignerCapabilityOffer:   maybe.Some(ids.ID{0xff}),
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		key      types.StateKey
		expected Shape
	}{
		{
			key:      types.NewAccessPathKey(testAddress, AccountResource),
			expected: AccountShape,
		},
		{
			key:      types.NewAccessPathKey(testAddress, "0x1::coin::CoinStore<0x1::aptos_coin::AptosCoin>"),
			expected: CoinStoreShape,
		},
		{
			key:      types.NewAccessPathKey(testAddress, "0x1::coin::CoinStore<"),
			expected: RawShape,
		},
		{
			key:      types.NewAccessPathKey(testAddress, FungibleStoreResource),
			expected: FungibleStoreShape,
		},
		{
			key:      types.NewAccessPathKey(testAddress, "0x1::object::ObjectCore"),
			expected: RawShape,
		},
		{
			key:      types.NewTableItemKey(testAddress, []byte(AccountResource)),
			expected: RawShape,
		},
		{
			key:      types.NewRawKey([]byte(AccountResource)),
			expected: RawShape,
		},
	}
	for _, test := range tests {
		t.Run(test.key.String(), func(t *testing.T) {
			require.Equal(t, test.expected, Classify(test.key))
		})
	}
}

func TestParseAccount(t *testing.T) {
	require := require.New(t)

	account := testAccount()
	b := account.Bytes()
	// auth key, two u64s, two event handles and the two options.
	require.Len(b, 1+ids.IDLen+16+2*(16+ids.IDLen)+1+1+ids.IDLen)

	parsed, err := ParseAccount(b)
	require.NoError(err)
	require.Equal(account, parsed)
	require.Empty(account.Diff(parsed))

	_, err = ParseAccount(append(b, 0))
	require.ErrorIs(err, errTrailingBytes)
	_, err = ParseAccount(b[:len(b)-1])
	require.ErrorIs(err, errInsufficientLength)
}

func TestAccountDiff(t *testing.T) {
	require := require.New(t)

	a := testAccount()
	b := testAccount()
	b.SequenceNumber++
	b.KeyRotationEvents.Counter++
	b.SignerCapabilityOffer = maybe.Nothing[ids.ID]()
	require.Equal([]string{
		"sequence_number",
		"key_rotation_events",
		"signer_capability_offer",
	}, a.Diff(b))
}

func TestParseBalance(t *testing.T) {
	require := require.New(t)

	coin := &CoinStore{
		Value:  100,
		Frozen: true,
		DepositEvents: EventHandle{
			Counter: 4,
			GUID:    GUID{CreationNum: 2, Address: testAddress},
		},
	}
	balance, err := ParseBalance(CoinStoreShape, coin.Bytes())
	require.NoError(err)
	require.Equal(uint64(100), balance)

	store := &FungibleStore{
		Metadata: ids.ID{0x0a},
		Balance:  55,
	}
	balance, err = ParseBalance(FungibleStoreShape, store.Bytes())
	require.NoError(err)
	require.Equal(uint64(55), balance)

	bad := store.Bytes()
	bad[len(bad)-1] = 2
	_, err = ParseBalance(FungibleStoreShape, bad)
	require.ErrorIs(err, errBadBool)

	_, err = ParseBalance(RawShape, nil)
	require.ErrorIs(err, errNoBalance)
}

func TestULEB128(t *testing.T) {
	tests := []struct {
		name        string
		bytes       []byte
		expected    uint32
		expectedErr error
	}{
		{
			name:     "zero",
			bytes:    []byte{0x00},
			expected: 0,
		},
		{
			name:     "two bytes",
			bytes:    []byte{0x80, 0x01},
			expected: 128,
		},
		{
			name:     "max",
			bytes:    []byte{0xff, 0xff, 0xff, 0xff, 0x0f},
			expected: 1<<32 - 1,
		},
		{
			name:        "non canonical",
			bytes:       []byte{0x80, 0x00},
			expectedErr: errBadULEB128,
		},
		{
			name:        "too large",
			bytes:       []byte{0xff, 0xff, 0xff, 0xff, 0x1f},
			expectedErr: errBadULEB128,
		},
		{
			name:        "unterminated",
			bytes:       []byte{0x80},
			expectedErr: errInsufficientLength,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			p := bcsPacker{Bytes: test.bytes}
			v := p.UnpackULEB128()
			require.ErrorIs(p.Err, test.expectedErr)
			if test.expectedErr != nil {
				return
			}
			require.Equal(test.expected, v)

			var packed bcsPacker
			packed.PackULEB128(v)
			require.Equal(test.bytes, packed.Bytes)
		})
	}
}

func TestCompareValues(t *testing.T) {
	var (
		accountKey = types.NewAccessPathKey(testAddress, AccountResource)
		coinKey    = types.NewAccessPathKey(testAddress, "0x1::coin::CoinStore<0x1::aptos_coin::AptosCoin>")
		rawKey     = types.NewRawKey([]byte("raw"))

		account        = testAccount()
		bumpedAccount  = testAccount()
		coin           = &CoinStore{Value: 10}
		frozenCoin     = &CoinStore{Value: 10, Frozen: true}
		richerCoin     = &CoinStore{Value: 11}
		undecodableRaw = []byte{0x01}
	)
	bumpedAccount.SequenceNumber++

	tests := []struct {
		name           string
		key            types.StateKey
		a, b           []byte
		expectedKind   Kind
		expectedDetail string
		expectedDiverg bool
	}{
		{
			name: "equal bytes",
			key:  rawKey,
			a:    []byte("x"),
			b:    []byte("x"),
		},
		{
			name:           "raw",
			key:            rawKey,
			a:              []byte("x"),
			b:              []byte("y"),
			expectedKind:   RawValueMismatch,
			expectedDiverg: true,
		},
		{
			name:           "account field",
			key:            accountKey,
			a:              account.Bytes(),
			b:              bumpedAccount.Bytes(),
			expectedKind:   AccountMismatch,
			expectedDetail: "fields: sequence_number",
			expectedDiverg: true,
		},
		{
			name: "balance ignores bookkeeping",
			key:  coinKey,
			a:    coin.Bytes(),
			b:    frozenCoin.Bytes(),
		},
		{
			name:           "balance",
			key:            coinKey,
			a:              coin.Bytes(),
			b:              richerCoin.Bytes(),
			expectedKind:   BalanceMismatch,
			expectedDetail: "balance: A=10 B=11",
			expectedDiverg: true,
		},
		{
			name:           "undecodable balance",
			key:            coinKey,
			a:              coin.Bytes(),
			b:              undecodableRaw,
			expectedKind:   RawValueMismatch,
			expectedDetail: "undecodable coin store in B: couldn't parse coin store: bcs: insufficient length",
			expectedDiverg: true,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			kind, detail, diverged := compareValues(test.key, test.a, test.b)
			require.Equal(test.expectedDiverg, diverged)
			require.Equal(test.expectedKind, kind)
			require.Equal(test.expectedDetail, detail)
		})
	}
}
