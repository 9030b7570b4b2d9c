package cpe

import (
	"encoding/hex"
	"testing"

	"github.com/brollup/coordinator/crypto"
	"github.com/stretchr/testify/require"
)

func TestShortValTierBoundaries(t *testing.T) {
	cases := []struct {
		v    uint32
		tier ShortValTier
	}{
		{100, ShortValU8},
		{5000, ShortValU16},
		{100_000, ShortValU24},
		{50_000_000, ShortValU32},
	}
	for _, c := range cases {
		sv := NewShortVal(c.v)
		w := &BitWriter{}
		sv.EncodeCPE(w)
		r := NewBitReader(w.Bits())
		decoded, err := DecodeShortVal(r)
		require.NoError(t, err)
		require.Equal(t, c.tier, decoded.Tier())
		require.Equal(t, c.v, decoded.Value())
		require.Equal(t, 0, r.Remaining())
	}
}

func TestMultiShortValWithTrailingGarbage(t *testing.T) {
	w := &BitWriter{}
	NewShortVal(100).EncodeCPE(w)
	NewShortVal(5000).EncodeCPE(w)
	NewShortVal(100_000).EncodeCPE(w)
	NewShortVal(50_000_000).EncodeCPE(w)
	for _, b := range []bool{true, false, false, true, true} {
		w.WriteBit(b)
	}

	r := NewBitReader(w.Bits())
	d1, err := DecodeShortVal(r)
	require.NoError(t, err)
	require.Equal(t, uint32(100), d1.Value())

	d2, err := DecodeShortVal(r)
	require.NoError(t, err)
	require.Equal(t, uint32(5000), d2.Value())

	d3, err := DecodeShortVal(r)
	require.NoError(t, err)
	require.Equal(t, uint32(100_000), d3.Value())

	d4, err := DecodeShortVal(r)
	require.NoError(t, err)
	require.Equal(t, uint32(50_000_000), d4.Value())

	require.Equal(t, 5, r.Remaining())
}

func TestLongValTierBoundaries(t *testing.T) {
	cases := []struct {
		v    uint64
		tier LongValTier
	}{
		{100, LongValU8},
		{5_000, LongValU16},
		{100_000, LongValU24},
		{50_000_000, LongValU32},
		{100_000_000_000, LongValU40},
		{100_000_000_000_000, LongValU48},
		{5_000_000_000_000_00, LongValU56},
		{100_000_000_000_000_000, LongValU64},
	}
	for _, c := range cases {
		lv := NewLongVal(c.v)
		w := &BitWriter{}
		lv.EncodeCPE(w)
		r := NewBitReader(w.Bits())
		decoded, err := DecodeLongVal(r)
		require.NoError(t, err)
		require.Equal(t, c.tier, decoded.Tier())
		require.Equal(t, c.v, decoded.Value())
	}
}

type fakeAccountRegistry struct {
	registered map[[32]byte]bool
	byRank     map[uint32]Account
}

func (f *fakeAccountRegistry) IsRegistered(key crypto.Point) bool {
	return f.registered[key.XBytes()]
}

func (f *fakeAccountRegistry) AccountByRank(rank uint32) (Account, bool) {
	a, ok := f.byRank[rank]
	return a, ok
}

func TestUnregisteredAccountRoundTrip(t *testing.T) {
	raw, err := hex.DecodeString("1123864025e2c24bd82e6e19729eaa93cf02c57149bbfc84d239a0369f471316")
	require.NoError(t, err)
	var xb [32]byte
	copy(xb[:], raw)
	key, err := crypto.NewPointFromXOnly(xb)
	require.NoError(t, err)

	account := NewAccount(key)
	w := &BitWriter{}
	account.EncodeCPE(w)

	lookup := &fakeAccountRegistry{registered: map[[32]byte]bool{}, byRank: map[uint32]Account{}}
	r := NewBitReader(w.Bits())
	decoded, err := DecodeAccount(r, lookup)
	require.NoError(t, err)
	require.True(t, account.Equal(decoded))
	_, hasRank := decoded.Rank()
	require.False(t, hasRank)
}

func TestRegisteredAccountRoundTrip(t *testing.T) {
	raw, err := hex.DecodeString("2d69e8ef6a06ed3efcf433ee24dbe55e8e6dec5804957326b07c3902960af1f9")
	require.NoError(t, err)
	var xb [32]byte
	copy(xb[:], raw)
	key, err := crypto.NewPointFromXOnly(xb)
	require.NoError(t, err)

	account := NewRegisteredAccount(key, 1, 1)
	lookup := &fakeAccountRegistry{
		registered: map[[32]byte]bool{key.XBytes(): true},
		byRank:     map[uint32]Account{1: account},
	}

	w := &BitWriter{}
	account.EncodeCPE(w)
	r := NewBitReader(w.Bits())
	decoded, err := DecodeAccount(r, lookup)
	require.NoError(t, err)
	require.True(t, account.Equal(decoded))
	rank, ok := decoded.Rank()
	require.True(t, ok)
	require.Equal(t, uint32(1), rank)
}

type fakeContractRegistry struct {
	byIndex map[uint32]Contract
}

func (f *fakeContractRegistry) ContractByRegistryIndex(index uint32) (Contract, bool) {
	c, ok := f.byIndex[index]
	return c, ok
}

func TestContractRoundTrip(t *testing.T) {
	var id [32]byte
	for i := range id {
		id[i] = 0xff
	}
	contract := NewContract(id, 1)
	lookup := &fakeContractRegistry{byIndex: map[uint32]Contract{1: contract}}

	w := &BitWriter{}
	contract.EncodeCPE(w)
	r := NewBitReader(w.Bits())
	decoded, err := DecodeContract(r, lookup)
	require.NoError(t, err)
	require.True(t, contract.Equal(decoded))
	require.Equal(t, contract.RegistryIndex(), decoded.RegistryIndex())
}
