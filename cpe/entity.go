package cpe

import (
	"errors"

	"github.com/brollup/coordinator/crypto"
)

// Account-CPE decoding errors, named after the call sites in the source
// registry rather than its (stale) standalone error enum.
var (
	ErrFailedToDecodeRank           = errors.New("cpe: failed to decode account rank")
	ErrFailedToCollectKeyBits       = errors.New("cpe: failed to collect 256 key bits")
	ErrFailedToConstructKey         = errors.New("cpe: failed to construct public key from bits")
	ErrAccountKeyAlreadyRegistered  = errors.New("cpe: account key already registered")
	ErrFailedToLocateAccountByRank  = errors.New("cpe: no account at the given rank")
	ErrFailedToDecodeContractIndex  = errors.New("cpe: failed to decode contract registry index")
	ErrFailedToLocateContractByRank = errors.New("cpe: no contract at the given registry index")
)

// Account is a user of the system, identified by an even-parity public key.
// Rank zero means the account is unregistered: the full key follows inline
// rather than a registry lookup.
type Account struct {
	key           crypto.Point
	registryIndex uint32
	hasRegistry   bool
	rank          uint32
}

// NewAccount builds an unregistered Account from a key. The key must have
// even parity (the xonly/BIP340 invariant carried throughout the system).
func NewAccount(key crypto.Point) Account {
	return Account{key: key}
}

// NewRegisteredAccount builds an Account already assigned a registry index
// and rank.
func NewRegisteredAccount(key crypto.Point, registryIndex, rank uint32) Account {
	return Account{key: key, registryIndex: registryIndex, hasRegistry: true, rank: rank}
}

// Key returns the account's public key.
func (a Account) Key() crypto.Point { return a.key }

// Rank returns the account's registry rank, and whether one is assigned.
func (a Account) Rank() (uint32, bool) { return a.rank, a.hasRegistry }

// RegistryIndex returns the account's registry index, and whether one is assigned.
func (a Account) RegistryIndex() (uint32, bool) { return a.registryIndex, a.hasRegistry }

// Equal compares accounts by key only, matching the source's PartialEq.
func (a Account) Equal(other Account) bool {
	return a.key.Equal(other.key)
}

// EncodeCPE writes the account as a ShortVal rank, followed by the raw
// 256-bit key when unregistered.
func (a Account) EncodeCPE(w *BitWriter) {
	if !a.hasRegistry || a.rank == 0 {
		NewShortVal(0).EncodeCPE(w)
		x := a.key.XBytes()
		for _, bit := range UnpackBits(x[:], 256) {
			w.WriteBit(bit)
		}
		return
	}
	NewShortVal(a.rank).EncodeCPE(w)
}

// AccountLookup resolves accounts and registration status during CPE decode.
// Implemented by the registry package; declared here to avoid an import
// cycle between cpe and registry.
type AccountLookup interface {
	IsRegistered(key crypto.Point) bool
	AccountByRank(rank uint32) (Account, bool)
}

// DecodeAccount reads an Account off r, consulting lookup to resolve
// registered ranks or reject already-registered unregistered keys.
func DecodeAccount(r *BitReader, lookup AccountLookup) (Account, error) {
	rank, err := DecodeShortVal(r)
	if err != nil {
		return Account{}, ErrFailedToDecodeRank
	}

	if rank.Value() == 0 {
		bits, err := r.ReadBitVec(256)
		if err != nil {
			return Account{}, ErrFailedToCollectKeyBits
		}
		var xb [32]byte
		copy(xb[:], PackBits(bits))
		key, err := crypto.NewPointFromXOnly(xb)
		if err != nil {
			return Account{}, ErrFailedToConstructKey
		}
		if lookup.IsRegistered(key) {
			return Account{}, ErrAccountKeyAlreadyRegistered
		}
		return NewAccount(key), nil
	}

	account, ok := lookup.AccountByRank(rank.Value())
	if !ok {
		return Account{}, ErrFailedToLocateAccountByRank
	}
	return account, nil
}

// Contract is always registered: there is no unregistered fallback path,
// unlike Account.
type Contract struct {
	id            [32]byte
	registryIndex uint32
}

// NewContract pairs a contract id with its registry index.
func NewContract(id [32]byte, registryIndex uint32) Contract {
	return Contract{id: id, registryIndex: registryIndex}
}

// ID returns the contract's 32-byte identifier.
func (c Contract) ID() [32]byte { return c.id }

// RegistryIndex returns the contract's registry index.
func (c Contract) RegistryIndex() uint32 { return c.registryIndex }

// Equal compares contracts by id only.
func (c Contract) Equal(other Contract) bool {
	return c.id == other.id
}

// EncodeCPE writes the contract as a ShortVal registry index.
func (c Contract) EncodeCPE(w *BitWriter) {
	NewShortVal(c.registryIndex).EncodeCPE(w)
}

// ContractLookup resolves contracts by registry index during CPE decode.
type ContractLookup interface {
	ContractByRegistryIndex(index uint32) (Contract, bool)
}

// DecodeContract reads a Contract off r via its registry index.
func DecodeContract(r *BitReader, lookup ContractLookup) (Contract, error) {
	index, err := DecodeShortVal(r)
	if err != nil {
		return Contract{}, ErrFailedToDecodeContractIndex
	}
	contract, ok := lookup.ContractByRegistryIndex(index.Value())
	if !ok {
		return Contract{}, ErrFailedToLocateContractByRank
	}
	return contract, nil
}
