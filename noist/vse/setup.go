package vse

import (
	"sync"

	"github.com/brollup/coordinator/crypto"
)

// Setup is the VSE directory for one DKG setup: every signatory's
// self-attested KeyMap, collected until complete and cross-checked for
// pairwise symmetry. It is immutable from the caller's perspective once
// Validate succeeds — validated setups are never retroactively mutated.
type Setup struct {
	mu       sync.RWMutex
	height   uint64
	signers  []crypto.Point
	keymaps  []crypto.Authenticable[KeyMap]
}

// NewSetup starts an empty setup for the given signatory list at height.
func NewSetup(signers []crypto.Point, height uint64) *Setup {
	return &Setup{height: height, signers: append([]crypto.Point{}, signers...)}
}

// Height returns the DKG directory height this setup belongs to.
func (s *Setup) Height() uint64 { return s.height }

// Signatories returns the fixed signatory set.
func (s *Setup) Signatories() []crypto.Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]crypto.Point{}, s.signers...)
}

// Insert adds an authenticated KeyMap if its signer belongs to the
// signatory set, it authenticates, and it is not already present. Returns
// false on any of those rejections.
func (s *Setup) Insert(auth crypto.Authenticable[KeyMap]) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !auth.Authenticate() {
		return false
	}
	km := auth.Object()
	if !containsKey(s.signers, km.SignerKey()) {
		return false
	}
	for _, existing := range s.keymaps {
		if existing.Object().SignerKey().Equal(km.SignerKey()) {
			return false
		}
	}
	if !km.IsComplete(s.signers) {
		return false
	}
	s.keymaps = append(s.keymaps, auth)
	return true
}

// Map returns the KeyMap contributed by signer, if inserted.
func (s *Setup) Map(signer crypto.Point) (KeyMap, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, auth := range s.keymaps {
		if auth.Object().SignerKey().Equal(signer) {
			return auth.Object(), true
		}
	}
	return KeyMap{}, false
}

// IsComplete reports whether every signatory has contributed a complete map.
func (s *Setup) IsComplete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.keymaps) != len(s.signers) {
		return false
	}
	for _, auth := range s.keymaps {
		if !auth.Object().IsComplete(s.signers) {
			return false
		}
	}
	return true
}

// VSEKey returns the pairwise key signer1 computed for signer2.
func (s *Setup) VSEKey(signer1, signer2 crypto.Point) (crypto.Point, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, auth := range s.keymaps {
		km := auth.Object()
		if km.SignerKey().Equal(signer1) {
			return km.VSEKey(signer2)
		}
	}
	return crypto.Point{}, false
}

// Validate checks completeness plus pairwise symmetry: for every ordered
// pair (i, j), the key i computed for j must equal the key j computed for i.
func (s *Setup) Validate() bool {
	if !s.IsComplete() {
		return false
	}
	for _, signer := range s.Signatories() {
		km, ok := s.Map(signer)
		if !ok {
			return false
		}
		for _, correspondent := range km.MapList() {
			kIJ, ok := s.VSEKey(signer, correspondent)
			if !ok {
				return false
			}
			kJI, ok := s.VSEKey(correspondent, signer)
			if !ok {
				return false
			}
			if !kIJ.Equal(kJI) {
				return false
			}
		}
	}
	return true
}

// VSEKeyEntry is one correspondent/key pair within a KeyMapRecord. Table is
// a slice rather than a map because standard JSON encoding cannot key a map
// by a byte array.
type VSEKeyEntry struct {
	Correspondent [32]byte
	Key           [32]byte
}

// KeyMapRecord is the persistable form of one signatory's authenticated
// KeyMap.
type KeyMapRecord struct {
	SignerKey [32]byte
	Table     []VSEKeyEntry
	Signature [64]byte
}

// Export snapshots s into its persistable parts.
func (s *Setup) Export() (height uint64, signers []crypto.Point, records []KeyMapRecord) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records = make([]KeyMapRecord, 0, len(s.keymaps))
	for _, auth := range s.keymaps {
		km := auth.Object()
		table := make([]VSEKeyEntry, 0, len(km.table))
		for k, v := range km.table {
			table = append(table, VSEKeyEntry{Correspondent: k, Key: v.XBytes()})
		}
		records = append(records, KeyMapRecord{
			SignerKey: auth.Key(),
			Table:     table,
			Signature: auth.Signature(),
		})
	}
	return s.height, append([]crypto.Point{}, s.signers...), records
}

// RehydrateSetup rebuilds a Setup from previously exported parts, without
// re-checking pairwise symmetry. Records only ever reach storage after
// Insert has validated them, so callers may trust Validate without calling
// it again unless corruption is a concern.
func RehydrateSetup(height uint64, signers []crypto.Point, records []KeyMapRecord) (*Setup, error) {
	s := NewSetup(signers, height)
	for _, rec := range records {
		signerPoint, err := crypto.NewPointFromXOnly(rec.SignerKey)
		if err != nil {
			return nil, err
		}
		table := make(map[[32]byte]crypto.Point, len(rec.Table))
		for _, entry := range rec.Table {
			p, err := crypto.NewPointFromXOnly(entry.Key)
			if err != nil {
				return nil, err
			}
			table[entry.Correspondent] = p
		}
		km := RehydrateKeyMap(signerPoint, table)
		s.keymaps = append(s.keymaps, crypto.RehydrateAuthenticable[KeyMap](km, rec.SignerKey, rec.Signature))
	}
	return s, nil
}

func containsKey(list []crypto.Point, key crypto.Point) bool {
	for _, p := range list {
		if p.Equal(key) {
			return true
		}
	}
	return false
}
