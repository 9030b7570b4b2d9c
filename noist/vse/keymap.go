package vse

import (
	"sort"

	"github.com/brollup/coordinator/crypto"
)

// KeyMap is one signatory's table of pairwise VSE keys, one per
// correspondent in the signatory set. Its Sighash makes it carryable inside
// an Authenticable wrapper so a setup directory can hold each signatory's
// self-attested map.
type KeyMap struct {
	signer crypto.Point
	table  map[[32]byte]crypto.Point
}

// RehydrateKeyMap rebuilds a KeyMap from its signer and already-computed
// pairwise table, for loading one back from storage without recomputing the
// ECDH pairings.
func RehydrateKeyMap(signer crypto.Point, table map[[32]byte]crypto.Point) KeyMap {
	return KeyMap{signer: signer, table: table}
}

// Table returns the raw correspondent-to-VSE-key map for serialization.
func (m KeyMap) Table() map[[32]byte]crypto.Point {
	out := make(map[[32]byte]crypto.Point, len(m.table))
	for k, v := range m.table {
		out[k] = v
	}
	return out
}

// NewKeyMap derives a complete KeyMap for signer against every other member
// of correspondents, matching each direction of the ECDH pairing.
func NewKeyMap(signerSecret crypto.Scalar, correspondents []crypto.Point) KeyMap {
	signer := signerSecret.Point()
	table := make(map[[32]byte]crypto.Point, len(correspondents))
	signerX := signer.XBytes()
	for _, c := range correspondents {
		if c.XBytes() == signerX {
			continue
		}
		table[c.XBytes()] = EncryptingKeyPublic(signerSecret, c)
	}
	return KeyMap{signer: signer, table: table}
}

// SignerKey returns the signatory this map belongs to.
func (m KeyMap) SignerKey() crypto.Point { return m.signer }

// VSEKey returns the pairwise VSE key for correspondent, if present.
func (m KeyMap) VSEKey(correspondent crypto.Point) (crypto.Point, bool) {
	k, ok := m.table[correspondent.XBytes()]
	return k, ok
}

// MapList returns the correspondent keys this map covers, sorted for
// deterministic comparison.
func (m KeyMap) MapList() []crypto.Point {
	out := make([]crypto.Point, 0, len(m.table))
	for k := range m.table {
		p, _ := crypto.NewPointFromXOnly(k)
		out = append(out, p)
	}
	sortPoints(out)
	return out
}

// FullList returns the signer plus every correspondent, sorted.
func (m KeyMap) FullList() []crypto.Point {
	out := append([]crypto.Point{m.signer}, m.MapList()...)
	sortPoints(out)
	return out
}

// IsComplete reports whether FullList equals expected (order-independent).
func (m KeyMap) IsComplete(expected []crypto.Point) bool {
	exp := append([]crypto.Point{}, expected...)
	sortPoints(exp)
	full := m.FullList()
	if len(full) != len(exp) {
		return false
	}
	for i := range full {
		if full[i].XBytes() != exp[i].XBytes() {
			return false
		}
	}
	return true
}

// Sighash ties a KeyMap to a deterministic preimage so it can be wrapped in
// an Authenticable[KeyMap].
func (m KeyMap) Sighash() [32]byte {
	preimage := make([]byte, 0, 32+32*len(m.table))
	sx := m.signer.XBytes()
	preimage = append(preimage, sx[:]...)
	for _, c := range m.MapList() {
		cx := c.XBytes()
		k, _ := m.VSEKey(c)
		kx := k.XBytes()
		preimage = append(preimage, cx[:]...)
		preimage = append(preimage, kx[:]...)
	}
	return crypto.TaggedHash("VSEKeyMap", preimage)
}

func sortPoints(pts []crypto.Point) {
	sort.Slice(pts, func(i, j int) bool {
		a, b := pts[i].XBytes(), pts[j].XBytes()
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})
}
