// Package noist implements the NOIST threshold-Schnorr construction: Feldman
// VSS plus VSE-encrypted share distribution, organized into sessions (one
// per nonce slot) held inside per-setup directories, tracked by a manager
// keyed by DKG height.
package noist

import (
	"bytes"
	"sort"

	"github.com/brollup/coordinator/crypto"
	"github.com/brollup/coordinator/noist/vse"
	"github.com/brollup/coordinator/noist/vss"
)

// ShareEntry is one recipient's entry in a dealer's ShareMap: the public
// commitment to their share, and the share itself encrypted under the
// pairwise VSE key (or crypto.One, the dealer's own self-entry sentinel).
type ShareEntry struct {
	PublicShare    crypto.Point
	EncSecretShare crypto.Scalar
}

// ShareMap is one dealer's contribution to a DKG round: a VSS-committed
// polynomial and one (possibly self-encrypted) share per signatory.
type ShareMap struct {
	signatory       crypto.Point
	vssCommitments  []crypto.Point
	shares          map[[32]byte]ShareEntry
}

// NewShareMap deals a fresh polynomial for signatories, keyed to secretKey's
// corresponding public key, and VSE-encrypts every foreign recipient's
// share. It requires at least three signatories, matching the original's
// minimum viable threshold set.
func NewShareMap(secretKey crypto.Scalar, signatories []crypto.Point) (*ShareMap, error) {
	self := secretKey.Point()

	if len(signatories) < 3 {
		return nil, ErrTooFewSignatories
	}

	ephemeral, err := crypto.RandomScalar()
	if err != nil {
		return nil, err
	}
	secretBytes := secretKey.Bytes()
	ephemeralBytes := ephemeral.Bytes()
	digest := crypto.TaggedHash("SecretKey", secretBytes[:], ephemeralBytes[:])
	polynomialSecret, err := crypto.NewScalar(digest)
	if err != nil {
		return nil, err
	}

	threshold := len(signatories)/2 + 1
	coeffs, commitments, err := vss.GeneratePolynomial(polynomialSecret, threshold)
	if err != nil {
		return nil, err
	}

	ordered := SortSignatories(signatories)

	shares := make(map[[32]byte]ShareEntry, len(ordered))
	for i, signatory := range ordered {
		index := uint32(i + 1)
		secretShare := vss.EvaluateShare(coeffs, index)
		publicShare := secretShare.Point()

		var encShare crypto.Scalar
		if signatory.Equal(self) {
			encShare = crypto.One()
		} else {
			encryptingKey := vse.EncryptingKeySecret(secretKey, signatory)
			encShare, err = vse.Encrypt(secretShare, encryptingKey)
			if err != nil {
				return nil, err
			}
		}
		shares[signatory.XBytes()] = ShareEntry{PublicShare: publicShare, EncSecretShare: encShare}
	}

	return &ShareMap{signatory: self, vssCommitments: commitments, shares: shares}, nil
}

// SortSignatories returns signatories in the single canonical order used
// everywhere a dealer assigns VSS indices, verifies shares, or recombines
// the group key: ascending by xonly bytes.
func SortSignatories(signatories []crypto.Point) []crypto.Point {
	out := append([]crypto.Point{}, signatories...)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].XBytes(), out[j].XBytes()
		return bytes.Compare(a[:], b[:]) < 0
	})
	return out
}

// Signatory returns the dealer who produced this map.
func (m *ShareMap) Signatory() crypto.Point { return m.signatory }

// VSSCommitments returns the dealer's polynomial commitments.
func (m *ShareMap) VSSCommitments() []crypto.Point {
	return append([]crypto.Point{}, m.vssCommitments...)
}

// OrderedShares returns (signatory, entry) pairs sorted the same way the
// dealer assigned VSS indices, so index i always refers to ordered[i].
func (m *ShareMap) OrderedShares() []struct {
	Signatory crypto.Point
	Entry     ShareEntry
} {
	keys := make([][32]byte, 0, len(m.shares))
	for k := range m.shares {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i][:], keys[j][:]) < 0 })

	out := make([]struct {
		Signatory crypto.Point
		Entry     ShareEntry
	}, len(keys))
	for i, k := range keys {
		p, _ := crypto.NewPointFromXOnly(k)
		out[i].Signatory = p
		out[i].Entry = m.shares[k]
	}
	return out
}

// ShareByKey returns the entry for a given signatory.
func (m *ShareMap) ShareByKey(key crypto.Point) (ShareEntry, bool) {
	e, ok := m.shares[key.XBytes()]
	return e, ok
}

// ConstantPoint returns the dealer's contribution to the aggregate group
// key: the VSS commitment to the polynomial's constant term.
func (m *ShareMap) ConstantPoint() (crypto.Point, bool) {
	return vss.ConstantPoint(m.vssCommitments)
}

// IsComplete reports whether this map has exactly one entry per signatory.
func (m *ShareMap) IsComplete(signatories []crypto.Point) bool {
	ordered := SortSignatories(signatories)
	if len(ordered) != len(m.shares) {
		return false
	}
	for _, s := range ordered {
		if _, ok := m.shares[s.XBytes()]; !ok {
			return false
		}
	}
	return true
}

// VSSVerify checks every recipient's public share against the dealer's VSS
// commitments.
func (m *ShareMap) VSSVerify() bool {
	for i, entry := range m.OrderedShares() {
		if !vss.VerifyPoint(uint32(i+1), entry.Entry.PublicShare, m.vssCommitments) {
			return false
		}
	}
	return true
}

// VSEVerify checks every foreign recipient's encrypted share decrypts,
// under the setup's pairwise VSE key, to a scalar whose base point equals
// the published public share. The dealer's own self-entry must be the
// crypto.One sentinel rather than an encrypted value.
func (m *ShareMap) VSEVerify(setup *vse.Setup) bool {
	for _, entry := range m.OrderedShares() {
		if entry.Signatory.Equal(m.signatory) {
			if !entry.Entry.EncSecretShare.Equal(crypto.One()) {
				return false
			}
			continue
		}
		vsePoint, ok := setup.VSEKey(m.signatory, entry.Signatory)
		if !ok {
			return false
		}
		if !vse.Verify(entry.Entry.EncSecretShare, entry.Entry.PublicShare, vsePoint) {
			return false
		}
	}
	return true
}

// Sighash ties a ShareMap to a deterministic preimage so it can be carried
// inside an Authenticable[ShareMap].
func (m *ShareMap) Sighash() [32]byte {
	var preimage []byte
	sx := m.signatory.XBytes()
	preimage = append(preimage, sx[:]...)
	for _, c := range m.vssCommitments {
		cx := c.XBytes()
		preimage = append(preimage, cx[:]...)
	}
	for _, entry := range m.OrderedShares() {
		kx := entry.Signatory.XBytes()
		px := entry.Entry.PublicShare.XBytes()
		ex := entry.Entry.EncSecretShare.Bytes()
		preimage = append(preimage, kx[:]...)
		preimage = append(preimage, px[:]...)
		preimage = append(preimage, ex[:]...)
	}
	return crypto.TaggedHash("SighashAuthenticable", preimage)
}
