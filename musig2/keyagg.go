// Package musig2 implements two-round MuSig2 key aggregation and cooperative
// signing, treating every party uniformly — including the NOIST threshold
// group, which presents to this package as a single ordinary signatory whose
// nonce and partial signature happen to be produced by a distributed
// protocol rather than a single secret key.
package musig2

import (
	"errors"
	"sort"

	"github.com/brollup/coordinator/crypto"
)

// ErrNoKeys is returned when a key aggregation context is built from an
// empty key set.
var ErrNoKeys = errors.New("musig2: at least one key is required")

// ErrDuplicateKey is returned when the same key appears twice in a key
// aggregation context.
var ErrDuplicateKey = errors.New("musig2: duplicate key in aggregation set")

// KeyAggContext fixes the ordered set of signatory keys for one covenant
// and derives the MuSig2 aggregate key, along with the per-key coefficient
// and the aggregate key's own sign correction.
type KeyAggContext struct {
	keys         []crypto.Point
	coefficients map[[32]byte]crypto.Scalar
	aggregate    crypto.Point
	negateKeys   bool
}

// NewKeyAggContext sorts keys into the canonical ascending-xonly order,
// derives each key's MuSig2 coefficient via the key-aggregation hash over
// the full sorted list, and sums the weighted points into the aggregate
// key. A single-key context uses coefficient 1, matching the degenerate
// case of an ordinary (non-aggregate) signature.
func NewKeyAggContext(keys []crypto.Point) (*KeyAggContext, error) {
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}
	ordered := append([]crypto.Point{}, keys...)
	sortPoints(ordered)
	for i := 1; i < len(ordered); i++ {
		if ordered[i].XBytes() == ordered[i-1].XBytes() {
			return nil, ErrDuplicateKey
		}
	}

	listPreimage := make([]byte, 0, 32*len(ordered))
	for _, k := range ordered {
		xb := k.XBytes()
		listPreimage = append(listPreimage, xb[:]...)
	}

	coefficients := make(map[[32]byte]crypto.Scalar, len(ordered))
	var aggregate crypto.Point
	for i, k := range ordered {
		var coeff crypto.Scalar
		if len(ordered) == 1 {
			coeff = crypto.One()
		} else {
			xb := k.XBytes()
			h := crypto.TaggedHash("MuSig2/KeyAggCoeff", listPreimage, xb[:])
			coeff, _ = crypto.NewScalar(h)
			if coeff.IsZero() {
				coeff = crypto.One()
			}
		}
		coefficients[k.XBytes()] = coeff

		weighted := k.Mul(coeff)
		if i == 0 {
			aggregate = weighted
		} else {
			aggregate = aggregate.Add(weighted)
		}
	}

	return &KeyAggContext{
		keys:         ordered,
		coefficients: coefficients,
		aggregate:    aggregate,
		negateKeys:   !aggregate.IsEvenY(),
	}, nil
}

// Keys returns the ordered signatory set.
func (k *KeyAggContext) Keys() []crypto.Point {
	return append([]crypto.Point{}, k.keys...)
}

// AggregateKey returns the MuSig2 aggregate public key as computed, without
// normalizing its Y parity; its xonly bytes are the published key.
func (k *KeyAggContext) AggregateKey() crypto.Point {
	return k.aggregate
}

// Coefficient returns key's MuSig2 weighting coefficient, if key is a
// member of this context.
func (k *KeyAggContext) Coefficient(key crypto.Point) (crypto.Scalar, bool) {
	c, ok := k.coefficients[key.XBytes()]
	return c, ok
}

// NegateSecrets reports whether a signer's effective secret contribution
// must be negated before use, which is required whenever the unnormalized
// aggregate point carries odd Y — every partial signature must be produced
// against the same sign convention as the published (even-Y) aggregate key.
func (k *KeyAggContext) NegateSecrets() bool {
	return k.negateKeys
}

// Contains reports whether key is a member of this aggregation context.
func (k *KeyAggContext) Contains(key crypto.Point) bool {
	_, ok := k.coefficients[key.XBytes()]
	return ok
}

func sortPoints(pts []crypto.Point) {
	sort.Slice(pts, func(i, j int) bool {
		a, b := pts[i].XBytes(), pts[j].XBytes()
		for n := range a {
			if a[n] != b[n] {
				return a[n] < b[n]
			}
		}
		return false
	})
}
