// Package crypto wraps the secp256k1 scalar/point arithmetic and BIP340
// Schnorr primitives the rest of the coordinator builds on.
package crypto

import (
	"crypto/rand"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
)

// ErrInvalidScalarLength is returned when a byte slice is not exactly 32 bytes.
var ErrInvalidScalarLength = errors.New("crypto: scalar must be 32 bytes")

// ErrScalarOutOfRange is returned when a scalar does not represent an element
// of the secp256k1 scalar field.
var ErrScalarOutOfRange = errors.New("crypto: scalar out of range")

// Scalar is a secp256k1 private scalar.
type Scalar struct {
	k btcec.ModNScalar
}

// One is the multiplicative identity, used as the dealer's self-entry
// sentinel when building a share map.
func One() Scalar {
	var s Scalar
	s.k.SetInt(1)
	return s
}

// NewScalar parses a 32-byte big-endian scalar. It rejects values that are
// zero or not reduced modulo the group order, matching the original's
// rejection-sampling contract for secrets.
func NewScalar(b [32]byte) (Scalar, error) {
	var s Scalar
	overflow := s.k.SetBytes(&b)
	if overflow != 0 {
		return Scalar{}, ErrScalarOutOfRange
	}
	if s.k.IsZero() {
		return Scalar{}, ErrScalarOutOfRange
	}
	return s, nil
}

// RandomScalar draws a uniformly random non-zero scalar.
func RandomScalar() (Scalar, error) {
	for {
		var b [32]byte
		if _, err := rand.Read(b[:]); err != nil {
			return Scalar{}, err
		}
		s, err := NewScalar(b)
		if err == nil {
			return s, nil
		}
	}
}

// Bytes returns the 32-byte big-endian encoding of s.
func (s Scalar) Bytes() [32]byte {
	return s.k.Bytes()
}

// Add returns s + other mod n.
func (s Scalar) Add(other Scalar) Scalar {
	var r Scalar
	r.k = s.k
	r.k.Add(&other.k)
	return r
}

// Sub returns s - other mod n.
func (s Scalar) Sub(other Scalar) Scalar {
	var neg btcec.ModNScalar
	neg.Set(&other.k).Negate()
	var r Scalar
	r.k = s.k
	r.k.Add(&neg)
	return r
}

// Mul returns s * other mod n.
func (s Scalar) Mul(other Scalar) Scalar {
	var r Scalar
	r.k = s.k
	r.k.Mul(&other.k)
	return r
}

// IsZero reports whether s is the additive identity.
func (s Scalar) IsZero() bool {
	return s.k.IsZero()
}

// Equal reports whether s and other encode the same value.
func (s Scalar) Equal(other Scalar) bool {
	return s.Bytes() == other.Bytes()
}

// Point returns the public point s*G.
func (s Scalar) Point() Point {
	k := s.k
	var p btcec.JacobianPoint
	btcec.ScalarBaseMultNonConst(&k, &p)
	p.ToAffine()
	return Point{p: p}
}

// ModNScalar exposes the underlying btcec scalar for callers (e.g. MuSig2
// nonce arithmetic) that need direct access to the library's scalar type.
func (s Scalar) ModNScalar() btcec.ModNScalar {
	return s.k
}

// ScalarFromUint32 lifts a small integer (e.g. a Lagrange/VSS index) into a
// scalar. Every caller in this codebase uses small 1-based indices, well
// within uint32 range.
func ScalarFromUint32(v uint32) Scalar {
	var s Scalar
	s.k.SetInt(v)
	return s
}
