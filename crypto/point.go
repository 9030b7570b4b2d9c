package crypto

import (
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
)

// ErrInvalidPointLength is returned when a byte slice is not exactly 32 bytes.
var ErrInvalidPointLength = errors.New("crypto: point must be a 32-byte xonly key")

// ErrPointNotOnCurve is returned when a candidate xonly key does not lift to
// a valid secp256k1 point.
var ErrPointNotOnCurve = errors.New("crypto: point not on curve")

// Point is a secp256k1 public point, compared and serialized by its xonly
// (BIP340) encoding. The underlying point keeps its actual Y parity: Negate,
// Add, Mul and Scalar.Point may yield an odd-Y point, which IsEvenY reports.
type Point struct {
	p btcec.JacobianPoint
}

// NewPointFromXOnly lifts a 32-byte xonly key to its even-Y point.
func NewPointFromXOnly(b [32]byte) (Point, error) {
	pk, err := btcec.ParsePubKey(append([]byte{0x02}, b[:]...))
	if err != nil {
		return Point{}, ErrPointNotOnCurve
	}
	var jp btcec.JacobianPoint
	pk.AsJacobian(&jp)
	return Point{p: jp}, nil
}

// XBytes returns the 32-byte xonly (even-Y) encoding of p.
func (p Point) XBytes() [32]byte {
	q := p.p
	q.ToAffine()
	if q.Y.IsOdd() {
		q.Y.Negate(1)
		q.Y.Normalize()
	}
	var out [32]byte
	xb := q.X.Bytes()
	copy(out[:], xb[:])
	return out
}

// Add returns p + other.
func (p Point) Add(other Point) Point {
	var r btcec.JacobianPoint
	btcec.AddNonConst(&p.p, &other.p, &r)
	r.ToAffine()
	return Point{p: r}
}

// Mul returns s*p.
func (p Point) Mul(s Scalar) Point {
	k := s.k
	var r btcec.JacobianPoint
	btcec.ScalarMultNonConst(&k, &p.p, &r)
	r.ToAffine()
	return Point{p: r}
}

// Negate returns the point with the opposite Y parity from p, same X.
func (p Point) Negate() Point {
	q := p.p
	q.ToAffine()
	q.Y.Negate(1)
	q.Y.Normalize()
	return Point{p: q}
}

// Equal reports whether p and other encode the same xonly key.
func (p Point) Equal(other Point) bool {
	return p.XBytes() == other.XBytes()
}

// IsEvenY reports whether the stored (unconverted) affine Y coordinate is even.
func (p Point) IsEvenY() bool {
	q := p.p
	q.ToAffine()
	return !q.Y.IsOdd()
}

// JacobianPoint exposes the underlying btcec point for packages (MuSig2,
// Schnorr verification) that operate directly on it.
func (p Point) JacobianPoint() btcec.JacobianPoint {
	return p.p
}
