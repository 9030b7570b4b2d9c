// Package vss implements Feldman Verifiable Secret Sharing over the
// secp256k1 scalar field: a dealer commits to a degree-(threshold-1)
// polynomial and every recipient can verify their share against the
// published commitments without learning the secret.
package vss

import (
	"errors"

	"github.com/brollup/coordinator/crypto"
)

// ErrThresholdTooSmall is returned when threshold is not a positive integer.
var ErrThresholdTooSmall = errors.New("vss: threshold must be at least 1")

// Share is one recipient's point on the dealer's polynomial.
type Share struct {
	Index uint32
	Value crypto.Scalar
}

// GeneratePolynomial draws threshold-1 random coefficients on top of the
// given constant term (the shared secret) and returns both the coefficients
// (kept private by the dealer) and their public commitments (coefficient*G,
// published so recipients can verify their shares).
func GeneratePolynomial(secret crypto.Scalar, threshold int) ([]crypto.Scalar, []crypto.Point, error) {
	if threshold < 1 {
		return nil, nil, ErrThresholdTooSmall
	}
	coeffs := make([]crypto.Scalar, threshold)
	coeffs[0] = secret
	for i := 1; i < threshold; i++ {
		c, err := crypto.RandomScalar()
		if err != nil {
			return nil, nil, err
		}
		coeffs[i] = c
	}
	commitments := make([]crypto.Point, threshold)
	for i, c := range coeffs {
		commitments[i] = c.Point()
	}
	return coeffs, commitments, nil
}

// EvaluateShare evaluates the dealer's polynomial at x = index (1-based)
// using Horner's method.
func EvaluateShare(coeffs []crypto.Scalar, index uint32) crypto.Scalar {
	x := crypto.ScalarFromUint32(index)
	acc := coeffs[len(coeffs)-1]
	for i := len(coeffs) - 2; i >= 0; i-- {
		acc = acc.Mul(x).Add(coeffs[i])
	}
	return acc
}

// GenerateShares evaluates the dealer's polynomial at indices 1..=n.
func GenerateShares(coeffs []crypto.Scalar, n int) []Share {
	shares := make([]Share, n)
	for i := 0; i < n; i++ {
		idx := uint32(i + 1)
		shares[i] = Share{Index: idx, Value: EvaluateShare(coeffs, idx)}
	}
	return shares
}

// VerifyPoint checks that share (index, publicShare) lies on the polynomial
// committed to by commitments, using Horner's method over points:
// publicShare =? Σ commitments[j] * index^j.
func VerifyPoint(index uint32, publicShare crypto.Point, commitments []crypto.Point) bool {
	if len(commitments) == 0 {
		return false
	}
	x := crypto.ScalarFromUint32(index)
	expected := commitments[len(commitments)-1]
	for i := len(commitments) - 2; i >= 0; i-- {
		expected = expected.Mul(x).Add(commitments[i])
	}
	return expected.Equal(publicShare)
}

// ConstantPoint returns the commitment to the polynomial's constant term,
// i.e. the dealer's contribution to the aggregate group key.
func ConstantPoint(commitments []crypto.Point) (crypto.Point, bool) {
	if len(commitments) == 0 {
		return crypto.Point{}, false
	}
	return commitments[0], true
}
