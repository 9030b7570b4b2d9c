package vss

import (
	"testing"

	"github.com/brollup/coordinator/crypto"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerifyShares(t *testing.T) {
	secret, err := crypto.RandomScalar()
	require.NoError(t, err)

	coeffs, commitments, err := GeneratePolynomial(secret, 3)
	require.NoError(t, err)
	require.Len(t, commitments, 3)

	constant, ok := ConstantPoint(commitments)
	require.True(t, ok)
	require.True(t, constant.Equal(secret.Point()))

	shares := GenerateShares(coeffs, 5)
	require.Len(t, shares, 5)

	for _, share := range shares {
		pub := share.Value.Point()
		require.True(t, VerifyPoint(share.Index, pub, commitments))
	}
}

func TestVerifyPointRejectsWrongShare(t *testing.T) {
	secret, err := crypto.RandomScalar()
	require.NoError(t, err)
	_, commitments, err := GeneratePolynomial(secret, 2)
	require.NoError(t, err)

	forged, err := crypto.RandomScalar()
	require.NoError(t, err)
	require.False(t, VerifyPoint(1, forged.Point(), commitments))
}
