package vse

import (
	"encoding/hex"
	"testing"

	"github.com/brollup/coordinator/crypto"
	"github.com/stretchr/testify/require"
)

func mustScalar(t *testing.T, h string) crypto.Scalar {
	t.Helper()
	raw, err := hex.DecodeString(h)
	require.NoError(t, err)
	var b [32]byte
	copy(b[:], raw)
	s, err := crypto.NewScalar(b)
	require.NoError(t, err)
	return s
}

func TestSetupValidateThreeParty(t *testing.T) {
	s1 := mustScalar(t, "396e7f3b89843e1e5610b1fdbaabf1b6a53066f43b22c529f839d69b6799ce8f")
	s2 := mustScalar(t, "31dfea206f96e7b254e00fddb22baac233feb57d6ea98f3fe6929becad1eee78")
	s3 := mustScalar(t, "38e2361ab771574909a9768670fa33406a311a2cae7d446359f09df18ac2cb83")

	p1, p2, p3 := s1.Point(), s2.Point(), s3.Point()
	full := []crypto.Point{p1, p2, p3}

	km1 := NewKeyMap(s1, []crypto.Point{p2, p3})
	require.True(t, km1.IsComplete(full))
	auth1, ok := crypto.NewAuthenticable[KeyMap](km1, s1)
	require.True(t, ok)
	require.True(t, auth1.Authenticate())

	km2 := NewKeyMap(s2, []crypto.Point{p1, p3})
	require.True(t, km2.IsComplete(full))
	auth2, ok := crypto.NewAuthenticable[KeyMap](km2, s2)
	require.True(t, ok)

	km3 := NewKeyMap(s3, []crypto.Point{p1, p2})
	require.True(t, km3.IsComplete(full))
	auth3, ok := crypto.NewAuthenticable[KeyMap](km3, s3)
	require.True(t, ok)

	setup := NewSetup(full, 0)
	require.True(t, setup.Insert(auth1))
	require.True(t, setup.Insert(auth2))
	require.True(t, setup.Insert(auth3))
	require.True(t, setup.Validate())
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	secret, err := crypto.RandomScalar()
	require.NoError(t, err)
	encryptingKey, err := crypto.RandomScalar()
	require.NoError(t, err)

	ciphertext, err := Encrypt(secret, encryptingKey)
	require.NoError(t, err)
	plaintext, err := Decrypt(ciphertext, encryptingKey)
	require.NoError(t, err)
	require.Equal(t, secret.Bytes(), plaintext.Bytes())
}

func TestEncryptingKeySymmetry(t *testing.T) {
	a, err := crypto.RandomScalar()
	require.NoError(t, err)
	b, err := crypto.RandomScalar()
	require.NoError(t, err)

	kAB := EncryptingKeyPublic(a, b.Point())
	kBA := EncryptingKeyPublic(b, a.Point())
	require.True(t, kAB.Equal(kBA))
}
