package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

type demoPayload struct {
	field1 string
	field2 uint32
}

func (d demoPayload) Sighash() [32]byte {
	preimage := append([]byte(d.field1), byte(d.field2>>24), byte(d.field2>>16), byte(d.field2>>8), byte(d.field2))
	return TaggedHash("SighashAuthenticable", preimage)
}

func mustScalar(t *testing.T, h string) Scalar {
	t.Helper()
	raw, err := hex.DecodeString(h)
	require.NoError(t, err)
	var b [32]byte
	copy(b[:], raw)
	s, err := NewScalar(b)
	require.NoError(t, err)
	return s
}

func TestAuthenticableRoundTrip(t *testing.T) {
	secret := mustScalar(t, "7c341c752c061be9c820f556cbf3b1b2e4e01eb757df126f3750a5125f18a786")

	payload := demoPayload{field1: "Brollup", field2: 21}
	auth, ok := NewAuthenticable[demoPayload](payload, secret)
	require.True(t, ok)
	require.True(t, auth.Authenticate())
	require.Equal(t, payload, auth.Object())
}

func TestAuthenticableDifferentSignerFails(t *testing.T) {
	secret, err := RandomScalar()
	require.NoError(t, err)
	other, err := RandomScalar()
	require.NoError(t, err)

	auth, ok := NewAuthenticable[demoPayload](demoPayload{field1: "a", field2: 1}, secret)
	require.True(t, ok)
	require.NotEqual(t, secret.Point().XBytes(), other.Point().XBytes())
	require.True(t, auth.Authenticate())

	forged := RehydrateAuthenticable[demoPayload](auth.Object(), other.Point().XBytes(), auth.Signature())
	require.False(t, forged.Authenticate())
}

func TestScalarAddSubRoundTrip(t *testing.T) {
	a, err := RandomScalar()
	require.NoError(t, err)
	b, err := RandomScalar()
	require.NoError(t, err)

	sum := a.Add(b)
	back := sum.Sub(b)
	require.Equal(t, a.Bytes(), back.Bytes())
}

func TestPointXOnlyRoundTrip(t *testing.T) {
	s, err := RandomScalar()
	require.NoError(t, err)
	p := s.Point()

	x := p.XBytes()
	p2, err := NewPointFromXOnly(x)
	require.NoError(t, err)
	require.True(t, p.Equal(p2))
	require.True(t, p2.IsEvenY())
}

func TestSignVerify(t *testing.T) {
	s, err := RandomScalar()
	require.NoError(t, err)
	msg := TaggedHash("test", []byte("hello"))

	sig, err := Sign(s, msg)
	require.NoError(t, err)
	require.True(t, Verify(s.Point().XBytes(), msg, sig))

	other, err := RandomScalar()
	require.NoError(t, err)
	require.False(t, Verify(other.Point().XBytes(), msg, sig))
}

func TestOneScalar(t *testing.T) {
	one := One()
	require.False(t, one.IsZero())
	require.Equal(t, one, one.Add(Scalar{}))
}
