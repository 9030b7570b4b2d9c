package musig2

import (
	"testing"

	"github.com/brollup/coordinator/crypto"
	"github.com/stretchr/testify/require"
)

func mustRandomScalar(t *testing.T) crypto.Scalar {
	t.Helper()
	s, err := crypto.RandomScalar()
	require.NoError(t, err)
	return s
}

func TestKeyAggDeterministicAcrossOrder(t *testing.T) {
	secrets := []crypto.Scalar{mustRandomScalar(t), mustRandomScalar(t), mustRandomScalar(t)}
	keys := make([]crypto.Point, len(secrets))
	for i, s := range secrets {
		keys[i] = s.Point()
	}

	reversed := []crypto.Point{keys[2], keys[1], keys[0]}

	ctxA, err := NewKeyAggContext(keys)
	require.NoError(t, err)
	ctxB, err := NewKeyAggContext(reversed)
	require.NoError(t, err)

	require.True(t, ctxA.AggregateKey().Equal(ctxB.AggregateKey()))
}

func TestKeyAggRejectsDuplicate(t *testing.T) {
	s := mustRandomScalar(t)
	_, err := NewKeyAggContext([]crypto.Point{s.Point(), s.Point()})
	require.ErrorIs(t, err, ErrDuplicateKey)
}

func TestThreePartySignRoundTrip(t *testing.T) {
	secrets := []crypto.Scalar{mustRandomScalar(t), mustRandomScalar(t), mustRandomScalar(t)}
	keys := make([]crypto.Point, len(secrets))
	for i, s := range secrets {
		keys[i] = s.Point()
	}

	keyAgg, err := NewKeyAggContext(keys)
	require.NoError(t, err)

	message := crypto.TaggedHash("test/message", []byte("anchor this"))

	secretNonces := make([]SecretNonce, len(secrets))
	publicNonces := make([]PublicNonce, len(secrets))
	for i := range secrets {
		sn, pn, err := GenerateSecretNonce()
		require.NoError(t, err)
		secretNonces[i] = sn
		publicNonces[i] = pn
	}

	session := NewSessionCtx(keyAgg, message)
	for i, k := range keys {
		require.NoError(t, session.InsertNonce(k, publicNonces[i]))
	}
	require.Equal(t, len(keys), session.NonceCount())
	require.Empty(t, session.BlameList())

	require.NoError(t, session.Lock())
	require.Equal(t, SessionCollectingSigs, session.State())

	for i, k := range keys {
		partial, err := session.PartialSign(k, secrets[i], secretNonces[i])
		require.NoError(t, err)
		require.True(t, session.VerifyPartialSig(k, partial))
		require.NoError(t, session.InsertPartialSig(k, partial))
	}
	require.Empty(t, session.BlameList())

	sig, err := session.FullAggregateSignature()
	require.NoError(t, err)
	require.Equal(t, SessionFinalized, session.State())

	aggKeyXB := keyAgg.AggregateKey().XBytes()
	require.True(t, crypto.Verify(aggKeyXB, message, sig))
}

func TestBlameListNamesMissingSigner(t *testing.T) {
	secrets := []crypto.Scalar{mustRandomScalar(t), mustRandomScalar(t)}
	keys := make([]crypto.Point, len(secrets))
	for i, s := range secrets {
		keys[i] = s.Point()
	}
	keyAgg, err := NewKeyAggContext(keys)
	require.NoError(t, err)

	message := crypto.TaggedHash("test/message", []byte("partial"))
	session := NewSessionCtx(keyAgg, message)

	_, pn, err := GenerateSecretNonce()
	require.NoError(t, err)
	require.NoError(t, session.InsertNonce(keys[0], pn))

	blamed := session.BlameList()
	require.Len(t, blamed, 1)
	require.True(t, blamed[0].Equal(keys[1]))

	require.ErrorIs(t, session.Lock(), ErrNoncesIncomplete)
}

func TestInsertPartialSigRejectsInvalid(t *testing.T) {
	secrets := []crypto.Scalar{mustRandomScalar(t), mustRandomScalar(t)}
	keys := make([]crypto.Point, len(secrets))
	for i, s := range secrets {
		keys[i] = s.Point()
	}
	keyAgg, err := NewKeyAggContext(keys)
	require.NoError(t, err)

	message := crypto.TaggedHash("test/message", []byte("tamper"))
	session := NewSessionCtx(keyAgg, message)

	pubs := make([]PublicNonce, len(keys))
	for i := range keys {
		_, pn, err := GenerateSecretNonce()
		require.NoError(t, err)
		pubs[i] = pn
		require.NoError(t, session.InsertNonce(keys[i], pn))
	}
	require.NoError(t, session.Lock())

	bogus := crypto.One()
	require.ErrorIs(t, session.InsertPartialSig(keys[0], bogus), ErrPartialSigInvalid)
}
