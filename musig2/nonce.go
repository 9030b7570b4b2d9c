package musig2

import (
	"github.com/brollup/coordinator/crypto"
)

// SecretNonce is a signer's private pair of per-session nonce scalars,
// conventionally called "hiding" and "binding" — the first masks the
// partial signature, the second is weighted by the binding coefficient
// once every signer's public nonce pair is known.
type SecretNonce struct {
	Hiding  crypto.Scalar
	Binding crypto.Scalar
}

// PublicNonce is the corresponding pair of nonce points a signer publishes
// during round one, before the message to be signed may even be final.
type PublicNonce struct {
	Hiding  crypto.Point
	Binding crypto.Point
}

// GenerateSecretNonce draws a fresh random hiding/binding nonce pair and
// returns both the secret scalars and the points to publish.
func GenerateSecretNonce() (SecretNonce, PublicNonce, error) {
	hiding, err := crypto.RandomScalar()
	if err != nil {
		return SecretNonce{}, PublicNonce{}, err
	}
	binding, err := crypto.RandomScalar()
	if err != nil {
		return SecretNonce{}, PublicNonce{}, err
	}
	secret := SecretNonce{Hiding: hiding, Binding: binding}
	public := PublicNonce{Hiding: hiding.Point(), Binding: binding.Point()}
	return secret, public, nil
}
