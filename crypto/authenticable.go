package crypto

// Sighasher is implemented by any payload that can be carried inside an
// Authenticable wrapper. Sighash must be a pure, deterministic function of
// the payload's content so that two equal payloads always sign the same
// preimage.
type Sighasher interface {
	Sighash() [32]byte
}

// Authenticable pairs a payload with the signer's key and a BIP340 signature
// over the payload's sighash, matching the original's
// `(payload, sighash, signer_key, signature)` invariant.
type Authenticable[T Sighasher] struct {
	payload   T
	sighash   [32]byte
	signerKey [32]byte
	signature [64]byte
}

// NewAuthenticable signs payload with signer and wraps it. It returns false
// if the secret does not correspond to a valid secp256k1 scalar.
func NewAuthenticable[T Sighasher](payload T, signer Scalar) (Authenticable[T], bool) {
	sighash := payload.Sighash()
	sig, err := Sign(signer, sighash)
	if err != nil {
		return Authenticable[T]{}, false
	}
	return Authenticable[T]{
		payload:   payload,
		sighash:   sighash,
		signerKey: signer.Point().XBytes(),
		signature: sig,
	}, true
}

// RehydrateAuthenticable rebuilds an Authenticable from its already-signed
// parts, for loading a wrapper back from storage or the wire without
// re-signing it. Callers that did not produce signerKey/signature
// themselves should call Authenticate afterward.
func RehydrateAuthenticable[T Sighasher](payload T, signerKey [32]byte, signature [64]byte) Authenticable[T] {
	return Authenticable[T]{
		payload:   payload,
		sighash:   payload.Sighash(),
		signerKey: signerKey,
		signature: signature,
	}
}

// Object returns the wrapped payload.
func (a Authenticable[T]) Object() T { return a.payload }

// Key returns the xonly key of the signer.
func (a Authenticable[T]) Key() [32]byte { return a.signerKey }

// Sighash returns the signed preimage.
func (a Authenticable[T]) Sighash() [32]byte { return a.sighash }

// Signature returns the BIP340 signature.
func (a Authenticable[T]) Signature() [64]byte { return a.signature }

// Authenticate verifies the wrapper is internally consistent: the payload's
// recomputed sighash matches the stored one, and the stored signature
// verifies against the stored signer key over that sighash.
func (a Authenticable[T]) Authenticate() bool {
	if a.payload.Sighash() != a.sighash {
		return false
	}
	return Verify(a.signerKey, a.sighash, a.signature)
}
