// Package vse implements Verifiable Symmetric Encryption: share encryption
// under ECDH-derived pairwise keys, with a public verification equation tying
// an encrypted share back to its VSS commitment.
package vse

import (
	"crypto/sha256"
	"errors"

	"github.com/brollup/coordinator/crypto"
	"github.com/btcsuite/btcd/btcec/v2"
)

// ErrEncryptedToZero is returned on the astronomically unlikely event that a
// secret-plus-encrypting-key sum reduces to zero.
var ErrEncryptedToZero = errors.New("vse: encrypted scalar reduced to zero")

// EncryptingKeySecret derives the ECDH-based symmetric key self uses to
// encrypt a share destined for to. It is asymmetric in name only: both
// directions of the pairing must agree (checked by Setup.Validate).
func EncryptingKeySecret(self crypto.Scalar, to crypto.Point) crypto.Scalar {
	shared := to.Mul(self)
	uncompressed := uncompressedBytes(shared)
	digest := sha256.Sum256(uncompressed)

	var s btcec.ModNScalar
	overflow := s.SetBytes(&digest)
	if overflow != 0 || s.IsZero() {
		// Reduction landed outside or at the identity; re-hash once more
		// deterministically rather than leak a degenerate key.
		digest = sha256.Sum256(digest[:])
		s.SetBytes(&digest)
		if s.IsZero() {
			s.SetInt(1)
		}
	}
	b := s.Bytes()
	out, _ := crypto.NewScalar(b)
	return out
}

func uncompressedBytes(p crypto.Point) []byte {
	jp := p.JacobianPoint()
	jp.ToAffine()
	out := make([]byte, 65)
	out[0] = 0x04
	xb := jp.X.Bytes()
	yb := jp.Y.Bytes()
	copy(out[1:33], xb[:])
	copy(out[33:65], yb[:])
	return out
}

// EncryptingKeyPublic returns the public point of the encrypting key,
// i.e. the commitment correspondents use to verify decrypted shares.
func EncryptingKeyPublic(self crypto.Scalar, to crypto.Point) crypto.Point {
	return EncryptingKeySecret(self, to).Point()
}

// Encrypt blinds secretToEncrypt under encryptingKey.
func Encrypt(secretToEncrypt, encryptingKey crypto.Scalar) (crypto.Scalar, error) {
	sum := secretToEncrypt.Add(encryptingKey)
	if sum.IsZero() {
		return crypto.Scalar{}, ErrEncryptedToZero
	}
	return sum, nil
}

// Decrypt reverses Encrypt.
func Decrypt(secretToDecrypt, encryptingKey crypto.Scalar) (crypto.Scalar, error) {
	diff := secretToDecrypt.Sub(encryptingKey)
	if diff.IsZero() {
		return crypto.Scalar{}, ErrEncryptedToZero
	}
	return diff, nil
}

// Verify checks that combined*G == publicShare + vsePublicKey, tying a
// decrypted share back to both its VSS public share and the VSE commitment
// used to encrypt it.
func Verify(combined crypto.Scalar, publicShare, vsePublicKey crypto.Point) bool {
	return combined.Point().Equal(publicShare.Add(vsePublicKey))
}
