package crypto

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// Sign produces a BIP340 Schnorr signature of msg under s.
func Sign(s Scalar, msg [32]byte) ([64]byte, error) {
	b := s.Bytes()
	priv, _ := btcec.PrivKeyFromBytes(b[:])
	sig, err := schnorr.Sign(priv, msg[:])
	if err != nil {
		return [64]byte{}, err
	}
	var out [64]byte
	copy(out[:], sig.Serialize())
	return out, nil
}

// Verify checks a BIP340 Schnorr signature of msg under the xonly key pub.
func Verify(pub [32]byte, msg [32]byte, sig [64]byte) bool {
	pk, err := schnorr.ParsePubKey(pub[:])
	if err != nil {
		return false
	}
	s, err := schnorr.ParseSignature(sig[:])
	if err != nil {
		return false
	}
	return s.Verify(msg[:], pk) == nil
}
