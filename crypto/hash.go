package crypto

import "github.com/btcsuite/btcd/chaincfg/chainhash"

// TaggedHash computes BIP340 tagged SHA-256 over msg, matching every sighash
// preimage used by the VSE, DKG and MuSig2 layers.
func TaggedHash(tag string, msg ...[]byte) [32]byte {
	return *chainhash.TaggedHash(tag, msg...)
}
