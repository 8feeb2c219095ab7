package curve

import (
	blst "github.com/supranational/blst/bindings/go"
)

// blsDST is the domain separation tag for minimal-pubkey-size BLS
// signatures, matching the Ethereum consensus-layer convention.
var blsDST = []byte("BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_POP_")

// SignBLS signs message under sk, returning the compressed G2 signature
// (96 bytes) and the compressed G1 public key (48 bytes).
func SignBLS(sk *blst.SecretKey, message []byte) (signature, publicKey []byte) {
	sig := new(blst.P2Affine).Sign(sk, message, blsDST)
	pub := new(blst.P1Affine).From(sk)
	return sig.Compress(), pub.Compress()
}

// VerifyBLS verifies a compressed BLS signature against a compressed
// public key and message.
func VerifyBLS(publicKey, message, signature []byte) bool {
	pub := new(blst.P1Affine).Uncompress(publicKey)
	sig := new(blst.P2Affine).Uncompress(signature)
	if pub == nil || sig == nil {
		return false
	}
	return sig.Verify(true, pub, true, message, blsDST)
}
