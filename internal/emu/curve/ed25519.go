package curve

import (
	"crypto/ed25519"
	"fmt"
)

// SignEd25519 signs message with a 32-byte or 64-byte ed25519 private key
// seed, returning the raw 64-byte signature.
func SignEd25519(privateKey, message []byte) ([]byte, error) {
	var key ed25519.PrivateKey
	switch len(privateKey) {
	case ed25519.SeedSize:
		key = ed25519.NewKeyFromSeed(privateKey)
	case ed25519.PrivateKeySize:
		key = ed25519.PrivateKey(privateKey)
	default:
		return nil, fmt.Errorf("ed25519: invalid private key length %d", len(privateKey))
	}
	return ed25519.Sign(key, message), nil
}

// PublicKeyFromSeed derives the 32-byte ed25519 public key from a seed.
func PublicKeyFromSeed(seed []byte) ([]byte, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("ed25519: invalid seed length %d", len(seed))
	}
	key := ed25519.NewKeyFromSeed(seed)
	return key.Public().(ed25519.PublicKey), nil
}
