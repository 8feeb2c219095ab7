package wire

import (
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// EphemeralKeyPair is a device or client P-256 ephemeral keypair.
type EphemeralKeyPair struct {
	Private *ecdh.PrivateKey
	Public  []byte // 65-byte uncompressed SEC1 encoding
}

// GenerateEphemeral creates a fresh P-256 ephemeral keypair.
func GenerateEphemeral() (*EphemeralKeyPair, error) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("wire: generate ephemeral: %w", err)
	}
	return &EphemeralKeyPair{Private: priv, Public: priv.PublicKey().Bytes()}, nil
}

// SharedSecret derives the 32-byte ECDH shared secret (X-coordinate,
// big-endian) between priv and a peer's 65-byte uncompressed public key.
func SharedSecret(priv *ecdh.PrivateKey, peerPub []byte) ([32]byte, error) {
	var out [32]byte
	peerKey, err := ecdh.P256().NewPublicKey(peerPub)
	if err != nil {
		return out, fmt.Errorf("wire: invalid peer public key: %w", err)
	}
	secret, err := priv.ECDH(peerKey)
	if err != nil {
		return out, fmt.Errorf("wire: ecdh: %w", err)
	}
	copy(out[:], secret)
	return out, nil
}

// EphemeralID is the u32 cache key derived from a shared secret: the first
// four bytes of SHA-256(secret).
func EphemeralID(secret [32]byte) uint32 {
	sum := sha256.Sum256(secret[:])
	return binary.BigEndian.Uint32(sum[:4])
}
