package addrcodec

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// SolanaAddress base58-encodes a 32-byte ed25519 public key as a Solana
// address. The key passes through solana-go's PublicKey type, while the
// encoding itself is mr-tron/base58, the primitive that type wraps.
func SolanaAddress(ed25519PubKey []byte) (string, error) {
	if len(ed25519PubKey) != 32 {
		return "", fmt.Errorf("solana address: expected 32-byte ed25519 pubkey, got %d", len(ed25519PubKey))
	}
	pub := solana.PublicKeyFromBytes(ed25519PubKey)
	return base58.Encode(pub[:]), nil
}
