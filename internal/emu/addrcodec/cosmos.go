package addrcodec

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // required for Cosmos address hashing
)

// CosmosAddress bech32-encodes RIPEMD160(SHA256(compressed_pubkey)) under
// the chain's address hrp (e.g. "cosmos", "osmo", "juno").
func CosmosAddress(compressedPubKey []byte, hrp string) (string, error) {
	shaSum := sha256.Sum256(compressedPubKey)

	ripemd := ripemd160.New()
	ripemd.Write(shaSum[:])
	hash := ripemd.Sum(nil)

	converted, err := bech32.ConvertBits(hash, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("cosmos address: convert bits: %w", err)
	}
	return bech32.Encode(hrp, converted)
}

// CosmosHRP maps a coin symbol to its bech32 address prefix.
func CosmosHRP(symbol string) string {
	switch symbol {
	case "OSMO":
		return "osmo"
	case "JUNO":
		return "juno"
	case "EVMOS":
		return "evmos"
	case "SCRT":
		return "secret"
	default:
		return "cosmos"
	}
}
