package addrcodec

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// EthereumAddress derives the 20-byte Ethereum address from an uncompressed
// secp256k1 public key (65 bytes, 0x04 prefix), formatted lowercase or
// EIP-55 mixed-case.
func EthereumAddress(uncompressedPubKey []byte, eip55 bool) (string, error) {
	if len(uncompressedPubKey) != 65 || uncompressedPubKey[0] != 0x04 {
		return "", fmt.Errorf("ethereum address: expected 65-byte uncompressed pubkey with 0x04 prefix")
	}
	hash := crypto.Keccak256(uncompressedPubKey[1:])
	addr := common.BytesToAddress(hash[12:])

	if eip55 {
		return addr.Hex(), nil
	}
	return strings.ToLower(addr.Hex()), nil
}

// EthereumAddressBytes returns the raw 20-byte address, used to populate
// fixed-width response fields.
func EthereumAddressBytes(uncompressedPubKey []byte) ([]byte, error) {
	if len(uncompressedPubKey) != 65 || uncompressedPubKey[0] != 0x04 {
		return nil, fmt.Errorf("ethereum address: expected 65-byte uncompressed pubkey with 0x04 prefix")
	}
	hash := crypto.Keccak256(uncompressedPubKey[1:])
	return hash[12:], nil
}
