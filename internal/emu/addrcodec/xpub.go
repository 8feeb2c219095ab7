package addrcodec

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/mr-tron/base58"
)

// extended-key version bytes, mainnet and testnet, by BIP-44 purpose.
var xpubVersion = map[bool]map[BitcoinAddressType]uint32{
	false: { // mainnet
		BitcoinP2PKH:      0x0488B21E, // xpub
		BitcoinP2SHP2WPKH: 0x049D7CB2, // ypub
		BitcoinP2WPKH:     0x04B24746, // zpub
	},
	true: { // testnet
		BitcoinP2PKH:      0x043587CF, // tpub
		BitcoinP2SHP2WPKH: 0x044A5262, // upub
		BitcoinP2WPKH:     0x045F1CF6, // vpub
	},
}

// ExtendedPublicKey re-encodes an hdkeychain extended key's neutered
// (public-only) form under the version bytes for addrType, producing the
// xpub/ypub/zpub (or testnet upub/vpub) string a client expects for a
// given BIP-44 purpose.
func ExtendedPublicKey(key *hdkeychain.ExtendedKey, addrType BitcoinAddressType, testnet bool) (string, error) {
	neutered, err := key.Neuter()
	if err != nil {
		return "", fmt.Errorf("extended pubkey: neuter: %w", err)
	}

	versions, ok := xpubVersion[testnet]
	if !ok {
		return "", fmt.Errorf("extended pubkey: no version table for testnet=%v", testnet)
	}
	version, ok := versions[addrType]
	if !ok {
		return "", fmt.Errorf("extended pubkey: unsupported address type %d", addrType)
	}

	return reencodeVersion(neutered.String(), version)
}

// reencodeVersion swaps the 4-byte version prefix of a base58check-encoded
// BIP-32 extended key and recomputes its checksum, the way wallets derive
// ypub/zpub strings from the xpub a library natively emits.
func reencodeVersion(extKey string, version uint32) (string, error) {
	decoded, err := base58.Decode(extKey)
	if err != nil {
		return "", fmt.Errorf("extended pubkey: base58 decode: %w", err)
	}
	// version(4) || depth(1) || parentFP(4) || childNum(4) || chainCode(32) || key(33) || checksum(4)
	if len(decoded) != 82 {
		return "", fmt.Errorf("extended pubkey: unexpected decoded length %d", len(decoded))
	}

	payload := make([]byte, 78)
	copy(payload, decoded[:78])
	payload[0] = byte(version >> 24)
	payload[1] = byte(version >> 16)
	payload[2] = byte(version >> 8)
	payload[3] = byte(version)

	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	out := append(payload, second[:4]...)

	return base58.Encode(out), nil
}
