// Package addrcodec turns curve public keys into chain-specific address and
// extended-key string encodings.
package addrcodec

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// BitcoinAddressType selects the script type for a derived Bitcoin address,
// chosen by BIP-44 purpose (44/49/84).
type BitcoinAddressType int

const (
	BitcoinP2PKH       BitcoinAddressType = 44
	BitcoinP2SHP2WPKH  BitcoinAddressType = 49
	BitcoinP2WPKH      BitcoinAddressType = 84
)

// BitcoinAddress encodes a compressed secp256k1 public key as a Bitcoin
// address of the given type, on mainnet unless testnet is true.
func BitcoinAddress(compressedPubKey []byte, addrType BitcoinAddressType, testnet bool) (string, error) {
	params := &chaincfg.MainNetParams
	if testnet {
		params = &chaincfg.TestNet3Params
	}

	pubKeyHash := btcutil.Hash160(compressedPubKey)

	switch addrType {
	case BitcoinP2PKH:
		addr, err := btcutil.NewAddressPubKeyHash(pubKeyHash, params)
		if err != nil {
			return "", fmt.Errorf("bitcoin p2pkh address: %w", err)
		}
		return addr.EncodeAddress(), nil

	case BitcoinP2WPKH:
		addr, err := btcutil.NewAddressWitnessPubKeyHash(pubKeyHash, params)
		if err != nil {
			return "", fmt.Errorf("bitcoin p2wpkh address: %w", err)
		}
		return addr.EncodeAddress(), nil

	case BitcoinP2SHP2WPKH:
		witnessProg, err := btcutil.NewAddressWitnessPubKeyHash(pubKeyHash, params)
		if err != nil {
			return "", fmt.Errorf("bitcoin p2sh-p2wpkh witness program: %w", err)
		}
		redeemScript, err := witnessRedeemScript(witnessProg.ScriptAddress())
		if err != nil {
			return "", err
		}
		scriptHash := btcutil.Hash160(redeemScript)
		addr, err := btcutil.NewAddressScriptHashFromHash(scriptHash, params)
		if err != nil {
			return "", fmt.Errorf("bitcoin p2sh-p2wpkh address: %w", err)
		}
		return addr.EncodeAddress(), nil

	default:
		return "", fmt.Errorf("bitcoin: unsupported address type %d", addrType)
	}
}

// witnessRedeemScript builds the P2SH redeem script wrapping a P2WPKH
// witness program: OP_0 <20-byte-pubkeyhash>.
func witnessRedeemScript(pubKeyHash []byte) ([]byte, error) {
	if len(pubKeyHash) != 20 {
		return nil, fmt.Errorf("bitcoin: witness program must be 20 bytes, got %d", len(pubKeyHash))
	}
	script := make([]byte, 0, 22)
	script = append(script, 0x00, 0x14)
	script = append(script, pubKeyHash...)
	return script, nil
}
