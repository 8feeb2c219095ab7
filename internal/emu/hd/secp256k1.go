// Package hd implements the three HD derivation schemes the signing
// pipeline needs: BIP-32 for secp256k1, SLIP-10 for ed25519, and EIP-2333
// for BLS12-381.
package hd

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/arcsign/hsmemu/internal/emu/types"
)

// DeriveSecp256k1 walks a BIP-32 path from a 64-byte master seed,
// hardening any segment at or above types.HardenedOffset.
func DeriveSecp256k1(seed []byte, path types.Path) (*hdkeychain.ExtendedKey, error) {
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("secp256k1 master key: %w", err)
	}

	key := master
	for _, segment := range path.Active() {
		key, err = key.Derive(segment)
		if err != nil {
			return nil, fmt.Errorf("secp256k1 derive at %d: %w", segment, err)
		}
	}
	return key, nil
}
