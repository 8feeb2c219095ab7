// Package curve implements the three signature algorithms the signing
// pipeline dispatches to: secp256k1 ECDSA (canonical-S, DER, with recovery
// id), raw ed25519, and BLS12-381 (minimal-pubkey-size scheme).
package curve

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	ecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// Secp256k1Signature is a DER-encoded, canonical-S ECDSA signature plus the
// recovery id computed by scanning 0..3 against the known public key.
type Secp256k1Signature struct {
	DER        []byte
	RecoveryID byte
}

// SignSecp256k1 signs a 32-byte digest (hash already applied by the caller
// per the request's HashType) with the given private key.
func SignSecp256k1(privKeyBytes []byte, digest []byte) (*Secp256k1Signature, error) {
	if len(digest) != 32 {
		return nil, fmt.Errorf("secp256k1: digest must be 32 bytes, got %d", len(digest))
	}
	privKey, pubKey := btcec.PrivKeyFromBytes(privKeyBytes)

	sig := ecdsa.Sign(privKey, digest)
	der := sig.Serialize()

	recID, err := recoveryID(der, digest, pubKey)
	if err != nil {
		return nil, err
	}

	return &Secp256k1Signature{DER: der, RecoveryID: recID}, nil
}

// recoveryID scans candidate recovery ids 0..3 and returns the one whose
// recovered public key matches expected.
func recoveryID(der, digest []byte, expected *btcec.PublicKey) (byte, error) {
	r, s, err := parseDERComponents(der)
	if err != nil {
		return 0, err
	}

	for id := byte(0); id < 4; id++ {
		compact := make([]byte, 65)
		compact[0] = 27 + id
		copy(compact[1:33], padTo32(r))
		copy(compact[33:65], padTo32(s))

		pubKey, _, err := ecdsa.RecoverCompact(compact, digest)
		if err != nil {
			continue
		}
		if pubKey.IsEqual(expected) {
			return id, nil
		}
	}
	return 0, fmt.Errorf("secp256k1: no recovery id matched derived public key")
}

// PadDER places a DER signature at offset 0 of a 74-byte buffer, zero
// filling the remainder, matching the wire's fixed-width signature slot.
func PadDER(der []byte) ([]byte, error) {
	if len(der) > 74 {
		return nil, fmt.Errorf("secp256k1: DER signature too long for 74-byte slot: %d", len(der))
	}
	out := make([]byte, 74)
	copy(out, der)
	return out, nil
}

func padTo32(b []byte) []byte {
	// DER prefixes a 0x00 byte to a component whose high bit is set.
	for len(b) > 32 && b[0] == 0 {
		b = b[1:]
	}
	if len(b) == 32 {
		return b
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

// parseDERComponents extracts R and S big-endian byte strings from a
// minimal DER ECDSA signature (0x30 len 0x02 rlen R 0x02 slen S).
func parseDERComponents(der []byte) (r, s []byte, err error) {
	if len(der) < 8 || der[0] != 0x30 {
		return nil, nil, fmt.Errorf("secp256k1: malformed DER signature")
	}
	idx := 2
	if der[idx] != 0x02 {
		return nil, nil, fmt.Errorf("secp256k1: malformed DER signature (R tag)")
	}
	idx++
	rLen := int(der[idx])
	idx++
	r = der[idx : idx+rLen]
	idx += rLen

	if idx >= len(der) || der[idx] != 0x02 {
		return nil, nil, fmt.Errorf("secp256k1: malformed DER signature (S tag)")
	}
	idx++
	sLen := int(der[idx])
	idx++
	s = der[idx : idx+sLen]

	return r, s, nil
}

// PublicKeyFromPrivate returns the compressed and uncompressed SEC1
// encodings of the public key for privKeyBytes.
func PublicKeyFromPrivate(privKeyBytes []byte) (compressed, uncompressed []byte) {
	_, pubKey := btcec.PrivKeyFromBytes(privKeyBytes)
	return pubKey.SerializeCompressed(), pubKey.SerializeUncompressed()
}
