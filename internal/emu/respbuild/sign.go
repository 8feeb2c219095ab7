package respbuild

import "fmt"

// BuildNextCodeResponse is the multipart placeholder: a Sign response
// carrying only the 8-byte next_code. The frame codec adds no padding, so
// the response body is exactly those 8 bytes.
func BuildNextCodeResponse(nextCode [8]byte) []byte {
	out := make([]byte, 8)
	copy(out, nextCode[:])
	return out
}

// BuildBitcoinSignResponse lays out 20-byte change PKH (zeros if unknown)
// + a 760-byte signature section (the first DER signature at offset 0,
// padded to 74 bytes; the remaining 760-74 bytes zero) + 33-byte
// compressed pubkey.
func BuildBitcoinSignResponse(changePKH []byte, derSig74 []byte, compressedPubkey []byte) ([]byte, error) {
	if len(changePKH) > 20 {
		return nil, fmt.Errorf("respbuild: change PKH exceeds 20 bytes")
	}
	if len(derSig74) != 74 {
		return nil, fmt.Errorf("respbuild: DER signature must be padded to 74 bytes, got %d", len(derSig74))
	}
	if len(compressedPubkey) != 33 {
		return nil, fmt.Errorf("respbuild: compressed pubkey must be 33 bytes, got %d", len(compressedPubkey))
	}

	const sigSectionSize = 760
	out := make([]byte, 20+sigSectionSize+33)
	copy(out[0:20], changePKH)
	copy(out[20:20+74], derSig74)
	copy(out[20+sigSectionSize:], compressedPubkey)
	return out, nil
}

// BuildEthereumSignResponse lays out a 74-byte DER-padded signature
// followed by the 20-byte signer address, for schemas
// ETHEREUM_TRANSACTION/ERC20/MESSAGE.
func BuildEthereumSignResponse(derSig74 []byte, signer [20]byte) ([]byte, error) {
	if len(derSig74) != 74 {
		return nil, fmt.Errorf("respbuild: DER signature must be padded to 74 bytes, got %d", len(derSig74))
	}
	out := make([]byte, 74+20)
	copy(out[0:74], derSig74)
	copy(out[74:94], signer[:])
	return out, nil
}

// BuildGenericSecp256k1Response lays out a 65-byte uncompressed pubkey (or
// zero if omitPubkey), a 74-byte DER signature, and an optional 32-byte
// message prehash.
func BuildGenericSecp256k1Response(uncompressedPubkey []byte, omitPubkey bool, derSig74 []byte, prehash []byte) ([]byte, error) {
	if len(derSig74) != 74 {
		return nil, fmt.Errorf("respbuild: DER signature must be padded to 74 bytes, got %d", len(derSig74))
	}
	if !omitPubkey && len(uncompressedPubkey) != 65 {
		return nil, fmt.Errorf("respbuild: uncompressed pubkey must be 65 bytes, got %d", len(uncompressedPubkey))
	}

	size := 65 + 74
	if len(prehash) > 0 {
		size += 32
	}
	out := make([]byte, size)
	if !omitPubkey {
		copy(out[0:65], uncompressedPubkey)
	}
	copy(out[65:139], derSig74)
	if len(prehash) > 0 {
		copy(out[139:171], prehash)
	}
	return out, nil
}

// BuildGenericEd25519Response lays out a 32-byte pubkey and a 64-byte raw
// EdDSA signature.
func BuildGenericEd25519Response(pubkey []byte, sig []byte) ([]byte, error) {
	if len(pubkey) != 32 {
		return nil, fmt.Errorf("respbuild: ed25519 pubkey must be 32 bytes, got %d", len(pubkey))
	}
	if len(sig) != 64 {
		return nil, fmt.Errorf("respbuild: ed25519 signature must be 64 bytes, got %d", len(sig))
	}
	out := make([]byte, 96)
	copy(out[0:32], pubkey)
	copy(out[32:96], sig)
	return out, nil
}

// BuildGenericBLSResponse lays out a 48-byte compressed G1 pubkey and a
// 96-byte compressed G2 signature.
func BuildGenericBLSResponse(pubkey []byte, sig []byte) ([]byte, error) {
	if len(pubkey) != 48 {
		return nil, fmt.Errorf("respbuild: BLS pubkey must be 48 bytes, got %d", len(pubkey))
	}
	if len(sig) != 96 {
		return nil, fmt.Errorf("respbuild: BLS signature must be 96 bytes, got %d", len(sig))
	}
	out := make([]byte, 144)
	copy(out[0:48], pubkey)
	copy(out[48:144], sig)
	return out, nil
}
