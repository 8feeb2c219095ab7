package hd

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	blst "github.com/supranational/blst/bindings/go"
	"golang.org/x/crypto/hkdf"

	"github.com/arcsign/hsmemu/internal/emu/types"
)

// lamportChunks is the number of 32-byte chunks EIP-2333's lamport step
// expands into (L = 32 * 255 = 8160 bytes, the most HKDF-SHA256 can output).
const lamportChunks = 255

// DeriveBLS walks an EIP-2333 path from a 64-byte seed, using blst's KeyGen
// as the HKDF-mod-r primitive at each tree node.
func DeriveBLS(seed []byte, path types.Path) (*blst.SecretKey, error) {
	sk := masterSK(seed)
	for _, index := range path.Active() {
		sk = childSK(sk, index)
	}
	return sk, nil
}

func masterSK(seed []byte) *blst.SecretKey {
	return blst.KeyGen(seed)
}

func childSK(parent *blst.SecretKey, index uint32) *blst.SecretKey {
	lamportPK := parentSKToLamportPK(parent, index)
	return blst.KeyGen(lamportPK)
}

func parentSKToLamportPK(parent *blst.SecretKey, index uint32) []byte {
	ikm := skBytes(parent)
	flipped := make([]byte, len(ikm))
	for i, b := range ikm {
		flipped[i] = ^b
	}

	salt := make([]byte, 4)
	binary.BigEndian.PutUint32(salt, index)

	lamport0 := ikmToLamportSK(ikm, salt)
	lamport1 := ikmToLamportSK(flipped, salt)

	h := sha256.New()
	for i := 0; i < lamportChunks; i++ {
		sum := sha256.Sum256(lamport0[i*32 : (i+1)*32])
		h.Write(sum[:])
	}
	for i := 0; i < lamportChunks; i++ {
		sum := sha256.Sum256(lamport1[i*32 : (i+1)*32])
		h.Write(sum[:])
	}
	return h.Sum(nil)
}

func ikmToLamportSK(ikm, salt []byte) []byte {
	kdf := hkdf.New(sha256.New, ikm, salt, nil)
	out := make([]byte, lamportChunks*32)
	if _, err := io.ReadFull(kdf, out); err != nil {
		panic(fmt.Sprintf("hd: lamport HKDF expand failed: %v", err))
	}
	return out
}

func skBytes(sk *blst.SecretKey) []byte {
	return sk.Serialize()
}
