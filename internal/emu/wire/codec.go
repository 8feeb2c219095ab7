package wire

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"

	"github.com/arcsign/hsmemu/internal/emu/emuerr"
	"github.com/arcsign/hsmemu/internal/emu/types"
)

var zeroIV = make([]byte, aes.BlockSize)

// BodyLengthFunc resolves the number of cleartext request-body bytes (N) for
// a given request-type tag, inspecting the bytes that follow the tag when
// the type's body is variable-length (Sign, AddKvRecords, RemoveKvRecords,
// FetchEncryptedData, Test). Fixed-size types ignore rest. Returning an
// error rejects the candidate secret being tried.
type BodyLengthFunc func(reqType byte, rest []byte) (int, error)

// decryptBlock AES-256-CBC-decrypts data (key = secret, zero IV).
func decryptBlock(secret [32]byte, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(secret[:])
	if err != nil {
		return nil, fmt.Errorf("wire: aes cipher: %w", err)
	}
	if len(data)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("wire: ciphertext length %d not a multiple of block size", len(data))
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, zeroIV).CryptBlocks(out, data)
	return out, nil
}

// encryptBlock AES-256-CBC-encrypts data (key = secret, zero IV).
func encryptBlock(secret [32]byte, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(secret[:])
	if err != nil {
		return nil, fmt.Errorf("wire: aes cipher: %w", err)
	}
	if len(data)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("wire: plaintext length %d not a multiple of block size", len(data))
	}
	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(block, zeroIV).CryptBlocks(out, data)
	return out, nil
}

// DecryptInbound tries, in order, the secret cached under hint (if any) and
// the current session secret, AES-256-CBC-decrypting the 1728-byte
// ciphertext under each until one yields a cleartext whose embedded CRC-32
// (little-endian, over bytes [0, 1+N)) matches. On success it returns the
// request-type tag, the N-byte request body, and the secret that worked,
// having stored that secret in cache under its ephemeral id. Fails
// with emuerr.PairFailed if no candidate validates.
func DecryptInbound(ciphertext []byte, hint uint32, cache *SecretCache, sessionSecret [32]byte, bodyLen BodyLengthFunc) (reqType byte, reqData []byte, secret [32]byte, err error) {
	if len(ciphertext) != types.EncryptedFrameSize {
		return 0, nil, secret, fmt.Errorf("wire: ciphertext must be %d bytes, got %d", types.EncryptedFrameSize, len(ciphertext))
	}

	var candidates [][32]byte
	if cached, ok := cache.Lookup(hint); ok {
		candidates = append(candidates, cached)
	}
	candidates = append(candidates, sessionSecret)

	for _, cand := range candidates {
		cleartext, derr := decryptBlock(cand, ciphertext)
		if derr != nil {
			continue
		}

		rt := cleartext[0]
		n, lerr := bodyLen(rt, cleartext[1:])
		if lerr != nil || n < 0 || 1+n+4 > len(cleartext) {
			continue
		}

		embedded := binary.LittleEndian.Uint32(cleartext[1+n : 1+n+4])
		computed := CRC32(cleartext[0 : 1+n])
		if embedded != computed {
			continue
		}

		cache.Put(cand)
		data := make([]byte, n)
		copy(data, cleartext[1:1+n])
		return rt, data, cand, nil
	}

	return 0, nil, secret, emuerr.PairFailed("no candidate secret decrypted with a valid CRC")
}

// EncryptOutbound builds and encrypts a response frame: pads payload to
// bodySize with zeros, prepends newEphemeralPub (65 B), appends a
// big-endian CRC-32 over [ephemeral || padded_payload], right-pads the
// whole thing with zeros to exactly 1728 bytes, and AES-256-CBC-encrypts it
// under secret (zero IV).
func EncryptOutbound(newEphemeralPub []byte, payload []byte, bodySize int, secret [32]byte) ([]byte, error) {
	if len(newEphemeralPub) != 65 {
		return nil, fmt.Errorf("wire: ephemeral public key must be 65 bytes, got %d", len(newEphemeralPub))
	}
	if len(payload) > bodySize {
		return nil, fmt.Errorf("wire: payload length %d exceeds body size %d", len(payload), bodySize)
	}

	padded := make([]byte, bodySize)
	copy(padded, payload)

	withEphemeral := make([]byte, 0, 65+bodySize)
	withEphemeral = append(withEphemeral, newEphemeralPub...)
	withEphemeral = append(withEphemeral, padded...)

	crc := CRC32(withEphemeral)
	var crcBytes [4]byte
	binary.BigEndian.PutUint32(crcBytes[:], crc)

	frame := make([]byte, types.EncryptedFrameSize)
	n := copy(frame, withEphemeral)
	n += copy(frame[n:], crcBytes[:])
	// remainder of frame is already zero from make()
	_ = n

	return encryptBlock(secret, frame)
}
