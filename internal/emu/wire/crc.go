// Package wire implements the session cryptography and frame codec: P-256
// ECDH key agreement, the AES-256-CBC (zero IV) frame cipher, CRC-32
// validation, and the outer request/response framing.
package wire

import "hash/crc32"

// CRC32 computes CRC-32/ISO-HDLC (polynomial 0xEDB88320, reflected), the
// IEEE/zlib/Ethernet variant, over data.
func CRC32(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}
