package reqparse

import (
	"encoding/binary"

	"github.com/arcsign/hsmemu/internal/emu/emuerr"
	"github.com/arcsign/hsmemu/internal/emu/types"
)

// GenericSign is the payload for schema GENERIC, and the fallback for any
// schema tag the core doesn't recognize. Solana requests are dispatched
// here via Encoding == EncodingSolana.
type GenericSign struct {
	Encoding   types.Encoding
	HashType   types.HashType
	Curve      types.Curve
	Path       types.Path
	OmitPubkey bool
	Length     uint16
	Data       []byte
}

const genericHeadSize = 4 + 1 + 1 + pathWireSize + 1 + 2

// parseGenericSign parses encoding(u32 BE) | hash_type(u8) | curve(u8) |
// path(21) | omit_pubkey(u8) | length(u16 LE) | chunk.
func parseGenericSign(data []byte) (GenericSign, error) {
	if len(data) < genericHeadSize {
		return GenericSign{}, emuerr.InvalidMsgf("sign/generic: want at least %d bytes, got %d", genericHeadSize, len(data))
	}

	off := 0
	encoding := types.Encoding(binary.BigEndian.Uint32(data[off : off+4]))
	off += 4

	hashType := types.HashType(data[off])
	off++

	curve := types.Curve(data[off])
	off++

	path := readPathBE(data[off : off+pathWireSize])
	off += pathWireSize

	omitPubkey := data[off] != 0
	off++

	length := binary.LittleEndian.Uint16(data[off : off+2])
	off += 2

	available := len(data) - off
	n := int(length)
	if n > available {
		n = available
	}
	chunk := make([]byte, n)
	copy(chunk, data[off:off+n])

	return GenericSign{
		Encoding:   encoding,
		HashType:   hashType,
		Curve:      curve,
		Path:       path,
		OmitPubkey: omitPubkey,
		Length:     length,
		Data:       chunk,
	}, nil
}
