package reqparse

import (
	"encoding/binary"

	"github.com/arcsign/hsmemu/internal/emu/emuerr"
)

// ExtraDataSign carries a follow-on chunk for an active multipart session.
type ExtraDataSign struct {
	NextCode [8]byte
	Frame    []byte
}

// parseExtraDataSign parses next_code(8) | frame_len(u32 LE) | frame(bytes).
func parseExtraDataSign(data []byte) (ExtraDataSign, error) {
	const head = 8 + 4
	if len(data) < head {
		return ExtraDataSign{}, emuerr.InvalidMsgf("sign/extraData: want at least %d bytes, got %d", head, len(data))
	}

	var nextCode [8]byte
	copy(nextCode[:], data[0:8])

	frameLen := binary.LittleEndian.Uint32(data[8:12])
	available := len(data) - head
	n := int(frameLen)
	if n > available {
		n = available
	}

	frame := make([]byte, n)
	copy(frame, data[head:head+n])

	return ExtraDataSign{NextCode: nextCode, Frame: frame}, nil
}
