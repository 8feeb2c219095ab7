package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/arcsign/hsmemu/internal/emu/types"
)

// InboundFrame is a demultiplexed message arriving on the transport, before
// decryption. ParseOuter builds it from the raw message, decoding the
// message-type prefix and, for encrypted messages, the request-type byte
// and the 4-byte ephemeral id that follow it.
type InboundFrame struct {
	Connect     bool   // true iff this is the unencrypted Connect message
	ReqType     byte   // valid only when !Connect; mirrors the tag inside the ciphertext
	EphemeralID uint32 // cache hint, valid only when !Connect
	Body        []byte // 65-byte client pubkey (Connect) or 1728-byte ciphertext
}

// ParseOuter splits a raw transport message into an InboundFrame using the
// one-byte message-type prefix: MsgTypeConnect (0x01) or MsgTypeEncrypted
// (0x02).
func ParseOuter(raw []byte) (InboundFrame, error) {
	if len(raw) < 1 {
		return InboundFrame{}, fmt.Errorf("wire: empty message")
	}
	switch raw[0] {
	case types.MsgTypeConnect:
		if len(raw) != 1+65 {
			return InboundFrame{}, fmt.Errorf("wire: connect message: want %d bytes, got %d", 1+65, len(raw))
		}
		return InboundFrame{Connect: true, Body: raw[1:]}, nil

	case types.MsgTypeEncrypted:
		const headerLen = 1 + 1 + 4
		if len(raw) != headerLen+types.EncryptedFrameSize {
			return InboundFrame{}, fmt.Errorf("wire: encrypted message: want %d bytes, got %d", headerLen+types.EncryptedFrameSize, len(raw))
		}
		return InboundFrame{
			ReqType:     raw[1],
			EphemeralID: binary.BigEndian.Uint32(raw[2:6]),
			Body:        raw[headerLen:],
		}, nil

	default:
		return InboundFrame{}, fmt.Errorf("wire: unknown message type 0x%02x", raw[0])
	}
}

// BuildOuter assembles the transport-level bytes for an encrypted response:
// a one-byte message-type prefix (OuterRespMsgType) followed by the
// already-encrypted, 1728-byte frame.
func BuildOuter(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) != types.EncryptedFrameSize {
		return nil, fmt.Errorf("wire: outbound frame must be %d bytes, got %d", types.EncryptedFrameSize, len(ciphertext))
	}
	out := make([]byte, 0, 1+len(ciphertext))
	out = append(out, types.OuterRespMsgType)
	out = append(out, ciphertext...)
	return out, nil
}

// BuildResponseFrame assembles the full outer response envelope:
// msg_type(1, always 0x00) | response_code(1) | reserved(2, zero) |
// data_length(u32 BE) | data. On an error response (any code other than
// success), callers pass nil data, producing a zero-length payload.
func BuildResponseFrame(code types.ResponseCode, data []byte) []byte {
	out := make([]byte, 1+1+2+4+len(data))
	out[0] = types.OuterRespMsgType
	out[1] = byte(code)
	// out[2:4] (reserved) stay zero.
	binary.BigEndian.PutUint32(out[4:8], uint32(len(data)))
	copy(out[8:], data)
	return out
}
