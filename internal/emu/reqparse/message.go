package reqparse

import (
	"encoding/binary"

	"github.com/arcsign/hsmemu/internal/emu/emuerr"
	"github.com/arcsign/hsmemu/internal/emu/types"
)

// EthereumMessageProtocol selects the message-signing flavor.
type EthereumMessageProtocol uint8

const (
	ProtocolPersonalSign EthereumMessageProtocol = 0
	ProtocolTypedData    EthereumMessageProtocol = 1
)

// EthereumMessageSign is the payload for schema ETHEREUM_MESSAGE.
type EthereumMessageSign struct {
	Protocol        EthereumMessageProtocol
	Path            types.Path
	DisplayHex      bool // meaningful only for ProtocolPersonalSign
	DeclaredLen     uint32
	Prehashed       bool
	Data            []byte
}

// parseEthereumMessageSign parses protocol(u8) | path(21) |
// [display_hex(u8) iff protocol == personal_sign] | length(u32 BE) | chunk.
// The same prehash rule as Ethereum transactions applies: when the frame
// isn't multipart and the declared length exceeds what arrived, the chunk
// is the Keccak-256 prehash rather than a truncated message.
func parseEthereumMessageSign(data []byte, hasExtraPayloads bool) (EthereumMessageSign, error) {
	if len(data) < 1+pathWireSize {
		return EthereumMessageSign{}, emuerr.InvalidMsgf("sign/ethMsg: want at least %d bytes, got %d", 1+pathWireSize, len(data))
	}

	off := 0
	protocol := EthereumMessageProtocol(data[off])
	off++

	path := readPathBE(data[off : off+pathWireSize])
	off += pathWireSize

	var displayHex bool
	if protocol == ProtocolPersonalSign {
		if len(data) < off+1 {
			return EthereumMessageSign{}, emuerr.InvalidMsgf("sign/ethMsg: truncated display_hex byte")
		}
		displayHex = data[off] != 0
		off++
	}

	if len(data) < off+4 {
		return EthereumMessageSign{}, emuerr.InvalidMsgf("sign/ethMsg: truncated length field")
	}
	declaredLen := binary.BigEndian.Uint32(data[off : off+4])
	off += 4

	available := len(data) - off
	var prehashed bool
	var chunk []byte
	if !hasExtraPayloads && int(declaredLen) > available {
		// Same prehash rule as transactions: only the 32-byte digest arrived.
		if available < 32 {
			return EthereumMessageSign{}, emuerr.InvalidMsgf("sign/ethMsg: truncated prehash, %d bytes available", available)
		}
		prehashed = true
		chunk = make([]byte, 32)
		copy(chunk, data[off:off+32])
	} else {
		n := int(declaredLen)
		if n > available {
			n = available
		}
		chunk = make([]byte, n)
		copy(chunk, data[off:off+n])
	}

	return EthereumMessageSign{
		Protocol:    protocol,
		Path:        path,
		DisplayHex:  displayHex,
		DeclaredLen: declaredLen,
		Prehashed:   prehashed,
		Data:        chunk,
	}, nil
}
