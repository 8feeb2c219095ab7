package reqparse

import (
	"encoding/binary"

	"github.com/arcsign/hsmemu/internal/emu/emuerr"
	"github.com/arcsign/hsmemu/internal/emu/types"
)

// BitcoinInput is one UTXO being spent: the path that derives its signing
// key, the previous outpoint it spends, and the value it carries (needed
// for segwit sighash construction).
type BitcoinInput struct {
	SignerPath types.Path
	PrevTxID   [32]byte
	PrevVout   uint32
	Value      uint64
}

// BitcoinSign is the UTXO-style payload for schema BITCOIN: an optional
// change path plus the set of inputs to sign.
type BitcoinSign struct {
	ChangePath types.Path
	HasChange  bool
	Inputs     []BitcoinInput
}

const pathWireSize = 1 + types.PathSegments*4 // depth byte + 5 BE u32 segments

func readPathBE(data []byte) types.Path {
	var p types.Path
	p.Depth = data[0]
	off := 1
	for i := 0; i < types.PathSegments; i++ {
		p.Segments[i] = binary.BigEndian.Uint32(data[off : off+4])
		off += 4
	}
	return p
}

func writePathBE(dst []byte, p types.Path) {
	dst[0] = p.Depth
	off := 1
	for i := 0; i < types.PathSegments; i++ {
		binary.BigEndian.PutUint32(dst[off:off+4], p.Segments[i])
		off += 4
	}
}

const bitcoinInputSize = pathWireSize + 32 + 4 + 8

// parseBitcoinSign parses: change_path(21) | input_count(u8) |
// input_count × [signer_path(21) | prev_txid(32) | prev_vout(u32 BE) |
// value(u64 BE)]. A change_path with depth 0 means "no change output".
func parseBitcoinSign(data []byte) (BitcoinSign, error) {
	if len(data) < pathWireSize+1 {
		return BitcoinSign{}, emuerr.InvalidMsgf("sign/bitcoin: want at least %d bytes, got %d", pathWireSize+1, len(data))
	}

	changePath := readPathBE(data[0:pathWireSize])
	off := pathWireSize
	count := int(data[off])
	off++

	want := off + count*bitcoinInputSize
	if len(data) < want {
		return BitcoinSign{}, emuerr.InvalidMsgf("sign/bitcoin: want at least %d bytes for %d inputs, got %d", want, count, len(data))
	}

	inputs := make([]BitcoinInput, 0, count)
	for i := 0; i < count; i++ {
		signerPath := readPathBE(data[off : off+pathWireSize])
		off += pathWireSize

		var txid [32]byte
		copy(txid[:], data[off:off+32])
		off += 32

		vout := binary.BigEndian.Uint32(data[off : off+4])
		off += 4

		value := binary.BigEndian.Uint64(data[off : off+8])
		off += 8

		inputs = append(inputs, BitcoinInput{
			SignerPath: signerPath,
			PrevTxID:   txid,
			PrevVout:   vout,
			Value:      value,
		})
	}

	return BitcoinSign{
		ChangePath: changePath,
		HasChange:  changePath.Depth > 0,
		Inputs:     inputs,
	}, nil
}
