package reqparse

import (
	"encoding/binary"
	"math/big"

	"github.com/arcsign/hsmemu/internal/emu/emuerr"
	"github.com/arcsign/hsmemu/internal/emu/types"
)

// EthereumTransactionSign is the fixed-offset struct for schemas
// ETHEREUM_TRANSACTION and ETHEREUM_ERC20.
type EthereumTransactionSign struct {
	EIP155            bool
	ChainID           *big.Int
	Path              types.Path
	Nonce             uint64
	GasPrice          *big.Int // gasPrice (legacy/2930) or maxFeePerGas (1559/7702)
	GasLimit          uint64
	HasTo             bool
	To                [20]byte
	Value             *big.Int
	Prehashed         bool
	TxType            uint8
	MaxPriorityFee    *big.Int
	DeclaredDataLen   uint32
	ExtendedChainID   *big.Int // nil unless the wire carried one
	Data              []byte   // the data region chunk present in this frame
}

const ethTxHeadSize = 1 + 4 + pathWireSize + 8 + 8 + 8 + 1 + 20 + 32 + 1 + 1 + 8 + 4 + 1

// parseEthereumTransactionSign parses the fixed-offset Ethereum transaction
// struct. hasExtraPayloads comes from the Sign envelope: when false and the
// declared data length exceeds what actually arrived, the remaining bytes
// are the Keccak-256 prehash of the real payload rather than a truncated
// data chunk.
func parseEthereumTransactionSign(data []byte, hasExtraPayloads bool) (EthereumTransactionSign, error) {
	if len(data) < ethTxHeadSize {
		return EthereumTransactionSign{}, emuerr.InvalidMsgf("sign/ethTx: want at least %d bytes, got %d", ethTxHeadSize, len(data))
	}

	off := 0
	eip155 := data[off] != 0
	off++

	chainID := new(big.Int).SetBytes(data[off : off+4])
	off += 4

	path := readPathBE(data[off : off+pathWireSize])
	off += pathWireSize

	nonce := binary.BigEndian.Uint64(data[off : off+8])
	off += 8

	gasPrice := new(big.Int).SetBytes(data[off : off+8])
	off += 8

	gasLimit := binary.BigEndian.Uint64(data[off : off+8])
	off += 8

	hasTo := data[off] != 0
	off++

	var to [20]byte
	copy(to[:], data[off:off+20])
	off += 20

	value := new(big.Int).SetBytes(data[off : off+32])
	off += 32

	prehashFlag := data[off] != 0
	off++

	txType := data[off]
	off++

	maxPriorityFee := new(big.Int).SetBytes(data[off : off+8])
	off += 8

	declaredLen := binary.BigEndian.Uint32(data[off : off+4])
	off += 4

	hasExtendedChainID := data[off] != 0
	off++

	var extendedChainID *big.Int
	if hasExtendedChainID {
		if len(data) < off+4 {
			return EthereumTransactionSign{}, emuerr.InvalidMsgf("sign/ethTx: truncated extended chain id")
		}
		extendedChainID = new(big.Int).SetBytes(data[off : off+4])
		chainID = extendedChainID
		off += 4
	}

	available := len(data) - off
	prehashed := prehashFlag

	var chunk []byte
	if !hasExtraPayloads && int(declaredLen) > available {
		// The counterparty sent only the 32-byte Keccak-256 of the real
		// payload; the rest of the region is padding.
		if available < 32 {
			return EthereumTransactionSign{}, emuerr.InvalidMsgf("sign/ethTx: truncated prehash, %d bytes available", available)
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

	return EthereumTransactionSign{
		EIP155:          eip155,
		ChainID:         chainID,
		Path:            path,
		Nonce:           nonce,
		GasPrice:        gasPrice,
		GasLimit:        gasLimit,
		HasTo:           hasTo,
		To:              to,
		Value:           value,
		Prehashed:       prehashed,
		TxType:          txType,
		MaxPriorityFee:  maxPriorityFee,
		DeclaredDataLen: declaredLen,
		ExtendedChainID: extendedChainID,
		Data:            chunk,
	}, nil
}
