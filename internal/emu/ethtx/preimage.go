// Package ethtx reconstructs the Ethereum transaction signing preimage
// (RLP-encoded legacy or EIP-2718 typed payload) from the fields the
// request parser decoded, for the four supported tx-type bytes.
package ethtx

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"github.com/arcsign/hsmemu/internal/emu/types"
)

// Meta carries the fixed-offset fields decoded from an
// ETHEREUM_TRANSACTION request, independent of how much of the data
// region arrived (single frame vs. multipart).
type Meta struct {
	EIP155         bool
	ChainID        *big.Int
	Path           types.Path
	Nonce          uint64
	GasPrice       *big.Int
	GasTipCap      *big.Int // maxPriorityFeePerGas
	GasFeeCap      *big.Int // maxFeePerGas
	GasLimit       uint64
	To             common.Address
	HasTo          bool
	Value          *big.Int
	Prehash        bool
	TxType         uint8
	Data           []byte
	Authorizations []Authorization
}

// Authorization is one EIP-7702 authorization-list entry:
// (chain_id, address, nonce, y_parity, r, s) — only the fields that feed
// the signing preimage are kept.
type Authorization struct {
	ChainID *big.Int
	Address common.Address
	Nonce   uint64
}

// Digest returns the 32-byte signing hash for meta, building the right
// go-ethereum transaction envelope per TxType and hashing it the way
// go-ethereum's typed signers do (Keccak256 of the RLP payload, prefixed
// by the tx-type byte for types 1/2/4).
func Digest(meta *Meta) ([32]byte, error) {
	tx, err := buildTransaction(meta)
	if err != nil {
		return [32]byte{}, err
	}

	signer := signerFor(meta)
	return signer.Hash(tx), nil
}

func buildTransaction(meta *Meta) (*ethtypes.Transaction, error) {
	var to *common.Address
	if meta.HasTo {
		addr := meta.To
		to = &addr
	}

	switch meta.TxType {
	case types.EthTxLegacy:
		return ethtypes.NewTx(&ethtypes.LegacyTx{
			Nonce:    meta.Nonce,
			GasPrice: meta.GasPrice,
			Gas:      meta.GasLimit,
			To:       to,
			Value:    meta.Value,
			Data:     meta.Data,
		}), nil

	case types.EthTxEIP2930:
		return ethtypes.NewTx(&ethtypes.AccessListTx{
			ChainID:  meta.ChainID,
			Nonce:    meta.Nonce,
			GasPrice: meta.GasPrice,
			Gas:      meta.GasLimit,
			To:       to,
			Value:    meta.Value,
			Data:     meta.Data,
		}), nil

	case types.EthTxEIP1559:
		return ethtypes.NewTx(&ethtypes.DynamicFeeTx{
			ChainID:   meta.ChainID,
			Nonce:     meta.Nonce,
			GasTipCap: meta.GasTipCap,
			GasFeeCap: meta.GasFeeCap,
			Gas:       meta.GasLimit,
			To:        to,
			Value:     meta.Value,
			Data:      meta.Data,
		}), nil

	case types.EthTxEIP7702:
		authList := make([]ethtypes.SetCodeAuthorization, 0, len(meta.Authorizations))
		for _, auth := range meta.Authorizations {
			authList = append(authList, ethtypes.SetCodeAuthorization{
				ChainID: *uint256FromBig(auth.ChainID),
				Address: auth.Address,
				Nonce:   auth.Nonce,
			})
		}
		return ethtypes.NewTx(&ethtypes.SetCodeTx{
			ChainID:   uint256FromBig(meta.ChainID),
			Nonce:     meta.Nonce,
			GasTipCap: uint256FromBig(meta.GasTipCap),
			GasFeeCap: uint256FromBig(meta.GasFeeCap),
			Gas:       meta.GasLimit,
			To:        addressOrZero(to),
			Value:     uint256FromBig(meta.Value),
			Data:      meta.Data,
			AuthList:  authList,
		}), nil

	default:
		return nil, fmt.Errorf("ethtx: unsupported tx type %d", meta.TxType)
	}
}

func uint256FromBig(v *big.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return new(uint256.Int).SetAllOne()
	}
	return out
}

func signerFor(meta *Meta) ethtypes.Signer {
	chainID := meta.ChainID
	if chainID == nil {
		chainID = big.NewInt(1)
	}
	switch meta.TxType {
	case types.EthTxLegacy:
		if meta.EIP155 {
			return ethtypes.NewEIP155Signer(chainID)
		}
		return ethtypes.HomesteadSigner{}
	case types.EthTxEIP2930:
		return ethtypes.NewEIP2930Signer(chainID)
	case types.EthTxEIP1559:
		return ethtypes.NewLondonSigner(chainID)
	case types.EthTxEIP7702:
		return ethtypes.NewPragueSigner(chainID)
	default:
		return ethtypes.NewLondonSigner(chainID)
	}
}

func addressOrZero(a *common.Address) common.Address {
	if a == nil {
		return common.Address{}
	}
	return *a
}

// DecodeAuthorizationList decodes the EIP-7702 authorization list from its
// RLP encoding. Decoding is best-effort: malformed entries are skipped
// rather than aborting the signature.
func DecodeAuthorizationList(data []byte) []Authorization {
	var items []rlp.RawValue
	if err := rlp.DecodeBytes(data, &items); err != nil {
		return nil
	}

	out := make([]Authorization, 0, len(items))
	for _, item := range items {
		var t rlpAuthTuple
		if err := rlp.DecodeBytes(item, &t); err != nil {
			continue
		}
		out = append(out, Authorization{
			ChainID: t.ChainID,
			Address: t.Address,
			Nonce:   t.Nonce,
		})
	}
	return out
}

type rlpAuthTuple struct {
	ChainID *big.Int
	Address common.Address
	Nonce   uint64
	YParity uint64
	R       *big.Int
	S       *big.Int
}
