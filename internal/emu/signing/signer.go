// Package signing implements the multipart session manager and the
// synchronous HD-derive → hash → sign → serialize pipeline the device
// state machine dispatches every completed Sign request to.
package signing

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/arcsign/hsmemu/internal/emu/curve"
	"github.com/arcsign/hsmemu/internal/emu/emuerr"
	"github.com/arcsign/hsmemu/internal/emu/ethtx"
	"github.com/arcsign/hsmemu/internal/emu/hd"
	"github.com/arcsign/hsmemu/internal/emu/respbuild"
	"github.com/arcsign/hsmemu/internal/emu/types"
)

// Request is everything the synchronous signer needs, already assembled
// by the device state machine from either a single-frame Sign request or
// a completed multipart session.
type Request struct {
	Schema     types.Schema
	Curve      types.Curve
	Encoding   types.Encoding
	HashType   types.HashType
	OmitPubkey bool
	Path       types.Path
	Data       []byte

	EthMeta     *ethtx.Meta // set for ETHEREUM_TRANSACTION/ERC20
	BitcoinSign *BitcoinInputs
}

// BitcoinInputs carries the UTXO set for schema BITCOIN. Only the first
// input is signed; the remaining signature slots in the response stay
// zero, consistent with single-input transactions.
type BitcoinInputs struct {
	ChangePKH []byte // 20 bytes, zero if unknown
	Inputs    []BitcoinInput
}

// BitcoinInput is one UTXO being spent.
type BitcoinInput struct {
	SignerPath types.Path
	PrevTxID   [32]byte
	PrevVout   uint32
	Value      uint64
}

// Execute runs the synchronous signer and returns the schema-specific
// response body (before frame-codec padding).
func Execute(seed []byte, req Request) ([]byte, error) {
	switch req.Schema {
	case types.SchemaBitcoin:
		return executeBitcoin(seed, req)
	case types.SchemaEthereumTransaction, types.SchemaEthereumERC20:
		return executeEthereumTransaction(seed, req)
	case types.SchemaEthereumMessage:
		return executeEthereumMessage(seed, req)
	default:
		return executeGeneric(seed, req)
	}
}

func applyHash(hashType types.HashType, data []byte) ([]byte, error) {
	switch hashType {
	case types.HashNone:
		if len(data) != 32 {
			return nil, emuerr.InvalidMsgf("signing: hash_type none requires a 32-byte digest, got %d", len(data))
		}
		return data, nil
	case types.HashKeccak256:
		h := crypto.Keccak256(data)
		return h, nil
	case types.HashSHA256:
		h := sha256.Sum256(data)
		return h[:], nil
	default:
		return nil, emuerr.InvalidMsgf("signing: unknown hash_type %d", hashType)
	}
}

func executeBitcoin(seed []byte, req Request) ([]byte, error) {
	if req.BitcoinSign == nil || len(req.BitcoinSign.Inputs) == 0 {
		return nil, emuerr.InvalidMsg("signing: bitcoin sign request has no inputs")
	}
	in := req.BitcoinSign.Inputs[0]

	extKey, err := hd.DeriveSecp256k1(seed, in.SignerPath)
	if err != nil {
		return nil, emuerr.Internal("signing: derive bitcoin key", err)
	}
	privKey, err := extKey.ECPrivKey()
	if err != nil {
		return nil, emuerr.Internal("signing: bitcoin private key", err)
	}

	digest := bitcoinInputDigest(in)
	sig, err := curve.SignSecp256k1(privKey.Serialize(), digest)
	if err != nil {
		return nil, emuerr.Internal("signing: bitcoin sign", err)
	}
	padded, err := curve.PadDER(sig.DER)
	if err != nil {
		return nil, emuerr.Internal("signing: pad bitcoin signature", err)
	}

	compressed, _ := curve.PublicKeyFromPrivate(privKey.Serialize())
	return respbuild.BuildBitcoinSignResponse(req.BitcoinSign.ChangePKH, padded, compressed)
}

// bitcoinInputDigest computes double-SHA256 over prev_txid || prev_vout(u32
// BE) || value(u64 BE), a single-input digest standing in for the full
// BIP143 witness preimage the real counterparty computes.
func bitcoinInputDigest(in BitcoinInput) []byte {
	buf := make([]byte, 32+4+8)
	copy(buf[0:32], in.PrevTxID[:])
	binary.BigEndian.PutUint32(buf[32:36], in.PrevVout)
	binary.BigEndian.PutUint64(buf[36:44], in.Value)
	first := sha256.Sum256(buf)
	second := sha256.Sum256(first[:])
	return second[:]
}

func executeEthereumTransaction(seed []byte, req Request) ([]byte, error) {
	if req.EthMeta == nil {
		return nil, emuerr.InvalidMsg("signing: ethereum transaction sign request missing metadata")
	}

	extKey, err := hd.DeriveSecp256k1(seed, req.EthMeta.Path)
	if err != nil {
		return nil, emuerr.Internal("signing: derive ethereum key", err)
	}
	privKey, err := extKey.ECPrivKey()
	if err != nil {
		return nil, emuerr.Internal("signing: ethereum private key", err)
	}

	var digest [32]byte
	if req.EthMeta.Prehash {
		if len(req.Data) != 32 {
			return nil, emuerr.InvalidMsg("signing: prehashed ethereum transaction requires a 32-byte hash")
		}
		copy(digest[:], req.Data)
	} else {
		req.EthMeta.Data = req.Data
		if req.EthMeta.TxType == types.EthTxEIP7702 {
			// The authorization list rides in the data region, which may
			// have been reassembled from multipart chunks after the header
			// was parsed.
			req.EthMeta.Authorizations = ethtx.DecodeAuthorizationList(req.Data)
		}
		digest, err = ethtx.Digest(req.EthMeta)
		if err != nil {
			return nil, emuerr.Internal("signing: build ethereum preimage", err)
		}
	}

	sig, err := curve.SignSecp256k1(privKey.Serialize(), digest[:])
	if err != nil {
		return nil, emuerr.Internal("signing: ethereum sign", err)
	}
	padded, err := curve.PadDER(sig.DER)
	if err != nil {
		return nil, emuerr.Internal("signing: pad ethereum signature", err)
	}

	_, uncompressed := curve.PublicKeyFromPrivate(privKey.Serialize())
	var signer [20]byte
	addr := crypto.Keccak256(uncompressed[1:])[12:]
	copy(signer[:], addr)

	return respbuild.BuildEthereumSignResponse(padded, signer)
}

func executeEthereumMessage(seed []byte, req Request) ([]byte, error) {
	extKey, err := hd.DeriveSecp256k1(seed, req.Path)
	if err != nil {
		return nil, emuerr.Internal("signing: derive ethereum key", err)
	}
	privKey, err := extKey.ECPrivKey()
	if err != nil {
		return nil, emuerr.Internal("signing: ethereum private key", err)
	}

	digest, err := applyHash(req.HashType, req.Data)
	if err != nil {
		return nil, err
	}

	sig, err := curve.SignSecp256k1(privKey.Serialize(), digest)
	if err != nil {
		return nil, emuerr.Internal("signing: ethereum message sign", err)
	}
	padded, err := curve.PadDER(sig.DER)
	if err != nil {
		return nil, emuerr.Internal("signing: pad ethereum message signature", err)
	}

	_, uncompressed := curve.PublicKeyFromPrivate(privKey.Serialize())
	var signer [20]byte
	addr := crypto.Keccak256(uncompressed[1:])[12:]
	copy(signer[:], addr)

	return respbuild.BuildEthereumSignResponse(padded, signer)
}

func executeGeneric(seed []byte, req Request) ([]byte, error) {
	switch req.Curve {
	case types.CurveSecp256k1:
		return executeGenericSecp256k1(seed, req)
	case types.CurveEd25519:
		return executeGenericEd25519(seed, req)
	case types.CurveBLS12_381:
		return executeGenericBLS(seed, req)
	default:
		return nil, emuerr.InvalidMsgf("signing: unknown curve %d", req.Curve)
	}
}

func executeGenericSecp256k1(seed []byte, req Request) ([]byte, error) {
	extKey, err := hd.DeriveSecp256k1(seed, req.Path)
	if err != nil {
		return nil, emuerr.Internal("signing: derive secp256k1 key", err)
	}
	privKey, err := extKey.ECPrivKey()
	if err != nil {
		return nil, emuerr.Internal("signing: secp256k1 private key", err)
	}

	digest, err := applyHash(req.HashType, req.Data)
	if err != nil {
		return nil, err
	}

	sig, err := curve.SignSecp256k1(privKey.Serialize(), digest)
	if err != nil {
		return nil, emuerr.Internal("signing: generic secp256k1 sign", err)
	}
	padded, err := curve.PadDER(sig.DER)
	if err != nil {
		return nil, emuerr.Internal("signing: pad generic secp256k1 signature", err)
	}

	_, uncompressed := curve.PublicKeyFromPrivate(privKey.Serialize())

	var prehash []byte
	if req.HashType != types.HashNone {
		prehash = digest
	}
	return respbuild.BuildGenericSecp256k1Response(uncompressed, req.OmitPubkey, padded, prehash)
}

func executeGenericEd25519(seed []byte, req Request) ([]byte, error) {
	pub, priv, err := hd.DeriveEd25519(seed, req.Path)
	if err != nil {
		return nil, emuerr.Internal("signing: derive ed25519 key", err)
	}

	sig, err := curve.SignEd25519(priv, req.Data)
	if err != nil {
		return nil, emuerr.Internal("signing: ed25519 sign", err)
	}

	return respbuild.BuildGenericEd25519Response(pub, sig)
}

func executeGenericBLS(seed []byte, req Request) ([]byte, error) {
	sk, err := hd.DeriveBLS(seed, req.Path)
	if err != nil {
		return nil, emuerr.Internal("signing: derive BLS key", err)
	}

	sig, pub := curve.SignBLS(sk, req.Data)
	return respbuild.BuildGenericBLSResponse(pub, sig)
}
