package device

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcutil"
	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/arcsign/hsmemu/internal/emu/approval"
	"github.com/arcsign/hsmemu/internal/emu/emuerr"
	"github.com/arcsign/hsmemu/internal/emu/ethtx"
	"github.com/arcsign/hsmemu/internal/emu/hd"
	"github.com/arcsign/hsmemu/internal/emu/reqparse"
	"github.com/arcsign/hsmemu/internal/emu/respbuild"
	"github.com/arcsign/hsmemu/internal/emu/signing"
	"github.com/arcsign/hsmemu/internal/emu/types"
)

// signLocked dispatches the parsed Sign envelope to its schema-specific
// sub-handler. A request whose envelope carries
// has_extra_payloads opens or continues a multipart session instead of
// signing synchronously.
func (d *Device) signLocked(body []byte) ([]byte, error) {
	env, err := reqparse.ParseSign(body)
	if err != nil {
		return nil, err
	}

	switch {
	case env.Extra != nil:
		return d.continueMultipartLocked(env.Extra)
	case env.Bitcoin != nil:
		return d.signBitcoinLocked(env.Bitcoin)
	case env.EthTx != nil:
		return d.signEthTxLocked(env.Schema, env.EthTx, env.HasExtraPayloads)
	case env.EthMsg != nil:
		return d.signEthMsgLocked(env.EthMsg, env.HasExtraPayloads)
	case env.Generic != nil:
		return d.signGenericLocked(env.Generic, env.HasExtraPayloads)
	default:
		return nil, emuerr.InvalidMsg("sign: empty envelope")
	}
}

func (d *Device) signBitcoinLocked(sub *reqparse.BitcoinSign) ([]byte, error) {
	if len(sub.Inputs) == 0 {
		return nil, emuerr.InvalidMsg("sign/bitcoin: no inputs")
	}

	var changePKH []byte
	if sub.HasChange {
		pkh, err := d.deriveBitcoinPKH(sub.ChangePath)
		if err != nil {
			return nil, emuerr.Internal("sign/bitcoin: derive change pkh", err)
		}
		changePKH = pkh
	}

	inputs := make([]signing.BitcoinInput, len(sub.Inputs))
	for i, in := range sub.Inputs {
		inputs[i] = signing.BitcoinInput{
			SignerPath: in.SignerPath,
			PrevTxID:   in.PrevTxID,
			PrevVout:   in.PrevVout,
			Value:      in.Value,
		}
	}

	req := signing.Request{
		Schema: types.SchemaBitcoin,
		Path:   sub.Inputs[0].SignerPath,
		BitcoinSign: &signing.BitcoinInputs{
			ChangePKH: changePKH,
			Inputs:    inputs,
		},
	}
	if err := d.waitForApprovalOn(req, sub.Inputs[0].PrevTxID[:]); err != nil {
		return nil, err
	}
	return signing.Execute(d.seed, req)
}

func (d *Device) deriveBitcoinPKH(path types.Path) ([]byte, error) {
	extKey, err := hd.DeriveSecp256k1(d.seed, path)
	if err != nil {
		return nil, err
	}
	pub, err := extKey.ECPubKey()
	if err != nil {
		return nil, err
	}
	return btcutil.Hash160(pub.SerializeCompressed()), nil
}

func (d *Device) signEthTxLocked(schema types.Schema, sub *reqparse.EthereumTransactionSign, multipart bool) ([]byte, error) {
	meta := ethMetaFromSign(sub)

	if multipart {
		session := &signing.MultipartSession{
			Schema:         schema,
			Path:           sub.Path,
			ExpectedLength: int(sub.DeclaredDataLen),
			EthMeta:        meta,
		}
		return d.createMultipartLocked(session, sub.Data)
	}

	req := signing.Request{Schema: schema, Path: sub.Path, Data: sub.Data, EthMeta: meta}
	if err := d.waitForApprovalOn(req, sub.Data); err != nil {
		return nil, err
	}
	return signing.Execute(d.seed, req)
}

func ethMetaFromSign(sub *reqparse.EthereumTransactionSign) *ethtx.Meta {
	meta := &ethtx.Meta{
		EIP155:    sub.EIP155,
		ChainID:   sub.ChainID,
		Path:      sub.Path,
		Nonce:     sub.Nonce,
		GasLimit:  sub.GasLimit,
		HasTo:     sub.HasTo,
		To:        ethcommon.Address(sub.To),
		Value:     sub.Value,
		Prehash:   sub.Prehashed,
		TxType:    sub.TxType,
	}
	switch sub.TxType {
	case types.EthTxEIP1559, types.EthTxEIP7702:
		meta.GasFeeCap = sub.GasPrice
		meta.GasTipCap = sub.MaxPriorityFee
	default:
		meta.GasPrice = sub.GasPrice
	}
	return meta
}

// ethMessageHashType maps the wire's (protocol, prehashed) pair onto the
// signer pipeline's HashType: a prehashed message arrives as a 32-byte
// digest and needs no further hashing, while a fresh personal_sign or
// typed_data payload is Keccak-256 hashed. Clients send typed data
// already encoded, so the payload is an opaque hash input either way and
// no EIP-712 structured hashing happens here.
func ethMessageHashType(sub *reqparse.EthereumMessageSign) types.HashType {
	if sub.Prehashed {
		return types.HashNone
	}
	return types.HashKeccak256
}

func (d *Device) signEthMsgLocked(sub *reqparse.EthereumMessageSign, multipart bool) ([]byte, error) {
	if len(sub.Data) == 0 {
		return nil, emuerr.InvalidMsg("sign/ethMsg: empty data")
	}
	hashType := ethMessageHashType(sub)

	if multipart {
		session := &signing.MultipartSession{
			Schema:         types.SchemaEthereumMessage,
			Path:           sub.Path,
			HashType:       hashType,
			ExpectedLength: int(sub.DeclaredLen),
		}
		return d.createMultipartLocked(session, sub.Data)
	}

	req := signing.Request{Schema: types.SchemaEthereumMessage, Path: sub.Path, HashType: hashType, Data: sub.Data}
	if err := d.waitForApprovalOn(req, sub.Data); err != nil {
		return nil, err
	}
	return signing.Execute(d.seed, req)
}

func (d *Device) signGenericLocked(sub *reqparse.GenericSign, multipart bool) ([]byte, error) {
	if sub.Curve == types.CurveBLS12_381 {
		if err := d.requireFirmware(types.FirmwareBLS12_381, "bls12_381 signing"); err != nil {
			return nil, err
		}
	}
	if len(sub.Data) == 0 {
		return nil, emuerr.InvalidMsg("sign/generic: empty data")
	}
	if multipart {
		session := &signing.MultipartSession{
			Schema:         types.SchemaGeneric,
			Curve:          sub.Curve,
			Encoding:       sub.Encoding,
			HashType:       sub.HashType,
			OmitPubkey:     sub.OmitPubkey,
			Path:           sub.Path,
			ExpectedLength: int(sub.Length),
		}
		return d.createMultipartLocked(session, sub.Data)
	}

	req := signing.Request{
		Schema:     types.SchemaGeneric,
		Curve:      sub.Curve,
		Encoding:   sub.Encoding,
		HashType:   sub.HashType,
		OmitPubkey: sub.OmitPubkey,
		Path:       sub.Path,
		Data:       sub.Data,
	}
	if err := d.waitForApprovalOn(req, sub.Data); err != nil {
		return nil, err
	}
	return signing.Execute(d.seed, req)
}

// createMultipartLocked folds the initial chunk into a freshly built
// session, finalizing immediately if that chunk already satisfies
// ExpectedLength (a client that sets has_extra_payloads speculatively but
// sends everything in one frame), otherwise registering the session and
// answering with its next_code.
func (d *Device) createMultipartLocked(session *signing.MultipartSession, initialChunk []byte) ([]byte, error) {
	session.AppendChunk(initialChunk)
	if session.CollectedLength >= session.ExpectedLength {
		return d.finalizeMultipartLocked(session)
	}

	code, err := d.multipart.Create(session)
	if err != nil {
		return nil, emuerr.Internal("sign: create multipart session", err)
	}
	return respbuild.BuildNextCodeResponse(code), nil
}

// continueMultipartLocked implements the EXTRA_DATA sign schema: it
// appends the next chunk to the session named by next_code and either
// finalizes or reissues a fresh next_code.
func (d *Device) continueMultipartLocked(extra *reqparse.ExtraDataSign) ([]byte, error) {
	session, ok := d.multipart.Take(extra.NextCode)
	if !ok {
		return nil, emuerr.InvalidMsg("sign: unknown or expired next_code")
	}

	session.AppendChunk(extra.Frame)
	if session.CollectedLength >= session.ExpectedLength {
		return d.finalizeMultipartLocked(session)
	}

	code, err := d.multipart.Reinsert(session)
	if err != nil {
		return nil, emuerr.Internal("sign: reinsert multipart session", err)
	}
	return respbuild.BuildNextCodeResponse(code), nil
}

func (d *Device) finalizeMultipartLocked(session *signing.MultipartSession) ([]byte, error) {
	data := session.FullData()
	req := signing.Request{
		Schema:     session.Schema,
		Curve:      session.Curve,
		Encoding:   session.Encoding,
		HashType:   session.HashType,
		OmitPubkey: session.OmitPubkey,
		Path:       session.Path,
		Data:       data,
		EthMeta:    session.EthMeta,
	}
	if err := d.waitForApprovalOn(req, data); err != nil {
		return nil, err
	}
	return signing.Execute(d.seed, req)
}

// waitForApprovalOn builds the approval-sink prompt for req and blocks on
// waitForApproval; approvalData is hashed for display and need not equal
// req.Data exactly (e.g. Bitcoin passes the spent outpoint instead).
func (d *Device) waitForApprovalOn(req signing.Request, approvalData []byte) error {
	sreq := approval.SigningRequest{
		ID:       d.nextSignID(),
		Path:     req.Path.String(),
		Schema:   uint8(req.Schema),
		DataHash: sha256.Sum256(approvalData),
	}
	return d.waitForApproval(sreq)
}
