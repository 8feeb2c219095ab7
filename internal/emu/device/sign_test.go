package device

import (
	"encoding/binary"
	"math/big"
	"testing"

	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	ethcommon "github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcsign/hsmemu/internal/emu/hd"
	"github.com/arcsign/hsmemu/internal/emu/types"
)

// buildEthTxSignPayload lays out the fixed-offset Ethereum transaction
// struct the way reqparse.parseEthereumTransactionSign reads it.
func buildEthTxSignPayload(t *testing.T, chainID uint32, path types.Path, nonce, gasPrice, gasLimit uint64, to [20]byte, value *big.Int, txType uint8, data []byte) []byte {
	t.Helper()
	out := make([]byte, 1+4+21+8+8+8+1+20+32+1+1+8+4+1+len(data))
	off := 0
	out[off] = 1 // eip155
	off++
	binary.BigEndian.PutUint32(out[off:off+4], chainID)
	off += 4
	writePathBE21(out[off:off+21], path)
	off += 21
	binary.BigEndian.PutUint64(out[off:off+8], nonce)
	off += 8
	binary.BigEndian.PutUint64(out[off:off+8], gasPrice)
	off += 8
	binary.BigEndian.PutUint64(out[off:off+8], gasLimit)
	off += 8
	out[off] = 1 // has_to
	off++
	copy(out[off:off+20], to[:])
	off += 20
	value.FillBytes(out[off : off+32])
	off += 32
	out[off] = 0 // prehash
	off++
	out[off] = txType
	off++
	// max_priority_fee stays zero for legacy
	off += 8
	binary.BigEndian.PutUint32(out[off:off+4], uint32(len(data)))
	off += 4
	out[off] = 0 // has_extended_chain_id
	off++
	copy(out[off:], data)
	return out
}

// The BIP-39 "abandon ... about" seed at m/44'/60'/0'/0/0 derives the
// well-known address 0x9858EfFD232B4033E47d90003D41EC34EcaEda94; the
// response's signer field must match it and the DER signature must verify
// under the derived public key.
func TestSignEthereumLegacyTransaction(t *testing.T) {
	seed := testSeed(t)
	cfg := DefaultConfig()
	d, c := pairedDevice(t, cfg, seed)

	path := types.Path{
		Depth:    5,
		Segments: [5]uint32{types.HardenedOffset + 44, types.HardenedOffset + 60, types.HardenedOffset, 0, 0},
	}
	to := [20]byte{0xde, 0xad, 0xbe, 0xef}

	body := buildSignEnvelope(t, types.SchemaEthereumTransaction,
		buildEthTxSignPayload(t, 1, path, 0, 1, 21000, to, big.NewInt(0), types.EthTxLegacy, nil))
	payload, err := c.send(d, types.ReqSign, body)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(payload), 94)

	derPadded := payload[0:74]
	signer := payload[74:94]

	want := ethcommon.HexToAddress("0x9858EfFD232B4033E47d90003D41EC34EcaEda94")
	assert.Equal(t, want.Bytes(), signer)

	toAddr := ethcommon.Address(to)
	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    0,
		GasPrice: big.NewInt(1),
		Gas:      21000,
		To:       &toAddr,
		Value:    big.NewInt(0),
	})
	digest := ethtypes.NewEIP155Signer(big.NewInt(1)).Hash(tx)

	der := derPadded[:2+int(derPadded[1])]
	sig, err := btcecdsa.ParseDERSignature(der)
	require.NoError(t, err)

	extKey, err := hd.DeriveSecp256k1(seed, path)
	require.NoError(t, err)
	pub, err := extKey.ECPubKey()
	require.NoError(t, err)
	assert.True(t, sig.Verify(digest[:], pub))
}

func TestSignGenericEmptyDataRejected(t *testing.T) {
	seed := testSeed(t)
	cfg := DefaultConfig()
	d, c := pairedDevice(t, cfg, seed)

	path := types.Path{Depth: 2, Segments: [5]uint32{types.HardenedOffset + 44, types.HardenedOffset + 501}}
	body := buildSignEnvelope(t, types.SchemaGeneric,
		buildGenericSignPayload(t, types.EncodingSolana, types.HashNone, types.CurveEd25519, path, false, nil))

	_, err := c.send(d, types.ReqSign, body)
	require.Error(t, err)
	assert.Equal(t, respCodeError(types.RespInvalidMsg), err)
}

func TestMultipartUnknownNextCodeLeavesSessionsIntact(t *testing.T) {
	seed := testSeed(t)
	cfg := DefaultConfig()
	d, c := pairedDevice(t, cfg, seed)

	path := types.Path{
		Depth:    5,
		Segments: [5]uint32{types.HardenedOffset + 44, types.HardenedOffset + 501, types.HardenedOffset, types.HardenedOffset, types.HardenedOffset},
	}

	full := make([]byte, 2048)
	for i := range full {
		full[i] = byte(i)
	}
	firstChunkLen := 1519

	genericHead := buildGenericSignPayload(t, types.EncodingSolana, types.HashNone, types.CurveEd25519, path, false, full[:firstChunkLen])
	binary.LittleEndian.PutUint16(genericHead[28:30], uint16(len(full)))
	body := buildSignEnvelope(t, types.SchemaGeneric, genericHead)
	body[0] = 1 // has_extra_payloads

	payload, err := c.send(d, types.ReqSign, body)
	require.NoError(t, err)
	require.Len(t, payload, 8)
	nextCode := append([]byte(nil), payload...)
	require.Equal(t, 1, d.multipart.Len())

	bogus := []byte{9, 9, 9, 9, 9, 9, 9, 9}
	_, err = c.continueMultipart(d, bogus, full[firstChunkLen:], true)
	require.Error(t, err)
	assert.Equal(t, respCodeError(types.RespInvalidMsg), err)
	assert.Equal(t, 1, d.multipart.Len())

	final, err := c.continueMultipart(d, nextCode, full[firstChunkLen:], true)
	require.NoError(t, err)
	require.Len(t, final, 96)
	assert.Equal(t, 0, d.multipart.Len())
}

func TestResetIsIdempotentAndClearsState(t *testing.T) {
	seed := testSeed(t)
	cfg := DefaultConfig()
	d, c := pairedDevice(t, cfg, seed)

	d.Reset()
	d.Reset()

	assert.False(t, d.Paired())
	assert.False(t, d.PairingMode())
	assert.Equal(t, 0, d.multipart.Len())

	// The session is gone, so any encrypted request fails pairing.
	_, err := c.send(d, types.ReqGetWallets, nil)
	require.Error(t, err)
	assert.Equal(t, respCodeError(types.RespPairFailed), err)
}

func TestGetKvRecordsCountBounds(t *testing.T) {
	seed := testSeed(t)
	cfg := DefaultConfig()
	d, c := pairedDevice(t, cfg, seed)

	for _, n := range []byte{0, 11} {
		body := make([]byte, 9)
		body[4] = n
		_, err := c.send(d, types.ReqGetKvRecords, body)
		require.Error(t, err, "n=%d", n)
		assert.Equal(t, respCodeError(types.RespInvalidMsg), err)
	}
}

func TestSnapshotRestoreStateSkipsPairing(t *testing.T) {
	seed := testSeed(t)
	cfg := DefaultConfig()
	d, _ := pairedDevice(t, cfg, seed)
	snap := d.SnapshotState()
	require.True(t, snap.Paired)

	cfg2 := DefaultConfig()
	cfg2.AutoApprove = true
	restored := newTestDevice(t, cfg2, seed, nil)
	restored.RestoreState(snap)
	require.True(t, restored.Paired())

	// A restored paired device connects without re-entering pairing mode.
	c := newTestClient(t)
	alreadyPaired := c.connect(restored)
	assert.True(t, alreadyPaired)
	assert.False(t, restored.PairingMode())

	_, err := c.send(restored, types.ReqGetWallets, nil)
	require.NoError(t, err)
}

func TestUnpairedEncryptedRequestFails(t *testing.T) {
	seed := testSeed(t)
	cfg := DefaultConfig()
	cfg.AutoApprove = true
	d := newTestDevice(t, cfg, seed, nil)
	c := newTestClient(t)
	c.connect(d)

	// Connected but never finalized pairing: everything except
	// FinalizePairing must be refused.
	_, err := c.send(d, types.ReqGetWallets, nil)
	require.Error(t, err)
	assert.Equal(t, respCodeError(types.RespPairFailed), err)
}
