package ethtx

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcsign/hsmemu/internal/emu/types"
)

func baseMeta(txType uint8) *Meta {
	return &Meta{
		EIP155:    true,
		ChainID:   big.NewInt(1),
		Nonce:     7,
		GasPrice:  big.NewInt(1_000_000_000),
		GasTipCap: big.NewInt(2),
		GasFeeCap: big.NewInt(100),
		GasLimit:  21000,
		HasTo:     true,
		To:        common.HexToAddress("0x000000000000000000000000000000000000dEaD"),
		Value:     big.NewInt(42),
		TxType:    txType,
	}
}

func TestDigestMatchesGethSignerPerType(t *testing.T) {
	for _, txType := range []uint8{types.EthTxLegacy, types.EthTxEIP2930, types.EthTxEIP1559, types.EthTxEIP7702} {
		meta := baseMeta(txType)
		digest, err := Digest(meta)
		require.NoError(t, err, "tx type %d", txType)

		tx, err := buildTransaction(meta)
		require.NoError(t, err)
		want := signerFor(meta).Hash(tx)
		assert.Equal(t, want, common.Hash(digest), "tx type %d", txType)
		assert.EqualValues(t, txType, tx.Type())
	}
}

func TestDigestLegacyWithoutEIP155(t *testing.T) {
	meta := baseMeta(types.EthTxLegacy)
	meta.EIP155 = false
	digest, err := Digest(meta)
	require.NoError(t, err)

	meta155 := baseMeta(types.EthTxLegacy)
	digest155, err := Digest(meta155)
	require.NoError(t, err)
	assert.NotEqual(t, digest, digest155)
}

func TestDecodeAuthorizationList(t *testing.T) {
	tuples := []rlpAuthTuple{
		{ChainID: big.NewInt(1), Address: common.HexToAddress("0x1111111111111111111111111111111111111111"), Nonce: 3, R: big.NewInt(1), S: big.NewInt(2)},
		{ChainID: big.NewInt(5), Address: common.HexToAddress("0x2222222222222222222222222222222222222222"), Nonce: 9, R: big.NewInt(1), S: big.NewInt(2)},
	}
	encoded, err := rlp.EncodeToBytes(tuples)
	require.NoError(t, err)

	got := DecodeAuthorizationList(encoded)
	require.Len(t, got, 2)
	assert.EqualValues(t, 3, got[0].Nonce)
	assert.Equal(t, tuples[1].Address, got[1].Address)

	// Garbage is best-effort: no list, no failure.
	assert.Nil(t, DecodeAuthorizationList([]byte{0xFF, 0x00, 0x13}))
	assert.Nil(t, DecodeAuthorizationList(nil))
}

func TestDecodeAuthorizationListSkipsMalformedEntries(t *testing.T) {
	valid, err := rlp.EncodeToBytes(rlpAuthTuple{
		ChainID: big.NewInt(1),
		Address: common.HexToAddress("0x4444444444444444444444444444444444444444"),
		Nonce:   5,
		R:       big.NewInt(1),
		S:       big.NewInt(2),
	})
	require.NoError(t, err)
	// A string element where an authorization tuple belongs: well-formed
	// RLP, so the list still splits, but the entry itself won't decode.
	bogus, err := rlp.EncodeToBytes("not an authorization tuple")
	require.NoError(t, err)

	mixed, err := rlp.EncodeToBytes([]rlp.RawValue{valid, bogus, valid})
	require.NoError(t, err)

	got := DecodeAuthorizationList(mixed)
	require.Len(t, got, 2)
	for _, auth := range got {
		assert.EqualValues(t, 5, auth.Nonce)
		assert.Equal(t, common.HexToAddress("0x4444444444444444444444444444444444444444"), auth.Address)
	}
}

func TestDigestEIP7702CarriesAuthList(t *testing.T) {
	meta := baseMeta(types.EthTxEIP7702)
	withAuth := baseMeta(types.EthTxEIP7702)
	withAuth.Authorizations = []Authorization{
		{ChainID: big.NewInt(1), Address: common.HexToAddress("0x3333333333333333333333333333333333333333"), Nonce: 1},
	}

	plain, err := Digest(meta)
	require.NoError(t, err)
	authed, err := Digest(withAuth)
	require.NoError(t, err)
	assert.NotEqual(t, plain, authed)
}
