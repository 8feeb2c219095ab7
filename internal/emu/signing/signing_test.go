package signing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tyler-smith/go-bip39"

	"github.com/arcsign/hsmemu/internal/emu/types"
)

func testSeed(t *testing.T) []byte {
	t.Helper()
	mnemonic := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	seed := bip39.NewSeed(mnemonic, "")
	return seed
}

func TestExecuteGenericEd25519(t *testing.T) {
	seed := testSeed(t)
	req := Request{
		Schema:   types.SchemaGeneric,
		Curve:    types.CurveEd25519,
		Encoding: types.EncodingSolana,
		HashType: types.HashNone,
		Path: types.Path{
			Depth:    5,
			Segments: [5]uint32{types.HardenedOffset + 44, types.HardenedOffset + 501, types.HardenedOffset, types.HardenedOffset, types.HardenedOffset},
		},
		Data: []byte("generic message body"),
	}

	out, err := Execute(seed, req)
	require.NoError(t, err)
	assert.Len(t, out, 96)
}

func TestExecuteGenericSecp256k1OmitPubkey(t *testing.T) {
	seed := testSeed(t)
	req := Request{
		Schema:     types.SchemaGeneric,
		Curve:      types.CurveSecp256k1,
		HashType:   types.HashSHA256,
		OmitPubkey: true,
		Path: types.Path{
			Depth:    5,
			Segments: [5]uint32{types.HardenedOffset + 44, types.HardenedOffset + 0, types.HardenedOffset, 0, 0},
		},
		Data: []byte("sign this"),
	}

	out, err := Execute(seed, req)
	require.NoError(t, err)
	assert.Len(t, out, 65+74+32)
	assert.Equal(t, make([]byte, 65), out[0:65])
}

func TestExecuteBitcoinSingleInput(t *testing.T) {
	seed := testSeed(t)
	req := Request{
		Schema: types.SchemaBitcoin,
		BitcoinSign: &BitcoinInputs{
			ChangePKH: make([]byte, 20),
			Inputs: []BitcoinInput{
				{
					SignerPath: types.Path{Depth: 5, Segments: [5]uint32{types.HardenedOffset + 84, types.HardenedOffset, types.HardenedOffset, 0, 0}},
					PrevVout:   0,
					Value:      100000,
				},
			},
		},
	}

	out, err := Execute(seed, req)
	require.NoError(t, err)
	assert.Len(t, out, 20+760+33)
}

func TestMultipartSessionAppendChunk(t *testing.T) {
	s := &MultipartSession{ExpectedLength: 10}
	s.AppendChunk([]byte("0123456789extra"))
	assert.Equal(t, 10, s.CollectedLength)
	assert.Equal(t, []byte("0123456789"), s.FullData())
	require.Len(t, s.DecoderChunks, 1)
	assert.Equal(t, []byte("extra"), s.DecoderChunks[0])
}

func TestManagerCreateTakeReinsert(t *testing.T) {
	m := NewManager()
	session := &MultipartSession{ExpectedLength: 5}
	code, err := m.Create(session)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())

	got, ok := m.Take(code)
	require.True(t, ok)
	assert.Same(t, session, got)
	assert.Equal(t, 0, m.Len())

	newCode, err := m.Reinsert(got)
	require.NoError(t, err)
	assert.NotEqual(t, code, newCode)
	assert.Equal(t, 1, m.Len())

	m.Clear()
	assert.Equal(t, 0, m.Len())
}
