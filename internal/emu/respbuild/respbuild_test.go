package respbuild

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcsign/hsmemu/internal/emu/types"
)

func TestBuildConnectResponseUnpaired(t *testing.T) {
	ephemeral := make([]byte, 65)
	for i := range ephemeral {
		ephemeral[i] = byte(i)
	}
	out, err := BuildConnectResponse(false, ephemeral, types.DefaultFirmware, WalletDescriptor{}, WalletDescriptor{}, [32]byte{})
	require.NoError(t, err)
	assert.Len(t, out, 1+1+65+4+144)
	assert.Equal(t, byte(1), out[0])
	assert.Equal(t, byte(0), out[1])
	assert.Equal(t, ephemeral, out[2:67])
}

func TestBuildConnectResponsePaired(t *testing.T) {
	ephemeral := make([]byte, 65)
	secret := [32]byte{1, 2, 3}
	internalWallet := WalletDescriptor{Capabilities: 1, Name: "internal"}
	externalWallet := WalletDescriptor{Capabilities: 2, Name: "external"}

	out, err := BuildConnectResponse(true, ephemeral, types.DefaultFirmware, internalWallet, externalWallet, secret)
	require.NoError(t, err)
	assert.Equal(t, byte(1), out[1])

	blob := out[71:215]
	assert.Len(t, blob, 144)
	assert.NotEqual(t, make([]byte, 144), blob) // ciphertext shouldn't be all-zero
}

func TestBuildGetAddressesResponseAddressFlag(t *testing.T) {
	slots := []AddressSlot{{Address: "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"}, {Address: "bc1q..."}}
	out, err := BuildGetAddressesResponse(types.FlagAddress, slots)
	require.NoError(t, err)
	assert.Len(t, out, 2*129)
	assert.Equal(t, byte(0), out[34]) // null terminator within the 129-byte slot
}

func TestBuildGetAddressesResponsePubkeyFlag(t *testing.T) {
	slots := []AddressSlot{{Raw: make([]byte, 32)}}
	out, err := BuildGetAddressesResponse(types.FlagEd25519Pubkey, slots)
	require.NoError(t, err)
	assert.Len(t, out, 1+65)
	assert.Equal(t, byte(types.FlagEd25519Pubkey), out[0])
}

func TestBuildBitcoinSignResponse(t *testing.T) {
	out, err := BuildBitcoinSignResponse(make([]byte, 20), make([]byte, 74), make([]byte, 33))
	require.NoError(t, err)
	assert.Len(t, out, 20+760+33)

	_, err = BuildBitcoinSignResponse(make([]byte, 20), make([]byte, 70), make([]byte, 33))
	require.Error(t, err)
}

func TestBuildGenericResponses(t *testing.T) {
	eth, err := BuildGenericSecp256k1Response(make([]byte, 65), false, make([]byte, 74), nil)
	require.NoError(t, err)
	assert.Len(t, eth, 65+74)

	ed, err := BuildGenericEd25519Response(make([]byte, 32), make([]byte, 64))
	require.NoError(t, err)
	assert.Len(t, ed, 96)

	bls, err := BuildGenericBLSResponse(make([]byte, 48), make([]byte, 96))
	require.NoError(t, err)
	assert.Len(t, bls, 144)
}
