package hd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tyler-smith/go-bip39"

	"github.com/arcsign/hsmemu/internal/emu/addrcodec"
	"github.com/arcsign/hsmemu/internal/emu/types"
)

func testSeed(t *testing.T) []byte {
	t.Helper()
	return bip39.NewSeed("abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about", "")
}

// The standard BIP-39 test mnemonic at m/44'/60'/0'/0/0 is the published
// go-ethereum/MetaMask derivation vector.
func TestDeriveSecp256k1EthereumVector(t *testing.T) {
	seed := testSeed(t)
	path := types.Path{
		Depth:    5,
		Segments: [5]uint32{types.HardenedOffset + 44, types.HardenedOffset + 60, types.HardenedOffset, 0, 0},
	}

	key, err := DeriveSecp256k1(seed, path)
	require.NoError(t, err)
	pub, err := key.ECPubKey()
	require.NoError(t, err)

	addr, err := addrcodec.EthereumAddress(pub.SerializeUncompressed(), true)
	require.NoError(t, err)
	assert.Equal(t, "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", addr)
}

func TestDeriveEd25519IsDeterministicAndHardened(t *testing.T) {
	seed := testSeed(t)
	path := types.Path{
		Depth:    4,
		Segments: [5]uint32{types.HardenedOffset + 44, types.HardenedOffset + 501, types.HardenedOffset, types.HardenedOffset},
	}

	pub1, priv1, err := DeriveEd25519(seed, path)
	require.NoError(t, err)
	pub2, _, err := DeriveEd25519(seed, path)
	require.NoError(t, err)
	assert.Equal(t, pub1, pub2)
	assert.Len(t, pub1, 32)
	assert.Len(t, priv1, 64)

	// The unhardened form of the same path derives identically: SLIP-10
	// forces every ed25519 segment hardened.
	soft := types.Path{Depth: 4, Segments: [5]uint32{44, 501, 0, 0}}
	pubSoft, _, err := DeriveEd25519(seed, soft)
	require.NoError(t, err)
	assert.Equal(t, pub1, pubSoft)

	other := types.Path{
		Depth:    4,
		Segments: [5]uint32{types.HardenedOffset + 44, types.HardenedOffset + 501, types.HardenedOffset + 1, types.HardenedOffset},
	}
	pubOther, _, err := DeriveEd25519(seed, other)
	require.NoError(t, err)
	assert.NotEqual(t, pub1, pubOther)
}

func TestDeriveBLSTreePaths(t *testing.T) {
	seed := testSeed(t)

	root, err := DeriveBLS(seed, types.Path{})
	require.NoError(t, err)

	childA, err := DeriveBLS(seed, types.Path{Depth: 1, Segments: [5]uint32{0}})
	require.NoError(t, err)
	childB, err := DeriveBLS(seed, types.Path{Depth: 1, Segments: [5]uint32{1}})
	require.NoError(t, err)

	assert.NotEqual(t, root.Serialize(), childA.Serialize())
	assert.NotEqual(t, childA.Serialize(), childB.Serialize())

	again, err := DeriveBLS(seed, types.Path{Depth: 1, Segments: [5]uint32{0}})
	require.NoError(t, err)
	assert.Equal(t, childA.Serialize(), again.Serialize())
}
