package addrcodec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tyler-smith/go-bip39"

	"github.com/arcsign/hsmemu/internal/emu/hd"
	"github.com/arcsign/hsmemu/internal/emu/types"
)

func accountPath(purpose, coinType uint32) types.Path {
	return types.Path{
		Depth: 3,
		Segments: [5]uint32{
			types.HardenedOffset + purpose,
			types.HardenedOffset + coinType,
			types.HardenedOffset,
		},
	}
}

// Extended-key prefixes follow the BIP-44 purpose: 44' -> xpub, 49' ->
// ypub, 84' -> zpub on mainnet; testnet (coin-type 1') shifts y -> u and
// z -> v.
func TestExtendedPublicKeyPrefixes(t *testing.T) {
	seed := bip39.NewSeed("abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about", "")

	cases := []struct {
		purpose  uint32
		coinType uint32
		addrType BitcoinAddressType
		testnet  bool
		prefix   string
	}{
		{44, 0, BitcoinP2PKH, false, "xpub"},
		{49, 0, BitcoinP2SHP2WPKH, false, "ypub"},
		{84, 0, BitcoinP2WPKH, false, "zpub"},
		{44, 1, BitcoinP2PKH, true, "tpub"},
		{49, 1, BitcoinP2SHP2WPKH, true, "upub"},
		{84, 1, BitcoinP2WPKH, true, "vpub"},
	}

	for _, tc := range cases {
		key, err := hd.DeriveSecp256k1(seed, accountPath(tc.purpose, tc.coinType))
		require.NoError(t, err)

		got, err := ExtendedPublicKey(key, tc.addrType, tc.testnet)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(got, tc.prefix), "purpose %d': got %s, want prefix %s", tc.purpose, got, tc.prefix)
	}
}

func TestBitcoinAddressFormats(t *testing.T) {
	seed := bip39.NewSeed("abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about", "")

	key, err := hd.DeriveSecp256k1(seed, types.Path{
		Depth:    5,
		Segments: [5]uint32{types.HardenedOffset + 84, types.HardenedOffset, types.HardenedOffset, 0, 0},
	})
	require.NoError(t, err)
	pub, err := key.ECPubKey()
	require.NoError(t, err)
	compressed := pub.SerializeCompressed()

	p2wpkh, err := BitcoinAddress(compressed, BitcoinP2WPKH, false)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p2wpkh, "bc1q"), "got %s", p2wpkh)

	p2wpkhTest, err := BitcoinAddress(compressed, BitcoinP2WPKH, true)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p2wpkhTest, "tb1q"), "got %s", p2wpkhTest)

	p2pkh, err := BitcoinAddress(compressed, BitcoinP2PKH, false)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p2pkh, "1"), "got %s", p2pkh)

	p2sh, err := BitcoinAddress(compressed, BitcoinP2SHP2WPKH, false)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p2sh, "3"), "got %s", p2sh)
}

func TestCosmosAddressPrefix(t *testing.T) {
	seed := bip39.NewSeed("abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about", "")

	key, err := hd.DeriveSecp256k1(seed, types.Path{
		Depth:    5,
		Segments: [5]uint32{types.HardenedOffset + 44, types.HardenedOffset + 118, types.HardenedOffset, 0, 0},
	})
	require.NoError(t, err)
	pub, err := key.ECPubKey()
	require.NoError(t, err)

	addr, err := CosmosAddress(pub.SerializeCompressed(), CosmosHRP("ATOM"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(addr, "cosmos1"), "got %s", addr)
}
