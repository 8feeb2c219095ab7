package curve

import (
	"crypto/ed25519"
	"crypto/sha256"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	blst "github.com/supranational/blst/bindings/go"
)

func TestSignSecp256k1VerifiesAndRecovers(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	digest := sha256.Sum256([]byte("payload under test"))

	sig, err := SignSecp256k1(priv.Serialize(), digest[:])
	require.NoError(t, err)
	require.LessOrEqual(t, sig.RecoveryID, byte(3))

	parsed, err := btcecdsa.ParseDERSignature(sig.DER)
	require.NoError(t, err)
	assert.True(t, parsed.Verify(digest[:], priv.PubKey()))

	compact := make([]byte, 65)
	compact[0] = 27 + sig.RecoveryID
	r, s, err := parseDERComponents(sig.DER)
	require.NoError(t, err)
	copy(compact[1:33], padTo32(r))
	copy(compact[33:65], padTo32(s))
	recovered, _, err := btcecdsa.RecoverCompact(compact, digest[:])
	require.NoError(t, err)
	assert.True(t, recovered.IsEqual(priv.PubKey()))
}

func TestSignSecp256k1RejectsBadDigest(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	_, err = SignSecp256k1(priv.Serialize(), []byte("short"))
	require.Error(t, err)
}

func TestPadDER(t *testing.T) {
	padded, err := PadDER([]byte{0x30, 0x02, 0x01, 0x01})
	require.NoError(t, err)
	assert.Len(t, padded, 74)
	assert.Equal(t, byte(0x30), padded[0])
	assert.Equal(t, make([]byte, 70), padded[4:])

	_, err = PadDER(make([]byte, 75))
	require.Error(t, err)
}

func TestSignEd25519Verifies(t *testing.T) {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i)
	}
	msg := []byte("ed25519 message")

	sig, err := SignEd25519(seed, msg)
	require.NoError(t, err)
	require.Len(t, sig, 64)

	pub, err := PublicKeyFromSeed(seed)
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(pub, msg, sig))

	_, err = SignEd25519(make([]byte, 17), msg)
	require.Error(t, err)
}

func TestSignBLSRoundTrip(t *testing.T) {
	ikm := make([]byte, 32)
	for i := range ikm {
		ikm[i] = byte(0x40 + i)
	}
	sk := blst.KeyGen(ikm)
	msg := []byte("bls message")

	sig, pub := SignBLS(sk, msg)
	assert.Len(t, sig, 96)
	assert.Len(t, pub, 48)
	assert.True(t, VerifyBLS(pub, msg, sig))
	assert.False(t, VerifyBLS(pub, []byte("different message"), sig))
}
