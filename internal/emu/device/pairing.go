package device

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/arcsign/hsmemu/internal/emu/emuerr"
	"github.com/arcsign/hsmemu/internal/emu/reqparse"
	"github.com/arcsign/hsmemu/internal/emu/respbuild"
	"github.com/arcsign/hsmemu/internal/emu/types"
	"github.com/arcsign/hsmemu/internal/emu/wire"
)

// handleConnectLocked implements Connect: legal in any non-Locked
// state. Stores client_pub, generates a fresh device ephemeral, derives
// the shared secret. If not yet paired, (re)enters PairingMode and arms
// the pairing timeout.
func (d *Device) handleConnectLocked(body []byte) []byte {
	if d.locked {
		return wire.BuildResponseFrame(types.RespDeviceLocked, nil)
	}

	conn, err := reqparse.ParseConnect(body)
	if err != nil {
		return wire.BuildResponseFrame(types.RespInvalidMsg, nil)
	}

	ephemeral, err := wire.GenerateEphemeral()
	if err != nil {
		d.logger.Error("generate device ephemeral", zap.Error(err))
		return wire.BuildResponseFrame(types.RespInternalError, nil)
	}
	secret, err := wire.SharedSecret(ephemeral.Private, conn.ClientPub)
	if err != nil {
		return wire.BuildResponseFrame(types.RespInvalidMsg, nil)
	}

	// The cache is populated only on successful decrypts; the fresh secret
	// is reachable as the current session secret until then.
	d.sess = session{ephemeral: ephemeral, clientPub: conn.ClientPub, secret: secret, active: true}

	if !d.paired {
		d.pairingMode = true
		d.pairingDeadline = d.now().Add(d.pairingTimeout)
		d.emit(EventPairingModeStarted)
	}
	d.emit(EventConnectionChanged, "connected", true, "paired", d.paired)

	resp, err := respbuild.BuildConnectResponse(d.paired, ephemeral.Public, d.firmware, d.internalWallet, d.externalWallet, secret)
	if err != nil {
		d.logger.Error("build connect response", zap.Error(err))
		return wire.BuildResponseFrame(types.RespInternalError, nil)
	}
	// The leading status byte is redundant with the outer response_code
	// and is dropped here.
	return wire.BuildResponseFrame(types.RespSuccess, resp[1:])
}

// finalizePairingLocked implements FinalizePairing: legal only in
// PairingMode, verifying the 74-byte DER P-256 signature over
// SHA-256(client_pub || app_name_padded_25 || pairing_code_ascii).
func (d *Device) finalizePairingLocked(body []byte) ([]byte, error) {
	fp, err := reqparse.ParseFinalizePairing(body)
	if err != nil {
		return nil, err
	}

	if d.paired {
		return nil, emuerr.Already("finalizePairing: device is already paired")
	}
	if !d.pairingMode {
		return nil, emuerr.PairFailed("finalizePairing: device is not in pairing mode")
	}
	if !d.sess.active {
		return nil, emuerr.PairFailed("finalizePairing: no active session")
	}

	digest := sha256.New()
	digest.Write(d.sess.clientPub)
	digest.Write(paddedAppName(fp.AppName))
	digest.Write([]byte(d.pairingCode))
	hash := digest.Sum(nil)

	if !verifyPairingSignature(d.sess.clientPub, hash, fp.Signature) {
		return nil, emuerr.PairFailed("finalizePairing: signature verification failed")
	}

	d.paired = true
	d.pairingMode = false
	d.pairingDeadline = time.Time{}
	d.emit(EventPairingChanged, "paired", true)
	d.emit(EventPairingModeEnded, "reason", "finalized")

	return nil, nil
}

func paddedAppName(name string) []byte {
	out := make([]byte, 25)
	copy(out, name)
	return out
}

// verifyPairingSignature checks a 74-byte DER-padded P-256 signature
// against clientPub and hash, using crypto/ecdsa.VerifyASN1 after
// trimming the DER padding to its self-described length.
func verifyPairingSignature(clientPub []byte, hash []byte, paddedDER []byte) bool {
	pub, ok := unmarshalP256(clientPub)
	if !ok {
		return false
	}
	der, ok := trimDER(paddedDER)
	if !ok {
		return false
	}
	return ecdsa.VerifyASN1(pub, hash, der)
}

func unmarshalP256(uncompressed []byte) (*ecdsa.PublicKey, bool) {
	if len(uncompressed) != 65 || uncompressed[0] != 0x04 {
		return nil, false
	}
	curve := elliptic.P256()
	x := new(big.Int).SetBytes(uncompressed[1:33])
	y := new(big.Int).SetBytes(uncompressed[33:65])
	if !curve.IsOnCurve(x, y) {
		return nil, false
	}
	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, true
}

// trimDER returns the real ASN.1 SEQUENCE prefix of a zero-padded DER
// buffer, using the DER length byte at offset 1 (short-form only, which
// every ECDSA P-256 signature uses since its payload never exceeds 127
// bytes).
func trimDER(padded []byte) ([]byte, bool) {
	if len(padded) < 2 || padded[0] != 0x30 {
		return nil, false
	}
	length := int(padded[1])
	total := 2 + length
	if total > len(padded) {
		return nil, false
	}
	return padded[:total], true
}
