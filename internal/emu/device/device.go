// Package device implements the device state machine: the
// Connect/pair/lock/pairing-mode lifecycle, the session and secret cache
// it shares with the frame codec, and the top-level dispatch that wires
// request parsing, signing, KV, and approval together into the encrypted
// request/response ceremony. One Device models one emulated instance;
// it owns its session, secret cache, multipart-session map, and pending
// approvals exclusively behind a single mutex.
package device

import (
	"context"
	"crypto/sha256"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/arcsign/hsmemu/internal/emu/approval"
	"github.com/arcsign/hsmemu/internal/emu/emuerr"
	"github.com/arcsign/hsmemu/internal/emu/kvstore"
	"github.com/arcsign/hsmemu/internal/emu/respbuild"
	"github.com/arcsign/hsmemu/internal/emu/signing"
	"github.com/arcsign/hsmemu/internal/emu/types"
	"github.com/arcsign/hsmemu/internal/emu/wire"
)

// session holds the P-256 ephemeral handshake state.
type session struct {
	ephemeral *wire.EphemeralKeyPair
	clientPub []byte
	secret    [32]byte
	active    bool
}

// Device is one emulated signing device. All exported operations acquire
// d.mu for their full duration, including a synchronous signer's wait on
// user approval: the decision arrives on the approval sink's own channel,
// so an operator callback resolving it never has to contend for the
// device lock.
type Device struct {
	mu sync.Mutex

	id       [32]byte
	firmware types.Firmware
	seed     []byte

	paired          bool
	locked          bool
	pairingMode     bool
	pairingCode     string
	pairingDeadline time.Time

	autoApprove     bool
	approvalTimeout time.Duration
	pairingTimeout  time.Duration

	internalWallet respbuild.WalletDescriptor
	externalWallet respbuild.WalletDescriptor

	sess  session
	cache *wire.SecretCache

	multipart *signing.Manager

	kv           kvstore.Store
	approvalSink approval.Sink

	logger  *zap.Logger
	onEvent func(Event)

	now func() time.Time

	signSeq uint64
}

// nextSignID returns a monotonically increasing identifier for approval
// prompts; it has no meaning beyond letting a collaborator correlate a
// decision with the request that produced it.
func (d *Device) nextSignID() uint64 {
	d.signSeq++
	return d.signSeq
}

// New constructs a Device from cfg and a 64-byte master seed. sink and kv
// are the two external collaborators; a nil kv falls back to an
// in-memory store. sink is not checked here: it is called for every sign
// request while AutoApprove is false, and is never called while
// AutoApprove is true.
func New(cfg Config, seed []byte, sink approval.Sink, kv kvstore.Store, logger *zap.Logger) *Device {
	if logger == nil {
		logger = zap.NewNop()
	}
	if kv == nil {
		kv = kvstore.NewMemory()
	}

	d := &Device{
		id:              cfg.DeviceID,
		firmware:        cfg.FirmwareVersion,
		seed:            append([]byte(nil), seed...),
		pairingCode:     cfg.PairingCode,
		autoApprove:     cfg.AutoApprove,
		approvalTimeout: cfg.approvalTimeout(),
		pairingTimeout:  cfg.pairingTimeout(),
		cache:           wire.NewSecretCache(),
		multipart:       signing.NewManager(),
		kv:              kv,
		approvalSink:    sink,
		logger:          logger,
		now:             time.Now,
		internalWallet: respbuild.WalletDescriptor{
			UID: sha256ID(cfg.DeviceID[:], "internal"), Capabilities: 0xFFFFFFFF, Name: "Internal",
		},
		externalWallet: respbuild.WalletDescriptor{
			UID: sha256ID(cfg.DeviceID[:], "external"), Capabilities: 0, Name: "External",
		},
	}
	return d
}

func sha256ID(deviceID []byte, label string) [32]byte {
	h := sha256.New()
	h.Write(deviceID)
	h.Write([]byte(label))
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// OnEvent registers a sink for the device's abstract lifecycle events.
// It is not part of New's signature because most callers (tests, the
// cmd/arcsignd wiring example) don't need one.
func (d *Device) OnEvent(f func(Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onEvent = f
}

func (d *Device) emit(kind EventKind, fields ...any) {
	ev := newEvent(kind, fields...)
	d.logger.Info(string(kind), zap.Any("fields", ev.Fields))
	if d.onEvent != nil {
		d.onEvent(ev)
	}
}

// Paired, Locked, PairingMode report current lifecycle state for tests
// and diagnostics.
func (d *Device) Paired() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paired
}

func (d *Device) Locked() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.locked
}

func (d *Device) PairingMode() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.expirePairingModeLocked()
	return d.pairingMode
}

// Lock and Unlock flip the device's lock flag; while it is set every
// request, Connect included, is answered with DeviceLocked.
func (d *Device) Lock() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.locked = true
}

func (d *Device) Unlock() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.locked = false
}

// expirePairingModeLocked lazily fires the pairing-mode timeout: if
// still in PairingMode past the deadline, transition back to Fresh.
// Must be called with d.mu held.
func (d *Device) expirePairingModeLocked() {
	if d.pairingMode && !d.pairingDeadline.IsZero() && d.now().After(d.pairingDeadline) {
		d.pairingMode = false
		d.pairingDeadline = time.Time{}
		d.emit(EventPairingModeEnded, "reason", "timeout")
	}
}

// Reset hard-transitions the device to Fresh, clearing the paired, locked
// and pairing-mode flags, the session, secret cache, multipart sessions,
// and the approval-prompt counter. The KV store contents and the
// configured pairing code are kept. Idempotent: reset(); reset() == reset().
func (d *Device) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetLocked()
}

func (d *Device) resetLocked() {
	wasPaired := d.paired
	d.paired = false
	d.locked = false
	d.pairingMode = false
	d.pairingDeadline = time.Time{}
	d.sess = session{}
	d.cache.Clear()
	d.multipart.Clear()
	d.signSeq = 0

	if wasPaired {
		d.emit(EventPairingChanged, "paired", false)
	}
	d.emit(EventConnectionChanged, "connected", false)
}

// HandleMessage is the top-level entry point a transport collaborator
// calls with one raw inbound message (already demultiplexed by a
// transport-level header if the transport has one of its own); it
// returns the raw outbound bytes to send back, already wrapped in the
// outer response framing. Handling is fully serialized per device:
// at most one message is ever in flight per instance.
func (d *Device) HandleMessage(raw []byte) []byte {
	frame, err := wire.ParseOuter(raw)
	if err != nil {
		return wire.BuildResponseFrame(types.RespInvalidMsg, nil)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.expirePairingModeLocked()

	if frame.Connect {
		return d.handleConnectLocked(frame.Body)
	}
	return d.handleEncryptedLocked(frame.ReqType, frame.EphemeralID, frame.Body)
}

func (d *Device) handleEncryptedLocked(reqTypeHint byte, ephemeralHint uint32, ciphertext []byte) []byte {
	if d.locked {
		return wire.BuildResponseFrame(types.RespDeviceLocked, nil)
	}
	if !d.sess.active {
		return wire.BuildResponseFrame(types.RespPairFailed, nil)
	}

	reqType, body, secret, err := wire.DecryptInbound(ciphertext, ephemeralHint, d.cache, d.sess.secret, func(rt byte, _ []byte) (int, error) {
		n, ok := types.FixedBodySize(types.RequestType(rt))
		if !ok {
			return 0, emuerr.InvalidMsgf("unknown request type %d", rt)
		}
		return n, nil
	})
	if err != nil {
		return wire.BuildResponseFrame(types.RespPairFailed, nil)
	}
	d.sess.secret = secret

	payload, rerr := d.dispatchLocked(types.RequestType(reqType), body)
	if rerr != nil {
		return wire.BuildResponseFrame(emuerr.Code(rerr), nil)
	}

	respSize, ok := responseBodySize(types.RequestType(reqType), payload)
	if !ok {
		return wire.BuildResponseFrame(types.RespInternalError, nil)
	}

	ciphertextOut, err := wire.EncryptOutbound(d.ephemeralPub(), payload, respSize, d.sess.secret)
	if err != nil {
		d.logger.Error("encrypt outbound frame", zap.Error(err))
		return wire.BuildResponseFrame(types.RespInternalError, nil)
	}
	return wire.BuildResponseFrame(types.RespSuccess, ciphertextOut)
}

func (d *Device) ephemeralPub() []byte {
	if d.sess.ephemeral == nil {
		return make([]byte, 65)
	}
	return d.sess.ephemeral.Public
}

func (d *Device) dispatchLocked(reqType types.RequestType, body []byte) ([]byte, error) {
	if reqType == types.ReqFinalizePairing {
		return d.finalizePairingLocked(body)
	}
	if !d.paired {
		return nil, emuerr.PairFailed("device is not paired")
	}
	switch reqType {
	case types.ReqGetAddresses:
		return d.getAddressesLocked(body)
	case types.ReqSign:
		return d.signLocked(body)
	case types.ReqGetWallets:
		return d.getWalletsLocked(body)
	case types.ReqGetKvRecords:
		return d.getKvRecordsLocked(body)
	case types.ReqAddKvRecords:
		return d.addKvRecordsLocked(body)
	case types.ReqRemoveKvRecords:
		return d.removeKvRecordsLocked(body)
	case types.ReqFetchEncryptedData:
		return d.fetchEncryptedDataLocked(body)
	case types.ReqTest:
		return d.testLocked(body)
	default:
		return nil, emuerr.InvalidMsgf("unknown request type %d", reqType)
	}
}

// requireFirmware returns emuerr.UnsupportedVersion if the device's
// firmware is below the feature's minimum version.
func (d *Device) requireFirmware(min types.Firmware, feature string) error {
	if !d.firmware.AtLeast(min) {
		return emuerr.UnsupportedVersion(feature + " requires firmware " + firmwareString(min))
	}
	return nil
}

func firmwareString(f types.Firmware) string {
	b := make([]byte, 0, 8)
	b = appendUint(b, f.Major)
	b = append(b, '.')
	b = appendUint(b, f.Minor)
	b = append(b, '.')
	b = appendUint(b, f.Patch)
	return string(b)
}

func appendUint(b []byte, v uint8) []byte {
	if v >= 100 {
		b = append(b, '0'+v/100)
	}
	if v >= 10 {
		b = append(b, '0'+(v/10)%10)
	}
	return append(b, '0'+v%10)
}

// waitForApproval parks the calling goroutine (still holding d.mu, so no
// other request on this device progresses) on the configured
// ApprovalSink until a decision arrives or ApprovalTimeout elapses.
func (d *Device) waitForApproval(req approval.SigningRequest) error {
	if d.autoApprove {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.approvalTimeout)
	defer cancel()

	d.emit(EventSigningRequestCreated, "id", req.ID, "path", req.Path, "schema", req.Schema)
	decisions := d.approvalSink.OnRequest(ctx, req)
	decision := approval.WaitWithDeadline(decisions, d.approvalTimeout)

	d.emit(EventSigningRequestCompleted, "id", req.ID, "approved", decision.Approved)
	if !decision.Approved {
		reason := decision.Reason
		if reason == "" {
			reason = "declined"
		}
		return emuerr.UserDeclined(reason)
	}
	return nil
}

// responseBodySize returns the body size the frame codec encrypts for
// reqType: the already-serialized payload's own length for every response
// that carries one, and 0 for FinalizePairing and Add/RemoveKvRecords.
// There is no fixed per-type response-size table, so no response body is
// padded beyond its serialized length.
func responseBodySize(reqType types.RequestType, payload []byte) (int, bool) {
	switch reqType {
	case types.ReqFinalizePairing:
		return 0, true
	case types.ReqSign:
		return len(payload), true
	case types.ReqGetWallets:
		return len(payload), true
	case types.ReqGetAddresses:
		return len(payload), true
	case types.ReqGetKvRecords:
		return len(payload), true
	case types.ReqAddKvRecords, types.ReqRemoveKvRecords:
		return 0, true
	case types.ReqFetchEncryptedData, types.ReqTest:
		return len(payload), true
	default:
		return 0, false
	}
}
