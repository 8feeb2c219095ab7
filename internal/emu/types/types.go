// Package types holds the wire-level enums and constant tables the rest of
// the emulator core is built on: request-type tags, response codes, schema
// tags, curve/encoding/hash-type ids and firmware feature gates. Values are
// copied verbatim from the counterparty SDK, not re-derived.
package types

// RequestType identifies an encrypted request kind by its one-byte tag.
// Connect is unencrypted and carries no RequestType of its own.
type RequestType uint8

const (
	ReqFinalizePairing    RequestType = 0
	ReqGetAddresses       RequestType = 1
	ReqSign               RequestType = 2
	ReqGetWallets         RequestType = 3
	ReqGetKvRecords       RequestType = 4
	ReqAddKvRecords       RequestType = 5
	ReqRemoveKvRecords    RequestType = 6
	ReqFetchEncryptedData RequestType = 7
	ReqTest               RequestType = 8
)

// bodySize is the fixed cleartext request body length (excludes the 1-byte
// type tag, the CRC32, and trailing padding) for every request type.
// Requests whose payload is logically variable-length (Sign, AddKvRecords,
// RemoveKvRecords, FetchEncryptedData, Test) still occupy a fixed-size
// envelope on the wire; unused tail bytes are zero padding that each
// sub-parser tolerates via its own declared-length field, exactly as the
// fixed-size types tolerate zero padding in their trailing bytes.
//
// SignBodySize is sized so the GENERIC schema's header (envelope 34 +
// generic head 30 = 64 bytes) leaves exactly 1519 bytes of message-chunk
// capacity, the initial-chunk budget clients assume when splitting a long
// message across extra-data frames. The AddKvRecords/RemoveKvRecords/
// FetchEncryptedData/Test sizes are picked generously enough for
// realistic record/param counts.
var bodySize = map[RequestType]int{
	ReqFinalizePairing:    99,
	ReqGetAddresses:       54,
	ReqSign:               SignBodySize,
	ReqGetWallets:         0,
	ReqGetKvRecords:       9,
	ReqAddKvRecords:       AddKvRecordsBodySize,
	ReqRemoveKvRecords:    RemoveKvRecordsBodySize,
	ReqFetchEncryptedData: FetchEncryptedDataBodySize,
	ReqTest:               TestBodySize,
}

// Fixed request-body envelope sizes for the logically variable-length
// request kinds (see bodySize doc comment above).
const (
	SignBodySize               = 1583
	AddKvRecordsBodySize       = 557
	RemoveKvRecordsBodySize    = 45
	FetchEncryptedDataBodySize = 310
	TestBodySize               = 512
)

// FixedBodySize returns the cleartext body size for request type t, and
// ok=false if t is unknown.
func FixedBodySize(t RequestType) (int, bool) {
	n, ok := bodySize[t]
	return n, ok
}

// ResponseCode is the single status byte placed in the outer response
// framing (outside the encrypted payload for error cases).
type ResponseCode uint8

const (
	RespSuccess             ResponseCode = 0
	RespInvalidMsg          ResponseCode = 1
	RespPairFailed          ResponseCode = 2
	RespDeviceLocked        ResponseCode = 3
	RespUnsupportedVersion  ResponseCode = 4
	RespAlready             ResponseCode = 5
	RespUserDeclined        ResponseCode = 6
	RespInternalError       ResponseCode = 7
)

// Schema selects a signing sub-parser/response layout for a Sign request.
type Schema uint8

const (
	SchemaBitcoin             Schema = 0
	SchemaEthereumTransaction Schema = 1
	SchemaEthereumERC20       Schema = 2
	SchemaEthereumMessage     Schema = 3
	SchemaExtraData           Schema = 4
	SchemaGeneric             Schema = 5
)

// Curve identifies the signing curve for a Generic-schema sign request.
type Curve uint8

const (
	CurveSecp256k1 Curve = 0
	CurveEd25519   Curve = 1
	CurveBLS12_381 Curve = 2
)

// HashType selects the pre-signing hash applied to the message payload.
type HashType uint8

const (
	HashNone      HashType = 0
	HashKeccak256 HashType = 1
	HashSHA256    HashType = 2
)

// Encoding identifies the payload encoding for a Generic sign request, and
// doubles as the chain-selector (e.g. Solana) within that schema.
type Encoding uint32

const (
	EncodingNone            Encoding = 0
	EncodingSolana          Encoding = 1
	EncodingEVM             Encoding = 2
	EncodingEthDeposit      Encoding = 3
	EncodingEIP7702Auth     Encoding = 4
	EncodingEIP7702AuthList Encoding = 5
)

// GetAddresses flag values select the address/pubkey output format.
type AddressFlag uint8

const (
	FlagAddress          AddressFlag = 0
	FlagSecp256k1Pubkey  AddressFlag = 3
	FlagEd25519Pubkey    AddressFlag = 4
	FlagBLS12381Pubkey   AddressFlag = 5
	FlagSecp256k1Xpub    AddressFlag = 6
)

// Ethereum transaction tx-type byte (EIP-2718 envelope selector).
const (
	EthTxLegacy    uint8 = 0
	EthTxEIP2930   uint8 = 1
	EthTxEIP1559   uint8 = 2
	EthTxEIP7702   uint8 = 4
)

// Firmware is a (major, minor, patch) triple used to gate features.
type Firmware struct {
	Major, Minor, Patch uint8
}

// Compare returns -1, 0, or 1 as f is less than, equal to, or greater than o.
func (f Firmware) Compare(o Firmware) int {
	switch {
	case f.Major != o.Major:
		return cmp(f.Major, o.Major)
	case f.Minor != o.Minor:
		return cmp(f.Minor, o.Minor)
	default:
		return cmp(f.Patch, o.Patch)
	}
}

// AtLeast reports whether f is greater than or equal to min.
func (f Firmware) AtLeast(min Firmware) bool {
	return f.Compare(min) >= 0
}

func cmp(a, b uint8) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Feature gates: minimum firmware version required to use a capability.
var (
	FirmwareKVRecords  = Firmware{0, 12, 0}
	FirmwareBLS12_381  = Firmware{0, 17, 0}
)

// DefaultFirmware is the firmware version a fresh device reports unless
// configured otherwise.
var DefaultFirmware = Firmware{0, 15, 0}

// Wire framing constants.
const (
	// EncryptedFrameSize is the fixed size of every encrypted frame on the
	// wire, before and after encryption.
	EncryptedFrameSize = 1728

	// MsgTypeConnect and MsgTypeEncrypted are the unencrypted one-byte
	// message-type prefixes preceding Connect and all other requests.
	MsgTypeConnect   uint8 = 0x01
	MsgTypeEncrypted uint8 = 0x02

	// OuterRespMsgType is always zero in outer response framing.
	OuterRespMsgType uint8 = 0x00
)

// Derivation path segments are always 5 u32 BE words; shorter logical
// paths are zero-padded and Depth indicates the meaningful prefix length.
const PathSegments = 5

// HardenedOffset is added to a path index to mark it hardened (BIP32).
const HardenedOffset uint32 = 1 << 31

// Path is a fixed 5-segment BIP32-style derivation path as carried on the
// wire: Depth gives the meaningful prefix length, Segments beyond Depth are
// zero padding and must be ignored.
type Path struct {
	Depth    uint8
	Segments [PathSegments]uint32
}

// Active returns the meaningful prefix of the path.
func (p Path) Active() []uint32 {
	d := int(p.Depth)
	if d > PathSegments {
		d = PathSegments
	}
	return p.Segments[:d]
}

// String renders the path in m/44'/60'/0'/0/0 form for logging.
func (p Path) String() string {
	s := "m"
	for _, seg := range p.Active() {
		if seg >= HardenedOffset {
			s += "/" + itoa(seg-HardenedOffset) + "'"
		} else {
			s += "/" + itoa(seg)
		}
	}
	return s
}

func itoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
