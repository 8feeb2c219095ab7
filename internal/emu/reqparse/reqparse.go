// Package reqparse decodes the cleartext body of each encrypted request
// kind (plus the unencrypted Connect message) into a typed request. Every
// parser is a pure function of the byte slice the frame codec produced;
// none of them touch device state.
package reqparse

import (
	"encoding/binary"

	"github.com/arcsign/hsmemu/internal/emu/emuerr"
	"github.com/arcsign/hsmemu/internal/emu/types"
)

// Connect is the unencrypted pairing-handshake message: 65 bytes, the
// client's uncompressed P-256 public key.
type Connect struct {
	ClientPub []byte
}

// ParseConnect parses the 65-byte Connect message.
func ParseConnect(data []byte) (Connect, error) {
	if len(data) != 65 {
		return Connect{}, emuerr.InvalidMsgf("connect: want 65 bytes, got %d", len(data))
	}
	pub := make([]byte, 65)
	copy(pub, data)
	return Connect{ClientPub: pub}, nil
}

// FinalizePairing completes pairing: a 74-byte DER P-256 signature over
// SHA-256(client_pub || app_name_padded_25 || pairing_code_ascii).
type FinalizePairing struct {
	AppName   string
	Signature []byte // 74-byte DER-padded
}

// ParseFinalizePairing parses the 99-byte FinalizePairing body.
func ParseFinalizePairing(data []byte) (FinalizePairing, error) {
	if len(data) != 99 {
		return FinalizePairing{}, emuerr.InvalidMsgf("finalizePairing: want 99 bytes, got %d", len(data))
	}
	name := trimNull(data[0:25])
	sig := make([]byte, 74)
	copy(sig, data[25:99])
	return FinalizePairing{AppName: name, Signature: sig}, nil
}

// GetAddresses requests Count addresses/pubkeys starting at Path, stepping
// the path segment selected by IterIdx.
type GetAddresses struct {
	WalletUID []byte // 32 bytes, discarded by the core
	Path      types.Path
	IterIdx   uint8
	Count     uint8
	Flag      types.AddressFlag
}

// ParseGetAddresses parses the 54-byte GetAddresses body.
func ParseGetAddresses(data []byte) (GetAddresses, error) {
	if len(data) != 54 {
		return GetAddresses{}, emuerr.InvalidMsgf("getAddresses: want 54 bytes, got %d", len(data))
	}

	uid := make([]byte, 32)
	copy(uid, data[0:32])

	depthIter := data[32]
	depth := depthIter >> 4
	iterIdx := depthIter & 0x0F

	var path types.Path
	path.Depth = depth
	off := 33
	for i := 0; i < types.PathSegments; i++ {
		path.Segments[i] = binary.BigEndian.Uint32(data[off : off+4])
		off += 4
	}

	countFlag := data[off]
	count := countFlag >> 4
	flag := countFlag & 0x0F

	return GetAddresses{
		WalletUID: uid,
		Path:      path,
		IterIdx:   iterIdx,
		Count:     count,
		Flag:      types.AddressFlag(flag),
	}, nil
}

// GetWallets has no payload.
type GetWallets struct{}

// ParseGetWallets validates the (empty) GetWallets body.
func ParseGetWallets(data []byte) (GetWallets, error) {
	if len(data) != 0 {
		return GetWallets{}, emuerr.InvalidMsgf("getWallets: want 0 bytes, got %d", len(data))
	}
	return GetWallets{}, nil
}

// GetKvRecords requests up to n records of a given type starting at start.
type GetKvRecords struct {
	Type  uint32
	N     uint8
	Start uint32
}

// ParseGetKvRecords parses the 9-byte GetKvRecords body:
// type(u32 LE) | n(u8) | start(u32 LE).
func ParseGetKvRecords(data []byte) (GetKvRecords, error) {
	if len(data) != 9 {
		return GetKvRecords{}, emuerr.InvalidMsgf("getKvRecords: want 9 bytes, got %d", len(data))
	}
	return GetKvRecords{
		Type:  binary.LittleEndian.Uint32(data[0:4]),
		N:     data[4],
		Start: binary.LittleEndian.Uint32(data[5:9]),
	}, nil
}

// KvRecord is one key/value record as carried on the wire.
type KvRecord struct {
	ID            uint32
	Type          uint32
	CaseSensitive bool
	Key           string
	Value         string
}

const kvFieldCap = 64

// AddKvRecords adds the given records to the store.
type AddKvRecords struct {
	Records []KvRecord
}

// ParseAddKvRecords parses count × [id(u32 BE) | type(u32 BE) |
// case_sensitive(u8) | key_len(u8) | key(64) | val_len(u8) | val(64)],
// prefixed by a one-byte count.
func ParseAddKvRecords(data []byte) (AddKvRecords, error) {
	if len(data) < 1 {
		return AddKvRecords{}, emuerr.InvalidMsgf("addKvRecords: empty body")
	}
	count := int(data[0])
	const entrySize = 4 + 4 + 1 + 1 + kvFieldCap + 1 + kvFieldCap
	want := 1 + count*entrySize
	if len(data) < want {
		return AddKvRecords{}, emuerr.InvalidMsgf("addKvRecords: want at least %d bytes for count=%d, got %d", want, count, len(data))
	}

	records := make([]KvRecord, 0, count)
	off := 1
	for i := 0; i < count; i++ {
		id := binary.BigEndian.Uint32(data[off : off+4])
		off += 4
		typ := binary.BigEndian.Uint32(data[off : off+4])
		off += 4
		caseSensitive := data[off] != 0
		off++
		keyLen := int(data[off])
		off++
		if keyLen > kvFieldCap {
			return AddKvRecords{}, emuerr.InvalidMsgf("addKvRecords: key_len %d exceeds %d", keyLen, kvFieldCap)
		}
		key := string(data[off : off+keyLen])
		off += kvFieldCap
		valLen := int(data[off])
		off++
		if valLen > kvFieldCap {
			return AddKvRecords{}, emuerr.InvalidMsgf("addKvRecords: val_len %d exceeds %d", valLen, kvFieldCap)
		}
		val := string(data[off : off+valLen])
		off += kvFieldCap

		records = append(records, KvRecord{
			ID:            id,
			Type:          typ,
			CaseSensitive: caseSensitive,
			Key:           key,
			Value:         val,
		})
	}
	return AddKvRecords{Records: records}, nil
}

// RemoveKvRecords removes the given ids of the given type.
type RemoveKvRecords struct {
	Type uint32
	IDs  []uint32
}

// ParseRemoveKvRecords parses type(u32 LE) | n(u8) | n × id(u32 LE).
func ParseRemoveKvRecords(data []byte) (RemoveKvRecords, error) {
	if len(data) < 5 {
		return RemoveKvRecords{}, emuerr.InvalidMsgf("removeKvRecords: want at least 5 bytes, got %d", len(data))
	}
	typ := binary.LittleEndian.Uint32(data[0:4])
	n := int(data[4])
	want := 5 + n*4
	if len(data) < want {
		return RemoveKvRecords{}, emuerr.InvalidMsgf("removeKvRecords: want at least %d bytes for n=%d, got %d", want, n, len(data))
	}
	ids := make([]uint32, n)
	off := 5
	for i := 0; i < n; i++ {
		ids[i] = binary.LittleEndian.Uint32(data[off : off+4])
		off += 4
	}
	return RemoveKvRecords{Type: typ, IDs: ids}, nil
}

// FetchEncryptedData requests a diagnostic export under a derivation path.
type FetchEncryptedData struct {
	Schema    types.Schema
	WalletUID []byte
	Path      types.Path
	Params    []byte
}

// ParseFetchEncryptedData parses schema(u8) | wallet_uid(32) |
// path_depth(u8) | 5 × u32 LE path | params(rest).
func ParseFetchEncryptedData(data []byte) (FetchEncryptedData, error) {
	const head = 1 + 32 + 1 + types.PathSegments*4
	if len(data) < head {
		return FetchEncryptedData{}, emuerr.InvalidMsgf("fetchEncryptedData: want at least %d bytes, got %d", head, len(data))
	}
	schema := types.Schema(data[0])
	uid := make([]byte, 32)
	copy(uid, data[1:33])
	depth := data[33]

	var path types.Path
	path.Depth = depth
	off := 34
	for i := 0; i < types.PathSegments; i++ {
		path.Segments[i] = binary.LittleEndian.Uint32(data[off : off+4])
		off += 4
	}

	params := make([]byte, len(data)-off)
	copy(params, data[off:])

	return FetchEncryptedData{Schema: schema, WalletUID: uid, Path: path, Params: params}, nil
}

// Test carries a diagnostic wallet-job blob; the core treats its contents
// as opaque and simply echoes a well-formed response.
type Test struct {
	Payload []byte
}

// ParseTest accepts any body as an opaque diagnostic payload.
func ParseTest(data []byte) (Test, error) {
	payload := make([]byte, len(data))
	copy(payload, data)
	return Test{Payload: payload}, nil
}

func trimNull(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
