// Package respbuild serializes the device's typed responses into the exact
// byte layout the counterparty expects for each request kind. The frame
// codec (internal/emu/wire) encrypts the result at its serialized length;
// there is no fixed per-type response size to pad to.
package respbuild

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"

	"github.com/arcsign/hsmemu/internal/emu/types"
)

var zeroIV = make([]byte, aes.BlockSize)

// WalletDescriptor is one 71-byte wallet entry: uid(32) |
// capabilities(u32 BE) | name(35, null-padded).
type WalletDescriptor struct {
	UID          [32]byte
	Capabilities uint32
	Name         string
}

const walletDescriptorSize = 32 + 4 + 35

func (w WalletDescriptor) marshal() []byte {
	out := make([]byte, walletDescriptorSize)
	copy(out[0:32], w.UID[:])
	binary.BigEndian.PutUint32(out[32:36], w.Capabilities)
	n := copy(out[36:71], w.Name)
	_ = n
	return out
}

// BuildConnectResponse lays out status(1) | is_paired(1) | ephemeral_pub(65)
// | firmware_version(4) | encrypted_wallet_blob(144). When paired, the
// wallet blob is AES-256-CBC-encrypted (zero IV, shared secret) over a
// 144-byte buffer of two wallet descriptors plus 2 zero padding bytes.
func BuildConnectResponse(isPaired bool, ephemeralPub []byte, firmware types.Firmware, internalWallet, externalWallet WalletDescriptor, sharedSecret [32]byte) ([]byte, error) {
	if len(ephemeralPub) != 65 {
		return nil, fmt.Errorf("respbuild: ephemeral pub must be 65 bytes, got %d", len(ephemeralPub))
	}

	out := make([]byte, 1+1+65+4+144)
	out[0] = 1 // status = success
	if isPaired {
		out[1] = 1
	}
	copy(out[2:67], ephemeralPub)
	out[67] = firmware.Major
	out[68] = firmware.Minor
	out[69] = firmware.Patch
	out[70] = 0

	if isPaired {
		blob, err := encryptedWalletBlob(internalWallet, externalWallet, sharedSecret)
		if err != nil {
			return nil, err
		}
		copy(out[71:215], blob)
	}

	return out, nil
}

func encryptedWalletBlob(internalWallet, externalWallet WalletDescriptor, sharedSecret [32]byte) ([]byte, error) {
	plain := make([]byte, 144)
	copy(plain[0:71], internalWallet.marshal())
	copy(plain[71:142], externalWallet.marshal())
	// bytes [142:144] stay zero.

	block, err := aes.NewCipher(sharedSecret[:])
	if err != nil {
		return nil, fmt.Errorf("respbuild: aes cipher: %w", err)
	}
	out := make([]byte, 144)
	cipher.NewCBCEncrypter(block, zeroIV).CryptBlocks(out, plain)
	return out, nil
}

// BuildGetWalletsResponse lays out two 71-byte wallet descriptors
// (internal then external).
func BuildGetWalletsResponse(internalWallet, externalWallet WalletDescriptor) []byte {
	out := make([]byte, 2*walletDescriptorSize)
	copy(out[0:walletDescriptorSize], internalWallet.marshal())
	copy(out[walletDescriptorSize:], externalWallet.marshal())
	return out
}

// AddressSlot is one derived address or raw key in a GetAddresses response.
type AddressSlot struct {
	Address string // used when Flag == FlagAddress
	Raw     []byte // pubkey/xpub bytes, used for all other flags
}

// BuildGetAddressesResponse serializes n address/pubkey slots per flag.
// FlagAddress and FlagSecp256k1Xpub: n null-terminated 129-byte ASCII
// strings (an xpub/ypub/zpub string comfortably fits the same width as a
// chain address). Otherwise: a leading flag-echo byte, then n 65-byte raw
// key slots (ed25519 left-aligned in 32 bytes, bls12_381 in 48 bytes).
func BuildGetAddressesResponse(flag types.AddressFlag, slots []AddressSlot) ([]byte, error) {
	if flag == types.FlagAddress || flag == types.FlagSecp256k1Xpub {
		out := make([]byte, len(slots)*129)
		for i, slot := range slots {
			text := slot.Address
			if text == "" {
				text = string(slot.Raw)
			}
			if len(text) > 128 {
				return nil, fmt.Errorf("respbuild: address/xpub %q exceeds 128 bytes", text)
			}
			copy(out[i*129:i*129+len(text)], text)
		}
		return out, nil
	}

	out := make([]byte, 1+len(slots)*65)
	out[0] = byte(flag)
	for i, slot := range slots {
		if len(slot.Raw) > 65 {
			return nil, fmt.Errorf("respbuild: raw slot %d exceeds 65 bytes (%d)", i, len(slot.Raw))
		}
		copy(out[1+i*65:1+i*65+len(slot.Raw)], slot.Raw)
	}
	return out, nil
}

// KvRecordOut is one record in a GetKvRecords response.
type KvRecordOut struct {
	ID            uint32
	Type          uint32
	CaseSensitive bool
	Key           string
	Value         string
}

const kvOutFieldCap = 64

// BuildGetKvRecordsResponse lays out total(u32 BE) | fetched(u8) |
// fetched × [id(u32 BE) | type(u32 BE) | case_sensitive(u8) | key_len(u8) |
// key(64) | val_len(u8) | val(64)].
func BuildGetKvRecordsResponse(total uint32, records []KvRecordOut) ([]byte, error) {
	if len(records) > 255 {
		return nil, fmt.Errorf("respbuild: too many records (%d) for a u8 count", len(records))
	}
	entrySize := 4 + 4 + 1 + 1 + kvOutFieldCap + 1 + kvOutFieldCap
	out := make([]byte, 4+1+len(records)*entrySize)

	binary.BigEndian.PutUint32(out[0:4], total)
	out[4] = byte(len(records))

	off := 5
	for _, rec := range records {
		if len(rec.Key) > kvOutFieldCap || len(rec.Value) > kvOutFieldCap {
			return nil, fmt.Errorf("respbuild: key/value exceeds %d bytes", kvOutFieldCap)
		}
		binary.BigEndian.PutUint32(out[off:off+4], rec.ID)
		off += 4
		binary.BigEndian.PutUint32(out[off:off+4], rec.Type)
		off += 4
		if rec.CaseSensitive {
			out[off] = 1
		}
		off++
		out[off] = byte(len(rec.Key))
		off++
		copy(out[off:off+kvOutFieldCap], rec.Key)
		off += kvOutFieldCap
		out[off] = byte(len(rec.Value))
		off++
		copy(out[off:off+kvOutFieldCap], rec.Value)
		off += kvOutFieldCap
	}

	return out, nil
}

// BuildEmptyResponse serializes the empty-payload success response used by
// AddKvRecords and RemoveKvRecords.
func BuildEmptyResponse() []byte {
	return nil
}
