package device

import (
	"github.com/arcsign/hsmemu/internal/emu/addrcodec"
	"github.com/arcsign/hsmemu/internal/emu/curve"
	"github.com/arcsign/hsmemu/internal/emu/emuerr"
	"github.com/arcsign/hsmemu/internal/emu/hd"
	"github.com/arcsign/hsmemu/internal/emu/reqparse"
	"github.com/arcsign/hsmemu/internal/emu/respbuild"
	"github.com/arcsign/hsmemu/internal/emu/types"
)

// SLIP-44 coin types (path segment 1, hardened), the subset this device
// derives human-readable addresses for.
const (
	coinTypeBitcoin  = 0
	coinTypeTestnet  = 1
	coinTypeEthereum = 60
	coinTypeCosmos   = 118
	coinTypeSolana   = 501
)

// getAddressesLocked implements GetAddresses: derives Count consecutive
// addresses or raw keys starting at Path, incrementing the path segment
// named by IterIdx for each successive one. Which chain's address format
// to emit for FlagAddress is inferred from the BIP-44 purpose (segment 0)
// and coin_type (segment 1) the caller supplied, since the request
// carries no separate chain selector.
func (d *Device) getAddressesLocked(body []byte) ([]byte, error) {
	req, err := reqparse.ParseGetAddresses(body)
	if err != nil {
		return nil, err
	}
	if req.Count == 0 {
		return nil, emuerr.InvalidMsg("getAddresses: count must be at least 1")
	}
	if int(req.IterIdx) >= types.PathSegments {
		return nil, emuerr.InvalidMsgf("getAddresses: iter_idx %d out of range", req.IterIdx)
	}

	slots := make([]respbuild.AddressSlot, req.Count)
	for i := 0; i < int(req.Count); i++ {
		path := req.Path
		path.Segments[req.IterIdx] += uint32(i)

		slot, err := d.deriveAddressSlot(path, req.Flag)
		if err != nil {
			return nil, err
		}
		slots[i] = slot
	}

	return respbuild.BuildGetAddressesResponse(req.Flag, slots)
}

func (d *Device) deriveAddressSlot(path types.Path, flag types.AddressFlag) (respbuild.AddressSlot, error) {
	switch flag {
	case types.FlagAddress:
		addr, err := d.deriveChainAddress(path)
		if err != nil {
			return respbuild.AddressSlot{}, err
		}
		return respbuild.AddressSlot{Address: addr}, nil

	case types.FlagSecp256k1Pubkey:
		extKey, err := hd.DeriveSecp256k1(d.seed, path)
		if err != nil {
			return respbuild.AddressSlot{}, emuerr.Internal("getAddresses: derive secp256k1", err)
		}
		pub, err := extKey.ECPubKey()
		if err != nil {
			return respbuild.AddressSlot{}, emuerr.Internal("getAddresses: secp256k1 pubkey", err)
		}
		return respbuild.AddressSlot{Raw: pub.SerializeUncompressed()}, nil

	case types.FlagEd25519Pubkey:
		pub, _, err := hd.DeriveEd25519(d.seed, path)
		if err != nil {
			return respbuild.AddressSlot{}, emuerr.Internal("getAddresses: derive ed25519", err)
		}
		return respbuild.AddressSlot{Raw: pub}, nil

	case types.FlagBLS12381Pubkey:
		if err := d.requireFirmware(types.FirmwareBLS12_381, "bls12_381 addresses"); err != nil {
			return respbuild.AddressSlot{}, err
		}
		sk, err := hd.DeriveBLS(d.seed, path)
		if err != nil {
			return respbuild.AddressSlot{}, emuerr.Internal("getAddresses: derive bls12_381", err)
		}
		_, pub := curve.SignBLS(sk, nil)
		return respbuild.AddressSlot{Raw: pub}, nil

	case types.FlagSecp256k1Xpub:
		extKey, err := hd.DeriveSecp256k1(d.seed, path)
		if err != nil {
			return respbuild.AddressSlot{}, emuerr.Internal("getAddresses: derive secp256k1", err)
		}
		addrType, testnet := bitcoinAddressType(path)
		xpub, err := addrcodec.ExtendedPublicKey(extKey, addrType, testnet)
		if err != nil {
			return respbuild.AddressSlot{}, emuerr.Internal("getAddresses: extended pubkey", err)
		}
		return respbuild.AddressSlot{Raw: []byte(xpub)}, nil

	default:
		return respbuild.AddressSlot{}, emuerr.InvalidMsgf("getAddresses: unknown flag %d", flag)
	}
}

func (d *Device) deriveChainAddress(path types.Path) (string, error) {
	switch coinType(path) {
	case coinTypeEthereum:
		extKey, err := hd.DeriveSecp256k1(d.seed, path)
		if err != nil {
			return "", emuerr.Internal("getAddresses: derive ethereum key", err)
		}
		privKey, err := extKey.ECPrivKey()
		if err != nil {
			return "", emuerr.Internal("getAddresses: ethereum private key", err)
		}
		_, uncompressed := curve.PublicKeyFromPrivate(privKey.Serialize())
		return addrcodec.EthereumAddress(uncompressed, true)

	case coinTypeSolana:
		pub, _, err := hd.DeriveEd25519(d.seed, path)
		if err != nil {
			return "", emuerr.Internal("getAddresses: derive solana key", err)
		}
		return addrcodec.SolanaAddress(pub)

	case coinTypeCosmos:
		extKey, err := hd.DeriveSecp256k1(d.seed, path)
		if err != nil {
			return "", emuerr.Internal("getAddresses: derive cosmos key", err)
		}
		pub, err := extKey.ECPubKey()
		if err != nil {
			return "", emuerr.Internal("getAddresses: cosmos pubkey", err)
		}
		return addrcodec.CosmosAddress(pub.SerializeCompressed(), addrcodec.CosmosHRP("ATOM"))

	default:
		extKey, err := hd.DeriveSecp256k1(d.seed, path)
		if err != nil {
			return "", emuerr.Internal("getAddresses: derive bitcoin key", err)
		}
		pub, err := extKey.ECPubKey()
		if err != nil {
			return "", emuerr.Internal("getAddresses: bitcoin pubkey", err)
		}
		addrType, testnet := bitcoinAddressType(path)
		return addrcodec.BitcoinAddress(pub.SerializeCompressed(), addrType, testnet)
	}
}

// coinType extracts the unhardened coin_type (BIP-44 path segment 1).
func coinType(path types.Path) uint32 {
	if path.Depth < 2 {
		return coinTypeBitcoin
	}
	seg := path.Segments[1]
	if seg >= types.HardenedOffset {
		seg -= types.HardenedOffset
	}
	return seg
}

// bitcoinAddressType maps the BIP-44 purpose (path segment 0) onto a
// script type, defaulting to legacy P2PKH for any purpose this device
// doesn't recognize. testnet is true when coin_type is SLIP-44's Bitcoin
// testnet entry (1').
func bitcoinAddressType(path types.Path) (addrcodec.BitcoinAddressType, bool) {
	testnet := coinType(path) == coinTypeTestnet

	purpose := uint32(44)
	if path.Depth >= 1 {
		purpose = path.Segments[0]
		if purpose >= types.HardenedOffset {
			purpose -= types.HardenedOffset
		}
	}

	switch purpose {
	case 49:
		return addrcodec.BitcoinP2SHP2WPKH, testnet
	case 84:
		return addrcodec.BitcoinP2WPKH, testnet
	default:
		return addrcodec.BitcoinP2PKH, testnet
	}
}
