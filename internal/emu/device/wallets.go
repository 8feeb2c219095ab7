package device

import (
	"github.com/arcsign/hsmemu/internal/emu/reqparse"
	"github.com/arcsign/hsmemu/internal/emu/respbuild"
)

// getWalletsLocked implements GetWallets: no payload in, two 71-byte
// wallet descriptors out (internal then external).
func (d *Device) getWalletsLocked(body []byte) ([]byte, error) {
	if _, err := reqparse.ParseGetWallets(body); err != nil {
		return nil, err
	}
	return respbuild.BuildGetWalletsResponse(d.internalWallet, d.externalWallet), nil
}
