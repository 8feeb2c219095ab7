package hd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/anyproto/go-slip10"

	"github.com/arcsign/hsmemu/internal/emu/types"
)

// DeriveEd25519 walks a SLIP-10 path from a 64-byte seed. Every segment is
// forced hardened regardless of its HardenedOffset bit, per SLIP-10's
// ed25519 rule that only hardened derivation is defined.
func DeriveEd25519(seed []byte, path types.Path) (publicKey, privateKey []byte, err error) {
	node, err := slip10.DeriveForPath(pathString(path), seed)
	if err != nil {
		return nil, nil, fmt.Errorf("ed25519 slip-10 derive: %w", err)
	}
	pub, priv := node.Keypair()
	return pub, priv, nil
}

// pathString renders a wire Path as an all-hardened SLIP-10 path string.
func pathString(path types.Path) string {
	var b strings.Builder
	b.WriteString("m")
	for _, seg := range path.Active() {
		index := seg
		if index >= types.HardenedOffset {
			index -= types.HardenedOffset
		}
		b.WriteString("/")
		b.WriteString(strconv.FormatUint(uint64(index), 10))
		b.WriteString("'")
	}
	if path.Depth == 0 {
		return "m"
	}
	return b.String()
}
