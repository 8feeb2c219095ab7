package device

import (
	"crypto/rand"
	"time"

	"github.com/arcsign/hsmemu/internal/emu/types"
)

// Config carries the process-wide configuration surface a Device is
// constructed with: one struct, one constructor returning field-by-field
// defaults.
type Config struct {
	AutoApprove       bool
	FirmwareVersion   types.Firmware
	DeviceID          [32]byte
	PairingCode       string
	PairingTimeoutMS  int
	ApprovalTimeoutMS int
}

// DefaultConfig returns the configuration surface's documented defaults. A
// fresh random DeviceID is generated since there is no meaningful static
// default for it.
func DefaultConfig() Config {
	var id [32]byte
	_, _ = rand.Read(id[:])
	return Config{
		AutoApprove:       false,
		FirmwareVersion:   types.DefaultFirmware,
		DeviceID:          id,
		PairingCode:       "12345678",
		PairingTimeoutMS:  60000,
		ApprovalTimeoutMS: 300000,
	}
}

func (c Config) pairingTimeout() time.Duration {
	return time.Duration(c.PairingTimeoutMS) * time.Millisecond
}

func (c Config) approvalTimeout() time.Duration {
	return time.Duration(c.ApprovalTimeoutMS) * time.Millisecond
}
