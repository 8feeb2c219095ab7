package device

import (
	"github.com/arcsign/hsmemu/internal/emu/emuerr"
	"github.com/arcsign/hsmemu/internal/emu/reqparse"
)

// fetchEncryptedDataLocked implements FetchEncryptedData. The core decodes
// the envelope to validate it but has no diagnostic export to offer in an
// emulated device, so the body always answers InternalError.
func (d *Device) fetchEncryptedDataLocked(body []byte) ([]byte, error) {
	if _, err := reqparse.ParseFetchEncryptedData(body); err != nil {
		return nil, err
	}
	return nil, emuerr.Internal("fetchEncryptedData: diagnostic export not available", nil)
}

// diagnosticEcho is the fixed response Test answers with, independent of
// the request payload's contents.
var diagnosticEcho = []byte("arcsign-emu-diagnostic-ok")

// testLocked implements Test: the payload is opaque, and the device
// answers with a fixed diagnostic echo.
func (d *Device) testLocked(body []byte) ([]byte, error) {
	if _, err := reqparse.ParseTest(body); err != nil {
		return nil, err
	}
	out := make([]byte, len(diagnosticEcho))
	copy(out, diagnosticEcho)
	return out, nil
}
