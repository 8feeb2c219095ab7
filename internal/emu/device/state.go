package device

import "github.com/arcsign/hsmemu/internal/emu/types"

// State is the snapshot a persistence collaborator serializes and hands
// back across process restarts. KV records are not part of it: they live
// in whatever Store the collaborator constructed the device with, and
// persist (or not) with that store.
type State struct {
	Paired   bool
	DeviceID [32]byte
	Firmware types.Firmware
}

// SnapshotState returns the persistable subset of the device's state.
func (d *Device) SnapshotState() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return State{Paired: d.paired, DeviceID: d.id, Firmware: d.firmware}
}

// RestoreState reinstates a previously snapshotted state. The session is
// not restorable: its ephemerals are meaningful only to the client that
// negotiated them, so a restored device always starts disconnected and
// the client re-runs Connect (skipping pairing mode when Paired is set).
func (d *Device) RestoreState(s State) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paired = s.Paired
	d.id = s.DeviceID
	d.firmware = s.Firmware
	d.sess = session{}
	d.pairingMode = false
	d.emit(EventPairingChanged, "paired", d.paired)
}
