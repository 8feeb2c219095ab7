package device

import (
	"errors"

	"go.uber.org/zap"

	"github.com/arcsign/hsmemu/internal/emu/emuerr"
	"github.com/arcsign/hsmemu/internal/emu/kvstore"
	"github.com/arcsign/hsmemu/internal/emu/reqparse"
	"github.com/arcsign/hsmemu/internal/emu/respbuild"
	"github.com/arcsign/hsmemu/internal/emu/types"
)

const maxKvFetchCount = 10

// withKvFallback runs op against the configured store. If the
// collaborator fails (kvstore.ErrUnavailable or any other error), the
// device swaps in a fresh in-memory store with the same contract and
// retries once; the fallback then stays in place for the rest of the
// device's life. Must be called with d.mu held.
func (d *Device) withKvFallback(op func(kvstore.Store) error) error {
	err := op(d.kv)
	if err == nil {
		return nil
	}
	if _, ok := d.kv.(*kvstore.Memory); ok {
		return err
	}
	d.logger.Warn("kv store collaborator failed, falling back to in-memory store",
		zap.Bool("unavailable", errors.Is(err, kvstore.ErrUnavailable)), zap.Error(err))
	d.kv = kvstore.NewMemory()
	return op(d.kv)
}

// getKvRecordsLocked implements GetKvRecords: n must be in [1, 10].
func (d *Device) getKvRecordsLocked(body []byte) ([]byte, error) {
	if err := d.requireFirmware(types.FirmwareKVRecords, "kv records"); err != nil {
		return nil, err
	}
	req, err := reqparse.ParseGetKvRecords(body)
	if err != nil {
		return nil, err
	}
	if req.N == 0 || req.N > maxKvFetchCount {
		return nil, emuerr.InvalidMsgf("getKvRecords: n must be in [1, %d], got %d", maxKvFetchCount, req.N)
	}

	var (
		records []kvstore.Record
		total   uint32
		fetched uint8
	)
	err = d.withKvFallback(func(s kvstore.Store) error {
		var lerr error
		records, total, fetched, lerr = s.List(req.Type, req.N, req.Start)
		return lerr
	})
	if err != nil {
		return nil, emuerr.Internal("getKvRecords: store list", err)
	}

	out := make([]respbuild.KvRecordOut, len(records))
	for i, r := range records {
		out[i] = respbuild.KvRecordOut{ID: r.ID, Type: r.Type, CaseSensitive: r.CaseSensitive, Key: r.Key, Value: r.Value}
	}

	d.emit(EventKVRecordsFetched, "type", req.Type, "fetched", fetched)
	return respbuild.BuildGetKvRecordsResponse(total, out)
}

// addKvRecordsLocked implements AddKvRecords: duplicate keys (within the
// same type) yield Already.
func (d *Device) addKvRecordsLocked(body []byte) ([]byte, error) {
	if err := d.requireFirmware(types.FirmwareKVRecords, "kv records"); err != nil {
		return nil, err
	}
	req, err := reqparse.ParseAddKvRecords(body)
	if err != nil {
		return nil, err
	}
	if len(req.Records) == 0 {
		return nil, emuerr.InvalidMsg("addKvRecords: empty record set")
	}

	for _, rec := range req.Records {
		var existing []kvstore.Record
		err = d.withKvFallback(func(s kvstore.Store) error {
			var lerr error
			existing, _, _, lerr = s.List(rec.Type, 255, 0)
			return lerr
		})
		if err != nil {
			return nil, emuerr.Internal("addKvRecords: store list", err)
		}
		for _, ex := range existing {
			if ex.Type == rec.Type && keysMatch(ex, rec) {
				return nil, emuerr.Already("addKvRecords: key already exists")
			}
		}
	}

	records := make([]kvstore.Record, len(req.Records))
	for i, r := range req.Records {
		records[i] = kvstore.Record{ID: r.ID, Type: r.Type, CaseSensitive: r.CaseSensitive, Key: r.Key, Value: r.Value}
	}
	if err := d.withKvFallback(func(s kvstore.Store) error { return s.Add(records) }); err != nil {
		return nil, emuerr.Internal("addKvRecords: store add", err)
	}

	d.emit(EventKVRecordsAdded, "count", len(records))
	return respbuild.BuildEmptyResponse(), nil
}

func keysMatch(existing kvstore.Record, incoming reqparse.KvRecord) bool {
	if existing.CaseSensitive || incoming.CaseSensitive {
		return existing.Key == incoming.Key
	}
	return equalFold(existing.Key, incoming.Key)
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// removeKvRecordsLocked implements RemoveKvRecords.
func (d *Device) removeKvRecordsLocked(body []byte) ([]byte, error) {
	if err := d.requireFirmware(types.FirmwareKVRecords, "kv records"); err != nil {
		return nil, err
	}
	req, err := reqparse.ParseRemoveKvRecords(body)
	if err != nil {
		return nil, err
	}
	if err := d.withKvFallback(func(s kvstore.Store) error { return s.Remove(req.Type, req.IDs) }); err != nil {
		return nil, emuerr.Internal("removeKvRecords: store remove", err)
	}
	d.emit(EventKVRecordsRemoved, "type", req.Type, "count", len(req.IDs))
	return respbuild.BuildEmptyResponse(), nil
}
