// Package kvstore defines the abstract key/value record store the device
// state machine calls into for GetKvRecords/AddKvRecords/RemoveKvRecords,
// plus an in-memory fallback used when no collaborator is supplied.
package kvstore

import (
	"fmt"
	"sort"
	"sync"
)

// Record is one stored key/value entry.
type Record struct {
	ID            uint32
	Type          uint32
	CaseSensitive bool
	Key           string
	Value         string
}

// Store abstracts key/value persistence for the device core.
//
// Contract:
//   - List MUST return records of the given type in ascending ID order,
//     starting at the first record whose ID is >= start, capped at n.
//   - Add MUST assign no IDs itself; callers supply fully-formed records.
//   - Remove MUST silently ignore ids that don't exist.
//   - Implementations MUST be safe for concurrent use; the device still
//     serializes calls under its own lock, but a Store may be shared.
type Store interface {
	List(recordType uint32, n uint8, start uint32) (records []Record, total uint32, fetched uint8, err error)
	Add(records []Record) error
	Remove(recordType uint32, ids []uint32) error
}

// Memory is the in-memory fallback Store, used when the core's configured
// KvStore collaborator fails or none is supplied.
type Memory struct {
	mu      sync.RWMutex
	records map[uint32]Record
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[uint32]Record)}
}

// List returns up to n records of recordType with ID >= start, in
// ascending ID order.
func (m *Memory) List(recordType uint32, n uint8, start uint32) ([]Record, uint32, uint8, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matching []Record
	for _, r := range m.records {
		if r.Type == recordType && r.ID >= start {
			matching = append(matching, r)
		}
	}
	sort.Slice(matching, func(i, j int) bool { return matching[i].ID < matching[j].ID })

	total := uint32(len(matching))
	if int(n) < len(matching) {
		matching = matching[:n]
	}
	return matching, total, uint8(len(matching)), nil
}

// Add inserts or replaces records by ID.
func (m *Memory) Add(records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.records[r.ID] = r
	}
	return nil
}

// Remove deletes the given ids of recordType, ignoring ids that don't
// exist or belong to a different type.
func (m *Memory) Remove(recordType uint32, ids []uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if r, ok := m.records[id]; ok && r.Type == recordType {
			delete(m.records, id)
		}
	}
	return nil
}

var _ Store = (*Memory)(nil)

// ErrUnavailable is returned by a collaborator Store that could not
// service a request and wants the device to fall back to Memory.
var ErrUnavailable = fmt.Errorf("kvstore: collaborator unavailable")
