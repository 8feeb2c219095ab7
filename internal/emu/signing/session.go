package signing

import (
	"crypto/rand"
	"fmt"

	"github.com/arcsign/hsmemu/internal/emu/ethtx"
	"github.com/arcsign/hsmemu/internal/emu/types"
)

// MultipartSession accumulates the chunks of a sign request that arrived
// over more than one frame.
type MultipartSession struct {
	Schema     types.Schema
	Curve      types.Curve
	Encoding   types.Encoding
	HashType   types.HashType
	OmitPubkey bool
	Path       types.Path

	ExpectedLength  int
	CollectedLength int
	MessageChunks   [][]byte
	DecoderChunks   [][]byte

	NextCode [8]byte

	// EthMeta is set only when this session carries an Ethereum
	// transaction; it supplies everything the preimage builder needs
	// besides the accumulated data bytes.
	EthMeta *ethtx.Meta
}

// Manager owns the live multipart sessions for one device. It does no
// locking of its own — callers (the device state machine) serialize
// access under their own exclusive lock.
type Manager struct {
	sessions map[[8]byte]*MultipartSession
}

// NewManager returns an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[[8]byte]*MultipartSession)}
}

// Create stores session under a freshly generated random next-code and
// returns it.
func (m *Manager) Create(session *MultipartSession) ([8]byte, error) {
	code, err := randomCode()
	if err != nil {
		return [8]byte{}, err
	}
	session.NextCode = code
	m.sessions[code] = session
	return code, nil
}

// Take removes and returns the session stored under code, if any.
func (m *Manager) Take(code [8]byte) (*MultipartSession, bool) {
	s, ok := m.sessions[code]
	if ok {
		delete(m.sessions, code)
	}
	return s, ok
}

// Reinsert mints a new next-code for session (which must already have been
// removed via Take) and stores it under that code.
func (m *Manager) Reinsert(session *MultipartSession) ([8]byte, error) {
	return m.Create(session)
}

// Clear drops all live sessions (used by device Reset).
func (m *Manager) Clear() {
	m.sessions = make(map[[8]byte]*MultipartSession)
}

// Len reports the number of live sessions, for tests and diagnostics.
func (m *Manager) Len() int {
	return len(m.sessions)
}

func randomCode() ([8]byte, error) {
	var code [8]byte
	if _, err := rand.Read(code[:]); err != nil {
		return code, fmt.Errorf("signing: generate next_code: %w", err)
	}
	return code, nil
}

// AppendChunk splits frame into up to (ExpectedLength - CollectedLength)
// message bytes, with the remainder treated as a decoder-suffix chunk
// (ignored by the signer, kept for future diagnostic output).
func (s *MultipartSession) AppendChunk(frame []byte) {
	remaining := s.ExpectedLength - s.CollectedLength
	if remaining < 0 {
		remaining = 0
	}
	n := len(frame)
	if n > remaining {
		n = remaining
	}

	if n > 0 {
		msg := make([]byte, n)
		copy(msg, frame[:n])
		s.MessageChunks = append(s.MessageChunks, msg)
		s.CollectedLength += n
	}

	if n < len(frame) {
		suffix := make([]byte, len(frame)-n)
		copy(suffix, frame[n:])
		s.DecoderChunks = append(s.DecoderChunks, suffix)
	}
}

// FullData concatenates the collected message chunks, capped at
// ExpectedLength.
func (s *MultipartSession) FullData() []byte {
	out := make([]byte, 0, s.CollectedLength)
	for _, c := range s.MessageChunks {
		out = append(out, c...)
	}
	if len(out) > s.ExpectedLength {
		out = out[:s.ExpectedLength]
	}
	return out
}
