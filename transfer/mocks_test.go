package transfer

import (
	"bytes"
	"errors"
	"sync"
)

// mockSource implements ByteSource over in-memory content, with
// scriptable failures for specific chunk indexes.
type mockSource struct {
	mu       sync.Mutex
	content  map[string][]byte
	reads    int
	failures map[int]error // read ordinal (0-based) -> injected error
	short    bool          // return one byte fewer than requested
}

func newMockSource() *mockSource {
	return &mockSource{
		content:  make(map[string][]byte),
		failures: make(map[int]error),
	}
}

func (m *mockSource) add(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content[name] = data
}

// failOn makes the nth call to ReadRange (0-based, counted across all
// sources) return err.
func (m *mockSource) failOn(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[n] = err
}

func (m *mockSource) readCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

func (m *mockSource) ReadRange(name string, left, right int64) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ordinal := m.reads
	m.reads++

	if err, ok := m.failures[ordinal]; ok {
		return nil, err
	}

	data, ok := m.content[name]
	if !ok {
		return nil, errors.New("unknown source name")
	}
	if right > int64(len(data)) {
		return nil, errors.New("range beyond source length")
	}

	chunk := make([]byte, right-left)
	copy(chunk, data[left:right])
	if m.short && len(chunk) > 0 {
		chunk = chunk[:len(chunk)-1]
	}
	return chunk, nil
}

// mockSink implements ChunkSink, recording every session it opens.
type mockSink struct {
	mu        sync.Mutex
	sessions  []*mockSession
	openErr   error
	writeErrs map[int]error // inherited by every opened session
}

func newMockSink() *mockSink {
	return &mockSink{}
}

// failWrite makes the nth WriteChunk (0-based) of every future session
// return err.
func (m *mockSink) failWrite(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErrs == nil {
		m.writeErrs = make(map[int]error)
	}
	m.writeErrs[n] = err
}

func (m *mockSink) Open(name string) (SinkSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openErr != nil {
		return nil, m.openErr
	}
	s := &mockSession{name: name}
	for n, err := range m.writeErrs {
		s.failWrite(n, err)
	}
	m.sessions = append(m.sessions, s)
	return s, nil
}

func (m *mockSink) session(i int) *mockSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i >= len(m.sessions) {
		return nil
	}
	return m.sessions[i]
}

func (m *mockSink) sessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// mockSession records chunk writes and close calls.
type mockSession struct {
	mu        sync.Mutex
	name      string
	buf       bytes.Buffer
	writes    int
	closes    int
	writeErrs map[int]error // write ordinal -> injected error
}

func (s *mockSession) failWrite(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErrs == nil {
		s.writeErrs = make(map[int]error)
	}
	s.writeErrs[n] = err
}

func (s *mockSession) WriteChunk(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ordinal := s.writes
	s.writes++
	if err, ok := s.writeErrs[ordinal]; ok {
		return err
	}
	s.buf.Write(chunk)
	return nil
}

func (s *mockSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *mockSession) bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.buf.Bytes()...)
}

func (s *mockSession) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}
