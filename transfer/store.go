package transfer

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultChunkSize is the window size used when NewStore is given a
// non-positive chunk size.
const DefaultChunkSize = 16 * 1024

// SourceKey uniquely identifies a registered source. The key embeds the
// source's base name and registration time for readability plus a UUID
// so that two registrations can never collide.
type SourceKey string

// newSourceKey derives a process-unique key for a source name.
func newSourceKey(name string) SourceKey {
	return SourceKey(fmt.Sprintf("%s-%d-%s",
		filepath.Base(name), time.Now().UnixMilli(), uuid.New().String()))
}

// Store is the registry of in-flight transfer windows and the only
// writer of window state. It is safe for concurrent use by multiple
// driver loops plus the registering caller; mutations are serialized
// per key by each window's own lock, never by a global lock across
// unrelated sources.
type Store struct {
	source    ByteSource
	chunkSize int64
	events    *observers

	mu      sync.RWMutex
	windows map[SourceKey]*window
}

// NewStore creates a transfer store backed by the given byte source.
// chunkSize is fixed for the store's lifetime; a non-positive value
// falls back to DefaultChunkSize.
func NewStore(source ByteSource, chunkSize int64) *Store {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	logrus.WithFields(logrus.Fields{
		"function":   "NewStore",
		"chunk_size": chunkSize,
	}).Info("Creating transfer store")

	return &Store{
		source:    source,
		chunkSize: chunkSize,
		events:    newObservers(),
		windows:   make(map[SourceKey]*window),
	}
}

// Register creates a transfer window for a source of totalLength bytes,
// publishes a registered event, and returns the new key. There is no
// error path; a zero-length source is legal and immediately terminal.
func (s *Store) Register(name string, totalLength int64) SourceKey {
	key := newSourceKey(name)
	w := newWindow(name, totalLength, s.chunkSize)

	s.mu.Lock()
	s.windows[key] = w
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":     "Register",
		"source_key":   key,
		"source_name":  name,
		"total_length": totalLength,
	}).Info("Source registered for transfer")

	s.events.publish(Event{Key: key, Kind: EventRegistered})
	return key
}

// lookup returns the window for key, if any.
func (s *Store) lookup(key SourceKey) (*window, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.windows[key]
	return w, ok
}

// HasNext reports whether a chunk remains for key. An unknown key
// yields false, not an error.
func (s *Store) HasNext(key SourceKey) bool {
	w, ok := s.lookup(key)
	if !ok {
		return false
	}
	return w.hasNext()
}

// ReadChunk returns the bytes of the current window without advancing
// it, so re-reading before acknowledgement returns the same bytes. It
// fails with ErrNoSuchSource for an unknown key, ErrEndOfData at the
// terminal window, and ErrSourceRead when the byte source cannot
// produce the full range.
func (s *Store) ReadChunk(key SourceKey) ([]byte, error) {
	w, ok := s.lookup(key)
	if !ok {
		logrus.WithFields(logrus.Fields{
			"function":   "ReadChunk",
			"source_key": key,
		}).Warn("Read requested for unknown source key")
		return nil, ErrNoSuchSource
	}

	left, right, ok := w.span()
	if !ok {
		return nil, ErrEndOfData
	}

	if s.source == nil {
		return nil, fmt.Errorf("%w: no byte source configured", ErrSourceRead)
	}

	chunk, err := s.source.ReadRange(w.name, left, right)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "ReadChunk",
			"source_key": key,
			"left":       left,
			"right":      right,
			"error":      err.Error(),
		}).Error("Byte source failed to produce chunk")
		return nil, fmt.Errorf("%w: %v", ErrSourceRead, err)
	}

	if int64(len(chunk)) != right-left {
		logrus.WithFields(logrus.Fields{
			"function":   "ReadChunk",
			"source_key": key,
			"want_bytes": right - left,
			"got_bytes":  len(chunk),
		}).Error("Byte source returned wrong-length chunk")
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrSourceRead, len(chunk), right-left)
	}

	logrus.WithFields(logrus.Fields{
		"function":   "ReadChunk",
		"source_key": key,
		"left":       left,
		"right":      right,
	}).Debug("Chunk read")

	s.events.publish(Event{Key: key, Kind: EventChunkRead})
	return chunk, nil
}

// AcknowledgeChunk confirms the current chunk was durably handled and
// advances the window. It is the only mutating operation and must be
// called at most once per delivered chunk; a second call for the same
// chunk silently advances past unread data. It fails with
// ErrNoSuchSource for an unknown key and ErrEndOfData when nothing
// remains to acknowledge.
func (s *Store) AcknowledgeChunk(key SourceKey) error {
	w, ok := s.lookup(key)
	if !ok {
		logrus.WithFields(logrus.Fields{
			"function":   "AcknowledgeChunk",
			"source_key": key,
		}).Warn("Acknowledge requested for unknown source key")
		return ErrNoSuchSource
	}

	if err := w.advance(); err != nil {
		return err
	}

	p := w.progress()
	logrus.WithFields(logrus.Fields{
		"function":   "AcknowledgeChunk",
		"source_key": key,
		"left":       p.Left,
		"right":      p.Right,
		"done":       p.Done,
	}).Debug("Chunk acknowledged, window advanced")

	s.events.publish(Event{Key: key, Kind: EventChunkAcknowledged})
	return nil
}

// Progress returns a snapshot of the window position for key.
func (s *Store) Progress(key SourceKey) (Progress, error) {
	w, ok := s.lookup(key)
	if !ok {
		return Progress{}, ErrNoSuchSource
	}
	return w.progress(), nil
}

// Remove evicts the window for key, reporting whether it existed.
// Completed windows are retained until removed so callers can inspect
// final state.
func (s *Store) Remove(key SourceKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.windows[key]; !ok {
		return false
	}
	delete(s.windows, key)

	logrus.WithFields(logrus.Fields{
		"function":   "Remove",
		"source_key": key,
	}).Info("Transfer window removed")
	return true
}

// Subscribe registers a callback invoked synchronously, in subscription
// order, for every published event. The returned function removes the
// subscription; calling it during event delivery does not affect the
// in-flight delivery pass.
func (s *Store) Subscribe(cb EventCallback) func() {
	return s.events.add(cb)
}
