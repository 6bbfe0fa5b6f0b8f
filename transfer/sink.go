package transfer

// ChunkSink opens scoped write sessions for delivered chunks. A driver
// opens exactly one session per registration and closes it exactly once
// on every exit path, including abandonment.
type ChunkSink interface {
	// Open begins a write session. name is a suggested identifier for
	// the destination, unique per transfer.
	Open(name string) (SinkSession, error)
}

// SinkSession accepts sequential chunk writes for one transfer.
type SinkSession interface {
	// WriteChunk appends a chunk to the session. Writes arrive in
	// order, at most one chunk outstanding.
	WriteChunk(chunk []byte) error

	// Close releases the session. A half-written chunk from a failed
	// WriteChunk is the session's concern to discard or keep.
	Close() error
}

// ChunkSinkFunc is a function type that implements ChunkSink.
type ChunkSinkFunc func(name string) (SinkSession, error)

// Open implements ChunkSink for ChunkSinkFunc.
func (f ChunkSinkFunc) Open(name string) (SinkSession, error) {
	return f(name)
}
