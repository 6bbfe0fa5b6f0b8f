// Package transfer implements pull-based, acknowledgement-gated chunk
// delivery from a byte source to a durable sink.
//
// A large byte source is split into fixed-size chunks that a consumer
// retrieves one at a time, confirming receipt of each chunk before the
// next becomes available. This single-outstanding-chunk windowing bounds
// memory use and lets the acknowledgement signal double as backpressure
// toward a downstream channel that has no flow control of its own.
//
// # Overview
//
// The transfer package provides three primary components:
//
//   - Store: Registry of in-flight transfer windows, the read/acknowledge
//     protocol surface, and a synchronous event stream
//   - Driver: Orchestration loop that drives each registered source to
//     exhaustion through a ChunkSink with a bounded retry budget
//   - ByteSource / ChunkSink: Capability interfaces for the byte-range
//     read primitive and the scoped sequential write session
//
// # Basic Usage
//
// Register a source and let a driver pump it into a sink:
//
//	store := transfer.NewStore(source, transfer.DefaultChunkSize)
//	driver := transfer.NewDriver(store, sink)
//	defer driver.Close()
//
//	driver.OnDone(func(key transfer.SourceKey, err error) {
//	    if err != nil {
//	        log.Printf("transfer %s failed: %v", key, err)
//	    }
//	})
//
//	store.Register("report.pdf", size)
//
// # Protocol
//
// Each source carries a half-open window [left, right) of at most one
// chunk. ReadChunk returns the windowed bytes without mutating state, so
// re-reading before acknowledgement yields the same bytes. Only
// AcknowledgeChunk advances the window; when left == right == totalLength
// the source is exhausted and further reads fail with ErrEndOfData.
package transfer
