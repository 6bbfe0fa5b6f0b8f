package transfer

import "errors"

// ErrNoSuchSource indicates an operation referenced a key with no
// registered window. This is a caller bug or a stale key; the store
// never retries it.
var ErrNoSuchSource = errors.New("no source registered for key")

// ErrEndOfData indicates an operation was attempted past the terminal
// window. This is the expected steady-state condition at the end of a
// transfer, not a bug.
var ErrEndOfData = errors.New("no data remains in transfer window")

// ErrSourceRead indicates the underlying byte source could not produce
// the requested range. The condition may be transient or permanent; the
// store surfaces it to the caller for its own retry policy.
var ErrSourceRead = errors.New("source could not produce requested range")

// ErrTransferAbandoned indicates a driver exhausted its consecutive
// failure budget and released the sink with the window still positioned
// at the first undelivered chunk.
var ErrTransferAbandoned = errors.New("transfer abandoned: failure budget exhausted")
