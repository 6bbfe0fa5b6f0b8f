package transfer

// ByteSource yields the bytes of a named source in a half-open offset
// range. Implementations must return exactly right-left bytes or an
// error; the store treats a short result as a read failure. The read
// may block on I/O.
type ByteSource interface {
	// ReadRange returns the bytes of source name in [left, right).
	ReadRange(name string, left, right int64) ([]byte, error)
}

// ByteSourceFunc is a function type that implements ByteSource.
type ByteSourceFunc func(name string, left, right int64) ([]byte, error)

// ReadRange implements ByteSource for ByteSourceFunc.
func (f ByteSourceFunc) ReadRange(name string, left, right int64) ([]byte, error) {
	return f(name, left, right)
}
