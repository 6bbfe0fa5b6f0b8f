package transfer

import "sync"

// window is the per-source transfer state: the half-open byte range
// [left, right) currently eligible for delivery. Each window carries its
// own mutex so that operations on unrelated sources never contend.
//
// Invariants: 0 <= left <= right <= totalLength and
// right-left <= chunkSize. left == right only at the terminal state
// (or immediately after creation for a zero-length source).
type window struct {
	mu          sync.Mutex
	name        string
	left        int64
	right       int64
	totalLength int64
	chunkSize   int64
}

// Progress is a point-in-time snapshot of a window's position.
type Progress struct {
	Left        int64
	Right       int64
	TotalLength int64
	Done        bool
}

func newWindow(name string, totalLength, chunkSize int64) *window {
	if totalLength < 0 {
		totalLength = 0
	}
	return &window{
		name:        name,
		left:        0,
		right:       min64(chunkSize, totalLength),
		totalLength: totalLength,
		chunkSize:   chunkSize,
	}
}

// span returns the current window bounds. ok is false at the terminal
// state, when no chunk remains.
func (w *window) span() (left, right int64, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.left, w.right, w.left != w.right
}

// hasNext reports whether a chunk remains to be delivered.
func (w *window) hasNext() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.left != w.right
}

// advance slides the window past the current chunk. It is the only
// mutation a window ever undergoes after creation.
func (w *window) advance() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.left == w.right {
		return ErrEndOfData
	}

	w.left = w.right
	w.right = min64(w.right+w.chunkSize, w.totalLength)
	return nil
}

// progress returns a snapshot of the window position.
func (w *window) progress() Progress {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Progress{
		Left:        w.left,
		Right:       w.right,
		TotalLength: w.totalLength,
		Done:        w.left == w.totalLength,
	}
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
