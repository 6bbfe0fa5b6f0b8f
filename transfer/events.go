package transfer

import "sync"

// EventKind identifies what happened to a registered source.
type EventKind uint8

const (
	// EventRegistered fires once when a source is registered.
	EventRegistered EventKind = iota
	// EventChunkRead fires on every successful ReadChunk.
	EventChunkRead
	// EventChunkAcknowledged fires on every successful AcknowledgeChunk.
	EventChunkAcknowledged
)

// String returns a human-readable name for the event kind.
func (k EventKind) String() string {
	switch k {
	case EventRegistered:
		return "registered"
	case EventChunkRead:
		return "chunk-read"
	case EventChunkAcknowledged:
		return "chunk-acknowledged"
	default:
		return "unknown"
	}
}

// Event is published by the store on every protocol transition. It
// carries no chunk payload; subscribers re-read current state from the
// store instead.
type Event struct {
	Key  SourceKey
	Kind EventKind
}

// EventCallback receives published events synchronously, in
// subscription order.
type EventCallback func(Event)

// observers is the subscription registry. Publishing iterates a
// snapshot taken under the lock, so unsubscribing during delivery
// cannot affect the current pass and callbacks may subscribe or
// unsubscribe freely.
type observers struct {
	mu        sync.Mutex
	nextID    uint64
	order     []uint64
	callbacks map[uint64]EventCallback
}

func newObservers() *observers {
	return &observers{
		callbacks: make(map[uint64]EventCallback),
	}
}

// add registers a callback and returns a handle that removes it.
// The handle is safe to call more than once.
func (o *observers) add(cb EventCallback) func() {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.nextID
	o.nextID++
	o.order = append(o.order, id)
	o.callbacks[id] = cb

	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.callbacks, id)
		for i, v := range o.order {
			if v == id {
				o.order = append(o.order[:i], o.order[i+1:]...)
				break
			}
		}
	}
}

// publish delivers ev to every callback subscribed at the time of the
// call, in subscription order.
func (o *observers) publish(ev Event) {
	o.mu.Lock()
	snapshot := make([]EventCallback, 0, len(o.callbacks))
	for _, id := range o.order {
		if cb, ok := o.callbacks[id]; ok {
			snapshot = append(snapshot, cb)
		}
	}
	o.mu.Unlock()

	for _, cb := range snapshot {
		cb(ev)
	}
}
