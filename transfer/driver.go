package transfer

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// DefaultFailureBudget is the number of consecutive read/write/ack
// failures a driver tolerates before abandoning a transfer.
const DefaultFailureBudget = 3

// Driver consumes the store's protocol end-to-end: on every registered
// event it opens a sink session and pumps chunks read → write →
// acknowledge, one chunk outstanding at a time, until the source is
// exhausted or the consecutive-failure budget runs out. The sink
// session is released on every exit path.
//
// Each registration is driven by its own goroutine; drivers hold no
// per-transfer state beyond the loop's failure counter.
type Driver struct {
	store  *Store
	sink   ChunkSink
	budget int

	unsubscribe func()
	wg          sync.WaitGroup

	mu   sync.Mutex
	done func(SourceKey, error)
}

// NewDriver creates a driver subscribed to the store's events. The
// driver reacts to registrations made after this call.
func NewDriver(store *Store, sink ChunkSink) *Driver {
	d := &Driver{
		store:  store,
		sink:   sink,
		budget: DefaultFailureBudget,
	}
	d.unsubscribe = store.Subscribe(d.handleEvent)

	logrus.WithFields(logrus.Fields{
		"function":       "NewDriver",
		"failure_budget": d.budget,
	}).Info("Transfer driver created")

	return d
}

// SetFailureBudget overrides the consecutive-failure budget for
// transfers started after the call. Non-positive values are ignored.
func (d *Driver) SetFailureBudget(budget int) {
	if budget <= 0 {
		return
	}
	d.mu.Lock()
	d.budget = budget
	d.mu.Unlock()
}

// OnDone sets a callback invoked after each transfer finishes, with a
// nil error on full delivery or ErrTransferAbandoned after budget
// exhaustion. This method is safe for concurrent use.
func (d *Driver) OnDone(cb func(SourceKey, error)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.done = cb
}

// Close stops the driver reacting to new registrations and waits for
// in-flight transfers to finish.
func (d *Driver) Close() {
	d.unsubscribe()
	d.wg.Wait()
}

// Wait blocks until all transfers started so far have finished.
func (d *Driver) Wait() {
	d.wg.Wait()
}

func (d *Driver) handleEvent(ev Event) {
	if ev.Kind != EventRegistered {
		return
	}
	d.wg.Add(1)
	go d.run(ev.Key)
}

func (d *Driver) run(key SourceKey) {
	defer d.wg.Done()

	err := d.drive(key)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "run",
			"source_key": key,
			"error":      err.Error(),
		}).Error("Transfer did not complete")
	} else {
		logrus.WithFields(logrus.Fields{
			"function":   "run",
			"source_key": key,
		}).Info("Transfer completed")
	}

	d.mu.Lock()
	cb := d.done
	d.mu.Unlock()
	if cb != nil {
		cb(key, err)
	}
}

// drive pulls one source to exhaustion. The sink session is closed
// exactly once regardless of how the loop exits.
func (d *Driver) drive(key SourceKey) error {
	d.mu.Lock()
	budget := d.budget
	d.mu.Unlock()

	session, err := d.sink.Open(string(key))
	if err != nil {
		return fmt.Errorf("open sink session: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			logrus.WithFields(logrus.Fields{
				"function":   "drive",
				"source_key": key,
				"error":      cerr.Error(),
			}).Warn("Failed to close sink session")
		}
	}()

	failures := 0
	for d.store.HasNext(key) && failures < budget {
		chunk, err := d.store.ReadChunk(key)
		if err != nil {
			failures++
			logrus.WithFields(logrus.Fields{
				"function":   "drive",
				"source_key": key,
				"failures":   failures,
				"error":      err.Error(),
			}).Warn("Chunk read failed")
			continue
		}

		if err := session.WriteChunk(chunk); err != nil {
			failures++
			logrus.WithFields(logrus.Fields{
				"function":   "drive",
				"source_key": key,
				"failures":   failures,
				"error":      err.Error(),
			}).Warn("Sink write failed, chunk not acknowledged")
			continue
		}

		if err := d.store.AcknowledgeChunk(key); err != nil {
			failures++
			logrus.WithFields(logrus.Fields{
				"function":   "drive",
				"source_key": key,
				"failures":   failures,
				"error":      err.Error(),
			}).Warn("Acknowledge failed")
			continue
		}

		failures = 0
	}

	if failures >= budget {
		return ErrTransferAbandoned
	}
	return nil
}
