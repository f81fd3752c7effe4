// Package fatalerr implements the fatal-error channel (FEC) and the
// per-iteration tripwire: a process-wide, single-shot signalling primitive
// that lets any worker goroutine report an unrecoverable condition, and a
// cheap, wait-free flag that every worker's loop predicate polls to know
// when to stop.
package fatalerr

import (
	"sync/atomic"
	"time"

	"github.com/kimeobserver/ime-observer/internal/logger"
)

// Channel is the process-wide FEC. It is a bounded (capacity 1) queue: a
// publish while a previous error is still in flight is dropped, since the
// first error already suffices to trip the supervisor.
//
// Channel is not a package-level global: Supervisor.Run creates one
// instance and passes it to the goroutines of each iteration (the
// fatal-catcher, the writer and the reader), which is friendlier to testing
// than a hidden global.
type Channel struct {
	ch chan error
}

// New creates a fresh FEC. Call Drain at the start of every supervisor
// iteration to discard whatever a previous iteration left behind.
func New() *Channel {
	return &Channel{ch: make(chan error, 1)}
}

// Publish is non-blocking: if the queue already holds an error, the new one
// is dropped at debug level.
func (c *Channel) Publish(err error) {
	select {
	case c.ch <- err:
	default:
		logger.Debugf("fatalerr: dropped error, one already in flight: %v", err)
	}
}

// Drain discards any stale error left over from a previous iteration.
func (c *Channel) Drain() {
	select {
	case <-c.ch:
	default:
	}
}

// Tripwire is a per-iteration, single-assignment latch. The first error
// published to the Channel (via AwaitAndLatch) sets it; Tripped becomes true
// for every clone from that point on.
type Tripwire struct {
	tripped atomic.Bool
	err     atomic.Pointer[error]
}

// NewTripwire constructs a fresh, untripped Tripwire. Construct one per
// supervisor iteration.
func NewTripwire() *Tripwire {
	return &Tripwire{}
}

// Tripped is the hot path: a relaxed, wait-free load safe to call from every
// worker's loop predicate.
func (t *Tripwire) Tripped() bool {
	return t.tripped.Load()
}

// latch sets the tripwire at most once; later callers are no-ops.
func (t *Tripwire) latch(err error) {
	if t.tripped.CompareAndSwap(false, true) {
		t.err.Store(&err)
	}
}

// Err returns the latched error, or nil if the tripwire has not tripped.
func (t *Tripwire) Err() error {
	if p := t.err.Load(); p != nil {
		return *p
	}
	return nil
}

// AwaitAndLatch blocks until the first error arrives on the Channel,
// latches it into tw (making tw.Tripped() true for every observer that
// shares it), and returns it. Intended to run on its own goroutine — the
// "fatal-catcher" — once per supervisor iteration.
func AwaitAndLatch(c *Channel, tw *Tripwire) error {
	err := <-c.ch
	logger.Errorf("%v", err)
	tw.latch(err)
	return err
}

// AwaitTripped blocks the calling goroutine until tw trips. Used by
// platforms whose backend doesn't need the calling thread for a native
// message pump (Linux) — the supervisor's main goroutine just waits here
// instead of spinning.
func AwaitTripped(tw *Tripwire) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		if tw.Tripped() {
			return
		}
	}
}
