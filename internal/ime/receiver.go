package ime

import (
	"errors"

	"github.com/kimeobserver/ime-observer/internal/wakeup"
)

// ErrInnerReceiverClosed is returned by Receive once the backend's slot has
// been closed out from under it.
var ErrInnerReceiverClosed = errors.New("ime: inner receiver closed")

// Receiver is an edge-detecting facade over a Backend's token stream. It
// is not safe for concurrent Receive calls; the supervisor's writer
// goroutine is its only caller.
type Receiver struct {
	backend Backend
	last    string
	hasLast bool
}

// NewReceiver wraps backend with edge detection.
func NewReceiver(backend Backend) *Receiver {
	return &Receiver{backend: backend}
}

// Receive returns the next distinct token. The very first call returns
// whatever token arrives first; subsequent calls discard tokens
// byte-equal to the previously returned one.
func (r *Receiver) Receive() (string, error) {
	for {
		tok, ok := r.backend.Slot().Recv()
		if !ok {
			return "", ErrInnerReceiverClosed
		}
		if r.hasLast && tok == r.last {
			continue
		}
		r.last = tok
		r.hasLast = true
		return tok, nil
	}
}

// Shutdown sends a CaughtFatalError wakeup on wc so any parked backend
// worker wakes, then calls Backend.Shutdown. wc stays with the caller,
// which reuses it in the next supervisor iteration.
func (r *Receiver) Shutdown(wc *wakeup.Channel) error {
	wc.TrySend(wakeup.Message{Kind: wakeup.CaughtFatalError})
	return r.backend.Shutdown()
}
