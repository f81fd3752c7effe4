// Package wakeup implements the bounded, capacity-1 signalling channel: a
// single mailbox used to wake the platform backends' query-worker
// goroutines, carrying one of three message kinds.
package wakeup

// Kind identifies why a worker was woken.
type Kind int

const (
	// GetImeStatus asks the query worker to poll the platform for the
	// current IME status.
	GetImeStatus Kind = iota
	// ImeStatus carries a status the sender already knows (used by
	// push-based backends that receive the token directly from a signal).
	ImeStatus
	// CaughtFatalError tells a parked worker to wake up and observe the
	// tripwire, so it can exit.
	CaughtFatalError
)

// Message is the payload carried over the channel. Token is only
// meaningful when Kind == ImeStatus.
type Message struct {
	Kind  Kind
	Token string
}

// Channel is a single global mailbox of capacity 1. Sends never block: a
// pending, not-yet-consumed wakeup is sufficient to eventually trigger the
// work the new send would have asked for, so TrySend silently does nothing
// when the mailbox is already full.
type Channel struct {
	ch chan Message
}

// New creates a fresh wakeup channel with capacity 1.
func New() *Channel {
	return &Channel{ch: make(chan Message, 1)}
}

// TrySend enqueues msg if the mailbox is empty; otherwise it is a no-op.
// Returns true if msg was enqueued.
func (c *Channel) TrySend(msg Message) bool {
	select {
	case c.ch <- msg:
		return true
	default:
		return false
	}
}

// Recv blocks until a message is available.
func (c *Channel) Recv() Message {
	return <-c.ch
}

// TryRecv returns the pending message, if any, without blocking.
func (c *Channel) TryRecv() (Message, bool) {
	select {
	case msg := <-c.ch:
		return msg, true
	default:
		return Message{}, false
	}
}
