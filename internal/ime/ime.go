// Package ime implements the platform IME/layer observation backends and
// the edge-detecting receiver facade built on top of them. Every backend
// shares the Backend contract defined here: a constructor that takes a
// wakeup channel and a tripwire, an internal single-slot channel of raw
// tokens consumed by the Receiver, and a Shutdown method that wakes any
// parked worker, signals the backend's goroutines to exit and closes the
// slot. Shutdown returns without waiting for those goroutines to finish.
//
// Grounded on original_source/src/ (the daemon's various *_backend.rs
// files) for semantics; the drop-oldest single-slot channel mirrors
// internal/wakeup's capacity-1 discipline (see wakeup.Channel), kept as a
// separate type since the tripwire latch and drop-oldest channels solve
// different problems and shouldn't be conflated.
package ime

import (
	"sync/atomic"
	"time"

	"github.com/kimeobserver/ime-observer/internal/fatalerr"
)

// Slot is a single-producer, single-consumer, capacity-1 channel of raw
// IME status tokens. Sends never block: a pending token is silently
// overwritten. This is the backend's internal channel that the Receiver
// reads from.
type Slot struct {
	ch     chan string
	closed atomic.Bool
}

// NewSlot returns a ready-to-use, open Slot.
func NewSlot() *Slot {
	return &Slot{ch: make(chan string, 1)}
}

// TrySend pushes tok, dropping any token already waiting in the slot. It is
// a no-op once the slot is closed.
func (s *Slot) TrySend(tok string) {
	if s.closed.Load() {
		return
	}
	select {
	case s.ch <- tok:
	default:
		select {
		case <-s.ch:
		default:
		}
		select {
		case s.ch <- tok:
		default:
		}
	}
}

// Recv blocks for the next token. ok is false if the slot was closed with
// no token pending, mirroring a closed Go channel read.
func (s *Slot) Recv() (tok string, ok bool) {
	tok, ok = <-s.ch
	return tok, ok
}

// Close marks the slot closed and unblocks any pending Recv. Safe to call
// more than once; only the first call has an effect.
func (s *Slot) Close() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.ch)
	}
}

// Backend is the uniform contract every platform IME/layer observer
// implements.
type Backend interface {
	// Slot returns the internal single-slot channel the Receiver consumes.
	Slot() *Slot
	// Shutdown sends a CaughtFatalError wakeup so any parked worker wakes,
	// signals the goroutines owned by the backend to exit, and closes the
	// slot. It returns without waiting for those goroutines to finish.
	Shutdown() error
}

// Config carries the tuning knobs common across backends (the CLI's
// --polling/--without-polling, --delay, --retry-number,
// --sendmessage-timeout, --retry-span flags). Not every backend consumes
// every field.
type Config struct {
	// PollingInterval is the period between periodic GetImeStatus wakeups.
	// nil means "unset": each backend substitutes its own documented
	// default cadence. A non-nil zero means --without-polling was passed
	// explicitly, and disables the polling thread entirely rather than
	// falling back to a default — the two are indistinguishable if this
	// were a plain time.Duration, since 0 can't mean both "unset" and
	// "off".
	PollingInterval *time.Duration
	// Delay is the settle time a query-worker sleeps before resolving the
	// foreground window / input source after a wakeup (Windows and macOS).
	Delay time.Duration
	// RetryNumber is the number of SendMessageTimeout retries
	// (windows-onoff only).
	RetryNumber int
	// SendMessageTimeout bounds a single inter-window query
	// (windows-onoff only).
	SendMessageTimeout time.Duration
	// RetrySpan is the sleep between SendMessageTimeout retries
	// (windows-onoff only).
	RetrySpan time.Duration
}

// DefaultConfig returns the documented default tuning values, leaving
// PollingInterval unset so each backend applies its own default cadence.
func DefaultConfig() Config {
	return Config{
		Delay:              50 * time.Millisecond,
		RetryNumber:        3,
		SendMessageTimeout: 100 * time.Millisecond,
		RetrySpan:          100 * time.Millisecond,
	}
}

// ResolvePollingInterval applies backendDefault when cfg.PollingInterval is
// unset. ok is false when polling should be skipped entirely, which only
// happens when the caller explicitly set PollingInterval to zero
// (--without-polling).
func ResolvePollingInterval(cfg Config, backendDefault time.Duration) (interval time.Duration, ok bool) {
	if cfg.PollingInterval == nil {
		return backendDefault, true
	}
	if *cfg.PollingInterval <= 0 {
		return 0, false
	}
	return *cfg.PollingInterval, true
}

// fatalTripwire is the subset of *fatalerr.Tripwire backends loop on.
// Declared as an interface so fake backends in tests don't need the real
// type.
type fatalTripwire interface {
	Tripped() bool
}

var _ fatalTripwire = (*fatalerr.Tripwire)(nil)

// MainLoopBackend is implemented by backends whose message pump must run
// on the thread that constructed them rather than a spawned goroutine
// (macOS's CFRunLoop must run on the thread it was registered from). The
// supervisor checks for this via RunMainLoop before falling back to simply
// waiting on the tripwire.
type MainLoopBackend interface {
	Backend
	RunMainLoop(tw *fatalerr.Tripwire)
}

// RunMainLoop drives b's main loop if it needs one to run on the calling
// goroutine, and otherwise just blocks until tw trips. Linux and Windows
// backends pump their own message loops on dedicated goroutines spawned
// from their constructors, so for them this simply waits.
func RunMainLoop(b Backend, tw *fatalerr.Tripwire) {
	if mlb, ok := b.(MainLoopBackend); ok {
		mlb.RunMainLoop(tw)
		return
	}
	fatalerr.AwaitTripped(tw)
}
