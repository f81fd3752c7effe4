// Package imetest provides a fake ime.Backend for the receiver and
// supervisor test suites, standing in for a real D-Bus/Win32/Carbon
// backend so the edge-detection and supervisor-wiring tests run without
// the target platform's APIs.
package imetest

import "github.com/kimeobserver/ime-observer/internal/ime"

// FakeBackend is an ime.Backend whose raw token stream is driven directly
// by test code via Push.
type FakeBackend struct {
	slot       *ime.Slot
	shutdownFn func() error
	shutdowns  int
}

// New returns a ready FakeBackend.
func New() *FakeBackend {
	return &FakeBackend{slot: ime.NewSlot()}
}

// Push feeds a raw token into the backend's internal slot, exactly as a
// real backend's query-worker would.
func (f *FakeBackend) Push(tok string) {
	f.slot.TrySend(tok)
}

// Slot implements ime.Backend.
func (f *FakeBackend) Slot() *ime.Slot {
	return f.slot
}

// Shutdown implements ime.Backend: it closes the slot and records that it
// ran, so tests can assert Shutdown was actually invoked.
func (f *FakeBackend) Shutdown() error {
	f.shutdowns++
	f.slot.Close()
	if f.shutdownFn != nil {
		return f.shutdownFn()
	}
	return nil
}

// Shutdowns reports how many times Shutdown has been called.
func (f *FakeBackend) Shutdowns() int {
	return f.shutdowns
}

// Reopen replaces a closed internal slot with a fresh one, so the same
// test-visible FakeBackend can stand in for the new backend instance a real
// BackendFactory would construct on each supervisor iteration.
func (f *FakeBackend) Reopen() {
	f.slot = ime.NewSlot()
}

// OnShutdown installs a hook invoked from Shutdown, for tests that need to
// assert ordering or inject a shutdown error.
func (f *FakeBackend) OnShutdown(fn func() error) {
	f.shutdownFn = fn
}
