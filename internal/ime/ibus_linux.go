//go:build linux

package ime

import (
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/kimeobserver/ime-observer/internal/fatalerr"
	"github.com/kimeobserver/ime-observer/internal/logger"
	"github.com/kimeobserver/ime-observer/internal/wakeup"
)

// ibus D-Bus coordinates.
const (
	ibusService   = "org.freedesktop.IBus"
	ibusPath      = "/org/freedesktop/IBus"
	ibusInterface = "org.freedesktop.IBus"
)

// IBusBackend is the poll variant: a polling thread emits GetImeStatus at
// a fixed cadence, and the query-worker calls GetGlobalEngine on
// org.freedesktop.IBus and forwards the decoded engine name.
type IBusBackend struct {
	slot *Slot
	wc   *wakeup.Channel
	tw   *fatalerr.Tripwire
	conn *dbus.Conn
	done chan struct{}
}

// NewIBusBackend connects to the session bus and starts the polling and
// query-worker goroutines. Connection failure is a construction error,
// treated as fatal at startup.
func NewIBusBackend(wc *wakeup.Channel, tw *fatalerr.Tripwire, cfg Config) (*IBusBackend, error) {
	conn, err := dbus.SessionBusPrivate()
	if err != nil {
		return nil, fmt.Errorf("ime: ibus: connect session bus: %w", err)
	}
	if err := conn.Auth(nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ime: ibus: auth session bus: %w", err)
	}
	if err := conn.Hello(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ime: ibus: hello session bus: %w", err)
	}

	b := &IBusBackend{
		slot: NewSlot(),
		wc:   wc,
		tw:   tw,
		conn: conn,
		done: make(chan struct{}),
	}

	go b.pollLoop(100 * time.Millisecond)
	go b.queryWorker()

	return b, nil
}

func (b *IBusBackend) pollLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			if b.tw.Tripped() {
				return
			}
			b.wc.TrySend(wakeup.Message{Kind: wakeup.GetImeStatus})
		}
	}
}

func (b *IBusBackend) queryWorker() {
	for !b.tw.Tripped() {
		msg := b.wc.Recv()
		if msg.Kind == wakeup.CaughtFatalError {
			return
		}
		if msg.Kind != wakeup.GetImeStatus {
			continue
		}

		var engine ibusEngineDesc
		obj := b.conn.Object(ibusService, dbus.ObjectPath(ibusPath))
		call := obj.Call(ibusInterface+".GetGlobalEngine", 0)
		if call.Err != nil {
			logger.Errorf("ime: ibus: GetGlobalEngine: %v", call.Err)
			continue
		}
		if err := call.Store(&engine); err != nil {
			logger.Errorf("ime: ibus: decode engine descriptor: %v", err)
			continue
		}
		b.slot.TrySend(engine.Name)
	}
}

// ibusEngineDesc mirrors the subset of IBusEngineDesc's struct fields
// (a D-Bus "(ssssssusb)"-shaped struct) needed to read the engine name;
// godbus decodes struct-typed replies positionally by field order.
type ibusEngineDesc struct {
	Name        string
	LongName    string
	Description string
	Language    string
	License     string
	Author      string
	Icon        string
	Layout      string
	Rank        uint32
}

// Slot implements Backend.
func (b *IBusBackend) Slot() *Slot {
	return b.slot
}

// Shutdown implements Backend.
func (b *IBusBackend) Shutdown() error {
	close(b.done)
	b.wc.TrySend(wakeup.Message{Kind: wakeup.CaughtFatalError})
	b.slot.Close()
	return b.conn.Close()
}
