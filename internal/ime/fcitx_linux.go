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

const (
	fcitxService   = "org.fcitx.Fcitx5"
	fcitxPath      = "/controller"
	fcitxInterface = "org.fcitx.Fcitx.Controller1"
)

// FcitxBackend is the poll variant: a polling thread emits GetImeStatus at
// a fixed cadence and the query-worker calls CurrentInputMethod on
// org.fcitx.Fcitx.Controller1.
type FcitxBackend struct {
	slot *Slot
	wc   *wakeup.Channel
	tw   *fatalerr.Tripwire
	conn *dbus.Conn
	done chan struct{}
}

// NewFcitxBackend connects to the session bus and starts the polling and
// query-worker goroutines.
func NewFcitxBackend(wc *wakeup.Channel, tw *fatalerr.Tripwire, cfg Config) (*FcitxBackend, error) {
	conn, err := dbus.SessionBusPrivate()
	if err != nil {
		return nil, fmt.Errorf("ime: fcitx: connect session bus: %w", err)
	}
	if err := conn.Auth(nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ime: fcitx: auth session bus: %w", err)
	}
	if err := conn.Hello(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ime: fcitx: hello session bus: %w", err)
	}

	b := &FcitxBackend{
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

func (b *FcitxBackend) pollLoop(interval time.Duration) {
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

func (b *FcitxBackend) queryWorker() {
	for !b.tw.Tripped() {
		msg := b.wc.Recv()
		if msg.Kind == wakeup.CaughtFatalError {
			return
		}
		if msg.Kind != wakeup.GetImeStatus {
			continue
		}

		var im string
		obj := b.conn.Object(fcitxService, dbus.ObjectPath(fcitxPath))
		call := obj.Call(fcitxInterface+".CurrentInputMethod", 0)
		if call.Err != nil {
			logger.Errorf("ime: fcitx: CurrentInputMethod: %v", call.Err)
			continue
		}
		if err := call.Store(&im); err != nil {
			logger.Errorf("ime: fcitx: decode input method: %v", err)
			continue
		}
		b.slot.TrySend(im)
	}
}

// Slot implements Backend.
func (b *FcitxBackend) Slot() *Slot {
	return b.slot
}

// Shutdown implements Backend.
func (b *FcitxBackend) Shutdown() error {
	close(b.done)
	b.wc.TrySend(wakeup.Message{Kind: wakeup.CaughtFatalError})
	b.slot.Close()
	return b.conn.Close()
}
