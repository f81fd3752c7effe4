//go:build windows

package ime

import (
	"time"

	"golang.org/x/sys/windows"

	"github.com/kimeobserver/ime-observer/internal/fatalerr"
	"github.com/kimeobserver/ime-observer/internal/logger"
	"github.com/kimeobserver/ime-observer/internal/wakeup"
)

// LayoutBackend observes the foreground thread's keyboard-layout locale,
// waking on foreground changes and on modifier-key release.
type LayoutBackend struct {
	slot   *Slot
	wc     *wakeup.Channel
	window *messageWindow
	done   chan struct{}
	delay  time.Duration
}

// activeLayoutBackend lets the package-level window procedure reach its
// owning backend: Win32 gives SetWinEventHook/WNDPROC callbacks no
// user-data pointer, so the callback reaches its owner through this
// package-level pointer instead of threading state through syscalls.
var activeLayoutBackend *LayoutBackend

// NewLayoutBackend creates the message-only window, hook, and raw-input
// registration, and starts the query-worker and (optional) polling
// goroutines.
func NewLayoutBackend(wc *wakeup.Channel, tw *fatalerr.Tripwire, cfg Config) (*LayoutBackend, error) {
	b := &LayoutBackend{
		slot:  NewSlot(),
		wc:    wc,
		done:  make(chan struct{}),
		delay: cfg.Delay,
	}
	if b.delay <= 0 {
		b.delay = 50 * time.Millisecond
	}
	activeLayoutBackend = b

	window, err := newMessageWindow("ImeObserverLayoutWnd", windows.NewCallback(layoutWndProc))
	if err != nil {
		return nil, err
	}
	b.window = window

	go b.queryWorker(tw)
	if interval, ok := ResolvePollingInterval(cfg, 500*time.Millisecond); ok {
		go b.pollLoop(tw, interval)
	}

	go runMessageLoop(tw, window.hwnd)

	return b, nil
}

func (b *LayoutBackend) pollLoop(tw *fatalerr.Tripwire, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			if tw.Tripped() {
				return
			}
			b.wc.TrySend(wakeup.Message{Kind: wakeup.GetImeStatus})
		}
	}
}

func (b *LayoutBackend) queryWorker(tw *fatalerr.Tripwire) {
	for !tw.Tripped() {
		msg := b.wc.Recv()
		if msg.Kind == wakeup.CaughtFatalError {
			return
		}
		if msg.Kind != wakeup.GetImeStatus {
			continue
		}
		time.Sleep(b.delay)

		_, threadID, focus, err := foregroundGUIThread()
		if err != nil {
			logger.Errorf("ime: layout: %v", err)
			continue
		}
		targetThread := threadID
		if focus != 0 {
			targetThread, _, _ = procGetWindowThreadProcessId.Call(uintptr(focus), 0)
		}

		layout, _, _ := procGetKeyboardLayout.Call(targetThread)
		langID := uint16(layout & 0xFFFF)
		locale, ok := localeFromLangID(langID)
		if !ok {
			logger.Errorf("ime: layout: unknown language identifier 0x%04x", langID)
			continue
		}
		b.slot.TrySend(locale)
	}
}

// layoutWndProc handles WM_INPUT (modifier-release edge) and forwards
// everything else to DefWindowProc. The WinEventHook foreground-change
// callback shares this entry point; both result in a GetImeStatus wakeup.
func layoutWndProc(hwnd windows.Handle, msgID uint32, wParam, lParam uintptr) uintptr {
	b := activeLayoutBackend
	if b == nil {
		r, _, _ := procDefWindowProcW.Call(uintptr(hwnd), uintptr(msgID), wParam, lParam)
		return r
	}

	switch msgID {
	case eventSystemForeground:
		b.wc.TrySend(wakeup.Message{Kind: wakeup.GetImeStatus})
		return 0
	case wmInput:
		if kb, ok := rawKeyEvent(lParam); ok && kb.message == wmKeyUp && isModifierVK(kb.vKey) {
			b.wc.TrySend(wakeup.Message{Kind: wakeup.GetImeStatus})
		}
	}

	r, _, _ := procDefWindowProcW.Call(uintptr(hwnd), uintptr(msgID), wParam, lParam)
	return r
}

func isModifierVK(vk uint16) bool {
	switch vk {
	case vkLControl, vkRControl, vkControl, vkLWin, vkRWin:
		return true
	default:
		return false
	}
}

// Slot implements Backend.
func (b *LayoutBackend) Slot() *Slot {
	return b.slot
}

// Shutdown implements Backend.
func (b *LayoutBackend) Shutdown() error {
	close(b.done)
	b.wc.TrySend(wakeup.Message{Kind: wakeup.CaughtFatalError})
	b.window.close()
	b.slot.Close()
	activeLayoutBackend = nil
	return nil
}
