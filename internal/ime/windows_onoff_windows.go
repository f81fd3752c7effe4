//go:build windows

package ime

import (
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/kimeobserver/ime-observer/internal/fatalerr"
	"github.com/kimeobserver/ime-observer/internal/logger"
	"github.com/kimeobserver/ime-observer/internal/wakeup"
)

// OnOffBackend observes the binary IME-on/off state of the foreground
// thread's default IME window.
type OnOffBackend struct {
	slot   *Slot
	wc     *wakeup.Channel
	window *messageWindow
	done   chan struct{}
	delay  time.Duration

	retryNumber        int
	sendMessageTimeout time.Duration
	retrySpan          time.Duration
}

var activeOnOffBackend *OnOffBackend

// NewOnOffBackend creates the shared message window/hook/raw-input
// registration and starts the query-worker and polling goroutines.
func NewOnOffBackend(wc *wakeup.Channel, tw *fatalerr.Tripwire, cfg Config) (*OnOffBackend, error) {
	b := &OnOffBackend{
		slot:               NewSlot(),
		wc:                 wc,
		done:               make(chan struct{}),
		delay:              cfg.Delay,
		retryNumber:        cfg.RetryNumber,
		sendMessageTimeout: cfg.SendMessageTimeout,
		retrySpan:          cfg.RetrySpan,
	}
	if b.delay <= 0 {
		b.delay = 50 * time.Millisecond
	}
	if b.retryNumber <= 0 {
		b.retryNumber = 3
	}
	if b.sendMessageTimeout <= 0 {
		b.sendMessageTimeout = 100 * time.Millisecond
	}
	if b.retrySpan <= 0 {
		b.retrySpan = 100 * time.Millisecond
	}
	activeOnOffBackend = b

	window, err := newMessageWindow("ImeObserverOnOffWnd", windows.NewCallback(onOffWndProc))
	if err != nil {
		return nil, err
	}
	b.window = window

	go b.queryWorker(tw)
	if interval, ok := ResolvePollingInterval(cfg, time.Second); ok {
		go b.pollLoop(tw, interval)
	}

	go runMessageLoop(tw, window.hwnd)

	return b, nil
}

func (b *OnOffBackend) pollLoop(tw *fatalerr.Tripwire, interval time.Duration) {
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

func (b *OnOffBackend) queryWorker(tw *fatalerr.Tripwire) {
	for !tw.Tripped() {
		msg := b.wc.Recv()
		if msg.Kind == wakeup.CaughtFatalError {
			return
		}
		if msg.Kind != wakeup.GetImeStatus {
			continue
		}
		time.Sleep(b.delay)

		foreground, _, focus, err := foregroundGUIThread()
		if err != nil {
			logger.Errorf("ime: onoff: %v", err)
			continue
		}
		target := foreground
		if focus != 0 {
			target = focus
		}

		imeWnd, _, _ := procImmGetDefaultIMEWnd.Call(uintptr(target))
		if imeWnd == 0 {
			logger.Errorf("ime: onoff: ImmGetDefaultIMEWnd returned no window")
			continue
		}

		open, err := b.queryOpenStatusWithRetry(windows.Handle(imeWnd))
		if err != nil {
			logger.Errorf("ime: onoff: %v", err)
			continue
		}
		if open {
			b.slot.TrySend("ime-on")
		} else {
			b.slot.TrySend("ime-off")
		}
	}
}

// queryOpenStatusWithRetry sends WM_IME_CONTROL/IMC_GETOPENSTATUS to the
// IME window with SendMessageTimeout, retrying on timeout up to
// retryNumber times.
func (b *OnOffBackend) queryOpenStatusWithRetry(imeWnd windows.Handle) (bool, error) {
	var lastErr error
	for attempt := 0; attempt <= b.retryNumber; attempt++ {
		var result uintptr
		ret, _, callErr := procSendMessageTimeoutW.Call(
			uintptr(imeWnd),
			0x0283, // WM_IME_CONTROL
			imcGetOpenStatus,
			0,
			smtoNormal,
			uintptr(b.sendMessageTimeout.Milliseconds()),
			uintptr(unsafe.Pointer(&result)),
		)
		if ret != 0 {
			return result != 0, nil
		}
		lastErr = callErr
		time.Sleep(b.retrySpan)
	}
	return false, errSendMessageTimeoutExhausted(lastErr)
}

func errSendMessageTimeoutExhausted(cause error) error {
	return winError("ime: onoff: SendMessageTimeout retries exhausted: " + errString(cause))
}

func errString(err error) string {
	if err == nil {
		return "timeout"
	}
	return err.Error()
}

// onOffWndProc fires GetImeStatus on foreground change and on WM_KEYDOWN
// of the IME on/off/Kanji/Hangul VK codes.
func onOffWndProc(hwnd windows.Handle, msgID uint32, wParam, lParam uintptr) uintptr {
	b := activeOnOffBackend
	if b == nil {
		r, _, _ := procDefWindowProcW.Call(uintptr(hwnd), uintptr(msgID), wParam, lParam)
		return r
	}

	switch msgID {
	case eventSystemForeground:
		b.wc.TrySend(wakeup.Message{Kind: wakeup.GetImeStatus})
		return 0
	case wmInput:
		if kb, ok := rawKeyEvent(lParam); ok && kb.message == wmKeyDown && isOnOffToggleVK(kb.vKey) {
			b.wc.TrySend(wakeup.Message{Kind: wakeup.GetImeStatus})
		}
	}

	r, _, _ := procDefWindowProcW.Call(uintptr(hwnd), uintptr(msgID), wParam, lParam)
	return r
}

func isOnOffToggleVK(vk uint16) bool {
	switch vk {
	case vkKanji, vkDBEAlphanumeric, vkImeOn, vkImeOff, vkHangul:
		return true
	default:
		return false
	}
}

// Slot implements Backend.
func (b *OnOffBackend) Slot() *Slot {
	return b.slot
}

// Shutdown implements Backend.
func (b *OnOffBackend) Shutdown() error {
	close(b.done)
	b.wc.TrySend(wakeup.Message{Kind: wakeup.CaughtFatalError})
	b.window.close()
	b.slot.Close()
	activeOnOffBackend = nil
	return nil
}
