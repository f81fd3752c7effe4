//go:build darwin

package ime

/*
#cgo LDFLAGS: -framework Carbon -framework CoreFoundation

#include <Carbon/Carbon.h>
#include <CoreFoundation/CoreFoundation.h>

extern void imeObserverNotificationCallback(CFNotificationCenterRef center,
                                             void *observer,
                                             CFStringRef name,
                                             const void *object,
                                             CFDictionaryRef userInfo);

static void registerInputSourceObserver(void *observer) {
    CFNotificationCenterRef center = CFNotificationCenterGetDistributedCenter();
    CFNotificationCenterAddObserver(
        center,
        observer,
        imeObserverNotificationCallback,
        kTISNotifySelectedKeyboardInputSourceChanged,
        NULL,
        CFNotificationSuspensionBehaviorDeliverImmediately);
}

static void unregisterInputSourceObserver(void *observer) {
    CFNotificationCenterRef center = CFNotificationCenterGetDistributedCenter();
    CFNotificationCenterRemoveObserver(
        center, observer, kTISNotifySelectedKeyboardInputSourceChanged, NULL);
}

static CFRunLoopRunResult runLoopOneSecondSlice(void) {
    return CFRunLoopRunInMode(kCFRunLoopDefaultMode, 1.0, true);
}

static const char *copyCurrentInputSourceID(void) {
    TISInputSourceRef source = TISCopyCurrentKeyboardInputSource();
    if (source == NULL) {
        return NULL;
    }
    CFStringRef idRef = (CFStringRef)TISGetInputSourceProperty(source, kTISPropertyInputSourceID);
    if (idRef == NULL) {
        CFRelease(source);
        return NULL;
    }
    CFIndex length = CFStringGetLength(idRef);
    CFIndex maxSize = CFStringGetMaximumSizeForEncoding(length, kCFStringEncodingUTF8) + 1;
    char *buf = (char *)malloc((size_t)maxSize);
    if (!CFStringGetCString(idRef, buf, maxSize, kCFStringEncodingUTF8)) {
        free(buf);
        CFRelease(source);
        return NULL;
    }
    CFRelease(source);
    return buf;
}
*/
import "C"

import (
	"time"
	"unsafe"

	"github.com/kimeobserver/ime-observer/internal/fatalerr"
	"github.com/kimeobserver/ime-observer/internal/logger"
	"github.com/kimeobserver/ime-observer/internal/wakeup"
)

// MacOSBackend uses a distributed-notification observer on the "selected
// keyboard input source changed" notification to drive a GetImeStatus
// wakeup; the query-worker resolves the current input source ID via
// TISCopyCurrentKeyboardInputSource.
type MacOSBackend struct {
	slot     *Slot
	wc       *wakeup.Channel
	done     chan struct{}
	delay    time.Duration
	observer unsafe.Pointer
}

// activeMacOSBackend lets the CGo notification callback, which CoreFoundation
// invokes with an opaque observer pointer but no typed user data, reach its
// owning backend's wakeup channel.
var activeMacOSBackend *MacOSBackend

// NewMacOSBackend registers the distributed-notification observer and
// starts the query-worker goroutine. The main run-loop itself must be
// driven by RunMainLoop on the process's main thread (macOS requires
// CFRunLoop calls to originate there).
func NewMacOSBackend(wc *wakeup.Channel, tw *fatalerr.Tripwire, cfg Config) (*MacOSBackend, error) {
	b := &MacOSBackend{
		slot:  NewSlot(),
		wc:    wc,
		done:  make(chan struct{}),
		delay: cfg.Delay,
	}
	if b.delay <= 0 {
		b.delay = 50 * time.Millisecond
	}
	activeMacOSBackend = b

	b.observer = C.malloc(1)
	C.registerInputSourceObserver(b.observer)

	go b.queryWorker(tw)

	return b, nil
}

// RunMainLoop drives the CFRunLoop in bounded one-second slices, checking
// the tripwire between slices; trip latency here can be up to one second.
func (b *MacOSBackend) RunMainLoop(tw *fatalerr.Tripwire) {
	for !tw.Tripped() {
		C.runLoopOneSecondSlice()
	}
}

func (b *MacOSBackend) queryWorker(tw *fatalerr.Tripwire) {
	for !tw.Tripped() {
		msg := b.wc.Recv()
		if msg.Kind == wakeup.CaughtFatalError {
			return
		}
		if msg.Kind != wakeup.GetImeStatus {
			continue
		}
		time.Sleep(b.delay)

		id, err := copyCurrentInputSourceID()
		if err != nil {
			logger.Errorf("ime: macos: %v", err)
			continue
		}
		b.slot.TrySend(id)
	}
}

func copyCurrentInputSourceID() (string, error) {
	cstr := C.copyCurrentInputSourceID()
	if cstr == nil {
		return "", errCopyInputSourceFailed
	}
	defer C.free(unsafe.Pointer(cstr))
	return C.GoString(cstr), nil
}

var errCopyInputSourceFailed = macosError("ime: macos: failed to read current input source id")

type macosError string

func (e macosError) Error() string { return string(e) }

//export imeObserverNotificationCallback
func imeObserverNotificationCallback(center C.CFNotificationCenterRef, observer unsafe.Pointer, name C.CFStringRef, object unsafe.Pointer, userInfo C.CFDictionaryRef) {
	b := activeMacOSBackend
	if b == nil {
		return
	}
	b.wc.TrySend(wakeup.Message{Kind: wakeup.GetImeStatus})
}

// Slot implements Backend.
func (b *MacOSBackend) Slot() *Slot {
	return b.slot
}

// Shutdown implements Backend.
func (b *MacOSBackend) Shutdown() error {
	close(b.done)
	b.wc.TrySend(wakeup.Message{Kind: wakeup.CaughtFatalError})
	C.unregisterInputSourceObserver(b.observer)
	C.free(b.observer)
	b.slot.Close()
	activeMacOSBackend = nil
	return nil
}
