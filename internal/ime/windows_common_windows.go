//go:build windows

package ime

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// Shared Win32 bindings for the windows-layout and windows-onoff
// backends: a message-only window registered as a raw-input sink,
// plus a SetWinEventHook subscription on EVENT_SYSTEM_FOREGROUND. Both
// backends run the same main-loop shape and differ only in which raw-input
// events they treat as edges and how they resolve the IME status once
// woken.

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	imm32    = windows.NewLazySystemDLL("imm32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procSetWinEventHook          = user32.NewProc("SetWinEventHook")
	procUnhookWinEvent           = user32.NewProc("UnhookWinEvent")
	procRegisterClassExW         = user32.NewProc("RegisterClassExW")
	procCreateWindowExW          = user32.NewProc("CreateWindowExW")
	procDestroyWindow            = user32.NewProc("DestroyWindow")
	procDefWindowProcW           = user32.NewProc("DefWindowProcW")
	procGetMessageW              = user32.NewProc("GetMessageW")
	procTranslateMessage         = user32.NewProc("TranslateMessage")
	procDispatchMessageW         = user32.NewProc("DispatchMessageW")
	procPostQuitMessage          = user32.NewProc("PostQuitMessage")
	procPostMessageW             = user32.NewProc("PostMessageW")
	procRegisterRawInputDevices  = user32.NewProc("RegisterRawInputDevices")
	procGetRawInputData          = user32.NewProc("GetRawInputData")
	procGetForegroundWindow      = user32.NewProc("GetForegroundWindow")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
	procGetGUIThreadInfo         = user32.NewProc("GetGUIThreadInfo")
	procGetKeyboardLayout        = user32.NewProc("GetKeyboardLayout")
	procSendMessageTimeoutW      = user32.NewProc("SendMessageTimeoutW")

	procImmGetDefaultIMEWnd = imm32.NewProc("ImmGetDefaultIMEWnd")

	procGetModuleHandleW = kernel32.NewProc("GetModuleHandleW")
)

const (
	eventSystemForeground = 0x0003
	winEventOutOfContext  = 0x0000

	wmQuit      = 0x0012
	wmInput     = 0x00FF
	wmAppWake   = 0x8000 // WM_APP; neither backend posts or handles it
	wmKeyDown   = 0x0100
	wmKeyUp     = 0x0101

	ridevInputSink = 0x00000100
	hidUsagePageGeneric = 0x01
	hidUsageGenericKeyboard = 0x06

	ridHeader = 0x10000005
	ridInput  = 0x10000003

	riTypeKeyboard = 1

	vkLControl = 0xA2
	vkRControl = 0xA3
	vkLWin     = 0x5B
	vkRWin     = 0x5C
	vkControl  = 0x11

	// JP IME toggle VKs and generic IME VKs.
	vkKanji      = 0x19
	vkDBEAlphanumeric = 0xF0 // JP IME-OFF ("英数")
	vkOEMAuto    = 0xF3
	vkImeOn      = 0x16
	vkImeOff     = 0x1A
	vkHangul     = 0x15

	gcsNone = 0

	smtoNormal = 0x0000
	imcGetOpenStatus = 0x0005 // WM_IME_CONTROL with IMC_GETOPENSTATUS, sent to the default IME window
)

type wndClassExW struct {
	size       uint32
	style      uint32
	wndProc    uintptr
	clsExtra   int32
	wndExtra   int32
	instance   windows.Handle
	icon       windows.Handle
	cursor     windows.Handle
	background windows.Handle
	menuName   *uint16
	className  *uint16
	iconSm     windows.Handle
}

type msg struct {
	hwnd    windows.Handle
	message uint32
	wParam  uintptr
	lParam  uintptr
	time    uint32
	pt      struct{ x, y int32 }
}

type rawInputDevice struct {
	usagePage uint16
	usage     uint16
	flags     uint32
	target    windows.Handle
}

type rawInputHeader struct {
	rimType uint32
	size    uint32
	device  windows.Handle
	wParam  uintptr
}

type rawKeyboard struct {
	makeCode        uint16
	flags           uint16
	reserved        uint16
	vKey            uint16
	message         uint32
	extraInformation uint32
}

// guiThreadInfo mirrors the Win32 GUITHREADINFO fields needed to find the
// window actually holding keyboard focus within a thread, which can differ
// from that thread's top-level/foreground window (e.g. a child edit
// control).
type guiThreadInfo struct {
	size          uint32
	flags         uint32
	hwndActive    windows.Handle
	hwndFocus     windows.Handle
	hwndCapture   windows.Handle
	hwndMenuOwner windows.Handle
	hwndMoveSize  windows.Handle
	hwndCaret     windows.Handle
	rcCaret       struct{ left, top, right, bottom int32 }
}

// messageWindow is the message-only top-level window both windows backends
// create as a raw-input sink, plus the foreground-change event hook.
type messageWindow struct {
	hwnd     windows.Handle
	hookHand uintptr
}

// newMessageWindow registers a window class, creates a message-only
// window, subscribes it to EVENT_SYSTEM_FOREGROUND, and registers it as a
// raw-input sink for the generic keyboard usage page.
func newMessageWindow(className string, wndProc uintptr) (*messageWindow, error) {
	instance, _, _ := procGetModuleHandleW.Call(0)

	classNamePtr, err := windows.UTF16PtrFromString(className)
	if err != nil {
		return nil, err
	}

	wc := wndClassExW{
		size:      uint32(unsafe.Sizeof(wndClassExW{})),
		wndProc:   wndProc,
		instance:  windows.Handle(instance),
		className: classNamePtr,
	}
	if ret, _, err := procRegisterClassExW.Call(uintptr(unsafe.Pointer(&wc))); ret == 0 {
		return nil, err
	}

	hwnd, _, err := procCreateWindowExW.Call(
		0,
		uintptr(unsafe.Pointer(classNamePtr)),
		uintptr(unsafe.Pointer(classNamePtr)),
		0, 0, 0, 0, 0,
		^uintptr(2), // HWND_MESSAGE ((HWND)-3): makes this a message-only window
		0, 0, uintptr(instance), 0,
	)
	if hwnd == 0 {
		return nil, err
	}

	hook, _, _ := procSetWinEventHook.Call(
		eventSystemForeground, eventSystemForeground,
		0, wndProc, 0, 0, winEventOutOfContext,
	)

	device := rawInputDevice{
		usagePage: hidUsagePageGeneric,
		usage:     hidUsageGenericKeyboard,
		flags:     ridevInputSink,
		target:    windows.Handle(hwnd),
	}
	procRegisterRawInputDevices.Call(
		uintptr(unsafe.Pointer(&device)), 1, uintptr(unsafe.Sizeof(device)),
	)

	return &messageWindow{hwnd: windows.Handle(hwnd), hookHand: hook}, nil
}

// runMessageLoop pumps messages until tripwire trips or WM_QUIT arrives.
func runMessageLoop(tw fatalTripwire, hwnd windows.Handle) {
	for !tw.Tripped() {
		var m msg
		ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), uintptr(hwnd), 0, 0)
		if int32(ret) <= 0 {
			return
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
	}
}

func (w *messageWindow) close() {
	if w.hookHand != 0 {
		procUnhookWinEvent.Call(w.hookHand)
	}
	if w.hwnd != 0 {
		procPostMessageW.Call(uintptr(w.hwnd), wmQuit, 0, 0)
		procDestroyWindow.Call(uintptr(w.hwnd))
	}
}

// rawKeyEvent extracts the keyboard payload from a WM_INPUT lParam, or ok=false
// if the raw input isn't a keyboard event.
func rawKeyEvent(lParam uintptr) (rawKeyboard, bool) {
	var size uint32
	procGetRawInputData.Call(lParam, ridInput, 0, uintptr(unsafe.Pointer(&size)), uintptr(unsafe.Sizeof(rawInputHeader{})))
	if size == 0 {
		return rawKeyboard{}, false
	}
	buf := make([]byte, size)
	n, _, _ := procGetRawInputData.Call(lParam, ridInput, uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&size)), uintptr(unsafe.Sizeof(rawInputHeader{})))
	if int32(n) <= 0 {
		return rawKeyboard{}, false
	}
	header := (*rawInputHeader)(unsafe.Pointer(&buf[0]))
	if header.rimType != riTypeKeyboard {
		return rawKeyboard{}, false
	}
	kb := (*rawKeyboard)(unsafe.Pointer(&buf[unsafe.Sizeof(rawInputHeader{})]))
	return *kb, true
}

// foregroundGUIThread resolves the foreground window, its owning thread
// id, and — when GetGUIThreadInfo reports one — the window that actually
// holds keyboard focus within that thread. focus is 0 if GetGUIThreadInfo
// failed or reported no focus window, in which case callers should fall
// back to foreground itself.
func foregroundGUIThread() (foreground windows.Handle, threadID uintptr, focus windows.Handle, err error) {
	fg, _, _ := procGetForegroundWindow.Call()
	if fg == 0 {
		return 0, 0, 0, errNoForegroundWindow
	}
	foreground = windows.Handle(fg)
	threadID, _, _ = procGetWindowThreadProcessId.Call(fg, 0)

	var info guiThreadInfo
	info.size = uint32(unsafe.Sizeof(info))
	ret, _, _ := procGetGUIThreadInfo.Call(threadID, uintptr(unsafe.Pointer(&info)))
	if ret != 0 && info.hwndFocus != 0 {
		focus = info.hwndFocus
	}
	return foreground, threadID, focus, nil
}

var errNoForegroundWindow = winError("ime: GetForegroundWindow returned no window")

type winError string

func (e winError) Error() string { return string(e) }
