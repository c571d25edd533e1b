//go:build windows
// +build windows

package actionsteps

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"
	"unsafe"

	"github.com/lxn/win"
	"go.uber.org/zap"
)

var (
	moduser32 = syscall.NewLazyDLL("user32.dll")

	procKeybdEvent         = moduser32.NewProc("keybd_event")
	procSendMessageTimeout = moduser32.NewProc("SendMessageTimeoutW")
)

const (
	keyeventfKeyup    = 0x0002
	keyeventfUnicode  = 0x0004
	smtoAbortIfHung   = 0x0002
	smtoBlock         = 0x0001
	wmNull            = 0x0000
	windowReadyWaitMs = 100
)

type windowsProcess struct {
	cmd *exec.Cmd
}

func (p *windowsProcess) kill() {
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
}

func (p *windowsProcess) wait() {
	_ = p.cmd.Wait()
}

// keystrokeImpl simulates a key combination with keybd_event: modifiers
// press in order, the main key presses and releases, modifiers release in
// reverse order.
func keystrokeImpl(ctx context.Context, step *Step, logger *zap.SugaredLogger) error {
	if step.Keys == "" {
		return fmt.Errorf("keys is required for keystroke")
	}
	keys := strings.Split(step.Keys, "+")

	for i := 0; i < len(keys)-1; i++ {
		if vk := virtualKeyCode(keys[i]); vk != 0 {
			procKeybdEvent.Call(vk, 0, 0, 0)
		}
	}

	mainVK := virtualKeyCode(keys[len(keys)-1])
	if mainVK != 0 {
		procKeybdEvent.Call(mainVK, 0, 0, 0)
		procKeybdEvent.Call(mainVK, 0, keyeventfKeyup, 0)
	}

	for i := len(keys) - 2; i >= 0; i-- {
		if vk := virtualKeyCode(keys[i]); vk != 0 {
			procKeybdEvent.Call(vk, 0, keyeventfKeyup, 0)
		}
	}
	return nil
}

// virtualKeyCode maps a key name to its Windows virtual-key code. Single
// printable characters map directly to their uppercase ASCII code.
func virtualKeyCode(keyName string) uintptr {
	switch strings.ToLower(strings.TrimSpace(keyName)) {
	case "ctrl", "control":
		return 0x11
	case "alt":
		return 0x12
	case "shift":
		return 0x10
	case "win", "windows", "meta", "super":
		return 0x5B
	case "enter", "return":
		return 0x0D
	case "tab":
		return 0x09
	case "escape", "esc":
		return 0x1B
	case "backspace":
		return 0x08
	case "delete", "del":
		return 0x2E
	case "home":
		return 0x24
	case "end":
		return 0x23
	case "up":
		return 0x26
	case "down":
		return 0x28
	case "left":
		return 0x25
	case "right":
		return 0x27
	case "space":
		return 0x20
	default:
		k := strings.TrimSpace(keyName)
		if len(k) == 1 {
			return uintptr(strings.ToUpper(k)[0])
		}
		return 0
	}
}

// typingImpl types text with keybd_event + KEYEVENTF_UNICODE, one UTF-16
// code unit at a time, honoring char_delay between characters.
func typingImpl(ctx context.Context, step *Step, logger *zap.SugaredLogger) error {
	if step.Text == "" {
		return fmt.Errorf("text is required for typing")
	}

	processed := processEscapeSequences(step.Text)
	utf16Text := syscall.StringToUTF16(processed)

	for i, char := range utf16Text {
		if char == 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return context.Canceled
		default:
		}

		if i > 0 {
			delay := step.CharDelay
			if delay == 0 {
				delay = 1
			}
			select {
			case <-ctx.Done():
				return context.Canceled
			case <-time.After(time.Duration(delay) * time.Millisecond):
			}
		}

		switch char {
		case '\n', '\r':
			sendVK(0x0D)
		case '\t':
			sendVK(0x09)
		default:
			procKeybdEvent.Call(0, uintptr(char), keyeventfUnicode, 0)
			time.Sleep(5 * time.Millisecond)
			procKeybdEvent.Call(0, uintptr(char), keyeventfUnicode|keyeventfKeyup, 0)
		}
	}
	return nil
}

func sendVK(vk uintptr) {
	procKeybdEvent.Call(vk, 0, 0, 0)
	time.Sleep(5 * time.Millisecond)
	procKeybdEvent.Call(vk, 0, keyeventfKeyup, 0)
}

// launchImpl starts step.App via exec, optionally blocking for completion
// (Wait) or for a matching window to appear (WaitWnd).
func launchImpl(ctx context.Context, step *Step, logger *zap.SugaredLogger) (trackedProcess, error) {
	if step.Wait {
		waitTimeout := defaultWaitTimeout
		switch {
		case step.WaitTimeout > 0:
			waitTimeout = time.Duration(step.WaitTimeout) * time.Millisecond
		case step.WaitTimeout == 0:
			waitTimeout = 24 * time.Hour
		}

		timeoutCtx, cancel := context.WithTimeout(ctx, waitTimeout)
		defer cancel()

		cmd := exec.CommandContext(timeoutCtx, step.App, step.Args...)
		err := cmd.Run()

		if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
			if cmd.Process != nil {
				_ = cmd.Process.Kill()
			}
			return nil, context.Canceled
		}
		if errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
			if cmd.Process != nil {
				_ = cmd.Process.Kill()
			}
			return nil, &ActionError{Type: ErrorTimeout, Message: fmt.Sprintf("application did not complete within %v", waitTimeout), Step: step, Err: timeoutCtx.Err()}
		}
		return nil, err
	}

	cmd := exec.CommandContext(ctx, step.App, step.Args...)
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	if step.WaitWnd != nil {
		if err := waitForWindow(cmd.Process.Pid, step.WaitWnd, logger); err != nil {
			_ = cmd.Process.Kill()
			return nil, err
		}
	}

	return &windowsProcess{cmd: cmd}, nil
}

// waitForWindow polls for a visible top-level window belonging to pid (and,
// when title is set, whose title contains it), confirming readiness with SendMessageTimeout
// the way the teacher's typingActionImpl does.
func waitForWindow(pid int, wnd *WaitWnd, logger *zap.SugaredLogger) error {
	timeout := time.Duration(wnd.Timeout) * time.Millisecond
	deadline := time.Now().Add(timeout)
	targetPID := uint32(pid)

	for time.Now().Before(deadline) {
		hwnd := findWindowByPID(targetPID, wnd.Title)
		if hwnd != 0 {
			if !wnd.Focused || isForeground(hwnd) {
				confirmWindowReady(hwnd)
				return nil
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	logger.Warnw("wait_wnd timed out", "pid", pid, "timeout", timeout)
	return &ActionError{Type: ErrorTimeout, Message: fmt.Sprintf("window did not appear within %v", timeout), Err: errors.New("wait_wnd timeout")}
}

func findWindowByPID(targetPID uint32, titleFilter string) win.HWND {
	var found win.HWND
	cb := syscall.NewCallback(func(hwnd win.HWND, lParam uintptr) uintptr {
		var windowPID uint32
		win.GetWindowThreadProcessId(hwnd, &windowPID)
		if windowPID != targetPID || !win.IsWindowVisible(hwnd) {
			return 1
		}
		if titleFilter != "" && !strings.Contains(strings.ToLower(windowTitle(hwnd)), strings.ToLower(titleFilter)) {
			return 1
		}
		found = hwnd
		return 0
	})
	win.EnumWindows(cb, 0)
	return found
}

func windowTitle(hwnd win.HWND) string {
	length := win.GetWindowTextLength(hwnd)
	if length == 0 {
		return ""
	}
	buf := make([]uint16, length+1)
	win.GetWindowText(hwnd, &buf[0], length+1)
	return syscall.UTF16ToString(buf)
}

func isForeground(hwnd win.HWND) bool {
	return win.GetForegroundWindow() == hwnd
}

// confirmWindowReady pings the window with WM_NULL via SendMessageTimeout,
// blocking briefly until it responds or the check itself times out.
func confirmWindowReady(hwnd win.HWND) {
	var result uintptr
	procSendMessageTimeout.Call(
		uintptr(hwnd), wmNull, 0, 0,
		smtoBlock|smtoAbortIfHung, uintptr(windowReadyWaitMs),
		uintptr(unsafe.Pointer(&result)),
	)
}
