//go:build linux
// +build linux

package actionsteps

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
)

type linuxProcess struct {
	cmd *exec.Cmd
}

func (p *linuxProcess) kill() {
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
}

func (p *linuxProcess) wait() {
	_ = p.cmd.Wait()
}

// keystrokeImpl simulates a key combination via xdotool.
func keystrokeImpl(ctx context.Context, step *Step, logger *zap.SugaredLogger) error {
	if step.Keys == "" {
		return fmt.Errorf("keys is required for keystroke")
	}
	if _, err := exec.LookPath("xdotool"); err != nil {
		return &ActionError{Type: ErrorKeystrokeUnavailable, Message: "xdotool not found. Install it: sudo apt-get install xdotool", Step: step, Err: err}
	}

	keys := strings.Split(step.Keys, "+")
	xdotoolKeys := buildXdotoolKeyString(keys)

	cmd := exec.CommandContext(ctx, "xdotool", "key", xdotoolKeys)
	if err := cmd.Run(); err != nil {
		if isPermissionError(err) {
			return &ActionError{Type: ErrorPermissionDenied, Message: "permission denied sending keystroke", Step: step, Err: err}
		}
		return fmt.Errorf("send keystroke: %w", err)
	}
	return nil
}

func buildXdotoolKeyString(keys []string) string {
	var parts []string
	for _, k := range keys {
		k = strings.ToLower(strings.TrimSpace(k))
		switch k {
		case "ctrl", "control":
			parts = append(parts, "ctrl")
		case "alt":
			parts = append(parts, "alt")
		case "shift":
			parts = append(parts, "shift")
		case "win", "windows", "meta", "super":
			parts = append(parts, "super")
		default:
			parts = append(parts, k)
		}
	}
	return strings.Join(parts, "+")
}

// typingImpl types text via xdotool.
func typingImpl(ctx context.Context, step *Step, logger *zap.SugaredLogger) error {
	if step.Text == "" {
		return fmt.Errorf("text is required for typing")
	}
	if _, err := exec.LookPath("xdotool"); err != nil {
		return &ActionError{Type: ErrorKeystrokeUnavailable, Message: "xdotool not found. Install it: sudo apt-get install xdotool", Step: step, Err: err}
	}

	processed := processEscapeSequences(step.Text)

	var cmd *exec.Cmd
	if step.CharDelay > 0 {
		cmd = exec.CommandContext(ctx, "xdotool", "type", "--delay", fmt.Sprintf("%d", step.CharDelay), processed)
	} else {
		cmd = exec.CommandContext(ctx, "xdotool", "type", processed)
	}

	if err := cmd.Run(); err != nil {
		if isPermissionError(err) {
			return &ActionError{Type: ErrorPermissionDenied, Message: "permission denied typing text", Step: step, Err: err}
		}
		return fmt.Errorf("type text: %w", err)
	}
	return nil
}

// launchImpl runs an execute step. For wait: true it blocks until the
// process exits (or the timeout fires) and returns nil on success. For
// wait: false it starts the process and returns a trackedProcess the caller
// waits on asynchronously.
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
				if cmd.Process.Pid > 0 {
					_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
				}
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
		logger.Warnw("wait_wnd is not supported on Linux", "app", step.App)
		_ = cmd.Process.Kill()
		return nil, &ActionError{Type: ErrorExecutionFailed, Message: "wait_wnd is Windows-only", Step: step, Err: errors.New("wait_wnd not supported on Linux")}
	}

	return &linuxProcess{cmd: cmd}, nil
}

func isPermissionError(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "permission denied") || strings.Contains(s, "eacces") || strings.Contains(s, "access denied")
}
