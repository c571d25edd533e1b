package actionsteps

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-ps"
)

// trackedProcess is a handle a platform's launchImpl hands back to Runner so
// Cancel can force-terminate it later. Both linuxProcess and windowsProcess
// back it with an *exec.Cmd and satisfy kill().
type trackedProcess interface {
	kill()
	wait()
}

// processEscapeSequences converts \n, \t, \r, \\ in typing text into actual
// characters. Shared between the Linux and Windows typing implementations.
func processEscapeSequences(text string) string {
	result := strings.ReplaceAll(text, "\\\\", "\x00")
	result = strings.ReplaceAll(result, "\\n", "\n")
	result = strings.ReplaceAll(result, "\\r", "\r")
	result = strings.ReplaceAll(result, "\\t", "\t")
	return strings.ReplaceAll(result, "\x00", "\\")
}

// executeLaunch handles the platform-independent parts of an execute step:
// the singleton guard and process tracking, delegating the actual launch to
// launchImpl (runner_linux.go / runner_windows.go).
func (r *Runner) executeLaunch(ctx context.Context, key string, step *Step) error {
	if step.Singleton {
		running, err := isProcessRunning(step.App)
		if err != nil {
			r.logger.Debugw("singleton check failed, proceeding with launch", "app", step.App, "error", err)
		} else if running {
			r.logger.Debugw("singleton process already running, skipping launch", "app", step.App)
			return nil
		}
	}

	proc, err := launchImpl(ctx, step, r.logger)
	if err != nil {
		return err
	}
	if proc == nil {
		return nil
	}

	r.track(key, proc)
	go func() {
		proc.wait()
		r.untrack(key)
	}()
	return nil
}

// isProcessRunning reports whether a process whose executable base name
// matches app (case-insensitively, extension-insensitively) is running.
func isProcessRunning(app string) (bool, error) {
	target := strings.ToLower(strings.TrimSuffix(filepath.Base(app), filepath.Ext(app)))

	procs, err := ps.Processes()
	if err != nil {
		return false, fmt.Errorf("enumerate processes: %w", err)
	}

	for _, p := range procs {
		name := strings.ToLower(strings.TrimSuffix(p.Executable(), filepath.Ext(p.Executable())))
		if name == target {
			return true, nil
		}
	}
	return false, nil
}
