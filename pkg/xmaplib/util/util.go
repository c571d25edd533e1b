// Package util holds small OS-facing helpers shared across the service and
// mapconfig packages. Adapted from the teacher's own
// pkg/deej/util package, trimmed to what this domain actually uses.
package util

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"

	"go.uber.org/zap"
)

// EnsureDirExists creates path (and any missing parents) if it doesn't exist.
func EnsureDirExists(path string) error {
	if err := os.MkdirAll(path, os.ModePerm); err != nil {
		return fmt.Errorf("ensure directory exists (%s): %w", path, err)
	}
	return nil
}

// FileExists reports whether filename exists and is not a directory.
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// Linux reports whether the process is running on Linux.
func Linux() bool {
	return runtime.GOOS == "linux"
}

// SetupCloseHandler returns a channel that receives the OS signal when the
// process is asked to terminate (Ctrl+C or SIGTERM).
func SetupCloseHandler() chan os.Signal {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	return c
}

// DumpAllGoroutines writes every goroutine's stack trace to logger, for
// diagnosing a stuck tick loop or config watcher from the tray menu.
func DumpAllGoroutines(logger *zap.SugaredLogger) {
	buf := make([]byte, 1024*1024)
	n := runtime.Stack(buf, true)
	logger.Errorw("all goroutines stack trace", "stack", string(buf[:n]))
}

// OpenExternal opens arg with cmd (e.g. an editor opening the mapping file
// from the tray menu) through the platform shell: `cmd.exe /C start /b` on
// Windows, `/bin/bash -c` on Linux. It waits for that shell command to
// return, so on Linux it blocks until cmd itself exits.
func OpenExternal(logger *zap.SugaredLogger, cmd string, arg string) error {
	args := []string{"cmd.exe", "/C", "start", "/b", cmd, arg}
	if Linux() {
		args = []string{"/bin/bash", "-c", fmt.Sprintf("%s %s", cmd, arg)}
	}

	command := exec.Command(args[0], args[1:]...)
	if err := command.Run(); err != nil {
		logger.Warnw("failed to spawn detached process", "command", cmd, "argument", arg, "error", err)
		return fmt.Errorf("spawn detached proc: %w", err)
	}
	return nil
}
