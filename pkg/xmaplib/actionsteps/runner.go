package actionsteps

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultWaitTimeout = 30 * time.Second

// Notifier surfaces a user-facing message. Satisfied by notify.ToastNotifier;
// kept as a minimal local interface so this package doesn't depend on
// xmaplib/notify.
type Notifier interface {
	Notify(title, message string)
}

// Runner compiles and executes Sequences, tracking in-flight runs so a
// second invocation of an Exclusive sequence can be skipped, and so every
// spawned process can be force-terminated on Cancel (e.g. on config reload).
// Grounded on the teacher's ButtonHandler.
type Runner struct {
	logger   *zap.SugaredLogger
	notifier Notifier

	runningMu sync.Mutex
	running   map[string]context.CancelFunc

	processesMu sync.Mutex
	processes   map[string]trackedProcess
}

// NewRunner builds a Runner. notifier may be nil, in which case execution
// failures are only logged.
func NewRunner(logger *zap.SugaredLogger, notifier Notifier) *Runner {
	return &Runner{
		logger:    logger.Named("actionsteps"),
		notifier:  notifier,
		running:   make(map[string]context.CancelFunc),
		processes: make(map[string]trackedProcess),
	}
}

// Compile returns a func() that, when invoked, runs seq under key (used for
// exclusivity bookkeeping and process tracking). The returned func never
// blocks the caller: execution happens on its own goroutine, matching
// HandleButtonPress's fire-and-forget dispatch.
func (r *Runner) Compile(key string, seq Sequence) func() {
	steps := make([]Step, len(seq.Steps))
	copy(steps, seq.Steps)

	return func() {
		if len(steps) == 0 {
			return
		}

		if seq.Exclusive {
			r.runningMu.Lock()
			_, busy := r.running[key]
			r.runningMu.Unlock()
			if busy {
				r.logger.Debugw("sequence already running, skipping", "key", key)
				return
			}
		}

		ctx, cancel := context.WithCancel(context.Background())
		r.runningMu.Lock()
		r.running[key] = cancel
		r.runningMu.Unlock()

		go func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.Errorw("panic executing action sequence", "key", key, "panic", rec)
				}
				r.runningMu.Lock()
				delete(r.running, key)
				r.runningMu.Unlock()
				cancel()
			}()

			if err := r.execute(ctx, key, steps); err != nil {
				if errors.Is(err, context.Canceled) {
					r.logger.Debugw("action sequence cancelled", "key", key)
					return
				}
				r.logger.Warnw("action sequence failed", "key", key, "error", err)
				r.notify(err)
			}
		}()
	}
}

func (r *Runner) notify(err error) {
	if r.notifier == nil {
		return
	}
	title := "Action failed"
	message := err.Error()
	var actionErr *ActionError
	if errors.As(err, &actionErr) && actionErr.Step != nil && actionErr.Step.Type == TypeExecute && actionErr.Step.App != "" {
		title = "Failed to execute application"
		message = fmt.Sprintf("Cannot find or run: %s\n\n%s", actionErr.Step.App, actionErr.Message)
	}
	r.notifier.Notify(title, message)
}

func (r *Runner) execute(ctx context.Context, key string, steps []Step) error {
	for i, step := range steps {
		select {
		case <-ctx.Done():
			return context.Canceled
		default:
		}

		var err error
		switch step.Type {
		case TypeExecute:
			err = r.executeLaunch(ctx, key, &step)
		case TypeDelay:
			err = r.executeDelay(ctx, &step)
		case TypeKeystroke:
			err = keystrokeImpl(ctx, &step, r.logger)
		case TypeTyping:
			err = typingImpl(ctx, &step, r.logger)
		default:
			err = fmt.Errorf("unknown step type: %s", step.Type)
		}

		if err != nil {
			return fmt.Errorf("step %d (%s) failed: %w", i, step.Type, err)
		}
	}
	return nil
}

func (r *Runner) executeDelay(ctx context.Context, step *Step) error {
	if step.Ms <= 0 {
		return fmt.Errorf("delay ms must be positive, got %d", step.Ms)
	}
	select {
	case <-ctx.Done():
		return context.Canceled
	case <-time.After(time.Duration(step.Ms) * time.Millisecond):
		return nil
	}
}

// Cancel cancels every in-flight sequence and force-terminates every tracked
// process. Called on every file-watch config reload and on shutdown.
func (r *Runner) Cancel() {
	r.runningMu.Lock()
	toCancel := r.running
	r.running = make(map[string]context.CancelFunc)
	r.runningMu.Unlock()

	for _, cancel := range toCancel {
		cancel()
	}

	r.processesMu.Lock()
	toKill := r.processes
	r.processes = make(map[string]trackedProcess)
	r.processesMu.Unlock()

	for key, p := range toKill {
		r.logger.Debugw("force terminating tracked process", "key", key)
		p.kill()
	}
}

func (r *Runner) track(key string, p trackedProcess) {
	r.processesMu.Lock()
	defer r.processesMu.Unlock()
	r.processes[key] = p
}

func (r *Runner) untrack(key string) {
	r.processesMu.Lock()
	defer r.processesMu.Unlock()
	delete(r.processes, key)
}
