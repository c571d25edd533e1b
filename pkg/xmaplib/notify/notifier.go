// Package notify surfaces user-facing messages (config errors, action
// failures) as OS toast notifications.
package notify

import (
	"github.com/gen2brain/beeep"
	"go.uber.org/zap"
)

// Notifier is the minimal surface other packages depend on, so tests can
// substitute a recording fake without pulling in beeep.
type Notifier interface {
	Notify(title, message string)
}

// ToastNotifier shows OS-native toast notifications via beeep.
type ToastNotifier struct {
	logger *zap.SugaredLogger
}

// NewToastNotifier builds a ToastNotifier. Mirrors the teacher's
// NewToastNotifier(logger) constructor shape.
func NewToastNotifier(logger *zap.SugaredLogger) (*ToastNotifier, error) {
	return &ToastNotifier{logger: logger.Named("toast_notifier")}, nil
}

// Notify shows a toast notification. Failures are logged, not returned:
// a broken notification backend must never block the caller.
func (n *ToastNotifier) Notify(title, message string) {
	n.logger.Infow("Sending notification", "title", title, "message", message)
	if err := beeep.Notify(title, message, ""); err != nil {
		n.logger.Warnw("Failed to show notification", "error", err)
	}
}
