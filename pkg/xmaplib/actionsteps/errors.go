package actionsteps

import "fmt"

// Error types, carried forward from the teacher's ActionError taxonomy.
const (
	ErrorTimeout              = "timeout"
	ErrorExecutionFailed      = "execution_failed"
	ErrorPermissionDenied     = "permission_denied"
	ErrorKeystrokeUnavailable = "keystroke_unavailable"
)

// ActionError reports a step-execution failure, tagged with the step that
// failed so callers can build a user-facing message from it.
type ActionError struct {
	Type    string
	Message string
	Step    *Step
	Err     error
}

func (e *ActionError) Error() string {
	if e.Step != nil {
		return fmt.Sprintf("%s in step %s: %s", e.Type, e.Step.Type, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}
