package cli

import (
	"errors"
	"fmt"
)

// ExitInterrupted is the exit code of a run stopped by SIGINT or SIGTERM.
// It follows the shell convention of 128 plus the signal number of SIGINT.
const ExitInterrupted = 130

// ExitError asks [Execute] to exit with Code.
//
// Commands return it once they have reported the failure themselves, so
// Execute does not print it again. Tests assert on the code without the
// process exiting.
//
// Exit codes:
//   - 0: the command succeeded (no ExitError is returned)
//   - 1: a check, a plan step or an argument failed
//   - [ExitInterrupted]: the context was cancelled by a signal
//
// A cancelled run is reported by [RunWithConfig] rather than by the
// commands: whatever a command returns once its context is done, the
// result carries ExitInterrupted and the cancellation cause. Readiness
// waits stopped this way fail with an error matching context.Canceled,
// which is distinct from a wait timeout.
//
// Example:
//
//	if err := app.runSteps(ctx, "wait", steps); err != nil {
//	    return app.failed(err) // prints the error, returns NewExitError(1)
//	}
type ExitError struct {
	// Code is the process exit code.
	Code int
}

// Error returns "exit status N", the format os/exec uses.
func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// NewExitError creates an [ExitError] with code.
func NewExitError(code int) *ExitError {
	return &ExitError{Code: code}
}

// IsExitError returns the code carried by err when it is, or wraps, an
// [*ExitError].
func IsExitError(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}
