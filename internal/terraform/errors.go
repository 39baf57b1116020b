package terraform

import (
	"fmt"
	"strings"

	"github.com/juju/errors"
)

// ErrStateLocked matches apply errors caused by a held state lock.
const ErrStateLocked = errors.ConstError("terraform state locked")

const stateLockMarker = "Error acquiring the state lock"

// ApplyError is returned when a terraform command exits non-zero.
type ApplyError struct {
	// Plan is the plan the command ran against.
	Plan string

	// Op is the terraform operation, e.g. "apply".
	Op string

	// Stderr is terraform's error output.
	Stderr string

	locked bool
}

func newApplyError(plan, op, stderr string) *ApplyError {
	return &ApplyError{
		Plan:   plan,
		Op:     op,
		Stderr: strings.TrimSpace(stderr),
		locked: strings.Contains(stderr, stateLockMarker),
	}
}

// Error implements error.
func (e *ApplyError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("terraform %s failed for %s", e.Op, e.Plan)
	}
	return fmt.Sprintf("terraform %s failed for %s: %s", e.Op, e.Plan, e.Stderr)
}

// Is matches [ErrStateLocked] when terraform reported a held lock.
func (e *ApplyError) Is(target error) bool {
	return e.locked && target == ErrStateLocked
}
