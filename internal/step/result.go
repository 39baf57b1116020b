package step

import "fmt"

// ResultType classifies the outcome of a single step execution.
type ResultType int

const (
	// ResultCompleted indicates the step did its work (or had nothing to do).
	ResultCompleted ResultType = iota

	// ResultFailed indicates the step could not complete. The plan stops.
	ResultFailed

	// ResultSkipped indicates the step was not run, typically because the
	// target is already in the desired state.
	ResultSkipped
)

// String returns the lowercase name of the result type.
func (t ResultType) String() string {
	switch t {
	case ResultCompleted:
		return "completed"
	case ResultFailed:
		return "failed"
	case ResultSkipped:
		return "skipped"
	}
	return fmt.Sprintf("ResultType(%d)", int(t))
}

// Result is the immutable outcome of one step invocation.
//
// Message is set for Failed and Skipped results and left empty for Completed
// ones. Use [Completed], [Failed] and [Skipped] to construct results so the
// convention holds.
type Result struct {
	Type    ResultType
	Message string
}

// Completed returns a successful result.
func Completed() Result {
	return Result{Type: ResultCompleted}
}

// Failed returns a failed result carrying the given message.
func Failed(message string) Result {
	return Result{Type: ResultFailed, Message: message}
}

// Failedf is [Failed] with fmt.Sprintf formatting.
func Failedf(format string, args ...any) Result {
	return Failed(fmt.Sprintf(format, args...))
}

// Skipped returns a skipped result carrying the reason.
func Skipped(message string) Result {
	return Result{Type: ResultSkipped, Message: message}
}

// IsCompleted reports whether the result is Completed.
func (r Result) IsCompleted() bool { return r.Type == ResultCompleted }

// IsFailed reports whether the result is Failed.
func (r Result) IsFailed() bool { return r.Type == ResultFailed }

// IsSkipped reports whether the result is Skipped.
func (r Result) IsSkipped() bool { return r.Type == ResultSkipped }

// String renders the result for logs, e.g. "failed: apply failed".
func (r Result) String() string {
	if r.Message == "" {
		return r.Type.String()
	}
	return r.Type.String() + ": " + r.Message
}
