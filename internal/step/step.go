// Package step defines the unit of work executed by deployment plans.
//
// A plan is an ordered slice of [Step] values run by the lifecycle executor.
// Every step has a display name and description, an idempotency pre-check
// ([Step.IsSkip]) and the operation itself ([Step.Run]). Both report their
// outcome as a [Result] rather than a Go error: steps are expected to translate
// every operation-specific failure into [Failed].
//
// Key types:
//   - [Step] is the capability every plan entry implements
//   - [Base] carries name and description and a default no-skip pre-check
//   - [Result] is the outcome value (Completed, Failed or Skipped)
//   - [Progress] is the live status line a running step may update
package step

import "context"

// Progress is a live, single-line status indicator owned by the plan runner.
//
// The executor acquires one before calling [Step.Run] and releases it after
// Run returns. Steps may call Update any number of times; implementations must
// be safe for concurrent use since background reporters update it too.
type Progress interface {
	Update(status string)
}

// Step is one idempotent unit of work in a plan.
type Step interface {
	// Name is the short identity of the step, used in logs and metrics.
	Name() string

	// Description is the human readable line shown while the step runs.
	Description() string

	// IsSkip decides whether Run should be called. A Completed result means
	// run the step, Skipped means the step is not needed and Failed aborts the
	// plan with the result's message.
	IsSkip(ctx context.Context) Result

	// Run performs the operation. It may be long running.
	Run(ctx context.Context, progress Progress) Result
}

// Base provides the identity strings and a pre-check that never skips.
// Concrete steps embed it and override IsSkip when they have a cheaper way to
// tell the work is already done.
type Base struct {
	name        string
	description string
}

// NewBase returns a Base with the given name and description.
func NewBase(name, description string) Base {
	return Base{name: name, description: description}
}

// Name returns the step name.
func (b Base) Name() string { return b.name }

// Description returns the step description.
func (b Base) Description() string { return b.description }

// IsSkip never skips.
func (b Base) IsSkip(context.Context) Result { return Completed() }

// NopProgress discards status updates. Useful when a step is run outside the
// executor, e.g. from tests.
type NopProgress struct{}

// Update does nothing.
func (NopProgress) Update(string) {}

// Func adapts plain functions into a [Step].
type Func struct {
	Base
	SkipFunc func(ctx context.Context) Result
	RunFunc  func(ctx context.Context, progress Progress) Result
}

// NewFunc builds a step from a run function.
func NewFunc(name, description string, run func(ctx context.Context, progress Progress) Result) *Func {
	return &Func{Base: NewBase(name, description), RunFunc: run}
}

// IsSkip calls SkipFunc when set.
func (f *Func) IsSkip(ctx context.Context) Result {
	if f.SkipFunc == nil {
		return Completed()
	}
	return f.SkipFunc(ctx)
}

// Run calls RunFunc.
func (f *Func) Run(ctx context.Context, progress Progress) Result {
	return f.RunFunc(ctx, progress)
}
