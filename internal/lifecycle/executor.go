// Package lifecycle runs deployment plans: ordered slices of [step.Step].
//
// The lifecycle package provides [Executor] which runs each step in order,
// consulting the step's pre-check first and stopping at the first failure.
//
// Key concepts:
//   - A skipped pre-check records a Skipped result and moves on without Run
//   - Run is called under a scoped live status line that is released on every
//     exit path, including a panic inside the step
//   - A Failed result stops the plan; completed steps are not rolled back
//   - Progress can be tracked via [ProgressCallback] and [Observer]
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sunbeam/internal/output"
	"sunbeam/internal/step"
)

// ProgressCallback is invoked before each step begins.
//
// The callback receives stepIndex (1-based), totalSteps count, and the step name.
type ProgressCallback func(stepIndex, totalSteps int, name string)

// Observer receives the outcome of every step, including skipped ones.
// The metrics package provides the production implementation.
type Observer interface {
	ObserveStep(name string, result step.Result, elapsed time.Duration)
}

// StepResult pairs a step name with its outcome.
type StepResult struct {
	Name   string
	Result step.Result
}

// Results is the ordered list of outcomes of an executed plan.
type Results []StepResult

// Get returns the result recorded for the named step.
func (r Results) Get(name string) (step.Result, bool) {
	for _, sr := range r {
		if sr.Name == name {
			return sr.Result, true
		}
	}
	return step.Result{}, false
}

// PlanFailedError is returned by [Executor.RunPlan] when a step fails.
type PlanFailedError struct {
	// Step is the name of the failing step.
	Step string

	// Message is the failing result's message.
	Message string
}

// Error returns the failing step's message, which is what the user sees.
func (e *PlanFailedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("step %q failed", e.Step)
	}
	return e.Message
}

// Executor runs plans step by step.
//
// Executor uses dependency injection for testability: the [output.Printer]
// receives one line per step and hands out status lines, and the logger
// receives debug traces. Use [NewExecutor] to create an instance.
//
// The printer is the only user facing sink. A failed step prints its
// description as failed followed by the step's message, once. The logger
// records the same outcome at debug level only, which the CLI routes to
// the log file and shows on the console with --verbose. Every record of a
// run carries a plan_id field so the lines of one plan can be grouped.
//
// Example:
//
//	executor := lifecycle.NewExecutor(printer, logger)
//	executor.SetObserver(recorder)
//	results, err := executor.RunPlan(ctx, plan.Steps)
//	var failed *lifecycle.PlanFailedError
//	if errors.As(err, &failed) {
//	    // failed.Step names the step that stopped the plan
//	}
type Executor struct {
	printer          *output.Printer
	logger           zerolog.Logger
	progressCallback ProgressCallback
	observer         Observer
	now              func() time.Time
}

// NewExecutor creates an Executor reporting through printer and logger.
func NewExecutor(printer *output.Printer, logger zerolog.Logger) *Executor {
	return &Executor{
		printer: printer,
		logger:  logger,
		now:     time.Now,
	}
}

// SetProgressCallback configures an optional progress callback.
func (e *Executor) SetProgressCallback(cb ProgressCallback) {
	e.progressCallback = cb
}

// SetObserver configures an optional step outcome observer.
func (e *Executor) SetObserver(o Observer) {
	e.observer = o
}

// RunPlan executes steps in order.
//
// For each step, IsSkip is consulted first: Skipped records the result and
// continues, Failed aborts the plan. Otherwise Run is called and its result
// recorded. The first Failed result stops execution and is returned as a
// [PlanFailedError]; the steps after it are never invoked.
//
// A panic raised by a step is not recovered. It is a defect and terminates
// the plan, but the status line acquired for the step is still released.
func (e *Executor) RunPlan(ctx context.Context, steps []step.Step) (Results, error) {
	logger := e.logger.With().Str("plan_id", uuid.NewString()).Logger()
	results := make(Results, 0, len(steps))
	total := len(steps)

	for i, s := range steps {
		if e.progressCallback != nil {
			e.progressCallback(i+1, total, s.Name())
		}

		started := e.now()
		logger.Debug().Str("step", s.Name()).Msg("Starting step")

		skip := s.IsSkip(ctx)
		switch skip.Type {
		case step.ResultSkipped:
			logger.Debug().Str("step", s.Name()).Str("reason", skip.Message).Msg("Skipping step")
			e.printer.StepSkipped(s.Description())
			results = append(results, StepResult{Name: s.Name(), Result: skip})
			e.observe(s.Name(), skip, started)
			continue
		case step.ResultFailed:
			logger.Debug().Str("step", s.Name()).Str("error", skip.Message).Msg("Step pre-check failed")
			e.printer.StepFailed(s.Description())
			results = append(results, StepResult{Name: s.Name(), Result: skip})
			e.observe(s.Name(), skip, started)
			return results, e.fail(s.Name(), skip.Message)
		}

		result := e.runStep(ctx, s)
		results = append(results, StepResult{Name: s.Name(), Result: result})
		e.observe(s.Name(), result, started)

		if result.IsFailed() {
			logger.Debug().Str("step", s.Name()).Str("error", result.Message).Msg("Step failed")
			e.printer.StepFailed(s.Description())
			return results, e.fail(s.Name(), result.Message)
		}

		logger.Debug().Str("step", s.Name()).Stringer("result", result).Msg("Finished step")
		e.printer.StepDone(s.Description())
	}

	return results, nil
}

// runStep calls Run under a scoped status line.
func (e *Executor) runStep(ctx context.Context, s step.Step) step.Result {
	status := e.printer.StartStatus(s.Description())
	defer status.Stop()
	return s.Run(ctx, status)
}

func (e *Executor) fail(name, message string) error {
	if message != "" {
		e.printer.Error(message)
	}
	return &PlanFailedError{Step: name, Message: message}
}

func (e *Executor) observe(name string, result step.Result, started time.Time) {
	if e.observer != nil {
		e.observer.ObserveStep(name, result, e.now().Sub(started))
	}
}

// Preview returns the descriptions of steps without running them.
//
// Preview provides dry-run functionality for the CLI.
func Preview(steps []step.Step) []string {
	lines := make([]string, len(steps))
	for i, s := range steps {
		lines[i] = fmt.Sprintf("%d. %s", i+1, s.Description())
	}
	return lines
}
