package cli

import (
	"context"
	"errors"

	"sunbeam/internal/checks"
	"sunbeam/internal/lifecycle"
	"sunbeam/internal/router"
	"sunbeam/internal/step"
)

// runSteps runs steps with the executor, recording step metrics.
func (a *App) runSteps(ctx context.Context, name string, steps []step.Step) error {
	executor := lifecycle.NewExecutor(a.Printer, a.Logger)
	executor.SetObserver(a.Metrics)
	executor.SetProgressCallback(func(i, total int, stepName string) {
		a.Logger.Debug().Str("plan", name).Int("step", i).Int("total", total).Msg(stepName)
	})

	_, err := executor.RunPlan(ctx, steps)

	a.Metrics.ObservePlan(name, err, a.Deployment.Clock.Now())
	if werr := a.Metrics.WriteToTextfile(a.Config.Metrics.TextfilePath); werr != nil {
		a.Logger.Warn().Err(werr).Msg("Failed to write metrics")
	}
	return err
}

// runPlan runs plan and records the feature state it reaches.
func (a *App) runPlan(ctx context.Context, plan *router.Plan) error {
	a.Logger.Info().Str("plan", plan.Name()).Int("steps", len(plan.Steps)).Msg("Running plan")
	if err := a.runSteps(ctx, plan.Name(), plan.Steps); err != nil {
		return err
	}
	return plan.Commit(a.Deployment.Store)
}

// preflight runs the checks every state-changing command needs.
func (a *App) preflight(ctx context.Context) error {
	return checks.RunPreflightChecks(ctx, []checks.Check{
		checks.NewVerifyBootstrappedCheck(a.Deployment.Store),
	}, a.Printer, a.Logger)
}

// failed reports err and returns the exit error of a failed command. The
// executor already printed the message of a failed plan.
func (a *App) failed(err error) error {
	var planErr *lifecycle.PlanFailedError
	var checkErr *checks.FailedError
	switch {
	case errors.As(err, &planErr):
	case errors.As(err, &checkErr):
		a.Printer.Error(checkErr.Error())
	default:
		a.Printer.Error(err.Error())
	}
	return NewExitError(1)
}
