package cli

import (
	"time"

	"github.com/spf13/cobra"

	"sunbeam/internal/feature"
	"sunbeam/internal/step"
)

func newWaitCommand(app *App) *cobra.Command {
	var (
		model   string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "wait <application> [application...]",
		Short: "Wait for applications to settle",
		Long: `Wait until every unit of the given applications is idle and active.

Applications that are not deployed are ignored. The command fails when the
units have not settled before the timeout.

Example:
  sunbeam wait manila manila-cephfs --timeout 10m`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if model == "" {
				model = app.Deployment.OpenStackModel()
			}
			if timeout <= 0 {
				timeout = app.Config.Timeouts.Settle
			}

			wait := feature.NewWaitForApplicationsStep(app.Deployment.Poller(), args, model, timeout)
			if err := app.runSteps(cmd.Context(), "wait", []step.Step{wait}); err != nil {
				return app.failed(err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "Model of the applications (default: the OpenStack model)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "How long to wait (default: timeouts.settle)")
	return cmd
}
