package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"sunbeam/internal/router"
)

func newDisableCommand(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "disable <feature>",
		Short: "Disable a feature",
		Long: `Disable an optional feature of the deployment.

The command removes the feature's applications and waits for them to be gone.
Disabling a feature that is not enabled does nothing.

Example:
  sunbeam disable shared-filesystem --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := args[0]

			if err := app.preflight(ctx); err != nil {
				return app.failed(err)
			}

			plan, err := app.Router.Route(app.Deployment, router.ActionDisable, name)
			if errors.Is(err, router.ErrAlreadyDisabled) {
				app.Printer.Println(fmt.Sprintf("Feature %s is not enabled", name))
				return nil
			}
			if err != nil {
				return app.failed(err)
			}

			if !yes {
				ok, err := app.Confirm(fmt.Sprintf("Disable %s? Its applications and data will be removed.", plan.Feature.DisplayName()))
				if err != nil {
					return app.failed(err)
				}
				if !ok {
					app.Printer.Println("Aborted")
					return NewExitError(1)
				}
			}

			if err := app.runPlan(ctx, plan); err != nil {
				return app.failed(err)
			}
			app.Printer.Println(fmt.Sprintf("%s disabled", plan.Feature.DisplayName()))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
