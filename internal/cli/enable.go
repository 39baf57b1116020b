package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"sunbeam/internal/router"
)

func newEnableCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "enable <feature>",
		Short: "Enable a feature",
		Long: `Enable an optional feature of the deployment.

The command deploys the feature's applications and waits for them to become
active. Enabling a feature that is already enabled does nothing.

Example:
  sunbeam enable shared-filesystem`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := args[0]

			if err := app.preflight(ctx); err != nil {
				return app.failed(err)
			}

			plan, err := app.Router.Route(app.Deployment, router.ActionEnable, name)
			if errors.Is(err, router.ErrAlreadyEnabled) {
				app.Printer.Println(fmt.Sprintf("Feature %s is already enabled", name))
				return nil
			}
			if err != nil {
				return app.failed(err)
			}

			if err := app.runPlan(ctx, plan); err != nil {
				return app.failed(err)
			}
			app.Printer.Println(fmt.Sprintf("%s enabled", plan.Feature.DisplayName()))
			return nil
		},
	}
}
