package cli

import (
	"github.com/spf13/cobra"
)

func newUpgradeCommand(app *App) *cobra.Command {
	var release bool

	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Refresh the charms of the enabled features",
		Long: `Refresh the charms of every enabled feature that owns a terraform plan.

Without --release, charms stay on their current channel and the command is a
no-op for every feature. The first failing feature stops the upgrade.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			plans, err := app.Router.Upgrade(app.Deployment, release)
			if err != nil {
				return app.failed(err)
			}
			if len(plans) == 0 {
				app.Printer.Println("No features to upgrade")
				return nil
			}

			for _, plan := range plans {
				if err := app.runPlan(ctx, plan); err != nil {
					return app.failed(err)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&release, "release", false, "Move charms to the channels of the new release")
	return cmd
}
