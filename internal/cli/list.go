package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List features and whether they are enabled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Printer.Println(fmt.Sprintf("%-24s %s", "FEATURE", "ENABLED"))
			for _, name := range app.Router.Names() {
				enabled, err := app.Deployment.Store.FeatureEnabled(name)
				if err != nil {
					return app.failed(err)
				}
				app.Printer.Println(fmt.Sprintf("%-24s %t", name, enabled))
			}
			return nil
		},
	}
}
