package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"sunbeam/internal/checks"
)

func newChecksCommand(app *App) *cobra.Command {
	var fqdn, token, format string

	cmd := &cobra.Command{
		Use:   "checks",
		Short: "Run the deployment checks",
		Long: `Run every deployment check and report a verdict per check.

The bootstrap and controller registration checks always run. --fqdn and
--token add the host name and join token validations. The command fails when
any check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			accounts, err := app.accountsDir()
			if err != nil {
				return app.failed(err)
			}

			list := []checks.Check{
				checks.NewVerifyBootstrappedCheck(app.Deployment.Store),
				checks.NewJujuControllerRegistrationCheck(app.Config.Juju.Controller, accounts),
			}
			if fqdn != "" {
				list = append(list, checks.NewVerifyFQDNCheck(fqdn))
			}
			if token != "" {
				list = append(list, checks.NewTokenCheck(token))
			}

			results := make([]checks.DiagnosticsResult, 0, len(list))
			for _, c := range list {
				if err := c.Run(cmd.Context()); err != nil {
					app.Logger.Debug().Str("check", c.Name()).Err(err).Msg("Check failed")
					results = append(results, checks.Fail(c.Name(), err.Error(), ""))
					continue
				}
				results = append(results, checks.Success(c.Name(), ""))
			}

			switch format {
			case "yaml":
				report := make([]map[string]any, len(results))
				for i, r := range results {
					report[i] = r.ToMap()
				}
				data, err := yaml.Marshal(report)
				if err != nil {
					return app.failed(err)
				}
				_, _ = app.Printer.Writer().Write(data)
			case "table":
				checks.WriteResults(app.Printer.Writer(), results)
			default:
				return app.failed(fmt.Errorf("unknown format %q", format))
			}
			if checks.CoalesceType(results) == checks.ResultFailure {
				return NewExitError(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&fqdn, "fqdn", "", "Validate this fully qualified domain name")
	cmd.Flags().StringVar(&token, "token", "", "Validate this join token")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or yaml")
	return cmd
}
