// Package cli implements the sunbeam command line.
//
// Each command lives in its own file and receives the shared [App], which
// holds the configuration, the deployment handles and the output sinks.
// Commands return [ExitError] values instead of exiting so tests can run
// them in process; [Execute] performs the actual os.Exit.
//
// Key types:
//   - [App] - dependencies shared by every command
//   - [ExecuteResult] - outcome of a command line run
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"sunbeam/internal/clusterd"
	"sunbeam/internal/command"
	"sunbeam/internal/config"
	"sunbeam/internal/deployment"
	"sunbeam/internal/juju"
	"sunbeam/internal/logging"
	"sunbeam/internal/manifest"
	"sunbeam/internal/metrics"
	"sunbeam/internal/output"
	"sunbeam/internal/router"
)

// ConfirmFunc asks the user a yes/no question.
type ConfirmFunc func(message string) (bool, error)

// App holds the dependencies of every command.
//
// Tests build an App with a test deployment and a buffered printer. The
// binary leaves Deployment nil; it is built from Config on first use, once
// the flags are parsed.
type App struct {
	Config     *config.Config
	Deployment *deployment.Deployment
	Router     *router.Router
	Printer    *output.Printer
	Logger     zerolog.Logger
	Metrics    *metrics.Recorder
	Confirm    ConfirmFunc

	verbose bool
	closers []io.Closer
}

// NewApp creates an App for cfg with the shipped features.
func NewApp(cfg *config.Config) *App {
	return &App{
		Config:  cfg,
		Router:  router.Default(),
		Printer: output.NewPrinter(),
		Logger:  zerolog.Nop(),
		Metrics: metrics.NewRecorder(),
		Confirm: surveyConfirm,
	}
}

func surveyConfirm(message string) (bool, error) {
	ok := false
	prompt := &survey.Confirm{Message: message, Default: false}
	if err := survey.AskOne(prompt, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

// setup builds the logger and the deployment handles from the configuration.
func (a *App) setup() error {
	if a.Deployment != nil {
		return nil
	}

	logger, closer, err := logging.New(a.Config.Logging, logging.Options{Verbose: a.verbose})
	if err != nil {
		return err
	}
	a.Logger = logger
	a.closers = append(a.closers, closer)

	dataDir, err := config.DataDir()
	if err != nil {
		return err
	}
	store := clusterd.NewStore(clusterd.ResolvePath(dataDir, a.Config.StatePath))

	var m *manifest.Manifest
	if a.Config.ManifestPath != "" {
		m, err = manifest.ReadFromFile(a.Config.ManifestPath)
		if err != nil {
			return fmt.Errorf("read manifest: %w", err)
		}
	}

	runner := command.NewExecRunner()
	client := juju.NewCLIClient(a.Config.Juju.BinaryPath, runner, logger)
	a.Deployment = deployment.New(a.Config, store, m, client, runner, nil, logger)
	return nil
}

func (a *App) close() {
	for _, c := range a.closers {
		_ = c.Close()
	}
	a.closers = nil
}

// accountsDir is where juju keeps one account file per controller.
func (a *App) accountsDir() (string, error) {
	if a.Config.Juju.AccountsDir != "" {
		return a.Config.Juju.AccountsDir, nil
	}
	dataDir, err := config.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "juju"), nil
}

// NewRootCommand creates the root command with every subcommand attached.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sunbeam",
		Short: "Manage the features of an OpenStack deployment",
		Long: `sunbeam drives juju and terraform to enable, disable and upgrade the
optional services of an OpenStack deployment.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup()
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "Show debug logs on the console")

	rootCmd.AddCommand(
		newEnableCommand(app),
		newDisableCommand(app),
		newUpgradeCommand(app),
		newListCommand(app),
		newWaitCommand(app),
		newChecksCommand(app),
	)
	return rootCmd
}

// ExecuteResult is the outcome of [RunWithConfig].
type ExecuteResult struct {
	ExitCode int
	Err      error
}

// RunWithConfig runs the command line args against app.
//
// A failure after ctx is cancelled exits with [ExitInterrupted] and an error
// wrapping the cancellation cause, whatever the command returned.
func RunWithConfig(ctx context.Context, app *App, args []string) ExecuteResult {
	defer app.close()

	rootCmd := NewRootCommand(app)
	rootCmd.SetArgs(args)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if ctx.Err() != nil {
			app.Logger.Debug().Err(err).Msg("Command interrupted")
			return ExecuteResult{ExitCode: ExitInterrupted, Err: fmt.Errorf("interrupted: %w", context.Cause(ctx))}
		}
		if code, ok := IsExitError(err); ok {
			return ExecuteResult{ExitCode: code, Err: err}
		}
		return ExecuteResult{ExitCode: 1, Err: err}
	}
	return ExecuteResult{}
}

// Execute loads the configuration, runs the command line and exits.
func Execute() {
	cfg, err := config.NewLoader().Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	result := RunWithConfig(ctx, NewApp(cfg), os.Args[1:])
	stop()

	if _, ok := IsExitError(result.Err); result.Err != nil && !ok {
		fmt.Fprintf(os.Stderr, "Error: %v\n", result.Err)
	}
	os.Exit(result.ExitCode)
}
