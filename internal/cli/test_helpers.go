package cli

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"

	"sunbeam/internal/command"
	"sunbeam/internal/deployment"
	"sunbeam/internal/feature"
	"sunbeam/internal/juju"
	"sunbeam/internal/metrics"
	"sunbeam/internal/output"
	"sunbeam/internal/router"
)

// MockConfirm answers confirmation prompts for testing.
type MockConfirm struct {
	// Answer is returned for every prompt.
	Answer bool
	// Err is returned instead of an answer when set.
	Err error
	// Messages records the prompts in order.
	Messages []string
}

func (m *MockConfirm) Confirm(message string) (bool, error) {
	m.Messages = append(m.Messages, message)
	if m.Err != nil {
		return false, m.Err
	}
	return m.Answer, nil
}

// testApp bundles an App with the fakes behind it.
type testApp struct {
	*App
	Client  *juju.MockClient
	Runner  *command.MockRunner
	Prompts *MockConfirm
	Out     *bytes.Buffer
}

// newTestApp creates an App routing features over a test deployment whose
// bootstrap flag is set to bootstrapped.
func newTestApp(t *testing.T, bootstrapped bool, features ...feature.Feature) *testApp {
	t.Helper()

	client := juju.NewMockClient()
	runner := command.NewMockRunner()
	d := deployment.NewForTest(t, client, runner)
	if err := d.Store.SetBootstrapped(bootstrapped); err != nil {
		t.Fatalf("failed to write state: %v", err)
	}

	out := &bytes.Buffer{}
	confirm := &MockConfirm{}
	app := &App{
		Config:     d.Config,
		Deployment: d,
		Router:     router.NewRouter(features...),
		Printer:    output.NewPrinterWithWriter(out),
		Logger:     zerolog.Nop(),
		Metrics:    metrics.NewRecorder(),
		Confirm:    confirm.Confirm,
	}
	return &testApp{App: app, Client: client, Runner: runner, Prompts: confirm, Out: out}
}

// run executes the command line args against the app.
func (a *testApp) run(args ...string) error {
	rootCmd := NewRootCommand(a.App)
	rootCmd.SetOut(a.Out)
	rootCmd.SetErr(a.Out)
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}
