package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sunbeam/internal/deployment"
	"sunbeam/internal/manifest"
	"sunbeam/internal/step"
)

// stubFeature runs one recorded step per action.
type stubFeature struct {
	name    string
	fail    bool
	upgrade bool
	ran     *[]string
}

func (f stubFeature) Name() string                             { return f.name }
func (f stubFeature) DisplayName() string                      { return "Stub " + f.name }
func (f stubFeature) DefaultSoftware() manifest.SoftwareConfig { return manifest.SoftwareConfig{} }
func (f stubFeature) TfvarMap() manifest.TfvarMap              { return nil }

func (f stubFeature) steps(action string) []step.Step {
	return []step.Step{step.NewFunc(action+" "+f.name, action+" "+f.name, func(context.Context, step.Progress) step.Result {
		*f.ran = append(*f.ran, action+" "+f.name)
		if f.fail {
			return step.Failed(action + " " + f.name + " broke")
		}
		return step.Completed()
	})}
}

func (f stubFeature) EnableSteps(*deployment.Deployment) []step.Step  { return f.steps("enable") }
func (f stubFeature) DisableSteps(*deployment.Deployment) []step.Step { return f.steps("disable") }

func (f stubFeature) UpgradeSteps(_ *deployment.Deployment, release bool) []step.Step {
	if !f.upgrade || !release {
		return nil
	}
	return f.steps("upgrade")
}

func requireExitCode(t *testing.T, err error, want int) {
	t.Helper()
	require.Error(t, err)
	code, ok := IsExitError(err)
	require.True(t, ok, "error should be an ExitError, got %v", err)
	assert.Equal(t, want, code)
}

func TestEnableCommand(t *testing.T) {
	tests := []struct {
		name         string
		feature      string
		bootstrapped bool
		enabled      bool
		fail         bool
		wantRan      []string
		wantEnabled  bool
		wantOutput   string
		wantExit     bool
	}{
		{
			name:         "enables a disabled feature",
			feature:      "caas",
			bootstrapped: true,
			wantRan:      []string{"enable caas"},
			wantEnabled:  true,
			wantOutput:   "Stub caas enabled",
		},
		{
			name:         "already enabled feature is skipped",
			feature:      "caas",
			bootstrapped: true,
			enabled:      true,
			wantEnabled:  true,
			wantOutput:   "Feature caas is already enabled",
		},
		{
			name:       "not bootstrapped fails before routing",
			feature:    "caas",
			wantOutput: "Deployment not bootstrapped",
			wantExit:   true,
		},
		{
			name:         "unknown feature fails",
			feature:      "ghost",
			bootstrapped: true,
			wantOutput:   "unknown feature: ghost",
			wantExit:     true,
		},
		{
			name:         "failed plan leaves the feature disabled",
			feature:      "caas",
			bootstrapped: true,
			fail:         true,
			wantRan:      []string{"enable caas"},
			wantOutput:   "enable caas broke",
			wantExit:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ran []string
			app := newTestApp(t, tt.bootstrapped, stubFeature{name: "caas", fail: tt.fail, ran: &ran})
			if tt.enabled {
				require.NoError(t, app.Deployment.Store.SetFeatureEnabled("caas", true))
			}

			err := app.run("enable", tt.feature)

			if tt.wantExit {
				requireExitCode(t, err, 1)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantRan, ran)
			assert.Contains(t, app.Out.String(), tt.wantOutput)

			enabled, err := app.Deployment.Store.FeatureEnabled("caas")
			require.NoError(t, err)
			assert.Equal(t, tt.wantEnabled, enabled)
		})
	}
}

func TestEnableCommand_WritesMetrics(t *testing.T) {
	var ran []string
	app := newTestApp(t, true, stubFeature{name: "caas", ran: &ran})
	path := filepath.Join(t.TempDir(), "sunbeam.prom")
	app.Config.Metrics.TextfilePath = path

	require.NoError(t, app.run("enable", "caas"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `sunbeam_step_results_total{result="completed",step="enable caas"} 1`)
	assert.Contains(t, string(data), `plan="enable caas"`)
}

func TestDisableCommand(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		answer      bool
		promptErr   error
		wantPrompts int
		wantRan     []string
		wantEnabled bool
		wantExit    bool
	}{
		{
			name:        "yes flag skips the prompt",
			args:        []string{"disable", "caas", "--yes"},
			wantRan:     []string{"disable caas"},
			wantEnabled: false,
		},
		{
			name:        "confirmed prompt disables",
			args:        []string{"disable", "caas"},
			answer:      true,
			wantPrompts: 1,
			wantRan:     []string{"disable caas"},
			wantEnabled: false,
		},
		{
			name:        "declined prompt aborts",
			args:        []string{"disable", "caas"},
			wantPrompts: 1,
			wantEnabled: true,
			wantExit:    true,
		},
		{
			name:        "prompt error aborts",
			args:        []string{"disable", "caas"},
			promptErr:   errors.New("interrupt"),
			wantPrompts: 1,
			wantEnabled: true,
			wantExit:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ran []string
			app := newTestApp(t, true, stubFeature{name: "caas", ran: &ran})
			require.NoError(t, app.Deployment.Store.SetFeatureEnabled("caas", true))
			app.Prompts.Answer = tt.answer
			app.Prompts.Err = tt.promptErr

			err := app.run(tt.args...)

			if tt.wantExit {
				requireExitCode(t, err, 1)
			} else {
				require.NoError(t, err)
			}
			assert.Len(t, app.Prompts.Messages, tt.wantPrompts)
			assert.Equal(t, tt.wantRan, ran)

			enabled, err := app.Deployment.Store.FeatureEnabled("caas")
			require.NoError(t, err)
			assert.Equal(t, tt.wantEnabled, enabled)
		})
	}
}

func TestDisableCommand_NotEnabled(t *testing.T) {
	var ran []string
	app := newTestApp(t, true, stubFeature{name: "caas", ran: &ran})

	require.NoError(t, app.run("disable", "caas"))

	assert.Empty(t, ran)
	assert.Empty(t, app.Prompts.Messages)
	assert.Contains(t, app.Out.String(), "Feature caas is not enabled")
}

func TestUpgradeCommand(t *testing.T) {
	var ran []string
	app := newTestApp(t, true,
		stubFeature{name: "caas", upgrade: true, ran: &ran},
		stubFeature{name: "dns", upgrade: true, ran: &ran},
	)
	require.NoError(t, app.Deployment.Store.SetFeatureEnabled("dns", true))

	require.NoError(t, app.run("upgrade"))
	assert.Empty(t, ran)
	assert.Contains(t, app.Out.String(), "No features to upgrade")

	require.NoError(t, app.run("upgrade", "--release"))
	assert.Equal(t, []string{"upgrade dns"}, ran)

	enabled, err := app.Deployment.Store.FeatureEnabled("dns")
	require.NoError(t, err)
	assert.True(t, enabled, "upgrade keeps the feature enabled")
}

func TestUpgradeCommand_StopsAtFirstFailure(t *testing.T) {
	var ran []string
	app := newTestApp(t, true,
		stubFeature{name: "caas", upgrade: true, fail: true, ran: &ran},
		stubFeature{name: "dns", upgrade: true, ran: &ran},
	)
	require.NoError(t, app.Deployment.Store.SetFeatureEnabled("caas", true))
	require.NoError(t, app.Deployment.Store.SetFeatureEnabled("dns", true))

	requireExitCode(t, app.run("upgrade", "--release"), 1)
	assert.Equal(t, []string{"upgrade caas"}, ran)
}

func TestListCommand(t *testing.T) {
	var ran []string
	app := newTestApp(t, true, stubFeature{name: "dns", ran: &ran}, stubFeature{name: "caas", ran: &ran})
	require.NoError(t, app.Deployment.Store.SetFeatureEnabled("dns", true))

	require.NoError(t, app.run("list"))

	assert.Equal(t, "FEATURE                  ENABLED\n"+
		"caas                     false\n"+
		"dns                      true\n", app.Out.String())
}

func TestWaitCommand(t *testing.T) {
	app := newTestApp(t, true)
	app.Client.Script("manila", "manila-k8s", "active")

	require.NoError(t, app.run("wait", "manila", "manila-cephfs"))
	assert.Contains(t, app.Out.String(), "Waiting for the applications to settle ... done")
}

func TestWaitCommand_Timeout(t *testing.T) {
	app := newTestApp(t, true)
	app.Client.Script("manila", "manila-k8s", "blocked")

	requireExitCode(t, app.run("wait", "manila", "--timeout", "3s"), 1)
	assert.Contains(t, app.Out.String(), "timed out")
}

func TestChecksCommand(t *testing.T) {
	color.NoColor = true

	accounts := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(accounts, "sunbeam-controller.yaml"), []byte("user: admin\n"), 0o600))

	t.Run("all checks pass", func(t *testing.T) {
		app := newTestApp(t, true)
		app.Config.Juju.AccountsDir = accounts

		require.NoError(t, app.run("checks", "--fqdn", "node1.maas"))

		out := app.Out.String()
		assert.Contains(t, out, "Check bootstrapped ... success")
		assert.Contains(t, out, "Check Juju Controller registration ... success")
		assert.Contains(t, out, "Check for FQDN ... success")
	})

	t.Run("failed check fails the command", func(t *testing.T) {
		app := newTestApp(t, false)
		app.Config.Juju.AccountsDir = t.TempDir()

		requireExitCode(t, app.run("checks"), 1)

		out := app.Out.String()
		assert.Contains(t, out, "Check bootstrapped ... failure")
		assert.Contains(t, out, "Juju controller sunbeam-controller is not registered.")
	})

	t.Run("yaml report", func(t *testing.T) {
		app := newTestApp(t, true)
		app.Config.Juju.AccountsDir = accounts

		require.NoError(t, app.run("checks", "--format", "yaml"))

		out := app.Out.String()
		assert.Contains(t, out, "name: Check bootstrapped")
		assert.Contains(t, out, "passed: success")
	})

	t.Run("unknown format", func(t *testing.T) {
		app := newTestApp(t, true)
		app.Config.Juju.AccountsDir = accounts

		requireExitCode(t, app.run("checks", "--format", "json"), 1)
	})
}
