package terraform

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/juju/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sunbeam/internal/clusterd"
	"sunbeam/internal/command"
	"sunbeam/internal/manifest"
	"sunbeam/internal/step"
)

var (
	applyArgs   = []string{"apply", "-auto-approve", "-no-color"}
	destroyArgs = []string{"destroy", "-auto-approve", "-no-color"}
	initArgs    = []string{"init", "-upgrade", "-no-color"}
)

const lockedStderr = `Error: Error acquiring the state lock

Lock Info:
  ID:        7c1e
`

func setupHelper(t *testing.T) (*Helper, *command.MockRunner) {
	t.Helper()
	runner := command.NewMockRunner()
	return NewHelper(HelperConfig{
		Plan:     manifest.OpenStackPlan,
		Path:     filepath.Join(t.TempDir(), "deploy-openstack"),
		Runner:   runner,
		TfvarMap: manifest.DefaultTfvarMap(),
		Logger:   zerolog.Nop(),
	}), runner
}

func readTfvars(t *testing.T, h *Helper) map[string]any {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(h.Path(), TfvarsFileName))
	require.NoError(t, err)
	var vars map[string]any
	require.NoError(t, json.Unmarshal(data, &vars))
	return vars
}

func testManifest(t *testing.T) *manifest.Manifest {
	t.Helper()
	m, err := manifest.ReadFromBytes([]byte(`
software:
  charms:
    keystone-k8s:
      channel: 2024.1/edge
    manila-k8s:
      channel: 2024.1/candidate
`))
	require.NoError(t, err)
	return m
}

func TestHelper_Defaults(t *testing.T) {
	h := NewHelper(HelperConfig{Plan: "manila-data-plan", Path: "/tmp/plan"})

	assert.Equal(t, "manila-data-plan", h.Plan())
	assert.Equal(t, "/tmp/plan", h.Path())
	assert.Equal(t, "terraform", h.binary)
}

func TestHelper_Init(t *testing.T) {
	h, runner := setupHelper(t)
	runner.AddResult("terraform", initArgs, command.Result{})

	require.NoError(t, h.Init(context.Background()))

	calls := runner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, h.Path(), calls[0].Dir)
	assert.Equal(t, "terraform init -upgrade -no-color", calls[0].String())
}

func TestHelper_ApplyWritesTfvars(t *testing.T) {
	h, runner := setupHelper(t)
	runner.AddResult("terraform", applyArgs, command.Result{})

	err := h.Apply(context.Background(), map[string]any{"enable-manila": true})

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"enable-manila": true}, readTfvars(t, h))
}

func TestHelper_ApplyFailure(t *testing.T) {
	tests := []struct {
		name       string
		stderr     string
		wantLocked bool
	}{
		{name: "plain failure", stderr: "Error: Invalid value for variable", wantLocked: false},
		{name: "state locked", stderr: lockedStderr, wantLocked: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, runner := setupHelper(t)
			runner.AddResult("terraform", applyArgs, command.Result{ExitCode: 1, Stderr: tt.stderr})

			err := h.Apply(context.Background(), map[string]any{})

			require.Error(t, err)
			var applyErr *ApplyError
			require.True(t, errors.As(err, &applyErr))
			assert.Equal(t, "apply", applyErr.Op)
			assert.Equal(t, manifest.OpenStackPlan, applyErr.Plan)
			assert.Equal(t, tt.wantLocked, errors.Is(err, ErrStateLocked))
		})
	}
}

func TestHelper_RunnerError(t *testing.T) {
	h, runner := setupHelper(t)
	runner.AddError("terraform", destroyArgs, errors.New("executable file not found"))

	err := h.Destroy(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "running terraform destroy for openstack-plan")
	assert.False(t, errors.Is(err, ErrStateLocked))
}

func TestHelper_Output(t *testing.T) {
	h, runner := setupHelper(t)
	runner.AddResult("terraform", []string{"output", "-json", "-no-color"}, command.Result{Stdout: `{
  "keystone-offer-url": {"sensitive": false, "type": "string", "value": "admin/openstack.keystone"},
  "rabbitmq-offer-url": {"sensitive": false, "type": "string", "value": null}
}`})

	outputs, err := h.Output(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "admin/openstack.keystone", outputs["keystone-offer-url"])
	assert.Contains(t, outputs, "rabbitmq-offer-url")
	assert.Nil(t, outputs["rabbitmq-offer-url"])
}

func TestHelper_StateListAndRm(t *testing.T) {
	h, runner := setupHelper(t)
	runner.AddResult("terraform", []string{"state", "list", "-no-color"}, command.Result{
		Stdout: "juju_application.manila-data\njuju_integration.manila-data-to-amqp\n\n",
	})
	runner.AddResult("terraform", []string{"state", "rm", "-no-color", "juju_integration.manila-data-to-amqp"}, command.Result{})

	resources, err := h.StateList(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"juju_application.manila-data", "juju_integration.manila-data-to-amqp"}, resources)

	require.NoError(t, h.StateRm(context.Background(), "juju_integration.manila-data-to-amqp"))
}

func TestUpdateTfvarsAndApply(t *testing.T) {
	h, runner := setupHelper(t)
	runner.AddResult("terraform", applyArgs, command.Result{})
	store := clusterd.NewStore(filepath.Join(t.TempDir(), "cluster.yaml"))
	require.NoError(t, store.Write("TerraformVarsOpenstack", map[string]any{
		"keystone-channel": "2024.1/stable",
		"enable-manila":    false,
		"horizon-plugins":  []any{"heat"},
	}))

	err := h.UpdateTfvarsAndApply(context.Background(), store, testManifest(t), "TerraformVarsOpenstack", map[string]any{
		"enable-manila": true,
	})

	require.NoError(t, err)
	persisted, err := store.Read("TerraformVarsOpenstack")
	require.NoError(t, err)
	assert.Equal(t, "2024.1/edge", persisted["keystone-channel"], "manifest wins over persisted")
	assert.Equal(t, true, persisted["enable-manila"], "override wins over persisted")
	assert.Equal(t, []any{"heat"}, persisted["horizon-plugins"])
	assert.NotContains(t, persisted, "manila-channel", "charm not mapped for this plan")

	written := readTfvars(t, h)
	assert.Equal(t, "2024.1/edge", written["keystone-channel"])
	assert.Equal(t, true, written["enable-manila"])
}

func TestUpdateTfvarsAndApply_MissingConfig(t *testing.T) {
	h, runner := setupHelper(t)
	runner.AddResult("terraform", applyArgs, command.Result{})
	store := clusterd.NewStore(filepath.Join(t.TempDir(), "cluster.yaml"))

	err := h.UpdateTfvarsAndApply(context.Background(), store, nil, "TerraformVarsOpenstack", map[string]any{"a": "b"})

	require.NoError(t, err)
	persisted, err := store.Read("TerraformVarsOpenstack")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": "b"}, persisted)
}

func TestUpdateTfvarsAndApply_ApplyFailureKeepsPersistedVars(t *testing.T) {
	h, runner := setupHelper(t)
	runner.AddResult("terraform", applyArgs, command.Result{ExitCode: 1, Stderr: "boom"})
	store := clusterd.NewStore(filepath.Join(t.TempDir(), "cluster.yaml"))

	err := h.UpdateTfvarsAndApply(context.Background(), store, nil, "TerraformVarsOpenstack", map[string]any{"a": "b"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	persisted, readErr := store.Read("TerraformVarsOpenstack")
	require.NoError(t, readErr)
	assert.Equal(t, "b", persisted["a"])
}

func TestUpdatePartialTfvarsAndApply(t *testing.T) {
	h, runner := setupHelper(t)
	runner.AddResult("terraform", applyArgs, command.Result{})
	store := clusterd.NewStore(filepath.Join(t.TempDir(), "cluster.yaml"))
	m, err := manifest.ReadFromBytes([]byte(`
software:
  charms:
    keystone-k8s:
      channel: 2024.1/edge
    glance-k8s:
      channel: 2024.1/beta
`))
	require.NoError(t, err)

	err = h.UpdatePartialTfvarsAndApply(context.Background(), store, m, []string{"glance-k8s"}, "TerraformVarsOpenstack")

	require.NoError(t, err)
	persisted, err := store.Read("TerraformVarsOpenstack")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"glance-channel": "2024.1/beta"}, persisted)
}

func TestRetryOnStateLock(t *testing.T) {
	locked := newApplyError("manila-data-plan", "apply", lockedStderr)
	other := newApplyError("manila-data-plan", "apply", "Error: invalid provider")

	tests := []struct {
		name      string
		errs      []error
		attempts  int
		wantErr   error
		wantCalls int
	}{
		{name: "succeeds first time", errs: []error{nil}, attempts: 3, wantCalls: 1},
		{name: "succeeds after lock released", errs: []error{locked, locked, nil}, attempts: 3, wantCalls: 3},
		{name: "non lock error is not retried", errs: []error{other}, attempts: 3, wantErr: other, wantCalls: 1},
		{name: "lock held for every attempt", errs: []error{locked}, attempts: 3, wantErr: locked, wantCalls: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk := testclock.NewDilatedWallClock(time.Millisecond)
			calls := 0
			fn := func() error {
				err := tt.errs[min(calls, len(tt.errs)-1)]
				calls++
				return err
			}

			err := RetryOnStateLock(context.Background(), RetryPolicy{
				Attempts: tt.attempts,
				Delay:    time.Second,
				MaxDelay: time.Second,
				Clock:    clk,
			}, zerolog.Nop(), fn)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.wantErr.Error(), err.Error())
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestDefaultRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.Equal(t, 5, p.Attempts)
	assert.Equal(t, 5*time.Second, p.Delay)
	assert.NotNil(t, p.Clock)
}

func TestInitStep(t *testing.T) {
	h, runner := setupHelper(t)
	runner.AddResult("terraform", initArgs, command.Result{})
	runner.AddResult("terraform", initArgs, command.Result{ExitCode: 1, Stderr: "Failed to query available provider packages"})
	s := NewInitStep(h)

	assert.Equal(t, "Initialize Terraform", s.Name())
	assert.True(t, s.IsSkip(context.Background()).IsCompleted())
	assert.True(t, s.Run(context.Background(), step.NopProgress{}).IsCompleted())

	result := s.Run(context.Background(), step.NopProgress{})
	assert.True(t, result.IsFailed())
	assert.Contains(t, result.Message, "Failed to query available provider packages")
}
