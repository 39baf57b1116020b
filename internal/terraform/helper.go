// Package terraform applies the deployment's terraform plans.
//
// A [Helper] wraps one plan directory and the terraform binary. Variables are
// written to terraform.tfvars.json inside the plan directory before every
// apply; the persisted copy of each plan's variables lives in the cluster
// state under the plan's config key so later applies start from what the
// previous one used.
//
// Apply failures are returned as [*ApplyError]. When terraform reports a
// held state lock the error also matches [ErrStateLocked], which callers may
// retry with [RetryOnStateLock].
package terraform

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/juju/errors"
	"github.com/rs/zerolog"

	"sunbeam/internal/command"
	"sunbeam/internal/manifest"
)

// TfvarsFileName is the variables file terraform loads automatically.
const TfvarsFileName = "terraform.tfvars.json"

// HelperConfig configures a [Helper].
type HelperConfig struct {
	// Plan is the plan name, e.g. "openstack-plan".
	Plan string

	// Path is the plan's working directory.
	Path string

	// Binary is the terraform executable.
	Binary string

	// Runner runs the binary.
	Runner command.Runner

	// TfvarMap maps manifest attributes onto this plan's variables.
	TfvarMap manifest.TfvarMap

	Logger zerolog.Logger
}

// Helper runs terraform against a single plan.
type Helper struct {
	plan     string
	path     string
	binary   string
	runner   command.Runner
	tfvarMap manifest.TfvarMap
	logger   zerolog.Logger
}

// NewHelper creates a Helper.
func NewHelper(cfg HelperConfig) *Helper {
	binary := cfg.Binary
	if binary == "" {
		binary = "terraform"
	}
	return &Helper{
		plan:     cfg.Plan,
		path:     cfg.Path,
		binary:   binary,
		runner:   cfg.Runner,
		tfvarMap: cfg.TfvarMap,
		logger:   cfg.Logger.With().Str("component", "terraform").Str("plan", cfg.Plan).Logger(),
	}
}

// Plan returns the plan name.
func (h *Helper) Plan() string {
	return h.plan
}

// Path returns the plan directory.
func (h *Helper) Path() string {
	return h.path
}

func (h *Helper) run(ctx context.Context, op string, args ...string) (command.Result, error) {
	h.logger.Debug().Strs("args", args).Msg("Running terraform")
	result, err := h.runner.Run(ctx, h.path, h.binary, args...)
	if err != nil {
		return result, errors.Annotatef(err, "running terraform %s for %s", op, h.plan)
	}
	if !result.Success() {
		h.logger.Debug().Str("op", op).Int("exit_code", result.ExitCode).Str("stderr", result.Stderr).Msg("Terraform failed")
		return result, newApplyError(h.plan, op, result.Stderr)
	}
	return result, nil
}

// Init runs terraform init, upgrading providers.
func (h *Helper) Init(ctx context.Context) error {
	_, err := h.run(ctx, "init", "init", "-upgrade", "-no-color")
	return err
}

// WriteTfvars replaces the plan's variables file.
func (h *Helper) WriteTfvars(vars map[string]any) error {
	data, err := json.MarshalIndent(vars, "", "  ")
	if err != nil {
		return errors.Annotate(err, "encoding tfvars")
	}
	if err := os.MkdirAll(h.path, 0o755); err != nil {
		return errors.Trace(err)
	}
	path := filepath.Join(h.path, TfvarsFileName)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Annotatef(err, "writing %s", path)
	}
	return nil
}

// Apply writes vars and runs terraform apply.
func (h *Helper) Apply(ctx context.Context, vars map[string]any) error {
	if err := h.WriteTfvars(vars); err != nil {
		return err
	}
	_, err := h.run(ctx, "apply", "apply", "-auto-approve", "-no-color")
	return err
}

// Destroy runs terraform destroy.
func (h *Helper) Destroy(ctx context.Context) error {
	_, err := h.run(ctx, "destroy", "destroy", "-auto-approve", "-no-color")
	return err
}

// Output returns the plan outputs keyed by name.
func (h *Helper) Output(ctx context.Context) (map[string]any, error) {
	result, err := h.run(ctx, "output", "output", "-json", "-no-color")
	if err != nil {
		return nil, err
	}
	var raw map[string]struct {
		Value any `json:"value"`
	}
	if err := json.Unmarshal([]byte(result.Stdout), &raw); err != nil {
		return nil, errors.Annotatef(err, "parsing terraform output for %s", h.plan)
	}
	outputs := make(map[string]any, len(raw))
	for name, o := range raw {
		outputs[name] = o.Value
	}
	return outputs, nil
}

// StateList returns the resource addresses in the plan's state.
func (h *Helper) StateList(ctx context.Context) ([]string, error) {
	result, err := h.run(ctx, "state list", "state", "list", "-no-color")
	if err != nil {
		return nil, err
	}
	var resources []string
	for _, line := range strings.Split(result.Stdout, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			resources = append(resources, line)
		}
	}
	return resources, nil
}

// StateRm removes resource from the plan's state without destroying it.
func (h *Helper) StateRm(ctx context.Context, resource string) error {
	_, err := h.run(ctx, "state rm", "state", "rm", "-no-color", resource)
	return err
}
