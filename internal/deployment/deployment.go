// Package deployment bundles the handles a plan step needs to act on one
// cluster: the state store, the manifest, the juju client and the terraform
// plans.
//
// A [Deployment] is built once per command by the CLI and passed to the
// step constructors. It holds no mutable state of its own apart from the
// terraform variable mappings contributed by features.
package deployment

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/juju/clock"
	"github.com/rs/zerolog"

	"sunbeam/internal/clusterd"
	"sunbeam/internal/command"
	"sunbeam/internal/config"
	"sunbeam/internal/juju"
	"sunbeam/internal/manifest"
	"sunbeam/internal/terraform"
)

// Deployment is the handle set for one cluster.
type Deployment struct {
	Store    *clusterd.Store
	Manifest *manifest.Manifest
	Juju     juju.Client
	Runner   command.Runner
	Clock    clock.Clock
	Config   *config.Config
	Logger   zerolog.Logger

	tfvarMap manifest.TfvarMap
}

// New creates a Deployment. A nil clock uses the wall clock and a nil
// manifest uses [manifest.Default].
func New(cfg *config.Config, store *clusterd.Store, m *manifest.Manifest, client juju.Client, runner command.Runner, clk clock.Clock, logger zerolog.Logger) *Deployment {
	if clk == nil {
		clk = clock.WallClock
	}
	if m == nil {
		m = manifest.Default()
	}
	return &Deployment{
		Store:    store,
		Manifest: m,
		Juju:     client,
		Runner:   runner,
		Clock:    clk,
		Config:   cfg,
		Logger:   logger,
		tfvarMap: manifest.DefaultTfvarMap(),
	}
}

// OpenStackModel is the model hosting the control plane.
func (d *Deployment) OpenStackModel() string {
	return d.Config.Juju.Model
}

// MachineModel is the model hosting machine applications.
func (d *Deployment) MachineModel() string {
	return d.Config.Juju.MachineModel
}

// Poller returns a readiness poller on the deployment's juju client.
func (d *Deployment) Poller() *juju.Poller {
	return juju.NewPoller(d.Juju, d.Clock, d.Config.Juju.PollInterval, d.Logger)
}

// AddSoftware registers a feature's default charms and the manifest
// mapping of its plans. Charms already in the manifest keep their values.
func (d *Deployment) AddSoftware(defaults manifest.SoftwareConfig, tfvarMap manifest.TfvarMap) {
	d.Manifest = d.Manifest.Merge(defaults)
	d.tfvarMap = d.tfvarMap.Merge(tfvarMap)
}

// TfvarMap returns the manifest mappings of every known plan.
func (d *Deployment) TfvarMap() manifest.TfvarMap {
	return d.tfvarMap
}

// PlanPath returns the directory of plan. A source set in the manifest
// wins over the plans directory.
func (d *Deployment) PlanPath(plan string) string {
	if src, ok := d.Manifest.PlanSource(plan); ok {
		return src
	}
	dir, ok := manifest.PlanDirs[plan]
	if !ok {
		dir = "deploy-" + strings.TrimSuffix(plan, "-plan")
	}
	return filepath.Join(d.Config.Terraform.PlansDir, dir)
}

// TfHelper returns a terraform helper for plan.
func (d *Deployment) TfHelper(plan string) *terraform.Helper {
	return terraform.NewHelper(terraform.HelperConfig{
		Plan:     plan,
		Path:     d.PlanPath(plan),
		Binary:   d.Config.Terraform.BinaryPath,
		Runner:   d.Runner,
		TfvarMap: d.tfvarMap,
		Logger:   d.Logger,
	})
}

// RetryPolicy returns the state lock retry policy from the configuration.
func (d *Deployment) RetryPolicy() terraform.RetryPolicy {
	p := terraform.DefaultRetryPolicy()
	if d.Config.Terraform.LockRetries > 0 {
		p.Attempts = d.Config.Terraform.LockRetries
	}
	if d.Config.Terraform.LockRetryDelay > 0 {
		p.Delay = d.Config.Terraform.LockRetryDelay
		p.MaxDelay = 12 * d.Config.Terraform.LockRetryDelay
	}
	p.Clock = d.Clock
	return p
}

// Timeout returns t, or fallback when t is not positive.
func Timeout(t, fallback time.Duration) time.Duration {
	if t > 0 {
		return t
	}
	return fallback
}
