// Package machine provides the steps managing applications deployed on
// cluster machines rather than on kubernetes.
//
// Each application has its own terraform plan whose variables carry the
// machine ids to place units on. Applies that hit a held terraform state
// lock are retried; every other failure turns into a Failed result.
package machine

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"

	"sunbeam/internal/clusterd"
	"sunbeam/internal/deployment"
	"sunbeam/internal/juju"
	"sunbeam/internal/step"
	"sunbeam/internal/terraform"
)

// DefaultApplicationTimeout bounds the machine application waits.
const DefaultApplicationTimeout = 1200 * time.Second

// DeployConfig describes one machine application.
type DeployConfig struct {
	// Name and Description identify the step.
	Name        string
	Description string

	// ConfigKey stores the plan variables.
	ConfigKey string

	Application string
	Model       string

	// Roles selects the nodes whose machines receive a unit.
	Roles []string

	// Timeout bounds the readiness wait. Zero uses DefaultApplicationTimeout.
	Timeout time.Duration

	// AcceptedStatus returns the statuses the application may settle in.
	// Nil accepts active only.
	AcceptedStatus func(ctx context.Context) ([]string, error)

	// ExtraTfvars returns variables applied over the machine placement.
	ExtraTfvars func(ctx context.Context) (map[string]any, error)
}

// DeployApplicationStep deploys or updates a machine application.
type DeployApplicationStep struct {
	step.Base
	deployment *deployment.Deployment
	tf         *terraform.Helper
	cfg        DeployConfig
}

// NewDeployApplicationStep creates a DeployApplicationStep applying tf.
func NewDeployApplicationStep(d *deployment.Deployment, tf *terraform.Helper, cfg DeployConfig) *DeployApplicationStep {
	if cfg.Name == "" {
		cfg.Name = "Deploy " + cfg.Application
	}
	if cfg.Description == "" {
		cfg.Description = "Deploying " + cfg.Application
	}
	return &DeployApplicationStep{
		Base:       step.NewBase(cfg.Name, cfg.Description),
		deployment: d,
		tf:         tf,
		cfg:        cfg,
	}
}

// machineIDs returns the sorted ids of the machines of nodes carrying any
// of roles.
func machineIDs(store *clusterd.Store, roles []string) ([]string, error) {
	seen := make(map[int]bool)
	for _, role := range roles {
		ids, err := store.MachineIDs(role)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			seen[id] = true
		}
	}
	sorted := slices.Sorted(maps.Keys(seen))
	out := make([]string, len(sorted))
	for i, id := range sorted {
		out[i] = strconv.Itoa(id)
	}
	return out, nil
}

// Run applies the plan, retrying while the state is locked, then waits for
// the application.
func (s *DeployApplicationStep) Run(ctx context.Context, _ step.Progress) step.Result {
	d := s.deployment
	logger := d.Logger.With().Str("application", s.cfg.Application).Logger()

	ids, err := machineIDs(d.Store, s.cfg.Roles)
	if err != nil {
		return step.Failed(err.Error())
	}
	overrides := map[string]any{
		"machine_ids":   ids,
		"machine_model": s.cfg.Model,
	}
	if s.cfg.ExtraTfvars != nil {
		extra, err := s.cfg.ExtraTfvars(ctx)
		if err != nil {
			return step.Failed(err.Error())
		}
		maps.Copy(overrides, extra)
	}

	err = terraform.RetryOnStateLock(ctx, d.RetryPolicy(), logger, func() error {
		return s.tf.UpdateTfvarsAndApply(ctx, d.Store, d.Manifest, s.cfg.ConfigKey, overrides)
	})
	if err != nil {
		logger.Debug().Err(err).Msg("Error deploying application")
		return step.Failed(err.Error())
	}

	accepted := []string{juju.StatusActive}
	if s.cfg.AcceptedStatus != nil {
		if accepted, err = s.cfg.AcceptedStatus(ctx); err != nil {
			return step.Failed(err.Error())
		}
	}
	timeout := deployment.Timeout(s.cfg.Timeout, DefaultApplicationTimeout)
	if err := d.Poller().WaitApplicationReady(ctx, s.cfg.Model, s.cfg.Application, accepted, timeout); err != nil {
		logger.Debug().Err(err).Msg("Application not ready")
		return step.Failed(err.Error())
	}
	return step.Completed()
}

// DestroyConfig describes the applications removed with a plan.
type DestroyConfig struct {
	Name        string
	Description string
	ConfigKey   string

	Applications []string
	Model        string

	// Timeout bounds the removal wait. Zero uses DefaultApplicationTimeout.
	Timeout time.Duration

	// BeforeDestroy runs before terraform destroy. A Failed result is
	// returned as the step result.
	BeforeDestroy func(ctx context.Context) step.Result
}

// DestroyApplicationStep destroys a machine application plan.
type DestroyApplicationStep struct {
	step.Base
	deployment *deployment.Deployment
	tf         *terraform.Helper
	cfg        DestroyConfig
}

// NewDestroyApplicationStep creates a DestroyApplicationStep destroying tf.
func NewDestroyApplicationStep(d *deployment.Deployment, tf *terraform.Helper, cfg DestroyConfig) *DestroyApplicationStep {
	if cfg.Name == "" {
		cfg.Name = "Destroy " + tf.Plan()
	}
	if cfg.Description == "" {
		cfg.Description = "Destroying " + tf.Plan()
	}
	return &DestroyApplicationStep{
		Base:       step.NewBase(cfg.Name, cfg.Description),
		deployment: d,
		tf:         tf,
		cfg:        cfg,
	}
}

// IsSkip skips when none of the applications is deployed.
func (s *DestroyApplicationStep) IsSkip(ctx context.Context) step.Result {
	for _, app := range s.cfg.Applications {
		_, err := s.deployment.Juju.GetApplication(ctx, s.cfg.Model, app)
		if err == nil {
			return step.Completed()
		}
		if !juju.IsApplicationNotFound(err) {
			return step.Failed(err.Error())
		}
	}
	return step.Skipped("Applications not deployed")
}

// Run destroys the plan, forgets its variables and waits for the
// applications to be removed.
func (s *DestroyApplicationStep) Run(ctx context.Context, _ step.Progress) step.Result {
	d := s.deployment
	logger := d.Logger.With().Str("plan", s.tf.Plan()).Logger()

	if s.cfg.BeforeDestroy != nil {
		if result := s.cfg.BeforeDestroy(ctx); result.IsFailed() {
			return result
		}
	}

	err := terraform.RetryOnStateLock(ctx, d.RetryPolicy(), logger, func() error {
		return s.tf.Destroy(ctx)
	})
	if err != nil {
		logger.Debug().Err(err).Msg("Error destroying plan")
		return step.Failed(err.Error())
	}
	if err := d.Store.Delete(s.cfg.ConfigKey); err != nil {
		return step.Failed(err.Error())
	}

	timeout := deployment.Timeout(s.cfg.Timeout, DefaultApplicationTimeout)
	if err := d.Poller().WaitApplicationGone(ctx, s.cfg.Model, s.cfg.Applications, timeout); err != nil {
		logger.Debug().Err(err).Msg("Applications not removed")
		return step.Failed(err.Error())
	}
	return step.Completed()
}

// RemoveUnitsStep removes the units of an application placed on a node's
// machine.
type RemoveUnitsStep struct {
	step.Base
	deployment  *deployment.Deployment
	node        string
	application string
	model       string
	timeout     time.Duration

	unitsToRemove []string
}

// NewRemoveUnitsStep creates a RemoveUnitsStep. A non-positive timeout uses
// [DefaultApplicationTimeout].
func NewRemoveUnitsStep(d *deployment.Deployment, node, application, model string, timeout time.Duration) *RemoveUnitsStep {
	return &RemoveUnitsStep{
		Base: step.NewBase(
			"Remove "+application+" unit",
			fmt.Sprintf("Removing %s unit from machine %s", application, node),
		),
		deployment:  d,
		node:        node,
		application: application,
		model:       model,
		timeout:     deployment.Timeout(timeout, DefaultApplicationTimeout),
	}
}

// IsSkip looks up the units to remove. The step is skipped when the node,
// the application or a unit on the node's machine is missing.
func (s *RemoveUnitsStep) IsSkip(ctx context.Context) step.Result {
	node, err := s.deployment.Store.GetNode(s.node)
	if errors.Is(err, clusterd.ErrNodeNotFound) {
		return step.Skipped(fmt.Sprintf("Node %s does not exist", s.node))
	}
	if err != nil {
		return step.Failed(err.Error())
	}

	app, err := s.deployment.Juju.GetApplication(ctx, s.model, s.application)
	if juju.IsApplicationNotFound(err) {
		return step.Skipped(fmt.Sprintf("Application %s has not been deployed", s.application))
	}
	if err != nil {
		return step.Failed(err.Error())
	}

	machine := strconv.Itoa(node.MachineID)
	s.unitsToRemove = nil
	for _, name := range app.UnitNames() {
		if app.Units[name].Machine == machine {
			s.unitsToRemove = append(s.unitsToRemove, name)
		}
	}
	if len(s.unitsToRemove) == 0 {
		return step.Skipped(fmt.Sprintf("No %s units on machine %s", s.application, machine))
	}
	return step.Completed()
}

// Run removes the units found by IsSkip and waits for the application.
func (s *RemoveUnitsStep) Run(ctx context.Context, _ step.Progress) step.Result {
	d := s.deployment
	logger := d.Logger.With().Str("application", s.application).Logger()

	for _, unit := range s.unitsToRemove {
		logger.Debug().Str("unit", unit).Msg("Removing unit")
		if err := d.Juju.RemoveUnit(ctx, s.model, unit); err != nil {
			return step.Failed(err.Error())
		}
	}

	err := d.Poller().WaitApplicationReady(ctx, s.model, s.application, []string{juju.StatusActive}, s.timeout)
	if err != nil {
		logger.Debug().Err(err).Msg("Application not ready after unit removal")
		return step.Failed(err.Error())
	}
	return step.Completed()
}
