package feature

import (
	"context"
	"maps"
	"time"

	"github.com/juju/errors"

	"sunbeam/internal/deployment"
	"sunbeam/internal/juju"
	"sunbeam/internal/step"
)

// Status sets accepted by the waits.
var (
	EnableAcceptedStatus  = []string{juju.StatusActive}
	UpgradeAcceptedStatus = []string{juju.StatusActive, juju.StatusBlocked, juju.StatusUnknown}
)

// DefaultSettleTimeout bounds [WaitForApplicationsStep].
const DefaultSettleTimeout = 300 * time.Second

// EnableApplicationStep deploys a feature's applications and waits for them
// to become active.
type EnableApplicationStep struct {
	step.Base
	deployment    *deployment.Deployment
	feature       ControlPlaneFeature
	desiredStatus []string
}

// NewEnableApplicationStep creates an EnableApplicationStep. A nil
// desiredStatus waits for active.
func NewEnableApplicationStep(d *deployment.Deployment, f ControlPlaneFeature, desiredStatus []string) *EnableApplicationStep {
	if desiredStatus == nil {
		desiredStatus = EnableAcceptedStatus
	}
	return &EnableApplicationStep{
		Base: step.NewBase(
			"Enable OpenStack "+f.DisplayName(),
			"Enabling OpenStack "+f.DisplayName()+" application",
		),
		deployment:    d,
		feature:       f,
		desiredStatus: desiredStatus,
	}
}

// Run applies the feature's variables, then waits for its applications.
func (s *EnableApplicationStep) Run(ctx context.Context, progress step.Progress) step.Result {
	d, f := s.deployment, s.feature
	logger := d.Logger.With().Str("feature", f.Name()).Logger()

	extra, err := f.TfvarsOnEnable(ctx, d)
	if err != nil {
		return step.Failed(err.Error())
	}
	dbVars, err := databaseResourceTfvars(d.Store, f, true)
	if err != nil {
		return step.Failed(err.Error())
	}
	overrides := make(map[string]any, len(extra)+len(dbVars))
	maps.Copy(overrides, extra)
	maps.Copy(overrides, dbVars)

	tf := d.TfHelper(f.Plan())
	if err := tf.UpdateTfvarsAndApply(ctx, d.Store, d.Manifest, f.ConfigKey(), overrides); err != nil {
		logger.Debug().Err(err).Msg("Enable apply failed")
		return step.Failed(err.Error())
	}

	apps, err := f.ApplicationNames(ctx, d)
	if err != nil {
		return step.Failed(err.Error())
	}
	logger.Debug().Strs("apps", apps).Msg("Applications monitored for readiness")

	err = d.Poller().WaitWithReporter(ctx, juju.Target{
		Model:         d.OpenStackModel(),
		Applications:  apps,
		DesiredStatus: s.desiredStatus,
		Timeout:       enableTimeout(d, f),
	}, progress)
	if err != nil {
		logger.Debug().Err(err).Msg("Applications did not become ready")
		return step.Failed(err.Error())
	}
	return step.Completed()
}

// DisableApplicationStep removes a feature's applications and waits for
// them to disappear.
type DisableApplicationStep struct {
	step.Base
	deployment *deployment.Deployment
	feature    ControlPlaneFeature
}

// NewDisableApplicationStep creates a DisableApplicationStep.
func NewDisableApplicationStep(d *deployment.Deployment, f ControlPlaneFeature) *DisableApplicationStep {
	return &DisableApplicationStep{
		Base: step.NewBase(
			"Disable OpenStack "+f.Name(),
			"Disabling OpenStack "+f.Name()+" application",
		),
		deployment: d,
		feature:    f,
	}
}

// Run destroys a private plan or re-applies the shared one without the
// feature, then waits for the applications to be gone.
func (s *DisableApplicationStep) Run(ctx context.Context, _ step.Progress) step.Result {
	d, f := s.deployment, s.feature
	logger := d.Logger.With().Str("feature", f.Name()).Logger()
	tf := d.TfHelper(f.Plan())

	if f.PlanLocation() == FeatureRepo {
		if err := tf.Destroy(ctx); err != nil {
			logger.Debug().Err(err).Msg("Destroy failed")
			return step.Failed(err.Error())
		}
		if err := d.Store.Delete(f.ConfigKey()); err != nil {
			return step.Failed(err.Error())
		}
	} else {
		extra, err := f.TfvarsOnDisable(ctx, d)
		if err != nil {
			return step.Failed(err.Error())
		}
		dbVars, err := databaseResourceTfvars(d.Store, f, false)
		if err != nil {
			return step.Failed(err.Error())
		}
		overrides := make(map[string]any, len(extra)+len(dbVars))
		maps.Copy(overrides, extra)
		maps.Copy(overrides, dbVars)
		if err := tf.UpdateTfvarsAndApply(ctx, d.Store, d.Manifest, f.ConfigKey(), overrides); err != nil {
			logger.Debug().Err(err).Msg("Disable apply failed")
			return step.Failed(err.Error())
		}
	}

	apps, err := f.ApplicationNames(ctx, d)
	if err != nil {
		return step.Failed(err.Error())
	}
	logger.Debug().Strs("apps", apps).Msg("Applications monitored for removal")

	if err := d.Poller().WaitApplicationGone(ctx, d.OpenStackModel(), apps, disableTimeout(d, f)); err != nil {
		logger.Debug().Err(err).Strs("apps", apps).Msg("Applications not removed")
		return step.Failed(err.Error())
	}
	return step.Completed()
}

// UpgradeApplicationStep refreshes the charms of a feature's private plan.
type UpgradeApplicationStep struct {
	step.Base
	deployment *deployment.Deployment
	feature    ControlPlaneFeature
}

// NewUpgradeApplicationStep creates an UpgradeApplicationStep.
func NewUpgradeApplicationStep(d *deployment.Deployment, f ControlPlaneFeature) *UpgradeApplicationStep {
	return &UpgradeApplicationStep{
		Base: step.NewBase(
			"Refresh OpenStack "+f.Name(),
			"Refresh OpenStack "+f.Name()+" application",
		),
		deployment: d,
		feature:    f,
	}
}

// Run re-applies the manifest attributes of the charms mapped for the
// plan and waits for their applications to settle in an accepted status.
func (s *UpgradeApplicationStep) Run(ctx context.Context, progress step.Progress) step.Result {
	d, f := s.deployment, s.feature
	logger := d.Logger.With().Str("feature", f.Name()).Logger()
	logger.Debug().Msg("Upgrading feature")

	charms := f.TfvarMap().CharmNames(f.Plan())
	apps, err := juju.GetAppsFilterByCharms(ctx, d.Juju, d.OpenStackModel(), charms)
	if err != nil {
		return step.Failed(err.Error())
	}

	tf := d.TfHelper(f.Plan())
	if err := tf.UpdatePartialTfvarsAndApply(ctx, d.Store, d.Manifest, charms, f.ConfigKey()); err != nil {
		logger.Debug().Err(err).Msg("Upgrade apply failed")
		return step.Failed(err.Error())
	}

	err = d.Poller().WaitWithReporter(ctx, juju.Target{
		Model:         d.OpenStackModel(),
		Applications:  apps,
		DesiredStatus: UpgradeAcceptedStatus,
		Timeout:       deployment.Timeout(d.Config.Timeouts.Upgrade, enableTimeout(d, f)),
	}, progress)
	if err != nil {
		logger.Debug().Err(err).Msg("Upgrade wait failed")
		return step.Failed(err.Error())
	}
	return step.Completed()
}

// WaitForApplicationsStep waits for every unit of a set of applications to
// be idle and active. Applications that do not exist are ignored.
type WaitForApplicationsStep struct {
	step.Base
	client  juju.Client
	poller  *juju.Poller
	apps    []string
	model   string
	timeout time.Duration
}

// NewWaitForApplicationsStep creates a WaitForApplicationsStep. A
// non-positive timeout uses [DefaultSettleTimeout].
func NewWaitForApplicationsStep(poller *juju.Poller, apps []string, model string, timeout time.Duration) *WaitForApplicationsStep {
	return &WaitForApplicationsStep{
		Base:    step.NewBase("Wait for apps to settle", "Waiting for the applications to settle"),
		client:  poller.Client(),
		poller:  poller,
		apps:    apps,
		model:   model,
		timeout: deployment.Timeout(timeout, DefaultSettleTimeout),
	}
}

// Run collects the units of the existing applications and waits for them.
func (s *WaitForApplicationsStep) Run(ctx context.Context, _ step.Progress) step.Result {
	var units []string
	for _, name := range s.apps {
		app, err := s.client.GetApplication(ctx, s.model, name)
		if juju.IsApplicationNotFound(err) {
			continue
		}
		if err != nil {
			return step.Failed(errors.Annotatef(err, "querying %s", name).Error())
		}
		units = append(units, app.UnitNames()...)
	}

	filter := juju.UnitStatusFilter{
		Agent:    []string{juju.StatusIdle},
		Workload: []string{juju.StatusActive},
	}
	if err := s.poller.WaitUnitsReady(ctx, s.model, units, filter, s.timeout); err != nil {
		return step.Failed(err.Error())
	}
	return step.Completed()
}
