// Package feature provides the enable, disable and upgrade protocol of the
// optional OpenStack services.
//
// A feature owns a set of charmed applications deployed by a terraform plan.
// The plan is either the shared openstack plan, in which case the feature
// contributes variables that switch its applications on and off, or a plan
// private to the feature, which is destroyed on disable.
//
// The protocol is expressed as steps run by the lifecycle executor:
//
//   - [EnableApplicationStep] applies the feature's variables, then waits for
//     its applications to become active
//   - [DisableApplicationStep] destroys or re-applies the plan, then waits for
//     the applications to disappear
//   - [UpgradeApplicationStep] refreshes the charms mapped for the plan, then
//     waits for a broader set of statuses
//   - [WaitForApplicationsStep] waits for the units of a set of applications
//     to settle
//
// A failed apply never reaches the readiness wait. Every wait runs with a
// status reporter that is stopped before the step returns.
//
// Key types:
//   - [Feature] is what the router enables and disables
//   - [ControlPlaneFeature] is what the step templates call back into
//   - [ControlPlane] carries the plan location and default behavior concrete
//     features embed
package feature

import (
	"context"
	"strings"
	"time"

	"sunbeam/internal/deployment"
	"sunbeam/internal/manifest"
	"sunbeam/internal/step"
)

// PlanLocation tells where a feature's terraform plan lives.
type PlanLocation int

const (
	// SunbeamTerraformRepo is the shared openstack plan.
	SunbeamTerraformRepo PlanLocation = iota

	// FeatureRepo is a plan private to the feature, deploy-<name>.
	FeatureRepo
)

const (
	// OpenStackTfvarsKey stores the variables of the shared openstack plan.
	OpenStackTfvarsKey = "TerraformVarsOpenstack"

	// DefaultApplicationTimeout bounds enable and disable waits.
	DefaultApplicationTimeout = 900 * time.Second
)

// Feature is an optional capability of the cluster.
type Feature interface {
	Name() string
	DisplayName() string

	// DefaultSoftware returns the charms and plans the feature deploys.
	DefaultSoftware() manifest.SoftwareConfig

	// TfvarMap maps the feature's charms onto its plans' variables.
	TfvarMap() manifest.TfvarMap

	EnableSteps(d *deployment.Deployment) []step.Step
	DisableSteps(d *deployment.Deployment) []step.Step

	// UpgradeSteps returns nil when the feature has nothing to refresh.
	UpgradeSteps(d *deployment.Deployment, release bool) []step.Step
}

// ControlPlaneFeature is a feature whose applications are deployed in the
// OpenStack model.
type ControlPlaneFeature interface {
	Feature

	Plan() string
	PlanLocation() PlanLocation
	ConfigKey() string

	// ApplicationNames returns the applications the plan deploys.
	ApplicationNames(ctx context.Context, d *deployment.Deployment) ([]string, error)

	TfvarsOnEnable(ctx context.Context, d *deployment.Deployment) (map[string]any, error)
	TfvarsOnDisable(ctx context.Context, d *deployment.Deployment) (map[string]any, error)

	// DatabaseCharmProcesses returns, per database service, the number of
	// processes of each charm connecting to it.
	DatabaseCharmProcesses() map[string]map[string]int

	// EnableTimeout and DisableTimeout bound the waits. Zero uses the
	// configured default.
	EnableTimeout() time.Duration
	DisableTimeout() time.Duration
}

// ControlPlane implements the parts of [ControlPlaneFeature] that only
// depend on the feature's name and plan location.
type ControlPlane struct {
	name        string
	displayName string
	location    PlanLocation
}

// NewControlPlane creates a ControlPlane. An empty displayName uses name.
func NewControlPlane(name, displayName string, location PlanLocation) ControlPlane {
	if displayName == "" {
		displayName = name
	}
	return ControlPlane{name: name, displayName: displayName, location: location}
}

// Name returns the feature name.
func (c ControlPlane) Name() string { return c.name }

// DisplayName returns the name shown to users.
func (c ControlPlane) DisplayName() string { return c.displayName }

// PlanLocation returns where the plan lives.
func (c ControlPlane) PlanLocation() PlanLocation { return c.location }

// Plan returns "openstack-plan" for the shared plan, "<name>-plan" otherwise.
func (c ControlPlane) Plan() string {
	if c.location == SunbeamTerraformRepo {
		return manifest.OpenStackPlan
	}
	return c.name + "-plan"
}

// ConfigKey returns the state key holding the plan's variables.
func (c ControlPlane) ConfigKey() string {
	if c.location == SunbeamTerraformRepo {
		return OpenStackTfvarsKey
	}
	return "TerraformVars" + capitalize(c.name)
}

// DatabaseCharmProcesses returns no database services.
func (c ControlPlane) DatabaseCharmProcesses() map[string]map[string]int { return nil }

// EnableTimeout returns zero, the configured default.
func (c ControlPlane) EnableTimeout() time.Duration { return 0 }

// DisableTimeout returns zero, the configured default.
func (c ControlPlane) DisableTimeout() time.Duration { return 0 }

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func enableTimeout(d *deployment.Deployment, f ControlPlaneFeature) time.Duration {
	return deployment.Timeout(f.EnableTimeout(), deployment.Timeout(d.Config.Timeouts.Enable, DefaultApplicationTimeout))
}

func disableTimeout(d *deployment.Deployment, f ControlPlaneFeature) time.Duration {
	return deployment.Timeout(f.DisableTimeout(), deployment.Timeout(d.Config.Timeouts.Disable, DefaultApplicationTimeout))
}
