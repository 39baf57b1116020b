package feature

import (
	"sunbeam/internal/deployment"
	"sunbeam/internal/step"
	"sunbeam/internal/terraform"
)

// EnablePlan initializes f's plan and enables its applications.
func EnablePlan(d *deployment.Deployment, f ControlPlaneFeature) []step.Step {
	return []step.Step{
		terraform.NewInitStep(d.TfHelper(f.Plan())),
		NewEnableApplicationStep(d, f, nil),
	}
}

// DisablePlan initializes f's plan and disables its applications.
func DisablePlan(d *deployment.Deployment, f ControlPlaneFeature) []step.Step {
	return []step.Step{
		terraform.NewInitStep(d.TfHelper(f.Plan())),
		NewDisableApplicationStep(d, f),
	}
}

// UpgradePlan refreshes f's applications. Applications of the shared plan
// are refreshed with the control plane, so the plan is empty for them, as it
// is when no release upgrade was requested.
func UpgradePlan(d *deployment.Deployment, f ControlPlaneFeature, release bool) []step.Step {
	if !release || f.PlanLocation() == SunbeamTerraformRepo {
		d.Logger.Debug().Str("feature", f.Name()).Msg("Feature applications are refreshed with the control plane")
		return nil
	}
	return []step.Step{NewUpgradeApplicationStep(d, f)}
}
