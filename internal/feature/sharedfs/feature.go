// Package sharedfs implements the shared-filesystem feature: the manila
// control plane services on the shared openstack plan, plus the manila-data
// machine application deployed by a plan of its own.
package sharedfs

import (
	"context"

	"sunbeam/internal/deployment"
	"sunbeam/internal/feature"
	"sunbeam/internal/manifest"
	"sunbeam/internal/step"
	"sunbeam/internal/terraform"
)

// Name is the feature name.
const Name = "shared-filesystem"

// ManilaDataChannel is the default manila-data charm channel.
const ManilaDataChannel = "2024.1/edge"

// horizonPlugin is the dashboard plugin of the feature.
const horizonPlugin = "manila"

// Feature is the shared-filesystem feature.
type Feature struct {
	feature.ControlPlane
}

// New creates the shared-filesystem feature.
func New() *Feature {
	return &Feature{
		ControlPlane: feature.NewControlPlane(Name, "Shared Filesystems", feature.SunbeamTerraformRepo),
	}
}

// DefaultSoftware returns the manila charms.
func (f *Feature) DefaultSoftware() manifest.SoftwareConfig {
	return manifest.SoftwareConfig{
		Charms: map[string]manifest.CharmManifest{
			"manila-k8s":        {Channel: manifest.OpenStackChannel},
			"manila-cephfs-k8s": {Channel: manifest.OpenStackChannel},
			"manila-data":       {Channel: ManilaDataChannel},
		},
	}
}

// TfvarMap maps the manila charms onto the openstack and manila-data plans.
func (f *Feature) TfvarMap() manifest.TfvarMap {
	return manifest.TfvarMap{
		f.Plan(): {Charms: map[string]map[string]string{
			"manila-k8s": {
				manifest.AttrChannel:  "manila-channel",
				manifest.AttrRevision: "manila-revision",
				manifest.AttrConfig:   "manila-config",
			},
			"manila-cephfs-k8s": {
				manifest.AttrChannel:  "manila-cephfs-channel",
				manifest.AttrRevision: "manila-cephfs-revision",
				manifest.AttrConfig:   "manila-cephfs-config",
			},
		}},
		ManilaDataPlan: {Charms: map[string]map[string]string{
			"manila-data": {
				manifest.AttrChannel:  "charm-manila-data-channel",
				manifest.AttrRevision: "charm-manila-data-revision",
				manifest.AttrConfig:   "charm-manila-data-config",
			},
		}},
	}
}

// ApplicationNames returns the manila applications of the openstack plan.
func (f *Feature) ApplicationNames(_ context.Context, d *deployment.Deployment) ([]string, error) {
	apps := []string{
		"manila",
		"manila-mysql-router",
		"manila-cephfs",
		"manila-cephfs-mysql-router",
		"manila-data-mysql-router",
	}
	topology, err := feature.DatabaseTopology(d.Store)
	if err != nil {
		return nil, err
	}
	if topology == feature.DatabaseMulti {
		apps = append(apps, "manila-mysql")
	}
	return apps, nil
}

// TfvarsOnEnable switches manila and the ceph nfs gateway on.
func (f *Feature) TfvarsOnEnable(_ context.Context, d *deployment.Deployment) (map[string]any, error) {
	vars, err := feature.AddHorizonPlugin(d.Store, f.ConfigKey(), horizonPlugin)
	if err != nil {
		return nil, err
	}
	setEnabled(vars, true)
	return vars, nil
}

// TfvarsOnDisable switches manila and the ceph nfs gateway off.
func (f *Feature) TfvarsOnDisable(_ context.Context, d *deployment.Deployment) (map[string]any, error) {
	vars, err := feature.RemoveHorizonPlugin(d.Store, f.ConfigKey(), horizonPlugin)
	if err != nil {
		return nil, err
	}
	setEnabled(vars, false)
	return vars, nil
}

func setEnabled(vars map[string]any, enabled bool) {
	vars["enable-manila"] = enabled
	vars["enable-manila-cephfs"] = enabled
	vars["enable-ceph-nfs"] = enabled
}

// EnableSteps enables the control plane services, then deploys manila-data.
func (f *Feature) EnableSteps(d *deployment.Deployment) []step.Step {
	d.AddSoftware(f.DefaultSoftware(), f.TfvarMap())
	manilaData := d.TfHelper(ManilaDataPlan)
	return append(feature.EnablePlan(d, f),
		terraform.NewInitStep(manilaData),
		NewDeployManilaDataStep(d, manilaData, d.MachineModel()),
	)
}

// DisableSteps destroys manila-data, then disables the control plane
// services it integrates with.
func (f *Feature) DisableSteps(d *deployment.Deployment) []step.Step {
	d.AddSoftware(f.DefaultSoftware(), f.TfvarMap())
	manilaData := d.TfHelper(ManilaDataPlan)
	return append([]step.Step{
		terraform.NewInitStep(manilaData),
		NewDestroyManilaDataStep(d, manilaData, d.MachineModel()),
	}, feature.DisablePlan(d, f)...)
}

// UpgradeSteps returns the upgrade plan of the shared openstack plan, which
// is empty.
func (f *Feature) UpgradeSteps(d *deployment.Deployment, release bool) []step.Step {
	return feature.UpgradePlan(d, f, release)
}

var _ feature.ControlPlaneFeature = (*Feature)(nil)
