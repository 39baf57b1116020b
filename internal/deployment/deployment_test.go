package deployment

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"sunbeam/internal/command"
	"sunbeam/internal/juju"
	"sunbeam/internal/manifest"
)

func TestDeployment_Models(t *testing.T) {
	d := NewForTest(t, juju.NewMockClient(), command.NewMockRunner())

	assert.Equal(t, "openstack", d.OpenStackModel())
	assert.Equal(t, "openstack-machines", d.MachineModel())
	assert.Equal(t, time.Second, d.Poller().Interval())
}

func TestDeployment_PlanPath(t *testing.T) {
	d := NewForTest(t, juju.NewMockClient(), command.NewMockRunner())
	plans := d.Config.Terraform.PlansDir

	assert.Equal(t, filepath.Join(plans, "deploy-openstack"), d.PlanPath(manifest.OpenStackPlan))
	assert.Equal(t, filepath.Join(plans, "deploy-openstack-hypervisor"), d.PlanPath(manifest.HypervisorPlan))
	assert.Equal(t, filepath.Join(plans, "deploy-manila-data"), d.PlanPath("manila-data-plan"))

	d.Manifest.Software.Terraform = map[string]manifest.TerraformManifest{
		"manila-data-plan": {Source: "/opt/manila-data"},
	}
	assert.Equal(t, "/opt/manila-data", d.PlanPath("manila-data-plan"))
	assert.Equal(t, "/opt/manila-data", d.TfHelper("manila-data-plan").Path())
}

func TestDeployment_AddSoftware(t *testing.T) {
	d := NewForTest(t, juju.NewMockClient(), command.NewMockRunner())
	d.Manifest.Software.Charms["manila-k8s"] = manifest.CharmManifest{Channel: "2024.1/edge"}

	d.AddSoftware(manifest.SoftwareConfig{
		Charms: map[string]manifest.CharmManifest{
			"manila-k8s":  {Channel: "2024.1/stable"},
			"manila-data": {Channel: "2024.1/edge"},
		},
	}, manifest.TfvarMap{
		"manila-data-plan": {Charms: map[string]map[string]string{
			"manila-data": {manifest.AttrChannel: "charm-manila-data-channel"},
		}},
	})

	charm, ok := d.Manifest.Charm("manila-k8s")
	assert.True(t, ok)
	assert.Equal(t, "2024.1/edge", charm.Channel, "existing entry wins")
	_, ok = d.Manifest.Charm("manila-data")
	assert.True(t, ok)
	assert.Equal(t, []string{"manila-data"}, d.TfvarMap().CharmNames("manila-data-plan"))
	assert.NotEmpty(t, d.TfvarMap().CharmNames(manifest.OpenStackPlan))
}

func TestDeployment_RetryPolicy(t *testing.T) {
	d := NewForTest(t, juju.NewMockClient(), command.NewMockRunner())
	d.Config.Terraform.LockRetries = 3

	p := d.RetryPolicy()

	assert.Equal(t, 3, p.Attempts)
	assert.Equal(t, time.Second, p.Delay)
	assert.Equal(t, 12*time.Second, p.MaxDelay)
	assert.Equal(t, d.Clock, p.Clock)
}

func TestTimeout(t *testing.T) {
	assert.Equal(t, time.Minute, Timeout(time.Minute, time.Hour))
	assert.Equal(t, time.Hour, Timeout(0, time.Hour))
	assert.Equal(t, time.Hour, Timeout(-time.Second, time.Hour))
}
