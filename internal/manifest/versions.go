package manifest

// Default channels.
const (
	OpenStackChannel       = "2024.1/stable"
	OVNChannel             = "24.03/stable"
	RabbitMQChannel        = "3.12/stable"
	TraefikChannel         = "latest/beta"
	MicroCephChannel       = "squid/beta"
	SunbeamMachineChannel  = "2024.1/stable"
	SunbeamClusterdChannel = "2024.1/stable"
	MySQLChannel           = "8.0/stable"
	CertAuthChannel        = "latest/beta"
	SunbeamSSCChannel      = "latest/beta"
	K8SChannel             = "1.32/beta"
)

// Terraform plan names.
const (
	SunbeamMachinePlan = "sunbeam-machine-plan"
	K8SPlan            = "k8s-plan"
	MicroCephPlan      = "microceph-plan"
	OpenStackPlan      = "openstack-plan"
	HypervisorPlan     = "hypervisor-plan"
)

// OpenStackCharmsK8S are the control plane charms deployed by the openstack plan.
var OpenStackCharmsK8S = map[string]string{
	"cinder-ceph-k8s": OpenStackChannel,
	"cinder-k8s":      OpenStackChannel,
	"glance-k8s":      OpenStackChannel,
	"horizon-k8s":     OpenStackChannel,
	"keystone-k8s":    OpenStackChannel,
	"neutron-k8s":     OpenStackChannel,
	"nova-k8s":        OpenStackChannel,
	"placement-k8s":   OpenStackChannel,
}

// MiscCharmsK8S are the supporting charms deployed by the openstack plan.
var MiscCharmsK8S = map[string]string{
	"ovn-central-k8s":          OVNChannel,
	"ovn-relay-k8s":            OVNChannel,
	"mysql-k8s":                MySQLChannel,
	"mysql-router-k8s":         MySQLChannel,
	"self-signed-certificates": CertAuthChannel,
	"rabbitmq-k8s":             RabbitMQChannel,
	"traefik-k8s":              TraefikChannel,
}

// MachineCharms are deployed on machines rather than on kubernetes.
var MachineCharms = map[string]string{
	"microceph":            MicroCephChannel,
	"k8s":                  K8SChannel,
	"openstack-hypervisor": OpenStackChannel,
	"sunbeam-machine":      SunbeamMachineChannel,
	"sunbeam-clusterd":     SunbeamClusterdChannel,
	"sunbeam-ssc":          SunbeamSSCChannel,
}

// CharmChannels is every charm with its default channel.
var CharmChannels = func() map[string]string {
	all := make(map[string]string)
	for _, group := range []map[string]string{OpenStackCharmsK8S, MiscCharmsK8S, MachineCharms} {
		for k, v := range group {
			all[k] = v
		}
	}
	return all
}()

// PlanDirs maps plan names to their directory under the plans root.
var PlanDirs = map[string]string{
	SunbeamMachinePlan: "deploy-sunbeam-machine",
	K8SPlan:            "deploy-k8s",
	MicroCephPlan:      "deploy-microceph",
	OpenStackPlan:      "deploy-openstack",
	HypervisorPlan:     "deploy-openstack-hypervisor",
}
