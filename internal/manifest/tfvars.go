package manifest

import "strings"

// Charm attributes that can be mapped onto terraform variables.
const (
	AttrChannel  = "channel"
	AttrRevision = "revision"
	AttrConfig   = "config"
)

// PlanTfvars maps, per charm, a manifest attribute to a terraform variable name.
type PlanTfvars struct {
	Charms map[string]map[string]string
}

// TfvarMap maps plan names to their attribute mappings.
type TfvarMap map[string]PlanTfvars

// CharmNames returns the charms mapped for plan.
func (t TfvarMap) CharmNames(plan string) []string {
	p, ok := t[plan]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(p.Charms))
	for name := range p.Charms {
		names = append(names, name)
	}
	return names
}

// Merge returns a map holding the entries of t and other. Entries in other
// replace those in t charm by charm.
func (t TfvarMap) Merge(other TfvarMap) TfvarMap {
	merged := make(TfvarMap, len(t)+len(other))
	for _, src := range []TfvarMap{t, other} {
		for plan, p := range src {
			dst, ok := merged[plan]
			if !ok {
				dst = PlanTfvars{Charms: make(map[string]map[string]string)}
			}
			for charm, attrs := range p.Charms {
				dst.Charms[charm] = attrs
			}
			merged[plan] = dst
		}
	}
	return merged
}

// standardAttrs builds the common "<prefix>-channel" style mapping.
func standardAttrs(prefix string) map[string]string {
	return map[string]string{
		AttrChannel:  prefix + "-channel",
		AttrRevision: prefix + "-revision",
		AttrConfig:   prefix + "-config",
	}
}

// machineAttrs builds the "charm_channel" style mapping machine plans use.
func machineAttrs(prefix string) map[string]string {
	return map[string]string{
		AttrChannel:  prefix + "_channel",
		AttrRevision: prefix + "_revision",
		AttrConfig:   prefix + "_config",
	}
}

// DefaultTfvarMap returns the mappings of the core plans.
func DefaultTfvarMap() TfvarMap {
	openstack := make(map[string]map[string]string)
	for _, group := range []map[string]string{OpenStackCharmsK8S, MiscCharmsK8S} {
		for charm := range group {
			openstack[charm] = standardAttrs(strings.TrimSuffix(charm, "-k8s"))
		}
	}
	openstack["mysql-k8s"]["config-map"] = "mysql-config-map"
	openstack["mysql-k8s"]["storage-map"] = "mysql-storage-map"
	openstack["mysql-k8s"]["storage"] = "mysql-storage"
	openstack["glance-k8s"]["storage"] = "glance-storage"
	openstack["self-signed-certificates"] = standardAttrs("certificate-authority")

	return TfvarMap{
		SunbeamMachinePlan: {Charms: map[string]map[string]string{"sunbeam-machine": machineAttrs("charm")}},
		K8SPlan:            {Charms: map[string]map[string]string{"k8s": machineAttrs("k8s")}},
		MicroCephPlan:      {Charms: map[string]map[string]string{"microceph": machineAttrs("charm_microceph")}},
		OpenStackPlan:      {Charms: openstack},
		HypervisorPlan:     {Charms: map[string]map[string]string{"openstack-hypervisor": machineAttrs("charm")}},
	}
}

// Tfvars renders the manifest attributes of plan's charms as terraform
// variables. When charms is non-nil only those charms are rendered. Attributes
// not set in the manifest are omitted so persisted values are kept.
func (m *Manifest) Tfvars(tfvarMap TfvarMap, plan string, charms []string) map[string]any {
	vars := make(map[string]any)
	p, ok := tfvarMap[plan]
	if !ok {
		return vars
	}

	var only map[string]bool
	if charms != nil {
		only = make(map[string]bool, len(charms))
		for _, c := range charms {
			only[c] = true
		}
	}

	for charm, attrs := range p.Charms {
		if only != nil && !only[charm] {
			continue
		}
		cm, ok := m.Charm(charm)
		if !ok {
			continue
		}
		if name, ok := attrs[AttrChannel]; ok && cm.Channel != "" {
			vars[name] = cm.Channel
		}
		if name, ok := attrs[AttrRevision]; ok && cm.Revision != nil {
			vars[name] = *cm.Revision
		}
		if name, ok := attrs[AttrConfig]; ok && cm.Config != nil {
			vars[name] = cm.Config
		}
	}
	return vars
}
