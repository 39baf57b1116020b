// Package manifest reads deployment manifest files.
//
// A deployment manifest pins the software that the terraform plans deploy:
// per-charm channel, revision and config overrides, and the source directory
// of each terraform plan. Features contribute their own defaults which are
// merged under the user's manifest, so a user entry always wins.
//
// YAML format:
//
//	software:
//	  charms:
//	    keystone-k8s:
//	      channel: 2024.1/edge
//	      revision: 212
//	      config:
//	        debug: true
//	  terraform:
//	    openstack-plan:
//	      source: /snap/openstack/current/etc/deploy-openstack
//
// Key types:
//   - [Manifest] - the parsed document
//   - [CharmManifest] - one charm's overrides
//   - [TfvarMap] - how manifest attributes map onto terraform variable names
package manifest

import (
	"fmt"
	"maps"
	"os"

	"gopkg.in/yaml.v3"
)

// CharmManifest holds the overrides for a single charm.
type CharmManifest struct {
	// Channel is the charm store channel, e.g. "2024.1/stable".
	Channel string `yaml:"channel,omitempty"`

	// Revision pins a charm revision. Nil follows the channel head.
	Revision *int `yaml:"revision,omitempty"`

	// Config is passed through as the charm's config mapping.
	Config map[string]any `yaml:"config,omitempty"`
}

// TerraformManifest locates a terraform plan.
type TerraformManifest struct {
	// Source is the directory holding the plan's .tf files.
	Source string `yaml:"source"`
}

// SoftwareConfig groups charm and plan overrides.
type SoftwareConfig struct {
	Charms    map[string]CharmManifest     `yaml:"charms,omitempty"`
	Terraform map[string]TerraformManifest `yaml:"terraform,omitempty"`
}

// Manifest is the root of a deployment manifest document.
type Manifest struct {
	Software SoftwareConfig `yaml:"software"`
}

// ReadFromFile reads and parses a manifest YAML file.
func ReadFromFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ReadFromBytes(data)
}

// ReadFromBytes parses a manifest from YAML bytes.
func ReadFromBytes(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	for name, tf := range m.Software.Terraform {
		if tf.Source == "" {
			return nil, fmt.Errorf("terraform plan %s has no source", name)
		}
	}
	return &m, nil
}

// Charm returns the overrides for the named charm.
func (m *Manifest) Charm(name string) (CharmManifest, bool) {
	c, ok := m.Software.Charms[name]
	return c, ok
}

// PlanSource returns the source directory of the named terraform plan.
func (m *Manifest) PlanSource(plan string) (string, bool) {
	tf, ok := m.Software.Terraform[plan]
	if !ok {
		return "", false
	}
	return tf.Source, true
}

// Merge returns a new manifest with defaults filled in under m.
//
// Charms and plans present in m keep m's values field by field; empty
// fields take the value from defaults.
func (m *Manifest) Merge(defaults SoftwareConfig) *Manifest {
	merged := &Manifest{
		Software: SoftwareConfig{
			Charms:    make(map[string]CharmManifest, len(defaults.Charms)+len(m.Software.Charms)),
			Terraform: make(map[string]TerraformManifest, len(defaults.Terraform)+len(m.Software.Terraform)),
		},
	}
	maps.Copy(merged.Software.Charms, defaults.Charms)
	maps.Copy(merged.Software.Terraform, defaults.Terraform)

	for name, c := range m.Software.Charms {
		base := merged.Software.Charms[name]
		if c.Channel != "" {
			base.Channel = c.Channel
		}
		if c.Revision != nil {
			base.Revision = c.Revision
		}
		if c.Config != nil {
			base.Config = c.Config
		}
		merged.Software.Charms[name] = base
	}
	maps.Copy(merged.Software.Terraform, m.Software.Terraform)
	return merged
}

// Default returns the manifest used when the user supplies none.
func Default() *Manifest {
	charms := make(map[string]CharmManifest, len(CharmChannels))
	for name, channel := range CharmChannels {
		charms[name] = CharmManifest{Channel: channel}
	}
	return &Manifest{Software: SoftwareConfig{Charms: charms}}
}
