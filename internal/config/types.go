// Package config provides configuration loading and management for sunbeam.
//
// Configuration is loaded using Viper, supporting YAML config files and environment
// variable overrides. The defaults work out of the box on a snap install; the
// config file only needs the settings that differ.
//
// Key types:
//   - [Config] is the root configuration container with all settings
//   - [Loader] handles Viper-based configuration loading
//   - [JujuConfig] contains juju CLI and model settings
//   - [TerraformConfig] contains terraform CLI and plan settings
//   - [TimeoutConfig] bounds every readiness wait
//
// Configuration priority (highest to lowest):
//  1. Environment variables (SUNBEAM_ prefix, dots become underscores)
//  2. Config file specified by SUNBEAM_CONFIG_PATH
//  3. User config directory (platform-standard):
//     - Linux: ~/.config/sunbeam/config.yaml
//     - macOS: ~/Library/Application Support/sunbeam/config.yaml
//  4. ./sunbeam.yaml
//  5. [DefaultConfig] defaults
package config

import "time"

// Config represents the root configuration structure.
//
// This is the main configuration container loaded by [Loader] and used throughout
// the application. Use [DefaultConfig] to get sensible defaults.
type Config struct {
	// StatePath is the cluster state document. Empty resolves to
	// cluster.yaml under [DataDir].
	StatePath string `mapstructure:"state_path"`

	// ManifestPath is an optional deployment manifest applied over the defaults.
	ManifestPath string `mapstructure:"manifest_path"`

	// Juju contains juju CLI configuration.
	Juju JujuConfig `mapstructure:"juju"`

	// Terraform contains terraform CLI configuration.
	Terraform TerraformConfig `mapstructure:"terraform"`

	// Timeouts bound the readiness waits of the feature plans.
	Timeouts TimeoutConfig `mapstructure:"timeouts"`

	// Logging controls the debug log file.
	Logging LoggingConfig `mapstructure:"logging"`

	// Metrics controls the step metrics textfile.
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Spaces maps the deployment networks onto juju spaces.
	Spaces SpacesConfig `mapstructure:"spaces"`
}

// JujuConfig contains juju CLI configuration.
type JujuConfig struct {
	// BinaryPath is the path to the juju binary.
	// Can be overridden with SUNBEAM_JUJU_PATH.
	BinaryPath string `mapstructure:"binary_path"`

	// Model is the model hosting the OpenStack control plane.
	Model string `mapstructure:"model"`

	// MachineModel is the model hosting machine applications.
	MachineModel string `mapstructure:"machine_model"`

	// PollInterval is the delay between two status queries.
	PollInterval time.Duration `mapstructure:"poll_interval"`

	// Controller is the controller the deployment is registered with.
	Controller string `mapstructure:"controller"`

	// AccountsDir holds one <controller>.yaml account file per registered
	// controller. Empty resolves to juju under [DataDir].
	AccountsDir string `mapstructure:"accounts_dir"`
}

// TerraformConfig contains terraform CLI configuration.
type TerraformConfig struct {
	// BinaryPath is the path to the terraform binary.
	// Can be overridden with SUNBEAM_TERRAFORM_PATH.
	BinaryPath string `mapstructure:"binary_path"`

	// PlansDir holds one deploy-<name> directory per plan.
	PlansDir string `mapstructure:"plans_dir"`

	// LockRetries is the number of apply attempts while the state lock is held.
	LockRetries int `mapstructure:"lock_retries"`

	// LockRetryDelay is the initial delay between those attempts.
	LockRetryDelay time.Duration `mapstructure:"lock_retry_delay"`
}

// TimeoutConfig bounds the readiness waits.
type TimeoutConfig struct {
	Enable  time.Duration `mapstructure:"enable"`
	Disable time.Duration `mapstructure:"disable"`
	Upgrade time.Duration `mapstructure:"upgrade"`
	Settle  time.Duration `mapstructure:"settle"`
}

// LoggingConfig controls the debug log file.
type LoggingConfig struct {
	// Level is the console level: debug, info, warn or error.
	Level string `mapstructure:"level"`

	// Dir holds the rotated log files. Empty resolves to logs under [DataDir].
	Dir string `mapstructure:"dir"`

	// MaxSizeMB is the size at which a log file is rotated.
	MaxSizeMB int `mapstructure:"max_size_mb"`

	// MaxBackups is the number of rotated files kept.
	MaxBackups int `mapstructure:"max_backups"`
}

// MetricsConfig controls the step metrics textfile.
type MetricsConfig struct {
	// TextfilePath receives the metrics after each plan. Empty disables it.
	TextfilePath string `mapstructure:"textfile_path"`
}

// SpacesConfig names the juju space of each network.
type SpacesConfig struct {
	Management string `mapstructure:"management"`
	Internal   string `mapstructure:"internal"`
}

// DefaultConfig returns a new [Config] with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Juju: JujuConfig{
			BinaryPath:   "juju",
			Model:        "openstack",
			MachineModel: "openstack-machines",
			PollInterval: time.Second,
			Controller:   "sunbeam-controller",
		},
		Terraform: TerraformConfig{
			BinaryPath:     "terraform",
			PlansDir:       "/snap/openstack/current/etc",
			LockRetries:    5,
			LockRetryDelay: 5 * time.Second,
		},
		Timeouts: TimeoutConfig{
			Enable:  900 * time.Second,
			Disable: 900 * time.Second,
			Upgrade: 900 * time.Second,
			Settle:  300 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "warn",
			MaxSizeMB:  10,
			MaxBackups: 5,
		},
		Spaces: SpacesConfig{
			Management: "management",
			Internal:   "management",
		},
	}
}
