package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const appName = "sunbeam"

// Loader handles Viper-based configuration loading.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a Loader seeded with [DefaultConfig] values.
func NewLoader() *Loader {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix("SUNBEAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("juju.binary_path", "SUNBEAM_JUJU_PATH")
	_ = v.BindEnv("terraform.binary_path", "SUNBEAM_TERRAFORM_PATH")

	return &Loader{v: v}
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("state_path", cfg.StatePath)
	v.SetDefault("manifest_path", cfg.ManifestPath)
	v.SetDefault("juju.binary_path", cfg.Juju.BinaryPath)
	v.SetDefault("juju.model", cfg.Juju.Model)
	v.SetDefault("juju.machine_model", cfg.Juju.MachineModel)
	v.SetDefault("juju.poll_interval", cfg.Juju.PollInterval)
	v.SetDefault("juju.controller", cfg.Juju.Controller)
	v.SetDefault("juju.accounts_dir", cfg.Juju.AccountsDir)
	v.SetDefault("terraform.binary_path", cfg.Terraform.BinaryPath)
	v.SetDefault("terraform.plans_dir", cfg.Terraform.PlansDir)
	v.SetDefault("terraform.lock_retries", cfg.Terraform.LockRetries)
	v.SetDefault("terraform.lock_retry_delay", cfg.Terraform.LockRetryDelay)
	v.SetDefault("timeouts.enable", cfg.Timeouts.Enable)
	v.SetDefault("timeouts.disable", cfg.Timeouts.Disable)
	v.SetDefault("timeouts.upgrade", cfg.Timeouts.Upgrade)
	v.SetDefault("timeouts.settle", cfg.Timeouts.Settle)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.dir", cfg.Logging.Dir)
	v.SetDefault("logging.max_size_mb", cfg.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", cfg.Logging.MaxBackups)
	v.SetDefault("metrics.textfile_path", cfg.Metrics.TextfilePath)
	v.SetDefault("spaces.management", cfg.Spaces.Management)
	v.SetDefault("spaces.internal", cfg.Spaces.Internal)
}

// Load reads configuration from the first config file found, falling back
// to defaults when none exists. Environment variables override both.
func (l *Loader) Load() (*Config, error) {
	if path := os.Getenv("SUNBEAM_CONFIG_PATH"); path != "" {
		return l.LoadFromFile(path)
	}

	if dir, err := ConfigDir(); err == nil {
		path := filepath.Join(dir, "config.yaml")
		if _, err := os.Stat(path); err == nil {
			return l.LoadFromFile(path)
		}
	}

	if _, err := os.Stat("sunbeam.yaml"); err == nil {
		return l.LoadFromFile("sunbeam.yaml")
	}

	return l.unmarshal()
}

// LoadFromFile reads configuration from path.
func (l *Loader) LoadFromFile(path string) (*Config, error) {
	l.v.SetConfigFile(path)
	l.v.SetConfigType("yaml")
	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return l.unmarshal()
}

func (l *Loader) unmarshal() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the plans cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Juju.PollInterval <= 0 {
		errs = append(errs, errors.New("juju.poll_interval must be positive"))
	}
	for name, d := range map[string]int64{
		"timeouts.enable":  int64(c.Timeouts.Enable),
		"timeouts.disable": int64(c.Timeouts.Disable),
		"timeouts.upgrade": int64(c.Timeouts.Upgrade),
		"timeouts.settle":  int64(c.Timeouts.Settle),
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.Terraform.LockRetries < 1 {
		errs = append(errs, errors.New("terraform.lock_retries must be at least 1"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// MustLoad loads configuration and panics on error.
func MustLoad() *Config {
	cfg, err := NewLoader().Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// ConfigDir returns the platform config directory for sunbeam.
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appName), nil
}

// DefaultConfigPath returns the config file location in [ConfigDir].
func DefaultConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DataDir returns the directory holding state and logs,
// $XDG_DATA_HOME/sunbeam or ~/.local/share/sunbeam.
func DataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", appName), nil
}
