// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Bootstrap is the local configuration the embedding layer supplies:
// where to fetch the remote configuration, where to deliver events, and
// runtime tuning. Everything the operator manages lives in RemoteConfig.
type Bootstrap struct {
	APIKey       string        `yaml:"api_key"`
	ConfigURL    string        `yaml:"config_url"`
	CollectorURL string        `yaml:"collector_url"`
	LogLevel     string        `yaml:"log_level,omitempty"`
	LoaderMode   string        `yaml:"loader_mode,omitempty"` // "http" or "render"
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`
	SettleDelay  time.Duration `yaml:"settle_delay,omitempty"`
	IdentityPath string        `yaml:"identity_path,omitempty"`
	MetricsAddr  string        `yaml:"metrics_addr,omitempty"`
}

// LoadBootstrap loads the bootstrap configuration from a YAML file,
// expanding ${VAR} environment references before parsing.
func LoadBootstrap(filename string) (*Bootstrap, error) {
	if filename == "" {
		return nil, fmt.Errorf("configuration filename cannot be empty")
	}
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", filename)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %v", err)
	}

	return LoadBootstrapFromBytes(data)
}

// LoadBootstrapFromBytes loads bootstrap configuration from YAML bytes.
func LoadBootstrapFromBytes(data []byte) (*Bootstrap, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("configuration data cannot be empty")
	}

	expanded := expandEnvironmentVariables(string(data))

	var cfg Bootstrap
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %v", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v", err)
	}
	return &cfg, nil
}

// Validate checks required bootstrap fields.
func (b *Bootstrap) Validate() error {
	if b.APIKey == "" {
		return fmt.Errorf("api_key is required")
	}
	if b.ConfigURL == "" {
		return fmt.Errorf("config_url is required")
	}
	if b.CollectorURL == "" {
		return fmt.Errorf("collector_url is required")
	}
	switch b.LoaderMode {
	case "http", "render":
	default:
		return fmt.Errorf("loader_mode must be \"http\" or \"render\", got %q", b.LoaderMode)
	}
	if b.PollInterval < time.Second {
		return fmt.Errorf("poll_interval must be at least 1s")
	}
	return nil
}

// applyDefaults fills unset optional fields.
func applyDefaults(cfg *Bootstrap) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LoaderMode == "" {
		cfg.LoaderMode = "http"
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = 300 * time.Millisecond
	}
	if cfg.IdentityPath == "" {
		cfg.IdentityPath = "tagfusion-identity.db"
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvironmentVariables substitutes ${VAR} references with their
// environment values, leaving unset references untouched.
func expandEnvironmentVariables(data string) string {
	return envVarPattern.ReplaceAllStringFunc(data, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		return match
	})
}
