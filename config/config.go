// Package config loads subnetctl configuration from YAML with environment
// overrides.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/subnetconsole/agentops/agent"
	"github.com/subnetconsole/agentops/observe"
	"github.com/subnetconsole/agentops/resilience"
	"github.com/subnetconsole/agentops/secret"
	"github.com/subnetconsole/agentops/session"
)

// Environment variables that override file values.
const (
	EnvAgentURL       = "SUBNET_AGENT_URL"
	EnvAPIKeyHeader   = "SUBNET_AGENT_API_KEY_HEADER"
	EnvStorageDriver  = "SUBNET_CONSOLE_STORAGE"
	EnvStoragePath    = "SUBNET_CONSOLE_STORAGE_PATH"
	EnvLogLevel       = "SUBNET_CONSOLE_LOG_LEVEL"
	EnvListenAddr     = "SUBNET_CONSOLE_ADDR"
	EnvCheckInterval  = "SUBNET_CONSOLE_CHECK_INTERVAL"
	EnvMetricsEnabled = "SUBNET_CONSOLE_METRICS"
)

// DefaultFallback resolves the fallback key from SUBNET_AGENT_API_KEY.
const DefaultFallback = "secretref:env:SUBNET_AGENT_API_KEY"

// Validation errors.
var (
	ErrMissingAgentURL = errors.New("config: agent.base_url is required")
	ErrInvalidDriver   = errors.New("config: storage.driver must be memory, file or sqlite")
	ErrMissingPath     = errors.New("config: storage.path is required for file and sqlite drivers")
	ErrInvalidInterval = errors.New("config: monitor.interval must be positive")
)

// Config is the complete subnetctl configuration.
type Config struct {
	Agent       AgentConfig       `yaml:"agent"`
	Monitor     MonitorConfig     `yaml:"monitor"`
	Storage     StorageConfig     `yaml:"storage"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Server      ServerConfig      `yaml:"server"`
	Observe     observe.Config    `yaml:"observe"`
}

// AgentConfig describes how to reach the agent API.
type AgentConfig struct {
	BaseURL      string        `yaml:"base_url"`
	APIKeyHeader string        `yaml:"api_key_header,omitempty"`
	Timeout      time.Duration `yaml:"timeout,omitempty"`
	Retry        RetryConfig   `yaml:"retry,omitempty"`
	Breaker      BreakerConfig `yaml:"breaker,omitempty"`
}

// RetryConfig bounds retries of failed agent calls.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts,omitempty"`
	InitialDelay time.Duration `yaml:"initial_delay,omitempty"`
	MaxDelay     time.Duration `yaml:"max_delay,omitempty"`
}

// BreakerConfig configures the agent circuit breaker.
type BreakerConfig struct {
	MaxFailures  int           `yaml:"max_failures,omitempty"`
	ResetTimeout time.Duration `yaml:"reset_timeout,omitempty"`
}

// MonitorConfig configures the session monitor.
type MonitorConfig struct {
	Interval     time.Duration `yaml:"interval"`
	CheckTimeout time.Duration `yaml:"check_timeout,omitempty"`
}

// StorageConfig selects where the API key is persisted.
type StorageConfig struct {
	Driver string `yaml:"driver"` // memory, file, sqlite
	Path   string `yaml:"path,omitempty"`
}

// CredentialsConfig configures the fallback credential.
type CredentialsConfig struct {
	// Fallback is resolved by secret.Resolver on every check: a
	// secretref:<provider>:<ref>, a ${VAR} expression, or a literal.
	Fallback string `yaml:"fallback"`
}

// ServerConfig configures the monitor HTTP server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			BaseURL:      "http://127.0.0.1:8080",
			APIKeyHeader: agent.DefaultAPIKeyHeader,
			Timeout:      10 * time.Second,
			Retry: RetryConfig{
				MaxAttempts:  3,
				InitialDelay: 200 * time.Millisecond,
				MaxDelay:     5 * time.Second,
			},
			Breaker: BreakerConfig{
				MaxFailures:  5,
				ResetTimeout: 30 * time.Second,
			},
		},
		Monitor: MonitorConfig{
			Interval:     session.DefaultInterval,
			CheckTimeout: session.DefaultCheckTimeout,
		},
		Storage: StorageConfig{
			Driver: "file",
			Path:   DefaultStoragePath(),
		},
		Credentials: CredentialsConfig{Fallback: DefaultFallback},
		Server:      ServerConfig{Addr: "127.0.0.1:9410"},
		Observe: observe.Config{
			ServiceName: "subnetctl",
			Tracing:     observe.TracingConfig{Exporter: "none", SamplePct: 1},
			Metrics:     observe.MetricsConfig{Exporter: "prometheus"},
			Logging:     observe.LoggingConfig{Enabled: true, Level: "info", Format: "json"},
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(userConfigDir(), "subnet-console", "config.yaml")
}

// DefaultStoragePath returns the default key file location.
func DefaultStoragePath() string {
	return filepath.Join(userConfigDir(), "subnet-console", "keys.json")
}

func userConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	return "."
}

// Load reads path over the defaults and applies environment overrides. A
// missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes c to path as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv(EnvAgentURL); v != "" {
		c.Agent.BaseURL = v
	}
	if v := os.Getenv(EnvAPIKeyHeader); v != "" {
		c.Agent.APIKeyHeader = v
	}
	if v := os.Getenv(EnvStorageDriver); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv(EnvStoragePath); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Observe.Logging.Level = v
	}
	if v := os.Getenv(EnvListenAddr); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(EnvCheckInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvCheckInterval, err)
		}
		c.Monitor.Interval = d
	}
	if v := os.Getenv(EnvMetricsEnabled); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvMetricsEnabled, err)
		}
		c.Observe.Metrics.Enabled = on
	}
	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Agent.BaseURL == "" {
		return ErrMissingAgentURL
	}
	switch c.Storage.Driver {
	case "memory":
	case "file", "sqlite":
		if c.Storage.Path == "" {
			return ErrMissingPath
		}
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidDriver, c.Storage.Driver)
	}
	if c.Monitor.Interval <= 0 {
		return ErrInvalidInterval
	}
	return c.Observe.Validate()
}

// ClientConfig returns the agent client configuration.
func (c *Config) ClientConfig() agent.Config {
	return agent.Config{
		BaseURL:      c.Agent.BaseURL,
		APIKeyHeader: c.Agent.APIKeyHeader,
		Timeout:      c.Agent.Timeout,
		Retry: resilience.RetryConfig{
			MaxAttempts:  c.Agent.Retry.MaxAttempts,
			InitialDelay: c.Agent.Retry.InitialDelay,
			MaxDelay:     c.Agent.Retry.MaxDelay,
			Jitter:       true,
		},
		Breaker: resilience.CircuitBreakerConfig{
			MaxFailures:  c.Agent.Breaker.MaxFailures,
			ResetTimeout: c.Agent.Breaker.ResetTimeout,
		},
	}
}

// FallbackFunc returns the credential fallback for session.Config, or nil
// when none is configured.
func (c *Config) FallbackFunc() func(context.Context) (string, error) {
	if c.Credentials.Fallback == "" {
		return nil
	}
	return secret.DefaultResolver().Func(c.Credentials.Fallback)
}
