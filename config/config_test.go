package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/subnetconsole/agentops/observe"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
agent:
  base_url: https://agent.example:8443
  timeout: 3s
  retry:
    max_attempts: 5
monitor:
  interval: 90s
storage:
  driver: sqlite
  path: /var/lib/subnet/keys.db
credentials:
  fallback: secretref:file:/run/secrets/agent_key
observe:
  service_name: console
  logging:
    enabled: true
    level: debug
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Agent.BaseURL != "https://agent.example:8443" || cfg.Agent.Timeout != 3*time.Second {
		t.Errorf("agent = %+v", cfg.Agent)
	}
	if cfg.Agent.Retry.MaxAttempts != 5 || cfg.Agent.Retry.InitialDelay != 200*time.Millisecond {
		t.Errorf("retry = %+v, want file value merged over defaults", cfg.Agent.Retry)
	}
	if cfg.Monitor.Interval != 90*time.Second {
		t.Errorf("interval = %v", cfg.Monitor.Interval)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Credentials.Fallback != "secretref:file:/run/secrets/agent_key" {
		t.Errorf("storage/credentials = %+v %+v", cfg.Storage, cfg.Credentials)
	}
	if cfg.Observe.ServiceName != "console" || cfg.Observe.Logging.Level != "debug" {
		t.Errorf("observe = %+v", cfg.Observe)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("agent: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvAgentURL, "http://10.0.0.5:8080")
	t.Setenv(EnvAPIKeyHeader, "Authorization-Key")
	t.Setenv(EnvStorageDriver, "memory")
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvCheckInterval, "1m")
	t.Setenv(EnvMetricsEnabled, "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Agent.BaseURL != "http://10.0.0.5:8080" || cfg.Agent.APIKeyHeader != "Authorization-Key" {
		t.Errorf("agent = %+v", cfg.Agent)
	}
	if cfg.Storage.Driver != "memory" || cfg.Observe.Logging.Level != "warn" {
		t.Errorf("storage %q level %q", cfg.Storage.Driver, cfg.Observe.Logging.Level)
	}
	if cfg.Monitor.Interval != time.Minute || !cfg.Observe.Metrics.Enabled {
		t.Errorf("interval %v metrics %v", cfg.Monitor.Interval, cfg.Observe.Metrics.Enabled)
	}
}

func TestEnvOverrides_Invalid(t *testing.T) {
	t.Setenv(EnvCheckInterval, "soon")
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for bad interval")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "no url", mutate: func(c *Config) { c.Agent.BaseURL = "" }, want: ErrMissingAgentURL},
		{name: "bad driver", mutate: func(c *Config) { c.Storage.Driver = "redis" }, want: ErrInvalidDriver},
		{name: "no path", mutate: func(c *Config) { c.Storage.Path = "" }, want: ErrMissingPath},
		{name: "memory needs no path", mutate: func(c *Config) { c.Storage = StorageConfig{Driver: "memory"} }},
		{name: "zero interval", mutate: func(c *Config) { c.Monitor.Interval = 0 }, want: ErrInvalidInterval},
		{name: "observe", mutate: func(c *Config) { c.Observe.ServiceName = "" }, want: observe.ErrMissingServiceName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Monitor.Interval = 2 * time.Minute
	cfg.Storage = StorageConfig{Driver: "memory"}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Monitor.Interval != 2*time.Minute || loaded.Storage.Driver != "memory" {
		t.Errorf("loaded = %+v %+v", loaded.Monitor, loaded.Storage)
	}
}

func TestClientConfig(t *testing.T) {
	cfg := DefaultConfig()
	cc := cfg.ClientConfig()
	if cc.BaseURL != cfg.Agent.BaseURL || cc.Retry.MaxAttempts != 3 || cc.Breaker.MaxFailures != 5 {
		t.Errorf("ClientConfig() = %+v", cc)
	}
}

func TestFallbackFunc(t *testing.T) {
	t.Setenv("SUBNET_AGENT_API_KEY", "sk-from-env")
	cfg := DefaultConfig()

	got, err := cfg.FallbackFunc()(context.Background())
	if err != nil {
		t.Fatalf("fallback error = %v", err)
	}
	if got != "sk-from-env" {
		t.Errorf("fallback = %q, want sk-from-env", got)
	}

	cfg.Credentials.Fallback = ""
	if cfg.FallbackFunc() != nil {
		t.Error("FallbackFunc() should be nil without a fallback")
	}
}
