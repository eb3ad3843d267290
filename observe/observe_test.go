package observe

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	promclient "github.com/prometheus/client_golang/prometheus"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{name: "minimal", cfg: Config{ServiceName: "subnetctl"}},
		{name: "missing name", cfg: Config{}, want: ErrMissingServiceName},
		{
			name: "bad sample",
			cfg:  Config{ServiceName: "s", Tracing: TracingConfig{Enabled: true, Exporter: "none", SamplePct: 2}},
			want: ErrInvalidSamplePct,
		},
		{
			name: "bad tracing exporter",
			cfg:  Config{ServiceName: "s", Tracing: TracingConfig{Enabled: true, Exporter: "zipkin"}},
			want: ErrInvalidTracingExporter,
		},
		{
			name: "bad metrics exporter",
			cfg:  Config{ServiceName: "s", Metrics: MetricsConfig{Enabled: true, Exporter: "statsd"}},
			want: ErrInvalidMetricsExporter,
		},
		{
			name: "bad level",
			cfg:  Config{ServiceName: "s", Logging: LoggingConfig{Enabled: true, Level: "trace"}},
			want: ErrInvalidLogLevel,
		},
		{
			name: "bad format",
			cfg:  Config{ServiceName: "s", Logging: LoggingConfig{Enabled: true, Format: "logfmt"}},
			want: ErrInvalidLogFormat,
		},
		{
			name: "disabled sections are not checked",
			cfg:  Config{ServiceName: "s", Tracing: TracingConfig{Exporter: "zipkin"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewObserver_Disabled(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{ServiceName: "subnetctl"})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	if obs.Tracer() == nil || obs.Meter() == nil || obs.Logger() == nil {
		t.Fatal("observer returned nil primitives")
	}
	if err := obs.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNewObserver_PrometheusAndLogging(t *testing.T) {
	reg := promclient.NewRegistry()
	var logs bytes.Buffer

	obs, err := NewObserver(context.Background(), Config{
		ServiceName: "subnetctl",
		Version:     "test",
		Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "prometheus", Registerer: reg},
		Logging:     LoggingConfig{Enabled: true, Level: "info", Output: &logs},
	})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	defer obs.Shutdown(context.Background())

	mw, err := MiddlewareFromObserver(obs, nil)
	if err != nil {
		t.Fatalf("MiddlewareFromObserver() error = %v", err)
	}
	_ = mw.Wrap(CallMeta{Op: "health"}, func(context.Context) error { return errors.New("down") })(context.Background())

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	var found bool
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "agent_call_total") {
			found = true
		}
	}
	if !found {
		t.Error("agent_call_total not exported to prometheus registry")
	}

	if !strings.Contains(logs.String(), `"service":"subnetctl"`) {
		t.Errorf("service field missing from logs: %s", logs.String())
	}
}
