package exporters

import (
	"bytes"
	"context"
	"errors"
	"testing"

	promclient "github.com/prometheus/client_golang/prometheus"
)

func TestExporter_InvalidName(t *testing.T) {
	_, err := NewTracingExporter(context.Background(), "jaeger")
	if !errors.Is(err, ErrUnknownExporter) {
		t.Fatalf("NewTracingExporter(jaeger) error = %v, want ErrUnknownExporter", err)
	}
}

func TestExporter_StdoutTracing(t *testing.T) {
	var buf bytes.Buffer
	exp, err := NewTracingExporter(context.Background(), "stdout", WithWriter(&buf))
	if err != nil {
		t.Fatalf("failed to create stdout tracing exporter: %v", err)
	}
	if exp == nil {
		t.Fatal("expected non-nil exporter")
	}
}

func TestExporter_StdoutMetrics(t *testing.T) {
	var buf bytes.Buffer
	reader, err := NewMetricsReader(context.Background(), "stdout", WithWriter(&buf))
	if err != nil {
		t.Fatalf("failed to create stdout metrics reader: %v", err)
	}
	if reader == nil {
		t.Fatal("expected non-nil reader")
	}
}

func TestExporter_OtlpMissingEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "")

	if _, err := NewTracingExporter(context.Background(), "otlp"); !errors.Is(err, ErrMissingEndpoint) {
		t.Errorf("NewTracingExporter(otlp) error = %v, want ErrMissingEndpoint", err)
	}
	if _, err := NewMetricsReader(context.Background(), "otlp"); !errors.Is(err, ErrMissingEndpoint) {
		t.Errorf("NewMetricsReader(otlp) error = %v, want ErrMissingEndpoint", err)
	}
}

func TestExporter_OtlpWithEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4317")

	exp, err := NewTracingExporter(context.Background(), "otlp")
	if err != nil {
		t.Fatalf("failed to create OTLP exporter with endpoint: %v", err)
	}
	if exp == nil {
		t.Fatal("expected non-nil exporter")
	}
}

func TestExporter_PrometheusUsesRegisterer(t *testing.T) {
	reg := promclient.NewRegistry()
	reader, err := NewMetricsReader(context.Background(), "prometheus", WithRegisterer(reg))
	if err != nil {
		t.Fatalf("failed to create Prometheus reader: %v", err)
	}
	if reader == nil {
		t.Fatal("expected non-nil reader")
	}
	if _, err := reg.Gather(); err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
}

func TestExporter_NoneReturnsDiscarding(t *testing.T) {
	if _, err := NewTracingExporter(context.Background(), "none"); err != nil {
		t.Fatalf("failed to create none exporter: %v", err)
	}
	if _, err := NewMetricsReader(context.Background(), ""); err != nil {
		t.Fatalf("failed to create none metrics reader: %v", err)
	}
}

func TestExporter_MetricsInvalidName(t *testing.T) {
	_, err := NewMetricsReader(context.Background(), "badvalue")
	if !errors.Is(err, ErrUnknownExporter) {
		t.Fatalf("NewMetricsReader(badvalue) error = %v, want ErrUnknownExporter", err)
	}
}
