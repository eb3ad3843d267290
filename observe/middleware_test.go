package observe

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

var errAuth = errors.New("rejected")

func classifyTest(err error) string {
	if errors.Is(err, errAuth) {
		return OutcomeAuthError
	}
	return OutcomeError
}

type harness struct {
	spans  *tracetest.SpanRecorder
	reader *sdkmetric.ManualReader
	logs   *bytes.Buffer
	mw     *Middleware
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	var logs bytes.Buffer
	logger, err := NewLogger("debug", "json", &logs)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	return &harness{
		spans:  spans,
		reader: reader,
		logs:   &logs,
		mw:     NewMiddleware(NewTracer(tp.Tracer("test")), metrics, logger, classifyTest),
	}
}

func (h *harness) collect(t *testing.T) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := h.reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumInt64(m *metricdata.Metrics) int64 {
	if m == nil {
		return 0
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		return 0
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMiddleware_SuccessPath(t *testing.T) {
	h := newHarness(t)
	meta := CallMeta{Op: "health", Target: "http://agent.local"}

	err := h.mw.Wrap(meta, func(context.Context) error { return nil })(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	spans := h.spans.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "agent.call.health" {
		t.Errorf("span name = %q, want agent.call.health", spans[0].Name())
	}
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("span status = %v, want Ok", spans[0].Status().Code)
	}

	rm := h.collect(t)
	if got := sumInt64(findMetric(rm, "agent.call.total")); got != 1 {
		t.Errorf("agent.call.total = %d, want 1", got)
	}
	if got := sumInt64(findMetric(rm, "agent.call.errors")); got != 0 {
		t.Errorf("agent.call.errors = %d, want 0", got)
	}
	if findMetric(rm, "agent.call.duration_ms") == nil {
		t.Error("agent.call.duration_ms not recorded")
	}
	if !strings.Contains(h.logs.String(), "agent call completed") {
		t.Errorf("missing debug log: %s", h.logs.String())
	}
}

func TestMiddleware_ErrorPath(t *testing.T) {
	h := newHarness(t)
	meta := CallMeta{Op: "validate"}

	err := h.mw.Wrap(meta, func(context.Context) error { return errAuth })(context.Background())
	if !errors.Is(err, errAuth) {
		t.Fatalf("error = %v, want errAuth", err)
	}

	spans := h.spans.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("span status = %v, want Error", spans[0].Status().Code)
	}

	rm := h.collect(t)
	errs := findMetric(rm, "agent.call.errors")
	if got := sumInt64(errs); got != 1 {
		t.Fatalf("agent.call.errors = %d, want 1", got)
	}
	dp := errs.Data.(metricdata.Sum[int64]).DataPoints[0]
	if v, ok := dp.Attributes.Value("auth_error"); !ok || !v.AsBool() {
		t.Errorf("auth_error attribute = %v, want true", v)
	}
	if !strings.Contains(h.logs.String(), `"outcome":"auth_error"`) {
		t.Errorf("missing outcome in log: %s", h.logs.String())
	}
}

func TestMiddleware_PropagatesSpanContext(t *testing.T) {
	h := newHarness(t)

	var sawSpan bool
	fn := func(ctx context.Context) error {
		sawSpan = trace.SpanFromContext(ctx).SpanContext().IsValid()
		return nil
	}
	if err := h.mw.Wrap(CallMeta{Op: "health"}, fn)(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !sawSpan {
		t.Error("wrapped call did not run inside a started span")
	}
}

func TestMiddleware_NilParts(t *testing.T) {
	mw := NewMiddleware(nil, nil, nil, nil)
	want := errors.New("down")
	if err := mw.Wrap(CallMeta{Op: "health"}, func(context.Context) error { return want })(context.Background()); err != want {
		t.Errorf("error = %v, want %v", err, want)
	}
}
