package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome labels attached to call metrics.
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeAuthError = "auth_error"
)

// Classifier maps a call error to an outcome label. nil errors are always
// OutcomeOK and never reach the classifier.
type Classifier func(err error) string

// Metrics records agent call metrics.
type Metrics interface {
	RecordCall(ctx context.Context, meta CallMeta, outcome string, duration time.Duration)
}

type callMetrics struct {
	total    metric.Int64Counter
	errors   metric.Int64Counter
	duration metric.Float64Histogram
}

// NewMetrics creates the agent.call.* instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	total, err := meter.Int64Counter("agent.call.total",
		metric.WithDescription("Agent API calls"),
	)
	if err != nil {
		return nil, err
	}
	errs, err := meter.Int64Counter("agent.call.errors",
		metric.WithDescription("Failed agent API calls"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("agent.call.duration_ms",
		metric.WithDescription("Agent API call latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	return &callMetrics{total: total, errors: errs, duration: duration}, nil
}

func (m *callMetrics) RecordCall(ctx context.Context, meta CallMeta, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(meta.attributes()...)
	m.total.Add(ctx, 1, attrs)
	if outcome != OutcomeOK {
		m.errors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("agent.op", meta.Op),
			attribute.Bool("auth_error", outcome == OutcomeAuthError),
		))
	}
	m.duration.Record(ctx, float64(duration)/float64(time.Millisecond), attrs)
}

// StatusRecorder records session status transitions and exposes the current
// status as a gauge with one series per known status (1 for the current one,
// 0 otherwise).
type StatusRecorder struct {
	transitions metric.Int64Counter

	mu       sync.Mutex
	statuses []string
	current  string
}

// NewStatusRecorder registers session.transitions and session.status on meter.
func NewStatusRecorder(meter metric.Meter, statuses ...string) (*StatusRecorder, error) {
	transitions, err := meter.Int64Counter("session.transitions",
		metric.WithDescription("Session status transitions"),
	)
	if err != nil {
		return nil, err
	}

	r := &StatusRecorder{transitions: transitions, statuses: statuses}

	_, err = meter.Int64ObservableGauge("session.status",
		metric.WithDescription("Current session status"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			for _, s := range r.statuses {
				var v int64
				if s == r.current {
					v = 1
				}
				o.Observe(v, metric.WithAttributes(attribute.String("status", s)))
			}
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// RecordTransition counts a from→to transition and updates the gauge.
func (r *StatusRecorder) RecordTransition(ctx context.Context, from, to string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.current = to
	r.mu.Unlock()

	r.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// Current returns the last recorded status.
func (r *StatusRecorder) Current() string {
	if r == nil {
		return ""
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}
