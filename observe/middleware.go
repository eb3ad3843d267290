package observe

import (
	"context"
	"time"
)

// CallFunc is a single agent API call.
type CallFunc func(ctx context.Context) error

// Middleware wraps agent calls with tracing, metrics and logging.
type Middleware struct {
	tracer   Tracer
	metrics  Metrics
	logger   Logger
	classify Classifier
}

// NewMiddleware creates a middleware from its parts. A nil classifier
// reports every failure as OutcomeError.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger, classify Classifier) *Middleware {
	if logger == nil {
		logger = NopLogger()
	}
	if classify == nil {
		classify = func(error) string { return OutcomeError }
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger, classify: classify}
}

// MiddlewareFromObserver builds a Middleware from obs.
func MiddlewareFromObserver(obs Observer, classify Classifier) (*Middleware, error) {
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger(), classify), nil
}

// Wrap returns fn instrumented for meta.
func (m *Middleware) Wrap(meta CallMeta, fn CallFunc) CallFunc {
	return func(ctx context.Context) error {
		start := time.Now()

		spanCtx := ctx
		var end func(outcome string, err error)
		if m.tracer != nil {
			c, span := m.tracer.StartSpan(ctx, meta)
			spanCtx = c
			end = func(outcome string, err error) { m.tracer.EndSpan(span, outcome, err) }
		}

		err := fn(spanCtx)
		elapsed := time.Since(start)

		outcome := OutcomeOK
		if err != nil {
			outcome = m.classify(err)
		}

		if m.metrics != nil {
			m.metrics.RecordCall(spanCtx, meta, outcome, elapsed)
		}

		fields := []Field{
			F("op", meta.Op),
			F("outcome", outcome),
			F("duration_ms", elapsed.Milliseconds()),
		}
		if err != nil {
			m.logger.Warn(spanCtx, "agent call failed", append(fields, Err(err))...)
		} else {
			m.logger.Debug(spanCtx, "agent call completed", fields...)
		}

		if end != nil {
			end(outcome, err)
		}
		return err
	}
}
