package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// CallMeta describes one call to the agent API.
type CallMeta struct {
	// Op is the operation name, e.g. "health" or "validate".
	Op string

	// Target is the agent base URL.
	Target string
}

// SpanName returns "agent.call.<op>".
func (m CallMeta) SpanName() string {
	return "agent.call." + m.Op
}

func (m CallMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String("agent.op", m.Op)}
	if m.Target != "" {
		attrs = append(attrs, attribute.String("agent.target", m.Target))
	}
	return attrs
}

// Tracer creates spans for agent calls.
type Tracer interface {
	StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span)
	EndSpan(span trace.Span, outcome string, err error)
}

type tracer struct {
	t trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracer{t: t}
}

func (t *tracer) StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span) {
	return t.t.Start(ctx, meta.SpanName(),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(meta.attributes()...),
	)
}

func (t *tracer) EndSpan(span trace.Span, outcome string, err error) {
	span.SetAttributes(attribute.String("agent.outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
