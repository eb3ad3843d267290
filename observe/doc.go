// Package observe provides logging, tracing and metrics for the agent
// session toolkit.
//
// Logger is a small structured logging interface backed by zap. Tracing and
// metrics use OpenTelemetry; NewObserver wires providers and exporters from
// Config, and Middleware instruments individual agent API calls. Session
// status transitions are recorded by StatusRecorder.
package observe
