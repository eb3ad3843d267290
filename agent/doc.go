// Package agent is the HTTP client for the Subnet Agent node-management API.
//
// Only the two endpoints the console needs for its session are covered: the
// health probe and API key validation. Calls run through a resilience
// executor (circuit breaker, retry, per-attempt timeout) and, when
// configured, an observe.Middleware.
//
// Failures are returned as *Error. IsAuthError reports whether the agent
// rejected the credential, which callers must treat differently from a
// connectivity problem.
package agent
