package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/subnetconsole/agentops/observe"
	"github.com/subnetconsole/agentops/resilience"
)

// ErrInvalidBaseURL indicates a base URL that is not absolute http(s).
var ErrInvalidBaseURL = errors.New("agent: invalid base URL")

// Default user-facing messages.
const (
	MsgConnectFailed = "Failed to connect to Subnet Agent API"
	MsgInvalidKey    = "Invalid or expired API key"
	MsgKeyExpired    = "API key expired"
)

// Error is a failed agent call.
type Error struct {
	// Op is "health" or "validate".
	Op string

	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	// Message is suitable for display.
	Message string

	// Auth marks a rejected or missing credential.
	Auth bool

	Err error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("agent %s: %d: %s", e.Op, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("agent %s: %s: %v", e.Op, e.Message, e.Err)
	default:
		return fmt.Sprintf("agent %s: %s", e.Op, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsAuthError reports whether err carries the authentication marker.
func IsAuthError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Auth
}

// Message returns the display message carried by err, or fallback when err
// has none.
func Message(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
		return fallback
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}

// Retryable reports whether another attempt could succeed: transport
// failures, attempt timeouts and 5xx responses. Auth errors, other 4xx
// responses, an open circuit and caller cancellation are final.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, resilience.ErrTimeout) {
		return true
	}
	if errors.Is(err, resilience.ErrCircuitOpen) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	if e.Auth {
		return false
	}
	return e.StatusCode == 0 || e.StatusCode >= http.StatusInternalServerError
}

// Classify maps err to an observe outcome label.
func Classify(err error) string {
	if IsAuthError(err) {
		return observe.OutcomeAuthError
	}
	return observe.OutcomeError
}
