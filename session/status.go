package session

import "time"

// Status is the session health.
type Status string

const (
	StatusChecking    Status = "checking"
	StatusHealthy     Status = "healthy"
	StatusUnhealthy   Status = "unhealthy"
	StatusNeedsAPIKey Status = "needs-api-key"
)

// Statuses lists every status in display order.
func Statuses() []Status {
	return []Status{StatusChecking, StatusHealthy, StatusUnhealthy, StatusNeedsAPIKey}
}

func (s Status) String() string { return string(s) }

// Snapshot is a consistent copy of the monitor state.
type Snapshot struct {
	Status Status

	// Error describes the latest failure. Empty means none; it is only set
	// while Status is unhealthy or needs-api-key.
	Error string

	// APIKey is the persisted or saved key. It does not include the
	// fallback credential.
	APIKey string

	// PendingKey is staged input that has not been validated.
	PendingKey string

	// CheckedAt is when the last check or validation completed.
	CheckedAt time.Time
}
