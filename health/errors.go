package health

import "errors"

var (
	// ErrCheckTimeout indicates a checker did not return before the deadline.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckerNotFound indicates no checker is registered under a name.
	ErrCheckerNotFound = errors.New("health: checker not found")
)
