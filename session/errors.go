package session

import "errors"

var (
	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("session: monitor already started")

	// ErrStopped is returned by operations on a stopped monitor.
	ErrStopped = errors.New("session: monitor stopped")

	// ErrCheckInFlight is returned when a check is requested while another
	// operation holds the monitor.
	ErrCheckInFlight = errors.New("session: check already in flight")

	// ErrEmptyKey is returned by SaveKey for a blank candidate.
	ErrEmptyKey = errors.New("session: api key is empty")

	// ErrKeyRejected is returned by SaveKey when the agent refuses the key.
	ErrKeyRejected = errors.New("session: api key rejected")

	// ErrNoClient and ErrNoStore report missing Config collaborators.
	ErrNoClient = errors.New("session: client is required")
	ErrNoStore  = errors.New("session: store is required")
)
