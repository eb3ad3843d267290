package auth

import "errors"

// Sentinel errors for key verification.
var (
	ErrMissingKey     = errors.New("auth: missing api key")
	ErrUnknownKey     = errors.New("auth: unknown api key")
	ErrKeyExpired     = errors.New("auth: api key expired")
	ErrKeyRevoked     = errors.New("auth: api key revoked")
	ErrTokenMalformed = errors.New("auth: token malformed")
)

// IsRejection reports whether err is a verdict on the key rather than an
// internal failure.
func IsRejection(err error) bool {
	return errors.Is(err, ErrMissingKey) ||
		errors.Is(err, ErrUnknownKey) ||
		errors.Is(err, ErrKeyExpired) ||
		errors.Is(err, ErrKeyRevoked) ||
		errors.Is(err, ErrTokenMalformed)
}
