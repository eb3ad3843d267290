package auth

import (
	"context"
	"strings"
	"time"
)

// Verifier decides whether an API key is acceptable.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: rejections are reported with the package sentinel errors (see
//   IsRejection); any other error is an internal failure.
type Verifier interface {
	Verify(ctx context.Context, key string) (*KeyInfo, error)
}

// KeyVerifier checks keys against a KeyStore and, optionally, a TokenIssuer.
type KeyVerifier struct {
	store  KeyStore
	tokens *TokenIssuer
	now    func() time.Time
}

// VerifierOption configures a KeyVerifier.
type VerifierOption func(*KeyVerifier)

// WithTokens makes the verifier accept tokens signed by issuer.
func WithTokens(issuer *TokenIssuer) VerifierOption {
	return func(v *KeyVerifier) {
		v.tokens = issuer
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) VerifierOption {
	return func(v *KeyVerifier) {
		v.now = now
	}
}

// NewKeyVerifier creates a verifier backed by store.
func NewKeyVerifier(store KeyStore, opts ...VerifierOption) *KeyVerifier {
	v := &KeyVerifier{store: store, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify validates key.
func (v *KeyVerifier) Verify(ctx context.Context, key string) (*KeyInfo, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrMissingKey
	}

	if v.tokens != nil && strings.Count(key, ".") == 2 {
		return v.tokens.Verify(key)
	}

	info, err := v.store.Lookup(ctx, HashKey(key))
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, ErrUnknownKey
	}
	if info.Revoked {
		return nil, ErrKeyRevoked
	}
	if info.Expired(v.now()) {
		return nil, ErrKeyExpired
	}
	return info, nil
}

var _ Verifier = (*KeyVerifier)(nil)
