package auth

import (
	"context"
	"net/http"
)

type contextKey int

const keyInfoKey contextKey = iota

// WithKeyInfo returns a new context carrying the verified key.
func WithKeyInfo(ctx context.Context, info *KeyInfo) context.Context {
	return context.WithValue(ctx, keyInfoKey, info)
}

// KeyInfoFromContext returns the verified key, or nil.
func KeyInfoFromContext(ctx context.Context) *KeyInfo {
	info, _ := ctx.Value(keyInfoKey).(*KeyInfo)
	return info
}

// RejectFunc writes the response for a rejected or failed verification.
type RejectFunc func(w http.ResponseWriter, r *http.Request, err error)

// RequireKey is HTTP middleware that verifies the key found in header and
// stores the result in the request context. Requests without a valid key
// are passed to reject.
//
// Usage:
//
//	mux.Handle("/api/v1/nodes", auth.RequireKey(verifier, "X-API-Key", reject)(nodes))
func RequireKey(v Verifier, header string, reject RejectFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info, err := v.Verify(r.Context(), r.Header.Get(header))
			if err != nil {
				reject(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithKeyInfo(r.Context(), info)))
		})
	}
}
