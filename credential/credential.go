package credential

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind describes the shape of an API key.
type Kind int

const (
	// KindOpaque is a plain random key.
	KindOpaque Kind = iota
	// KindToken is a JWT-formatted key.
	KindToken
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindOpaque:
		return "opaque"
	case KindToken:
		return "token"
	default:
		return "unknown"
	}
}

// Info is what can be learned about a key without contacting the agent.
type Info struct {
	Kind Kind

	// Subject is the token's sub claim, if any.
	Subject string

	// ExpiresAt is the token's exp claim; zero means no expiry.
	ExpiresAt time.Time
}

// Expired reports whether the key carried an expiry that is before now.
func (i Info) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

var parser = jwt.NewParser()

// Inspect classifies key. Strings that do not parse as a JWT are opaque.
func Inspect(key string) Info {
	key = strings.TrimSpace(key)
	if strings.Count(key, ".") != 2 {
		return Info{Kind: KindOpaque}
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := parser.ParseUnverified(key, &claims); err != nil {
		return Info{Kind: KindOpaque}
	}

	info := Info{Kind: KindToken, Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info
}

// Mask returns a display form of key that keeps only the last four
// characters.
func Mask(key string) string {
	if key == "" {
		return ""
	}
	const visible = 4
	if len(key) <= visible*2 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", 8) + key[len(key)-visible:]
}
