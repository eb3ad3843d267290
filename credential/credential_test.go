package credential

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signed(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return token
}

func TestInspect_Opaque(t *testing.T) {
	tests := []string{
		"sk_live_abc123",
		"",
		"a.b",
		"not.a.jwt",
	}
	for _, key := range tests {
		if got := Inspect(key); got.Kind != KindOpaque {
			t.Errorf("Inspect(%q).Kind = %v, want opaque", key, got.Kind)
		}
	}
}

func TestInspect_Token(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	key := signed(t, jwt.RegisteredClaims{
		Subject:   "node-operator",
		ExpiresAt: jwt.NewNumericDate(exp),
	})

	info := Inspect(key)
	if info.Kind != KindToken {
		t.Fatalf("Kind = %v, want token", info.Kind)
	}
	if info.Subject != "node-operator" {
		t.Errorf("Subject = %q, want node-operator", info.Subject)
	}
	if !info.ExpiresAt.Equal(exp) {
		t.Errorf("ExpiresAt = %v, want %v", info.ExpiresAt, exp)
	}
	if info.Expired(time.Now()) {
		t.Error("token should not be expired yet")
	}
	if !info.Expired(exp.Add(time.Second)) {
		t.Error("token should be expired after exp")
	}
}

func TestInspect_TokenWithoutExpiry(t *testing.T) {
	info := Inspect(signed(t, jwt.RegisteredClaims{Subject: "x"}))
	if info.Expired(time.Now().Add(100 * 365 * 24 * time.Hour)) {
		t.Error("token without exp should never expire")
	}
}

func TestMask(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"abc", "***"},
		{"12345678", "********"},
		{"sk_live_abcdef1234", "********1234"},
	}
	for _, tt := range tests {
		if got := Mask(tt.in); got != tt.want {
			t.Errorf("Mask(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestKind_String(t *testing.T) {
	if KindOpaque.String() != "opaque" || KindToken.String() != "token" || Kind(9).String() != "unknown" {
		t.Error("unexpected Kind.String() output")
	}
}
