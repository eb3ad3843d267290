package agenttest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/subnetconsole/agentops/agent"
)

func validate(t *testing.T, s *Server, key string) (int, agent.Validation) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, agent.ValidatePath, nil)
	if key != "" {
		req.Header.Set(agent.DefaultAPIKeyHeader, key)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var v agent.Validation
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rec.Code, v
}

func TestServer_Validate(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New(WithClock(func() time.Time { return now }))

	good := s.AddKey("console")
	s.RegisterKey("old", "sk-old", "old", now.Add(-time.Hour))
	s.RegisterKey("gone", "sk-gone", "gone", time.Time{})
	s.RevokeKey("gone")

	tests := []struct {
		name      string
		key       string
		wantCode  int
		wantValid bool
		wantMsg   string
	}{
		{name: "registered", key: good, wantCode: http.StatusOK, wantValid: true},
		{name: "unknown", key: "sk-nope", wantCode: http.StatusUnauthorized, wantMsg: "Invalid API key"},
		{name: "missing", wantCode: http.StatusUnauthorized, wantMsg: "API key is required"},
		{name: "expired", key: "sk-old", wantCode: http.StatusUnauthorized, wantMsg: "API key expired"},
		{name: "revoked", key: "sk-gone", wantCode: http.StatusUnauthorized, wantMsg: "API key revoked"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, v := validate(t, s, tt.key)
			if code != tt.wantCode || v.Valid != tt.wantValid {
				t.Fatalf("got %d valid=%v, want %d valid=%v", code, v.Valid, tt.wantCode, tt.wantValid)
			}
			if tt.wantMsg != "" && v.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", v.Message, tt.wantMsg)
			}
		})
	}
	if s.ValidateCalls() != int64(len(tests)) {
		t.Errorf("ValidateCalls() = %d, want %d", s.ValidateCalls(), len(tests))
	}
}

func TestServer_TokenKeys(t *testing.T) {
	s := New(WithTokenSecret([]byte("test-secret")))
	token, err := s.IssueToken("operator", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if code, v := validate(t, s, token); code != http.StatusOK || !v.Valid {
		t.Errorf("token validation = %d %+v", code, v)
	}

	other := New(WithTokenSecret([]byte("other-secret")))
	foreign, _ := other.IssueToken("operator", time.Hour)
	if code, _ := validate(t, s, foreign); code != http.StatusUnauthorized {
		t.Errorf("foreign token = %d, want 401", code)
	}
}

func TestServer_Toggles(t *testing.T) {
	s := New()
	key := s.AddKey("console")

	probe := func() int {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, agent.HealthPath, nil))
		return rec.Code
	}

	if code := probe(); code != http.StatusOK {
		t.Errorf("health = %d, want 200", code)
	}

	s.SetProbeAuthFailure(true)
	if code := probe(); code != http.StatusUnauthorized {
		t.Errorf("health with auth failure = %d, want 401", code)
	}
	s.SetProbeAuthFailure(false)

	s.SetDown(true)
	if code := probe(); code != http.StatusServiceUnavailable {
		t.Errorf("health while down = %d, want 503", code)
	}
	if code, _ := validate(t, s, key); code != http.StatusServiceUnavailable {
		t.Errorf("validate while down = %d, want 503", code)
	}
	s.SetDown(false)

	s.SetValidateStatus(http.StatusBadGateway)
	if code, _ := validate(t, s, key); code != http.StatusBadGateway {
		t.Errorf("forced validate = %d, want 502", code)
	}

	if s.HealthCalls() != 3 {
		t.Errorf("HealthCalls() = %d, want 3", s.HealthCalls())
	}
}
