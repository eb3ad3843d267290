// Package agenttest provides an in-process Subnet Agent for tests and local
// development.
//
// Server implements the health and key validation endpoints on top of the
// auth package: keys are stored hashed, can be revoked or expire, and signed
// token keys are accepted when issued by the server. Toggles simulate an
// outage or a probe that rejects the credential.
package agenttest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/subnetconsole/agentops/agent"
	"github.com/subnetconsole/agentops/auth"
)

// Server is a simulated agent. It is safe for concurrent use.
type Server struct {
	header   string
	keys     *auth.MemoryKeyStore
	tokens   *auth.TokenIssuer
	verifier *auth.KeyVerifier
	handler  http.Handler

	mu             sync.Mutex
	down           bool
	probeAuthFail  bool
	validateStatus int
	latency        time.Duration

	healthCalls   atomic.Int64
	validateCalls atomic.Int64
}

// Option configures a Server.
type Option func(*serverOptions)

type serverOptions struct {
	header string
	secret []byte
	now    func() time.Time
}

// WithHeader sets the API key header. Default: agent.DefaultAPIKeyHeader.
func WithHeader(h string) Option {
	return func(o *serverOptions) { o.header = h }
}

// WithTokenSecret sets the HMAC secret for token keys.
func WithTokenSecret(secret []byte) Option {
	return func(o *serverOptions) { o.secret = secret }
}

// WithClock overrides the time source used for key expiry.
func WithClock(now func() time.Time) Option {
	return func(o *serverOptions) { o.now = now }
}

// New creates a Server with no registered keys.
func New(opts ...Option) *Server {
	o := serverOptions{header: agent.DefaultAPIKeyHeader, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if len(o.secret) == 0 {
		o.secret = []byte(uuid.NewString())
	}

	s := &Server{
		header: o.header,
		keys:   auth.NewMemoryKeyStore(),
		tokens: auth.NewTokenIssuer(o.secret, "subnet-agent"),
	}
	s.verifier = auth.NewKeyVerifier(s.keys, auth.WithTokens(s.tokens), auth.WithClock(o.now))

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+agent.HealthPath, s.health)
	mux.Handle("POST "+agent.ValidatePath, s.available(auth.RequireKey(s.verifier, s.header, rejectKey)(http.HandlerFunc(s.validate))))
	s.handler = mux
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	latency := s.latency
	s.mu.Unlock()
	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-r.Context().Done():
			return
		}
	}
	s.handler.ServeHTTP(w, r)
}

// Start serves s on a loopback listener for the duration of tb and returns
// the base URL.
func (s *Server) Start(tb testing.TB) string {
	tb.Helper()
	ts := httptest.NewServer(s)
	tb.Cleanup(ts.Close)
	return ts.URL
}

// AddKey registers a fresh random key and returns it.
func (s *Server) AddKey(label string) string {
	key := "sk-" + uuid.NewString()
	s.keys.Register(uuid.NewString(), key, label, time.Time{})
	return key
}

// RegisterKey registers key. A zero expiresAt never expires.
func (s *Server) RegisterKey(id, key, label string, expiresAt time.Time) {
	s.keys.Register(id, key, label, expiresAt)
}

// RevokeKey revokes the key registered under id.
func (s *Server) RevokeKey(id string) bool {
	return s.keys.Revoke(id)
}

// IssueToken returns a signed token key for subject.
func (s *Server) IssueToken(subject string, ttl time.Duration) (string, error) {
	return s.tokens.Issue(subject, ttl)
}

// SetDown makes every endpoint answer 503.
func (s *Server) SetDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}

// SetProbeAuthFailure makes the health endpoint answer 401.
func (s *Server) SetProbeAuthFailure(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.probeAuthFail = fail
}

// SetValidateStatus forces the validation endpoint to answer code. Zero
// restores normal behavior.
func (s *Server) SetValidateStatus(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validateStatus = code
}

// SetLatency delays every response.
func (s *Server) SetLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = d
}

// HealthCalls returns the number of health requests served.
func (s *Server) HealthCalls() int64 { return s.healthCalls.Load() }

// ValidateCalls returns the number of validation requests served.
func (s *Server) ValidateCalls() int64 { return s.validateCalls.Load() }

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.healthCalls.Add(1)

	s.mu.Lock()
	down, authFail := s.down, s.probeAuthFail
	s.mu.Unlock()

	switch {
	case down:
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "agent unavailable"})
	case authFail:
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": agent.MsgInvalidKey})
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) available(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.validateCalls.Add(1)

		s.mu.Lock()
		down, forced := s.down, s.validateStatus
		s.mu.Unlock()

		switch {
		case down:
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "agent unavailable"})
		case forced != 0:
			writeJSON(w, forced, map[string]string{"message": http.StatusText(forced)})
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func (s *Server) validate(w http.ResponseWriter, r *http.Request) {
	info := auth.KeyInfoFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":   true,
		"message": "API key accepted",
		"key_id":  info.ID,
	})
}

func rejectKey(w http.ResponseWriter, _ *http.Request, err error) {
	if !auth.IsRejection(err) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "key lookup failed"})
		return
	}
	writeJSON(w, http.StatusUnauthorized, agent.Validation{Valid: false, Message: rejectionMessage(err)})
}

func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingKey):
		return "API key is required"
	case errors.Is(err, auth.ErrKeyExpired):
		return "API key expired"
	case errors.Is(err, auth.ErrKeyRevoked):
		return "API key revoked"
	case errors.Is(err, auth.ErrTokenMalformed):
		return "Malformed API key"
	default:
		return "Invalid API key"
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
