package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/subnetconsole/agentops/credential"
	"github.com/subnetconsole/agentops/observe"
	"github.com/subnetconsole/agentops/resilience"
)

// API paths relative to the base URL.
const (
	HealthPath   = "/api/v1/health"
	ValidatePath = "/api/v1/auth/validate"
)

// DefaultAPIKeyHeader carries the API key on every request.
const DefaultAPIKeyHeader = "X-API-Key"

const maxBody = 4 << 10

// Config configures a Client.
type Config struct {
	// BaseURL is the agent root, e.g. "http://127.0.0.1:8080".
	BaseURL string

	// APIKeyHeader defaults to DefaultAPIKeyHeader.
	APIKeyHeader string

	// Timeout bounds each attempt. Default: 10s
	Timeout time.Duration

	Retry   resilience.RetryConfig
	Breaker resilience.CircuitBreakerConfig
}

// Validation is the agent's verdict on a candidate key.
type Validation struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// Client talks to one agent.
type Client struct {
	baseURL *url.URL
	header  string
	http    *http.Client
	exec    *resilience.Executor
	mw      *observe.Middleware
	logger  observe.Logger
	now     func() time.Time

	mu     sync.RWMutex
	apiKey string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithMiddleware instruments every call.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(c *Client) { c.mw = mw }
}

// WithLogger sets the logger used for retry and breaker events.
func WithLogger(l observe.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithExecutor replaces the executor built from Config.
func WithExecutor(e *resilience.Executor) Option {
	return func(c *Client) { c.exec = e }
}

// WithClock overrides the time source used for local expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a client for cfg.BaseURL.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, cfg.BaseURL)
	}

	c := &Client{
		baseURL: u,
		header:  cfg.APIKeyHeader,
		http:    http.DefaultClient,
		logger:  observe.NopLogger(),
		now:     time.Now,
	}
	if c.header == "" {
		c.header = DefaultAPIKeyHeader
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.exec == nil {
		c.exec = c.defaultExecutor(cfg)
	}
	return c, nil
}

func (c *Client) defaultExecutor(cfg Config) *resilience.Executor {
	retry := cfg.Retry
	if retry.RetryIf == nil {
		retry.RetryIf = Retryable
	}
	if retry.OnRetry == nil {
		retry.OnRetry = func(attempt int, err error, delay time.Duration) {
			c.logger.Debug(context.Background(), "retrying agent call",
				observe.F("attempt", attempt),
				observe.F("delay", delay.String()),
				observe.Err(err),
			)
		}
	}

	breaker := cfg.Breaker
	if breaker.IsFailure == nil {
		breaker.IsFailure = Retryable
	}
	if breaker.OnStateChange == nil {
		breaker.OnStateChange = func(from, to resilience.State) {
			c.logger.Warn(context.Background(), "agent circuit state changed",
				observe.F("from", from.String()),
				observe.F("to", to.String()),
			)
		}
	}

	return resilience.NewExecutor(
		resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(breaker)),
		resilience.WithRetry(resilience.NewRetry(retry)),
		resilience.WithTimeout(cfg.Timeout),
	)
}

// BaseURL returns the agent root URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// SetAPIKey replaces the key sent with health probes.
func (c *Client) SetAPIKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiKey = key
}

// APIKey returns the key sent with health probes.
func (c *Client) APIKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey
}

// HealthCheck probes the agent. A 2xx response is healthy; 401 and 403 are
// auth errors.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.call(ctx, "health", func(ctx context.Context) error {
		req, err := c.newRequest(ctx, http.MethodGet, HealthPath, c.APIKey())
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return &Error{Op: "health", Message: MsgConnectFailed, Err: err}
		}
		defer drain(resp)

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		return statusError("health", resp)
	})
}

// ValidateAPIKey asks the agent whether key is acceptable. A rejection is a
// Validation with Valid false, not an error. Token-shaped keys that have
// already expired are refused locally with an auth error.
func (c *Client) ValidateAPIKey(ctx context.Context, key string) (Validation, error) {
	key = strings.TrimSpace(key)
	if info := credential.Inspect(key); info.Expired(c.now()) {
		return Validation{}, &Error{Op: "validate", Message: MsgKeyExpired, Auth: true}
	}

	var v Validation
	err := c.call(ctx, "validate", func(ctx context.Context) error {
		req, err := c.newRequest(ctx, http.MethodPost, ValidatePath, key)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return &Error{Op: "validate", Message: MsgConnectFailed, Err: err}
		}
		defer drain(resp)

		switch {
		case resp.StatusCode == http.StatusOK:
			var body Validation
			if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&body); err != nil {
				return &Error{Op: "validate", StatusCode: resp.StatusCode, Message: "malformed validation response", Err: err}
			}
			v = body
			return nil
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			v = Validation{Valid: false, Message: readMessage(resp, MsgInvalidKey)}
			return nil
		default:
			return statusError("validate", resp)
		}
	})
	if err != nil {
		return Validation{}, err
	}
	return v, nil
}

func (c *Client) call(ctx context.Context, op string, fn func(context.Context) error) error {
	run := func(ctx context.Context) error {
		return c.exec.Execute(ctx, fn)
	}
	if c.mw != nil {
		run = c.mw.Wrap(observe.CallMeta{Op: op, Target: c.baseURL.String()}, run)
	}

	err := run(ctx)
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Op: op, Message: MsgConnectFailed, Err: err}
}

func (c *Client) newRequest(ctx context.Context, method, path, key string) (*http.Request, error) {
	u := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "subnetctl")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if key != "" {
		req.Header.Set(c.header, key)
	}
	return req, nil
}

func statusError(op string, resp *http.Response) error {
	auth := resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden
	fallback := fmt.Sprintf("Subnet Agent API returned %d", resp.StatusCode)
	if auth {
		fallback = MsgInvalidKey
	}
	return &Error{
		Op:         op,
		StatusCode: resp.StatusCode,
		Message:    readMessage(resp, fallback),
		Auth:       auth,
	}
}

// readMessage extracts "message" or "error" from a JSON body, or uses the
// trimmed text body.
func readMessage(resp *http.Response, fallback string) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil || len(data) == 0 {
		return fallback
	}
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
		return fallback
	}
	if text := strings.TrimSpace(string(data)); text != "" {
		return text
	}
	return fallback
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
	_ = resp.Body.Close()
}
