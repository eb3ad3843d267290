package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/subnetconsole/agentops/agent"
	"github.com/subnetconsole/agentops/keystore"
)

var errNetwork = errors.New("dial tcp 127.0.0.1:8080: connect: connection refused")

// fakeClient is a scripted agent client.
type fakeClient struct {
	mu       sync.Mutex
	probe    func(ctx context.Context) error
	validate func(ctx context.Context, key string) (agent.Validation, error)
	apiKey   string

	probes    atomic.Int64
	validates atomic.Int64
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		probe: func(context.Context) error { return nil },
		validate: func(context.Context, string) (agent.Validation, error) {
			return agent.Validation{Valid: true}, nil
		},
	}
}

func (f *fakeClient) HealthCheck(ctx context.Context) error {
	f.probes.Add(1)
	f.mu.Lock()
	probe := f.probe
	f.mu.Unlock()
	return probe(ctx)
}

func (f *fakeClient) ValidateAPIKey(ctx context.Context, key string) (agent.Validation, error) {
	f.validates.Add(1)
	f.mu.Lock()
	validate := f.validate
	f.mu.Unlock()
	return validate(ctx, key)
}

func (f *fakeClient) SetAPIKey(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiKey = key
}

func (f *fakeClient) APIKey() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.apiKey
}

func (f *fakeClient) setProbe(fn func(context.Context) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probe = fn
}

func (f *fakeClient) setValidate(fn func(context.Context, string) (agent.Validation, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validate = fn
}

func verdict(valid bool, msg string) func(context.Context, string) (agent.Validation, error) {
	return func(context.Context, string) (agent.Validation, error) {
		return agent.Validation{Valid: valid, Message: msg}, nil
	}
}

func failing(err error) func(context.Context, string) (agent.Validation, error) {
	return func(context.Context, string) (agent.Validation, error) {
		return agent.Validation{}, err
	}
}

// failingStore wraps a store and fails writes.
type failingStore struct {
	*keystore.MemoryStore
}

func (failingStore) Set(context.Context, string, string) error {
	return errors.New("disk full")
}

type fixture struct {
	client *fakeClient
	store  *keystore.MemoryStore
	mon    *Monitor

	mu      sync.Mutex
	history []Snapshot
}

type fixtureOption func(*Config)

func withFallback(key string) fixtureOption {
	return func(c *Config) {
		c.Fallback = func(context.Context) (string, error) { return key, nil }
	}
}

func withInterval(d time.Duration) fixtureOption {
	return func(c *Config) { c.Interval = d }
}

func withCheckTimeout(d time.Duration) fixtureOption {
	return func(c *Config) { c.CheckTimeout = d }
}

// hang blocks until ctx ends.
func hang(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func hangValidate(ctx context.Context, _ string) (agent.Validation, error) {
	return agent.Validation{}, hang(ctx)
}

func newFixture(t *testing.T, storedKey string, opts ...fixtureOption) *fixture {
	t.Helper()
	f := &fixture{client: newFakeClient(), store: keystore.NewMemoryStore()}
	if storedKey != "" {
		if err := f.store.Set(context.Background(), keystore.AgentAPIKey, storedKey); err != nil {
			t.Fatal(err)
		}
	}

	cfg := Config{
		Client:   f.client,
		Store:    f.store,
		Interval: time.Hour,
		OnChange: func(_, to Snapshot) {
			f.mu.Lock()
			f.history = append(f.history, to)
			f.mu.Unlock()
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	mon, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	f.mon = mon
	t.Cleanup(mon.Stop)
	return f
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	if err := f.mon.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
}

func (f *fixture) statuses() []Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Status, 0, len(f.history))
	for _, s := range f.history {
		out = append(out, s.Status)
	}
	return out
}

func (f *fixture) stored(t *testing.T) (string, bool) {
	t.Helper()
	v, ok, err := f.store.Get(context.Background(), keystore.AgentAPIKey)
	if err != nil {
		t.Fatal(err)
	}
	return v, ok
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(2 * time.Millisecond)
	}
}
