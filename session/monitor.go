package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/subnetconsole/agentops/agent"
	"github.com/subnetconsole/agentops/credential"
	"github.com/subnetconsole/agentops/keystore"
	"github.com/subnetconsole/agentops/observe"
)

// Fallback messages used when a failure carries none.
const (
	MsgConnectFailed    = agent.MsgConnectFailed
	MsgInvalidOrExpired = agent.MsgInvalidKey
	MsgInvalidKey       = "Invalid API key"
	MsgValidateFailed   = "Failed to validate API key"
)

// DefaultInterval is the time between periodic checks.
const DefaultInterval = 5 * time.Minute

// DefaultCheckTimeout bounds a single check or validation.
const DefaultCheckTimeout = 30 * time.Second

// Client is the subset of the agent API the monitor uses.
type Client interface {
	HealthCheck(ctx context.Context) error
	ValidateAPIKey(ctx context.Context, key string) (agent.Validation, error)
	SetAPIKey(key string)
}

// KeyStore persists the active key under keystore.AgentAPIKey.
type KeyStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Config configures a Monitor.
type Config struct {
	Client Client
	Store  KeyStore

	// Fallback supplies a credential when none is persisted, typically from
	// the environment. It is consulted on every check. Optional.
	Fallback func(ctx context.Context) (string, error)

	// Interval between periodic checks. Default: DefaultInterval
	Interval time.Duration

	// CheckTimeout bounds one check. Default: DefaultCheckTimeout
	CheckTimeout time.Duration

	Logger   observe.Logger
	Recorder *observe.StatusRecorder

	// OnChange is called after every change of status or error, outside the
	// monitor lock. It must not call Stop.
	OnChange func(from, to Snapshot)
}

// Monitor tracks the agent session. It is safe for concurrent use.
type Monitor struct {
	client   Client
	store    KeyStore
	fallback func(ctx context.Context) (string, error)
	interval time.Duration
	timeout  time.Duration
	logger   observe.Logger
	recorder *observe.StatusRecorder
	onChange func(from, to Snapshot)
	now      func() time.Time

	// sem serializes checks and key saves.
	sem *semaphore.Weighted

	mu          sync.RWMutex
	state       Snapshot
	settled     Status
	settledErr  string
	propagated  string
	propagateOK bool
	started     bool
	stopped     bool
	cancel      context.CancelFunc

	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a Monitor. The initial status is checking.
func New(cfg Config) (*Monitor, error) {
	if cfg.Client == nil {
		return nil, ErrNoClient
	}
	if cfg.Store == nil {
		return nil, ErrNoStore
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = DefaultCheckTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}

	return &Monitor{
		client:   cfg.Client,
		store:    cfg.Store,
		fallback: cfg.Fallback,
		interval: cfg.Interval,
		timeout:  cfg.CheckTimeout,
		logger:   cfg.Logger.With(observe.F("component", "session")),
		recorder: cfg.Recorder,
		onChange: cfg.OnChange,
		now:      time.Now,
		sem:      semaphore.NewWeighted(1),
		state:    Snapshot{Status: StatusChecking},
	}, nil
}

// Start loads the persisted key, runs the initial check and arms the
// periodic check. It returns once the initial check has settled.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	switch {
	case m.stopped:
		m.mu.Unlock()
		return ErrStopped
	case m.started:
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.started = true
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.cancel = cancel
	m.mu.Unlock()

	if err := m.sem.Acquire(ctx, 1); err != nil {
		m.mu.Lock()
		m.started = false
		m.cancel = nil
		m.mu.Unlock()
		cancel()
		return err
	}

	key, _, err := m.store.Get(ctx, keystore.AgentAPIKey)
	if err != nil {
		m.logger.Warn(ctx, "loading persisted api key failed", observe.Err(err))
		key = ""
	}
	m.mu.Lock()
	if !m.stopped {
		m.state.APIKey = key
	}
	m.mu.Unlock()

	m.propagate(m.credential(ctx))
	err = m.runCheck(ctx)
	m.sem.Release(1)
	if err != nil && !errors.Is(err, ErrStopped) {
		m.logger.Warn(ctx, "initial check did not complete", observe.Err(err))
	}

	m.wg.Add(1)
	go m.loop(loopCtx)
	return nil
}

// Stop cancels the periodic check and discards the results of operations
// still in flight. It is safe to call more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		m.stopped = true
		cancel := m.cancel
		m.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		m.wg.Wait()
	})
}

// Snapshot returns the current state.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// SetPendingKey stages input without validating it.
func (m *Monitor) SetPendingKey(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	m.state.PendingKey = key
}

// RunCheck probes the agent and validates the active credential. It returns
// ErrCheckInFlight without doing anything when another operation is running.
// The outcome is reported through the status, not the error.
func (m *Monitor) RunCheck(ctx context.Context) error {
	if !m.sem.TryAcquire(1) {
		return ErrCheckInFlight
	}
	defer m.sem.Release(1)
	return m.runCheck(ctx)
}

// CheckKeyValidity validates the active credential without probing the
// agent and without passing through checking. It reports false when there
// is no credential or the agent rejects it, and true otherwise, including
// when the validation itself failed or another operation is running.
func (m *Monitor) CheckKeyValidity(ctx context.Context) bool {
	if !m.sem.TryAcquire(1) {
		return true
	}
	defer m.sem.Release(1)
	return m.checkKeyValidity(ctx)
}

// SaveKey validates candidate and, if the agent accepts it, persists it and
// makes it the active key. A blank candidate returns ErrEmptyKey with no
// state change. A rejected candidate returns ErrKeyRejected and nothing is
// persisted.
func (m *Monitor) SaveKey(ctx context.Context, candidate string) error {
	key := strings.TrimSpace(candidate)
	if key == "" {
		return ErrEmptyKey
	}

	if err := m.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer m.sem.Release(1)

	parent := ctx
	ctx, cancel := context.WithTimeout(parent, m.timeout)
	defer cancel()

	if !m.begin() {
		return ErrStopped
	}

	v, err := m.client.ValidateAPIKey(ctx, key)
	switch {
	case err != nil && parent.Err() != nil:
		m.restore()
		return parent.Err()
	case err != nil && agent.IsAuthError(err):
		m.settle(StatusNeedsAPIKey, agent.Message(err, MsgInvalidOrExpired))
		return fmt.Errorf("%w: %w", ErrKeyRejected, err)
	case err != nil:
		m.settle(StatusNeedsAPIKey, agent.Message(err, MsgValidateFailed))
		return fmt.Errorf("session: validate api key: %w", err)
	case !v.Valid:
		m.settle(StatusNeedsAPIKey, orDefault(v.Message, MsgInvalidKey))
		return ErrKeyRejected
	}

	if m.isStopped() {
		return ErrStopped
	}
	if err := m.store.Set(ctx, keystore.AgentAPIKey, key); err != nil {
		m.logger.Error(ctx, "persisting api key failed", observe.Err(err))
	}

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return ErrStopped
	}
	m.state.APIKey = key
	m.state.PendingKey = ""
	m.mu.Unlock()

	m.propagate(key)
	m.settle(StatusHealthy, "")
	m.logger.Info(ctx, "api key saved", observe.F("key", credential.Mask(key)))
	return nil
}

// ClearKey deletes the persisted key and re-checks with whatever fallback
// credential remains.
func (m *Monitor) ClearKey(ctx context.Context) error {
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer m.sem.Release(1)

	if err := m.store.Delete(ctx, keystore.AgentAPIKey); err != nil {
		return fmt.Errorf("session: delete api key: %w", err)
	}
	m.mu.Lock()
	if !m.stopped {
		m.state.APIKey = ""
	}
	m.mu.Unlock()

	return m.runCheck(ctx)
}

func (m *Monitor) loop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

// tick re-runs the full check while unhealthy so the session can recover,
// and otherwise only re-validates the credential.
func (m *Monitor) tick(ctx context.Context) {
	if !m.sem.TryAcquire(1) {
		m.logger.Debug(ctx, "skipping periodic check, operation in flight")
		return
	}
	defer m.sem.Release(1)

	switch m.Snapshot().Status {
	case StatusUnhealthy, StatusChecking:
		_ = m.runCheck(ctx)
		return
	}
	if m.credential(ctx) != "" {
		m.checkKeyValidity(ctx)
	}
}

// runCheck must be called with the semaphore held. Running out of
// CheckTimeout is a connectivity failure; cancellation of parent restores
// the previous state.
func (m *Monitor) runCheck(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, m.timeout)
	defer cancel()

	if !m.begin() {
		return ErrStopped
	}

	cred := m.credential(ctx)
	m.propagate(cred)

	if err := m.client.HealthCheck(ctx); err != nil {
		switch {
		case parent.Err() != nil:
			m.restore()
			return parent.Err()
		case ctx.Err() != nil:
			m.settle(StatusUnhealthy, MsgConnectFailed)
		case agent.IsAuthError(err):
			m.settle(StatusNeedsAPIKey, agent.Message(err, MsgInvalidOrExpired))
		default:
			m.settle(StatusUnhealthy, agent.Message(err, MsgConnectFailed))
		}
		return nil
	}

	if cred == "" {
		m.settle(StatusNeedsAPIKey, "")
		return nil
	}

	v, err := m.client.ValidateAPIKey(ctx, cred)
	switch {
	case err != nil && parent.Err() != nil:
		m.restore()
		return parent.Err()
	case err != nil && ctx.Err() != nil:
		m.settle(StatusUnhealthy, MsgConnectFailed)
	case err != nil && agent.IsAuthError(err):
		m.settle(StatusNeedsAPIKey, agent.Message(err, MsgInvalidOrExpired))
	case err != nil:
		m.logger.Warn(ctx, "api key validation failed, keeping status", observe.Err(err))
		m.settleTransient()
	case !v.Valid:
		m.settle(StatusNeedsAPIKey, orDefault(v.Message, MsgInvalidOrExpired))
	default:
		m.settle(StatusHealthy, "")
	}
	return nil
}

// checkKeyValidity must be called with the semaphore held.
func (m *Monitor) checkKeyValidity(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	cred := m.credential(ctx)
	if cred == "" {
		m.settle(StatusNeedsAPIKey, "")
		return false
	}

	v, err := m.client.ValidateAPIKey(ctx, cred)
	switch {
	case err != nil && agent.IsAuthError(err) && ctx.Err() == nil:
		m.settle(StatusNeedsAPIKey, agent.Message(err, MsgInvalidOrExpired))
		return false
	case err != nil:
		m.logger.Warn(ctx, "api key validation failed, keeping status", observe.Err(err))
		return true
	case !v.Valid:
		m.settle(StatusNeedsAPIKey, orDefault(v.Message, MsgInvalidOrExpired))
		return false
	}

	m.mu.Lock()
	if !m.stopped {
		m.state.CheckedAt = m.now()
	}
	m.mu.Unlock()
	return true
}

// credential returns the active key, or the fallback when none is saved.
func (m *Monitor) credential(ctx context.Context) string {
	m.mu.RLock()
	key := m.state.APIKey
	m.mu.RUnlock()
	if key != "" || m.fallback == nil {
		return key
	}

	key, err := m.fallback(ctx)
	if err != nil {
		m.logger.Warn(ctx, "resolving fallback api key failed", observe.Err(err))
		return ""
	}
	return strings.TrimSpace(key)
}

func (m *Monitor) propagate(key string) {
	m.mu.Lock()
	if m.stopped || (m.propagateOK && m.propagated == key) {
		m.mu.Unlock()
		return
	}
	m.propagated = key
	m.propagateOK = true
	m.mu.Unlock()

	m.client.SetAPIKey(key)
}

func (m *Monitor) isStopped() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stopped
}

// begin enters checking and clears the error.
func (m *Monitor) begin() bool {
	return m.apply(func(s *Snapshot) {
		s.Status = StatusChecking
		s.Error = ""
	}, false)
}

// settle records a resolved status.
func (m *Monitor) settle(status Status, errMsg string) {
	m.apply(func(s *Snapshot) {
		s.Status = status
		s.Error = errMsg
	}, true)
}

// settleTransient resolves a check whose validation failed for reasons
// unrelated to the key. The previous settled status is kept unless it was
// unhealthy or there was none; the probe has just succeeded, so those
// become healthy.
func (m *Monitor) settleTransient() {
	m.mu.RLock()
	prev, prevErr := m.settled, m.settledErr
	m.mu.RUnlock()

	if prev == "" || prev == StatusUnhealthy {
		m.settle(StatusHealthy, "")
		return
	}
	m.settle(prev, prevErr)
}

// restore abandons an interrupted check and returns to the previous settled
// state. With nothing settled yet the agent was never reached, so the
// session is unhealthy.
func (m *Monitor) restore() {
	m.mu.RLock()
	prev, prevErr := m.settled, m.settledErr
	m.mu.RUnlock()
	if prev == "" {
		m.settle(StatusUnhealthy, MsgConnectFailed)
		return
	}
	m.apply(func(s *Snapshot) {
		s.Status = prev
		s.Error = prevErr
	}, false)
}

func (m *Monitor) apply(fn func(*Snapshot), settled bool) bool {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return false
	}
	from := m.state
	fn(&m.state)
	if settled {
		m.state.CheckedAt = m.now()
		m.settled = m.state.Status
		m.settledErr = m.state.Error
	}
	to := m.state
	m.mu.Unlock()

	if from.Status == to.Status && from.Error == to.Error {
		return true
	}

	ctx := context.Background()
	if from.Status != to.Status {
		m.recorder.RecordTransition(ctx, from.Status.String(), to.Status.String())
		if to.Status != StatusChecking {
			fields := []observe.Field{
				observe.F("from", from.Status.String()),
				observe.F("to", to.Status.String()),
			}
			if to.Error != "" {
				fields = append(fields, observe.F("reason", to.Error))
			}
			m.logger.Info(ctx, "session status changed", fields...)
		}
	}
	if m.onChange != nil {
		m.onChange(from, to)
	}
	return true
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
