package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	promclient "github.com/prometheus/client_golang/prometheus"

	"github.com/subnetconsole/agentops/agent"
	"github.com/subnetconsole/agentops/config"
	"github.com/subnetconsole/agentops/keystore"
	"github.com/subnetconsole/agentops/observe"
	"github.com/subnetconsole/agentops/session"
)

// app is the wired object graph shared by the commands.
type app struct {
	cfg      *config.Config
	obs      observe.Observer
	logger   observe.Logger
	registry *promclient.Registry
	store    keystore.Store
	client   *agent.Client
	monitor  *session.Monitor
}

// loadConfig reads the config file. Short-lived commands log warnings only
// unless verbose.
func loadConfig(opts *rootOptions, stderr io.Writer, daemon bool) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	cfg.Observe.Logging.Output = stderr
	switch {
	case opts.verbose:
		cfg.Observe.Logging.Enabled = true
		cfg.Observe.Logging.Level = "debug"
	case !daemon:
		cfg.Observe.Logging.Level = "warn"
		cfg.Observe.Logging.Format = "console"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{cfg: cfg, registry: promclient.NewRegistry()}
	defer func() {
		if err != nil {
			a.close(context.WithoutCancel(ctx))
		}
	}()

	cfg.Observe.Metrics.Registerer = a.registry
	a.obs, err = observe.NewObserver(ctx, cfg.Observe)
	if err != nil {
		return nil, fmt.Errorf("observer: %w", err)
	}
	a.logger = a.obs.Logger()

	mw, err := observe.MiddlewareFromObserver(a.obs, agent.Classify)
	if err != nil {
		return nil, fmt.Errorf("middleware: %w", err)
	}

	statuses := make([]string, 0, len(session.Statuses()))
	for _, s := range session.Statuses() {
		statuses = append(statuses, s.String())
	}
	recorder, err := observe.NewStatusRecorder(a.obs.Meter(), statuses...)
	if err != nil {
		return nil, fmt.Errorf("status recorder: %w", err)
	}

	a.store, err = keystore.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("keystore: %w", err)
	}

	a.client, err = agent.NewClient(cfg.ClientConfig(),
		agent.WithMiddleware(mw),
		agent.WithLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}

	a.monitor, err = session.New(session.Config{
		Client:       a.client,
		Store:        a.store,
		Fallback:     cfg.FallbackFunc(),
		Interval:     cfg.Monitor.Interval,
		CheckTimeout: cfg.Monitor.CheckTimeout,
		Logger:       a.logger,
		Recorder:     recorder,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.monitor != nil {
		a.monitor.Stop()
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.obs != nil {
		errs = append(errs, a.obs.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
