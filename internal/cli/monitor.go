package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/subnetconsole/agentops/agent"
	"github.com/subnetconsole/agentops/health"
	"github.com/subnetconsole/agentops/observe"
	"github.com/subnetconsole/agentops/session"
)

const shutdownTimeout = 10 * time.Second

func monitorCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Run the session monitor and serve its HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts, cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.close(context.WithoutCancel(ctx))

			ln, err := net.Listen("tcp", cfg.Server.Addr)
			if err != nil {
				return err
			}
			return a.serve(ctx, ln)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides server.addr)")
	return cmd
}

// handler mounts the health, session and metrics endpoints.
func (a *app) handler() http.Handler {
	agg := health.NewAggregator(health.AggregatorConfig{Timeout: a.cfg.Monitor.CheckTimeout})
	agg.Register(a.monitor)
	agg.Register(health.NewProbeChecker("agent", a.client.HealthCheck, agent.IsAuthError))

	mux := http.NewServeMux()
	health.RegisterHandlers(mux, agg)
	session.RegisterHandlers(mux, a.monitor)
	if a.cfg.Observe.Metrics.Enabled && a.cfg.Observe.Metrics.Exporter == "prometheus" {
		mux.Handle("GET /metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	}
	return mux
}

// serve starts the monitor and serves its API on ln until ctx is done.
func (a *app) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info(ctx, "listening", observe.F("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := a.monitor.Start(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		a.logger.Info(ctx, "session monitor started",
			observe.F("status", a.monitor.Snapshot().Status.String()),
			observe.F("agent", a.client.BaseURL()),
		)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		a.monitor.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
