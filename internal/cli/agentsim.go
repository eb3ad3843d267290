package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/subnetconsole/agentops/agent"
	"github.com/subnetconsole/agentops/agent/agenttest"
	"github.com/subnetconsole/agentops/credential"
)

type simOptions struct {
	addr     string
	header   string
	keys     []string
	tokenTTL time.Duration
	latency  time.Duration
}

func agentSimCmd() *cobra.Command {
	opts := &simOptions{}
	cmd := &cobra.Command{
		Use:   "agent-sim",
		Short: "Serve a local Subnet agent for development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", opts.addr)
			if err != nil {
				return err
			}
			sim, err := newSim(opts, cmd)
			if err != nil {
				ln.Close()
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "agent listening on http://%s\n", ln.Addr())
			return serveSim(ctx, ln, sim)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "127.0.0.1:8080", "HTTP listen address")
	cmd.Flags().StringVar(&opts.header, "header", agent.DefaultAPIKeyHeader, "API key header")
	cmd.Flags().StringSliceVar(&opts.keys, "key", nil, "accept this key (repeatable); a random key is generated when none is given")
	cmd.Flags().DurationVar(&opts.tokenTTL, "token-ttl", 0, "also issue a signed token key with this lifetime")
	cmd.Flags().DurationVar(&opts.latency, "latency", 0, "delay every response")
	return cmd
}

func newSim(opts *simOptions, cmd *cobra.Command) (*agenttest.Server, error) {
	sim := agenttest.New(agenttest.WithHeader(opts.header))
	sim.SetLatency(opts.latency)

	out := cmd.OutOrStdout()
	if len(opts.keys) == 0 {
		fmt.Fprintf(out, "key: %s\n", sim.AddKey("generated"))
	}
	for i, key := range opts.keys {
		sim.RegisterKey(fmt.Sprintf("flag-%d", i), key, "flag", time.Time{})
		fmt.Fprintf(out, "key: %s\n", credential.Mask(key))
	}
	if opts.tokenTTL > 0 {
		token, err := sim.IssueToken("agent-sim", opts.tokenTTL)
		if err != nil {
			return nil, fmt.Errorf("issue token: %w", err)
		}
		fmt.Fprintf(out, "token: %s\n", token)
	}
	return sim, nil
}

func serveSim(ctx context.Context, ln net.Listener, h http.Handler) error {
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
