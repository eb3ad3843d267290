package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/subnetconsole/agentops/session"
)

func keyCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the agent API key",
	}
	cmd.AddCommand(keySetCmd(opts), keyCheckCmd(opts), keyClearCmd(opts))
	return cmd
}

func keySetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set [key]",
		Short: "Validate and save an API key (reads stdin when no key is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			if len(args) == 1 && args[0] != "-" {
				key = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read key: %w", err)
				}
				key = line
			}

			cfg, err := loadConfig(opts, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close(context.WithoutCancel(cmd.Context()))

			err = a.monitor.SaveKey(cmd.Context(), key)
			if perr := printView(cmd.OutOrStdout(), opts.json, viewOf(a)); perr != nil {
				return perr
			}
			// A bare rejection carries the agent's reason only in the snapshot.
			if err == session.ErrKeyRejected {
				if msg := a.monitor.Snapshot().Error; msg != "" {
					return fmt.Errorf("%w: %s", session.ErrKeyRejected, msg)
				}
			}
			return err
		},
	}
}

func keyCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Re-validate the active API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close(context.WithoutCancel(cmd.Context()))

			if err := a.monitor.Start(cmd.Context()); err != nil {
				return err
			}
			valid := a.monitor.CheckKeyValidity(cmd.Context())

			v := viewOf(a)
			v.Valid = &valid
			if err := printView(cmd.OutOrStdout(), opts.json, v); err != nil {
				return err
			}
			if !valid {
				return errInvalidKey
			}
			return nil
		},
	}
}

func keyClearCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the saved API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close(context.WithoutCancel(cmd.Context()))

			if err := a.monitor.ClearKey(cmd.Context()); err != nil {
				return err
			}
			return printView(cmd.OutOrStdout(), opts.json, viewOf(a))
		},
	}
}

var errInvalidKey = errors.New("api key is not valid")

func viewOf(a *app) session.View {
	return session.ViewOf(a.monitor.Snapshot())
}
