package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func statusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Run one session check and print the result",
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
			return printView(cmd.OutOrStdout(), opts.json, viewOf(a))
		},
	}
}
