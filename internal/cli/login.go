package cli

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/subnetconsole/agentops/internal/tui"
)

var errLoginAborted = errors.New("login aborted")

// runProgram is replaced in tests.
var runProgram = func(cmd *cobra.Command, m tea.Model) (tea.Model, error) {
	p := tea.NewProgram(m,
		tea.WithContext(cmd.Context()),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	return p.Run()
}

func loginCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Prompt for an API key until the agent session is healthy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			// Log lines would corrupt the screen.
			if !opts.verbose {
				cfg.Observe.Logging.Enabled = false
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close(context.WithoutCancel(cmd.Context()))

			final, err := runProgram(cmd, tui.NewLogin(cmd.Context(), a.monitor))
			if err != nil {
				return err
			}
			if m, ok := final.(*tui.Login); !ok || !m.Done() {
				return errLoginAborted
			}
			fmt.Fprintln(cmd.OutOrStdout(), tui.RenderStatus(a.monitor.Snapshot().Status))
			return nil
		},
	}
}
