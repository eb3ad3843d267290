// Package cli implements the subnetctl commands.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/subnetconsole/agentops/config"
)

type rootOptions struct {
	configPath string
	verbose    bool
	json       bool
}

// Execute runs the root command.
func Execute() error {
	return NewRoot().Execute()
}

// NewRoot builds the command tree.
func NewRoot() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "subnetctl",
		Short:         "Monitor and authenticate the Subnet agent session",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath(), "config file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "print JSON")

	root.AddCommand(
		monitorCmd(opts),
		statusCmd(opts),
		keyCmd(opts),
		loginCmd(opts),
		agentSimCmd(),
	)
	return root
}
