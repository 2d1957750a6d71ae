// Package cmd defines and implements the CLI commands for the harvester
// executable.
package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvester",
		Short: "Collects workflow templates from automation platforms.",
		Long: `harvester drives platform-specific collectors (Zapier, Make, n8n)
through a rate-limited, cancellable pipeline that validates and
normalizes each template before appending it to a durable sink.
Interrupting a run preserves everything already written.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (defaults and env vars apply when omitted)")

	cmd.AddCommand(newHarvestCmd())

	return cmd
}

// Execute runs the CLI and reports the process exit code: 0 for
// completed runs (including cancelled ones), 1 for fatal errors.
func Execute() int {
	if err := newRootCmd().Execute(); err != nil {
		return 1
	}
	return 0
}
