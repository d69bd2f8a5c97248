// Package cli implements the planner command line: offline predictions from
// JSON fixtures and developer helpers for the HTTP API.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "planner",
		Short:         "Academic path prediction tools",
		Long:          `Run the prediction engine against a JSON fixture, check elective exclusions and mint API tokens for local development.`,
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newPredictCmd(), newCheckExclusionCmd(), newTokenCmd())
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
