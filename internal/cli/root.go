// Package cli holds the fleetd command tree.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// NewRootCommand builds fleetd with all sub-commands attached.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "fleetd",
		Short:         "Fleet maintenance backend",
		Long:          `fleetd serves the fleet maintenance API and manages its database.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newUserCommand(),
	)
	return root
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
