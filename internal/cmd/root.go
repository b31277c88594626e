package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for borisrec
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "borisrec",
		Short: "Recover BORIS project files from CSV event exports",
		Long: `Borisrec reconstructs a lost BORIS project file from a surviving
CSV event export.

It detects whether the export is a standard or an aggregated layout,
extracts the subjects, behaviors, modifiers and observations present in
the rows, and writes a loadable .boris project file next to the input.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	// Add subcommands
	cmd.AddCommand(NewRecoverCommand())
	cmd.AddCommand(NewInspectCommand())

	return cmd
}
