package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/harrison/borisrec/internal/display"
	"github.com/harrison/borisrec/internal/logger"
)

// NewInspectCommand creates and returns the inspect subcommand
func NewInspectCommand() *cobra.Command {
	var (
		fps      float64
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "inspect <export.csv>",
		Short: "Detect the export layout and report what a recovery would find",
		Long: `Detect the layout of a CSV export and report the subjects, behaviors,
observations and skipped rows a recovery would produce, without writing
anything.

Exit code: 0 if the export is usable, 1 otherwise`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(args[0], fps, logLevel, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
		SilenceUsage: true,
	}

	cmd.Flags().Float64Var(&fps, "fps", 30, "fallback frames per second when the export carries none")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log verbosity (trace, debug, info, warn, error)")

	return cmd
}

func runInspect(path string, fps float64, logLevel string, out, errOut io.Writer) error {
	log := logger.New(errOut, logLevel)

	result, err := analyze(path, fps, log)
	if err != nil {
		return err
	}

	display.Summary{
		Layout:       result.Layout.String(),
		Subjects:     len(result.Subjects),
		Behaviors:    len(result.Behaviors),
		Observations: len(result.Observations),
		Skipped:      result.Skipped,
	}.Display(out, colorize(out))

	return nil
}
