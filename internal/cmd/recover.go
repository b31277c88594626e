package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/harrison/borisrec/internal/assemble"
	"github.com/harrison/borisrec/internal/display"
	"github.com/harrison/borisrec/internal/export"
	"github.com/harrison/borisrec/internal/extract"
	"github.com/harrison/borisrec/internal/logger"
	"github.com/harrison/borisrec/internal/writer"
)

// recoverOptions carry the recover command's flag values.
type recoverOptions struct {
	force       bool
	output      string
	fps         float64
	projectName string
	logLevel    string
}

// NewRecoverCommand creates and returns the recover subcommand
func NewRecoverCommand() *cobra.Command {
	var opts recoverOptions

	cmd := &cobra.Command{
		Use:   "recover <export.csv>",
		Short: "Rebuild a .boris project file from a CSV export",
		Long: `Rebuild a BORIS project file from a CSV event export.

The export layout (standard or aggregated) is detected from the header.
The recovered project is written next to the input with the .boris
extension, atomically: on any failure no partial file is left behind.

Exit code: 0 on success, 1 on any error`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecover(args[0], opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
		SilenceUsage: true,
	}

	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "overwrite an existing .boris file")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output path (default: input path with .boris extension)")
	cmd.Flags().Float64Var(&opts.fps, "fps", 30, "fallback frames per second when the export carries none")
	cmd.Flags().StringVar(&opts.projectName, "project-name", "", "project name (default: first observation id)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "info", "log verbosity (trace, debug, info, warn, error)")

	return cmd
}

// runRecover executes the full recovery pipeline: read, detect, extract,
// assemble, write.
func runRecover(path string, opts recoverOptions, out, errOut io.Writer) error {
	log := logger.New(errOut, opts.logLevel)

	if strings.ToLower(filepath.Ext(path)) != ".csv" {
		display.Warning{
			Title:   fmt.Sprintf("%s does not have a .csv extension", filepath.Base(path)),
			Message: "Attempting to read it as a CSV export anyway",
		}.Display(errOut)
	}

	target := opts.output
	if target == "" {
		target = writer.OutputPath(path)
	}

	// Refuse to clobber an existing project file before any work is done.
	if _, err := os.Stat(target); err == nil {
		if !opts.force {
			return fmt.Errorf("%w: %s (use --force to overwrite)", writer.ErrExists, target)
		}
		display.Warning{
			Title: fmt.Sprintf("Overwriting %s", target),
		}.Display(errOut)
	}

	result, err := analyze(path, opts.fps, log)
	if err != nil {
		return err
	}

	project, err := assemble.Build(result, assemble.Options{ProjectName: opts.projectName})
	if err != nil {
		return err
	}

	if err := writer.Write(target, project, opts.force); err != nil {
		return err
	}

	display.Summary{
		Layout:       result.Layout.String(),
		Subjects:     len(result.Subjects),
		Behaviors:    len(result.Behaviors),
		Observations: len(result.Observations),
		Skipped:      result.Skipped,
		Output:       target,
	}.Display(out, colorize(out))

	return nil
}

// analyze opens the export, detects its layout, and runs the extraction
// pass. Shared by recover and inspect.
func analyze(path string, fps float64, log logger.Logger) (*extract.Result, error) {
	r, err := export.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	fieldMap, err := export.DetectLayout(r.Header())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Infof("detected %s export layout", fieldMap.Layout)

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	result, err := extract.Run(r, fieldMap, extract.Options{
		FallbackObservationID: stem,
		FPS:                   fps,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if result.Skipped > 0 {
		log.Warnf("skipped %d row(s) with missing subject, behavior or time", result.Skipped)
	}
	return result, nil
}

// colorize reports whether summary output to w should carry ANSI colors.
func colorize(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
