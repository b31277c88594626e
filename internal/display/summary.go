package display

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Summary is the end-of-run report: what was recovered and what was
// tolerated along the way.
type Summary struct {
	Layout       string
	Subjects     int
	Behaviors    int
	Observations int
	Skipped      int
	Output       string // empty for inspect-only runs
}

// Display writes the summary. Colorize enables the green/yellow
// highlighting used on terminals.
func (s Summary) Display(out io.Writer, colorize bool) {
	check := "✓"
	if colorize {
		check = color.New(color.FgGreen).Sprint("✓")
	}

	fmt.Fprintf(out, "%s Detected %s export layout\n", check, s.Layout)
	fmt.Fprintf(out, "%s Recovered %d subjects, %d behaviors, %d observations\n",
		check, s.Subjects, s.Behaviors, s.Observations)

	if s.Skipped > 0 {
		line := fmt.Sprintf("Skipped %d malformed row(s)", s.Skipped)
		if colorize {
			line = color.New(color.FgYellow).Sprint(line)
		}
		fmt.Fprintf(out, "  %s\n", line)
	}

	if s.Output != "" {
		fmt.Fprintf(out, "%s Restored: %s\n", check, s.Output)
	}
}
