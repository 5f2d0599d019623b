package cmd

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/wolfv/continuous-benchmark/regress"
)

// printAnalysis writes the comparison as an aligned text table.
func printAnalysis(w io.Writer, a *regress.Analysis) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "name\tbaseline\tcurrent\tdelta\tp\tverdict")
	for _, c := range a.Cases {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.Name,
			c.FormatBaseline(),
			c.FormatCurrent(),
			formatCell(c.Delta*100, "%+.2f%%"),
			formatCell(c.P, "%.3f"),
			c.Verdict)
	}
	tw.Flush()
	fmt.Fprintf(w, "\nbaseline runs: %d, regressions: %d, improvements: %d, indeterminate: %d\n",
		a.BaselineRuns, a.Regressions, a.Improvements, a.Indeterminate)
}

func formatCell(v float64, format string) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf(format, v)
}
