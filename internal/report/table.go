package report

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"
)

// WriteTable renders one row per summary.
func WriteTable(out io.Writer, summaries []Summary) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FUNCTION\tDIMS\tOPTIMIZER\tTRIALS\tMIN\tMAX\tMEAN\tSTD DEV\tOPTIMUM")
	fmt.Fprintln(w, "--------\t----\t---------\t------\t---\t---\t----\t-------\t-------")

	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%.6g\t%.6g\t%.6g\t%.6g\t%s\n",
			s.Function,
			s.Dims,
			s.Optimizer,
			len(s.Trials),
			s.Min,
			s.Max,
			s.Mean,
			s.StdDev,
			formatOptimum(s.Optimum),
		)
	}
	return w.Flush()
}

func formatOptimum(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.6g", v)
}
