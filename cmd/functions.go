package main

import (
	"fmt"
	"math"
	"text/tabwriter"

	"github.com/cwbudde/greywolf/internal/bench"
	"github.com/spf13/cobra"
)

var functionsDims int

var functionsCmd = &cobra.Command{
	Use:   "functions",
	Short: "List the benchmark functions",
	RunE:  runListFunctions,
}

func init() {
	functionsCmd.Flags().IntVar(&functionsDims, "dims", 0, "Dimensions for scalable functions (0 = function default)")
	rootCmd.AddCommand(functionsCmd)
}

func runListFunctions(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tNAME\tDIMS\tBOX\tOPTIMUM")

	for _, fn := range bench.Catalogue(functionsDims) {
		dimsStr := fmt.Sprintf("%d", fn.Dims)
		if !fn.Fixed {
			dimsStr += "+"
		}
		optimum := "-"
		if !math.IsNaN(fn.Optimum) {
			optimum = fmt.Sprintf("%.6g", fn.Optimum)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", fn.Key, fn.Name, dimsStr, formatBox(fn.Lower, fn.Upper), optimum)
	}
	return w.Flush()
}

// formatBox prints a uniform box as one interval and a mixed box per dimension.
func formatBox(lower, upper []float64) string {
	uniform := true
	for j := range lower {
		if lower[j] != lower[0] || upper[j] != upper[0] {
			uniform = false
			break
		}
	}
	if uniform {
		return fmt.Sprintf("[%g, %g]", lower[0], upper[0])
	}
	s := ""
	for j := range lower {
		if j > 0 {
			s += " x "
		}
		s += fmt.Sprintf("[%g, %g]", lower[j], upper[j])
	}
	return s
}
