package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cwbudde/greywolf/internal/bench"
	"github.com/cwbudde/greywolf/internal/report"
	"github.com/spf13/cobra"
)

var (
	benchFunctions []string
	benchDims      int
	benchTrials    int
	benchParallel  int
	benchOptimizer string
	benchIters     int
	benchPop       int
	benchSeed      int64
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run repeated trials over the benchmark catalogue",
	Long: `Runs independent trials of an optimizer on each selected benchmark
function and prints the min, max, mean and standard deviation of the best
fitness per function. Trial i uses seed+i, so a table is reproducible.`,
	RunE: runBench,
}

func init() {
	benchCmd.Flags().StringSliceVar(&benchFunctions, "functions", nil, "Functions to run (default: whole catalogue)")
	benchCmd.Flags().IntVar(&benchDims, "dims", 0, "Dimensions for scalable functions (0 = function default)")
	benchCmd.Flags().IntVar(&benchTrials, "trials", 0, "Trials per function (0 = config default)")
	benchCmd.Flags().IntVar(&benchParallel, "parallel", 1, "Trials run concurrently")
	benchCmd.Flags().StringVar(&benchOptimizer, "optimizer", "gwo", "Optimizer: gwo or mayfly")
	benchCmd.Flags().IntVar(&benchIters, "iters", 0, "Iterations per trial (0 = config default)")
	benchCmd.Flags().IntVar(&benchPop, "pop", 0, "Population size (0 = config default)")
	benchCmd.Flags().Int64Var(&benchSeed, "seed", 0, "Seed of the first trial (0 = config default)")

	rootCmd.AddCommand(benchCmd)
}

func benchSelection() ([]bench.Func, error) {
	if len(benchFunctions) == 0 {
		return bench.Catalogue(benchDims), nil
	}
	funcs := make([]bench.Func, 0, len(benchFunctions))
	for _, name := range benchFunctions {
		fn, err := bench.Lookup(name, benchDims)
		var dimErr *bench.DimensionError
		if errors.As(err, &dimErr) {
			// --dims only applies to scalable functions, as in the full catalogue
			fn, err = bench.Lookup(name, 0)
		}
		if err != nil {
			return nil, err
		}
		funcs = append(funcs, fn)
	}
	return funcs, nil
}

func runBench(cmd *cobra.Command, args []string) error {
	funcs, err := benchSelection()
	if err != nil {
		return err
	}

	def := settings().Optimizer
	p := runParams{iters: def.Iters, popSize: def.PopSize, seed: def.Seed, workers: def.Workers}
	if benchIters > 0 {
		p.iters = benchIters
	}
	if benchPop > 0 {
		p.popSize = benchPop
	}
	if benchSeed != 0 {
		p.seed = benchSeed
	}
	if benchParallel > 1 {
		// trials already fill the cores
		p.workers = 1
	}

	factory, err := newFactory(benchOptimizer, p)
	if err != nil {
		return err
	}

	trials := def.Trials
	if benchTrials > 0 {
		trials = benchTrials
	}
	trialCfg := report.TrialConfig{Trials: trials, Seed: p.seed, Workers: benchParallel}

	ctx, stop := interruptContext(cmd)
	defer stop()

	summaries := make([]report.Summary, 0, len(funcs))
	for _, fn := range funcs {
		summary, err := report.RunTrials(ctx, factory, fn, trialCfg)
		if err != nil {
			if ctx.Err() != nil {
				return context.Cause(ctx)
			}
			// Mayfly rejects the non-uniform boxes of some functions; keep going.
			slog.Warn("Skipping function", "function", fn.Key, "error", err)
			continue
		}
		summaries = append(summaries, summary)
	}

	if len(summaries) == 0 {
		return fmt.Errorf("no function completed")
	}
	return report.WriteTable(cmd.OutOrStdout(), summaries)
}
