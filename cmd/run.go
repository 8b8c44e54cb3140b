package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/cwbudde/greywolf/internal/bench"
	"github.com/cwbudde/greywolf/internal/gwo"
	"github.com/cwbudde/greywolf/internal/opt"
	"github.com/spf13/cobra"
)

var (
	function      string
	dims          int
	iters         int
	popSize       int
	seed          int64
	workers       int
	optimizerName string
	patience      int
	jsonOutput    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single optimization",
	Long: `Minimizes one benchmark function and prints the best position found.
Unset flags fall back to the optimizer section of the configuration.`,
	RunE: runOptimization,
}

func init() {
	runCmd.Flags().StringVar(&function, "function", "rastrigin", "Benchmark function (see 'greywolf functions')")
	runCmd.Flags().IntVar(&dims, "dims", 0, "Dimensions for scalable functions (0 = function default)")
	runCmd.Flags().IntVar(&iters, "iters", 0, "Iterations (0 = config default)")
	runCmd.Flags().IntVar(&popSize, "pop", 0, "Population size (0 = config default)")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 = config default)")
	runCmd.Flags().IntVar(&workers, "workers", -1, "Evaluation goroutines (0 = GOMAXPROCS, -1 = config default)")
	runCmd.Flags().StringVar(&optimizerName, "optimizer", "gwo", "Optimizer: gwo or mayfly")
	runCmd.Flags().IntVar(&patience, "patience", -1, "Stop after this many stale iterations (0 = never, -1 = config default)")
	runCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")

	rootCmd.AddCommand(runCmd)
}

// runParams are the effective settings after applying configuration defaults.
type runParams struct {
	iters    int
	popSize  int
	seed     int64
	workers  int
	patience int
}

func resolveRunParams() runParams {
	def := settings().Optimizer
	p := runParams{
		iters:    def.Iters,
		popSize:  def.PopSize,
		seed:     def.Seed,
		workers:  def.Workers,
		patience: def.Patience,
	}
	if iters > 0 {
		p.iters = iters
	}
	if popSize > 0 {
		p.popSize = popSize
	}
	if seed != 0 {
		p.seed = seed
	}
	if workers >= 0 {
		p.workers = workers
	}
	if patience >= 0 {
		p.patience = patience
	}
	return p
}

// newFactory builds the optimizer named by --optimizer.
func newFactory(name string, p runParams, options ...gwo.Option) (opt.Factory, error) {
	switch name {
	case "gwo":
		return opt.GreyWolfFactory(p.iters, p.popSize, append([]gwo.Option{gwo.WithWorkers(p.workers)}, options...)...), nil
	case "mayfly":
		return opt.MayflyFactory(p.iters, p.popSize), nil
	default:
		return nil, fmt.Errorf("unknown optimizer %q (want gwo or mayfly)", name)
	}
}

// runResult is the printed outcome of a single run.
type runResult struct {
	Function    string    `json:"function"`
	Optimizer   string    `json:"optimizer"`
	Dims        int       `json:"dims"`
	Fitness     float64   `json:"fitness"`
	Position    []float64 `json:"position"`
	Iterations  int       `json:"iterations"`
	Evaluations int       `json:"evaluations"`
	Stopped     bool      `json:"stopped"`
	Optimum     *float64  `json:"optimum,omitempty"`
	ElapsedMs   int64     `json:"elapsed_ms"`
}

func runOptimization(cmd *cobra.Command, args []string) error {
	fn, err := bench.Lookup(function, dims)
	if err != nil {
		return err
	}
	p := resolveRunParams()

	var options []gwo.Option
	if p.patience > 0 {
		tracker := opt.NewConvergenceTracker(opt.ConvergenceConfig{
			Enabled:   true,
			Patience:  p.patience,
			Threshold: settings().Optimizer.Threshold,
		})
		options = append(options, gwo.WithObserver(tracker.Observer()))
	}
	factory, err := newFactory(optimizerName, p, options...)
	if err != nil {
		return err
	}
	optimizer := factory(p.seed)

	slog.Info("Starting optimization",
		"function", fn.Key,
		"dims", fn.Dims,
		"optimizer", optimizer.Name(),
		"iters", p.iters,
		"pop_size", p.popSize,
		"seed", p.seed,
	)

	start := time.Now()
	res, err := optimizer.Run(fn.Objective(), fn.Lower, fn.Upper)
	if err != nil {
		return fmt.Errorf("optimization failed: %w", err)
	}
	elapsed := time.Since(start)

	out := runResult{
		Function:    fn.Key,
		Optimizer:   optimizer.Name(),
		Dims:        fn.Dims,
		Fitness:     res.BestCost,
		Position:    res.BestParams,
		Iterations:  res.Iterations,
		Evaluations: res.Evaluations,
		Stopped:     res.Stopped,
		ElapsedMs:   elapsed.Milliseconds(),
	}
	if !math.IsNaN(fn.Optimum) {
		v := fn.Optimum
		out.Optimum = &v
	}

	slog.Info("Optimization complete",
		"elapsed", elapsed,
		"best_fitness", res.BestCost,
		"evaluations", res.Evaluations,
	)

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	printRunResult(cmd.OutOrStdout(), out)
	return nil
}

func printRunResult(w io.Writer, r runResult) {
	fmt.Fprintf(w, "Function:    %s (%d dims)\n", r.Function, r.Dims)
	fmt.Fprintf(w, "Optimizer:   %s\n", r.Optimizer)
	fmt.Fprintf(w, "Fitness:     %.10g\n", r.Fitness)
	if r.Optimum != nil {
		fmt.Fprintf(w, "Optimum:     %.10g (gap %.3g)\n", *r.Optimum, r.Fitness-*r.Optimum)
	}
	fmt.Fprintf(w, "Position:    %v\n", r.Position)
	fmt.Fprintf(w, "Iterations:  %d", r.Iterations)
	if r.Stopped {
		fmt.Fprint(w, " (converged early)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Evaluations: %d\n", r.Evaluations)
	fmt.Fprintf(w, "Elapsed:     %s\n", (time.Duration(r.ElapsedMs) * time.Millisecond).String())
}
