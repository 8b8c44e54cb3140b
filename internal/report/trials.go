// Package report runs repeated, independently seeded optimization trials on
// benchmark functions and summarises the spread of the results.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/sourcegraph/conc/pool"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/greywolf/internal/bench"
	"github.com/cwbudde/greywolf/internal/opt"
)

// TrialConfig controls a batch of trials.
type TrialConfig struct {
	Trials  int   // number of independent runs
	Seed    int64 // trial i runs with Seed+i
	Workers int   // concurrent trials, < 1 means one at a time
}

// DefaultTrialConfig mirrors the classic GWO evaluation setup of 30 repetitions.
func DefaultTrialConfig() TrialConfig {
	return TrialConfig{
		Trials:  30,
		Seed:    1,
		Workers: 1,
	}
}

// Trial is the outcome of one run.
type Trial struct {
	Seed        int64
	Fitness     float64
	Position    []float64
	Evaluations int
}

// Summary aggregates the best fitness of every trial on one function.
type Summary struct {
	Function  string
	Optimizer string
	Dims      int
	Trials    []Trial

	Max     float64
	Min     float64
	Mean    float64
	StdDev  float64 // sample standard deviation, 0 for a single trial
	Optimum float64 // known optimum, NaN when unknown

	BestPosition []float64
	Evaluations  int
	Elapsed      time.Duration
}

// Gap is the distance between the best trial and the known optimum.
func (s Summary) Gap() float64 {
	return s.Min - s.Optimum
}

// RunTrials runs cfg.Trials optimizations of fn, each with a fresh optimizer from
// factory. The first failing trial cancels the rest and its error is returned.
func RunTrials(ctx context.Context, factory opt.Factory, fn bench.Func, cfg TrialConfig) (Summary, error) {
	if cfg.Trials < 1 {
		return Summary{}, fmt.Errorf("trials must be at least 1, got %d", cfg.Trials)
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	start := time.Now()
	trials := make([]Trial, cfg.Trials)
	name := ""

	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError().WithMaxGoroutines(workers)
	for i := range trials {
		seed := cfg.Seed + int64(i)
		optimizer := factory(seed)
		if name == "" {
			name = optimizer.Name()
		}

		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := optimizer.Run(fn.Objective(), fn.Lower, fn.Upper)
			if err != nil {
				return fmt.Errorf("%s trial %d (seed %d): %w", fn.Name, i, seed, err)
			}
			trials[i] = Trial{
				Seed:        seed,
				Fitness:     res.BestCost,
				Position:    res.BestParams,
				Evaluations: res.Evaluations,
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return Summary{}, err
	}

	summary := Summarize(fn, trials)
	summary.Optimizer = name
	summary.Elapsed = time.Since(start)

	slog.Info("Trials complete",
		"function", fn.Name,
		"optimizer", name,
		"trials", len(trials),
		"min", summary.Min,
		"mean", summary.Mean,
		"elapsed", summary.Elapsed,
	)
	return summary, nil
}

// Summarize computes the statistics of a finished batch.
func Summarize(fn bench.Func, trials []Trial) Summary {
	s := Summary{
		Function: fn.Name,
		Dims:     fn.Dims,
		Trials:   trials,
		Optimum:  fn.Optimum,
		Max:      math.NaN(),
		Min:      math.NaN(),
		Mean:     math.NaN(),
	}
	if len(trials) == 0 {
		return s
	}

	fitness := make([]float64, len(trials))
	for i, t := range trials {
		fitness[i] = t.Fitness
		s.Evaluations += t.Evaluations
	}

	s.Max = floats.Max(fitness)
	s.Min = floats.Min(fitness)
	s.Mean = stat.Mean(fitness, nil)
	if len(fitness) > 1 {
		s.StdDev = stat.StdDev(fitness, nil)
	}
	s.BestPosition = append([]float64(nil), trials[floats.MinIdx(fitness)].Position...)
	return s
}
