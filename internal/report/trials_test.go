package report

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/greywolf/internal/bench"
	"github.com/cwbudde/greywolf/internal/gwo"
	"github.com/cwbudde/greywolf/internal/opt"
)

// fixedOptimizer reports its seed as the cost.
type fixedOptimizer struct {
	seed int64
	err  error
}

func (f fixedOptimizer) Name() string { return "fixed" }

func (f fixedOptimizer) Run(eval gwo.Objective, lower, upper []float64) (opt.Result, error) {
	if f.err != nil {
		return opt.Result{}, f.err
	}
	return opt.Result{BestParams: []float64{float64(f.seed)}, BestCost: float64(f.seed), Evaluations: 10}, nil
}

func TestSummarize(t *testing.T) {
	fn, err := bench.Lookup("dejong", 2)
	require.NoError(t, err)

	trials := []Trial{
		{Fitness: 2, Position: []float64{2}},
		{Fitness: 4, Position: []float64{4}},
		{Fitness: 4, Position: []float64{4}},
		{Fitness: 4, Position: []float64{4}},
		{Fitness: 5, Position: []float64{5}},
		{Fitness: 5, Position: []float64{5}},
		{Fitness: 7, Position: []float64{7}},
		{Fitness: 9, Position: []float64{9}},
	}
	s := Summarize(fn, trials)

	assert.Equal(t, 9.0, s.Max)
	assert.Equal(t, 2.0, s.Min)
	assert.Equal(t, 5.0, s.Mean)
	// Sample (n-1) deviation of the textbook data set whose population deviation is 2
	assert.InDelta(t, math.Sqrt(32.0/7), s.StdDev, 1e-12)
	assert.Equal(t, []float64{2}, s.BestPosition)
	assert.Equal(t, 2.0, s.Gap())
}

func TestSummarizeSingleTrial(t *testing.T) {
	fn, err := bench.Lookup("dejong", 2)
	require.NoError(t, err)

	s := Summarize(fn, []Trial{{Fitness: 3}})
	assert.Zero(t, s.StdDev)
	assert.Equal(t, 3.0, s.Mean)
}

func TestRunTrialsSeedsEachTrial(t *testing.T) {
	fn, err := bench.Lookup("dejong", 2)
	require.NoError(t, err)

	factory := func(seed int64) opt.Optimizer { return fixedOptimizer{seed: seed} }
	s, err := RunTrials(context.Background(), factory, fn, TrialConfig{Trials: 5, Seed: 10, Workers: 3})
	require.NoError(t, err)

	require.Len(t, s.Trials, 5)
	for i, trial := range s.Trials {
		assert.Equal(t, int64(10+i), trial.Seed)
		assert.Equal(t, float64(10+i), trial.Fitness)
	}
	assert.Equal(t, 10.0, s.Min)
	assert.Equal(t, 14.0, s.Max)
	assert.Equal(t, 50, s.Evaluations)
	assert.Equal(t, "fixed", s.Optimizer)
}

func TestRunTrialsPropagatesFailure(t *testing.T) {
	fn, err := bench.Lookup("dejong", 2)
	require.NoError(t, err)

	boom := errors.New("boom")
	factory := func(seed int64) opt.Optimizer {
		if seed == 3 {
			return fixedOptimizer{seed: seed, err: boom}
		}
		return fixedOptimizer{seed: seed}
	}

	_, err = RunTrials(context.Background(), factory, fn, TrialConfig{Trials: 6, Seed: 0, Workers: 2})
	assert.ErrorIs(t, err, boom)

	_, err = RunTrials(context.Background(), factory, fn, TrialConfig{Trials: 0})
	assert.Error(t, err)
}

func TestRunTrialsWithGreyWolfIsReproducible(t *testing.T) {
	fn, err := bench.Lookup("rastrigin", 5)
	require.NoError(t, err)

	cfg := TrialConfig{Trials: 4, Seed: 100, Workers: 4}
	a, err := RunTrials(context.Background(), opt.GreyWolfFactory(100, 15), fn, cfg)
	require.NoError(t, err)
	b, err := RunTrials(context.Background(), opt.GreyWolfFactory(100, 15), fn, cfg)
	require.NoError(t, err)

	assert.Equal(t, a.Min, b.Min)
	assert.Equal(t, a.Mean, b.Mean)
	assert.Equal(t, a.BestPosition, b.BestPosition)
	assert.Equal(t, 4*15*101, a.Evaluations)
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	err := WriteTable(&buf, []Summary{
		{Function: "De Jong", Dims: 10, Optimizer: "gwo", Trials: make([]Trial, 30), Min: 1e-9, Optimum: 0},
		{Function: "Langermann", Dims: 2, Optimizer: "gwo", Trials: make([]Trial, 30), Optimum: math.NaN()},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "FUNCTION"))
	assert.Contains(t, lines[2], "De Jong")
	assert.Contains(t, lines[2], "1e-09")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(lines[3]), "-"))
}
