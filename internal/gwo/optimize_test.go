package gwo

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Sphere function: f(x) = sum(x_i^2), minimum at origin
func sphere(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return sum
}

func uniformBounds(dim int, lo, hi float64) ([]float64, []float64) {
	lower := make([]float64, dim)
	upper := make([]float64, dim)
	for i := range lower {
		lower[i] = lo
		upper[i] = hi
	}
	return lower, upper
}

// countingSource records how many draws were taken.
type countingSource struct {
	src   *rand.Rand
	draws int
}

func (c *countingSource) Float64() float64 {
	c.draws++
	return c.src.Float64()
}

func TestOptimizeSphereConverges(t *testing.T) {
	lower, upper := uniformBounds(10, -5.12, 5.12)

	for seed := int64(1); seed <= 5; seed++ {
		res, err := Optimize(Func(sphere), lower, upper, 20, 500, rand.New(rand.NewSource(seed)))
		require.NoError(t, err)
		assert.Len(t, res.Position, 10)
		assert.Less(t, res.Fitness, 1.0, "seed %d", seed)
		assert.Equal(t, 500, res.Iterations)
		assert.Equal(t, 20*501, res.Evaluations)
		assert.InDelta(t, sphere(res.Position), res.Fitness, 1e-12)
	}
}

func TestOptimizeDeterministicReplay(t *testing.T) {
	lower, upper := uniformBounds(5, -10, 10)

	run := func(workers int) Result {
		res, err := Optimize(Func(sphere), lower, upper, 15, 60,
			rand.New(rand.NewSource(99)), WithWorkers(workers))
		require.NoError(t, err)
		return res
	}

	first := run(1)
	second := run(1)
	parallel := run(8)

	assert.Equal(t, first.Position, second.Position)
	assert.Equal(t, math.Float64bits(first.Fitness), math.Float64bits(second.Fitness))
	assert.Equal(t, first.Position, parallel.Position, "worker count must not change the result")
	assert.Equal(t, math.Float64bits(first.Fitness), math.Float64bits(parallel.Fitness))
}

func TestOptimizeZeroIterationsReturnsBestInitialWolf(t *testing.T) {
	lower := []float64{-3, 0, 10}
	upper := []float64{3, 1, 20}
	const pop = 7

	res, err := Optimize(Func(sphere), lower, upper, pop, 0, rand.New(rand.NewSource(5)))
	require.NoError(t, err)

	// Rebuild the initial pack from an identically seeded source.
	replay := rand.New(rand.NewSource(5))
	want := math.Inf(1)
	var wantPos []float64
	for i := 0; i < pop; i++ {
		pos := make([]float64, len(lower))
		for j := range pos {
			pos[j] = lower[j] + replay.Float64()*(upper[j]-lower[j])
		}
		if f := sphere(pos); f < want {
			want = f
			wantPos = pos
		}
	}

	assert.Equal(t, want, res.Fitness)
	assert.Equal(t, wantPos, res.Position)
	assert.Equal(t, 0, res.Iterations)
	assert.Equal(t, pop, res.Evaluations)
}

func TestOptimizeKeepsEveryPositionInBounds(t *testing.T) {
	lower := []float64{-1, 2, -100, 0.5}
	upper := []float64{1, 2.5, -90, 0.5}
	b, err := NewBounds(lower, upper)
	require.NoError(t, err)

	var outside atomic.Int64
	obj := Func(func(x []float64) float64 {
		if !b.Contains(x) {
			outside.Add(1)
		}
		// Pull hard toward a corner outside the box to stress clamping.
		var s float64
		for _, v := range x {
			s += (v - 1000) * (v - 1000)
		}
		return s
	})

	res, err := Optimize(obj, lower, upper, 12, 80, rand.New(rand.NewSource(3)), WithWorkers(4))
	require.NoError(t, err)
	assert.Zero(t, outside.Load())
	assert.True(t, b.Contains(res.Position))
	assert.Equal(t, 0.5, res.Position[3], "degenerate dimension stays fixed")
}

func TestOptimizeStaysInBoundsNearFloatLimits(t *testing.T) {
	// The box width is finite, but C*leader overflows during the update.
	lower := []float64{0, -8e307}
	upper := []float64{1e308, 8e307}
	b, err := NewBounds(lower, upper)
	require.NoError(t, err)

	var outside atomic.Int64
	obj := Func(func(x []float64) float64 {
		if !b.Contains(x) {
			outside.Add(1)
		}
		return x[0]/1e308 + math.Abs(x[1])/1e308
	})

	res, err := Optimize(obj, lower, upper, 5, 10, rand.New(rand.NewSource(9)))
	require.NoError(t, err)
	assert.Zero(t, outside.Load())
	assert.True(t, b.Contains(res.Position))
	assert.False(t, math.IsNaN(res.Fitness))
}

func TestOptimizeBestIsMonotonic(t *testing.T) {
	lower, upper := uniformBounds(4, -5, 5)
	var history []float64

	_, err := Optimize(Func(sphere), lower, upper, 10, 100, rand.New(rand.NewSource(11)),
		WithObserver(func(p Progress) error {
			history = append(history, p.BestFitness)
			return nil
		}))
	require.NoError(t, err)
	require.Len(t, history, 100)

	for i := 1; i < len(history); i++ {
		assert.LessOrEqual(t, history[i], history[i-1], "iteration %d", i)
	}
}

func TestOptimizeUsesCustomSchedule(t *testing.T) {
	lower, upper := uniformBounds(2, -1, 1)
	var calls [][2]int

	schedule := func(total, current int) float64 {
		calls = append(calls, [2]int{total, current})
		return 0.5
	}

	var decays []float64
	_, err := Optimize(Func(sphere), lower, upper, 5, 4, rand.New(rand.NewSource(1)),
		WithSchedule(schedule),
		WithObserver(func(p Progress) error {
			decays = append(decays, p.Decay)
			return nil
		}))
	require.NoError(t, err)

	assert.Equal(t, [][2]int{{4, 0}, {4, 1}, {4, 2}, {4, 3}}, calls)
	assert.Equal(t, []float64{0.5, 0.5, 0.5, 0.5}, decays)
}

func TestOptimizeObserverStop(t *testing.T) {
	lower, upper := uniformBounds(3, -5, 5)

	res, err := Optimize(Func(sphere), lower, upper, 6, 100, rand.New(rand.NewSource(2)),
		WithObserver(func(p Progress) error {
			if p.Iteration == 9 {
				return ErrStopped
			}
			return nil
		}))
	require.NoError(t, err)
	assert.True(t, res.Stopped)
	assert.Equal(t, 10, res.Iterations)
	assert.Equal(t, 6*11, res.Evaluations)
}

func TestOptimizeObserverErrorAborts(t *testing.T) {
	lower, upper := uniformBounds(3, -5, 5)
	boom := errors.New("boom")

	_, err := Optimize(Func(sphere), lower, upper, 6, 100, rand.New(rand.NewSource(2)),
		WithObserver(func(p Progress) error { return boom }))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestOptimizeObjectiveErrorPropagates(t *testing.T) {
	lower, upper := uniformBounds(2, -1, 1)
	bad := errors.New("dimension mismatch")

	var calls atomic.Int64
	obj := func(x []float64) (float64, error) {
		if calls.Add(1) > 12 {
			return 0, bad
		}
		return sphere(x), nil
	}

	_, err := Optimize(obj, lower, upper, 4, 10, rand.New(rand.NewSource(1)), WithWorkers(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, bad)

	var evalErr *EvaluationError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, 3, evalErr.Iteration)
	assert.Equal(t, 0, evalErr.Index)
}

func TestOptimizeRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name  string
		lower []float64
		upper []float64
		pop   int
		iters int
		opts  []Option
		field string
	}{
		{"inverted bound", []float64{0, 5}, []float64{1, 4}, 5, 10, nil, "bounds"},
		{"length mismatch", []float64{0, 0}, []float64{1}, 5, 10, nil, "bounds"},
		{"empty bounds", nil, nil, 5, 10, nil, "bounds"},
		{"infinite bound", []float64{math.Inf(-1)}, []float64{1}, 5, 10, nil, "bounds"},
		{"width overflows", []float64{0, -math.MaxFloat64}, []float64{1, math.MaxFloat64}, 5, 10, nil, "bounds"},
		{"population too small", []float64{0}, []float64{1}, 2, 10, nil, "population"},
		{"negative iterations", []float64{0}, []float64{1}, 5, -1, nil, "iterations"},
		{"dimension mismatch", []float64{0, 0}, []float64{1, 1}, 5, 10, []Option{WithDimensions(3)}, "bounds"},
		{"nil schedule", []float64{0}, []float64{1}, 5, 10, []Option{WithSchedule(nil)}, "schedule"},
		{"start outside box", []float64{0}, []float64{1}, 5, 10, []Option{WithInitialPosition([]float64{2})}, "initial position"},
		{"start wrong length", []float64{0}, []float64{1}, 5, 10, []Option{WithInitialPosition([]float64{0.5, 0.5})}, "initial position"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &countingSource{src: rand.New(rand.NewSource(1))}
			called := false
			obj := Func(func(x []float64) float64 {
				called = true
				return 0
			})

			_, err := Optimize(obj, tt.lower, tt.upper, tt.pop, tt.iters, src, tt.opts...)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)

			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.Zero(t, src.draws, "no random draws before validation")
			assert.False(t, called, "objective must not run")
		})
	}
}

func TestOptimizeInitialPositionSeedsThePack(t *testing.T) {
	lower, upper := uniformBounds(4, -5, 5)
	start := []float64{0, 0, 0, 0}

	res, err := Optimize(Func(sphere), lower, upper, 8, 0, rand.New(rand.NewSource(3)),
		WithInitialPosition(start))
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Fitness)
	assert.Equal(t, start, res.Position)

	// The planted point is never lost once the pack moves.
	res, err = Optimize(Func(sphere), lower, upper, 8, 30, rand.New(rand.NewSource(3)),
		WithInitialPosition(start))
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Fitness)
}

func TestOptimizeRejectsNilCollaborators(t *testing.T) {
	_, err := Optimize(nil, []float64{0}, []float64{1}, 3, 1, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Optimize(Func(sphere), []float64{0}, []float64{1}, 3, 1, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestOptimizeConcurrentObjectiveCalls(t *testing.T) {
	lower, upper := uniformBounds(3, -2, 2)

	var mu sync.Mutex
	seen := 0
	obj := Func(func(x []float64) float64 {
		mu.Lock()
		seen++
		mu.Unlock()
		return sphere(x)
	})

	res, err := Optimize(obj, lower, upper, 32, 20, rand.New(rand.NewSource(8)), WithWorkers(0))
	require.NoError(t, err)
	assert.Equal(t, 32*21, seen)
	assert.Equal(t, seen, res.Evaluations)
}
