// Package gwo implements the Grey Wolf Optimizer, a population-based,
// gradient-free minimizer for box-constrained continuous problems.
//
// A pack of wolves is scattered uniformly in the search box. Every iteration
// the pack is evaluated, the three best wolves (alpha, beta, delta) are chosen
// as leaders, and every wolf, leaders included, moves to the average of three
// randomised pulls toward them. A decay parameter shrinks from 2 to 0 over the
// run, shifting the pack from exploration to exploitation.
package gwo

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Objective evaluates a position. Lower values are better.
// It may be called concurrently and must not modify or retain position.
type Objective func(position []float64) (float64, error)

// Func adapts an infallible fitness function to an Objective.
func Func(f func([]float64) float64) Objective {
	return func(position []float64) (float64, error) {
		return f(position), nil
	}
}

// Progress is reported to the Observer after every completed iteration.
type Progress struct {
	Iteration    int // zero-based index of the iteration just completed
	Iterations   int // total iteration budget
	Decay        float64
	AlphaFitness float64
	BestFitness  float64
	BestPosition []float64
	Evaluations  int
}

// Observer is called once per iteration from the iteration goroutine.
// Returning ErrStopped (or an error wrapping it) ends the run normally;
// any other error aborts it.
type Observer func(Progress) error

// Result is the outcome of a run.
type Result struct {
	Position    []float64
	Fitness     float64
	Iterations  int  // iterations completed
	Evaluations int  // objective calls made
	Stopped     bool // ended early by the Observer
}

type settings struct {
	schedule Schedule
	workers  int
	observer Observer
	dims     int
	start    []float64
}

// Option customises a run.
type Option func(*settings)

// WithSchedule replaces the default LinearDecay schedule.
func WithSchedule(s Schedule) Option {
	return func(o *settings) {
		o.schedule = s
	}
}

// WithWorkers sets how many goroutines evaluate and move wolves.
// Values below 1 mean GOMAXPROCS. Results do not depend on this setting.
func WithWorkers(n int) Option {
	return func(o *settings) {
		o.workers = n
	}
}

// WithObserver registers a per-iteration progress callback.
func WithObserver(fn Observer) Option {
	return func(o *settings) {
		o.observer = fn
	}
}

// WithDimensions declares the dimensionality the objective expects so that
// mismatched bounds are rejected up front.
func WithDimensions(d int) Option {
	return func(o *settings) {
		o.dims = d
	}
}

// WithInitialPosition plants position in the first wolf of the initial pack,
// after all random draws, so a run can continue from a saved best point.
func WithInitialPosition(position []float64) Option {
	return func(o *settings) {
		o.start = position
	}
}

// Engine holds the state of one run.
type Engine struct {
	objective  Objective
	bounds     Bounds
	pack       Pack
	best       *Best
	schedule   Schedule
	workers    int
	observer   Observer
	iterations int

	evaluations atomic.Int64
}

// Optimize searches for a minimizer of objective inside [lower, upper] using a pack of
// populationSize wolves for the given number of iterations. src supplies every random
// draw, so a seeded source replays the run bit for bit regardless of worker count.
//
// With iterations == 0 the result is the best wolf of the initial pack.
func Optimize(objective Objective, lower, upper []float64, populationSize, iterations int, src Source, opts ...Option) (Result, error) {
	e, err := NewEngine(objective, lower, upper, populationSize, iterations, src, opts...)
	if err != nil {
		return Result{}, err
	}
	return e.Run()
}

// NewEngine validates the configuration and draws the initial pack.
func NewEngine(objective Objective, lower, upper []float64, populationSize, iterations int, src Source, opts ...Option) (*Engine, error) {
	cfg := settings{schedule: LinearDecay}
	for _, opt := range opts {
		opt(&cfg)
	}

	if objective == nil {
		return nil, &ConfigError{Field: "objective", Reason: "cannot be nil"}
	}
	if src == nil {
		return nil, &ConfigError{Field: "source", Reason: "cannot be nil"}
	}
	if cfg.schedule == nil {
		return nil, &ConfigError{Field: "schedule", Reason: "cannot be nil"}
	}
	if iterations < 0 {
		return nil, &ConfigError{Field: "iterations", Reason: fmt.Sprintf("cannot be negative, got %d", iterations)}
	}
	if populationSize < MinPopulation {
		return nil, &ConfigError{
			Field:  "population",
			Reason: fmt.Sprintf("must be at least %d, got %d", MinPopulation, populationSize),
		}
	}

	bounds, err := NewBounds(lower, upper)
	if err != nil {
		return nil, err
	}
	if cfg.dims > 0 && bounds.Dim() != cfg.dims {
		return nil, &ConfigError{
			Field:  "bounds",
			Reason: fmt.Sprintf("objective expects %d dimensions, bounds have %d", cfg.dims, bounds.Dim()),
		}
	}

	if cfg.start != nil {
		if len(cfg.start) != bounds.Dim() || !bounds.Contains(cfg.start) {
			return nil, &ConfigError{Field: "initial position", Reason: "must lie inside the bounds"}
		}
	}

	workers := cfg.workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}

	pack, err := NewPack(bounds, populationSize, src)
	if err != nil {
		return nil, err
	}
	if cfg.start != nil {
		copy(pack[0].Position, cfg.start)
	}

	return &Engine{
		objective:  objective,
		bounds:     bounds,
		pack:       pack,
		best:       NewBest(),
		schedule:   cfg.schedule,
		workers:    workers,
		observer:   cfg.observer,
		iterations: iterations,
	}, nil
}

// Run drives the iteration loop to completion.
func (e *Engine) Run() (Result, error) {
	slog.Debug("GWO run starting",
		"dims", e.bounds.Dim(),
		"population", len(e.pack),
		"iterations", e.iterations,
		"workers", e.workers,
	)

	completed := 0
	stopped := false

	for t := 0; t < e.iterations; t++ {
		if err := e.evaluate(t); err != nil {
			return e.result(completed, false), err
		}

		leaders, err := SelectLeaders(e.pack)
		if err != nil {
			return e.result(completed, false), err
		}

		a := e.schedule(e.iterations, t)
		e.update(leaders, a)
		completed++

		slog.Debug("GWO iteration",
			"iteration", t,
			"decay", a,
			"alpha", leaders.Alpha.Fitness,
			"beta", leaders.Beta.Fitness,
			"delta", leaders.Delta.Fitness,
		)

		if e.observer != nil {
			if err := e.notify(t, a, leaders); err != nil {
				if errors.Is(err, ErrStopped) {
					stopped = true
					break
				}
				return e.result(completed, false), fmt.Errorf("gwo: observer: %w", err)
			}
		}
	}

	// Score the final positions so the last update is not thrown away.
	if err := e.evaluate(completed); err != nil {
		return e.result(completed, stopped), err
	}

	res := e.result(completed, stopped)
	slog.Debug("GWO run complete",
		"iterations", res.Iterations,
		"evaluations", res.Evaluations,
		"best_fitness", res.Fitness,
		"stopped", res.Stopped,
	)
	return res, nil
}

func (e *Engine) notify(t int, a float64, leaders Leaders) error {
	pos, fit, _ := e.best.Snapshot()
	return e.observer(Progress{
		Iteration:    t,
		Iterations:   e.iterations,
		Decay:        a,
		AlphaFitness: leaders.Alpha.Fitness,
		BestFitness:  fit,
		BestPosition: pos,
		Evaluations:  int(e.evaluations.Load()),
	})
}

// evaluate scores every wolf and folds improvements into the best record.
func (e *Engine) evaluate(t int) error {
	return e.forEach(func(i int, w *Wolf) error {
		f, err := e.objective(w.Position)
		e.evaluations.Add(1)
		if err != nil {
			return &EvaluationError{Iteration: t, Index: i, Err: err}
		}
		w.Fitness = f
		e.best.TryImprove(Origin{Iteration: t, Index: i}, w.Position, f)
		return nil
	})
}

// update moves every wolf, leaders included, toward the leader copies.
func (e *Engine) update(leaders Leaders, a float64) {
	_ = e.forEach(func(_ int, w *Wolf) error {
		w.moveToward(leaders, a, e.bounds)
		return nil
	})
}

// forEach runs fn over the pack, in order when a single worker is configured.
func (e *Engine) forEach(fn func(i int, w *Wolf) error) error {
	if e.workers == 1 {
		for i, w := range e.pack {
			if err := fn(i, w); err != nil {
				return err
			}
		}
		return nil
	}

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, w := range e.pack {
		g.Go(func() error {
			return fn(i, w)
		})
	}
	return g.Wait()
}

func (e *Engine) result(completed int, stopped bool) Result {
	res := Result{
		Iterations:  completed,
		Evaluations: int(e.evaluations.Load()),
		Stopped:     stopped,
	}

	pos, fit, ok := e.best.Snapshot()
	if !ok {
		// Every evaluation so far was NaN or none happened; fall back to the first wolf.
		pos = append([]float64(nil), e.pack[0].Position...)
		fit = e.pack[0].Fitness
	}
	res.Position = pos
	res.Fitness = fit
	return res
}
