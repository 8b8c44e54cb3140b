package opt

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/cwbudde/mayfly"

	"github.com/cwbudde/greywolf/internal/gwo"
)

// MayflyAdapter wraps the external Mayfly library to conform to our Optimizer interface
type MayflyAdapter struct {
	maxIters int
	popSize  int
	seed     int64
}

// NewMayfly creates a new Mayfly optimizer adapter
func NewMayfly(maxIters, popSize int, seed int64) *MayflyAdapter {
	return &MayflyAdapter{
		maxIters: maxIters,
		popSize:  popSize,
		seed:     seed,
	}
}

// MayflyFactory returns a Factory producing Mayfly optimizers with shared settings
func MayflyFactory(maxIters, popSize int) Factory {
	return func(seed int64) Optimizer {
		return NewMayfly(maxIters, popSize, seed)
	}
}

// Name implements Optimizer
func (m *MayflyAdapter) Name() string {
	return "mayfly"
}

// Run executes the Mayfly optimization using the external library
func (m *MayflyAdapter) Run(eval gwo.Objective, lower, upper []float64) (Result, error) {
	if _, err := gwo.NewBounds(lower, upper); err != nil {
		return Result{}, err
	}

	// External library uses scalar bounds
	for i := range lower {
		if lower[i] != lower[0] || upper[i] != upper[0] {
			return Result{}, &BoundsError{Dimension: i}
		}
	}

	// Mayfly cannot report objective failures, so remember the first one
	var (
		mu      sync.Mutex
		evalErr error
		evals   int
	)
	objective := func(x []float64) float64 {
		v, err := eval(x)
		mu.Lock()
		defer mu.Unlock()
		evals++
		if err != nil && evalErr == nil {
			evalErr = err
		}
		return v
	}

	// Create config for external Mayfly library
	config := mayfly.NewDefaultConfig()

	// Configure the optimizer
	config.ObjectiveFunc = objective
	config.ProblemSize = len(lower)
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize
	config.LowerBound = lower[0]
	config.UpperBound = upper[0]

	// Set random seed for reproducibility
	config.Rand = rand.New(rand.NewSource(m.seed))

	// Run optimization
	result, err := mayfly.Optimize(config)
	if err != nil {
		return Result{}, fmt.Errorf("mayfly: %w", err)
	}
	if evalErr != nil {
		return Result{}, fmt.Errorf("mayfly: objective failed: %w", evalErr)
	}

	return Result{
		BestParams:  result.GlobalBest.Position,
		BestCost:    result.GlobalBest.Cost,
		Iterations:  m.maxIters,
		Evaluations: evals,
	}, nil
}

// BoundsError is returned when an optimizer cannot represent per-dimension bounds
type BoundsError struct {
	Dimension int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("mayfly requires identical bounds in every dimension (dimension %d differs)", e.Dimension)
}
