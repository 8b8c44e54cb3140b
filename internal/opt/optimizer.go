package opt

import "github.com/cwbudde/greywolf/internal/gwo"

// Result is what every optimizer reports back
type Result struct {
	BestParams  []float64
	BestCost    float64
	Iterations  int
	Evaluations int
	Stopped     bool
}

// Optimizer defines an optimization algorithm interface
type Optimizer interface {
	// Run executes the optimization
	// eval: objective function to minimize
	// lower, upper: parameter bounds (their length is the dimensionality)
	// Returns: best parameters and best cost, or the first objective/configuration error
	Run(eval gwo.Objective, lower, upper []float64) (Result, error)

	// Name identifies the algorithm in logs and reports
	Name() string
}

// Factory builds a fresh optimizer for a given seed, so repeated trials stay independent
type Factory func(seed int64) Optimizer
