package opt

import (
	"math/rand"

	"github.com/cwbudde/greywolf/internal/gwo"
)

// GreyWolfAdapter runs the gwo engine behind the Optimizer interface
type GreyWolfAdapter struct {
	maxIters int
	popSize  int
	seed     int64
	options  []gwo.Option
}

// NewGreyWolf creates a Grey Wolf optimizer. The seed fixes every random draw,
// so two adapters with the same arguments return identical results.
func NewGreyWolf(maxIters, popSize int, seed int64, options ...gwo.Option) *GreyWolfAdapter {
	return &GreyWolfAdapter{
		maxIters: maxIters,
		popSize:  popSize,
		seed:     seed,
		options:  options,
	}
}

// GreyWolfFactory returns a Factory producing Grey Wolf optimizers with shared settings
func GreyWolfFactory(maxIters, popSize int, options ...gwo.Option) Factory {
	return func(seed int64) Optimizer {
		return NewGreyWolf(maxIters, popSize, seed, options...)
	}
}

// Name implements Optimizer
func (g *GreyWolfAdapter) Name() string {
	return "gwo"
}

// Run executes the Grey Wolf optimization
func (g *GreyWolfAdapter) Run(eval gwo.Objective, lower, upper []float64) (Result, error) {
	src := rand.New(rand.NewSource(g.seed))

	res, err := gwo.Optimize(eval, lower, upper, g.popSize, g.maxIters, src, g.options...)
	if err != nil {
		return Result{}, err
	}

	return Result{
		BestParams:  res.Position,
		BestCost:    res.Fitness,
		Iterations:  res.Iterations,
		Evaluations: res.Evaluations,
		Stopped:     res.Stopped,
	}, nil
}
