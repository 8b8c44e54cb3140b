package opt

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/greywolf/internal/gwo"
)

// Sphere function: f(x) = sum(x_i^2), minimum at origin
func sphere(x []float64) (float64, error) {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return sum, nil
}

func TestGreyWolfAdapterOnSphere(t *testing.T) {
	optimizer := NewGreyWolf(200, 20, 42) // maxIters, popSize, seed

	dim := 3
	lower := make([]float64, dim)
	upper := make([]float64, dim)
	for i := 0; i < dim; i++ {
		lower[i] = -10
		upper[i] = 10
	}

	res, err := optimizer.Run(sphere, lower, upper)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(res.BestParams) != dim {
		t.Fatalf("Expected %d parameters, got %d", dim, len(res.BestParams))
	}

	if res.BestCost > 1e-6 {
		t.Errorf("Expected cost near 0, got %g", res.BestCost)
	}

	for i, v := range res.BestParams {
		if math.Abs(v) > 1e-2 {
			t.Errorf("Parameter %d = %f, expected near 0", i, v)
		}
	}

	if optimizer.Name() != "gwo" {
		t.Errorf("Unexpected name %q", optimizer.Name())
	}
}

func TestGreyWolfAdapterDeterministic(t *testing.T) {
	lower := []float64{-5, -5}
	upper := []float64{5, 5}

	factory := GreyWolfFactory(50, 10, gwo.WithWorkers(4))
	res1, err1 := factory(123).Run(sphere, lower, upper)
	res2, err2 := factory(123).Run(sphere, lower, upper)
	if err1 != nil || err2 != nil {
		t.Fatalf("Run failed: %v / %v", err1, err2)
	}

	if res1.BestCost != res2.BestCost {
		t.Errorf("Non-deterministic: cost1=%g, cost2=%g", res1.BestCost, res2.BestCost)
	}
}

func TestGreyWolfAdapterPropagatesErrors(t *testing.T) {
	failing := func(x []float64) (float64, error) {
		return 0, errors.New("objective exploded")
	}

	_, err := NewGreyWolf(10, 5, 1).Run(failing, []float64{0}, []float64{1})
	var evalErr *gwo.EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("Expected EvaluationError, got %v", err)
	}

	_, err = NewGreyWolf(10, 2, 1).Run(sphere, []float64{0}, []float64{1})
	if !errors.Is(err, gwo.ErrInvalidConfig) {
		t.Errorf("Expected config error for population 2, got %v", err)
	}
}
