package gwo

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// MinPopulation is the smallest pack that can form the alpha/beta/delta triad.
const MinPopulation = 3

// Source produces independent uniform draws in [0, 1).
// Both *math/rand.Rand and *math/rand/v2.Rand satisfy it.
type Source interface {
	Float64() float64
}

// Wolf is one candidate solution: a point in the search box and its objective value.
type Wolf struct {
	Position []float64
	Fitness  float64

	// rng is the wolf's private stream for the position update
	rng *rand.Rand
}

// Pack is the fixed-size population of a single run.
type Pack []*Wolf

// NewPack draws size wolves uniformly from the box using src.
// Positions are drawn wolf by wolf, dimension by dimension; afterwards one
// more draw per wolf seeds that wolf's private update stream. All wolves start
// with +Inf fitness. Configuration errors are reported before src is touched.
func NewPack(bounds Bounds, size int, src Source) (Pack, error) {
	if size < MinPopulation {
		return nil, &ConfigError{
			Field:  "population",
			Reason: fmt.Sprintf("must be at least %d, got %d", MinPopulation, size),
		}
	}
	if bounds.Dim() == 0 {
		return nil, &ConfigError{Field: "bounds", Reason: "must have at least one dimension"}
	}
	if src == nil {
		return nil, &ConfigError{Field: "source", Reason: "cannot be nil"}
	}

	pack := make(Pack, size)
	for i := range pack {
		pos := make([]float64, bounds.Dim())
		for j := range pos {
			pos[j] = bounds.Lower[j] + src.Float64()*(bounds.Upper[j]-bounds.Lower[j])
		}
		pack[i] = &Wolf{Position: pos, Fitness: math.Inf(1)}
	}

	for i, w := range pack {
		seed := math.Float64bits(src.Float64())
		w.rng = rand.New(rand.NewPCG(seed, uint64(i)))
	}

	return pack, nil
}

// clone returns a detached copy of the wolf without its random stream.
func (w *Wolf) clone() Wolf {
	return Wolf{
		Position: append([]float64(nil), w.Position...),
		Fitness:  w.Fitness,
	}
}

// moveToward applies the position update rule to every dimension of w.
// Each leader draws its own r1, r2 per dimension from the wolf's stream.
func (w *Wolf) moveToward(leaders Leaders, a float64, bounds Bounds) {
	guides := [3][]float64{leaders.Alpha.Position, leaders.Beta.Position, leaders.Delta.Position}

	for j, x := range w.Position {
		var sum float64
		for _, g := range guides {
			r1 := w.rng.Float64()
			r2 := w.rng.Float64()
			sum += MoveToward(x, g[j], a, r1, r2)
		}
		w.Position[j] = bounds.Clamp(j, sum/3)
	}
}

// MoveToward returns the pull of one leader coordinate on x.
// A = 2*a*r1 - a, C = 2*r2, D = |C*leader - x|, result = leader - A*D.
func MoveToward(x, leader, a, r1, r2 float64) float64 {
	A := 2*a*r1 - a
	C := 2 * r2
	D := math.Abs(C*leader - x)
	return leader - A*D
}
