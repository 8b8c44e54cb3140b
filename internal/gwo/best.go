package gwo

import (
	"math"
	"sync"
)

// Origin identifies which wolf produced a fitness value.
type Origin struct {
	Iteration int
	Index     int
}

// Best is the best position/fitness pair seen over a whole run.
// It only ever improves and is safe for concurrent use.
type Best struct {
	mu       sync.Mutex
	set      bool
	position []float64
	fitness  float64
	origin   Origin
}

// NewBest creates an empty record holding the worst possible fitness.
func NewBest() *Best {
	return &Best{fitness: math.Inf(1)}
}

// TryImprove replaces the record with (position, fitness) when fitness is strictly
// better. A tie inside the same iteration is resolved toward the lower wolf index,
// which keeps concurrent evaluation reproducible. NaN never improves the record.
// The position is copied, and the pair is written as one unit.
func (b *Best) TryImprove(origin Origin, position []float64, fitness float64) bool {
	if math.IsNaN(fitness) {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	improved := !b.set || fitness < b.fitness ||
		(fitness == b.fitness && origin.Iteration == b.origin.Iteration && origin.Index < b.origin.Index)
	if !improved {
		return false
	}

	if b.position == nil || len(b.position) != len(position) {
		b.position = make([]float64, len(position))
	}
	copy(b.position, position)
	b.fitness = fitness
	b.origin = origin
	b.set = true
	return true
}

// Snapshot returns a copy of the recorded position and its fitness.
// ok is false while nothing has been recorded.
func (b *Best) Snapshot() (position []float64, fitness float64, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.set {
		return nil, b.fitness, false
	}
	return append([]float64(nil), b.position...), b.fitness, true
}

// Fitness returns the recorded fitness (+Inf when empty).
func (b *Best) Fitness() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fitness
}
