package gwo

import (
	"fmt"
	"math"
)

// Bounds is the per-dimension search box [Lower[i], Upper[i]].
type Bounds struct {
	Lower []float64
	Upper []float64
}

// NewBounds validates and copies the bound vectors.
func NewBounds(lower, upper []float64) (Bounds, error) {
	if len(lower) == 0 {
		return Bounds{}, &ConfigError{Field: "bounds", Reason: "must have at least one dimension"}
	}
	if len(lower) != len(upper) {
		return Bounds{}, &ConfigError{
			Field:  "bounds",
			Reason: fmt.Sprintf("length mismatch: %d lower vs %d upper", len(lower), len(upper)),
		}
	}
	for i := range lower {
		if math.IsNaN(lower[i]) || math.IsInf(lower[i], 0) || math.IsNaN(upper[i]) || math.IsInf(upper[i], 0) {
			return Bounds{}, &ConfigError{
				Field:  "bounds",
				Reason: fmt.Sprintf("dimension %d is not finite", i),
			}
		}
		if lower[i] > upper[i] {
			return Bounds{}, &ConfigError{
				Field:  "bounds",
				Reason: fmt.Sprintf("dimension %d has lower %g > upper %g", i, lower[i], upper[i]),
			}
		}
		if math.IsInf(upper[i]-lower[i], 0) {
			return Bounds{}, &ConfigError{
				Field:  "bounds",
				Reason: fmt.Sprintf("dimension %d is wider than float64 can represent", i),
			}
		}
	}

	return Bounds{
		Lower: append([]float64(nil), lower...),
		Upper: append([]float64(nil), upper...),
	}, nil
}

// Dim returns the dimensionality of the box.
func (b Bounds) Dim() int {
	return len(b.Lower)
}

// Clamp limits x to the range of dimension j. NaN, which min and max pass
// through, maps to the lower bound.
func (b Bounds) Clamp(j int, x float64) float64 {
	if math.IsNaN(x) {
		return b.Lower[j]
	}
	return min(max(x, b.Lower[j]), b.Upper[j])
}

// Contains reports whether every coordinate of pos lies inside the box.
func (b Bounds) Contains(pos []float64) bool {
	if len(pos) != b.Dim() {
		return false
	}
	for j, x := range pos {
		if !(x >= b.Lower[j] && x <= b.Upper[j]) {
			return false
		}
	}
	return true
}
