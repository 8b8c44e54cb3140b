package gwo

import (
	"fmt"
	"math"
)

// Leaders holds detached copies of the three best wolves of an iteration.
type Leaders struct {
	Alpha Wolf
	Beta  Wolf
	Delta Wolf

	// Indices are the pack positions the leaders were taken from.
	Indices [3]int
}

// SelectLeaders returns the three wolves with the lowest fitness.
// Ties go to the lower pack index and NaN ranks behind every number,
// so the result does not depend on evaluation order. Only a partial
// top-3 scan is done; the pack itself is not reordered.
func SelectLeaders(pack Pack) (Leaders, error) {
	if len(pack) < MinPopulation {
		return Leaders{}, &ConfigError{
			Field:  "population",
			Reason: fmt.Sprintf("must be at least %d, got %d", MinPopulation, len(pack)),
		}
	}

	top := [3]int{-1, -1, -1}
	for i, w := range pack {
		for k := range top {
			if top[k] == -1 || ranksBefore(w.Fitness, i, pack[top[k]].Fitness, top[k]) {
				copy(top[k+1:], top[k:2])
				top[k] = i
				break
			}
		}
	}

	return Leaders{
		Alpha:   pack[top[0]].clone(),
		Beta:    pack[top[1]].clone(),
		Delta:   pack[top[2]].clone(),
		Indices: top,
	}, nil
}

// ranksBefore orders (fitness, index) pairs: lower fitness first, NaN last, then lower index.
func ranksBefore(fa float64, ia int, fb float64, ib int) bool {
	aNaN, bNaN := math.IsNaN(fa), math.IsNaN(fb)
	switch {
	case aNaN && bNaN:
		return ia < ib
	case aNaN:
		return false
	case bNaN:
		return true
	case fa != fb:
		return fa < fb
	default:
		return ia < ib
	}
}
