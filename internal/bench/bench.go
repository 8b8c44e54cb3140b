// Package bench is a catalogue of classic test functions for box-constrained
// minimizers, from http://www.geatbx.com/docu/fcnindex-01.html and
// http://en.wikipedia.org/wiki/Test_functions_for_optimization.
package bench

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/greywolf/internal/gwo"
)

var (
	sin  = math.Sin
	cos  = math.Cos
	abs  = math.Abs
	exp  = math.Exp
	sqrt = math.Sqrt
	pow  = math.Pow
)

// Func is one benchmark objective with its conventional search box.
type Func struct {
	Key   string // lookup key, e.g. "rastrigin"
	Name  string // display name
	Dims  int
	Lower []float64
	Upper []float64
	Eval  func(x []float64) float64

	// Optimum is the known global minimum value, NaN when it is not known
	// for this dimensionality.
	Optimum float64

	// Fixed is set for functions that are only defined for Dims dimensions.
	Fixed bool
}

// Objective wraps Eval so that a position of the wrong length fails the run
// instead of being silently evaluated.
func (f Func) Objective() gwo.Objective {
	return func(x []float64) (float64, error) {
		if len(x) != f.Dims {
			return 0, &DimensionError{Name: f.Name, Want: f.Dims, Got: len(x)}
		}
		return f.Eval(x), nil
	}
}

// DimensionError reports a position or request whose length does not match the function.
type DimensionError struct {
	Name string
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s takes %d dimensions, got %d", e.Name, e.Want, e.Got)
}

// UnknownFunctionError is returned by Lookup for names not in the catalogue.
type UnknownFunctionError struct {
	Name string
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("unknown benchmark function %q", e.Name)
}

type entry struct {
	key   string
	fixed int // 0 for functions scalable to any dimensionality
	build func(dims int) Func
}

var registry = []entry{
	{"dejong", 0, func(n int) Func { return uniform("De Jong", n, -5.12, 5.12, DeJong, 0) }},
	{"axis-parallel-hyper-ellipsoid", 0, func(n int) Func {
		return uniform("Axis Parallel Hyper Ellipsoid", n, -5.12, 5.12, AxisParallelHyperEllipsoid, 0)
	}},
	{"rotated-hyper-ellipsoid", 0, func(n int) Func {
		return uniform("Rotated Hyper Ellipsoid", n, -65.536, 65.536, RotatedHyperEllipsoid, 0)
	}},
	{"rosenbrock", 0, func(n int) Func { return uniform("Rosenbrock Valley", n, -2.048, 2.048, Rosenbrock, 0) }},
	{"rastrigin", 0, func(n int) Func { return uniform("Rastrigin", n, -5.12, 5.12, Rastrigin, 0) }},
	{"schwefel", 0, func(n int) Func {
		return uniform("Schwefel", n, -500, 500, Schwefel, -418.98288727243369*float64(n))
	}},
	{"griewangk", 0, func(n int) Func { return uniform("Griewangk", n, -600, 600, Griewangk, 0) }},
	{"sum-of-different-powers", 0, func(n int) Func {
		return uniform("Sum of Different Powers", n, -1, 1, SumOfDifferentPowers, 0)
	}},
	{"ackley", 0, func(n int) Func {
		return uniform("Ackley", n, -32.768, 32.768, Ackley(20, 0.2, 2*math.Pi), 0)
	}},
	{"michalewicz", 0, func(n int) Func {
		return uniform("Michalewicz", n, 0, math.Pi, Michalewicz(10), michalewiczOptimum(n))
	}},
	{"langermann", 2, func(int) Func {
		return fixed("Langermann", []float64{-10, -10}, []float64{10, 10},
			Langermann(langermannA, langermannC), math.NaN())
	}},
	{"branin", 2, func(int) Func {
		return fixed("Branin", []float64{-5, 0}, []float64{10, 15}, Branin, 0.39788735772973816)
	}},
	{"easom", 2, func(int) Func { return fixed("Easom", []float64{-100, -100}, []float64{100, 100}, Easom, -1) }},
	{"goldstein-price", 2, func(int) Func {
		return fixed("Goldstein-Price", []float64{-2, -2}, []float64{2, 2}, GoldsteinPrice, 3)
	}},
	{"six-hump-camel-back", 2, func(int) Func {
		return fixed("Six-Hump Camel Back", []float64{-3, -2}, []float64{3, 2}, SixHumpCamelBack, -1.031628453489877)
	}},
	{"fifth-dejong", 2, func(int) Func {
		return fixed("Fifth De Jong", []float64{-65.536, -65.536}, []float64{65.536, 65.536}, FifthDeJong, 0.99800383779444)
	}},
	{"drop-wave", 2, func(int) Func {
		return fixed("Drop Wave", []float64{-5.12, -5.12}, []float64{5.12, 5.12}, DropWave, -1)
	}},
	{"shubert", 2, func(int) Func {
		return fixed("Shubert", []float64{-5.12, -5.12}, []float64{5.12, 5.12}, Shubert, -186.7309088310239)
	}},
	{"shekel", 4, func(int) Func {
		return fixed("Shekel", []float64{0, 0, 0, 0}, []float64{10, 10, 10, 10},
			Shekel(shekelA, shekelC), -10.536409816692)
	}},
}

func uniform(name string, dims int, lo, hi float64, eval func([]float64) float64, optimum float64) Func {
	lower := make([]float64, dims)
	upper := make([]float64, dims)
	for i := range lower {
		lower[i] = lo
		upper[i] = hi
	}
	return Func{Name: name, Dims: dims, Lower: lower, Upper: upper, Eval: eval, Optimum: optimum}
}

func fixed(name string, lower, upper []float64, eval func([]float64) float64, optimum float64) Func {
	return Func{Name: name, Dims: len(lower), Lower: lower, Upper: upper, Eval: eval, Optimum: optimum, Fixed: true}
}

func (e entry) make(dims int) Func {
	f := e.build(dims)
	f.Key = e.key
	return f
}

// Catalogue returns every function, the scalable ones built for dims dimensions
// (2 when dims <= 0) and the fixed ones at their own dimensionality.
func Catalogue(dims int) []Func {
	if dims <= 0 {
		dims = 2
	}
	funcs := make([]Func, 0, len(registry))
	for _, e := range registry {
		if e.fixed > 0 {
			funcs = append(funcs, e.make(e.fixed))
			continue
		}
		funcs = append(funcs, e.make(dims))
	}
	return funcs
}

// Lookup finds a function by key (case-insensitive; spaces and underscores
// count as dashes). dims <= 0 selects the function's natural dimensionality,
// which is 2 for scalable functions.
func Lookup(name string, dims int) (Func, error) {
	key := normalize(name)
	for _, e := range registry {
		if e.key != key {
			continue
		}
		if e.fixed > 0 {
			if dims > 0 && dims != e.fixed {
				return Func{}, &DimensionError{Name: e.key, Want: e.fixed, Got: dims}
			}
			return e.make(e.fixed), nil
		}
		if dims <= 0 {
			dims = 2
		}
		return e.make(dims), nil
	}
	return Func{}, &UnknownFunctionError{Name: name}
}

func normalize(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer(" ", "-", "_", "-").Replace(key)
}
