package main

import (
	"encoding/json"
	"strings"
	"testing"
)

func setRunFlags(t *testing.T, fn string, d, it, pop int, s int64, opt string) {
	t.Helper()
	old := struct {
		function, optimizerName string
		dims, iters, popSize    int
		workers, patience       int
		seed                    int64
		jsonOutput              bool
	}{function, optimizerName, dims, iters, popSize, workers, patience, seed, jsonOutput}
	t.Cleanup(func() {
		function, optimizerName = old.function, old.optimizerName
		dims, iters, popSize = old.dims, old.iters, old.popSize
		workers, patience = old.workers, old.patience
		seed, jsonOutput = old.seed, old.jsonOutput
	})

	function, dims, iters, popSize, seed, optimizerName = fn, d, it, pop, s, opt
	workers, patience = 1, 0
	jsonOutput = true
}

func TestRunOptimization_JSON(t *testing.T) {
	setRunFlags(t, "dejong", 3, 20, 8, 3, "gwo")

	cmd, out := testCommand("")
	if err := runOptimization(cmd, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	var res runResult
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("Invalid JSON output: %v\n%s", err, out.String())
	}
	if res.Function != "dejong" || res.Optimizer != "gwo" || res.Dims != 3 {
		t.Errorf("Unexpected header: %+v", res)
	}
	if res.Evaluations != 8*21 {
		t.Errorf("Expected %d evaluations, got %d", 8*21, res.Evaluations)
	}
	if len(res.Position) != 3 {
		t.Errorf("Expected 3 coordinates, got %d", len(res.Position))
	}
	if res.Optimum == nil || *res.Optimum != 0 {
		t.Errorf("Expected optimum 0, got %v", res.Optimum)
	}
}

func TestRunOptimization_Deterministic(t *testing.T) {
	setRunFlags(t, "rastrigin", 2, 30, 10, 42, "gwo")

	first, out1 := testCommand("")
	if err := runOptimization(first, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	second, out2 := testCommand("")
	if err := runOptimization(second, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	var a, b runResult
	if err := json.Unmarshal(out1.Bytes(), &a); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(out2.Bytes(), &b); err != nil {
		t.Fatal(err)
	}
	if a.Fitness != b.Fitness {
		t.Errorf("Same seed gave %g and %g", a.Fitness, b.Fitness)
	}
}

func TestRunOptimization_Text(t *testing.T) {
	setRunFlags(t, "langermann", 0, 10, 6, 1, "gwo")
	jsonOutput = false

	cmd, out := testCommand("")
	if err := runOptimization(cmd, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "Function:    langermann (2 dims)") {
		t.Errorf("Unexpected output:\n%s", text)
	}
	if strings.Contains(text, "Optimum:") {
		t.Errorf("Unknown optimum printed:\n%s", text)
	}
}

func TestRunOptimization_Errors(t *testing.T) {
	setRunFlags(t, "nope", 2, 10, 6, 1, "gwo")
	cmd, _ := testCommand("")
	if err := runOptimization(cmd, nil); err == nil {
		t.Error("Expected error for unknown function")
	}

	function, optimizerName = "dejong", "simplex"
	if err := runOptimization(cmd, nil); err == nil {
		t.Error("Expected error for unknown optimizer")
	}

	function, optimizerName, dims = "branin", "gwo", 5
	if err := runOptimization(cmd, nil); err == nil {
		t.Error("Expected error for wrong dimensionality of a fixed function")
	}
}

func TestRunBench(t *testing.T) {
	old := struct {
		fns                 []string
		d, tr, par, it, pop int
		opt                 string
		s                   int64
	}{benchFunctions, benchDims, benchTrials, benchParallel, benchIters, benchPop, benchOptimizer, benchSeed}
	t.Cleanup(func() {
		benchFunctions, benchDims, benchTrials, benchParallel = old.fns, old.d, old.tr, old.par
		benchIters, benchPop, benchOptimizer, benchSeed = old.it, old.pop, old.opt, old.s
	})

	benchFunctions = []string{"dejong", "branin"}
	benchDims, benchTrials, benchParallel = 3, 4, 2
	benchIters, benchPop, benchOptimizer, benchSeed = 15, 6, "gwo", 1

	cmd, out := testCommand("")
	if err := runBench(cmd, nil); err != nil {
		t.Fatalf("bench failed: %v", err)
	}

	text := out.String()
	for _, want := range []string{"FUNCTION", "De Jong", "Branin", "gwo"} {
		if !strings.Contains(text, want) {
			t.Errorf("Output missing %q:\n%s", want, text)
		}
	}

	benchFunctions = []string{"nope"}
	if err := runBench(cmd, nil); err == nil {
		t.Error("Expected error for unknown function")
	}
}

func TestListFunctions(t *testing.T) {
	old := functionsDims
	t.Cleanup(func() { functionsDims = old })
	functionsDims = 0

	cmd, out := testCommand("")
	if err := runListFunctions(cmd, nil); err != nil {
		t.Fatalf("functions failed: %v", err)
	}

	text := out.String()
	for _, want := range []string{"KEY", "rastrigin", "2+", "[-5.12, 5.12]", "[-5, 10] x [0, 15]"} {
		if !strings.Contains(text, want) {
			t.Errorf("Output missing %q:\n%s", want, text)
		}
	}
}

func TestFormatBox(t *testing.T) {
	if got := formatBox([]float64{-1, -1}, []float64{1, 1}); got != "[-1, 1]" {
		t.Errorf("uniform box formatted as %q", got)
	}
	if got := formatBox([]float64{-5, 0}, []float64{10, 15}); got != "[-5, 10] x [0, 15]" {
		t.Errorf("mixed box formatted as %q", got)
	}
}
