package opt

import (
	"math"
	"math/rand"
	"testing"

	"github.com/cwbudde/greywolf/internal/gwo"
)

func TestConvergenceTracker_BasicConvergence(t *testing.T) {
	config := ConvergenceConfig{
		Enabled:   true,
		Patience:  3,
		Threshold: 0.01, // 1% improvement required
	}
	tracker := NewConvergenceTracker(config)

	if tracker.BestCost() != math.Inf(1) {
		t.Errorf("Expected initial best cost to be Inf, got %v", tracker.BestCost())
	}

	if tracker.Update(1.0) {
		t.Error("Should not converge on first update")
	}

	// 20% improvement resets the stale counter
	if tracker.Update(0.8) {
		t.Error("Should not converge after improvement")
	}
	if tracker.StaleCount() != 0 {
		t.Errorf("Expected stale count 0 after improvement, got %v", tracker.StaleCount())
	}

	// Below-threshold gains relative to 0.8
	for i, cost := range []float64{0.799, 0.798} {
		if tracker.Update(cost) {
			t.Errorf("Should not converge yet (%d/3)", i+1)
		}
	}

	if !tracker.Update(0.797) {
		t.Error("Should converge after patience exceeded (3/3)")
	}
	if tracker.StaleCount() != 3 {
		t.Errorf("Expected stale count 3, got %v", tracker.StaleCount())
	}
	if tracker.BestCost() != 0.797 {
		t.Errorf("Expected best cost 0.797, got %v", tracker.BestCost())
	}
}

func TestConvergenceTracker_ZeroCost(t *testing.T) {
	tracker := NewConvergenceTracker(ConvergenceConfig{Enabled: true, Patience: 2, Threshold: 1e-9})

	tracker.Update(0)
	if tracker.Update(0) {
		t.Error("Should not converge after one stale update")
	}
	if !tracker.Update(0) {
		t.Error("Flat zero cost should converge after patience")
	}
}

func TestConvergenceTracker_Disabled(t *testing.T) {
	tracker := NewConvergenceTracker(DisabledConvergenceConfig())

	for i := 0; i < 100; i++ {
		if tracker.Update(1.0) {
			t.Error("Should never converge when disabled")
		}
	}
}

func TestConvergenceTracker_HistoryAndReset(t *testing.T) {
	tracker := NewConvergenceTracker(DefaultConvergenceConfig())

	costs := []float64{1.0, 0.9, 0.85, 0.82}
	for _, cost := range costs {
		tracker.Update(cost)
	}

	history := tracker.History()
	if len(history) != len(costs) {
		t.Fatalf("Expected history length %d, got %d", len(costs), len(history))
	}

	history[0] = 999.0
	if tracker.History()[0] == 999.0 {
		t.Error("History() should return a copy, not a reference")
	}

	tracker.Reset()
	if len(tracker.History()) != 0 || tracker.StaleCount() != 0 || !math.IsInf(tracker.BestCost(), 1) {
		t.Error("Reset should clear all state")
	}
}

func TestConvergenceTracker_StopsGreyWolfRun(t *testing.T) {
	tracker := NewConvergenceTracker(ConvergenceConfig{Enabled: true, Patience: 5, Threshold: 0.5})

	// A constant objective never improves after the first iteration
	flat := gwo.Func(func(x []float64) float64 { return 1 })

	res, err := gwo.Optimize(flat, []float64{-1, -1}, []float64{1, 1}, 5, 1000,
		rand.New(rand.NewSource(1)), gwo.WithObserver(tracker.Observer()))
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if !res.Stopped {
		t.Error("Expected the run to stop on convergence")
	}
	if res.Iterations != 6 {
		t.Errorf("Expected 6 iterations before stopping, got %d", res.Iterations)
	}
}
