package opt

import (
	"log/slog"
	"math"

	"github.com/cwbudde/greywolf/internal/gwo"
)

// ConvergenceConfig controls early stopping on a stalled best fitness.
type ConvergenceConfig struct {
	Enabled bool `yaml:"enabled"`

	// Patience is how many consecutive stale iterations end the run.
	Patience int `yaml:"patience"`

	// Threshold is the smallest gain that resets the stale count, measured
	// against the last improving fitness: (last - new) / |last|, or
	// last - new when last is 0.
	Threshold float64 `yaml:"threshold"`
}

func DefaultConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{Enabled: true, Patience: 50, Threshold: 1e-6}
}

func DisabledConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{}
}

// ConvergenceTracker watches the per-iteration best fitness of one run.
// It is not safe for concurrent use; the GWO observer is called from a
// single goroutine.
type ConvergenceTracker struct {
	cfg ConvergenceConfig

	history []float64
	best    float64
	anchor  float64 // fitness at the last significant gain
	stale   int
}

func NewConvergenceTracker(config ConvergenceConfig) *ConvergenceTracker {
	c := &ConvergenceTracker{cfg: config}
	c.Reset()
	return c
}

// Update feeds the next best fitness and reports whether the run has stalled
// for Patience iterations.
func (c *ConvergenceTracker) Update(fitness float64) bool {
	if !c.cfg.Enabled {
		return false
	}

	c.history = append(c.history, fitness)
	c.best = math.Min(c.best, fitness)

	if len(c.history) == 1 || gain(c.anchor, fitness) >= c.cfg.Threshold {
		c.anchor = fitness
		c.stale = 0
		return false
	}

	c.stale++
	if c.stale < c.cfg.Patience {
		return false
	}
	slog.Info("Best fitness stalled, stopping early",
		"stale_iterations", c.stale,
		"patience", c.cfg.Patience,
		"best_fitness", c.best,
	)
	return true
}

// gain is the relative improvement from anchor to fitness, absolute when
// anchor is 0 and unbounded when anchor is not finite yet.
func gain(anchor, fitness float64) float64 {
	switch {
	case math.IsInf(anchor, 0) || math.IsNaN(anchor):
		if fitness < anchor {
			return math.Inf(1)
		}
		return 0
	case anchor == 0:
		return anchor - fitness
	default:
		return (anchor - fitness) / math.Abs(anchor)
	}
}

// Observer stops a GWO run with gwo.ErrStopped once Update reports a stall.
func (c *ConvergenceTracker) Observer() gwo.Observer {
	return func(p gwo.Progress) error {
		if c.Update(p.BestFitness) {
			return gwo.ErrStopped
		}
		return nil
	}
}

func (c *ConvergenceTracker) BestCost() float64 { return c.best }

// History returns a copy of every fitness passed to Update.
func (c *ConvergenceTracker) History() []float64 {
	return append([]float64(nil), c.history...)
}

func (c *ConvergenceTracker) StaleCount() int { return c.stale }

func (c *ConvergenceTracker) Reset() {
	c.history = c.history[:0]
	c.best = math.Inf(1)
	c.anchor = math.Inf(1)
	c.stale = 0
}
