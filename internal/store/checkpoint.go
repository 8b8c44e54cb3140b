package store

import (
	"fmt"
	"math"
	"time"
)

// JobConfig is the checkpoint copy of an optimization job's settings.
// It lives here rather than in the server package to avoid an import cycle.
type JobConfig struct {
	Function           string `json:"function"`
	Dims               int    `json:"dims"`
	Iters              int    `json:"iters"`
	PopSize            int    `json:"popSize"`
	Seed               int64  `json:"seed"`
	Workers            int    `json:"workers,omitempty"`
	CheckpointInterval int    `json:"checkpointInterval,omitempty"` // seconds between checkpoints, 0 disables
}

// Checkpoint is the persisted state of a Grey Wolf run.
//
// Only the best position is saved, not the pack. A resumed run draws a fresh
// pack from the job seed and plants the saved best position in it, so the best
// fitness never regresses but the trajectory differs from an uninterrupted run.
type Checkpoint struct {
	JobID string `json:"jobId"`

	// BestPosition is the best point found so far, one value per dimension
	BestPosition []float64 `json:"bestPosition"`
	BestFitness  float64   `json:"bestFitness"`

	// Iteration is the number of completed iterations
	Iteration   int `json:"iteration"`
	Evaluations int `json:"evaluations"`

	Timestamp time.Time `json:"timestamp"`
	Config    JobConfig `json:"config"`
}

// CheckpointInfo is the listing view of a checkpoint.
type CheckpointInfo struct {
	JobID       string    `json:"jobId"`
	Function    string    `json:"function"`
	Dims        int       `json:"dims"`
	BestFitness float64   `json:"bestFitness"`
	Iteration   int       `json:"iteration"`
	Iters       int       `json:"iters"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewCheckpoint stamps a checkpoint with the current time.
func NewCheckpoint(jobID string, bestPosition []float64, bestFitness float64, iteration, evaluations int, config JobConfig) *Checkpoint {
	return &Checkpoint{
		JobID:        jobID,
		BestPosition: append([]float64(nil), bestPosition...),
		BestFitness:  bestFitness,
		Iteration:    iteration,
		Evaluations:  evaluations,
		Timestamp:    time.Now(),
		Config:       config,
	}
}

// ToInfo drops the position vector.
func (c *Checkpoint) ToInfo() CheckpointInfo {
	return CheckpointInfo{
		JobID:       c.JobID,
		Function:    c.Config.Function,
		Dims:        c.Config.Dims,
		BestFitness: c.BestFitness,
		Iteration:   c.Iteration,
		Iters:       c.Config.Iters,
		Timestamp:   c.Timestamp,
	}
}

// Remaining is the iteration budget left for a resumed run.
func (c *Checkpoint) Remaining() int {
	if c.Iteration >= c.Config.Iters {
		return 0
	}
	return c.Config.Iters - c.Iteration
}

// Validate reports the first missing or inconsistent field.
func (c *Checkpoint) Validate() error {
	switch {
	case c.JobID == "":
		return &ValidationError{Field: "JobID", Reason: "cannot be empty"}
	case len(c.BestPosition) == 0:
		return &ValidationError{Field: "BestPosition", Reason: "cannot be empty"}
	case math.IsNaN(c.BestFitness) || math.IsInf(c.BestFitness, 0):
		return &ValidationError{Field: "BestFitness", Reason: "must be finite"}
	case c.Iteration < 0:
		return &ValidationError{Field: "Iteration", Reason: "cannot be negative"}
	case c.Evaluations < 0:
		return &ValidationError{Field: "Evaluations", Reason: "cannot be negative"}
	case c.Timestamp.IsZero():
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	case c.Config.Function == "":
		return &ValidationError{Field: "Config.Function", Reason: "cannot be empty"}
	case c.Config.Dims <= 0:
		return &ValidationError{Field: "Config.Dims", Reason: "must be positive"}
	case c.Config.Iters < 0:
		return &ValidationError{Field: "Config.Iters", Reason: "cannot be negative"}
	case c.Config.PopSize < 3:
		return &ValidationError{Field: "Config.PopSize", Reason: "must be at least 3"}
	case c.Iteration > c.Config.Iters:
		return &ValidationError{
			Field:  "Iteration",
			Reason: fmt.Sprintf("%d exceeds the budget of %d", c.Iteration, c.Config.Iters),
		}
	case len(c.BestPosition) != c.Config.Dims:
		return &ValidationError{
			Field:  "BestPosition",
			Reason: fmt.Sprintf("has %d values for %d dimensions", len(c.BestPosition), c.Config.Dims),
		}
	}
	for i, v := range c.BestPosition {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &ValidationError{Field: "BestPosition", Reason: fmt.Sprintf("value %d is not finite", i)}
		}
	}
	return nil
}

// ValidationError is returned by Validate.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

// IsCompatible reports whether config can continue from this checkpoint: the
// objective and its dimensionality must match.
func (c *Checkpoint) IsCompatible(config JobConfig) error {
	if c.Config.Function != config.Function {
		return &CompatibilityError{Field: "Function", Expected: c.Config.Function, Actual: config.Function}
	}
	if c.Config.Dims != config.Dims {
		return &CompatibilityError{
			Field:    "Dims",
			Expected: fmt.Sprintf("%d", c.Config.Dims),
			Actual:   fmt.Sprintf("%d", config.Dims),
		}
	}
	return nil
}

// CompatibilityError is returned by IsCompatible.
type CompatibilityError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *CompatibilityError) Error() string {
	return "compatibility error: " + e.Field + " mismatch (expected " + e.Expected + ", got " + e.Actual + ")"
}
