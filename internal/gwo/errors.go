package gwo

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig matches any *ConfigError.
// Use errors.Is(err, ErrInvalidConfig) to check for configuration failures.
var ErrInvalidConfig = &ConfigError{}

// ErrStopped is returned by an Observer to end a run early.
// Optimize treats it as a normal termination and reports Result.Stopped.
var ErrStopped = errors.New("gwo: stopped by observer")

// ConfigError reports a run configuration that was rejected before any work began.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "gwo: invalid configuration"
	}
	return "gwo: invalid " + e.Field + ": " + e.Reason
}

func (e *ConfigError) Is(target error) bool {
	_, ok := target.(*ConfigError)
	return ok
}

// EvaluationError wraps a failure of the objective for one wolf.
// The run is aborted; the objective error is available through errors.Unwrap.
type EvaluationError struct {
	Iteration int
	Index     int
	Err       error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("gwo: objective failed for wolf %d at iteration %d: %v", e.Index, e.Iteration, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}
