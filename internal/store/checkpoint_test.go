package store

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"
)

func TestCheckpoint_JSONFieldNames(t *testing.T) {
	cp := createTestCheckpoint("json-job")

	data, err := json.Marshal(cp)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	for _, key := range []string{"jobId", "bestPosition", "bestFitness", "iteration", "evaluations", "timestamp", "config"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("Missing JSON field %q", key)
		}
	}

	config := raw["config"].(map[string]any)
	if config["function"] != "rastrigin" {
		t.Errorf("Expected config.function=rastrigin, got %v", config["function"])
	}
	if _, ok := config["checkpointInterval"]; ok {
		t.Error("Zero checkpointInterval should be omitted")
	}
}

func TestCheckpoint_Validate_Valid(t *testing.T) {
	if err := createTestCheckpoint("valid").Validate(); err != nil {
		t.Errorf("Expected valid checkpoint, got %v", err)
	}
}

func TestCheckpoint_Validate_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Checkpoint)
		field  string
	}{
		{"empty job ID", func(c *Checkpoint) { c.JobID = "" }, "JobID"},
		{"nil position", func(c *Checkpoint) { c.BestPosition = nil }, "BestPosition"},
		{"NaN fitness", func(c *Checkpoint) { c.BestFitness = math.NaN() }, "BestFitness"},
		{"infinite fitness", func(c *Checkpoint) { c.BestFitness = math.Inf(1) }, "BestFitness"},
		{"negative iteration", func(c *Checkpoint) { c.Iteration = -1 }, "Iteration"},
		{"negative evaluations", func(c *Checkpoint) { c.Evaluations = -5 }, "Evaluations"},
		{"zero timestamp", func(c *Checkpoint) { c.Timestamp = time.Time{} }, "Timestamp"},
		{"no function", func(c *Checkpoint) { c.Config.Function = "" }, "Config.Function"},
		{"zero dims", func(c *Checkpoint) { c.Config.Dims = 0 }, "Config.Dims"},
		{"negative iters", func(c *Checkpoint) { c.Config.Iters = -1 }, "Config.Iters"},
		{"small pack", func(c *Checkpoint) { c.Config.PopSize = 2 }, "Config.PopSize"},
		{"iteration past budget", func(c *Checkpoint) { c.Iteration = 1001 }, "Iteration"},
		{"dimension mismatch", func(c *Checkpoint) { c.BestPosition = []float64{1, 2} }, "BestPosition"},
		{"non-finite position", func(c *Checkpoint) { c.BestPosition[1] = math.Inf(-1) }, "BestPosition"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cp := createTestCheckpoint("invalid")
			tt.mutate(cp)

			err := cp.Validate()
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if validationErr.Field != tt.field {
				t.Errorf("Expected field %s, got %s", tt.field, validationErr.Field)
			}
		})
	}
}

func TestCheckpoint_IsCompatible(t *testing.T) {
	cp := createTestCheckpoint("compat")

	same := cp.Config
	same.Seed = 7
	same.Iters = 5000
	if err := cp.IsCompatible(same); err != nil {
		t.Errorf("Seed and budget changes should stay compatible, got %v", err)
	}

	other := cp.Config
	other.Function = "ackley"
	var compatErr *CompatibilityError
	if err := cp.IsCompatible(other); !errors.As(err, &compatErr) || compatErr.Field != "Function" {
		t.Errorf("Expected Function mismatch, got %v", err)
	}

	wider := cp.Config
	wider.Dims = 4
	if err := cp.IsCompatible(wider); !errors.As(err, &compatErr) || compatErr.Field != "Dims" {
		t.Errorf("Expected Dims mismatch, got %v", err)
	}
	if compatErr.Expected != "3" || compatErr.Actual != "4" {
		t.Errorf("Unexpected mismatch detail: %s", compatErr.Error())
	}
}

func TestNewCheckpointAndInfo(t *testing.T) {
	pos := []float64{1, 2, 3}
	config := JobConfig{Function: "dejong", Dims: 3, Iters: 100, PopSize: 10, Seed: 1}

	before := time.Now()
	cp := NewCheckpoint("job-1", pos, 14, 40, 820, config)

	pos[0] = 99
	if cp.BestPosition[0] != 1 {
		t.Error("NewCheckpoint should copy the position")
	}
	if cp.Timestamp.Before(before) {
		t.Error("Timestamp should be set to now")
	}
	if cp.Remaining() != 60 {
		t.Errorf("Expected 60 remaining iterations, got %d", cp.Remaining())
	}

	info := cp.ToInfo()
	if info.JobID != "job-1" || info.Function != "dejong" || info.Dims != 3 ||
		info.BestFitness != 14 || info.Iteration != 40 || info.Iters != 100 {
		t.Errorf("Unexpected info: %+v", info)
	}
}
