package store

import (
	"sort"
	"time"
)

// Store persists run checkpoints. Implementations must be safe for concurrent use.
//
// Load and Delete return an error matching ErrNotFound for unknown jobs; other
// failures are wrapped with fmt.Errorf("...: %w", err).
type Store interface {
	// SaveCheckpoint replaces the job's checkpoint atomically.
	SaveCheckpoint(jobID string, checkpoint *Checkpoint) error

	LoadCheckpoint(jobID string) (*Checkpoint, error)

	// ListCheckpoints returns metadata for every readable checkpoint, newest first.
	ListCheckpoints() ([]CheckpointInfo, error)

	// DeleteCheckpoint removes the checkpoint together with the job's trace.
	DeleteCheckpoint(jobID string) error
}

// ErrNotFound matches any *NotFoundError under errors.Is.
var ErrNotFound = &NotFoundError{}

// NotFoundError reports a missing checkpoint or trace.
type NotFoundError struct {
	JobID string
}

func (e *NotFoundError) Error() string {
	if e.JobID != "" {
		return "checkpoint not found: " + e.JobID
	}
	return "checkpoint not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

// RetentionPolicy selects checkpoints to clean up. Zero values disable a rule.
type RetentionPolicy struct {
	KeepLast  int           // keep only the newest N checkpoints
	OlderThan time.Duration // delete checkpoints older than this
}

// SelectForDeletion applies policy to infos as of now. A checkpoint is selected
// when either rule matches it; the result is ordered oldest first.
func SelectForDeletion(infos []CheckpointInfo, policy RetentionPolicy, now time.Time) []CheckpointInfo {
	sorted := append([]CheckpointInfo(nil), infos...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	excess := 0
	if policy.KeepLast > 0 && len(sorted) > policy.KeepLast {
		excess = len(sorted) - policy.KeepLast
	}

	var selected []CheckpointInfo
	for i, info := range sorted {
		tooOld := policy.OlderThan > 0 && info.Timestamp.Before(now.Add(-policy.OlderThan))
		if i < excess || tooOld {
			selected = append(selected, info)
		}
	}
	return selected
}
