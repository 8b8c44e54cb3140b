package events

import "time"

type JobStartedEvent struct {
	JobID     string    `json:"job_id"`
	Function  string    `json:"function"`
	Dims      int       `json:"dims"`
	PopSize   int       `json:"pop_size"`
	Iters     int       `json:"iters"`
	Seed      int64     `json:"seed"`
	ResumedAt int       `json:"resumed_at,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

type JobProgressEvent struct {
	JobID        string  `json:"job_id"`
	Iteration    int     `json:"iteration"`
	BestFitness  float64 `json:"best_fitness"`
	AlphaFitness float64 `json:"alpha_fitness"`
	Decay        float64 `json:"decay"`
	Evaluations  int     `json:"evaluations"`
}

type JobCompletedEvent struct {
	JobID        string    `json:"job_id"`
	BestFitness  float64   `json:"best_fitness"`
	BestPosition []float64 `json:"best_position"`
	Iterations   int       `json:"iterations"`
	Evaluations  int       `json:"evaluations"`
	Converged    bool      `json:"converged"`
	DurationMs   int64     `json:"duration_ms"`
}

type JobFailedEvent struct {
	JobID string `json:"job_id"`
	Error string `json:"error"`
}

type JobCancelledEvent struct {
	JobID     string `json:"job_id"`
	Iteration int    `json:"iteration"`
}
