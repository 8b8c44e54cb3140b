package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

const (
	// subscriberBuffer is how many events a slow SSE client may lag behind
	// before it starts missing them.
	subscriberBuffer = 16
	pingInterval     = 30 * time.Second
)

// ProgressEvent is one frame of a job's SSE stream.
type ProgressEvent struct {
	JobID        string    `json:"jobId"`
	State        JobState  `json:"state"`
	Iteration    int       `json:"iteration"`
	Iters        int       `json:"iters"`
	BestFitness  float64   `json:"bestFitness"`
	AlphaFitness float64   `json:"alphaFitness"`
	Decay        float64   `json:"decay"`
	Evaluations  int       `json:"evaluations"`
	Timestamp    time.Time `json:"timestamp"`
}

// topic is the fan-out state of one job.
type topic struct {
	subs map[chan ProgressEvent]struct{}
	last *ProgressEvent
}

// EventBroadcaster fans worker progress out to SSE subscribers, one topic per job.
// A late subscriber first receives the most recent event of its job.
type EventBroadcaster struct {
	mu     sync.Mutex
	topics map[string]*topic
}

func NewEventBroadcaster() *EventBroadcaster {
	return &EventBroadcaster{topics: make(map[string]*topic)}
}

// topicLocked returns the job's topic, creating it. eb.mu must be held.
func (eb *EventBroadcaster) topicLocked(jobID string) *topic {
	t, ok := eb.topics[jobID]
	if !ok {
		t = &topic{subs: make(map[chan ProgressEvent]struct{})}
		eb.topics[jobID] = t
	}
	return t
}

// Subscribe registers a new channel for jobID.
func (eb *EventBroadcaster) Subscribe(jobID string) chan ProgressEvent {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	t := eb.topicLocked(jobID)
	ch := make(chan ProgressEvent, subscriberBuffer)
	t.subs[ch] = struct{}{}
	if t.last != nil {
		ch <- *t.last
	}

	slog.Debug("SSE client subscribed", "job_id", jobID, "subscribers", len(t.subs))
	return ch
}

// Unsubscribe closes ch. Calling it for a channel already closed by
// CleanupJob is a no-op.
func (eb *EventBroadcaster) Unsubscribe(jobID string, ch chan ProgressEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	t, ok := eb.topics[jobID]
	if !ok {
		return
	}
	if _, ok := t.subs[ch]; ok {
		delete(t.subs, ch)
		close(ch)
	}
	if len(t.subs) == 0 && t.last == nil {
		delete(eb.topics, jobID)
	}
	slog.Debug("SSE client unsubscribed", "job_id", jobID)
}

// Broadcast never blocks: a subscriber whose buffer is full misses the event.
func (eb *EventBroadcaster) Broadcast(event ProgressEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	t := eb.topicLocked(event.JobID)
	t.last = &event

	for ch := range t.subs {
		select {
		case ch <- event:
		default:
			slog.Warn("SSE subscriber lagging, event dropped", "job_id", event.JobID, "iteration", event.Iteration)
		}
	}
}

// Subscribers reports how many clients follow a job.
func (eb *EventBroadcaster) Subscribers(jobID string) int {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if t, ok := eb.topics[jobID]; ok {
		return len(t.subs)
	}
	return 0
}

// CleanupJob closes every subscriber of the job and forgets its last event.
func (eb *EventBroadcaster) CleanupJob(jobID string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	t, ok := eb.topics[jobID]
	if !ok {
		return
	}
	for ch := range t.subs {
		close(ch)
	}
	delete(eb.topics, jobID)
	slog.Debug("SSE topic removed", "job_id", jobID)
}

// handleJobStream handles GET /api/v1/jobs/{id}/stream. The first frame is the
// job as it is now; the stream ends after the frame carrying a final state.
func (s *Server) handleJobStream(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events := s.jobManager.broadcaster.Subscribe(jobID)
	defer s.jobManager.broadcaster.Unsubscribe(jobID, events)

	send := func(event ProgressEvent) bool {
		if err := writeSSEEvent(w, event); err != nil {
			slog.Warn("SSE write failed", "job_id", jobID, "error", err)
			return false
		}
		flusher.Flush()
		return !event.State.Terminal()
	}

	if !send(ProgressEvent{
		JobID:       job.ID,
		State:       job.State,
		Iteration:   job.Iteration,
		Iters:       job.Config.Iters,
		BestFitness: job.BestFitness,
		Evaluations: job.Evaluations,
		Timestamp:   time.Now(),
	}) {
		return
	}

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			slog.Debug("SSE client disconnected", "job_id", jobID)
			return
		case event, ok := <-events:
			if !ok || !send(event) {
				return
			}
		case <-ping.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

// writeSSEEvent writes one frame named after the job state, with the
// iteration as its event id.
func writeSSEEvent(w http.ResponseWriter, event ProgressEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", event.Iteration, event.State, data)
	return err
}
