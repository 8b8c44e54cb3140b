package server

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cwbudde/greywolf/internal/bench"
	"github.com/cwbudde/greywolf/internal/events"
	"github.com/cwbudde/greywolf/internal/gwo"
	"github.com/cwbudde/greywolf/internal/opt"
	"github.com/cwbudde/greywolf/internal/store"
)

// progressInterval throttles SSE and bus progress events. The job record
// itself is updated every iteration.
const progressInterval = 250 * time.Millisecond

var (
	errNoStore      = errors.New("checkpoint store not configured")
	errNotResumable = errors.New("checkpoint cannot be resumed")
)

// Resume restarts a job from its saved checkpoint under the same ID. The new
// run covers the remaining iterations and starts from the saved best position.
func (s *Server) Resume(jobID string) (*Job, error) {
	if s.store == nil {
		return nil, errNoStore
	}
	cp, err := s.store.LoadCheckpoint(jobID)
	if err != nil {
		return nil, err
	}
	if err := cp.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", errNotResumable, err)
	}
	if cp.Remaining() == 0 {
		return nil, fmt.Errorf("%w: all %d iterations already done", errNotResumable, cp.Config.Iters)
	}
	if existing, ok := s.jobManager.GetJob(jobID); ok && !existing.State.Terminal() {
		return nil, fmt.Errorf("%w: job %s is %s", errNotResumable, jobID, existing.State)
	}

	s.jobManager.broadcaster.CleanupJob(jobID)
	s.jobManager.createJob(jobID, cp.Config)
	s.jobManager.UpdateJob(jobID, func(j *Job) {
		j.ResumedFrom = cp.Iteration
		j.Iteration = cp.Iteration
		j.Evaluations = cp.Evaluations
		j.BestFitness = cp.BestFitness
		j.BestPosition = append([]float64(nil), cp.BestPosition...)
	})
	s.startJob(jobID, cp)

	job, _ := s.jobManager.GetJob(jobID)
	return job, nil
}

// startJob runs the job in the background under a cancellable context.
func (s *Server) startJob(jobID string, resume *store.Checkpoint) {
	ctx, cancel := context.WithCancel(s.ctx)
	s.jobManager.setCancel(jobID, cancel)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		if err := s.runJob(ctx, jobID, resume); err != nil {
			s.logger.Debug("Job worker returned", "job_id", jobID, "error", err)
		}
	}()
}

// jobRun is the worker state carried between observer calls. It is only
// touched from the goroutine driving the optimizer.
type jobRun struct {
	s      *Server
	jobID  string
	config JobConfig

	// offset and baseEvals count work done before a resume
	offset    int
	baseEvals int

	trace   *store.TraceWriter
	tracker *opt.ConvergenceTracker

	best          []float64
	bestFitness   float64
	hasBest       bool
	iteration     int
	evaluations   int
	reportedEvals int
	converged     bool

	lastProgress   time.Time
	lastCheckpoint time.Time
}

// runJob executes an optimization job. It holds one of the server's job
// slots for the duration of the run.
func (s *Server) runJob(ctx context.Context, jobID string, resume *store.Checkpoint) error {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	case <-ctx.Done():
		s.markJobCancelled(jobID, job.Iteration)
		return ctx.Err()
	}

	fn, err := bench.Lookup(job.Config.Function, job.Config.Dims)
	if err != nil {
		s.markJobFailed(jobID, err)
		return err
	}

	run := &jobRun{s: s, jobID: jobID, config: job.Config}
	if resume != nil {
		if err := resume.IsCompatible(job.Config); err != nil {
			s.markJobFailed(jobID, err)
			return err
		}
		run.offset = resume.Iteration
		run.baseEvals = resume.Evaluations
		run.best = resume.BestPosition
		run.bestFitness = resume.BestFitness
		run.hasBest = true
		run.iteration = resume.Iteration
		run.evaluations = resume.Evaluations
	}

	if s.traceDir != "" {
		tw, err := store.NewTraceWriter(s.traceDir, jobID, resume != nil)
		if err != nil {
			s.logger.Warn("Trace disabled for job", "job_id", jobID, "error", err)
		} else {
			run.trace = tw
			defer func() {
				if err := tw.Close(); err != nil {
					s.logger.Warn("Failed to close trace", "job_id", jobID, "error", err)
				}
			}()
		}
	}
	if s.convergence.Enabled {
		run.tracker = opt.NewConvergenceTracker(s.convergence)
	}

	start := time.Now()
	run.lastCheckpoint = start
	s.jobManager.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
		j.StartTime = start
	})
	s.metrics.JobsRunning.Inc()
	defer s.metrics.JobsRunning.Dec()

	s.logger.Info("Starting job",
		"job_id", jobID,
		"function", fn.Key,
		"dims", fn.Dims,
		"iters", job.Config.Iters,
		"pop_size", job.Config.PopSize,
		"resumed_at", run.offset,
	)
	s.publish(events.SubjectJobStarted(jobID), events.JobStartedEvent{
		JobID:     jobID,
		Function:  fn.Key,
		Dims:      fn.Dims,
		PopSize:   job.Config.PopSize,
		Iters:     job.Config.Iters,
		Seed:      job.Config.Seed,
		ResumedAt: run.offset,
		StartedAt: start,
	})

	options := []gwo.Option{
		gwo.WithObserver(run.observe(ctx)),
		gwo.WithWorkers(job.Config.Workers),
		gwo.WithDimensions(fn.Dims),
	}
	if resume != nil {
		// The decay continues from the checkpoint instead of restarting at 2.
		total, offset := job.Config.Iters, run.offset
		options = append(options,
			gwo.WithInitialPosition(resume.BestPosition),
			gwo.WithSchedule(func(_, t int) float64 { return gwo.LinearDecay(total, offset+t) }),
		)
	}

	optimizer := opt.NewGreyWolf(job.Config.Iters-run.offset, job.Config.PopSize, job.Config.Seed, options...)
	result, err := optimizer.Run(fn.Objective(), fn.Lower, fn.Upper)
	elapsed := time.Since(start)

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		run.saveCheckpoint()
		s.markJobCancelled(jobID, run.iteration)
		return err
	}
	if err != nil {
		s.markJobFailed(jobID, err)
		return err
	}

	if delta := result.Evaluations - run.reportedEvals; delta > 0 {
		s.metrics.Evaluations.Add(float64(delta))
	}
	run.iteration = run.offset + result.Iterations
	run.evaluations = run.baseEvals + result.Evaluations
	run.converged = result.Stopped
	if finite(result.BestCost) {
		run.best = result.BestParams
		run.bestFitness = result.BestCost
		run.hasBest = true
	}
	run.saveCheckpoint()

	endTime := time.Now()
	s.jobManager.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.Iteration = run.iteration
		j.Evaluations = run.evaluations
		j.Converged = run.converged
		if run.hasBest {
			j.BestPosition = append([]float64(nil), run.best...)
			j.BestFitness = run.bestFitness
		}
		j.EndTime = &endTime
	})
	s.metrics.jobFinished(StateCompleted, elapsed.Seconds())

	s.logger.Info("Job completed",
		"job_id", jobID,
		"elapsed", elapsed,
		"iterations", run.iteration,
		"evaluations", run.evaluations,
		"best_fitness", result.BestCost,
		"converged", run.converged,
	)

	s.publish(events.SubjectJobCompleted(jobID), events.JobCompletedEvent{
		JobID:        jobID,
		BestFitness:  run.bestFitness,
		BestPosition: run.best,
		Iterations:   run.iteration,
		Evaluations:  run.evaluations,
		Converged:    run.converged,
		DurationMs:   elapsed.Milliseconds(),
	})
	s.jobManager.broadcaster.Broadcast(ProgressEvent{
		JobID:       jobID,
		State:       StateCompleted,
		Iteration:   run.iteration,
		Iters:       job.Config.Iters,
		BestFitness: run.bestFitness,
		Evaluations: run.evaluations,
		Timestamp:   endTime,
	})

	return nil
}

// observe returns the per-iteration callback. Cancelling ctx aborts the run
// at the next iteration boundary.
func (r *jobRun) observe(ctx context.Context) gwo.Observer {
	return func(p gwo.Progress) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		r.iteration = r.offset + p.Iteration + 1
		r.evaluations = r.baseEvals + p.Evaluations
		if finite(p.BestFitness) {
			r.best = p.BestPosition
			r.bestFitness = p.BestFitness
			r.hasBest = true
		}
		if delta := p.Evaluations - r.reportedEvals; delta > 0 {
			r.s.metrics.Evaluations.Add(float64(delta))
			r.reportedEvals = p.Evaluations
		}

		r.s.jobManager.UpdateJob(r.jobID, func(j *Job) {
			j.Iteration = r.iteration
			j.Evaluations = r.evaluations
			if r.hasBest {
				j.BestPosition = append([]float64(nil), r.best...)
				j.BestFitness = r.bestFitness
			}
		})

		r.writeTrace(p)

		now := time.Now()
		last := p.Iteration+1 == p.Iterations
		if (last || now.Sub(r.lastProgress) >= progressInterval) && finite(p.BestFitness) && finite(p.AlphaFitness) {
			r.lastProgress = now
			r.s.jobManager.broadcaster.Broadcast(ProgressEvent{
				JobID:        r.jobID,
				State:        StateRunning,
				Iteration:    r.iteration,
				Iters:        r.config.Iters,
				BestFitness:  p.BestFitness,
				AlphaFitness: p.AlphaFitness,
				Decay:        p.Decay,
				Evaluations:  r.evaluations,
				Timestamp:    now,
			})
			r.s.publish(events.SubjectJobProgress(r.jobID), events.JobProgressEvent{
				JobID:        r.jobID,
				Iteration:    r.iteration,
				BestFitness:  p.BestFitness,
				AlphaFitness: p.AlphaFitness,
				Decay:        p.Decay,
				Evaluations:  r.evaluations,
			})
		}

		if interval := time.Duration(r.config.CheckpointInterval) * time.Second; interval > 0 && now.Sub(r.lastCheckpoint) >= interval {
			r.lastCheckpoint = now
			r.saveCheckpoint()
		}

		if r.tracker != nil && r.tracker.Update(p.BestFitness) {
			r.s.logger.Info("Job converged", "job_id", r.jobID, "iteration", r.iteration, "best_fitness", p.BestFitness)
			return gwo.ErrStopped
		}
		return nil
	}
}

// writeTrace appends one trace line. JSON has no encoding for Inf or NaN, so
// iterations without a finite best are left out.
func (r *jobRun) writeTrace(p gwo.Progress) {
	if r.trace == nil || !finite(p.BestFitness) || !finite(p.AlphaFitness) {
		return
	}
	err := r.trace.Write(store.TraceEntry{
		Iteration:    r.iteration,
		BestFitness:  p.BestFitness,
		AlphaFitness: p.AlphaFitness,
		Decay:        p.Decay,
		Evaluations:  r.evaluations,
		Timestamp:    time.Now(),
	})
	if err != nil {
		r.s.logger.Warn("Failed to write trace entry", "job_id", r.jobID, "error", err)
	}
}

// saveCheckpoint persists the best point so far. It is a no-op without a
// store or before any finite fitness was seen.
func (r *jobRun) saveCheckpoint() {
	if r.s.store == nil || !r.hasBest {
		return
	}
	if r.trace != nil {
		if err := r.trace.Flush(); err != nil {
			r.s.logger.Warn("Failed to flush trace", "job_id", r.jobID, "error", err)
		}
	}

	cp := store.NewCheckpoint(r.jobID, r.best, r.bestFitness, r.iteration, r.evaluations, r.config)
	if err := r.s.store.SaveCheckpoint(r.jobID, cp); err != nil {
		r.s.logger.Error("Failed to save checkpoint", "job_id", r.jobID, "error", err)
		return
	}
	r.s.logger.Info("Checkpoint saved",
		"job_id", r.jobID,
		"iteration", r.iteration,
		"best_fitness", r.bestFitness,
	)
}

// publish sends an event to the bus. Bus failures never fail a job.
func (s *Server) publish(subject string, event any) {
	if err := s.publisher.Publish(subject, event); err != nil {
		s.logger.Warn("Failed to publish event", "subject", subject, "error", err)
	}
}

// markJobFailed marks a job as failed with an error message
func (s *Server) markJobFailed(jobID string, err error) {
	endTime := time.Now()
	s.jobManager.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
		s.metrics.jobFinished(StateFailed, endTime.Sub(j.StartTime).Seconds())
	})
	s.logger.Error("Job failed", "job_id", jobID, "error", err)

	s.publish(events.SubjectJobFailed(jobID), events.JobFailedEvent{JobID: jobID, Error: err.Error()})
	s.broadcastFinal(jobID, StateFailed)
}

// markJobCancelled marks a job as cancelled
func (s *Server) markJobCancelled(jobID string, iteration int) {
	endTime := time.Now()
	s.jobManager.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
		s.metrics.jobFinished(StateCancelled, endTime.Sub(j.StartTime).Seconds())
	})
	s.logger.Info("Job cancelled", "job_id", jobID, "iteration", iteration)

	s.publish(events.SubjectJobCancelled(jobID), events.JobCancelledEvent{JobID: jobID, Iteration: iteration})
	s.broadcastFinal(jobID, StateCancelled)
}

func (s *Server) broadcastFinal(jobID string, state JobState) {
	job, ok := s.jobManager.GetJob(jobID)
	if !ok {
		return
	}
	s.jobManager.broadcaster.Broadcast(ProgressEvent{
		JobID:       jobID,
		State:       state,
		Iteration:   job.Iteration,
		Iters:       job.Config.Iters,
		BestFitness: job.BestFitness,
		Evaluations: job.Evaluations,
		Timestamp:   time.Now(),
	})
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
