package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cwbudde/greywolf/internal/server"
	"github.com/spf13/cobra"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <job-id>",
	Short: "Resume an optimization from its checkpoint",
	Long: `Loads the checkpoint of a cancelled or interrupted job and runs the
remaining iterations locally, starting from the saved best position. The
checkpoint and trace are updated in place. Interrupting saves a new checkpoint.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().StringVar(&checkpointDataDir, "data-dir", "", "Base directory for checkpoint storage (default: store.data_dir)")
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	jobID := args[0]
	conf := settings()

	checkpointStore, err := openStore()
	if err != nil {
		return err
	}

	srv := server.NewServer("", server.Options{
		Logger:            slog.Default(),
		Store:             checkpointStore,
		TraceDir:          checkpointStore.BaseDir(),
		Defaults:          conf.Optimizer,
		MaxConcurrentJobs: 1,
	})

	job, err := srv.Resume(jobID)
	if err != nil {
		return fmt.Errorf("failed to resume %s: %w", jobID, err)
	}
	slog.Info("Resuming job",
		"job_id", jobID,
		"function", job.Config.Function,
		"from_iteration", job.ResumedFrom,
		"iters", job.Config.Iters,
	)

	ctx, stop := interruptContext(cmd)
	defer stop()

	done := make(chan struct{})
	go func() {
		srv.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		slog.Info("Interrupted, saving checkpoint")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.ShutdownTimeout())
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}

	final, ok := srv.Jobs().GetJob(jobID)
	if !ok {
		return fmt.Errorf("job %s disappeared", jobID)
	}
	printResumeResult(cmd, final)
	if final.State == server.StateFailed {
		return fmt.Errorf("job failed: %s", final.Error)
	}
	return nil
}

func printResumeResult(cmd *cobra.Command, job *server.Job) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Job:         %s\n", job.ID)
	fmt.Fprintf(out, "State:       %s\n", job.State)
	fmt.Fprintf(out, "Function:    %s (%d dims)\n", job.Config.Function, job.Config.Dims)
	fmt.Fprintf(out, "Iteration:   %d/%d (resumed from %d)\n", job.Iteration, job.Config.Iters, job.ResumedFrom)
	fmt.Fprintf(out, "Fitness:     %.10g\n", job.BestFitness)
	fmt.Fprintf(out, "Position:    %v\n", job.BestPosition)
	fmt.Fprintf(out, "Evaluations: %d\n", job.Evaluations)
}
