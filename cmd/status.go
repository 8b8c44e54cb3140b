package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cwbudde/greywolf/internal/server"
	"github.com/spf13/cobra"
)

var (
	serverURL string
	cancelJob bool
)

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or specific job",
	Long: `Queries the server for job status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	statusCmd.Flags().BoolVar(&cancelJob, "cancel", false, "Cancel the given job")
	rootCmd.AddCommand(statusCmd)
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

// jobStatus mirrors the server's status response.
type jobStatus struct {
	server.Job
	Elapsed        float64 `json:"elapsed"`
	Progress       float64 `json:"progress"`
	EvalsPerSecond float64 `json:"evalsPerSecond"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	base := strings.TrimRight(serverURL, "/")
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		var jobs []server.Job
		if err := getJSON(base+"/api/v1/jobs", "", &jobs); err != nil {
			return err
		}
		return printJobList(out, jobs)
	}

	jobID := args[0]
	if cancelJob {
		resp, err := httpClient.Post(fmt.Sprintf("%s/api/v1/jobs/%s/cancel", base, jobID), "application/json", nil)
		if err != nil {
			return fmt.Errorf("failed to connect to server: %w", err)
		}
		defer resp.Body.Close()
		if err := checkResponse(resp, jobID); err != nil {
			return err
		}
		fmt.Fprintf(out, "Cancellation requested for %s\n", jobID)
		return nil
	}

	var status jobStatus
	if err := getJSON(fmt.Sprintf("%s/api/v1/jobs/%s/status", base, jobID), jobID, &status); err != nil {
		return err
	}
	printJobStatus(out, status)
	return nil
}

func getJSON(url, jobID string, v any) error {
	resp, err := httpClient.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp, jobID); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func checkResponse(resp *http.Response, jobID string) error {
	if resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	var apiErr struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
		msg = apiErr.Error
	}
	if jobID != "" && resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("job not found: %s", jobID)
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, msg)
}

func printJobList(w io.Writer, jobs []server.Job) error {
	if len(jobs) == 0 {
		fmt.Fprintln(w, "No jobs found")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "JOB ID\tSTATE\tFUNCTION\tDIMS\tITERATION\tBEST FITNESS")
	for _, job := range jobs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d/%d\t%.6g\n",
			job.ID,
			job.State,
			job.Config.Function,
			job.Config.Dims,
			job.Iteration,
			job.Config.Iters,
			job.BestFitness,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nTotal jobs: %d\n", len(jobs))
	return nil
}

func printJobStatus(w io.Writer, s jobStatus) {
	fmt.Fprintf(w, "Job: %s\n", s.ID)
	fmt.Fprintf(w, "State: %s\n", s.State)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Configuration:")
	fmt.Fprintf(w, "  Function: %s\n", s.Config.Function)
	fmt.Fprintf(w, "  Dimensions: %d\n", s.Config.Dims)
	fmt.Fprintf(w, "  Iterations: %d\n", s.Config.Iters)
	fmt.Fprintf(w, "  Population: %d\n", s.Config.PopSize)
	fmt.Fprintf(w, "  Seed: %d\n", s.Config.Seed)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Progress:")
	fmt.Fprintf(w, "  Iteration: %d (%.1f%%)\n", s.Iteration, s.Progress*100)
	if s.ResumedFrom > 0 {
		fmt.Fprintf(w, "  Resumed From: %d\n", s.ResumedFrom)
	}
	fmt.Fprintf(w, "  Best Fitness: %.10g\n", s.BestFitness)
	fmt.Fprintf(w, "  Evaluations: %d\n", s.Evaluations)
	elapsed := time.Duration(s.Elapsed * float64(time.Second))
	fmt.Fprintf(w, "  Elapsed: %s\n", elapsed.Round(time.Millisecond))
	if s.EvalsPerSecond > 0 {
		fmt.Fprintf(w, "  Throughput: %.0f evals/sec\n", s.EvalsPerSecond)
	}
	if s.Converged {
		fmt.Fprintln(w, "  Converged early")
	}

	if s.Error != "" {
		fmt.Fprintf(w, "\nError: %s\n", s.Error)
	}
}
