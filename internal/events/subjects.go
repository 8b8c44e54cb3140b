package events

const (
	// SubjectAllJobs matches every job lifecycle subject.
	SubjectAllJobs = "greywolf.job.>"
)

func SubjectJobStarted(jobID string) string   { return "greywolf.job." + jobID + ".started" }
func SubjectJobProgress(jobID string) string  { return "greywolf.job." + jobID + ".progress" }
func SubjectJobCompleted(jobID string) string { return "greywolf.job." + jobID + ".completed" }
func SubjectJobFailed(jobID string) string    { return "greywolf.job." + jobID + ".failed" }
func SubjectJobCancelled(jobID string) string { return "greywolf.job." + jobID + ".cancelled" }
