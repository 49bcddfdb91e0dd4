package constants

// JobStatus is the lifecycle state of an extraction job.
type JobStatus string

// Stable values (these exact strings are returned to callers and archived).
const (
	JobStatusPending    JobStatus = "pending"    // accepted, waiting for a worker
	JobStatusProcessing JobStatus = "processing" // stages running
	JobStatusCompleted  JobStatus = "completed"  // terminal success
	JobStatusFailed     JobStatus = "failed"     // terminal failure
	JobStatusCancelled  JobStatus = "cancelled"  // terminal, cancel observed
)

// IsTerminal reports whether no further transitions can happen from s.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}
