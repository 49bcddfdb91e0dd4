package async

import (
	"context"
	"errors"
	"time"

	"github.com/joseph-ayodele/contracts-tracker/constants"
)

var (
	ErrQueueClosed  = errors.New("job manager is shutting down")
	ErrQueueFull    = errors.New("job queue is full")
	ErrDuplicateJob = errors.New("job id already exists")
	// ErrCancelled is returned by Reporter.Checkpoint once cancellation was requested.
	ErrCancelled = errors.New("job cancelled")
)

// Task is one pipeline run. The returned payload becomes the job result.
type Task interface {
	Run(ctx context.Context, r *Reporter) (map[string]any, error)
}

// TaskFunc adapts a function to Task.
type TaskFunc func(ctx context.Context, r *Reporter) (map[string]any, error)

func (f TaskFunc) Run(ctx context.Context, r *Reporter) (map[string]any, error) { return f(ctx, r) }

// Snapshot is a point-in-time copy of a job. Result is shared with the
// registry and must be treated as read-only.
type Snapshot struct {
	ID          string              `json:"id"`
	Status      constants.JobStatus `json:"status"`
	Progress    int                 `json:"progress"`
	Message     string              `json:"message"`
	Result      map[string]any      `json:"result,omitempty"`
	Error       string              `json:"error,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	StartedAt   *time.Time          `json:"started_at,omitempty"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}

// job is the registry entry. All fields are guarded by Manager.mu.
type job struct {
	id          string
	task        Task
	status      constants.JobStatus
	progress    int
	message     string
	result      map[string]any
	err         string
	createdAt   time.Time
	startedAt   time.Time
	completedAt time.Time

	cancelRequested bool
}

func (j *job) snapshot() Snapshot {
	s := Snapshot{
		ID:        j.id,
		Status:    j.status,
		Progress:  j.progress,
		Message:   j.message,
		Result:    j.result,
		Error:     j.err,
		CreatedAt: j.createdAt,
	}
	if !j.startedAt.IsZero() {
		t := j.startedAt
		s.StartedAt = &t
	}
	if !j.completedAt.IsZero() {
		t := j.completedAt
		s.CompletedAt = &t
	}
	return s
}

// Reporter is handed to a running task to publish progress and observe
// cancellation between stages.
type Reporter struct {
	m  *Manager
	id string
}

func (r *Reporter) JobID() string { return r.id }

// Progress records a milestone. Values below the current progress keep the
// current value; the message is always replaced.
func (r *Reporter) Progress(progress int, message string) {
	r.m.UpdateProgress(r.id, progress, message)
}

// Checkpoint returns ErrCancelled when cancellation was requested for the job
// or the manager is shutting down.
func (r *Reporter) Checkpoint() error {
	if r.m.cancelRequested(r.id) {
		return ErrCancelled
	}
	return nil
}
