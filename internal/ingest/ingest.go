package ingest

import (
	"log/slog"

	"github.com/joseph-ayodele/contracts-tracker/internal/async"
	"github.com/joseph-ayodele/contracts-tracker/internal/pipeline"
)

// Result is the per-file intake outcome.
type Result struct {
	Path         string
	JobID        string
	Deduplicated bool
	HashHex      string
	Format       string
	Err          string
}

// DirStats summarizes a directory intake.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Submitter is the part of the job manager intake needs.
type Submitter interface {
	Submit(id string, task async.Task) (string, error)
}

// TaskFactory turns a document into a runnable job.
type TaskFactory interface {
	Task(req pipeline.Request) async.Task
}

// Ingestor submits documents found on the local filesystem as extraction
// jobs. Job ids are derived from the file content so the same document is
// not processed twice while its job is retained.
type Ingestor struct {
	jobs   Submitter
	tasks  TaskFactory
	logger *slog.Logger
}

func NewIngestor(jobs Submitter, tasks TaskFactory, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{jobs: jobs, tasks: tasks, logger: logger}
}
