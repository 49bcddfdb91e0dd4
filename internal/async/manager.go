package async

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contracts-tracker/constants"
	"github.com/joseph-ayodele/contracts-tracker/internal/common"
)

// Manager owns the in-memory job registry and a fixed pool of workers that
// run submitted tasks.
type Manager struct {
	logger          *slog.Logger
	workers         int
	retention       int
	cleanupInterval time.Duration
	shutdownGrace   time.Duration
	now             func() time.Time

	ch   chan *job
	wg   sync.WaitGroup
	once sync.Once

	// base is cancelled when a graceful shutdown runs out of time.
	base context.Context
	stop context.CancelFunc

	mu     sync.Mutex
	jobs   map[string]*job
	closed bool
}

type Option func(*Manager)

func WithWorkers(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.ch = make(chan *job, n)
		}
	}
}

// WithRetention caps how many terminal jobs survive Cleanup.
func WithRetention(n int) Option {
	return func(m *Manager) {
		if n >= 0 {
			m.retention = n
		}
	}
}

func WithCleanupInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.cleanupInterval = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithShutdownGrace bounds how long Shutdown keeps waiting for jobs after
// its context expires and their contexts have been cancelled.
func WithShutdownGrace(d time.Duration) Option {
	return func(m *Manager) {
		if d >= 0 {
			m.shutdownGrace = d
		}
	}
}

func withClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(opts ...Option) *Manager {
	base, stop := context.WithCancel(context.Background())
	m := &Manager{
		logger:          slog.Default(),
		workers:         4,
		retention:       100,
		cleanupInterval: time.Hour,
		shutdownGrace:   5 * time.Second,
		now:             time.Now,
		ch:              make(chan *job, 256),
		base:            base,
		stop:            stop,
		jobs:            make(map[string]*job),
	}
	for _, o := range opts {
		o(m)
	}
	m.start()
	return m
}

func (m *Manager) start() {
	m.once.Do(func() {
		for i := 0; i < m.workers; i++ {
			m.wg.Add(1)
			go func(workerID int) {
				defer m.wg.Done()
				m.logger.Debug("worker started", "worker_id", workerID)
				for j := range m.ch {
					m.execute(workerID, j)
				}
				m.logger.Debug("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// Submit registers a PENDING job and queues it. An empty id gets a UUID.
// The job is visible to Status once Submit returns.
func (m *Manager) Submit(id string, task Task) (string, error) {
	if task == nil {
		return "", common.NewAppError(common.CodeInvalidInput, "task is required", nil)
	}
	if id == "" {
		id = uuid.NewString()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", ErrQueueClosed
	}
	if _, exists := m.jobs[id]; exists {
		return "", fmt.Errorf("%w: %s", ErrDuplicateJob, id)
	}
	j := &job{
		id:        id,
		task:      task,
		status:    constants.JobStatusPending,
		message:   "queued",
		createdAt: m.now(),
	}
	select {
	case m.ch <- j:
	default:
		m.logger.Warn("job queue full, rejecting submission", "job_id", id)
		return "", ErrQueueFull
	}
	m.jobs[id] = j
	m.logger.Info("job submitted", "job_id", id)
	return id, nil
}

// Status returns a snapshot of the job, false when unknown or evicted.
func (m *Manager) Status(id string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return Snapshot{}, false
	}
	return j.snapshot(), true
}

// Cancel requests cooperative cancellation. It reports true when the job
// was pending or running; the task observes the request at its next
// checkpoint.
func (m *Manager) Cancel(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok || j.status.IsTerminal() || j.cancelRequested {
		return false
	}
	j.cancelRequested = true
	m.logger.Info("job cancellation requested", "job_id", id, "status", j.status)
	return true
}

// UpdateProgress is a no-op unless the job is PROCESSING. Progress is
// clamped to 0..100 and never decreases.
func (m *Manager) UpdateProgress(id string, progress int, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok || j.status != constants.JobStatusProcessing {
		return
	}
	progress = max(0, min(100, progress))
	if progress > j.progress {
		j.progress = progress
	}
	j.message = message
}

func (m *Manager) cancelRequested(id string) bool {
	if m.base.Err() != nil {
		return true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	return ok && j.cancelRequested
}

// Cleanup evicts the oldest terminal jobs beyond the retention cap and
// returns how many were removed. Pending and running jobs are never touched.
func (m *Manager) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	var terminal []*job
	for _, j := range m.jobs {
		if j.status.IsTerminal() {
			terminal = append(terminal, j)
		}
	}
	if len(terminal) <= m.retention {
		return 0
	}
	sort.Slice(terminal, func(a, b int) bool {
		return terminal[a].completedAt.After(terminal[b].completedAt)
	})
	evict := terminal[m.retention:]
	for _, j := range evict {
		delete(m.jobs, j.id)
	}
	return len(evict)
}

// Run calls Cleanup every cleanup interval until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Cleanup(); n > 0 {
				m.logger.Info("evicted finished jobs", "count", n, "retention", m.retention)
			}
		}
	}
}

// Shutdown stops accepting jobs and waits for queued and running ones. When
// ctx expires first the task contexts are cancelled and those jobs end
// CANCELLED. Shutdown then waits up to the shutdown grace period for them to
// return and reports ctx.Err().
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.ch)
	m.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); m.wg.Wait() }()

	select {
	case <-done:
		m.stop()
		m.logger.Info("job queue drained, shutdown complete")
		return nil
	case <-ctx.Done():
		m.stop()
		m.logger.Warn("shutdown interrupted, cancelling running jobs", "grace", m.shutdownGrace)
	}

	// Cancelled jobs still unwind (archive writes, scratch files); give them
	// a bounded chance so callers can release shared engines afterwards.
	grace := time.NewTimer(m.shutdownGrace)
	defer grace.Stop()
	select {
	case <-done:
		m.logger.Info("cancelled jobs finished")
	case <-grace.C:
		m.logger.Error("jobs still running after shutdown grace period")
	}
	return ctx.Err()
}

func (m *Manager) execute(workerID int, j *job) {
	m.mu.Lock()
	j.status = constants.JobStatusProcessing
	j.startedAt = m.now()
	j.progress = 10
	j.message = "processing started"
	task := j.task
	m.mu.Unlock()

	log := m.logger.With("job_id", j.id, "worker_id", workerID)
	log.Info("job started")

	ctx := common.WithJobID(m.base, j.id)
	r := &Reporter{m: m, id: j.id}

	var (
		result map[string]any
		err    error
	)
	if err = r.Checkpoint(); err == nil {
		result, err = runTask(ctx, task, r)
	}
	if err == nil {
		// the last stage has returned; a request that arrived meanwhile still wins
		err = r.Checkpoint()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	j.task = nil
	j.completedAt = m.now()
	switch {
	case err == nil:
		j.status = constants.JobStatusCompleted
		j.progress = 100
		j.message = "completed"
		j.result = result
		log.Info("job completed", "duration", j.completedAt.Sub(j.startedAt))
	case errors.Is(err, ErrCancelled) || (errors.Is(err, context.Canceled) && m.base.Err() != nil):
		j.status = constants.JobStatusCancelled
		j.message = "cancelled"
		if m.base.Err() != nil && !j.cancelRequested {
			j.message = "cancelled by shutdown"
		}
		log.Info("job cancelled", "progress", j.progress)
	default:
		j.status = constants.JobStatusFailed
		j.message = "failed"
		j.err = err.Error()
		log.Error("job failed", "error", err)
	}
}

// runTask turns a panicking task into an error so one job cannot take down
// its worker.
func runTask(ctx context.Context, t Task, r *Reporter) (result map[string]any, err error) {
	defer func() {
		if p := recover(); p != nil {
			result = nil
			err = fmt.Errorf("task panicked: %v", p)
		}
	}()
	return t.Run(ctx, r)
}
