package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/contracts-tracker/constants"
	"github.com/joseph-ayodele/contracts-tracker/internal/async"
	"github.com/joseph-ayodele/contracts-tracker/internal/common"
	"github.com/joseph-ayodele/contracts-tracker/internal/export"
	"github.com/joseph-ayodele/contracts-tracker/internal/pipeline"
	"github.com/joseph-ayodele/contracts-tracker/internal/repository"
)

// JobManager is the part of async.Manager the service needs.
type JobManager interface {
	Submit(id string, task async.Task) (string, error)
	Status(id string) (async.Snapshot, bool)
	Cancel(id string) bool
}

// TaskFactory turns a submission into a runnable task.
type TaskFactory interface {
	Task(req pipeline.Request) async.Task
}

type JobsServer struct {
	jobs      JobManager
	tasks     TaskFactory
	export    *export.Service
	archive   repository.ResultArchive // optional
	inputRoot string                   // optional
	logger    *slog.Logger
}

type JobsServerOption func(*JobsServer)

// WithInputRoot rejects submissions whose path resolves outside root.
func WithInputRoot(root string) JobsServerOption {
	return func(s *JobsServer) { s.inputRoot = root }
}

func NewJobsServer(jobs JobManager, tasks TaskFactory, exp *export.Service, archive repository.ResultArchive, logger *slog.Logger, opts ...JobsServerOption) *JobsServer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &JobsServer{jobs: jobs, tasks: tasks, export: exp, archive: archive, logger: logger}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Submit expects {path, filename?, job_id?} and returns {job_id}.
func (s *JobsServer) Submit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	path := strings.TrimSpace(fields["path"].GetStringValue())
	filename := strings.TrimSpace(fields["filename"].GetStringValue())
	jobID := strings.TrimSpace(fields["job_id"].GetStringValue())

	v := common.NewValidator().
		Field("path", path, common.Required, common.Printable, common.MaxLength(4096), common.WithinRoot(s.inputRoot)).
		Field("filename", filename, common.Printable, common.MaxLength(255)).
		Field("job_id", jobID, common.Printable, common.MaxLength(128))
	if err := common.ValidateAndReturnError(v); err != nil {
		s.logger.Warn("submit rejected", "request_id", common.RequestIDFromContext(ctx), "error", err)
		return nil, err
	}

	id, err := s.jobs.Submit(jobID, s.tasks.Task(pipeline.Request{Path: path, Filename: filename}))
	switch {
	case errors.Is(err, async.ErrDuplicateJob):
		return nil, status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, async.ErrQueueFull):
		return nil, status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, async.ErrQueueClosed):
		return nil, status.Error(codes.Unavailable, err.Error())
	case err != nil:
		return nil, common.ToGRPCStatus(err)
	}

	s.logger.Info("job accepted", "job_id", id, "path", path, "request_id", common.RequestIDFromContext(ctx))
	return structpb.NewStruct(map[string]any{"job_id": id})
}

// GetStatus returns the job snapshot as a Struct.
func (s *JobsServer) GetStatus(_ context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	id := strings.TrimSpace(req.GetValue())
	if id == "" {
		return nil, common.InvalidArgumentError("job id is required")
	}
	snap, ok := s.jobs.Status(id)
	if !ok {
		return nil, common.NotFoundErrorf("job %s not found", id)
	}
	out, err := toStruct(snap)
	if err != nil {
		s.logger.Error("encode snapshot failed", "job_id", id, "error", err)
		return nil, common.InternalError("encode job snapshot")
	}
	return out, nil
}

// Cancel reports whether the cancellation request was accepted.
func (s *JobsServer) Cancel(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	id := strings.TrimSpace(req.GetValue())
	if id == "" {
		return nil, common.InvalidArgumentError("job id is required")
	}
	accepted := s.jobs.Cancel(id)
	s.logger.Info("cancel requested", "job_id", id, "accepted", accepted, "request_id", common.RequestIDFromContext(ctx))
	return wrapperspb.Bool(accepted), nil
}

// Export renders a completed job as XLSX. Jobs already evicted from memory
// are served from the archive when one is configured.
func (s *JobsServer) Export(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	id := strings.TrimSpace(req.GetValue())
	if id == "" {
		return nil, common.InvalidArgumentError("job id is required")
	}

	var payload map[string]any
	if snap, ok := s.jobs.Status(id); ok {
		if snap.Status != constants.JobStatusCompleted {
			return nil, common.FailedPreconditionError("job " + id + " is " + string(snap.Status) + ", export needs a completed job")
		}
		payload = snap.Result
	} else if s.archive != nil {
		rec, err := s.archive.Get(ctx, id)
		if err != nil {
			return nil, common.ToGRPCStatus(err)
		}
		payload = rec.Payload
	} else {
		return nil, common.NotFoundErrorf("job %s not found", id)
	}

	res, err := pipeline.DecodeResult(payload)
	if err != nil {
		s.logger.Error("decode result failed", "job_id", id, "error", err)
		return nil, common.InternalErrorf("decode result of job %s", id)
	}
	xlsx, err := s.export.ContractXLSX(id, res)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "job_id", id, "error", err)
		return nil, common.InternalError(err.Error())
	}
	return wrapperspb.Bytes(xlsx), nil
}

// GetArchived returns an archived result with its key fields.
func (s *JobsServer) GetArchived(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	id := strings.TrimSpace(req.GetValue())
	if id == "" {
		return nil, common.InvalidArgumentError("job id is required")
	}
	if s.archive == nil {
		return nil, common.FailedPreconditionError("result archive is not configured")
	}
	rec, err := s.archive.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			s.logger.Error("archive lookup failed", "job_id", id, "error", err)
		}
		return nil, common.ToGRPCStatus(err)
	}
	return structpb.NewStruct(map[string]any{
		"job_id":          rec.JobID,
		"filename":        rec.Filename,
		"contract_number": rec.ContractNumber,
		"contract_date":   rec.ContractDate,
		"customer_name":   rec.CustomerName,
		"contractor_name": rec.ContractorName,
		"amount_incl_vat": rec.AmountInclVAT,
		"archived_at":     rec.ArchivedAt.UTC().Format(time.RFC3339),
		"payload":         rec.Payload,
	})
}

// toStruct converts v through its JSON form so that every value is one
// structpb understands.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := out.UnmarshalJSON(b); err != nil {
		return nil, err
	}
	return out, nil
}
