package server

import (
	"bytes"
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/contracts-tracker/constants"
	"github.com/joseph-ayodele/contracts-tracker/internal/async"
	"github.com/joseph-ayodele/contracts-tracker/internal/export"
	"github.com/joseph-ayodele/contracts-tracker/internal/extract"
	"github.com/joseph-ayodele/contracts-tracker/internal/pipeline"
	"github.com/joseph-ayodele/contracts-tracker/internal/repository"
)

type taskFactoryFunc func(req pipeline.Request) async.Task

func (f taskFactoryFunc) Task(req pipeline.Request) async.Task { return f(req) }

func completedPayload(t *testing.T, filename string) map[string]any {
	t.Helper()
	res := &pipeline.Result{
		FileInfo: pipeline.FileInfo{Filename: filename, Format: constants.PDF},
		ContractData: &extract.Record{
			Fields:      map[string]string{constants.FieldContractNumber: "03.07/24-К"},
			Attachments: []extract.Attachment{},
		},
	}
	m, err := res.ToMap()
	if err != nil {
		t.Fatal(err)
	}
	return m
}

type testEnv struct {
	client  *JobsServiceClient
	manager *async.Manager
	gate    chan struct{}
}

// startServer serves JobsService over bufconn. Tasks for paths named
// "slow.pdf" wait on env.gate.
func startServer(t *testing.T, archive repository.ResultArchive, opts ...JobsServerOption) *testEnv {
	t.Helper()
	env := &testEnv{manager: async.NewManager(), gate: make(chan struct{})}
	tasks := taskFactoryFunc(func(req pipeline.Request) async.Task {
		return async.TaskFunc(func(ctx context.Context, r *async.Reporter) (map[string]any, error) {
			if req.Path == "slow.pdf" {
				<-env.gate
			}
			return completedPayload(t, req.Filename), nil
		})
	})

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(UnaryInterceptor(nil)))
	RegisterJobsServiceServer(srv, NewJobsServer(env.manager, tasks, export.NewService(nil), archive, nil, opts...))
	go func() { _ = srv.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial bufconn: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
		srv.Stop()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = env.manager.Shutdown(ctx)
	})
	env.client = NewJobsServiceClient(conn)
	return env
}

func submit(t *testing.T, c *JobsServiceClient, fields map[string]any) (string, error) {
	t.Helper()
	req, err := structpb.NewStruct(fields)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := c.Submit(context.Background(), req)
	if err != nil {
		return "", err
	}
	return resp.GetFields()["job_id"].GetStringValue(), nil
}

func waitCompleted(t *testing.T, c *JobsServiceClient, id string) *structpb.Struct {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		s, err := c.GetStatus(context.Background(), wrapperspb.String(id))
		if err != nil {
			t.Fatalf("GetStatus: %v", err)
		}
		if s.GetFields()["status"].GetStringValue() == string(constants.JobStatusCompleted) {
			return s
		}
		select {
		case <-deadline:
			t.Fatalf("job %s did not complete: %v", id, s)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSubmitAndStatus(t *testing.T) {
	env := startServer(t, nil)

	id, err := submit(t, env.client, map[string]any{"path": "contract.pdf", "filename": "Договор.pdf"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id == "" {
		t.Fatal("empty job id")
	}
	s := waitCompleted(t, env.client, id)
	f := s.GetFields()
	if f["progress"].GetNumberValue() != 100 || f["id"].GetStringValue() != id {
		t.Errorf("snapshot = %v", s)
	}
	if f["completed_at"].GetStringValue() == "" {
		t.Error("completed_at missing")
	}
	data := f["result"].GetStructValue().GetFields()["contract_data"].GetStructValue().GetFields()["fields"].GetStructValue()
	if got := data.GetFields()[constants.FieldContractNumber].GetStringValue(); got != "03.07/24-К" {
		t.Errorf("contract_number = %q", got)
	}
}

func TestSubmitValidation(t *testing.T) {
	env := startServer(t, nil)

	if _, err := submit(t, env.client, map[string]any{"filename": "x.pdf"}); status.Code(err) != codes.InvalidArgument {
		t.Errorf("missing path: code = %v", status.Code(err))
	}
	if _, err := submit(t, env.client, map[string]any{"path": "a.pdf", "job_id": "dup"}); err != nil {
		t.Fatal(err)
	}
	if _, err := submit(t, env.client, map[string]any{"path": "a.pdf", "job_id": "dup"}); status.Code(err) != codes.AlreadyExists {
		t.Errorf("duplicate id: code = %v", status.Code(err))
	}
}

func TestSubmitOutsideInputRoot(t *testing.T) {
	root := t.TempDir()
	env := startServer(t, nil, WithInputRoot(root))

	outside := []string{
		filepath.Join(root, "..", "secret.pdf"),
		"/etc/passwd.pdf",
		"../escape.pdf",
	}
	for _, p := range outside {
		if _, err := submit(t, env.client, map[string]any{"path": p}); status.Code(err) != codes.InvalidArgument {
			t.Errorf("path %q: code = %v, want InvalidArgument", p, status.Code(err))
		}
	}

	id, err := submit(t, env.client, map[string]any{"path": filepath.Join(root, "inbox", "contract.pdf")})
	if err != nil {
		t.Fatalf("path inside root: %v", err)
	}
	waitCompleted(t, env.client, id)
}

func TestUnknownJob(t *testing.T) {
	env := startServer(t, nil)
	ctx := context.Background()

	if _, err := env.client.GetStatus(ctx, wrapperspb.String("missing")); status.Code(err) != codes.NotFound {
		t.Errorf("GetStatus: code = %v", status.Code(err))
	}
	ok, err := env.client.Cancel(ctx, wrapperspb.String("missing"))
	if err != nil || ok.GetValue() {
		t.Errorf("Cancel: %v %v", ok, err)
	}
	if _, err := env.client.Export(ctx, wrapperspb.String("missing")); status.Code(err) != codes.NotFound {
		t.Errorf("Export: code = %v", status.Code(err))
	}
	if _, err := env.client.GetArchived(ctx, wrapperspb.String("missing")); status.Code(err) != codes.FailedPrecondition {
		t.Errorf("GetArchived without archive: code = %v", status.Code(err))
	}
	if _, err := env.client.GetStatus(ctx, wrapperspb.String(" ")); status.Code(err) != codes.InvalidArgument {
		t.Errorf("blank id: code = %v", status.Code(err))
	}
}

func TestExport(t *testing.T) {
	env := startServer(t, nil)
	ctx := context.Background()

	id, err := submit(t, env.client, map[string]any{"path": "slow.pdf"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.client.Export(ctx, wrapperspb.String(id)); status.Code(err) != codes.FailedPrecondition {
		t.Errorf("export of running job: code = %v", status.Code(err))
	}
	close(env.gate)
	waitCompleted(t, env.client, id)

	out, err := env.client.Export(ctx, wrapperspb.String(id))
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !bytes.HasPrefix(out.GetValue(), []byte("PK")) {
		t.Error("export is not an xlsx (zip) document")
	}
}

func TestCancelRunningJob(t *testing.T) {
	env := startServer(t, nil)
	id, err := submit(t, env.client, map[string]any{"path": "slow.pdf"})
	if err != nil {
		t.Fatal(err)
	}
	ok, err := env.client.Cancel(context.Background(), wrapperspb.String(id))
	if err != nil || !ok.GetValue() {
		t.Fatalf("Cancel = %v, %v", ok, err)
	}
	close(env.gate)

	deadline := time.After(5 * time.Second)
	for {
		s, _ := env.client.GetStatus(context.Background(), wrapperspb.String(id))
		if s.GetFields()["status"].GetStringValue() == string(constants.JobStatusCancelled) {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("job not cancelled: %v", s)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestGetArchived(t *testing.T) {
	db, err := repository.OpenSQLite(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	archive := repository.NewSQLiteArchive(db)
	defer archive.Close()

	ctx := context.Background()
	if err := archive.Save(ctx, &repository.ArchivedResult{
		JobID:          "old-job",
		Filename:       "contract.pdf",
		ContractNumber: "03.07/24-К",
		Payload:        completedPayload(t, "contract.pdf"),
	}); err != nil {
		t.Fatal(err)
	}
	env := startServer(t, archive)

	got, err := env.client.GetArchived(ctx, wrapperspb.String("old-job"))
	if err != nil {
		t.Fatalf("GetArchived: %v", err)
	}
	if got.GetFields()["contract_number"].GetStringValue() != "03.07/24-К" {
		t.Errorf("archived = %v", got)
	}
	if _, err := env.client.GetArchived(ctx, wrapperspb.String("missing")); status.Code(err) != codes.NotFound {
		t.Errorf("missing archived: code = %v", status.Code(err))
	}

	out, err := env.client.Export(ctx, wrapperspb.String("old-job"))
	if err != nil || len(out.GetValue()) == 0 {
		t.Errorf("export from archive: %v", err)
	}
}

func TestRequestIDHeader(t *testing.T) {
	env := startServer(t, nil)
	var header metadata.MD
	ctx := metadata.AppendToOutgoingContext(context.Background(), requestIDHeader, "req-123")
	if _, err := env.client.Cancel(ctx, wrapperspb.String("missing"), grpc.Header(&header)); err != nil {
		t.Fatal(err)
	}
	if got := header.Get(requestIDHeader); len(got) != 1 || got[0] != "req-123" {
		t.Errorf("x-request-id header = %v", got)
	}
}
