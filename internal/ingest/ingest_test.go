package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/joseph-ayodele/contracts-tracker/internal/async"
	"github.com/joseph-ayodele/contracts-tracker/internal/common"
	"github.com/joseph-ayodele/contracts-tracker/internal/pipeline"
)

type fakeSubmitter struct {
	mu   sync.Mutex
	ids  []string
	seen map[string]bool
	fail error
}

func (f *fakeSubmitter) Submit(id string, _ async.Task) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return "", f.fail
	}
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[id] {
		return "", fmt.Errorf("%w: %s", async.ErrDuplicateJob, id)
	}
	f.seen[id] = true
	f.ids = append(f.ids, id)
	return id, nil
}

func (f *fakeSubmitter) submitted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ids...)
}

type recordingFactory struct {
	mu   sync.Mutex
	reqs []pipeline.Request
}

func (f *recordingFactory) Task(req pipeline.Request) async.Task {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	return async.TaskFunc(func(context.Context, *async.Reporter) (map[string]any, error) {
		return nil, nil
	})
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestIngestPath(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "Contract.PDF")
	writeFile(t, doc, "contract body")

	jobs := &fakeSubmitter{}
	tasks := &recordingFactory{}
	in := NewIngestor(jobs, tasks, nil)

	res, err := in.IngestPath(context.Background(), doc)
	if err != nil {
		t.Fatalf("IngestPath() error = %v", err)
	}
	if !strings.HasPrefix(res.JobID, jobIDPrefix) || len(res.JobID) != len(jobIDPrefix)+16 {
		t.Errorf("JobID = %q", res.JobID)
	}
	if res.Format != "PDF" || res.Deduplicated {
		t.Errorf("result = %+v", res)
	}
	if len(tasks.reqs) != 1 || tasks.reqs[0].Filename != "Contract.PDF" || tasks.reqs[0].Path != doc {
		t.Errorf("task requests = %+v", tasks.reqs)
	}

	again, err := in.IngestPath(context.Background(), doc)
	if err != nil {
		t.Fatalf("second IngestPath() error = %v", err)
	}
	if !again.Deduplicated || again.JobID != res.JobID {
		t.Errorf("second result = %+v, want deduplicated %s", again, res.JobID)
	}
}

func TestIngestPathErrors(t *testing.T) {
	dir := t.TempDir()
	notes := filepath.Join(dir, "notes.txt")
	writeFile(t, notes, "x")
	doc := filepath.Join(dir, "a.docx")
	writeFile(t, doc, "x")

	in := NewIngestor(&fakeSubmitter{}, &recordingFactory{}, nil)
	if _, err := in.IngestPath(context.Background(), notes); !errors.Is(err, common.ErrUnsupportedFormat) {
		t.Errorf("txt error = %v, want unsupported format", err)
	}
	if _, err := in.IngestPath(context.Background(), filepath.Join(dir, "gone.pdf")); !errors.Is(err, common.ErrInputNotFound) {
		t.Errorf("missing error = %v, want input not found", err)
	}

	full := NewIngestor(&fakeSubmitter{fail: async.ErrQueueFull}, &recordingFactory{}, nil)
	if _, err := full.IngestPath(context.Background(), doc); !errors.Is(err, async.ErrQueueFull) {
		t.Errorf("full queue error = %v", err)
	}
}

func TestIngestDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.pdf"), "first")
	writeFile(t, filepath.Join(root, "copy-of-a.pdf"), "first")
	writeFile(t, filepath.Join(root, "scan.png"), "second")
	writeFile(t, filepath.Join(root, "readme.txt"), "ignored")
	writeFile(t, filepath.Join(root, ".draft.pdf"), "hidden")
	writeFile(t, filepath.Join(root, ".cache", "x.pdf"), "hidden dir")
	writeFile(t, filepath.Join(root, "nested", "b.docx"), "third")

	jobs := &fakeSubmitter{}
	in := NewIngestor(jobs, &recordingFactory{}, nil)
	results, stats, err := in.IngestDirectory(context.Background(), root, true)
	if err != nil {
		t.Fatalf("IngestDirectory() error = %v", err)
	}

	want := DirStats{Scanned: 5, Matched: 4, Succeeded: 4, Deduplicated: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
	if len(results) != 4 {
		t.Fatalf("results = %d, want 4", len(results))
	}
	if n := len(jobs.submitted()); n != 3 {
		t.Errorf("submitted %d jobs, want 3", n)
	}
	for _, r := range results {
		if strings.Contains(r.Path, ".draft") || strings.Contains(r.Path, ".cache") {
			t.Errorf("hidden path ingested: %s", r.Path)
		}
	}

	_, stats, err = in.IngestDirectory(context.Background(), root, false)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Matched != 6 || stats.Deduplicated != 4 || stats.Succeeded != 6 {
		t.Errorf("stats with hidden = %+v", stats)
	}
}

func TestIngestDirectoryMissingRoot(t *testing.T) {
	in := NewIngestor(&fakeSubmitter{}, &recordingFactory{}, nil)
	if _, _, err := in.IngestDirectory(context.Background(), filepath.Join(t.TempDir(), "nope"), true); err == nil {
		t.Fatal("expected error for missing root")
	}
	if _, _, err := in.IngestDirectory(context.Background(), " ", true); err == nil {
		t.Fatal("expected error for empty root")
	}
}

func TestWatchSubmitsNewDocuments(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "existing.pdf"), "already here")

	jobs := &fakeSubmitter{}
	in := NewIngestor(jobs, &recordingFactory{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- in.Watch(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, SkipHidden: true, Debounce: 20 * time.Millisecond})
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	waitSubmitted(t, jobs, 1)
	writeFile(t, filepath.Join(root, "ignored.txt"), "x")
	writeFile(t, filepath.Join(root, "incoming.jpg"), "new scan")
	waitSubmitted(t, jobs, 2)
}

func waitSubmitted(t *testing.T, jobs *fakeSubmitter, n int) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for len(jobs.submitted()) < n {
		select {
		case <-deadline:
			t.Fatalf("submitted %d jobs, want %d", len(jobs.submitted()), n)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestStartWatcherNeedsRoots(t *testing.T) {
	if _, _, err := StartWatcher(context.Background(), WatchConfig{}); err == nil {
		t.Fatal("expected error without roots")
	}
}
