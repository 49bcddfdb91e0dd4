package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/joseph-ayodele/contracts-tracker/internal/common"
)

func setupTestArchive(t *testing.T) *SQLiteArchive {
	t.Helper()
	db, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	a := NewSQLiteArchive(db)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestSaveAndGet(t *testing.T) {
	a := setupTestArchive(t)
	ctx := context.Background()

	in := &ArchivedResult{
		JobID:          "job-1",
		Filename:       "contract.pdf",
		ContractNumber: "03.07/24-К",
		ContractDate:   "2024-07-03",
		CustomerName:   "ООО «Лидер»",
		AmountInclVAT:  "4728960.00",
		Payload: map[string]any{
			"full_text_length": 1200,
			"contract_data":    map[string]any{"fields": map[string]any{"vat_rate": "20"}},
		},
		ArchivedAt: time.Date(2024, 7, 3, 10, 0, 0, 0, time.UTC),
	}
	if err := a.Save(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := a.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ContractNumber != "03.07/24-К" || got.CustomerName != "ООО «Лидер»" {
		t.Errorf("unexpected key fields: %+v", got)
	}
	if got.Payload["full_text_length"] != float64(1200) {
		t.Errorf("payload = %v", got.Payload)
	}
	if !got.ArchivedAt.Equal(in.ArchivedAt) {
		t.Errorf("archived_at = %v, want %v", got.ArchivedAt, in.ArchivedAt)
	}
}

func TestSaveReplacesExisting(t *testing.T) {
	a := setupTestArchive(t)
	ctx := context.Background()

	if err := a.Save(ctx, &ArchivedResult{JobID: "job-1", Filename: "a.pdf", Payload: map[string]any{}}); err != nil {
		t.Fatal(err)
	}
	if err := a.Save(ctx, &ArchivedResult{JobID: "job-1", Filename: "b.pdf", Payload: map[string]any{}}); err != nil {
		t.Fatal(err)
	}
	got, err := a.Get(ctx, "job-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Filename != "b.pdf" {
		t.Errorf("filename = %s, want b.pdf", got.Filename)
	}
}

func TestGetMissing(t *testing.T) {
	a := setupTestArchive(t)
	_, err := a.Get(context.Background(), "missing")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestOpenArchive(t *testing.T) {
	ctx := context.Background()

	a, err := OpenArchive(ctx, common.ArchiveConfig{Driver: common.ArchiveNone}, nil)
	if err != nil || a != nil {
		t.Fatalf("none driver: archive=%v err=%v", a, err)
	}

	dsn := filepath.Join(t.TempDir(), "results.db")
	a, err = OpenArchive(ctx, common.ArchiveConfig{Driver: common.ArchiveSQLite, DSN: dsn}, nil)
	if err != nil {
		t.Fatalf("sqlite driver: %v", err)
	}
	defer a.Close()
	if err := a.Save(ctx, &ArchivedResult{JobID: "j", Payload: map[string]any{"ok": true}}); err != nil {
		t.Fatal(err)
	}

	if _, err := OpenArchive(ctx, common.ArchiveConfig{Driver: "mongo"}, nil); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
