package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/contracts-tracker/constants"
	"github.com/joseph-ayodele/contracts-tracker/internal/async"
	"github.com/joseph-ayodele/contracts-tracker/internal/common"
	"github.com/joseph-ayodele/contracts-tracker/internal/pipeline"
)

// jobIDPrefix marks ids derived from document content.
const jobIDPrefix = "doc-"

// IngestPath hashes one file and submits it. A file whose job is already
// known to the manager is reported as deduplicated, not as an error.
func (i *Ingestor) IngestPath(ctx context.Context, path string) (Result, error) {
	out := Result{Path: path}

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	out.Path = abs

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if !AllowedExt(ext) {
		return out, common.UnsupportedFormat(ext)
	}
	out.Format = constants.MapExtToFormat(ext)

	if err := ctx.Err(); err != nil {
		return out, err
	}
	sum, err := hashFile(abs)
	if err != nil {
		return out, err
	}
	out.HashHex = hex.EncodeToString(sum)

	id := jobIDPrefix + out.HashHex[:16]
	task := i.tasks.Task(pipeline.Request{Path: abs, Filename: filepath.Base(abs)})
	jobID, err := i.jobs.Submit(id, task)
	switch {
	case errors.Is(err, async.ErrDuplicateJob):
		out.JobID = id
		out.Deduplicated = true
		i.logger.Info("ingest.dedup", "path", abs, "job_id", id)
		return out, nil
	case err != nil:
		return out, fmt.Errorf("submit %s: %w", abs, err)
	}
	out.JobID = jobID
	i.logger.Info("ingest.submitted", "path", abs, "job_id", jobID, "format", out.Format)
	return out, nil
}

func hashFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, common.InputNotFound(path, err)
		}
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("hash: %w", err)
	}
	return h.Sum(nil), nil
}
