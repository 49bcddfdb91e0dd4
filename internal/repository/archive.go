package repository

import (
	"context"
	"time"
)

// ArchivedResult is a completed job's payload kept beyond in-memory eviction.
// The key fields are denormalized for lookups without decoding the payload.
type ArchivedResult struct {
	JobID          string
	Filename       string
	ContractNumber string
	ContractDate   string
	CustomerName   string
	ContractorName string
	AmountInclVAT  string
	Payload        map[string]any
	ArchivedAt     time.Time
}

// ResultArchive stores completed results. Get returns common.ErrNotFound for
// unknown job ids.
type ResultArchive interface {
	Save(ctx context.Context, r *ArchivedResult) error
	Get(ctx context.Context, jobID string) (*ArchivedResult, error)
	Close() error
}
