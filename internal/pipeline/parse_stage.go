package pipeline

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/contracts-tracker/constants"
	"github.com/joseph-ayodele/contracts-tracker/internal/extract"
)

// recordSchema is implemented by extractors that can check their own output.
type recordSchema interface {
	Fields() []string
	Validate(rec *extract.Record) error
}

type ParseStage struct {
	Extractor extract.FieldExtractor
	Logger    *slog.Logger
}

func NewParseStage(fe extract.FieldExtractor, logger *slog.Logger) *ParseStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParseStage{Extractor: fe, Logger: logger}
}

// Run extracts the contract record. A record failing its schema is logged and
// still returned.
func (s *ParseStage) Run(ctx context.Context, text string) (*extract.Record, error) {
	rec, err := s.Extractor.ExtractFields(ctx, text)
	if err != nil {
		return nil, err
	}
	if sc, ok := s.Extractor.(recordSchema); ok {
		if err := sc.Validate(rec); err != nil {
			s.Logger.Warn("extracted record does not match schema", "error", err)
		}
	}
	return rec, nil
}

// TotalFields is the number of scalar fields the extractor targets, or 0
// when it does not say.
func (s *ParseStage) TotalFields() int {
	sc, ok := s.Extractor.(recordSchema)
	if !ok {
		return 0
	}
	n := 0
	for _, f := range sc.Fields() {
		if f != constants.FieldAttachments {
			n++
		}
	}
	return n
}
