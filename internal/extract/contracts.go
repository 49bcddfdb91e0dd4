package extract

import (
	"context"
	"time"

	"github.com/joseph-ayodele/contracts-tracker/internal/nlp"
)

// TextExtractor is Stage 1: file -> text.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (TextExtractionResult, error)
}

type TextExtractionResult struct {
	Text       string
	Pages      int
	SourceType string // "PDF" | "IMAGE" | "DOCX"
	Method     string // "pdf-text" | "pdf-ocr" | "image-ocr" | "docx-text"
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}

// FieldExtractor is Stage 2: text -> contract record.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, text string) (*Record, error)
}

// EntityClassifier labels text spans with coarse categories.
type EntityClassifier interface {
	Classify(ctx context.Context, text string) (nlp.Entities, error)
}
