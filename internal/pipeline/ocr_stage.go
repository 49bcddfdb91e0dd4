package pipeline

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/contracts-tracker/constants"
	"github.com/joseph-ayodele/contracts-tracker/internal/extract"
	"github.com/joseph-ayodele/contracts-tracker/internal/ocr"
)

type OCRStage struct {
	TextExtractor extract.TextExtractor
	Logger        *slog.Logger
}

func NewOCRStage(tx extract.TextExtractor, logger *slog.Logger) *OCRStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRStage{TextExtractor: tx, Logger: logger}
}

// Run recognizes the document at path. Empty text is a valid outcome.
func (s *OCRStage) Run(ctx context.Context, path string) (extract.TextExtractionResult, error) {
	res, err := s.TextExtractor.Extract(ctx, path)
	if err != nil {
		return res, err
	}
	if res.SourceType == constants.IMAGE && res.Confidence > 0 && res.Confidence < ocr.ImageConfidenceThreshold {
		s.Logger.Warn("image ocr confidence low", "path", path, "conf", res.Confidence)
	}
	if res.Text == "" {
		s.Logger.Warn("no text recognized", "path", path, "method", res.Method)
	}
	return res, nil
}
