package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/joseph-ayodele/contracts-tracker/constants"
	"github.com/joseph-ayodele/contracts-tracker/internal/async"
	"github.com/joseph-ayodele/contracts-tracker/internal/common"
	"github.com/joseph-ayodele/contracts-tracker/internal/repository"
)

// Reporter publishes progress and reports pending cancellation.
type Reporter interface {
	Progress(progress int, message string)
	Checkpoint() error
}

// Request identifies the document of one job.
type Request struct {
	Path     string
	Filename string
}

// Processor coordinates OCR (text extract) then rule-based field extraction.
type Processor struct {
	Logger       *slog.Logger
	OCR          *OCRStage
	Parse        *ParseStage
	Archive      repository.ResultArchive // optional
	PreviewChars int
}

func NewProcessor(logger *slog.Logger, ocr *OCRStage, parse *ParseStage, archive repository.ResultArchive, previewChars int) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Logger: logger, OCR: ocr, Parse: parse, Archive: archive, PreviewChars: previewChars}
}

// Task wraps one request for the job manager.
func (p *Processor) Task(req Request) async.Task {
	return async.TaskFunc(func(ctx context.Context, r *async.Reporter) (map[string]any, error) {
		return p.Process(ctx, r, req)
	})
}

// Process runs both stages for req and returns the result payload. The input
// is checked before any stage runs; cancellation is honored between stages.
func (p *Processor) Process(ctx context.Context, r Reporter, req Request) (map[string]any, error) {
	log := p.Logger.With("job_id", common.JobIDFromContext(ctx), "path", req.Path)

	info, err := os.Stat(req.Path)
	if err != nil {
		return nil, common.InputNotFound(req.Path, err)
	}
	if info.IsDir() {
		return nil, common.InputNotFound(req.Path, nil)
	}
	format := constants.MapExtToFormat(filepath.Ext(req.Path))
	if format == "" {
		return nil, common.UnsupportedFormat(filepath.Ext(req.Path))
	}
	filename := req.Filename
	if filename == "" {
		filename = filepath.Base(req.Path)
	}

	// 1) OCR stage
	if err := r.Checkpoint(); err != nil {
		return nil, err
	}
	r.Progress(20, "text recognition started")
	ocrRes, err := p.OCR.Run(ctx, req.Path)
	if err != nil {
		log.Error("processor.ocr.failed", "error", err)
		return nil, err
	}
	log.Info("processor.ocr.ok",
		"method", ocrRes.Method,
		"pages", ocrRes.Pages,
		"confidence", ocrRes.Confidence,
		"chars", utf8.RuneCountInString(ocrRes.Text),
	)
	r.Progress(60, "text recognition finished, field extraction started")

	// 2) field extraction
	if err := r.Checkpoint(); err != nil {
		return nil, err
	}
	rec, err := p.Parse.Run(ctx, ocrRes.Text)
	if err != nil {
		log.Error("processor.parse.failed", "error", err)
		return nil, err
	}
	r.Progress(90, "field extraction finished")
	log.Info("processor.parse.ok", "fields", len(rec.Fields), "attachments", len(rec.Attachments))

	textLen := utf8.RuneCountInString(ocrRes.Text)
	res := &Result{
		FileInfo:       newFileInfo(filename, req.Path, format, info.Size()),
		ExtractedText:  preview(ocrRes.Text, p.PreviewChars),
		FullTextLength: textLen,
		Recognition: Recognition{
			Method:     ocrRes.Method,
			Language:   ocrRes.Language,
			Pages:      ocrRes.Pages,
			Confidence: ocrRes.Confidence,
			Warnings:   ocrRes.Warnings,
			DurationMS: ocrRes.Duration.Milliseconds(),
		},
		ContractData: rec,
		ExtractionStats: ExtractionStats{
			TextLength:      textLen,
			FieldsExtracted: len(rec.Fields),
			TotalFields:     p.Parse.TotalFields(),
			Attachments:     len(rec.Attachments),
			Diagnostics:     len(rec.Diagnostics),
		},
	}
	payload, err := res.ToMap()
	if err != nil {
		return nil, err
	}

	if p.Archive != nil {
		p.archive(ctx, log, filename, res, payload)
	}
	return payload, nil
}

// archive failures never fail the job.
func (p *Processor) archive(ctx context.Context, log *slog.Logger, filename string, res *Result, payload map[string]any) {
	jobID := common.JobIDFromContext(ctx)
	if jobID == "" {
		log.Warn("skipping archive: no job id in context")
		return
	}
	f := res.ContractData.Fields
	err := p.Archive.Save(ctx, &repository.ArchivedResult{
		JobID:          jobID,
		Filename:       filename,
		ContractNumber: f[constants.FieldContractNumber],
		ContractDate:   f[constants.FieldContractDate],
		CustomerName:   f[constants.FieldCustomerName],
		ContractorName: f[constants.FieldContractorName],
		AmountInclVAT:  f[constants.FieldAmountInclVAT],
		Payload:        payload,
	})
	if err != nil {
		log.Error("archive result failed", "error", err)
		return
	}
	log.Debug("result archived")
}
