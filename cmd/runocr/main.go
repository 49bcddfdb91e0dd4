package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/contracts-tracker/constants"
	"github.com/joseph-ayodele/contracts-tracker/internal/async"
	"github.com/joseph-ayodele/contracts-tracker/internal/common"
	"github.com/joseph-ayodele/contracts-tracker/internal/export"
	"github.com/joseph-ayodele/contracts-tracker/internal/extract"
	"github.com/joseph-ayodele/contracts-tracker/internal/ingest"
	"github.com/joseph-ayodele/contracts-tracker/internal/nlp"
	"github.com/joseph-ayodele/contracts-tracker/internal/ocr"
	"github.com/joseph-ayodele/contracts-tracker/internal/pipeline"
)

// runocr processes one document without the server and prints the result
// payload as JSON.
func main() {
	schema := flag.Bool("schema", false, "print the JSON schema of the extracted record and exit")
	xlsxOut := flag.String("xlsx", "", "also write the record as an XLSX workbook to this path")
	dir := flag.String("dir", "", "process every supported document under this directory")
	timeout := flag.Duration("timeout", 5*time.Minute, "processing timeout")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if *schema {
		engine, err := extract.NewEngine(extract.DefaultRules(), nil, logger)
		if err != nil {
			logger.Error("build engine", "error", err)
			os.Exit(1)
		}
		printJSON(extract.RecordJSONSchema(engine.Fields()))
		return
	}

	if (*dir == "") == (flag.NArg() != 1) {
		logger.Error("usage", "cmd", "runocr [-xlsx out.xlsx] <document> | runocr -dir <directory>")
		os.Exit(2)
	}
	cfg := common.LoadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	extractor := ocr.NewExtractor(ocr.Config{
		Pdftoppm:            cfg.OCR.Pdftoppm,
		Tesseract:           cfg.OCR.Tesseract,
		TesseractLang:       cfg.OCR.TesseractLang,
		DPI:                 cfg.OCR.DPI,
		MaxPages:            cfg.OCR.MaxPages,
		PageWorkers:         cfg.OCR.PageWorkers,
		TessdataDir:         cfg.OCR.TessdataDir,
		EnableTSVConfidence: true,
		PreferTextLayer:     cfg.OCR.PreferTextLayer,
	}, logger)
	if err := extractor.Init(ctx); err != nil {
		logger.Error("init ocr", "error", err)
		os.Exit(1)
	}
	defer extractor.Close()

	var classifier extract.EntityClassifier
	if cfg.NLP.Enabled {
		h := nlp.NewHeuristic(logger)
		if err := h.Load(ctx); err == nil {
			classifier = h
			defer h.Close()
		}
	}
	engine, err := extract.NewEngine(extract.DefaultRules(), classifier, logger)
	if err != nil {
		logger.Error("build engine", "error", err)
		os.Exit(1)
	}

	// Run through the job manager so progress and failures look exactly like
	// they do in the server.
	processor := pipeline.NewProcessor(logger,
		pipeline.NewOCRStage(extract.NewOCRAdapter(extractor), logger),
		pipeline.NewParseStage(engine, logger),
		nil,
		cfg.Jobs.PreviewChars,
	)
	if *dir != "" {
		runDirectory(ctx, logger, processor, *dir, cfg.Jobs.Workers)
		return
	}

	manager := async.NewManager(async.WithLogger(logger), async.WithWorkers(1))
	id, err := manager.Submit("", processor.Task(pipeline.Request{Path: flag.Arg(0)}))
	if err != nil {
		logger.Error("submit", "error", err)
		os.Exit(1)
	}

	snap := waitTerminal(ctx, manager, id)
	_ = manager.Shutdown(ctx)
	if snap.Status != constants.JobStatusCompleted {
		logger.Error("processing failed", "job_id", id, "status", snap.Status, "error", snap.Error)
		os.Exit(1)
	}
	printJSON(snap.Result)

	if *xlsxOut != "" {
		res, err := pipeline.DecodeResult(snap.Result)
		if err != nil {
			logger.Error("decode result", "error", err)
			os.Exit(1)
		}
		b, err := export.NewService(logger).ContractXLSX(id, res)
		if err != nil {
			logger.Error("export", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*xlsxOut, b, 0o644); err != nil {
			logger.Error("write xlsx", "path", *xlsxOut, "error", err)
			os.Exit(1)
		}
	}
}

// runDirectory submits every document under root and prints the final
// snapshots in walk order. Identical files are processed once.
func runDirectory(ctx context.Context, logger *slog.Logger, processor *pipeline.Processor, root string, workers int) {
	manager := async.NewManager(
		async.WithLogger(logger),
		async.WithWorkers(workers),
		async.WithQueueSize(4096),
	)
	results, stats, err := ingest.NewIngestor(manager, processor, logger).IngestDirectory(ctx, root, true)
	if err != nil {
		logger.Error("ingest directory", "root", root, "error", err)
		os.Exit(1)
	}

	var snaps []async.Snapshot
	failed := stats.Failed
	for _, r := range results {
		if r.Err != "" || r.Deduplicated {
			continue
		}
		snap := waitTerminal(ctx, manager, r.JobID)
		if snap.Status != constants.JobStatusCompleted {
			failed++
		}
		snaps = append(snaps, snap)
	}
	_ = manager.Shutdown(ctx)
	printJSON(snaps)
	if failed > 0 {
		logger.Error("some documents failed", "failed", failed, "matched", stats.Matched)
		os.Exit(1)
	}
}

func waitTerminal(ctx context.Context, m *async.Manager, id string) async.Snapshot {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	last := -1
	for {
		snap, _ := m.Status(id)
		if snap.Progress != last {
			slog.Info("progress", "job_id", id, "progress", snap.Progress, "message", snap.Message)
			last = snap.Progress
		}
		if snap.Status.IsTerminal() {
			return snap
		}
		select {
		case <-ctx.Done():
			m.Cancel(id)
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = m.Shutdown(shutdownCtx)
			cancel()
			snap, _ = m.Status(id)
			return snap
		case <-ticker.C:
		}
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
