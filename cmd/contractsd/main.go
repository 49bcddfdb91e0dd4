package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/contracts-tracker/internal/async"
	"github.com/joseph-ayodele/contracts-tracker/internal/common"
	"github.com/joseph-ayodele/contracts-tracker/internal/export"
	"github.com/joseph-ayodele/contracts-tracker/internal/extract"
	"github.com/joseph-ayodele/contracts-tracker/internal/ingest"
	"github.com/joseph-ayodele/contracts-tracker/internal/nlp"
	"github.com/joseph-ayodele/contracts-tracker/internal/ocr"
	"github.com/joseph-ayodele/contracts-tracker/internal/pipeline"
	repo "github.com/joseph-ayodele/contracts-tracker/internal/repository"
	svc "github.com/joseph-ayodele/contracts-tracker/internal/server"
)

func main() {
	cfg := common.LoadConfig()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Server.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	addr := cfg.Server.GRPCAddr
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Engines are built once and shared by every job.
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
		PSM:                 6,
	}, logger)
	if err := extractor.Init(ctx); err != nil {
		logger.Error("failed to initialize ocr engine", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := extractor.Close(); err != nil {
			logger.Warn("failed to clean ocr scratch dir", "error", err)
		}
	}()

	var classifier extract.EntityClassifier
	if cfg.NLP.Enabled {
		h := nlp.NewHeuristic(logger)
		if err := h.Load(ctx); err != nil {
			logger.Warn("entity classifier unavailable; continuing with rules only", "error", err)
		} else {
			classifier = h
			defer h.Close()
		}
	}
	engine, err := extract.NewEngine(extract.DefaultRules(), classifier, logger)
	if err != nil {
		logger.Error("failed to build extraction engine", "error", err)
		os.Exit(1)
	}

	archive, err := repo.OpenArchive(ctx, cfg.Archive, logger)
	if err != nil {
		logger.Error("failed to open result archive", "driver", cfg.Archive.Driver, "error", err)
		os.Exit(1)
	}
	if archive != nil {
		defer func() {
			if err := archive.Close(); err != nil {
				logger.Error("failed to close result archive", "error", err)
			}
		}()
	}

	processor := pipeline.NewProcessor(logger,
		pipeline.NewOCRStage(extract.NewOCRAdapter(extractor), logger),
		pipeline.NewParseStage(engine, logger),
		archive,
		cfg.Jobs.PreviewChars,
	)

	manager := async.NewManager(
		async.WithLogger(logger),
		async.WithWorkers(cfg.Jobs.Workers),
		async.WithQueueSize(cfg.Jobs.QueueSize),
		async.WithRetention(cfg.Jobs.Retention),
		async.WithCleanupInterval(cfg.Jobs.CleanupInterval),
	)
	go manager.Run(ctx)

	if dirs := cfg.Ingest.WatchDirs; len(dirs) > 0 {
		ingestor := ingest.NewIngestor(manager, processor, logger)
		go func() {
			err := ingestor.Watch(ctx, ingest.WatchConfig{
				Roots:       dirs,
				InitialScan: cfg.Ingest.InitialScan,
				SkipHidden:  cfg.Ingest.SkipHidden,
				Debounce:    cfg.Ingest.Debounce,
			})
			if err != nil && ctx.Err() == nil {
				logger.Error("directory watcher stopped", "error", err)
			}
		}()
	}

	// gRPC server
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", addr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(svc.UnaryInterceptor(logger)))

	jobsServer := svc.NewJobsServer(manager, processor, export.NewService(logger), archive, logger,
		svc.WithInputRoot(cfg.Server.InputRoot))
	svc.RegisterJobsServiceServer(grpcServer, jobsServer)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(svc.JobsServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	logger.Info("contracts-tracker listening", "addr", addr, "workers", cfg.Jobs.Workers, "archive", cfg.Archive.Driver)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			slog.Error("gRPC serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	healthServer.Shutdown()
	grpcServer.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Warn("jobs still running at shutdown were cancelled", "error", err)
	}
}
