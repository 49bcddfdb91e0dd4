package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joseph-ayodele/contracts-tracker/constants"
	"github.com/joseph-ayodele/contracts-tracker/internal/common"
)

// PageSeparator joins the texts of consecutive pages.
const PageSeparator = "\n\f\n"

// Recognition methods reported in ExtractionResult.Method.
const (
	MethodPDFText  = "pdf-text"
	MethodPDFOCR   = "pdf-ocr"
	MethodImageOCR = "image-ocr"
	MethodDOCX     = "docx-text"
)

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "rus"
	DPI           int    // rasterization DPI for scanned PDFs, default 300
	MaxPages      int    // 0 = no limit
	PageWorkers   int    // concurrent tesseract runs per PDF, default 2

	TessdataDir         string
	EnableTSVConfidence bool

	// PreferTextLayer reads embedded PDF text before rasterizing.
	PreferTextLayer bool
	// MinTextLayerRunes is the per-page amount of embedded text below which
	// a PDF is treated as scanned. Default 40.
	MinTextLayerRunes int

	PSM int // e.g., 6 is good for uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default

	ScratchDir string // parent for page images; default os.TempDir()
}

type ExtractionResult struct {
	Text       string
	Pages      int
	SourceType string // constants.PDF | constants.IMAGE | constants.DOCX
	Method     string // "pdf-text" | "pdf-ocr" | "image-ocr" | "docx-text"
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}

// Extractor is the text recognition engine handle. Build it once, call Init
// before serving and Close on shutdown.
type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger

	mu         sync.RWMutex
	ocrErr     error // set by Init when tesseract is unusable
	rasterErr  error // set by Init when pdftoppm is unusable
	scratchDir string
}

type Option func(*Extractor)

// WithRunner replaces the command runner (tests use a fake).
func WithRunner(r Runner) Option {
	return func(e *Extractor) {
		if r != nil {
			e.runner = r
		}
	}
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "rus"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.PageWorkers <= 0 {
		cfg.PageWorkers = 2
	}
	if cfg.MinTextLayerRunes <= 0 {
		cfg.MinTextLayerRunes = 40
	}
	e := &Extractor{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Init probes the external engines and prepares the scratch directory.
// A missing engine is not returned as an error: it is remembered and every
// call that needs that engine fails with EngineUnavailable. Init only fails
// when the scratch directory cannot be created.
func (e *Extractor) Init(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	dir, err := os.MkdirTemp(e.cfg.ScratchDir, "ct-ocr-*")
	if err != nil {
		return fmt.Errorf("create ocr scratch dir: %w", err)
	}
	e.scratchDir = dir

	e.ocrErr = e.probeTesseract(ctx)
	if e.ocrErr != nil {
		e.logger.Warn("text recognition engine unavailable", "error", e.ocrErr)
	}
	if _, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-v"); err != nil {
		e.rasterErr = classifyRunErr(e.cfg.Pdftoppm, "PDF rasterizer", "install poppler-utils", err, errb)
		e.logger.Warn("pdf rasterizer unavailable; scanned PDFs will fail", "error", e.rasterErr)
	}
	e.logger.Info("ocr engine initialized",
		"tesseract", e.cfg.Tesseract,
		"lang", e.cfg.TesseractLang,
		"ocr_available", e.ocrErr == nil,
		"raster_available", e.rasterErr == nil,
	)
	return nil
}

func (e *Extractor) probeTesseract(ctx context.Context) error {
	hint := fmt.Sprintf("install tesseract-ocr with the %q language pack", e.cfg.TesseractLang)
	if _, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, "--version"); err != nil {
		return classifyRunErr(e.cfg.Tesseract, "text recognition engine", hint, err, errb)
	}
	args := []string{"--list-langs"}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return classifyRunErr(e.cfg.Tesseract, "text recognition engine", hint, err, errb)
	}
	// older tesseract builds print the list on stderr
	listing := string(out) + "\n" + string(errb)
	for _, lang := range strings.Split(e.cfg.TesseractLang, "+") {
		if !hasLine(listing, lang) {
			return common.EngineUnavailable(
				fmt.Sprintf("text recognition engine unavailable: language pack %q is not installed", lang), nil)
		}
	}
	return nil
}

func hasLine(listing, want string) bool {
	for _, ln := range strings.Split(listing, "\n") {
		if strings.TrimSpace(ln) == want {
			return true
		}
	}
	return false
}

// Close removes the scratch directory.
func (e *Extractor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.scratchDir == "" {
		return nil
	}
	err := os.RemoveAll(e.scratchDir)
	e.scratchDir = ""
	return err
}

func (e *Extractor) ocrReady() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ocrErr
}

func (e *Extractor) rasterReady() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.rasterErr != nil {
		return e.rasterErr
	}
	return e.ocrErr
}

func (e *Extractor) tempDir(pattern string) (string, error) {
	e.mu.RLock()
	parent := e.scratchDir
	e.mu.RUnlock()
	if parent == "" {
		parent = e.cfg.ScratchDir
	}
	return os.MkdirTemp(parent, pattern)
}

// Extract picks a strategy based on file extension. The returned error is
// always classified: InputNotFound, UnsupportedFormat, EngineUnavailable or
// EngineFailure (context errors are passed through). A nil error with empty
// Text means the engine ran and found nothing.
func (e *Extractor) Extract(ctx context.Context, path string) (ExtractionResult, error) {
	start := time.Now()

	f, err := os.Open(path)
	if err != nil {
		return ExtractionResult{}, common.InputNotFound(path, err)
	}
	info, err := f.Stat()
	_ = f.Close()
	if err != nil || info.IsDir() {
		return ExtractionResult{}, common.InputNotFound(path, err)
	}

	ext := constants.NormalizeExt(filepath.Ext(path))
	format := constants.MapExtToFormat(ext)
	e.logger.Debug("starting text extraction", "path", path, "ext", ext, "format", format)

	var res ExtractionResult
	switch format {
	case constants.PDF:
		res, err = e.extractPDF(ctx, path)
	case constants.IMAGE:
		if err = e.ocrReady(); err == nil {
			res, err = e.extractImage(ctx, path)
		}
	case constants.DOCX:
		res, err = e.extractDOCX(path)
	default:
		e.logger.Error("unsupported document extension", "extension", ext)
		return ExtractionResult{}, common.UnsupportedFormat(ext)
	}
	res.SourceType = format
	res.Duration = time.Since(start)
	if err != nil {
		e.logger.Error("text extraction failed", "path", path, "format", format, "error", err)
		return res, err
	}
	e.logger.Info("text extracted",
		"path", path,
		"method", res.Method,
		"pages", res.Pages,
		"chars", len([]rune(res.Text)),
		"confidence", res.Confidence,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}
