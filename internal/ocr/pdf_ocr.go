package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/contracts-tracker/constants"
	"github.com/joseph-ayodele/contracts-tracker/internal/common"
)

func (e *Extractor) extractPDF(ctx context.Context, path string) (ExtractionResult, error) {
	var warns []string
	if e.cfg.PreferTextLayer {
		text, pages, err := pdfTextLayer(path)
		switch {
		case err != nil:
			warns = append(warns, "pdf text layer: "+err.Error())
		case pages > 0 && usableTextLayer(text, pages, e.cfg.MinTextLayerRunes):
			text = Normalize(text)
			return ExtractionResult{
				Text:       text,
				Pages:      pages,
				SourceType: constants.PDF,
				Method:     MethodPDFText,
				Warnings:   warns,
				Confidence: blendConfidence(1.0, heuristicConfidence(text)),
			}, nil
		default:
			e.logger.Debug("pdf text layer too thin, rasterizing", "path", path, "pages", pages)
		}
	}

	if err := e.rasterReady(); err != nil {
		return ExtractionResult{SourceType: constants.PDF, Warnings: warns}, err
	}
	text, pages, w, err := e.pdfToOCR(ctx, path)
	warns = append(warns, w...)
	if err != nil {
		return ExtractionResult{SourceType: constants.PDF, Pages: pages, Warnings: warns}, err
	}
	text = Normalize(text)
	return ExtractionResult{
		Text:       text,
		Pages:      pages,
		SourceType: constants.PDF,
		Method:     MethodPDFOCR,
		Language:   e.cfg.TesseractLang,
		Warnings:   warns,
		Confidence: heuristicConfidence(text),
	}, nil
}

func usableTextLayer(text string, pages, minPerPage int) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) >= pages*minPerPage
}

// pdfTextLayer reads the embedded text of every page.
func pdfTextLayer(path string) (text string, pages int, err error) {
	defer func() {
		// the pdf reader panics on some malformed cross-reference tables
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	pages = r.NumPage()
	parts := make([]string, 0, pages)
	for i := 1; i <= pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			parts = append(parts, "")
			continue
		}
		t, err := p.GetPlainText(nil)
		if err != nil {
			return "", pages, fmt.Errorf("page %d: %w", i, err)
		}
		parts = append(parts, Normalize(t))
	}
	return strings.Join(parts, PageSeparator), pages, nil
}

func (e *Extractor) pdfToOCR(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	tmpDir, err := e.tempDir("pages-*")
	if err != nil {
		return "", 0, nil, fmt.Errorf("create page dir: %w", err)
	}
	defer func(dir string) {
		if err := os.RemoveAll(dir); err != nil {
			e.logger.Warn("failed to remove page dir", "dir", dir, "error", err)
		}
	}(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png [-l N] <in.pdf> <tmp/page>
	args := []string{"-r", strconv.Itoa(e.cfg.DPI), "-png"}
	if e.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	args = append(args, path, prefix)
	if _, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, args...); err != nil {
		return "", 0, nil, classifyRunErr(e.cfg.Pdftoppm, "PDF rasterizer", "", err, errb)
	}

	// collect generated pngs (page-1.png ... or page-01.png ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sortPageImages(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return "", 0, nil, common.EngineFailure("pdftoppm produced no page images", nil)
	}

	texts := make([]string, len(matches))
	pageErrs := make([]error, len(matches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.PageWorkers)
	for i, img := range matches {
		g.Go(func() error {
			txt, err := e.tesseractOCR(gctx, img)
			if err != nil {
				if !errors.Is(err, common.ErrEngineFailure) {
					return err
				}
				pageErrs[i] = err
				return nil
			}
			// tesseract ends every page with "\n\f"; pages are joined by PageSeparator
			texts[i] = Normalize(txt)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", len(matches), nil, err
	}

	// A missing page would leave a record that silently lacks its clauses,
	// so any failed page fails the document.
	var failed []string
	var first error
	for i, perr := range pageErrs {
		if perr != nil {
			failed = append(failed, strconv.Itoa(i+1))
			if first == nil {
				first = perr
			}
		}
	}
	if len(failed) > 0 {
		return "", len(matches), warnings, common.EngineFailure(
			fmt.Sprintf("recognition failed on page(s) %s of %d", strings.Join(failed, ", "), len(matches)), first)
	}
	return strings.Join(texts, PageSeparator), len(matches), warnings, nil
}

// sortPageImages orders page-N.png by N; pdftoppm zero-pads only for long documents.
func sortPageImages(paths []string) {
	num := func(p string) int {
		base := strings.TrimSuffix(filepath.Base(p), ".png")
		n, _ := strconv.Atoi(base[strings.LastIndex(base, "-")+1:])
		return n
	}
	sort.Slice(paths, func(i, j int) bool { return num(paths[i]) < num(paths[j]) })
}
