package ocr

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/contracts-tracker/constants"
)

const ImageConfidenceThreshold = 0.6

func (e *Extractor) extractImage(ctx context.Context, path string) (ExtractionResult, error) {
	txt, err := e.tesseractOCR(ctx, path)
	if err != nil {
		return ExtractionResult{SourceType: constants.IMAGE}, err
	}
	txt = Normalize(txt)

	var warn []string
	var ocrConf float32
	if e.cfg.EnableTSVConfidence {
		if c, err2 := e.tesseractTSVConfidence(ctx, path); err2 == nil {
			ocrConf = c
		} else {
			warn = append(warn, err2.Error())
		}
	}
	conf := blendConfidence(ocrConf, heuristicConfidence(txt))
	if conf < ImageConfidenceThreshold {
		warn = append(warn, fmt.Sprintf("low recognition confidence %.2f", conf))
	}

	return ExtractionResult{
		Text:       txt,
		Pages:      1,
		SourceType: constants.IMAGE,
		Method:     MethodImageOCR,
		Language:   e.cfg.TesseractLang,
		Warnings:   warn,
		Confidence: conf,
	}, nil
}

func (e *Extractor) baseArgs(path string) []string {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return args
}

func (e *Extractor) tesseractOCR(ctx context.Context, path string) (string, error) {
	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, e.baseArgs(path)...)
	if err != nil {
		return "", classifyRunErr(e.cfg.Tesseract, "text recognition engine", "", err, errb)
	}
	return string(out), nil
}

// tesseractTSVConfidence runs tesseract in TSV mode and returns mean word conf in 0..1.
func (e *Extractor) tesseractTSVConfidence(ctx context.Context, path string) (float32, error) {
	args := append(e.baseArgs(path), "tsv")
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return 0, classifyRunErr(e.cfg.Tesseract, "text recognition engine", "", err, errb)
	}
	return meanTSVConfidence(string(out)), nil
}

func meanTSVConfidence(tsv string) float32 {
	lines := strings.Split(tsv, "\n")
	// conf column is the 11th of 12; header line includes "conf"
	var sum, n float64
	for i, ln := range lines {
		if i == 0 || len(ln) == 0 {
			continue
		} // skip header
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		confStr := cols[10]
		if confStr == "" || confStr == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(confStr, 64); err == nil && v >= 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float32(sum / n / 100.0)
}
