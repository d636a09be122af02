// Package pdfextract extracts candidate transactions from PDFs and scanned
// images. PDFs with a text layer go through pdftotext; scanned PDFs are
// rasterized with pdftoppm and OCRed with tesseract, as are plain images.
// A line-scanning heuristic then flags lines bearing currency-like tokens
// as candidate transactions. Text-layout ambiguity makes this inherently
// less certain than spreadsheet extraction, which the per-candidate
// confidence reflects.
package pdfextract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"findex/internal/extract"
	"findex/internal/logging"
	"findex/internal/models"
)

const (
	textLayerConfidence = 0.60
	ocrConfidence       = 0.45
)

// Config carries the external tool locations and OCR tuning knobs.
type Config struct {
	Pdftotext string
	Pdftoppm  string
	Tesseract string
	Language  string
	DPI       int
	MaxPages  int
}

// Extractor extracts candidate transactions from PDFs and images.
type Extractor struct {
	cfg    Config
	runner Runner
	logger logging.Logger
}

// New creates a PDF/image extractor. A nil runner gets the exec-backed one.
func New(cfg Config, runner Runner, logger logging.Logger) *Extractor {
	if logger == nil {
		logger = logging.GetLogger()
	}
	if runner == nil {
		runner = NewExecRunner(logger)
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.DPI == 0 {
		cfg.DPI = 300
	}
	return &Extractor{cfg: cfg, runner: runner, logger: logger}
}

// Extract handles both PDFs and images based on the file extension.
func (e *Extractor) Extract(ctx context.Context, path string) (models.RawExtraction, error) {
	if err := ctx.Err(); err != nil {
		return models.RawExtraction{}, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".pdf" {
		return e.extractPDF(ctx, path)
	}
	return e.extractImage(ctx, path)
}

func (e *Extractor) extractPDF(ctx context.Context, path string) (models.RawExtraction, error) {
	text, warnings, err := e.pdfToText(ctx, path)
	method := "pdftotext"
	confidence := textLayerConfidence

	if err != nil || strings.TrimSpace(text) == "" {
		// No text layer: fall back to rasterize-and-OCR.
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("pdftotext: %v", err))
		} else {
			warnings = append(warnings, "no text layer, falling back to OCR")
		}

		ocrText, ocrWarnings, ocrErr := e.pdfToOCR(ctx, path)
		warnings = append(warnings, ocrWarnings...)
		if ocrErr != nil {
			failed := extract.Failed(path, models.FileTypePDF, "pdf-ocr", ocrErr)
			failed.Warnings = warnings
			return failed, nil
		}
		text = ocrText
		method = "pdf-ocr"
		confidence = ocrConfidence
	}

	result := models.RawExtraction{
		FileType: models.FileTypePDF,
		Method:   method,
		RawText:  text,
		Warnings: warnings,
		Status:   models.ExtractionSuccess,
	}
	result.Transactions = scanLines(text, confidence)
	if len(warnings) > 0 && len(result.Transactions) > 0 {
		result.Status = models.ExtractionPartial
	}
	return result, nil
}

func (e *Extractor) extractImage(ctx context.Context, path string) (models.RawExtraction, error) {
	text, err := e.tesseract(ctx, path)
	if err != nil {
		return extract.Failed(path, models.FileTypeImage, "image-ocr", err), nil
	}

	result := models.RawExtraction{
		FileType: models.FileTypeImage,
		Method:   "image-ocr",
		RawText:  text,
		Status:   models.ExtractionSuccess,
	}
	result.Transactions = scanLines(text, ocrConfidence)
	return result, nil
}

// pdfToText runs pdftotext with layout preservation, writing to stdout.
func (e *Extractor) pdfToText(ctx context.Context, path string) (string, []string, error) {
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", []string{string(errb)}, err
	}
	return string(out), nil, nil
}

// pdfToOCR rasterizes each page with pdftoppm and OCRs the images.
func (e *Extractor) pdfToOCR(ctx context.Context, path string) (string, []string, error) {
	tmpDir, err := os.MkdirTemp("", "findex-ocr-*")
	if err != nil {
		return "", nil, err
	}
	defer func() {
		if rerr := os.RemoveAll(tmpDir); rerr != nil {
			e.logger.WithError(rerr).Warn("Failed to remove OCR temp dir",
				logging.Field{Key: "dir", Value: tmpDir})
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", fmt.Sprintf("%d", e.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return "", []string{string(errb)}, err
	}

	pages, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(pages)
	if e.cfg.MaxPages > 0 && len(pages) > e.cfg.MaxPages {
		pages = pages[:e.cfg.MaxPages]
	}
	if len(pages) == 0 {
		return "", []string{"pdftoppm produced no images"}, fmt.Errorf("no pages rendered")
	}

	var b strings.Builder
	var warnings []string
	for _, img := range pages {
		txt, err := e.tesseract(ctx, img)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("ocr %s: %v", filepath.Base(img), err))
			continue
		}
		b.WriteString(txt)
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return "", warnings, fmt.Errorf("OCR produced no text")
	}
	return b.String(), warnings, nil
}

func (e *Extractor) tesseract(ctx context.Context, imagePath string) (string, error) {
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, imagePath, "stdout", "-l", e.cfg.Language)
	if err != nil {
		return "", fmt.Errorf("tesseract: %v: %s", err, truncate(string(errb), 512))
	}
	return string(out), nil
}
