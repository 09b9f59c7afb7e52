package extract

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// OCRExtractor runs optical character recognition on raster images and on
// PDFs without a usable text layer. It shells out to tesseract (and
// pdftoppm for PDF rasterization); both binaries are injected so the
// toolchain location is configurable and the extractor is testable.
type OCRExtractor struct {
	TesseractBin string
	PdftoppmBin  string
	Languages    string // tesseract -l value, e.g. "eng+spa"
	DPI          int
}

// NewOCRExtractor builds an OCR extractor for the given toolchain.
func NewOCRExtractor(tesseractBin, pdftoppmBin, languages string, dpi int) *OCRExtractor {
	if languages == "" {
		languages = "eng+spa"
	}
	if dpi <= 0 {
		dpi = 300
	}
	return &OCRExtractor{
		TesseractBin: tesseractBin,
		PdftoppmBin:  pdftoppmBin,
		Languages:    languages,
		DPI:          dpi,
	}
}

// Available reports whether the OCR toolchain is installed.
func (e *OCRExtractor) Available() bool {
	_, err := exec.LookPath(e.TesseractBin)
	return err == nil
}

// ExtractImage OCRs a single raster image.
func (e *OCRExtractor) ExtractImage(ctx context.Context, path string) (*Result, error) {
	if !e.Available() {
		return nil, fmt.Errorf("%w: tesseract not available", ErrExtractionFailed)
	}

	text, err := e.runTesseract(ctx, path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: OCR produced no text", ErrExtractionFailed)
	}

	return &Result{
		Text:       text,
		Method:     MethodImageOCR,
		Confidence: 0.6, // OCR output is inherently noisier than a text layer
		Metadata:   map[string]string{"languages": e.Languages},
	}, nil
}

// ExtractPDF rasterizes each PDF page with pdftoppm and OCRs the images.
func (e *OCRExtractor) ExtractPDF(ctx context.Context, path string) (*Result, error) {
	if !e.Available() {
		return nil, fmt.Errorf("%w: tesseract not available", ErrExtractionFailed)
	}
	if _, err := exec.LookPath(e.PdftoppmBin); err != nil {
		return nil, fmt.Errorf("%w: pdftoppm not available: %v", ErrExtractionFailed, err)
	}

	tmpDir, err := os.MkdirTemp("", "cardtruth-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	cmd := exec.CommandContext(ctx, e.PdftoppmBin, "-r", strconv.Itoa(e.DPI), "-png", path, prefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%w: pdftoppm: %v (%s)", ErrExtractionFailed, err, strings.TrimSpace(string(out)))
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	var images []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".png") {
			images = append(images, filepath.Join(tmpDir, entry.Name()))
		}
	}
	sort.Strings(images)
	if len(images) == 0 {
		return nil, fmt.Errorf("%w: pdftoppm produced no page images", ErrExtractionFailed)
	}

	var pages []string
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := e.runTesseract(ctx, img)
		if err != nil {
			continue
		}
		if t := strings.TrimSpace(text); t != "" {
			pages = append(pages, t)
		}
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: OCR produced no text from %d pages", ErrExtractionFailed, len(images))
	}

	return &Result{
		Text:       strings.Join(pages, "\n\n"),
		Method:     MethodPDFOCR,
		Confidence: 0.55,
		Metadata: map[string]string{
			"pages":     strconv.Itoa(len(pages)),
			"languages": e.Languages,
		},
	}, nil
}

func (e *OCRExtractor) runTesseract(ctx context.Context, imagePath string) (string, error) {
	cmd := exec.CommandContext(ctx, e.TesseractBin, imagePath, "stdout", "-l", e.Languages, "--psm", "6")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%w: tesseract: %v", ErrExtractionFailed, err)
	}
	return string(out), nil
}
