// Package extract produces raw text from statement files of unknown
// format. Each supported format is an injected TextExtractor variant; the
// Dispatcher selects one by extension or declared MIME type. Extraction
// either yields a complete Result or a typed error; it never silently
// returns empty text.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Typed extraction errors. Callers match with errors.Is.
var (
	// ErrUnsupportedFormat means no extractor claims the file.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrExtractionFailed means an extractor matched but could not produce
	// usable text (OCR unavailable, unreadable PDF, too little text).
	ErrExtractionFailed = errors.New("text extraction failed")
)

// Method names the extraction path that produced a Result.
type Method string

const (
	MethodPDFText  Method = "pdf_text"
	MethodPDFOCR   Method = "pdf_ocr"
	MethodImageOCR Method = "image_ocr"
	MethodCSV      Method = "csv"
	MethodXLSX     Method = "xlsx"
	MethodOFX      Method = "ofx"
	MethodPlain    Method = "text"
)

// Result is the output of text extraction.
type Result struct {
	Text       string            `json:"text"`
	Method     Method            `json:"method"`
	Confidence float64           `json:"confidence"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// TextExtractor is the capability interface for one input format.
type TextExtractor interface {
	// Extract reads the file at path and returns its text.
	Extract(ctx context.Context, path string) (*Result, error)
}

// minPDFTextLen is the threshold below which extracted PDF text is treated
// as an image-based document and failed over to OCR.
const minPDFTextLen = 50

// Dispatcher routes a file to the right extractor by extension/MIME type.
type Dispatcher struct {
	pdf   TextExtractor
	ocr   *OCRExtractor
	csv   TextExtractor
	xlsx  TextExtractor
	ofx   TextExtractor
	plain TextExtractor
}

// NewDispatcher wires the standard extractor set. ocr may be shared
// between the image path and the PDF failover path.
func NewDispatcher(pdf TextExtractor, ocr *OCRExtractor, csv, xlsx, ofx, plain TextExtractor) *Dispatcher {
	return &Dispatcher{pdf: pdf, ocr: ocr, csv: csv, xlsx: xlsx, ofx: ofx, plain: plain}
}

// Extract dispatches by the file's extension, falling back to the declared
// MIME type when the extension is unknown. PDF text extraction that yields
// fewer than 50 characters fails over to image OCR.
func (d *Dispatcher) Extract(ctx context.Context, path, mimeType string) (*Result, error) {
	switch kind := classify(path, mimeType); kind {
	case "pdf":
		return d.extractPDF(ctx, path)
	case "csv":
		return d.csv.Extract(ctx, path)
	case "xlsx":
		return d.xlsx.Extract(ctx, path)
	case "ofx":
		return d.ofx.Extract(ctx, path)
	case "image":
		if d.ocr == nil {
			return nil, fmt.Errorf("%w: no OCR extractor configured", ErrExtractionFailed)
		}
		return d.ocr.ExtractImage(ctx, path)
	case "text":
		return d.plain.Extract(ctx, path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// extractPDF tries the text layer first and falls over to OCR when the
// document is image-based or the text layer is unreadably short.
func (d *Dispatcher) extractPDF(ctx context.Context, path string) (*Result, error) {
	res, err := d.pdf.Extract(ctx, path)
	if err == nil && len(strings.TrimSpace(res.Text)) >= minPDFTextLen {
		return res, nil
	}

	if d.ocr == nil {
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: PDF text layer too short and OCR unavailable", ErrExtractionFailed)
	}

	ocrRes, ocrErr := d.ocr.ExtractPDF(ctx, path)
	if ocrErr != nil {
		if err != nil {
			return nil, fmt.Errorf("%w: pdf text: %v; ocr: %v", ErrExtractionFailed, err, ocrErr)
		}
		return nil, ocrErr
	}
	return ocrRes, nil
}

func classify(path, mimeType string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "pdf"
	case ".csv", ".tsv":
		return "csv"
	case ".xlsx", ".xls":
		return "xlsx"
	case ".ofx", ".qfx":
		return "ofx"
	case ".png", ".jpg", ".jpeg", ".tif", ".tiff":
		return "image"
	case ".txt":
		return "text"
	}

	switch {
	case strings.Contains(mimeType, "pdf"):
		return "pdf"
	case strings.Contains(mimeType, "csv"), strings.Contains(mimeType, "tab-separated"):
		return "csv"
	case strings.Contains(mimeType, "spreadsheet"), strings.Contains(mimeType, "excel"):
		return "xlsx"
	case strings.Contains(mimeType, "ofx"), strings.Contains(mimeType, "qfx"):
		return "ofx"
	case strings.HasPrefix(mimeType, "image/"):
		return "image"
	case strings.HasPrefix(mimeType, "text/"):
		return "text"
	}
	return ""
}
