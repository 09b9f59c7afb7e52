package extract

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// PlainTextExtractor passes .txt files (and pasted text written to a
// temp file) through untouched.
type PlainTextExtractor struct{}

// NewPlainTextExtractor returns a passthrough extractor.
func NewPlainTextExtractor() *PlainTextExtractor {
	return &PlainTextExtractor{}
}

// Extract implements TextExtractor.
func (e *PlainTextExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: file contains no text", ErrExtractionFailed)
	}

	return &Result{
		Text:       text,
		Method:     MethodPlain,
		Confidence: 1.0,
	}, nil
}
