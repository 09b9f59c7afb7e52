package extract

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFTextExtractor extracts the text layer of a PDF, concatenating all
// pages. It tries several extraction methods because statement PDFs vary
// wildly in how their text objects are encoded; the first method that
// yields readable text wins.
type PDFTextExtractor struct{}

// NewPDFTextExtractor returns a PDF text-layer extractor.
func NewPDFTextExtractor() *PDFTextExtractor {
	return &PDFTextExtractor{}
}

// Extract implements TextExtractor.
func (e *PDFTextExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	pages, err := extractPages(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(strings.Join(pages, "\n\n"))
	quality := textQuality(pages)
	return &Result{
		Text:       text,
		Method:     MethodPDFText,
		Confidence: quality,
		Metadata:   map[string]string{"pages": fmt.Sprintf("%d", len(pages))},
	}, nil
}

// extractPages runs the extraction methods in order of layout fidelity.
// The pdf library panics on some malformed documents, so it runs behind a
// recover.
func extractPages(path string) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf library crashed: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	numPages := r.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}

	pages = pagesByRow(r, numPages)
	if readable(pages) {
		return pages, nil
	}

	pages = pagesByContent(r, numPages)
	if readable(pages) {
		return pages, nil
	}

	if text := wholeDocumentText(r); readable([]string{text}) {
		return []string{text}, nil
	}

	return pages, nil
}

// readable requires enough text and a tolerable ratio of recognizable
// characters; identity-encoded fonts produce long runs of garbage that
// pass a pure length check.
func readable(pages []string) bool {
	total := 0
	for _, p := range pages {
		total += len(strings.TrimSpace(p))
	}
	return total > minPDFTextLen && textQuality(pages) > 0.6
}

func textQuality(pages []string) float64 {
	total, good := 0, 0
	for _, page := range pages {
		for _, r := range page {
			total++
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
				(r >= '0' && r <= '9') || r == ' ' || r == '\n' || r == '\t' ||
				strings.ContainsRune(".,-/:;()'\"$€£%&@#!?+=*", r) {
				good++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(good) / float64(total)
}

// pagesByRow uses GetTextByRow, which preserves table layout best.
func pagesByRow(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var lines []string
		for _, row := range rows {
			var parts []string
			for _, word := range row.Content {
				parts = append(parts, word.S)
			}
			if line := strings.TrimSpace(strings.Join(parts, " ")); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

// pagesByContent reconstructs rows from raw text objects by grouping on the
// Y coordinate and ordering by X. Large X gaps become column separators.
func pagesByContent(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content := page.Content()
		if len(content.Text) == 0 {
			continue
		}

		type textItem struct {
			x float64
			s string
		}
		rowMap := make(map[int][]textItem)
		for _, t := range content.Text {
			if strings.TrimSpace(t.S) == "" {
				continue
			}
			yKey := int(math.Round(t.Y))
			rowMap[yKey] = append(rowMap[yKey], textItem{x: t.X, s: t.S})
		}

		yKeys := make([]int, 0, len(rowMap))
		for y := range rowMap {
			yKeys = append(yKeys, y)
		}
		// PDF Y runs bottom-to-top.
		sort.Sort(sort.Reverse(sort.IntSlice(yKeys)))

		var lines []string
		for _, y := range yKeys {
			items := rowMap[y]
			sort.Slice(items, func(a, b int) bool { return items[a].x < items[b].x })

			var parts []string
			var prevX float64
			for j, item := range items {
				if j > 0 && item.x-prevX > 15 {
					parts = append(parts, "  ")
				}
				parts = append(parts, item.s)
				prevX = item.x
			}
			if line := strings.TrimSpace(strings.Join(parts, "")); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

func wholeDocumentText(r *pdf.Reader) string {
	reader, err := r.GetPlainText()
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
