package extract

import (
	"encoding/csv"
	"errors"
	"strings"
)

// Sniffer errors.
var (
	errEmptyFile      = errors.New("file is empty")
	errNoHeadersFound = errors.New("could not find data headers")
)

// fileShape is the detected layout of a delimited file: its delimiter, the
// header row position, and a few sample rows for dialect probing.
type fileShape struct {
	Delimiter rune
	SkipLines int
	Headers   []string
	Rows      [][]string
	European  bool // amounts use comma as decimal separator
}

// headerKeywords are header tokens recognized across English and Spanish
// statement exports.
var headerKeywords = []string{
	"date", "description", "amount", "debit", "credit", "balance", "merchant", "payee",
	"fecha", "descripción", "descripcion", "importe", "cargo", "abono", "saldo", "concepto",
}

// sniffShape locates the header row and delimiter of a CSV/TSV document
// and parses every data row with that shape.
func sniffShape(data []byte) (*fileShape, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyFile
	}
	lines := strings.Split(string(data), "\n")

	delimiter, headerIdx, err := findHeaderRow(lines)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(strings.Join(lines[headerIdx:], "\n")))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil || len(records) == 0 {
		return nil, errNoHeadersFound
	}

	headers := records[0]
	for i, h := range headers {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
	}

	shape := &fileShape{
		Delimiter: delimiter,
		SkipLines: headerIdx,
		Headers:   headers,
		Rows:      records[1:],
	}
	shape.European = probeEuropean(shape.Rows)
	return shape, nil
}

// findHeaderRow scans the first lines for the row that looks most like a
// header: known keywords win, column count breaks ties.
func findHeaderRow(lines []string) (rune, int, error) {
	bestIdx, bestScore := -1, 0
	var bestDelim rune

	for i, line := range lines {
		if i > 20 {
			break
		}
		line = strings.TrimSpace(strings.TrimRight(line, "\r"))
		if line == "" {
			continue
		}

		delim, cols := detectDelimiter(line)
		if cols < 1 {
			continue
		}

		lower := strings.ToLower(line)
		keywords := 0
		for _, kw := range headerKeywords {
			if strings.Contains(lower, kw) {
				keywords++
			}
		}

		score := cols
		if keywords > 0 {
			score = cols*10 + keywords
		}
		if score > bestScore {
			bestScore, bestDelim, bestIdx = score, delim, i
		}
	}

	if bestIdx < 0 {
		return 0, 0, errNoHeadersFound
	}
	return bestDelim, bestIdx, nil
}

func detectDelimiter(line string) (rune, int) {
	best, bestCount := rune(0), 0
	for _, d := range []rune{';', '\t', ',', '|'} {
		if count := strings.Count(line, string(d)); count > bestCount {
			best, bestCount = d, count
		}
	}
	return best, bestCount
}

// probeEuropean inspects cell values for comma-decimal amounts.
func probeEuropean(rows [][]string) bool {
	euHints, usHints := 0, 0
	for i, row := range rows {
		if i >= 10 {
			break
		}
		for _, cell := range row {
			switch amountFormatHint(cell) {
			case 1:
				euHints++
			case -1:
				usHints++
			}
		}
	}
	return euHints > usHints
}

// amountFormatHint returns 1 for European-looking amounts, -1 for US, 0
// when the cell is not informative.
func amountFormatHint(val string) int {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' || r == '-' {
			return r
		}
		return -1
	}, val)
	cleaned = strings.TrimPrefix(cleaned, "-")
	if cleaned == "" {
		return 0
	}

	hasComma := strings.Contains(cleaned, ",")
	hasDot := strings.Contains(cleaned, ".")
	switch {
	case hasComma && hasDot:
		if strings.LastIndex(cleaned, ",") > strings.LastIndex(cleaned, ".") {
			return 1
		}
		return -1
	case hasComma:
		if after := cleaned[strings.LastIndex(cleaned, ",")+1:]; len(after) <= 2 {
			return 1
		}
	case hasDot:
		if after := cleaned[strings.LastIndex(cleaned, ".")+1:]; len(after) <= 2 {
			return -1
		}
	}
	return 0
}
