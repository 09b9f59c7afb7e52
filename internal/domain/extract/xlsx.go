package extract

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/card-truth/pkg/dates"
	"github.com/FACorreiaa/card-truth/pkg/money"
)

// XLSXExtractor flattens spreadsheet statements into label-value lines,
// pairing each cell with its column header the same way the CSV extractor
// does.
type XLSXExtractor struct{}

// NewXLSXExtractor returns an Excel extractor.
func NewXLSXExtractor() *XLSXExtractor {
	return &XLSXExtractor{}
}

// Extract implements TextExtractor.
func (e *XLSXExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	defer f.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var b strings.Builder
	totalRows := 0
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}

		headerIdx := findHeaderRowCells(rows)
		headers := rows[headerIdx]
		for _, row := range rows[headerIdx+1:] {
			wrote := false
			for i, cell := range row {
				cell = strings.TrimSpace(cell)
				if cell == "" {
					continue
				}
				label := fmt.Sprintf("column %d", i+1)
				if i < len(headers) && strings.TrimSpace(headers[i]) != "" {
					label = strings.TrimSpace(headers[i])
				}
				fmt.Fprintf(&b, "%s: %s\n", label, cell)
				wrote = true
			}
			if wrote {
				b.WriteString("\n")
				totalRows++
			}
		}
	}

	if totalRows == 0 {
		return nil, fmt.Errorf("%w: no data rows in workbook", ErrExtractionFailed)
	}

	return &Result{
		Text:       b.String(),
		Method:     MethodXLSX,
		Confidence: 0.9,
		Metadata:   map[string]string{"rows": strconv.Itoa(totalRows)},
	}, nil
}

// ParseXLSXRows parses workbook sheets into normalized transaction rows
// for the structured ingestion path. Rows without a parseable date or
// amount are skipped, not fatal.
func ParseXLSXRows(path string) ([]ParsedRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	defer f.Close()

	var out []ParsedRow
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) < 2 {
			continue
		}

		headerIdx := findHeaderRowCells(rows)
		cols := classifyColumns(rows[headerIdx])
		if cols.date < 0 || cols.desc < 0 {
			continue
		}

		for i, row := range rows[headerIdx+1:] {
			date, ok := dates.Parse(cellAt(row, cols.date), false)
			if !ok {
				continue
			}
			desc := cellAt(row, cols.desc)
			if desc == "" {
				continue
			}

			amount := money.ParseAmount(cellAt(row, cols.amount))
			if amount == nil {
				if d := money.ParseAmount(cellAt(row, cols.debit)); d != nil {
					pos := d.Abs()
					amount = &pos
				} else if c := money.ParseAmount(cellAt(row, cols.credit)); c != nil {
					neg := c.Abs().Neg()
					amount = &neg
				}
			}
			if amount == nil {
				continue
			}

			out = append(out, ParsedRow{
				Date:        date,
				Description: desc,
				Amount:      *amount,
				RawRow:      headerIdx + i + 2,
			})
		}
	}
	return out, nil
}

type columnMap struct {
	date, desc, amount, debit, credit int
}

// classifyColumns maps header names to the role each column plays, covering
// the column names seen across English and Spanish exports.
func classifyColumns(headers []string) columnMap {
	cols := columnMap{date: -1, desc: -1, amount: -1, debit: -1, credit: -1}
	for i, h := range headers {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "date", "fecha":
			if cols.date < 0 {
				cols.date = i
			}
		case "description", "descripción", "descripcion", "concepto", "merchant", "payee", "memo":
			if cols.desc < 0 {
				cols.desc = i
			}
		case "amount", "importe":
			if cols.amount < 0 {
				cols.amount = i
			}
		case "debit", "cargo":
			if cols.debit < 0 {
				cols.debit = i
			}
		case "credit", "abono":
			if cols.credit < 0 {
				cols.credit = i
			}
		}
	}
	return cols
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// findHeaderRowCells picks the row with the most recognizable header
// keywords within the first rows of a sheet.
func findHeaderRowCells(rows [][]string) int {
	bestIdx, bestScore := 0, 0
	for i, row := range rows {
		if i > 20 {
			break
		}
		score := 0
		for _, cell := range row {
			lower := strings.ToLower(strings.TrimSpace(cell))
			for _, kw := range headerKeywords {
				if strings.Contains(lower, kw) {
					score++
				}
			}
		}
		if score > bestScore {
			bestScore, bestIdx = score, i
		}
	}
	return bestIdx
}
