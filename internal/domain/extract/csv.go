package extract

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/card-truth/pkg/dates"
	"github.com/FACorreiaa/card-truth/pkg/money"
)

// CSVExtractor re-serializes a delimited file into "label: value" lines so
// the downstream pattern extractor can treat all sources uniformly. The
// structured row parse for the L2 ingestion path lives in ParseRows.
type CSVExtractor struct{}

// NewCSVExtractor returns a CSV/TSV extractor.
func NewCSVExtractor() *CSVExtractor {
	return &CSVExtractor{}
}

// Extract implements TextExtractor.
func (e *CSVExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	shape, err := sniffShape(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	text := labelValueLines(shape)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: no data rows", ErrExtractionFailed)
	}

	return &Result{
		Text:       text,
		Method:     MethodCSV,
		Confidence: 0.9,
		Metadata: map[string]string{
			"delimiter": string(shape.Delimiter),
			"rows":      strconv.Itoa(len(shape.Rows)),
			"european":  strconv.FormatBool(shape.European),
		},
	}, nil
}

// labelValueLines pairs each cell with its header so values keep their
// meaning after the table layout is flattened.
func labelValueLines(shape *fileShape) string {
	var b strings.Builder
	for _, row := range shape.Rows {
		for i, cell := range row {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			label := fmt.Sprintf("column %d", i+1)
			if i < len(shape.Headers) && strings.TrimSpace(shape.Headers[i]) != "" {
				label = strings.TrimSpace(shape.Headers[i])
			}
			fmt.Fprintf(&b, "%s: %s\n", label, cell)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Row is a raw delimited-file row unmarshaled by header name. The tags
// cover the column names seen across English and Spanish exports.
type Row struct {
	Date  string `csv:"date"`
	Fecha string `csv:"fecha"`

	Description string `csv:"description"`
	Descripcion string `csv:"descripción"`
	Concepto    string `csv:"concepto"`
	Merchant    string `csv:"merchant"`
	Payee       string `csv:"payee"`
	Memo        string `csv:"memo"`

	Amount  string `csv:"amount"`
	Importe string `csv:"importe"`

	Debit  string `csv:"debit"`
	Cargo  string `csv:"cargo"`
	Credit string `csv:"credit"`
	Abono  string `csv:"abono"`

	Balance string `csv:"balance"`
	Saldo   string `csv:"saldo"`
}

// ParsedRow is a normalized transaction row from a structured file.
type ParsedRow struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	RawRow      int
}

// ParseRows parses a delimited file into normalized transaction rows for
// the structured (L2) ingestion path. Rows without a parseable date or
// amount are skipped, not fatal.
func ParseRows(r io.Reader) ([]ParsedRow, bool, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	shape, err := sniffShape(data)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		cr := csv.NewReader(in)
		cr.Comma = shape.Delimiter
		cr.LazyQuotes = true
		cr.TrimLeadingSpace = true
		cr.FieldsPerRecord = -1
		return cr
	})

	body := strings.Join(strings.Split(string(data), "\n")[shape.SkipLines:], "\n")
	var rows []Row
	if err := gocsv.Unmarshal(strings.NewReader(body), &rows); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	dayFirst := shape.European
	var out []ParsedRow
	for i, row := range rows {
		dateStr := coalesce(row.Date, row.Fecha)
		desc := coalesce(row.Description, row.Descripcion, row.Concepto, row.Merchant, row.Payee, row.Memo)
		if dateStr == "" || desc == "" {
			continue
		}
		date, ok := dates.Parse(dateStr, dayFirst)
		if !ok {
			continue
		}

		var amount *decimal.Decimal
		if s := coalesce(row.Amount, row.Importe); s != "" {
			amount = money.ParseAmountAs(s, shape.European)
		} else if s := coalesce(row.Debit, row.Cargo); s != "" {
			if d := money.ParseAmountAs(s, shape.European); d != nil {
				pos := d.Abs()
				amount = &pos
			}
		} else if s := coalesce(row.Credit, row.Abono); s != "" {
			if d := money.ParseAmountAs(s, shape.European); d != nil {
				neg := d.Abs().Neg()
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
			RawRow:      i + shape.SkipLines + 2,
		})
	}
	return out, shape.European, nil
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
