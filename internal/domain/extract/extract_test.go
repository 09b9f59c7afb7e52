package extract

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sampleCSV = `Account Statement Export
date;description;amount;balance
05/01/2025;NETFLIX.COM;15,00;1.234,56
10/01/2025;SUPERMERCADO LA PLAZA;250,75;983,81
`

const sampleOFX = `OFXHEADER:100
DATA:OFXSGML

<OFX>
<CCSTMTRS>
<CURDEF>USD
<BANKTRANLIST>
<DTSTART>20250101
<DTEND>20250131
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20250105120000
<TRNAMT>-15.00
<NAME>NETFLIX.COM
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20250120120000
<TRNAMT>500.00
<MEMO>CREDIT CARD PAYMENT
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1074.43
<DTASOF>20250131
</LEDGERBAL>
</CCSTMTRS>
</OFX>
`

func TestClassify(t *testing.T) {
	cases := []struct {
		path, mime, want string
	}{
		{"statement.pdf", "", "pdf"},
		{"export.CSV", "", "csv"},
		{"export.tsv", "", "csv"},
		{"book.xlsx", "", "xlsx"},
		{"acct.qfx", "", "ofx"},
		{"scan.JPG", "", "image"},
		{"paste.txt", "", "text"},
		{"blob", "application/pdf", "pdf"},
		{"blob", "image/png", "image"},
		{"blob", "text/plain", "text"},
		{"blob", "application/octet-stream", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, classify(tc.path, tc.mime), "path=%s mime=%s", tc.path, tc.mime)
	}
}

func TestDispatcherUnsupported(t *testing.T) {
	d := NewDispatcher(NewPDFTextExtractor(), nil, NewCSVExtractor(), NewXLSXExtractor(), NewOFXExtractor(), NewPlainTextExtractor())
	_, err := d.Extract(context.Background(), "statement.zip", "application/zip")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestCSVExtractor(t *testing.T) {
	path := writeTemp(t, "export.csv", sampleCSV)

	res, err := NewCSVExtractor().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, MethodCSV, res.Method)
	assert.Contains(t, res.Text, "description: NETFLIX.COM")
	assert.Contains(t, res.Text, "amount: 15,00")
	assert.Equal(t, "true", res.Metadata["european"])
}

func TestCSVExtractorStripsByteOrderMark(t *testing.T) {
	path := writeTemp(t, "bom.csv", "\uFEFFdate,description,amount\n10/05/2024,STORE,650.00\n")

	res, err := NewCSVExtractor().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "date: 10/05/2024")
	assert.NotContains(t, res.Text, "\uFEFF")
}

func TestCSVExtractorEmpty(t *testing.T) {
	path := writeTemp(t, "empty.csv", "   \n  ")
	_, err := NewCSVExtractor().Extract(context.Background(), path)
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestParseRows(t *testing.T) {
	rows, european, err := ParseRows(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.True(t, european)
	require.Len(t, rows, 2)

	assert.Equal(t, "NETFLIX.COM", rows[0].Description)
	assert.True(t, rows[0].Amount.Equal(decimal.NewFromInt(15)))
	// European dialect implies day-first dates.
	assert.Equal(t, 5, rows[0].Date.Day())
	assert.Equal(t, 1, int(rows[0].Date.Month()))
}

func TestOFXExtractor(t *testing.T) {
	path := writeTemp(t, "acct.ofx", sampleOFX)

	res, err := NewOFXExtractor().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, MethodOFX, res.Method)
	assert.Contains(t, res.Text, "Balance: 1074.43")
	assert.Contains(t, res.Text, "Currency: USD")
	assert.Contains(t, res.Text, "Period End: 2025-01-31")
}

func TestOFXExtractorRejectsNonOFX(t *testing.T) {
	path := writeTemp(t, "acct.ofx", "just some text")
	_, err := NewOFXExtractor().Extract(context.Background(), path)
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestParseOFXTransactions(t *testing.T) {
	rows := ParseOFXTransactions([]byte(sampleOFX))
	require.Len(t, rows, 2)

	// Bank-perspective signs are flipped: the -15.00 charge becomes +15.
	assert.Equal(t, "NETFLIX.COM", rows[0].Description)
	assert.True(t, rows[0].Amount.Equal(decimal.NewFromInt(15)))

	assert.Equal(t, "CREDIT CARD PAYMENT", rows[1].Description)
	assert.True(t, rows[1].Amount.Equal(decimal.NewFromInt(-500)))
}

func TestPlainTextExtractor(t *testing.T) {
	path := writeTemp(t, "paste.txt", "Statement Balance: $1,074.43")
	res, err := NewPlainTextExtractor().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, MethodPlain, res.Method)
	assert.Equal(t, 1.0, res.Confidence)
}

func TestSniffShape(t *testing.T) {
	shape, err := sniffShape([]byte(sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, ';', int32(shape.Delimiter))
	assert.Equal(t, 1, shape.SkipLines)
	assert.Equal(t, []string{"date", "description", "amount", "balance"}, shape.Headers)
	assert.True(t, shape.European)
}
