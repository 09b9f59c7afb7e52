package extract

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/FACorreiaa/card-truth/pkg/money"
)

// OFXExtractor handles OFX/QFX exports. The format is SGML-like with
// unclosed tags, so it is mined with tag regexes rather than an XML
// parser. Output is label-value text plus, via ParseOFXTransactions, the
// structured rows for the L2 path.
type OFXExtractor struct{}

// NewOFXExtractor returns an OFX/QFX extractor.
func NewOFXExtractor() *OFXExtractor {
	return &OFXExtractor{}
}

var (
	ofxStmtTrnRe = regexp.MustCompile(`(?s)<STMTTRN>(.*?)(</STMTTRN>|<STMTTRN>|\z)`)
	ofxTagRe     = regexp.MustCompile(`<([A-Z0-9.]+)>([^<\r\n]+)`)
)

// ofxLabels maps OFX tags worth surfacing to the pattern extractor.
var ofxLabels = map[string]string{
	"BALAMT":    "Balance",
	"MINPMTDUE": "Minimum Payment Due",
	"DTDUE":     "Payment Due Date",
	"DTASOF":    "Statement Date",
	"DTSTART":   "Period Start",
	"DTEND":     "Period End",
	"ACCTID":    "Account",
	"CURDEF":    "Currency",
	"ORG":       "Issuer",
	"TRNAMT":    "Amount",
	"MEMO":      "Description",
	"NAME":      "Description",
	"DTPOSTED":  "Date",
}

// Extract implements TextExtractor.
func (e *OFXExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content := string(data)
	if !strings.Contains(strings.ToUpper(content), "<OFX>") && !strings.Contains(strings.ToUpper(content), "OFXHEADER") {
		return nil, fmt.Errorf("%w: not an OFX document", ErrExtractionFailed)
	}

	var b strings.Builder
	count := 0
	for _, m := range ofxTagRe.FindAllStringSubmatch(content, -1) {
		tag, value := m[1], strings.TrimSpace(m[2])
		label, ok := ofxLabels[tag]
		if !ok || value == "" {
			continue
		}
		if isOFXDateTag(tag) {
			if t, ok := parseOFXDate(value); ok {
				value = t.Format("2006-01-02")
			}
		}
		fmt.Fprintf(&b, "%s: %s\n", label, value)
		count++
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: no recognizable OFX tags", ErrExtractionFailed)
	}

	return &Result{
		Text:       b.String(),
		Method:     MethodOFX,
		Confidence: 0.95,
		Metadata:   map[string]string{"tags": strconv.Itoa(count)},
	}, nil
}

// ParseOFXTransactions extracts the <STMTTRN> blocks as normalized rows.
func ParseOFXTransactions(data []byte) []ParsedRow {
	var rows []ParsedRow
	for i, block := range ofxStmtTrnRe.FindAllStringSubmatch(string(data), -1) {
		fields := map[string]string{}
		for _, m := range ofxTagRe.FindAllStringSubmatch(block[1], -1) {
			fields[m[1]] = strings.TrimSpace(m[2])
		}

		date, ok := parseOFXDate(fields["DTPOSTED"])
		if !ok {
			continue
		}
		amount := money.ParseAmount(fields["TRNAMT"])
		if amount == nil {
			continue
		}
		desc := fields["NAME"]
		if desc == "" {
			desc = fields["MEMO"]
		}
		if desc == "" {
			continue
		}

		// OFX signs from the bank's perspective: charges negative. Flip so
		// charges are positive like the rest of the ledger.
		rows = append(rows, ParsedRow{
			Date:        date,
			Description: desc,
			Amount:      amount.Neg(),
			RawRow:      i + 1,
		})
	}
	return rows
}

func isOFXDateTag(tag string) bool {
	return strings.HasPrefix(tag, "DT")
}

// parseOFXDate reads the YYYYMMDD prefix of an OFX timestamp.
func parseOFXDate(s string) (time.Time, bool) {
	if len(s) < 8 {
		return time.Time{}, false
	}
	t, err := time.Parse("20060102", s[:8])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
