// Package normalize cleans extracted statement text so the pattern tables
// downstream can match reliably. The transform is pure text→text and is
// applied to every source the same way; each pass that changes something
// is recorded for audit and warning purposes.
package normalize

import (
	"fmt"
	"regexp"
	"strings"
)

// Result holds the normalized text plus the names of every transform that
// actually modified it.
type Result struct {
	Text    string   `json:"text"`
	Applied []string `json:"applied,omitempty"`
}

// Normalizer applies the standard cleanup passes in a fixed order.
type Normalizer struct {
	ocrFixes     []ocrFix
	currencyISO  []currencyMapping
	pageLineRe   []*regexp.Regexp
	hyphenRe     *regexp.Regexp
	multiSpaceRe *regexp.Regexp
}

type ocrFix struct {
	re          *regexp.Regexp
	replacement string
}

type currencyMapping struct {
	symbol string
	code   string
}

// New builds a normalizer with the standard pass set.
func New() *Normalizer {
	return &Normalizer{
		ocrFixes:     defaultOCRFixes(),
		currencyISO:  defaultCurrencyMappings(),
		pageLineRe:   defaultPageLinePatterns(),
		hyphenRe:     regexp.MustCompile(`([A-Za-zÀ-ÿ]{2,})-\s*\n\s*([a-zà-ÿ]{2,})`),
		multiSpaceRe: regexp.MustCompile(`[ \t]{2,}`),
	}
}

// Apply runs every pass and reports which ones changed the text.
func (n *Normalizer) Apply(text string) *Result {
	res := &Result{Text: text}

	res.step("hyphenation_repair", func(s string) string {
		return n.hyphenRe.ReplaceAllString(s, "$1$2")
	})

	res.step("ocr_confusion_fixes", func(s string) string {
		for _, fix := range n.ocrFixes {
			s = fix.re.ReplaceAllString(s, fix.replacement)
		}
		return s
	})

	res.step("header_footer_strip", n.stripNoiseLines)

	res.step("currency_to_iso", func(s string) string {
		for _, m := range n.currencyISO {
			s = strings.ReplaceAll(s, m.symbol, m.code+" ")
		}
		return s
	})

	res.step("column_collapse", collapseColumns)

	res.step("whitespace_collapse", func(s string) string {
		s = n.multiSpaceRe.ReplaceAllString(s, " ")
		lines := strings.Split(s, "\n")
		var out []string
		blank := false
		for _, line := range lines {
			line = strings.TrimSpace(line)
			if line == "" {
				if !blank {
					out = append(out, "")
				}
				blank = true
				continue
			}
			blank = false
			out = append(out, line)
		}
		return strings.TrimSpace(strings.Join(out, "\n"))
	})

	return res
}

// step runs one pass and records its name when it changed the text.
func (r *Result) step(name string, fn func(string) string) {
	next := fn(r.Text)
	if next != r.Text {
		r.Applied = append(r.Applied, name)
		r.Text = next
	}
}

// stripNoiseLines removes page numbers, decorative rules and boilerplate
// footer lines.
func (n *Normalizer) stripNoiseLines(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		drop := false
		for _, re := range n.pageLineRe {
			if re.MatchString(trimmed) {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// collapseColumns merges an adjacent pair of short lines when the first
// lacks terminal punctuation. Multi-column PDFs frequently split a label
// from its value across lines.
func collapseColumns(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	for i := 0; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], " \t")
		if i+1 < len(lines) {
			next := strings.TrimSpace(lines[i+1])
			if shouldMergeLines(strings.TrimSpace(line), next) {
				out = append(out, strings.TrimSpace(line)+" "+next)
				i++
				continue
			}
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func shouldMergeLines(line, next string) bool {
	if line == "" || next == "" {
		return false
	}
	if len(line) >= 40 || len(next) >= 40 {
		return false
	}
	switch line[len(line)-1] {
	case '.', '!', '?', ';':
		return false
	}
	// Only merge when the first line reads like a label: mostly letters
	// and no value of its own yet.
	letters := 0
	for _, r := range line {
		if r >= '0' && r <= '9' {
			return false
		}
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			letters++
		}
	}
	return letters > len(line)/2
}

// defaultOCRFixes repairs known OCR splits and confusions in financial
// vocabulary. Fixes are context-scoped word repairs, never blind
// digit/letter substitution.
func defaultOCRFixes() []ocrFix {
	fixes := []struct {
		broken string
		fixed  string
	}{
		{`Bal\s?ance`, "Balance"},
		{`Ba\s?lance`, "Balance"},
		{`Pay\s?ment`, "Payment"},
		{`Mini\s?mum`, "Minimum"},
		{`State\s?ment`, "Statement"},
		{`Inter\s?est`, "Interest"},
		{`Cred\s?it`, "Credit"},
		{`Pur\s?chases`, "Purchases"},
		{`Sal\s?do`, "Saldo"},
		{`Pa\s?go`, "Pago"},
		{`M[ií]ni\s?mo`, "Mínimo"},
		{`Fe\s?cha`, "Fecha"},
		{`L[ií]mite`, "Límite"},
	}
	out := make([]ocrFix, 0, len(fixes))
	for _, f := range fixes {
		// Require the split form (with an inner space) so intact words are
		// left alone.
		re := regexp.MustCompile(`\b` + strings.Replace(f.broken, `\s?`, `\s`, 1) + `\b`)
		out = append(out, ocrFix{re: re, replacement: f.fixed})
	}
	return out
}

func defaultCurrencyMappings() []currencyMapping {
	// Multi-rune symbols must precede their prefixes.
	return []currencyMapping{
		{"R$", "BRL"},
		{"US$", "USD"},
		{"MX$", "MXN"},
		{"$", "USD"},
		{"€", "EUR"},
		{"£", "GBP"},
	}
}

func defaultPageLinePatterns() []*regexp.Regexp {
	patterns := []string{
		`^(Page|P[áa]gina)\s+\d+(\s+(of|de)\s+\d+)?$`,
		`^-?\s*\d+\s*-?$`,
		`^[-_=*.]{4,}$`,
		`^(Continued on next page|Contin[úu]a en la siguiente p[áa]gina)\.?$`,
	}
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(`(?i)`+p))
	}
	return out
}

// Describe renders the applied transform list for warnings/audit output.
func (r *Result) Describe() string {
	if len(r.Applied) == 0 {
		return "no transforms applied"
	}
	return fmt.Sprintf("applied: %s", strings.Join(r.Applied, ", "))
}
