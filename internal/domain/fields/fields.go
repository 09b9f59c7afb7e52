// Package fields extracts canonical billing fields from normalized
// statement text using a ranked rule table. Each field is resolved by the
// highest-ranked rule that matches; every extracted value carries a
// confidence derived from the rule and the match circumstances.
package fields

import (
	"regexp"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/FACorreiaa/card-truth/internal/domain/issuer"
	"github.com/FACorreiaa/card-truth/internal/domain/statement"
	"github.com/FACorreiaa/card-truth/pkg/dates"
	"github.com/FACorreiaa/card-truth/pkg/money"
)

// derivedConfidenceCap limits the confidence of any value computed from
// other fields rather than read from the document.
const derivedConfidenceCap = 0.6

// amountTokenRe locates a money value inside a fuzzily matched line.
var amountTokenRe = regexp.MustCompile(`(?:USD|EUR|GBP|MXN|BRL)?\s*\(?-?\d[\d.,]*\)?`)

// dateTokenRe locates a date value inside a fuzzily matched line.
var dateTokenRe = regexp.MustCompile(date)

// Extractor applies the ranked rule table to statement text.
type Extractor struct {
	rules []Rule
}

// New returns an extractor with the default rule table.
func New() *Extractor {
	return &Extractor{rules: DefaultRules()}
}

// NewWithRules returns an extractor over a caller-supplied table, in rank
// order.
func NewWithRules(rules []Rule) *Extractor {
	return &Extractor{rules: rules}
}

// Extract parses the text into a canonical statement. The issuer detection
// steers language-specific rules and date ordering: Spanish statements
// read ambiguous numeric dates day-first.
func (e *Extractor) Extract(text string, det issuer.Detection) *statement.Canonical {
	st := statement.NewCanonical()
	lines := strings.Split(text, "\n")
	dayFirst := det.Language == issuer.LangSpanish

	if det.Issuer != "" {
		st.Issuer = det.Issuer
		st.SetConfidence(statement.FieldIssuer, det.Confidence)
	}

	for _, field := range e.fieldsInTable() {
		if st.Has(field) {
			continue
		}
		for _, rule := range e.rules {
			if rule.Field != field || !languageAllows(rule, det.Language) {
				continue
			}
			if e.applyRule(st, rule, lines, dayFirst) {
				break
			}
		}
	}

	e.deriveMissing(st, text)
	return st
}

// fieldsInTable returns the distinct fields the table covers, in first
// appearance order.
func (e *Extractor) fieldsInTable() []statement.Field {
	seen := make(map[statement.Field]bool)
	var out []statement.Field
	for _, r := range e.rules {
		if !seen[r.Field] {
			seen[r.Field] = true
			out = append(out, r.Field)
		}
	}
	return out
}

func languageAllows(r Rule, lang string) bool {
	if r.Language == "" || lang == "" || lang == issuer.LangAuto {
		return true
	}
	return r.Language == lang
}

// applyRule tries one rule against every line and stores the first
// candidate that parses. More than one distinct candidate for the same
// rule lowers confidence.
func (e *Extractor) applyRule(st *statement.Canonical, rule Rule, lines []string, dayFirst bool) bool {
	var raw []string
	for _, line := range lines {
		switch rule.Match {
		case MatchFuzzy:
			if !fuzzyLineMatch(rule.Label, line) {
				continue
			}
			var tok string
			if rule.Kind == KindDate {
				tok = dateTokenRe.FindString(line)
			} else {
				tok = amountTokenRe.FindString(line)
			}
			if tok != "" {
				raw = append(raw, strings.TrimSpace(tok))
			}
		default:
			for _, m := range rule.Pattern.FindAllStringSubmatch(line, -1) {
				if rule.Kind == KindDateRange {
					if len(m) >= 3 {
						raw = append(raw, m[1]+"\x00"+m[2])
					}
					continue
				}
				raw = append(raw, strings.TrimSpace(m[1]))
			}
		}
	}
	if len(raw) == 0 {
		return false
	}

	conf := scoreMatch(rule.Confidence, raw)
	return e.store(st, rule, raw[0], conf, dayFirst)
}

// scoreMatch reduces the rule's base confidence when the document offered
// several distinct values for the same label.
func scoreMatch(base float64, raw []string) float64 {
	distinct := make(map[string]bool, len(raw))
	for _, r := range raw {
		distinct[r] = true
	}
	if len(distinct) > 1 {
		base *= 0.85
	}
	return base
}

func (e *Extractor) store(st *statement.Canonical, rule Rule, raw string, conf float64, dayFirst bool) bool {
	switch rule.Kind {
	case KindAmount:
		d := money.ParseAmount(raw)
		if d == nil {
			return false
		}
		v := *d
		if rule.Field == statement.FieldPaymentsCredits {
			v = v.Abs()
		}
		st.SetAmount(rule.Field, v)
		st.SetConfidence(rule.Field, conf)
		return true

	case KindPercent:
		d := money.ParseAmount(raw)
		if d == nil {
			return false
		}
		st.SetAmount(rule.Field, *d)
		st.SetConfidence(rule.Field, conf)
		return true

	case KindDate:
		t, ok := dates.Parse(raw, dayFirst)
		if !ok {
			return false
		}
		switch rule.Field {
		case statement.FieldDueDate:
			st.DueDate = &t
		case statement.FieldPeriodStart:
			st.PeriodStart = &t
		case statement.FieldPeriodEnd:
			st.PeriodEnd = &t
		default:
			return false
		}
		st.SetConfidence(rule.Field, conf)
		return true

	case KindDateRange:
		parts := strings.SplitN(raw, "\x00", 2)
		if len(parts) != 2 {
			return false
		}
		start, okS := dates.Parse(parts[0], dayFirst)
		end, okE := dates.Parse(parts[1], dayFirst)
		if !okS || !okE {
			return false
		}
		st.PeriodStart = &start
		st.PeriodEnd = &end
		st.SetConfidence(statement.FieldPeriodStart, conf)
		st.SetConfidence(statement.FieldPeriodEnd, conf)
		return true

	case KindText:
		if raw == "" {
			return false
		}
		switch rule.Field {
		case statement.FieldCardLast4:
			st.CardLast4 = raw
		case statement.FieldIssuer:
			st.Issuer = raw
		case statement.FieldCurrency:
			st.Currency = raw
		default:
			return false
		}
		st.SetConfidence(rule.Field, conf)
		return true
	}
	return false
}

// deriveMissing fills fields computable from what was extracted. Derived
// values never exceed the derived confidence cap and never overwrite an
// extracted value.
func (e *Extractor) deriveMissing(st *statement.Canonical, text string) {
	if st.Currency == "" {
		if code := money.DetectCurrency(text); code != "" {
			st.Currency = code
			st.SetConfidence(statement.FieldCurrency, 0.7)
		}
	}

	if st.AvailableCredit == nil && st.CreditLimit != nil && st.NewBalance != nil {
		v := st.CreditLimit.Sub(*st.NewBalance)
		st.AvailableCredit = &v
		st.SetConfidence(statement.FieldAvailableCredit,
			capConf(minConf(st, statement.FieldCreditLimit, statement.FieldNewBalance)))
	}
	if st.CreditLimit == nil && st.AvailableCredit != nil && st.NewBalance != nil {
		v := st.AvailableCredit.Add(*st.NewBalance)
		st.CreditLimit = &v
		st.SetConfidence(statement.FieldCreditLimit,
			capConf(minConf(st, statement.FieldAvailableCredit, statement.FieldNewBalance)))
	}

	if st.ClosingDay == 0 && st.PeriodEnd != nil {
		if day := st.PeriodEnd.Day(); day >= 1 && day <= 28 {
			st.ClosingDay = day
			st.SetConfidence(statement.FieldClosingDay,
				capConf(st.Confidence[statement.FieldPeriodEnd]))
		}
	}
}

func capConf(c float64) float64 {
	if c > derivedConfidenceCap {
		return derivedConfidenceCap
	}
	return c
}

func minConf(st *statement.Canonical, a, b statement.Field) float64 {
	ca, cb := st.Confidence[a], st.Confidence[b]
	if ca < cb {
		return ca
	}
	return cb
}

// fuzzyLineMatch reports whether every word of the label appears in the
// line within one edit, tolerating dropped or swapped OCR characters.
func fuzzyLineMatch(label, line string) bool {
	lineWords := strings.Fields(strings.ToLower(line))
	for _, want := range strings.Fields(strings.ToLower(label)) {
		if !fuzzyWordIn(want, lineWords) {
			return false
		}
	}
	return true
}

func fuzzyWordIn(want string, words []string) bool {
	budget := 1
	if len(want) >= 8 {
		budget = 2
	}
	for _, w := range words {
		if fuzzy.LevenshteinDistance(want, w) <= budget {
			return true
		}
	}
	return false
}
