package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// symbolToISO maps currency symbols and codes found in statement text to
// ISO-4217 codes. Multi-rune symbols must come before their prefixes when
// scanning (R$ before $).
var symbolToISO = []struct {
	Symbol string
	Code   string
}{
	{"R$", BRL},
	{"US$", USD},
	{"MX$", MXN},
	{"$", USD},
	{"€", EUR},
	{"£", GBP},
	{"USD", USD},
	{"EUR", EUR},
	{"GBP", GBP},
	{"MXN", MXN},
	{"BRL", BRL},
}

// DetectCurrency returns the ISO code for the first currency symbol or code
// found in s, or "" when none is present.
func DetectCurrency(s string) string {
	for _, entry := range symbolToISO {
		if strings.Contains(s, entry.Symbol) {
			return entry.Code
		}
	}
	return ""
}

// ParseAmount parses a monetary string into a decimal value. It accepts US
// grouping ("$1,074.43"), European grouping ("1.074,43"), bare integers
// ("45"), parenthesized negatives ("(25.00)") and trailing minus signs.
// Returns nil for anything that is not a number; it never panics.
func ParseAmount(s string) *decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	for _, entry := range symbolToISO {
		s = strings.ReplaceAll(s, entry.Symbol, "")
	}
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.Trim(s, "()")
	}
	if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimPrefix(s, "-")
	}
	if strings.HasSuffix(s, "-") {
		negative = true
		s = strings.TrimSuffix(s, "-")
	}
	s = strings.TrimPrefix(s, "+")

	if s == "" || !onlyAmountRunes(s) {
		return nil
	}

	switch groupingStyle(s) {
	case groupingEuropean:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	default:
		s = strings.ReplaceAll(s, ",", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	if negative {
		d = d.Neg()
	}
	return &d
}

// ParseAmountAs parses like ParseAmount but forces a known grouping style,
// for callers that already probed the document's regional dialect.
func ParseAmountAs(s string, european bool) *decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, entry := range symbolToISO {
		s = strings.ReplaceAll(s, entry.Symbol, "")
	}
	s = strings.ReplaceAll(s, " ", "")

	negative := strings.HasPrefix(s, "-") || (strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")"))
	s = strings.Trim(s, "()-")
	if s == "" || !onlyAmountRunes(s) {
		return nil
	}

	if european {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	if negative {
		d = d.Neg()
	}
	return &d
}

type grouping int

const (
	groupingUS grouping = iota
	groupingEuropean
)

// groupingStyle decides whether a cleaned numeric string uses European
// grouping (comma decimal). When both separators are present the rightmost
// one is the decimal separator; a lone separator followed by exactly two
// digits is treated as a decimal, three digits as a thousands group.
func groupingStyle(s string) grouping {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			return groupingEuropean
		}
		return groupingUS

	case lastComma >= 0:
		after := s[lastComma+1:]
		if len(after) == 3 && !strings.Contains(after, ",") && strings.Count(s, ",") == 1 {
			// "1,074" is a US thousands group, not 1.074
			return groupingUS
		}
		return groupingEuropean

	case lastDot >= 0:
		after := s[lastDot+1:]
		if len(after) == 3 && strings.Count(s, ".") > 1 {
			// "1.234.567" is European grouping with no decimals
			return groupingEuropean
		}
		return groupingUS
	}
	return groupingUS
}

func onlyAmountRunes(s string) bool {
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ',' || r == '.':
		default:
			return false
		}
	}
	return digits > 0
}
