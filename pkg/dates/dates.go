// Package dates parses the date formats found on English and Spanish card
// statements. Parsing is best-effort: unrecognized input yields ok=false,
// never an error or panic, so extraction patterns can probe freely.
package dates

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// monthNames maps English and Spanish month names (and their common
// three-letter abbreviations) to month numbers.
var monthNames = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,

	"enero": time.January, "febrero": time.February, "marzo": time.March,
	"abril": time.April, "mayo": time.May, "junio": time.June,
	"julio": time.July, "agosto": time.August, "septiembre": time.September,
	"setiembre": time.September, "octubre": time.October,
	"noviembre": time.November, "diciembre": time.December,

	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "jun": time.June, "jul": time.July,
	"aug": time.August, "sep": time.September, "sept": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
	"ene": time.January, "abr": time.April, "ago": time.August,
	"dic": time.December,
}

// Parse parses a statement date string. Ambiguous numeric dates (both parts
// ≤12) default to month-first; pass dayFirst=true when the document dialect
// is known to be day-first (Spanish-language statements).
func Parse(s string, dayFirst bool) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if t, ok := parseNamedMonth(s); ok {
		return t, true
	}

	// ISO and slash/dash/dot numeric families.
	if t, ok := parseNumeric(s, dayFirst); ok {
		return t, true
	}

	return time.Time{}, false
}

// parseNamedMonth handles "October 31, 2024", "31 de octubre de 2024",
// "Oct 31 2024" and similar.
func parseNamedMonth(s string) (time.Time, bool) {
	cleaned := strings.ToLower(s)
	cleaned = strings.ReplaceAll(cleaned, ",", " ")
	cleaned = strings.ReplaceAll(cleaned, ".", " ")

	var month time.Month
	var numbers []int
	for _, tok := range strings.Fields(cleaned) {
		if tok == "de" || tok == "del" || tok == "of" {
			continue
		}
		if m, ok := monthNames[tok]; ok {
			if month != 0 {
				return time.Time{}, false
			}
			month = m
			continue
		}
		digits := strings.TrimFunc(tok, func(r rune) bool { return !unicode.IsDigit(r) })
		if digits == "" {
			continue
		}
		n, err := strconv.Atoi(digits)
		if err != nil {
			return time.Time{}, false
		}
		numbers = append(numbers, n)
	}

	if month == 0 || len(numbers) != 2 {
		return time.Time{}, false
	}

	day, year := numbers[0], numbers[1]
	if day > 31 {
		day, year = year, day
	}
	return makeDate(year, month, day)
}

// parseNumeric handles YYYY-MM-DD, DD/MM/YYYY, MM/DD/YYYY, DD.MM.YYYY and
// two-digit-year variants. A first component >12 is always the day.
func parseNumeric(s string, dayFirst bool) (time.Time, bool) {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '/' || r == '-' || r == '.' || r == ' '
	})
	if len(parts) != 3 {
		return time.Time{}, false
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return time.Time{}, false
		}
		nums[i] = n
	}

	// Year-first (ISO).
	if nums[0] > 999 {
		return makeDate(nums[0], time.Month(nums[1]), nums[2])
	}

	year := nums[2]
	if year < 100 {
		year += 2000
	}

	a, b := nums[0], nums[1]
	switch {
	case a > 12 && b <= 12:
		return makeDate(year, time.Month(b), a)
	case b > 12 && a <= 12:
		return makeDate(year, time.Month(a), b)
	case dayFirst:
		return makeDate(year, time.Month(b), a)
	default:
		return makeDate(year, time.Month(a), b)
	}
}

func makeDate(year int, month time.Month, day int) (time.Time, bool) {
	if year < 1900 || year > 2200 || month < time.January || month > time.December || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// Reject rolled-over impossible dates like Feb 30.
	if t.Day() != day || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}

// ClampDay clamps a day-of-month to the last valid day of the given month.
func ClampDay(year int, month time.Month, day int) int {
	last := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1).Day()
	if day > last {
		return last
	}
	if day < 1 {
		return 1
	}
	return day
}
