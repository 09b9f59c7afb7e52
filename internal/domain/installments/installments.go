// Package installments finds fixed-charge payment plans two ways: by
// parsing the explicit plan sections some issuers print, and by inferring
// plans from repeating ledger charges when no section exists.
package installments

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/card-truth/internal/domain/statement"
	"github.com/FACorreiaa/card-truth/pkg/money"
)

const (
	explicitConfidence = 0.90
	sectionWindowLines = 30
)

// sectionHeaders mark the start of an explicit installment section across
// known issuer formats.
var sectionHeaders = []string{
	"plan it",
	"pay over time",
	"installment plans",
	"payment plans",
	"meses sin intereses",
	"msi",
	"compras a plazos",
	"citi flex",
}

// planRowRe matches one plan row: descriptor, "N of M" progress, monthly
// charge. The Spanish form uses "de" and the progress can precede or trail
// the amount.
var planRowRe = regexp.MustCompile(
	`(?i)^(.{3,60}?)\s+(\d{1,2})\s*(?:of|de|/)\s*(\d{1,2})\s+((?:USD|EUR|GBP|MXN|BRL)?\s*\d[\d.,]*)\s*$`)

// planRowNoProgressRe matches plan rows that only print a monthly charge
// with a plan keyword in the descriptor.
var planRowNoProgressRe = regexp.MustCompile(
	`(?i)^(.{3,60}?(?:plan|msi|plazos).{0,20}?)\s+((?:USD|EUR|GBP|MXN|BRL)?\s*\d[\d.,]*)\s*$`)

// ParseExplicit scans normalized statement text for installment sections
// and returns the plans listed under them. Plan IDs are derived from the
// owning card so re-parsing the same statement yields the same IDs.
func ParseExplicit(text, issuerName, cardLast4 string) []statement.InstallmentPlan {
	lines := strings.Split(text, "\n")
	var plans []statement.InstallmentPlan
	seen := make(map[string]bool)

	for i, line := range lines {
		if !isSectionHeader(line) {
			continue
		}
		end := i + 1 + sectionWindowLines
		if end > len(lines) {
			end = len(lines)
		}
		for _, row := range lines[i+1 : end] {
			row = strings.TrimSpace(row)
			if row == "" || isSectionHeader(row) {
				continue
			}
			plan, ok := parsePlanRow(row, issuerName, cardLast4)
			if !ok || seen[plan.ID] {
				continue
			}
			seen[plan.ID] = true
			plans = append(plans, plan)
		}
	}
	return plans
}

func isSectionHeader(line string) bool {
	l := strings.ToLower(strings.TrimSpace(line))
	if l == "" || len(l) > 60 {
		return false
	}
	for _, h := range sectionHeaders {
		if h == "msi" {
			// too short for a substring test, require a word match
			for _, w := range strings.Fields(l) {
				if w == "msi" {
					return true
				}
			}
			continue
		}
		if strings.Contains(l, h) {
			return true
		}
	}
	return false
}

func parsePlanRow(row, issuerName, cardLast4 string) (statement.InstallmentPlan, bool) {
	if m := planRowRe.FindStringSubmatch(row); m != nil {
		monthly := money.ParseAmount(m[4])
		if monthly == nil || monthly.IsZero() {
			return statement.InstallmentPlan{}, false
		}
		elapsed := atoiSafe(m[2])
		term := atoiSafe(m[3])
		if term == 0 || elapsed > term {
			return statement.InstallmentPlan{}, false
		}
		desc := strings.TrimSpace(m[1])
		remaining := term - elapsed
		principal := monthly.Mul(decimal.NewFromInt(int64(remaining)))
		return statement.InstallmentPlan{
			ID:                 statement.PlanID(issuerName, cardLast4, desc, *monthly),
			Descriptor:         desc,
			TermMonths:         term,
			MonthsElapsed:      elapsed,
			RemainingPayments:  remaining,
			MonthlyCharge:      *monthly,
			RemainingPrincipal: &principal,
			Source:             statement.PlanSourceStatement,
			Confidence:         explicitConfidence,
		}, true
	}

	if m := planRowNoProgressRe.FindStringSubmatch(row); m != nil {
		monthly := money.ParseAmount(m[2])
		if monthly == nil || monthly.IsZero() {
			return statement.InstallmentPlan{}, false
		}
		desc := strings.TrimSpace(m[1])
		return statement.InstallmentPlan{
			ID:            statement.PlanID(issuerName, cardLast4, desc, *monthly),
			Descriptor:    desc,
			MonthlyCharge: *monthly,
			Source:        statement.PlanSourceStatement,
			Confidence:    explicitConfidence,
		}, true
	}

	return statement.InstallmentPlan{}, false
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
