// Package confidence scores an extracted statement as a whole. Per-field
// confidences come from extraction; this package weighs them, runs
// cross-field consistency checks, applies penalties and decides whether
// the result needs user confirmation before it can anchor the truth merge.
package confidence

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/card-truth/internal/domain/statement"
)

const (
	criticalWeight  = 3.0
	importantWeight = 2.0

	balancePenalty      = 0.8
	missingCritical     = 0.7
	missingIssuer       = 0.9
	dateInconsistency   = 0.85
	amountInconsistency = 0.9

	// balance fields implicated in a failed equation are capped here
	balanceConfidenceCap = 0.6

	confirmOverallFloor  = 0.7
	confirmCriticalFloor = 0.8

	minDueDays = 10
	maxDueDays = 45
)

// a plausible minimum due sits between 0.5% and 50% of the balance
var (
	minDuePctFloor  = decimal.NewFromFloat(0.005)
	minDuePctCeil   = decimal.NewFromFloat(0.5)
	overlimitFactor = decimal.NewFromFloat(1.1)
)

// Report is the outcome of analyzing one statement.
type Report struct {
	Overall      float64  `json:"overall"`
	CriticalMean float64  `json:"critical_mean"`
	Penalties    []string `json:"penalties,omitempty"`
}

// balanceFields participate in the balance equation and share its penalty.
var balanceFields = []statement.Field{
	statement.FieldPreviousBalance,
	statement.FieldNewBalance,
	statement.FieldPaymentsCredits,
	statement.FieldPurchases,
	statement.FieldCashAdvances,
	statement.FieldFees,
	statement.FieldInterest,
}

// Analyze scores the statement, records warnings for every inconsistency
// found, and sets NeedsUserConfirm. It mutates the statement's warnings
// and, on a failed balance equation, caps the implicated field confidences.
func Analyze(st *statement.Canonical) Report {
	r := Report{Overall: weightedMean(st)}
	r.CriticalMean = criticalMean(st)

	for _, f := range statement.CriticalFields {
		if !st.Has(f) {
			r.penalize(&r.Overall, missingCritical, fmt.Sprintf("missing critical field %s", f))
			st.Warn(fmt.Sprintf("missing critical field: %s", f))
		}
	}
	if st.Issuer == "" {
		r.penalize(&r.Overall, missingIssuer, "issuer not identified")
	}

	checkBalanceEquation(st, &r)
	checkDates(st, &r)
	checkAmounts(st, &r)

	st.NeedsUserConfirm = needsConfirm(st, r)
	return r
}

func (r *Report) penalize(overall *float64, factor float64, reason string) {
	*overall *= factor
	r.Penalties = append(r.Penalties, reason)
}

// weightedMean averages the populated field confidences, weighting
// critical fields 3x and important fields 2x.
func weightedMean(st *statement.Canonical) float64 {
	var sum, weights float64
	for f, conf := range st.Confidence {
		if !st.Has(f) {
			continue
		}
		w := weightFor(f)
		sum += conf * w
		weights += w
	}
	if weights == 0 {
		return 0
	}
	return sum / weights
}

func weightFor(f statement.Field) float64 {
	for _, c := range statement.CriticalFields {
		if f == c {
			return criticalWeight
		}
	}
	for _, i := range statement.ImportantFields {
		if f == i {
			return importantWeight
		}
	}
	return 1
}

func criticalMean(st *statement.Canonical) float64 {
	var sum float64
	for _, f := range statement.CriticalFields {
		sum += st.Confidence[f] // absent fields count as zero
	}
	return sum / float64(len(statement.CriticalFields))
}

// checkBalanceEquation verifies
//
//	new = previous - payments + purchases + cash advances + fees + interest
//
// within a tolerance of half a unit or 0.5% of the new balance, whichever
// is larger. Absent components count as zero; the check requires at least
// the two balances plus one activity figure.
func checkBalanceEquation(st *statement.Canonical, r *Report) {
	if st.NewBalance == nil || st.PreviousBalance == nil {
		return
	}
	if st.PaymentsCredits == nil && st.Purchases == nil {
		return
	}

	expected := st.PreviousBalance.
		Sub(orZero(st.PaymentsCredits)).
		Add(orZero(st.Purchases)).
		Add(orZero(st.CashAdvances)).
		Add(orZero(st.Fees)).
		Add(orZero(st.Interest))

	drift := st.NewBalance.Sub(expected).Abs()
	tolerance := decimal.NewFromFloat(0.5)
	if pct := st.NewBalance.Abs().Mul(decimal.NewFromFloat(0.005)); pct.GreaterThan(tolerance) {
		tolerance = pct
	}

	if drift.LessThanOrEqual(tolerance) {
		return
	}

	r.penalize(&r.Overall, balancePenalty, "balance equation failed")
	st.Warn(fmt.Sprintf("balance equation mismatch: expected %s, statement shows %s",
		expected.StringFixed(2), st.NewBalance.StringFixed(2)))

	for _, f := range balanceFields {
		if conf, ok := st.Confidence[f]; ok && conf > balanceConfidenceCap {
			st.SetConfidence(f, balanceConfidenceCap)
		}
	}
}

// checkDates verifies the due date lands a plausible distance after the
// cycle end and the closing day is a real recurring day of month.
func checkDates(st *statement.Canonical, r *Report) {
	if st.DueDate != nil && st.PeriodEnd != nil {
		days := int(st.DueDate.Sub(*st.PeriodEnd).Hours() / 24)
		if days < minDueDays || days > maxDueDays {
			r.penalize(&r.Overall, dateInconsistency, "due date distance from cycle end")
			st.Warn(fmt.Sprintf("due date inconsistent: %d days after cycle end", days))
		}
	}
	if st.ClosingDay != 0 && (st.ClosingDay < 1 || st.ClosingDay > 28) {
		r.penalize(&r.Overall, dateInconsistency, "closing day outside 1-28")
		st.Warn(fmt.Sprintf("invalid closing day: %d", st.ClosingDay))
	}
}

// checkAmounts runs sign and ordering sanity checks across amounts.
func checkAmounts(st *statement.Canonical, r *Report) {
	if st.NewBalance != nil && st.NewBalance.Sign() < 0 {
		r.penalize(&r.Overall, amountInconsistency, "negative balance")
		st.Warn("invalid new balance: negative")
	}
	if st.MinimumDue != nil && st.NewBalance != nil && st.NewBalance.Sign() > 0 {
		pct := st.MinimumDue.Div(*st.NewBalance)
		switch {
		case st.MinimumDue.GreaterThan(*st.NewBalance):
			r.penalize(&r.Overall, amountInconsistency, "minimum due exceeds balance")
			st.Warn("minimum due exceeds new balance (inconsistent)")
		case pct.LessThan(minDuePctFloor) || pct.GreaterThan(minDuePctCeil):
			r.penalize(&r.Overall, amountInconsistency, "minimum due share of balance")
			st.Warn(fmt.Sprintf("minimum due is %s%% of balance (inconsistent)",
				pct.Mul(decimal.NewFromInt(100)).StringFixed(1)))
		}
	}
	if st.NewBalance != nil && st.CreditLimit != nil && st.CreditLimit.Sign() > 0 &&
		st.NewBalance.GreaterThan(st.CreditLimit.Mul(overlimitFactor)) {
		r.penalize(&r.Overall, amountInconsistency, "balance above 110% of limit")
		st.Warn("new balance exceeds 110% of credit limit (inconsistent)")
	}
	if st.CreditLimit != nil && st.CreditLimit.Sign() < 0 {
		r.penalize(&r.Overall, amountInconsistency, "negative credit limit")
		st.Warn("invalid credit limit: negative")
	}
	if st.AvailableCredit != nil && st.CreditLimit != nil &&
		st.AvailableCredit.GreaterThan(*st.CreditLimit) {
		r.penalize(&r.Overall, amountInconsistency, "available credit exceeds limit")
		st.Warn("available credit exceeds credit limit (inconsistent)")
	}
}

// needsConfirm decides whether the parse must be confirmed by the user
// before it can act as a high-trust truth layer.
func needsConfirm(st *statement.Canonical, r Report) bool {
	if r.Overall < confirmOverallFloor {
		return true
	}
	if r.CriticalMean < confirmCriticalFloor {
		return true
	}
	for _, w := range st.Warnings {
		lw := strings.ToLower(w)
		if strings.Contains(lw, "mismatch") ||
			strings.Contains(lw, "inconsistent") ||
			strings.Contains(lw, "invalid") {
			return true
		}
	}
	return false
}

func orZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
