// Package reconcile compares the transaction ledger against the merged
// statement truth for one billing cycle and quantifies the drift between
// them.
package reconcile

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/card-truth/internal/domain/ledger"
)

// Result is the outcome of reconciling one cycle.
type Result struct {
	LedgerBalance    decimal.Decimal  `json:"ledger_balance"`
	StatementBalance *decimal.Decimal `json:"statement_balance,omitempty"`
	Drift            decimal.Decimal  `json:"drift"`
	Tolerance        decimal.Decimal  `json:"tolerance"`
	Consistent       bool             `json:"consistent"`
	Warnings         []string         `json:"warnings,omitempty"`

	Purchases decimal.Decimal `json:"purchases"`
	Payments  decimal.Decimal `json:"payments"`
	Fees      decimal.Decimal `json:"fees"`
	Interest  decimal.Decimal `json:"interest"`
}

// Reconcile rolls the ledger forward from the previous balance across the
// cycle window (start exclusive, end inclusive) and compares the result
// with the statement's new balance. Charges carry positive amounts and
// payments negative, so the roll-forward is a plain sum. A nil statement
// balance yields a result that only reports the ledger side.
func Reconcile(prev decimal.Decimal, txs []ledger.Transaction, start, end time.Time, statementBalance *decimal.Decimal) Result {
	window := ledger.InWindow(txs, start, end)

	r := Result{
		Purchases: ledger.SumByType(window, ledger.TypePurchase, ledger.TypeInstallment),
		Payments:  ledger.SumByType(window, ledger.TypePayment, ledger.TypeCredit).Abs(),
		Fees:      ledger.SumByType(window, ledger.TypeFee),
		Interest:  ledger.SumByType(window, ledger.TypeInterest),
	}

	r.LedgerBalance = prev
	for _, tx := range window {
		r.LedgerBalance = r.LedgerBalance.Add(tx.Amount)
	}

	if statementBalance == nil {
		r.Consistent = true
		return r
	}
	sb := *statementBalance
	r.StatementBalance = &sb

	r.Drift = r.LedgerBalance.Sub(sb).Abs()
	r.Tolerance = decimal.NewFromFloat(0.5)
	if pct := sb.Abs().Mul(decimal.NewFromFloat(0.005)); pct.GreaterThan(r.Tolerance) {
		r.Tolerance = pct
	}

	r.Consistent = r.Drift.LessThanOrEqual(r.Tolerance)
	if !r.Consistent {
		r.Warnings = append(r.Warnings, fmt.Sprintf(
			"ledger drift mismatch: ledger ends at %s, statement shows %s (drift %s)",
			r.LedgerBalance.StringFixed(2), sb.StringFixed(2), r.Drift.StringFixed(2)))
	}
	return r
}

// Adjustment builds a synthetic ledger entry that trues the ledger up to
// the statement balance. Callers append it only after the user accepts
// the statement as the anchor.
func (r Result) Adjustment(cardID string, at time.Time) (ledger.Transaction, bool) {
	if r.StatementBalance == nil || r.Consistent {
		return ledger.Transaction{}, false
	}
	diff := r.StatementBalance.Sub(r.LedgerBalance)
	typ := ledger.TypeFee
	if diff.Sign() < 0 {
		typ = ledger.TypeCredit
	}
	return ledger.Transaction{
		ID:          uuid.NewString(),
		CardID:      cardID,
		Date:        at,
		Description: "balance adjustment",
		Amount:      diff,
		Type:        typ,
		Synthetic:   true,
	}, true
}
