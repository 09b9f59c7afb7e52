package statement

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PlanSource identifies where an installment plan came from.
type PlanSource string

const (
	PlanSourceStatement  PlanSource = "statement"
	PlanSourceStructured PlanSource = "structured"
	PlanSourcePDF        PlanSource = "pdf"
	PlanSourceInferred   PlanSource = "inferred"
)

// InstallmentPlan is a recurring fixed-charge sub-balance ("Plan It",
// "meses sin intereses") tracked separately from the revolving balance.
// Plans are immutable once created; re-extraction supersedes them.
type InstallmentPlan struct {
	ID                 string           `json:"id"`
	Descriptor         string           `json:"descriptor"`
	TermMonths         int              `json:"term_months,omitempty"`
	MonthsElapsed      int              `json:"months_elapsed,omitempty"`
	RemainingPayments  int              `json:"remaining_payments,omitempty"`
	MonthlyCharge      decimal.Decimal  `json:"monthly_charge"`
	RemainingPrincipal *decimal.Decimal `json:"remaining_principal,omitempty"`
	APR                *decimal.Decimal `json:"apr,omitempty"`
	Source             PlanSource       `json:"source"`
	Confidence         float64          `json:"confidence"`
}

// PlanID builds the stable plan identifier from issuer, card, descriptor
// and monthly amount, so the same plan keeps its ID across re-extractions.
func PlanID(issuer, cardLast4, descriptor string, monthly decimal.Decimal) string {
	key := strings.ToUpper(strings.TrimSpace(issuer)) + "|" +
		cardLast4 + "|" +
		strings.ToUpper(strings.TrimSpace(descriptor)) + "|" +
		monthly.StringFixed(2)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}

// Explicit reports whether the plan was read from a document rather than
// inferred from transaction history.
func (p InstallmentPlan) Explicit() bool {
	return p.Source != PlanSourceInferred
}

func (p InstallmentPlan) String() string {
	return fmt.Sprintf("%s %s/mo (%s, %.2f)", p.Descriptor, p.MonthlyCharge.StringFixed(2), p.Source, p.Confidence)
}
