// Package statement defines the canonical billing facts extracted from a
// card statement, independent of the source format. Absence of a field
// (nil pointer, empty string) is distinct from a present field with zero
// confidence: every populated field carries its own entry in Confidence.
package statement

import (
	"time"

	"github.com/shopspring/decimal"
)

// Field is the closed set of extractable statement fields. The confidence
// map and the extraction rule table are both keyed by it.
type Field string

const (
	FieldIssuer          Field = "issuer"
	FieldCardLast4       Field = "card_last4"
	FieldCurrency        Field = "currency"
	FieldPeriodStart     Field = "period_start"
	FieldPeriodEnd       Field = "period_end"
	FieldClosingDay      Field = "closing_day"
	FieldDueDate         Field = "due_date"
	FieldPreviousBalance Field = "previous_balance"
	FieldNewBalance      Field = "new_balance"
	FieldMinimumDue      Field = "minimum_due"
	FieldPaymentsCredits Field = "payments_credits"
	FieldPurchases       Field = "purchases"
	FieldCashAdvances    Field = "cash_advances"
	FieldFees            Field = "fees"
	FieldInterest        Field = "interest"
	FieldCreditLimit     Field = "credit_limit"
	FieldAvailableCredit Field = "available_credit"
	FieldPurchaseAPR     Field = "purchase_apr"
	FieldCashAPR         Field = "cash_apr"
)

// CriticalFields are the fields the confidence analyzer weights 3x and
// whose absence degrades the whole parse.
var CriticalFields = []Field{FieldNewBalance, FieldMinimumDue, FieldDueDate}

// ImportantFields are weighted 2x.
var ImportantFields = []Field{FieldPreviousBalance, FieldPurchases, FieldFees, FieldInterest}

// Canonical is the normalized result of extracting one statement.
type Canonical struct {
	Issuer    string `json:"issuer,omitempty"`
	CardLast4 string `json:"card_last4,omitempty"`
	Currency  string `json:"currency,omitempty"`

	PeriodStart *time.Time `json:"period_start,omitempty"`
	PeriodEnd   *time.Time `json:"period_end,omitempty"`
	ClosingDay  int        `json:"closing_day,omitempty"` // 1-28, 0 when absent
	DueDate     *time.Time `json:"due_date,omitempty"`

	PreviousBalance *decimal.Decimal `json:"previous_balance,omitempty"`
	NewBalance      *decimal.Decimal `json:"new_balance,omitempty"`
	MinimumDue      *decimal.Decimal `json:"minimum_due,omitempty"`
	PaymentsCredits *decimal.Decimal `json:"payments_credits,omitempty"`
	Purchases       *decimal.Decimal `json:"purchases,omitempty"`
	CashAdvances    *decimal.Decimal `json:"cash_advances,omitempty"`
	Fees            *decimal.Decimal `json:"fees,omitempty"`
	Interest        *decimal.Decimal `json:"interest,omitempty"`
	CreditLimit     *decimal.Decimal `json:"credit_limit,omitempty"`
	AvailableCredit *decimal.Decimal `json:"available_credit,omitempty"`
	PurchaseAPR     *decimal.Decimal `json:"purchase_apr,omitempty"`
	CashAPR         *decimal.Decimal `json:"cash_apr,omitempty"`

	Installments []InstallmentPlan `json:"installments,omitempty"`

	Confidence       map[Field]float64 `json:"confidence"`
	Warnings         []string          `json:"warnings,omitempty"`
	NeedsUserConfirm bool              `json:"needs_user_confirm"`
}

// NewCanonical returns an empty statement with an initialized confidence map.
func NewCanonical() *Canonical {
	return &Canonical{Confidence: make(map[Field]float64)}
}

// SetConfidence records the confidence for a populated field.
func (c *Canonical) SetConfidence(f Field, conf float64) {
	if c.Confidence == nil {
		c.Confidence = make(map[Field]float64)
	}
	c.Confidence[f] = conf
}

// Warn appends a warning to the statement.
func (c *Canonical) Warn(msg string) {
	c.Warnings = append(c.Warnings, msg)
}

// AmountFor returns the decimal value stored for an amount field, or nil.
func (c *Canonical) AmountFor(f Field) *decimal.Decimal {
	switch f {
	case FieldPreviousBalance:
		return c.PreviousBalance
	case FieldNewBalance:
		return c.NewBalance
	case FieldMinimumDue:
		return c.MinimumDue
	case FieldPaymentsCredits:
		return c.PaymentsCredits
	case FieldPurchases:
		return c.Purchases
	case FieldCashAdvances:
		return c.CashAdvances
	case FieldFees:
		return c.Fees
	case FieldInterest:
		return c.Interest
	case FieldCreditLimit:
		return c.CreditLimit
	case FieldAvailableCredit:
		return c.AvailableCredit
	case FieldPurchaseAPR:
		return c.PurchaseAPR
	case FieldCashAPR:
		return c.CashAPR
	}
	return nil
}

// SetAmount stores a decimal value on the given amount field.
func (c *Canonical) SetAmount(f Field, d decimal.Decimal) {
	switch f {
	case FieldPreviousBalance:
		c.PreviousBalance = &d
	case FieldNewBalance:
		c.NewBalance = &d
	case FieldMinimumDue:
		c.MinimumDue = &d
	case FieldPaymentsCredits:
		c.PaymentsCredits = &d
	case FieldPurchases:
		c.Purchases = &d
	case FieldCashAdvances:
		c.CashAdvances = &d
	case FieldFees:
		c.Fees = &d
	case FieldInterest:
		c.Interest = &d
	case FieldCreditLimit:
		c.CreditLimit = &d
	case FieldAvailableCredit:
		c.AvailableCredit = &d
	case FieldPurchaseAPR:
		c.PurchaseAPR = &d
	case FieldCashAPR:
		c.CashAPR = &d
	}
}

// Has reports whether the field holds a value.
func (c *Canonical) Has(f Field) bool {
	switch f {
	case FieldIssuer:
		return c.Issuer != ""
	case FieldCardLast4:
		return c.CardLast4 != ""
	case FieldCurrency:
		return c.Currency != ""
	case FieldPeriodStart:
		return c.PeriodStart != nil
	case FieldPeriodEnd:
		return c.PeriodEnd != nil
	case FieldClosingDay:
		return c.ClosingDay != 0
	case FieldDueDate:
		return c.DueDate != nil
	default:
		return c.AmountFor(f) != nil
	}
}
