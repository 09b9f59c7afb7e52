// Package ledger holds the minimal transaction model the snapshot engine
// consumes. It is not a bookkeeping system: the user's real ledger lives
// elsewhere, this package only models what reconciliation, installment
// inference and due-payment checks need from it.
package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Type classifies a ledger entry for reconciliation purposes.
type Type string

const (
	TypePurchase    Type = "purchase"
	TypePayment     Type = "payment"
	TypeFee         Type = "fee"
	TypeInterest    Type = "interest"
	TypeInstallment Type = "installment"
	TypeCashAdvance Type = "cash_advance"
	TypeCredit      Type = "credit"
)

// Transaction is one ledger entry on a card. Charges carry positive
// amounts; payments and credits carry negative amounts. Synthetic entries
// were generated by the engine (an installment's monthly charge) rather
// than entered by the user.
type Transaction struct {
	ID          string          `json:"id"`
	CardID      string          `json:"card_id"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Type        Type            `json:"type"`
	Synthetic   bool            `json:"synthetic,omitempty"`
}

// IsCardPayment reports whether the entry settles the card's bill, either
// by type or by its conventional description.
func (t Transaction) IsCardPayment() bool {
	if t.Type == TypePayment {
		return true
	}
	return strings.Contains(strings.ToLower(t.Description), "credit card payment")
}

// InWindow returns the transactions dated within (start, end].
func InWindow(txs []Transaction, start, end time.Time) []Transaction {
	var out []Transaction
	for _, tx := range txs {
		if tx.Date.After(start) && !tx.Date.After(end) {
			out = append(out, tx)
		}
	}
	return out
}

// SumByType totals the amounts of entries matching any of the given types.
func SumByType(txs []Transaction, types ...Type) decimal.Decimal {
	want := make(map[Type]bool, len(types))
	for _, ty := range types {
		want[ty] = true
	}
	total := decimal.Zero
	for _, tx := range txs {
		if want[tx.Type] {
			total = total.Add(tx.Amount)
		}
	}
	return total
}

// ForCard filters entries belonging to the given card.
func ForCard(txs []Transaction, cardID string) []Transaction {
	var out []Transaction
	for _, tx := range txs {
		if tx.CardID == cardID {
			out = append(out, tx)
		}
	}
	return out
}
