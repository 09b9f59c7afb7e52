// Package billing computes cycle mechanics from a card's convergent
// truth: grace periods, upcoming due dates and whether a cycle's payment
// has been made.
package billing

import (
	"fmt"
	"time"

	"github.com/FACorreiaa/card-truth/internal/domain/ledger"
	"github.com/FACorreiaa/card-truth/pkg/dates"
)

// Grace periods outside this range exist but usually mean one of the two
// dates was extracted wrong.
const (
	minGraceDays = 15
	maxGraceDays = 35
)

// Cycle describes one billing cycle's rhythm.
type Cycle struct {
	ClosingDay int      `json:"closing_day"`
	DueDay     int      `json:"due_day"`
	GraceDays  int      `json:"grace_days"`
	Warnings   []string `json:"warnings,omitempty"`
}

// NewCycle derives the recurring cycle from one observed closing and due
// date pair. Both recurring days are clamped into 1-28 so every month of
// the year has them. When the due day of month is lower than the closing
// day the due date falls in the month after the cycle closes.
func NewCycle(periodEnd, dueDate time.Time) Cycle {
	c := Cycle{
		ClosingDay: clampCycleDay(periodEnd.Day()),
		DueDay:     clampCycleDay(dueDate.Day()),
		GraceDays:  int(dueDate.Sub(periodEnd).Hours() / 24),
	}
	if c.GraceDays < minGraceDays || c.GraceDays > maxGraceDays {
		c.Warnings = append(c.Warnings,
			fmt.Sprintf("grace period of %d days is unusual, verify closing and due dates", c.GraceDays))
	}
	return c
}

func clampCycleDay(day int) int {
	if day < 1 {
		return 1
	}
	if day > 28 {
		return 28
	}
	return day
}

// NextClosing returns the first cycle close on or after from.
func (c Cycle) NextClosing(from time.Time) time.Time {
	day := dates.ClampDay(from.Year(), from.Month(), c.ClosingDay)
	closing := time.Date(from.Year(), from.Month(), day, 0, 0, 0, 0, time.UTC)
	if closing.Before(from) {
		next := from.AddDate(0, 1, 0)
		day = dates.ClampDay(next.Year(), next.Month(), c.ClosingDay)
		closing = time.Date(next.Year(), next.Month(), day, 0, 0, 0, 0, time.UTC)
	}
	return closing
}

// DueFor returns the due date of the cycle that closes on closing. The
// due day lands in the following month when it is numerically lower than
// the closing day; a due day equal to the closing day stays in the same
// month.
func (c Cycle) DueFor(closing time.Time) time.Time {
	year, month := closing.Year(), closing.Month()
	if c.DueDay < c.ClosingDay {
		next := closing.AddDate(0, 1, 0)
		year, month = next.Year(), next.Month()
	}
	day := dates.ClampDay(year, month, c.DueDay)
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// NextDueDates projects the next n due dates starting from the first
// cycle close on or after from.
func (c Cycle) NextDueDates(from time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	closing := c.NextClosing(from)
	for i := 0; i < n; i++ {
		out = append(out, c.DueFor(closing))
		next := closing.AddDate(0, 1, 0)
		day := dates.ClampDay(next.Year(), next.Month(), c.ClosingDay)
		closing = time.Date(next.Year(), next.Month(), day, 0, 0, 0, 0, time.UTC)
	}
	return out
}

// IsDuePaid reports whether any card payment was recorded in the window
// after the previous due date and up to (inclusive) the due date. A
// partial payment counts as paid; whether it covered the minimum is the
// statement's business, not the ledger's.
func IsDuePaid(txs []ledger.Transaction, prevDue, due time.Time) bool {
	for _, tx := range ledger.InWindow(txs, prevDue, due) {
		if tx.IsCardPayment() {
			return true
		}
	}
	return false
}
