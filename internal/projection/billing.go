// Package projection expands transaction templates into monthly occurrences
// and folds them into balance projections and per-method statements.
//
// Everything here is a pure function of its inputs: no I/O, no clock, no
// shared state. Callers pass the start month explicitly.
package projection

import (
	"time"

	"saldo/internal/core"
)

// BillingMonth returns the statement month a billable purchase lands in.
// Purchases bill to the month after the purchase month; on or after the best
// purchase day they roll one month further. A bestPurchaseDay of 0 means the
// method has no cutoff.
func BillingMonth(purchase core.Date, bestPurchaseDay int) core.YearMonth {
	month := purchase.YearMonth().AddMonths(1)
	if bestPurchaseDay > 0 && purchase.Day() >= bestPurchaseDay {
		month = month.AddMonths(1)
	}
	return month
}

// SettlementMonth is the month a purchase settles in. Non-billable and unknown
// methods settle in the purchase month itself.
func SettlementMonth(purchase core.Date, method *core.PaymentMethod) core.YearMonth {
	if method == nil || !method.Billable {
		return purchase.YearMonth()
	}
	return BillingMonth(purchase, method.BestPurchaseDay)
}

// DueDate returns the payment due date of a statement month. A due day past
// the end of the month is clamped to its last day; weekend dates move forward
// to Monday. Returns the zero Date when dueDay is unset.
func DueDate(month core.YearMonth, dueDay int) core.Date {
	if dueDay < 1 {
		return core.Date{}
	}
	if last := month.Days(); dueDay > last {
		dueDay = last
	}
	due := core.NewDate(month.Year, int(month.Month), dueDay)
	switch due.Weekday() {
	case time.Saturday:
		return due.AddDays(2)
	case time.Sunday:
		return due.AddDays(1)
	}
	return due
}
