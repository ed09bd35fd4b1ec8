package projection

import (
	"fmt"

	"saldo/internal/core"
)

// Match is the outcome of matching a template against a month.
type Match struct {
	Matched bool
	// Installment is the 1-based installment index for installment templates.
	Installment int
}

// Matches decides whether t produces an occurrence in month. The checks run
// in a fixed order: end date, start, recurring, same month, installment
// window. The same-month check short-circuits the window math, so an
// installment template always fires in its base month with its current index.
func Matches(t core.Template, month core.YearMonth) Match {
	if !t.EndDate.IsZero() && t.EndDate.YearMonth().Before(month) {
		return Match{}
	}

	base := t.BaseMonth()
	if base.After(month) {
		return Match{}
	}

	plan, installment := t.InstallmentPlan()
	switch {
	case t.IsRecurring():
		return Match{Matched: true}
	case base == month:
		if installment {
			return Match{Matched: true, Installment: plan.Current}
		}
		return Match{Matched: true}
	case installment:
		idx := plan.Current + base.MonthsUntil(month)
		if idx >= 1 && idx <= plan.Total {
			return Match{Matched: true, Installment: idx}
		}
	}
	return Match{}
}

// checkTemplate reports why a template cannot be expanded, or nil.
func checkTemplate(t core.Template) error {
	if t.AnchorDate.IsZero() && t.BillingMonth.IsZero() {
		return core.ErrMissingAnchorDate
	}
	if plan, ok := t.InstallmentPlan(); ok {
		if err := plan.Validate(); err != nil {
			return fmt.Errorf("installment %d/%d: %w", plan.Current, plan.Total, err)
		}
	}
	return nil
}
