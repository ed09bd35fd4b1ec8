package core

import (
	"errors"
	"fmt"
	"strings"
)

const (
	Income  Kind = "INCOME"
	Expense Kind = "EXPENSE"
)

type (
	// Kind tells income from expense.
	Kind string

	// Pattern is how a template expands over months: Once, Recurring or Installment.
	Pattern interface {
		pattern()
	}

	// Once produces a single occurrence in its base month.
	Once struct{}

	// Recurring produces one occurrence every month from its base month on.
	Recurring struct{}

	// Installment spreads the amount over Total months; Current is the index
	// that applies to the base month.
	Installment struct {
		Current int
		Total   int
	}

	// Style carries presentation hints. The engine never reads it.
	Style struct {
		Color     string `json:"color,omitempty"`
		FontColor string `json:"fontColor,omitempty"`
	}

	// Template is a planned or historical cash-flow entry that expands into
	// monthly occurrences.
	Template struct {
		ID          string
		Description string
		Category    string
		Subcategory string
		// Amount is signed: negative for expenses. It is the only source of the kind.
		Amount        Money
		PaymentMethod string
		AnchorDate    Date
		// BillingMonth overrides the month the first occurrence bills to.
		BillingMonth YearMonth
		EndDate      Date
		Pattern      Pattern
		Overrides    map[YearMonth]Money
		Styles       map[YearMonth]Style
		Color        string
		FontColor    string
		Reconciled   bool
	}

	// PaymentMethod is a named payment channel. Billable methods settle on a
	// statement cycle instead of immediately.
	PaymentMethod struct {
		Name            string `json:"name"`
		Billable        bool   `json:"isCreditCard"`
		DueDay          int    `json:"dueDay,omitempty"`
		BestPurchaseDay int    `json:"bestDay,omitempty"`
	}
)

func (Once) pattern()        {}
func (Recurring) pattern()   {}
func (Installment) pattern() {}

var (
	ErrInvalidDay              = errors.New("invalid day")
	ErrInvalidMonth            = errors.New("invalid month")
	ErrInvalidMonthKey         = errors.New("invalid month key")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrZeroAmount              = errors.New("amount cannot be zero")
	ErrEmptyDescription        = errors.New("empty description")
	ErrDescriptionTooLong      = errors.New("description too long (max 200 characters)")
	ErrMissingAnchorDate       = errors.New("missing anchor date")
	ErrEndBeforeStart          = errors.New("end date must not be before the anchor date")
	ErrInvalidInstallmentCount = errors.New("installment total must be at least 1")
	ErrInvalidInstallmentIndex = errors.New("installment index outside [1, total]")
	ErrRecurringInstallment    = errors.New("template cannot be both recurring and installment-based")
	ErrInvalidKind             = errors.New("invalid entry type")
	ErrEmptyMethodName         = errors.New("empty payment method name")
	ErrInvalidDueDay           = errors.New("due day must be between 1 and 31")
	ErrInvalidBestPurchaseDay  = errors.New("best purchase day must be between 1 and 31")
)

func (k Kind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, string(k))
	}
}

// Kind derives the entry kind from the sign of the amount.
func (t Template) Kind() Kind {
	if t.Amount.Cents < 0 {
		return Expense
	}
	return Income
}

// PatternOrOnce returns the template's pattern, treating nil as Once.
func (t Template) PatternOrOnce() Pattern {
	if t.Pattern == nil {
		return Once{}
	}
	return t.Pattern
}

// IsRecurring reports whether the pattern is Recurring, by value or pointer.
func (t Template) IsRecurring() bool {
	switch p := t.Pattern.(type) {
	case Recurring:
		return true
	case *Recurring:
		return p != nil
	}
	return false
}

// InstallmentPlan returns the installment plan, if any.
func (t Template) InstallmentPlan() (Installment, bool) {
	switch p := t.Pattern.(type) {
	case Installment:
		return p, true
	case *Installment:
		if p != nil {
			return *p, true
		}
	}
	return Installment{}, false
}

// BaseMonth is the month the first occurrence lands in: BillingMonth when set,
// otherwise the anchor month.
func (t Template) BaseMonth() YearMonth {
	if !t.BillingMonth.IsZero() {
		return t.BillingMonth
	}
	return t.AnchorDate.YearMonth()
}

func (p Installment) Validate() error {
	if p.Total < 1 {
		return ErrInvalidInstallmentCount
	}
	if p.Current < 1 || p.Current > p.Total {
		return ErrInvalidInstallmentIndex
	}
	return nil
}

// Validate checks the invariants a template must hold to be projected.
func (t Template) Validate() error {
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return ErrDescriptionTooLong
	}
	if t.Amount.IsZero() {
		return ErrZeroAmount
	}
	if t.AnchorDate.IsZero() {
		return ErrMissingAnchorDate
	}
	if err := t.AnchorDate.Validate(); err != nil {
		return fmt.Errorf("invalid anchor date: %w", err)
	}
	if !t.EndDate.IsZero() && t.EndDate.Before(t.AnchorDate.Time) {
		return ErrEndBeforeStart
	}
	if plan, ok := t.InstallmentPlan(); ok {
		if err := plan.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy so callers can mutate without touching shared snapshots.
func (t Template) Clone() Template {
	c := t
	if t.Overrides != nil {
		c.Overrides = make(map[YearMonth]Money, len(t.Overrides))
		for k, v := range t.Overrides {
			c.Overrides[k] = v
		}
	}
	if t.Styles != nil {
		c.Styles = make(map[YearMonth]Style, len(t.Styles))
		for k, v := range t.Styles {
			c.Styles[k] = v
		}
	}
	return c
}

func (pm PaymentMethod) Validate() error {
	if strings.TrimSpace(pm.Name) == "" {
		return ErrEmptyMethodName
	}
	if pm.DueDay < 0 || pm.DueDay > 31 {
		return ErrInvalidDueDay
	}
	if pm.BestPurchaseDay < 0 || pm.BestPurchaseDay > 31 {
		return ErrInvalidBestPurchaseDay
	}
	return nil
}
