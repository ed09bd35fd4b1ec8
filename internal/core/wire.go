package core

import (
	"encoding/json"
	"fmt"
	"sort"
)

// templateWire is the persisted JSON shape. Optional fields may be absent.
type templateWire struct {
	ID                 string            `json:"id"`
	Description        string            `json:"description"`
	Amount             Money             `json:"amount"`
	Type               Kind              `json:"type,omitempty"`
	Category           string            `json:"category"`
	Subcategory        string            `json:"subcategory"`
	CardSuffix         string            `json:"cardSuffix,omitempty"`
	PaymentMethodRef   string            `json:"paymentMethodRef,omitempty"`
	Date               *Date             `json:"date,omitempty"`
	EndDate            *Date             `json:"endDate,omitempty"`
	BillingDate        *YearMonth        `json:"billingDate,omitempty"`
	Installments       *installmentWire  `json:"installments,omitempty"`
	IsRecurring        bool              `json:"isRecurring"`
	Overrides          map[string]Money  `json:"overrides,omitempty"`
	ColorOverrides     map[string]string `json:"colorOverrides,omitempty"`
	FontColorOverrides map[string]string `json:"fontColorOverrides,omitempty"`
	Color              string            `json:"color,omitempty"`
	FontColor          string            `json:"fontColor,omitempty"`
	Reconciled         bool              `json:"reconciled,omitempty"`
}

type installmentWire struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

func (t Template) MarshalJSON() ([]byte, error) {
	w := templateWire{
		ID:          t.ID,
		Description: t.Description,
		Amount:      t.Amount,
		Type:        t.Kind(),
		Category:    t.Category,
		Subcategory: t.Subcategory,
		CardSuffix:  t.PaymentMethod,
		IsRecurring: t.IsRecurring(),
		Color:       t.Color,
		FontColor:   t.FontColor,
		Reconciled:  t.Reconciled,
	}
	if !t.AnchorDate.IsZero() {
		d := t.AnchorDate
		w.Date = &d
	}
	if !t.EndDate.IsZero() {
		d := t.EndDate
		w.EndDate = &d
	}
	if !t.BillingMonth.IsZero() {
		ym := t.BillingMonth
		w.BillingDate = &ym
	}
	if plan, ok := t.InstallmentPlan(); ok {
		w.Installments = &installmentWire{Current: plan.Current, Total: plan.Total}
	}
	if len(t.Overrides) > 0 {
		w.Overrides = make(map[string]Money, len(t.Overrides))
		for ym, amt := range t.Overrides {
			w.Overrides[ym.String()] = amt
		}
	}
	for ym, st := range t.Styles {
		if st.Color != "" {
			if w.ColorOverrides == nil {
				w.ColorOverrides = map[string]string{}
			}
			w.ColorOverrides[ym.String()] = st.Color
		}
		if st.FontColor != "" {
			if w.FontColorOverrides == nil {
				w.FontColorOverrides = map[string]string{}
			}
			w.FontColorOverrides[ym.String()] = st.FontColor
		}
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the persisted shape. When "type" is present it fixes the
// sign of the amount and of every override. Malformed dates and month keys fail
// fast, as does a template that is both recurring and installment-based.
func (t *Template) UnmarshalJSON(b []byte) error {
	var w templateWire
	if err := json.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("decode template: %w", err)
	}
	if w.Type != "" {
		if err := w.Type.Validate(); err != nil {
			return fmt.Errorf("decode template %q: %w", w.ID, err)
		}
	}
	if w.IsRecurring && w.Installments != nil {
		return fmt.Errorf("decode template %q: %w", w.ID, ErrRecurringInstallment)
	}

	out := Template{
		ID:            w.ID,
		Description:   w.Description,
		Category:      w.Category,
		Subcategory:   w.Subcategory,
		Amount:        signed(w.Amount, w.Type),
		PaymentMethod: w.CardSuffix,
		Color:         w.Color,
		FontColor:     w.FontColor,
		Reconciled:    w.Reconciled,
		Pattern:       Once{},
	}
	if out.PaymentMethod == "" {
		out.PaymentMethod = w.PaymentMethodRef
	}
	if w.Date != nil {
		out.AnchorDate = *w.Date
	}
	if w.EndDate != nil {
		out.EndDate = *w.EndDate
	}
	if w.BillingDate != nil {
		out.BillingMonth = *w.BillingDate
	}
	switch {
	case w.IsRecurring:
		out.Pattern = Recurring{}
	case w.Installments != nil:
		out.Pattern = Installment{Current: w.Installments.Current, Total: w.Installments.Total}
	}

	kind := w.Type
	if kind == "" {
		kind = out.Kind()
	}
	if len(w.Overrides) > 0 {
		out.Overrides = make(map[YearMonth]Money, len(w.Overrides))
		for key, amt := range w.Overrides {
			ym, err := ParseMonthKey(key)
			if err != nil {
				return fmt.Errorf("decode template %q override: %w", w.ID, err)
			}
			out.Overrides[ym] = signed(amt, kind)
		}
	}
	for key, color := range w.ColorOverrides {
		ym, err := ParseMonthKey(key)
		if err != nil {
			return fmt.Errorf("decode template %q color override: %w", w.ID, err)
		}
		st := out.style(ym)
		st.Color = color
		out.Styles[ym] = st
	}
	for key, color := range w.FontColorOverrides {
		ym, err := ParseMonthKey(key)
		if err != nil {
			return fmt.Errorf("decode template %q font color override: %w", w.ID, err)
		}
		st := out.style(ym)
		st.FontColor = color
		out.Styles[ym] = st
	}

	*t = out
	return nil
}

func (t *Template) style(ym YearMonth) Style {
	if t.Styles == nil {
		t.Styles = map[YearMonth]Style{}
	}
	return t.Styles[ym]
}

func signed(m Money, k Kind) Money {
	if k == "" {
		return m
	}
	return m.WithSignOf(k)
}

// OverrideMonths returns the override keys in chronological order.
func (t Template) OverrideMonths() []YearMonth {
	months := make([]YearMonth, 0, len(t.Overrides))
	for ym := range t.Overrides {
		months = append(months, ym)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	return months
}
