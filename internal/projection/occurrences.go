package projection

import (
	"saldo/internal/core"
)

// screen drops the templates the engine cannot expand and reports them.
func screen(templates []core.Template) ([]core.Template, Diagnostics) {
	var diags Diagnostics
	valid := make([]core.Template, 0, len(templates))
	for _, t := range templates {
		if err := checkTemplate(t); err != nil {
			diags = append(diags, diagnose(t, err))
			continue
		}
		valid = append(valid, t)
	}
	return valid, diags
}

// occurrenceIn matches and resolves one template for one month.
func occurrenceIn(t core.Template, month core.YearMonth) (core.Occurrence, bool) {
	m := Matches(t, month)
	if !m.Matched {
		return core.Occurrence{}, false
	}
	amount, overridden, err := ResolveAmount(t, month)
	if err != nil {
		// screen rejects every template ResolveAmount can fail on.
		return core.Occurrence{}, false
	}
	occ := core.Occurrence{
		TemplateID:    t.ID,
		Description:   t.Description,
		Category:      t.Category,
		Subcategory:   t.Subcategory,
		PaymentMethod: t.PaymentMethod,
		Kind:          t.Kind(),
		Month:         month,
		Amount:        amount,
		Installment:   m.Installment,
		Overridden:    overridden,
		Reconciled:    t.Reconciled,
	}
	if plan, ok := t.InstallmentPlan(); ok {
		occ.InstallmentTotal = plan.Total
	}
	return occ, true
}

func expand(valid []core.Template, month core.YearMonth) []core.Occurrence {
	var out []core.Occurrence
	for _, t := range valid {
		if occ, ok := occurrenceIn(t, month); ok {
			out = append(out, occ)
		}
	}
	return out
}

// Occurrences lists every occurrence produced in month, in template order.
// This is the one filter every view goes through.
func Occurrences(templates []core.Template, month core.YearMonth) ([]core.Occurrence, Diagnostics) {
	valid, diags := screen(templates)
	return expand(valid, month), diags
}
