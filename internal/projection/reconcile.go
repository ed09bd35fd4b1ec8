package projection

import (
	"saldo/internal/core"
)

// Reconciliation is the checklist view of one statement: how much of it has
// been ticked off against the real card bill.
type Reconciliation struct {
	PaymentMethod   string            `json:"paymentMethod"`
	Month           core.YearMonth    `json:"month"`
	DueDate         core.Date         `json:"dueDate"`
	Items           []core.Occurrence `json:"items"`
	Total           core.Money        `json:"total"`
	ReconciledTotal core.Money        `json:"reconciledTotal"`
	Pending         core.Money        `json:"pending"`
	// Progress is ReconciledTotal as a percentage of Total, 0 for an empty statement.
	Progress float64 `json:"progress"`
}

// Reconcile returns the reconciliation view of method's statement for month.
// An unknown or non-billable method yields an empty view.
func Reconcile(templates []core.Template, month core.YearMonth, method string, methods []core.PaymentMethod) (Reconciliation, Diagnostics) {
	groups, diags := GroupByPaymentMethod(templates, month, methods)
	rec := Reconciliation{PaymentMethod: method, Month: month, Items: []core.Occurrence{}}
	for _, pm := range methods {
		if pm.Name == method && pm.Billable {
			rec.DueDate = DueDate(month, pm.DueDay)
		}
	}
	for _, g := range groups {
		if g.PaymentMethod != method {
			continue
		}
		rec.Items = g.Occurrences
		rec.Total = g.Total
		for _, occ := range g.Occurrences {
			if occ.Reconciled {
				rec.ReconciledTotal = rec.ReconciledTotal.Add(occ.Amount.Abs())
			}
		}
	}
	rec.Pending = core.Cents(rec.Total.Cents - rec.ReconciledTotal.Cents)
	if rec.Total.Cents > 0 {
		rec.Progress = float64(rec.ReconciledTotal.Cents) / float64(rec.Total.Cents) * 100
	}
	return rec, diags
}
