package projection

import (
	"sort"

	"saldo/internal/core"
)

// GroupByPaymentMethod builds the statements for month: expense occurrences
// on billable methods, grouped per method, totals in absolute value, largest
// statement first. References to unknown methods are treated as not billable.
func GroupByPaymentMethod(templates []core.Template, month core.YearMonth, methods []core.PaymentMethod) ([]core.StatementGroup, Diagnostics) {
	billable := make(map[string]core.PaymentMethod, len(methods))
	for _, m := range methods {
		if m.Billable {
			billable[m.Name] = m
		}
	}

	occs, diags := Occurrences(templates, month)
	index := map[string]int{}
	var groups []core.StatementGroup
	for _, occ := range occs {
		if occ.Kind != core.Expense {
			continue
		}
		method, ok := billable[occ.PaymentMethod]
		if !ok {
			continue
		}
		i, seen := index[method.Name]
		if !seen {
			i = len(groups)
			index[method.Name] = i
			groups = append(groups, core.StatementGroup{
				PaymentMethod: method.Name,
				Month:         month,
				DueDate:       DueDate(month, method.DueDay),
			})
		}
		groups[i].Total = groups[i].Total.Add(occ.Amount.Abs())
		groups[i].Occurrences = append(groups[i].Occurrences, occ)
	}

	sort.SliceStable(groups, func(a, b int) bool {
		if groups[a].Total.Cents != groups[b].Total.Cents {
			return groups[a].Total.Cents > groups[b].Total.Cents
		}
		return groups[a].PaymentMethod < groups[b].PaymentMethod
	})
	return groups, diags
}
