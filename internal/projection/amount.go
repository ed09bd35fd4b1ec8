package projection

import (
	"saldo/internal/core"
)

// ResolveAmount returns the signed amount of t's occurrence in month. A
// per-month override wins verbatim; installment templates otherwise yield
// their share of the total; everything else yields the full amount.
func ResolveAmount(t core.Template, month core.YearMonth) (amount core.Money, overridden bool, err error) {
	if v, ok := t.Overrides[month]; ok {
		return v, true, nil
	}
	if plan, ok := t.InstallmentPlan(); ok {
		share, err := t.Amount.Share(plan.Total)
		if err != nil {
			return core.Money{}, false, err
		}
		return share, false, nil
	}
	return t.Amount, false, nil
}
