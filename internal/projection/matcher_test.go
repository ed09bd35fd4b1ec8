package projection

import (
	"testing"
	"time"

	"saldo/internal/core"
)

func template(id string, amount int64, anchor core.Date, p core.Pattern) core.Template {
	return core.Template{
		ID:          id,
		Description: id,
		Amount:      core.Cents(amount),
		AnchorDate:  anchor,
		Pattern:     p,
	}
}

// matchedMonths returns the months in [from, from+n) where t matches.
func matchedMonths(t core.Template, from core.YearMonth, n int) []core.YearMonth {
	var out []core.YearMonth
	for i := 0; i < n; i++ {
		m := from.AddMonths(i)
		if Matches(t, m).Matched {
			out = append(out, m)
		}
	}
	return out
}

func span(from core.YearMonth, n int) []core.YearMonth {
	out := make([]core.YearMonth, n)
	for i := range out {
		out[i] = from.AddMonths(i)
	}
	return out
}

func equalMonths(a, b []core.YearMonth) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMatchesWindows(t *testing.T) {
	jan26 := ym(2026, time.January)
	from := ym(2025, time.January)

	withEnd := template("rent", -150000, core.NewDate(2026, 1, 5), core.Recurring{})
	withEnd.EndDate = core.NewDate(2026, 2, 15)

	billed := template("tv", -120000, core.NewDate(2026, 1, 22), core.Installment{Current: 1, Total: 3})
	billed.BillingMonth = ym(2026, time.March)

	tests := []struct {
		name string
		tpl  core.Template
		want []core.YearMonth
	}{
		{
			name: "one-off fires only in its anchor month",
			tpl:  template("gift", -5000, core.NewDate(2026, 1, 31), core.Once{}),
			want: []core.YearMonth{jan26},
		},
		{
			name: "nil pattern behaves as one-off",
			tpl:  template("gift", -5000, core.NewDate(2026, 1, 31), nil),
			want: []core.YearMonth{jan26},
		},
		{
			name: "recurring fires every month from its anchor",
			tpl:  template("salary", 500000, core.NewDate(2026, 1, 5), core.Recurring{}),
			want: span(jan26, 36),
		},
		{
			name: "end date truncates after its month",
			tpl:  withEnd,
			want: []core.YearMonth{jan26, ym(2026, time.February)},
		},
		{
			name: "installments from index one",
			tpl:  template("notebook", -120000, core.NewDate(2026, 1, 22), core.Installment{Current: 1, Total: 12}),
			want: span(jan26, 12),
		},
		{
			name: "installments from index six",
			tpl:  template("notebook", -120000, core.NewDate(2026, 1, 22), core.Installment{Current: 6, Total: 12}),
			want: span(jan26, 7),
		},
		{
			name: "billing month replaces anchor as base",
			tpl:  billed,
			want: span(ym(2026, time.March), 3),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := matchedMonths(tt.tpl, from, 48)
			if !equalMonths(got, tt.want) {
				t.Errorf("matched months = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchesInstallmentIndex(t *testing.T) {
	tpl := template("notebook", -120000, core.NewDate(2026, 1, 22), core.Installment{Current: 6, Total: 12})

	tests := []struct {
		month core.YearMonth
		want  int
	}{
		{ym(2026, time.January), 6},
		{ym(2026, time.February), 7},
		{ym(2026, time.July), 12},
	}
	for _, tt := range tests {
		m := Matches(tpl, tt.month)
		if !m.Matched || m.Installment != tt.want {
			t.Errorf("Matches(%v) = %+v, want installment %d", tt.month, m, tt.want)
		}
	}
	if m := Matches(tpl, ym(2025, time.December)); m.Matched {
		t.Errorf("installment matched before its base month: %+v", m)
	}
}

func TestMatchesRecurringPointer(t *testing.T) {
	tpl := template("rent", -150000, core.NewDate(2026, 1, 5), &core.Recurring{})
	got := matchedMonths(tpl, ym(2026, time.January), 3)
	if want := span(ym(2026, time.January), 3); !equalMonths(got, want) {
		t.Fatalf("matched %v, want %v", got, want)
	}
}

func TestMatchesEndDateBeforeStart(t *testing.T) {
	tpl := template("gift", -5000, core.NewDate(2026, 3, 1), core.Once{})
	tpl.EndDate = core.NewDate(2026, 2, 1)
	if Matches(tpl, ym(2026, time.March)).Matched {
		t.Fatal("end date check must run before the same-month check")
	}
}

func TestResolveAmount(t *testing.T) {
	mar := ym(2026, time.March)
	tpl := template("notebook", -120000, core.NewDate(2026, 1, 22), core.Installment{Current: 1, Total: 12})

	got, overridden, err := ResolveAmount(tpl, mar)
	if err != nil || overridden || got != core.Cents(-10000) {
		t.Fatalf("installment share = %v overridden=%v err=%v, want -100.00", got, overridden, err)
	}

	tpl.Overrides = map[core.YearMonth]core.Money{mar: core.Cents(-5000)}
	got, overridden, err = ResolveAmount(tpl, mar)
	if err != nil || !overridden || got != core.Cents(-5000) {
		t.Fatalf("override = %v overridden=%v err=%v, want -50.00", got, overridden, err)
	}

	delete(tpl.Overrides, mar)
	got, _, _ = ResolveAmount(tpl, mar)
	if got != core.Cents(-10000) {
		t.Fatalf("after removing override got %v, want -100.00", got)
	}

	once := template("gift", -5000, core.NewDate(2026, 3, 1), core.Once{})
	if got, _, _ := ResolveAmount(once, mar); got != core.Cents(-5000) {
		t.Fatalf("full amount = %v, want -50.00", got)
	}

	broken := template("bad", -5000, core.NewDate(2026, 3, 1), core.Installment{Current: 1, Total: 0})
	if _, _, err := ResolveAmount(broken, mar); err == nil {
		t.Fatal("expected error for zero installment total")
	}
}
