package projection

import (
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"saldo/internal/core"
)

// MaxMonths bounds a single projection (one hundred years).
const MaxMonths = 1200

var (
	ErrNegativeMonths = errors.New("month count cannot be negative")
	ErrTooManyMonths  = fmt.Errorf("month count cannot exceed %d", MaxMonths)
	ErrMissingStart   = errors.New("start month is required")
)

// Params are the caller-supplied inputs of a projection.
type Params struct {
	Start   core.YearMonth
	Months  int
	Opening core.Money
	// Workers caps the goroutines summing months; 0 means GOMAXPROCS.
	Workers int
}

func (p Params) Validate() error {
	switch {
	case p.Months < 0:
		return ErrNegativeMonths
	case p.Months > MaxMonths:
		return ErrTooManyMonths
	case p.Start.IsZero() && p.Months > 0:
		return ErrMissingStart
	}
	return nil
}

// Projection is a dense, chronological run of monthly summaries plus the
// templates that could not be projected.
type Projection struct {
	Summaries   []core.MonthlySummary `json:"months"`
	Diagnostics Diagnostics           `json:"-"`
}

type monthTotals struct {
	income, expense core.Money
}

// Project expands templates over p.Months months from p.Start and carries the
// balance forward from p.Opening. Month sums are computed concurrently; the
// carry runs strictly in month order. Invalid templates are skipped and
// reported in Diagnostics rather than failing the projection.
func Project(templates []core.Template, p Params) (Projection, error) {
	if err := p.Validate(); err != nil {
		return Projection{}, err
	}
	valid, diags := screen(templates)
	out := Projection{
		Summaries:   make([]core.MonthlySummary, p.Months),
		Diagnostics: diags,
	}
	if p.Months == 0 {
		return out, nil
	}

	totals := make([]monthTotals, p.Months)
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for i := range totals {
		month := p.Start.AddMonths(i)
		g.Go(func() error {
			totals[i] = sumMonth(valid, month)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Projection{}, err
	}

	balance := p.Opening
	for i, t := range totals {
		month := p.Start.AddMonths(i)
		closing := balance.Add(t.income).Add(t.expense)
		out.Summaries[i] = core.MonthlySummary{
			Month:          month,
			Label:          month.Label(),
			Income:         t.income,
			Expense:        t.expense,
			OpeningBalance: balance,
			ClosingBalance: closing,
		}
		balance = closing
	}
	return out, nil
}

func sumMonth(valid []core.Template, month core.YearMonth) monthTotals {
	var mt monthTotals
	for _, t := range valid {
		occ, ok := occurrenceIn(t, month)
		if !ok {
			continue
		}
		if occ.Kind == core.Expense {
			mt.expense = mt.expense.Add(occ.Amount)
		} else {
			mt.income = mt.income.Add(occ.Amount)
		}
	}
	return mt
}
