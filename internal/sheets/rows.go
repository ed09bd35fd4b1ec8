package sheets

import (
	"saldo/internal/core"
)

var (
	ProjectionHeader = []any{"Month", "Label", "Opening", "Income", "Expense", "Closing"}
	StatementHeader  = []any{"Payment method", "Month", "Due", "Total", "Items"}
)

// ProjectionRows renders summaries as sheet rows, header first. Amounts are
// decimal currency units so the sheet can format them.
func ProjectionRows(summaries []core.MonthlySummary) [][]any {
	rows := make([][]any, 0, len(summaries)+1)
	rows = append(rows, ProjectionHeader)
	for _, s := range summaries {
		rows = append(rows, []any{
			s.Month.String(),
			s.Label,
			s.OpeningBalance.Units(),
			s.Income.Units(),
			s.Expense.Units(),
			s.ClosingBalance.Units(),
		})
	}
	return rows
}

func StatementRows(groups []core.StatementGroup) [][]any {
	rows := make([][]any, 0, len(groups)+1)
	rows = append(rows, StatementHeader)
	for _, g := range groups {
		rows = append(rows, []any{
			g.PaymentMethod,
			g.Month.String(),
			g.DueDate.String(),
			g.Total.Units(),
			len(g.Occurrences),
		})
	}
	return rows
}
