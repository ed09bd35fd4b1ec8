package core

// MonthlySummary is one projected month. ClosingBalance is always
// OpeningBalance + Income + Expense; Expense sums negative amounts.
type MonthlySummary struct {
	Month          YearMonth `json:"month"`
	Label          string    `json:"label"`
	Income         Money     `json:"income"`
	Expense        Money     `json:"expense"`
	OpeningBalance Money     `json:"openingBalance"`
	ClosingBalance Money     `json:"closingBalance"`
}

// Net is income plus (negative) expense.
func (s MonthlySummary) Net() Money {
	return s.Income.Add(s.Expense)
}

// Occurrence is one month's concrete instance of a template.
type Occurrence struct {
	TemplateID    string    `json:"templateId"`
	Description   string    `json:"description"`
	Category      string    `json:"category,omitempty"`
	Subcategory   string    `json:"subcategory,omitempty"`
	PaymentMethod string    `json:"paymentMethod,omitempty"`
	Kind          Kind      `json:"type"`
	Month         YearMonth `json:"month"`
	// Amount is signed; statements display its absolute value.
	Amount Money `json:"amount"`
	// Installment is the 1-based installment index, 0 when not installment-based.
	Installment      int  `json:"installment,omitempty"`
	InstallmentTotal int  `json:"installmentTotal,omitempty"`
	Overridden       bool `json:"overridden,omitempty"`
	Reconciled       bool `json:"reconciled,omitempty"`
}

// StatementGroup collects the occurrences billed to one payment method in one month.
type StatementGroup struct {
	PaymentMethod string       `json:"paymentMethod"`
	Month         YearMonth    `json:"month"`
	DueDate       Date         `json:"dueDate"`
	Total         Money        `json:"total"`
	Occurrences   []Occurrence `json:"occurrences"`
}
