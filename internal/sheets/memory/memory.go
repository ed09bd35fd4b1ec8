// Package memory keeps the last export in process. It backs tests and runs
// where no spreadsheet is configured.
package memory

import (
	"context"
	"sync"

	"saldo/internal/core"
	ports "saldo/internal/sheets"
)

var _ ports.Exporter = (*Exporter)(nil)

type Exporter struct {
	mu         sync.Mutex
	projection [][]any
	statements [][]any
	writes     int
}

func New() *Exporter {
	return &Exporter{}
}

func (e *Exporter) WriteProjection(_ context.Context, summaries []core.MonthlySummary) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.projection = ports.ProjectionRows(summaries)
	e.writes++
	return nil
}

func (e *Exporter) WriteStatements(_ context.Context, groups []core.StatementGroup) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.statements = ports.StatementRows(groups)
	e.writes++
	return nil
}

// Projection returns the rows of the last projection export, header included.
func (e *Exporter) Projection() [][]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][]any(nil), e.projection...)
}

func (e *Exporter) Statements() [][]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][]any(nil), e.statements...)
}

// Writes counts every write call.
func (e *Exporter) Writes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.writes
}
