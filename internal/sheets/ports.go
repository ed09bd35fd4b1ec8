package sheets

import (
	"context"

	"saldo/internal/core"
)

// Ports for outbound adapters.
type (
	// ProjectionWriter replaces the exported month-by-month projection.
	ProjectionWriter interface {
		WriteProjection(ctx context.Context, summaries []core.MonthlySummary) error
	}

	// StatementWriter replaces the exported card statements.
	StatementWriter interface {
		WriteStatements(ctx context.Context, groups []core.StatementGroup) error
	}

	Exporter interface {
		ProjectionWriter
		StatementWriter
	}
)
