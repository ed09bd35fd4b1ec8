package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"saldo/internal/cache"
	"saldo/internal/core"
	"saldo/internal/projection"
	"saldo/internal/storage"
)

// ProjectionRequest selects a projection window. A zero Start means the
// current month; Months <= 0 means the service default.
type ProjectionRequest struct {
	Start   core.YearMonth
	Months  int
	Opening core.Money
}

// ProjectionService runs the engine over a store snapshot.
type ProjectionService struct {
	store         storage.Store
	results       *cache.Loader[projection.Projection]
	defaultMonths int
	workers       int
	now           func() time.Time
}

// NewProjectionService builds the service. results may be nil to disable caching.
func NewProjectionService(store storage.Store, results *cache.Loader[projection.Projection], defaultMonths int) *ProjectionService {
	if defaultMonths <= 0 {
		defaultMonths = 120
	}
	return &ProjectionService{
		store:         store,
		results:       results,
		defaultMonths: defaultMonths,
		now:           time.Now,
	}
}

// WithWorkers caps the goroutines one projection uses; 0 means GOMAXPROCS.
func (s *ProjectionService) WithWorkers(n int) *ProjectionService {
	s.workers = n
	return s
}

// CurrentMonth is the rolling start month. Callers capture it once per request.
func (s *ProjectionService) CurrentMonth() core.YearMonth {
	return core.YearMonthOf(s.now())
}

// Revision is the store revision the next projection would be computed at.
func (s *ProjectionService) Revision(ctx context.Context) (int64, error) {
	return s.store.Revision(ctx)
}

// Project returns the monthly summaries for req. Results are cached per
// store revision, so any write invalidates them.
func (s *ProjectionService) Project(ctx context.Context, req ProjectionRequest) (projection.Projection, error) {
	if req.Start.IsZero() {
		req.Start = s.CurrentMonth()
	}
	if req.Months <= 0 {
		req.Months = s.defaultMonths
	}
	params := projection.Params{Start: req.Start, Months: req.Months, Opening: req.Opening, Workers: s.workers}
	if err := params.Validate(); err != nil {
		return projection.Projection{}, invalid(err)
	}

	rev, err := s.store.Revision(ctx)
	if err != nil {
		return projection.Projection{}, fmt.Errorf("read revision: %w", err)
	}
	load := func(ctx context.Context) (projection.Projection, error) {
		templates, err := s.store.ListTemplates(ctx)
		if err != nil {
			return projection.Projection{}, fmt.Errorf("list templates: %w", err)
		}
		start := time.Now()
		p, err := projection.Project(templates, params)
		if err != nil {
			return projection.Projection{}, err
		}
		slog.DebugContext(ctx, "Projection computed",
			"start_month", req.Start.String(),
			"months", req.Months,
			"templates", len(templates),
			"revision", rev,
			"duration", time.Since(start))
		return p, nil
	}

	var p projection.Projection
	if s.results == nil {
		p, err = load(ctx)
	} else {
		key := fmt.Sprintf("%d|%s|%d|%d", rev, req.Start, req.Months, req.Opening.Cents)
		p, _, err = s.results.Get(ctx, key, load)
	}
	if err != nil {
		return projection.Projection{}, err
	}
	s.report(ctx, p.Diagnostics)
	return p, nil
}

// Occurrences lists what every template produces in month.
func (s *ProjectionService) Occurrences(ctx context.Context, month core.YearMonth) ([]core.Occurrence, error) {
	templates, err := s.store.ListTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	occs, diags := projection.Occurrences(templates, month)
	s.report(ctx, diags)
	return occs, nil
}

// Statements groups month's billable expenses per payment method.
func (s *ProjectionService) Statements(ctx context.Context, month core.YearMonth) ([]core.StatementGroup, error) {
	templates, methods, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	groups, diags := projection.GroupByPaymentMethod(templates, month, methods)
	s.report(ctx, diags)
	return groups, nil
}

// Reconciliation returns the checklist view of one method's statement.
func (s *ProjectionService) Reconciliation(ctx context.Context, month core.YearMonth, method string) (projection.Reconciliation, error) {
	if _, err := s.store.GetPaymentMethod(ctx, method); err != nil {
		return projection.Reconciliation{}, err
	}
	templates, methods, err := s.snapshot(ctx)
	if err != nil {
		return projection.Reconciliation{}, err
	}
	rec, diags := projection.Reconcile(templates, month, method, methods)
	s.report(ctx, diags)
	return rec, nil
}

func (s *ProjectionService) snapshot(ctx context.Context) ([]core.Template, []core.PaymentMethod, error) {
	templates, err := s.store.ListTemplates(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list templates: %w", err)
	}
	methods, err := s.store.ListPaymentMethods(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list payment methods: %w", err)
	}
	return templates, methods, nil
}

func (s *ProjectionService) report(ctx context.Context, diags projection.Diagnostics) {
	for _, d := range diags {
		slog.WarnContext(ctx, "Template excluded from projection",
			"template_id", d.TemplateID,
			"description", d.Description,
			"error", d.Err)
	}
}
