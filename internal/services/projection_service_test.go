package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"saldo/internal/cache"
	"saldo/internal/core"
	"saldo/internal/projection"
	"saldo/internal/storage"
	"saldo/internal/storage/memory"
)

type countingStore struct {
	storage.Store
	lists atomic.Int32
}

func (s *countingStore) ListTemplates(ctx context.Context) ([]core.Template, error) {
	s.lists.Add(1)
	return s.Store.ListTemplates(ctx)
}

func newProjectionService(t *testing.T) (*ProjectionService, *countingStore) {
	t.Helper()
	store := &countingStore{Store: memory.New()}
	loader := cache.NewLoader[projection.Projection](cache.NewLRUCache[projection.Projection](16, time.Minute))
	svc := NewProjectionService(store, loader, 12)
	svc.now = func() time.Time { return time.Date(2026, time.January, 15, 10, 0, 0, 0, time.UTC) }
	return svc, store
}

func TestProjectionService_DefaultsAndCache(t *testing.T) {
	svc, store := newProjectionService(t)
	ctx := context.Background()
	salary := core.Template{ID: "s", Description: "Salary", Amount: core.Cents(500000), AnchorDate: core.NewDate(2026, 1, 5), Pattern: core.Recurring{}}
	if err := store.UpsertTemplate(ctx, salary); err != nil {
		t.Fatal(err)
	}

	p, err := svc.Project(ctx, ProjectionRequest{Opening: core.Cents(1000)})
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if len(p.Summaries) != 12 {
		t.Fatalf("len(Summaries) = %d, want default 12", len(p.Summaries))
	}
	if p.Summaries[0].Month != ym(2026, time.January) {
		t.Errorf("first month = %s, want current month 2026-01", p.Summaries[0].Month)
	}
	if p.Summaries[11].ClosingBalance != core.Cents(1000+12*500000) {
		t.Errorf("final closing = %v", p.Summaries[11].ClosingBalance)
	}

	if _, err := svc.Project(ctx, ProjectionRequest{Opening: core.Cents(1000)}); err != nil {
		t.Fatal(err)
	}
	if n := store.lists.Load(); n != 1 {
		t.Errorf("ListTemplates called %d times, want 1 (second call cached)", n)
	}

	rent := core.Template{ID: "r", Description: "Rent", Amount: core.Cents(-150000), AnchorDate: core.NewDate(2026, 1, 5), Pattern: core.Recurring{}}
	if err := store.UpsertTemplate(ctx, rent); err != nil {
		t.Fatal(err)
	}
	p, err = svc.Project(ctx, ProjectionRequest{Opening: core.Cents(1000)})
	if err != nil {
		t.Fatal(err)
	}
	if n := store.lists.Load(); n != 2 {
		t.Errorf("ListTemplates called %d times, want 2 after a write", n)
	}
	if p.Summaries[0].Expense != core.Cents(-150000) {
		t.Errorf("stale projection after write: %+v", p.Summaries[0])
	}
}

func TestProjectionService_InvalidRequest(t *testing.T) {
	svc, _ := newProjectionService(t)
	_, err := svc.Project(context.Background(), ProjectionRequest{Months: projection.MaxMonths + 1})
	if !errors.Is(err, ErrInvalidInput) || !errors.Is(err, projection.ErrTooManyMonths) {
		t.Errorf("Project() error = %v, want ErrTooManyMonths", err)
	}
}

func TestProjectionService_SkipsInvalidTemplates(t *testing.T) {
	svc, store := newProjectionService(t)
	ctx := context.Background()
	bad := core.Template{ID: "bad", Description: "No anchor", Amount: core.Cents(-100), Pattern: core.Recurring{}}
	good := core.Template{ID: "good", Description: "Gym", Amount: core.Cents(-9000), AnchorDate: core.NewDate(2026, 1, 2), Pattern: core.Recurring{}}
	for _, tpl := range []core.Template{bad, good} {
		if err := store.UpsertTemplate(ctx, tpl); err != nil {
			t.Fatal(err)
		}
	}

	p, err := svc.Project(ctx, ProjectionRequest{Months: 2})
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if len(p.Diagnostics) != 1 || p.Diagnostics[0].TemplateID != "bad" {
		t.Errorf("Diagnostics = %v", p.Diagnostics)
	}
	if p.Summaries[1].ClosingBalance != core.Cents(-18000) {
		t.Errorf("closing = %v, want -180.00", p.Summaries[1].ClosingBalance)
	}
}

func TestProjectionService_StatementsAndReconciliation(t *testing.T) {
	svc, store := newProjectionService(t)
	ctx := context.Background()
	if err := store.UpsertPaymentMethod(ctx, core.PaymentMethod{Name: "NUB", Billable: true, DueDay: 10, BestPurchaseDay: 5}); err != nil {
		t.Fatal(err)
	}
	tv := core.Template{
		ID: "tv", Description: "TV", Amount: core.Cents(-120000),
		AnchorDate: core.NewDate(2026, 1, 22), BillingMonth: ym(2026, time.March),
		PaymentMethod: "NUB", Pattern: core.Installment{Current: 1, Total: 12},
	}
	if err := store.UpsertTemplate(ctx, tv); err != nil {
		t.Fatal(err)
	}

	groups, err := svc.Statements(ctx, ym(2026, time.March))
	if err != nil {
		t.Fatalf("Statements() error = %v", err)
	}
	if len(groups) != 1 || groups[0].Total != core.Cents(10000) {
		t.Fatalf("Statements() = %+v", groups)
	}
	if groups[0].DueDate != core.NewDate(2026, 3, 10) {
		t.Errorf("DueDate = %s, want 2026-03-10", groups[0].DueDate)
	}

	rec, err := svc.Reconciliation(ctx, ym(2026, time.March), "NUB")
	if err != nil {
		t.Fatalf("Reconciliation() error = %v", err)
	}
	if len(rec.Items) != 1 || rec.Progress != 0 {
		t.Errorf("Reconciliation() = %+v", rec)
	}
	if _, err := svc.Reconciliation(ctx, ym(2026, time.March), "AMEX"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("unknown method error = %v, want ErrNotFound", err)
	}

	occs, err := svc.Occurrences(ctx, ym(2026, time.April))
	if err != nil {
		t.Fatal(err)
	}
	if len(occs) != 1 || occs[0].Installment != 2 {
		t.Errorf("Occurrences() = %+v", occs)
	}
}
