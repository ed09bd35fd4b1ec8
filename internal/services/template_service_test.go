package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"saldo/internal/amqp"
	"saldo/internal/core"
	"saldo/internal/projection"
	"saldo/internal/storage"
	"saldo/internal/storage/memory"
)

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*amqp.TemplateChangeMessage
	err  error
}

func (p *fakePublisher) PublishTemplateChange(_ context.Context, msg *amqp.TemplateChangeMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func (p *fakePublisher) actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.msgs))
	for i, m := range p.msgs {
		out[i] = m.Action
	}
	return out
}

func newTestService(t *testing.T) (*TemplateService, *memory.Store, *fakePublisher) {
	t.Helper()
	store := memory.New()
	pub := &fakePublisher{}
	svc := NewTemplateService(store, pub)
	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return svc, store, pub
}

func ym(year int, month time.Month) core.YearMonth {
	return core.NewYearMonth(year, month)
}

func rent() core.Template {
	return core.Template{
		Description: "Rent",
		Amount:      core.Cents(-150000),
		AnchorDate:  core.NewDate(2026, 1, 5),
		Pattern:     core.Recurring{},
		Category:    "Housing",
	}
}

func TestTemplateService_CreateDerivesBillingMonth(t *testing.T) {
	svc, store, pub := newTestService(t)
	ctx := context.Background()
	if err := store.UpsertPaymentMethod(ctx, core.PaymentMethod{Name: "NUB", Billable: true, DueDay: 10, BestPurchaseDay: 5}); err != nil {
		t.Fatal(err)
	}

	created, err := svc.Create(ctx, core.Template{
		Description:   "TV",
		Amount:        core.Cents(-120000),
		AnchorDate:    core.NewDate(2026, 1, 22),
		PaymentMethod: "NUB",
		Pattern:       core.Installment{Current: 1, Total: 12},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID != "id-1" {
		t.Errorf("ID = %q, want id-1", created.ID)
	}
	if created.BillingMonth != ym(2026, time.March) {
		t.Errorf("BillingMonth = %s, want 2026-03", created.BillingMonth)
	}
	got, err := store.GetTemplate(ctx, created.ID)
	if err != nil || got.BillingMonth != created.BillingMonth {
		t.Fatalf("stored template = %+v, err = %v", got, err)
	}
	if a := pub.actions(); len(a) != 1 || a[0] != amqp.ActionTemplateUpserted {
		t.Errorf("published actions = %v", a)
	}
}

func TestTemplateService_CreateKeepsExplicitBillingMonthAndDefaults(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tpl := core.Template{
		Description:   "Groceries",
		Amount:        core.Cents(-8000),
		AnchorDate:    core.NewDate(2026, 1, 22),
		PaymentMethod: "PIX",
	}
	created, err := svc.Create(ctx, tpl)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, ok := created.Pattern.(core.Once); !ok {
		t.Errorf("Pattern = %T, want core.Once", created.Pattern)
	}
	if !created.BillingMonth.IsZero() {
		t.Errorf("non-billable method should not get a billing month, got %s", created.BillingMonth)
	}

	tpl.PaymentMethod = "UNKNOWN"
	tpl.BillingMonth = ym(2026, time.June)
	created, err = svc.Create(ctx, tpl)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.BillingMonth != ym(2026, time.June) {
		t.Errorf("BillingMonth = %s, want explicit 2026-06", created.BillingMonth)
	}
}

func TestTemplateService_CreateLogsBillingMonthOnlyWhenSet(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, rent()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if strings.Contains(buf.String(), "billing_month") {
		t.Errorf("log carries a billing month for a template without one: %s", buf.String())
	}

	buf.Reset()
	tpl := rent()
	tpl.BillingMonth = ym(2026, time.March)
	if _, err := svc.Create(ctx, tpl); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !strings.Contains(buf.String(), "billing_month=2026-03") {
		t.Errorf("log missing billing month: %s", buf.String())
	}
}

func TestTemplateService_CreateRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		tpl  core.Template
		want error
	}{
		{"zero amount", core.Template{Description: "x", AnchorDate: core.NewDate(2026, 1, 1)}, core.ErrZeroAmount},
		{"no description", core.Template{Amount: core.Cents(1), AnchorDate: core.NewDate(2026, 1, 1)}, core.ErrEmptyDescription},
		{"bad plan", core.Template{Description: "x", Amount: core.Cents(-1), AnchorDate: core.NewDate(2026, 1, 1), Pattern: core.Installment{Current: 4, Total: 3}}, core.ErrInvalidInstallmentIndex},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, pub := newTestService(t)
			_, err := svc.Create(context.Background(), tt.tpl)
			if !errors.Is(err, ErrInvalidInput) || !errors.Is(err, tt.want) {
				t.Fatalf("Create() error = %v, want %v wrapped in ErrInvalidInput", err, tt.want)
			}
			if list, _ := store.ListTemplates(context.Background()); len(list) != 0 {
				t.Errorf("invalid template was stored")
			}
			if len(pub.actions()) != 0 {
				t.Errorf("invalid template was published")
			}
		})
	}
}

func TestTemplateService_UpdateKeepsOverridesWhenOmitted(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, rent())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SetOverride(ctx, created.ID, ym(2026, time.March), core.Cents(140000)); err != nil {
		t.Fatal(err)
	}

	edit := rent()
	edit.ID = created.ID
	edit.Description = "Rent (new flat)"
	updated, err := svc.Update(ctx, edit)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Description != "Rent (new flat)" {
		t.Errorf("Description = %q", updated.Description)
	}
	if got := updated.Overrides[ym(2026, time.March)]; got != core.Cents(-140000) {
		t.Errorf("override = %v, want -1400.00", got)
	}

	edit.ID = "missing"
	if _, err := svc.Update(ctx, edit); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
	}
}

func TestTemplateService_SetOverride(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, rent())
	if err != nil {
		t.Fatal(err)
	}

	t.Run("sign follows kind", func(t *testing.T) {
		got, err := svc.SetOverride(ctx, created.ID, ym(2026, time.February), core.Cents(20000))
		if err != nil {
			t.Fatalf("SetOverride() error = %v", err)
		}
		if got.Overrides[ym(2026, time.February)] != core.Cents(-20000) {
			t.Errorf("override = %v, want -200.00", got.Overrides[ym(2026, time.February)])
		}
	})

	t.Run("zero is a valid override", func(t *testing.T) {
		got, err := svc.SetOverride(ctx, created.ID, ym(2026, time.April), core.Money{})
		if err != nil {
			t.Fatalf("SetOverride() error = %v", err)
		}
		amount, overridden, _ := projection.ResolveAmount(got, ym(2026, time.April))
		if !overridden || !amount.IsZero() {
			t.Errorf("ResolveAmount = %v overridden=%v, want 0 overridden", amount, overridden)
		}
	})

	t.Run("month without occurrence", func(t *testing.T) {
		_, err := svc.SetOverride(ctx, created.ID, ym(2025, time.December), core.Cents(1))
		if !errors.Is(err, ErrNoOccurrence) || !errors.Is(err, ErrInvalidInput) {
			t.Errorf("error = %v, want ErrNoOccurrence", err)
		}
	})

	t.Run("clear restores computed amount", func(t *testing.T) {
		got, err := svc.ClearOverride(ctx, created.ID, ym(2026, time.February))
		if err != nil {
			t.Fatalf("ClearOverride() error = %v", err)
		}
		amount, overridden, _ := projection.ResolveAmount(got, ym(2026, time.February))
		if overridden || amount != core.Cents(-150000) {
			t.Errorf("ResolveAmount = %v overridden=%v, want -1500.00", amount, overridden)
		}
	})
}

func TestTemplateService_Styles(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, rent())
	if err != nil {
		t.Fatal(err)
	}

	got, err := svc.SetStyle(ctx, created.ID, core.YearMonth{}, core.Style{Color: "#ff0000"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Color != "#ff0000" || len(got.Styles) != 0 {
		t.Errorf("base style not applied: %+v", got)
	}

	got, err = svc.SetStyle(ctx, created.ID, ym(2026, time.May), core.Style{FontColor: "#fff"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Styles[ym(2026, time.May)].FontColor != "#fff" {
		t.Errorf("month style not applied: %+v", got.Styles)
	}

	got, err = svc.ClearStyle(ctx, created.ID, ym(2026, time.May))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got.Styles[ym(2026, time.May)]; ok {
		t.Errorf("month style not cleared")
	}
}

func TestTemplateService_ToggleReconciled(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, rent())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []bool{true, false} {
		got, err := svc.ToggleReconciled(ctx, created.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Reconciled != want {
			t.Errorf("Reconciled = %v, want %v", got.Reconciled, want)
		}
	}
}

func TestTemplateService_SplitSeries(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	tpl := rent()
	tpl.Overrides = map[core.YearMonth]core.Money{
		ym(2026, time.February): core.Cents(-140000),
		ym(2026, time.May):      core.Cents(-160000),
	}
	tpl.Styles = map[core.YearMonth]core.Style{ym(2026, time.June): {Color: "#00f"}}
	created, err := svc.Create(ctx, tpl)
	if err != nil {
		t.Fatal(err)
	}

	original, successor, err := svc.SplitSeries(ctx, created.ID, ym(2026, time.April), core.Cents(170000))
	if err != nil {
		t.Fatalf("SplitSeries() error = %v", err)
	}

	if original.EndDate != core.NewDate(2026, 3, 31) {
		t.Errorf("original EndDate = %s, want 2026-03-31", original.EndDate)
	}
	if _, ok := original.Overrides[ym(2026, time.February)]; !ok {
		t.Errorf("original lost its earlier override")
	}
	if _, ok := original.Overrides[ym(2026, time.May)]; ok {
		t.Errorf("original kept an override after the split")
	}
	if successor.AnchorDate != core.NewDate(2026, 4, 1) {
		t.Errorf("successor AnchorDate = %s, want 2026-04-01", successor.AnchorDate)
	}
	if successor.Amount != core.Cents(-170000) {
		t.Errorf("successor Amount = %v, want -1700.00", successor.Amount)
	}
	if successor.Overrides[ym(2026, time.May)] != core.Cents(-160000) {
		t.Errorf("successor overrides = %v", successor.Overrides)
	}
	if successor.Styles[ym(2026, time.June)].Color != "#00f" {
		t.Errorf("successor styles = %v", successor.Styles)
	}

	templates, err := store.ListTemplates(ctx)
	if err != nil || len(templates) != 2 {
		t.Fatalf("ListTemplates() = %d templates, err = %v", len(templates), err)
	}
	for m := ym(2026, time.January); m.Before(ym(2027, time.January)); m = m.AddMonths(1) {
		occs, diags := projection.Occurrences(templates, m)
		if len(diags) != 0 {
			t.Fatalf("diagnostics: %v", diags.Err())
		}
		if len(occs) != 1 {
			t.Fatalf("%s: %d occurrences, want exactly one", m, len(occs))
		}
		want := original.ID
		if !m.Before(ym(2026, time.April)) {
			want = successor.ID
		}
		if occs[0].TemplateID != want {
			t.Errorf("%s: occurrence from %s, want %s", m, occs[0].TemplateID, want)
		}
	}
}

func TestTemplateService_SplitSeriesRejects(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	series, err := svc.Create(ctx, rent())
	if err != nil {
		t.Fatal(err)
	}
	oneOff := rent()
	oneOff.Pattern = core.Once{}
	single, err := svc.Create(ctx, oneOff)
	if err != nil {
		t.Fatal(err)
	}
	ended := rent()
	ended.EndDate = core.NewDate(2026, 3, 31)
	short, err := svc.Create(ctx, ended)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		id   string
		from core.YearMonth
		want error
	}{
		{"not recurring", single.ID, ym(2026, time.March), ErrNotRecurring},
		{"at first month", series.ID, ym(2026, time.January), ErrSplitOutsideSeries},
		{"before first month", series.ID, ym(2025, time.June), ErrSplitOutsideSeries},
		{"after end", short.ID, ym(2026, time.May), ErrSplitOutsideSeries},
		{"missing month", series.ID, core.YearMonth{}, ErrMissingMonth},
		{"unknown template", "nope", ym(2026, time.May), storage.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := svc.SplitSeries(ctx, tt.id, tt.from, core.Money{}); !errors.Is(err, tt.want) {
				t.Errorf("SplitSeries() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTemplateService_PaymentMethods(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()

	if _, err := svc.SavePaymentMethod(ctx, core.PaymentMethod{Name: "NUB", Billable: true, DueDay: 40}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("SavePaymentMethod(bad due day) error = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.SavePaymentMethod(ctx, core.PaymentMethod{Name: "NUB", Billable: true, DueDay: 10, BestPurchaseDay: 3}); err != nil {
		t.Fatalf("SavePaymentMethod() error = %v", err)
	}
	methods, err := svc.ListPaymentMethods(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(methods) != 3 {
		t.Errorf("ListPaymentMethods() = %d methods, want defaults plus NUB", len(methods))
	}
	if err := svc.DeletePaymentMethod(ctx, "NUB"); err != nil {
		t.Fatalf("DeletePaymentMethod() error = %v", err)
	}
	if err := svc.DeletePaymentMethod(ctx, "NUB"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
	a := pub.actions()
	if len(a) != 2 || a[0] != amqp.ActionMethodUpserted || a[1] != amqp.ActionMethodDeleted {
		t.Errorf("published actions = %v", a)
	}
}

func TestTemplateService_PublishFailureDoesNotFailWrite(t *testing.T) {
	svc, store, pub := newTestService(t)
	pub.err = amqp.ErrCircuitOpen
	ctx := context.Background()

	created, err := svc.Create(ctx, rent())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := store.GetTemplate(ctx, created.ID); err != nil {
		t.Errorf("template not stored: %v", err)
	}
	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(pub.actions()) != 2 {
		t.Errorf("expected two publish attempts, got %v", pub.actions())
	}
}

func TestTemplateService_NilPublisher(t *testing.T) {
	svc := NewTemplateService(memory.New(), nil)
	if _, err := svc.Create(context.Background(), rent()); err != nil {
		t.Fatalf("Create() without publisher error = %v", err)
	}
}

func TestTemplateService_ImportExport(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()

	tpl := rent()
	tpl.ID = "rent-1"
	snap := storage.Snapshot{
		Templates:      []core.Template{tpl},
		PaymentMethods: []core.PaymentMethod{{Name: "VISA", Billable: true, DueDay: 10, BestPurchaseDay: 3}},
	}
	if err := svc.Import(ctx, snap); err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	out, err := svc.Export(ctx)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(out.Templates) != 1 || out.Templates[0].ID != "rent-1" {
		t.Errorf("Export() templates = %+v", out.Templates)
	}
	if len(out.PaymentMethods) != 3 {
		t.Errorf("Export() payment methods = %d, want 3", len(out.PaymentMethods))
	}
	if got := pub.actions(); len(got) != 1 || got[0] != amqp.ActionSnapshotImported {
		t.Errorf("published = %v, want one snapshot.imported", got)
	}
}

func TestTemplateService_ImportRejectsWithoutWriting(t *testing.T) {
	tests := []struct {
		name string
		snap storage.Snapshot
	}{
		{"missing id", storage.Snapshot{Templates: []core.Template{rent()}}},
		{"invalid template", storage.Snapshot{Templates: []core.Template{{ID: "x", Description: "Zero", AnchorDate: core.NewDate(2026, 1, 1)}}}},
		{"invalid method", storage.Snapshot{PaymentMethods: []core.PaymentMethod{{Name: ""}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newTestService(t)
			ctx := context.Background()
			ok := rent()
			ok.ID = "ok"
			tt.snap.Templates = append([]core.Template{ok}, tt.snap.Templates...)

			err := svc.Import(ctx, tt.snap)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("Import() error = %v, want ErrInvalidInput", err)
			}
			if _, err := store.GetTemplate(ctx, "ok"); !errors.Is(err, storage.ErrNotFound) {
				t.Errorf("valid template written despite rejection: %v", err)
			}
		})
	}
}
