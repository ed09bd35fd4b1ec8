package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"saldo/internal/amqp"
	"saldo/internal/core"
	"saldo/internal/projection"
	"saldo/internal/storage"
)

// Publisher announces store changes to other processes.
type Publisher interface {
	PublishTemplateChange(ctx context.Context, msg *amqp.TemplateChangeMessage) error
}

// TemplateService owns every write to templates and payment methods.
type TemplateService struct {
	store     storage.Store
	publisher Publisher
	newID     func() string
}

// NewTemplateService builds the service. publisher may be nil, in which case
// changes are only stored.
func NewTemplateService(store storage.Store, publisher Publisher) *TemplateService {
	return &TemplateService{
		store:     store,
		publisher: publisher,
		newID:     uuid.NewString,
	}
}

func (s *TemplateService) List(ctx context.Context) ([]core.Template, error) {
	return s.store.ListTemplates(ctx)
}

func (s *TemplateService) Get(ctx context.Context, id string) (core.Template, error) {
	return s.store.GetTemplate(ctx, id)
}

// Create assigns a fresh ID and stores t. A purchase on a billable method
// without an explicit billing month gets the one its cutoff rule yields.
func (s *TemplateService) Create(ctx context.Context, t core.Template) (core.Template, error) {
	t.ID = s.newID()
	if t.Pattern == nil {
		t.Pattern = core.Once{}
	}
	if t.BillingMonth.IsZero() && t.PaymentMethod != "" && !t.AnchorDate.IsZero() {
		pm, err := s.store.GetPaymentMethod(ctx, t.PaymentMethod)
		switch {
		case err == nil && pm.Billable:
			t.BillingMonth = projection.SettlementMonth(t.AnchorDate, &pm)
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			return core.Template{}, fmt.Errorf("lookup payment method: %w", err)
		}
	}
	if err := t.Validate(); err != nil {
		return core.Template{}, invalid(err)
	}
	if err := s.store.UpsertTemplate(ctx, t); err != nil {
		return core.Template{}, fmt.Errorf("save template: %w", err)
	}

	attrs := []any{
		"template_id", t.ID,
		"description", t.Description,
		"amount_cents", t.Amount.Cents,
	}
	if !t.BillingMonth.IsZero() {
		attrs = append(attrs, "billing_month", t.BillingMonth.String())
	}
	slog.InfoContext(ctx, "Template created", attrs...)
	s.publish(ctx, t.ID, amqp.ActionTemplateUpserted)
	return t, nil
}

// Update replaces a stored template. Nil override and style maps keep the
// stored ones, so an edit form that does not carry them cannot wipe them.
func (s *TemplateService) Update(ctx context.Context, t core.Template) (core.Template, error) {
	current, err := s.store.GetTemplate(ctx, t.ID)
	if err != nil {
		return core.Template{}, err
	}
	if t.Pattern == nil {
		t.Pattern = core.Once{}
	}
	if t.Overrides == nil {
		t.Overrides = current.Overrides
	}
	if t.Styles == nil {
		t.Styles = current.Styles
	}
	return s.save(ctx, t)
}

func (s *TemplateService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteTemplate(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Template deleted", "template_id", id)
	s.publish(ctx, id, amqp.ActionTemplateDeleted)
	return nil
}

// SetOverride replaces the amount of one occurrence. The sign follows the
// template's kind whatever sign the caller used.
func (s *TemplateService) SetOverride(ctx context.Context, id string, month core.YearMonth, amount core.Money) (core.Template, error) {
	if month.IsZero() {
		return core.Template{}, invalid(ErrMissingMonth)
	}
	t, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return core.Template{}, err
	}
	if !projection.Matches(t, month).Matched {
		return core.Template{}, invalid(fmt.Errorf("%w: %s", ErrNoOccurrence, month))
	}
	if t.Overrides == nil {
		t.Overrides = map[core.YearMonth]core.Money{}
	}
	t.Overrides[month] = amount.WithSignOf(t.Kind())
	return s.save(ctx, t)
}

// ClearOverride restores the computed amount for month.
func (s *TemplateService) ClearOverride(ctx context.Context, id string, month core.YearMonth) (core.Template, error) {
	t, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return core.Template{}, err
	}
	if _, ok := t.Overrides[month]; !ok {
		return t, nil
	}
	delete(t.Overrides, month)
	return s.save(ctx, t)
}

// SetStyle sets presentation hints for one month, or for the whole template
// when month is zero.
func (s *TemplateService) SetStyle(ctx context.Context, id string, month core.YearMonth, st core.Style) (core.Template, error) {
	t, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return core.Template{}, err
	}
	if month.IsZero() {
		t.Color, t.FontColor = st.Color, st.FontColor
	} else {
		if t.Styles == nil {
			t.Styles = map[core.YearMonth]core.Style{}
		}
		t.Styles[month] = st
	}
	return s.save(ctx, t)
}

func (s *TemplateService) ClearStyle(ctx context.Context, id string, month core.YearMonth) (core.Template, error) {
	t, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return core.Template{}, err
	}
	if month.IsZero() {
		t.Color, t.FontColor = "", ""
	} else {
		delete(t.Styles, month)
	}
	return s.save(ctx, t)
}

// ToggleReconciled flips the reconciled flag.
func (s *TemplateService) ToggleReconciled(ctx context.Context, id string) (core.Template, error) {
	t, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return core.Template{}, err
	}
	t.Reconciled = !t.Reconciled
	return s.save(ctx, t)
}

// SplitSeries ends a recurring template the month before from and continues
// it with a new template starting on the first day of from. A zero amount
// keeps the current one. Overrides and styles from that month on move to the
// successor.
func (s *TemplateService) SplitSeries(ctx context.Context, id string, from core.YearMonth, amount core.Money) (original, successor core.Template, err error) {
	if from.IsZero() {
		return core.Template{}, core.Template{}, invalid(ErrMissingMonth)
	}
	t, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return core.Template{}, core.Template{}, err
	}
	if !t.IsRecurring() {
		return core.Template{}, core.Template{}, invalid(ErrNotRecurring)
	}
	if !from.After(t.BaseMonth()) || !projection.Matches(t, from).Matched {
		return core.Template{}, core.Template{}, invalid(fmt.Errorf("%w: %s", ErrSplitOutsideSeries, from))
	}

	next := t.Clone()
	next.ID = s.newID()
	next.AnchorDate = from.FirstDay()
	next.BillingMonth = core.YearMonth{}
	next.Reconciled = false
	next.Overrides, next.Styles = nil, nil
	if !amount.IsZero() {
		next.Amount = amount.WithSignOf(t.Kind())
	}

	original = t.Clone()
	original.EndDate = from.AddMonths(-1).LastDay()
	for month, v := range t.Overrides {
		if month.Before(from) {
			continue
		}
		if next.Overrides == nil {
			next.Overrides = map[core.YearMonth]core.Money{}
		}
		next.Overrides[month] = v.WithSignOf(next.Kind())
		delete(original.Overrides, month)
	}
	for month, st := range t.Styles {
		if month.Before(from) {
			continue
		}
		if next.Styles == nil {
			next.Styles = map[core.YearMonth]core.Style{}
		}
		next.Styles[month] = st
		delete(original.Styles, month)
	}

	if err := next.Validate(); err != nil {
		return core.Template{}, core.Template{}, invalid(err)
	}
	if err := original.Validate(); err != nil {
		return core.Template{}, core.Template{}, invalid(err)
	}
	// Successor first: if the second write fails the series is duplicated
	// for a while rather than silently cut short.
	if err := s.store.UpsertTemplate(ctx, next); err != nil {
		return core.Template{}, core.Template{}, fmt.Errorf("save successor: %w", err)
	}
	if err := s.store.UpsertTemplate(ctx, original); err != nil {
		return core.Template{}, core.Template{}, fmt.Errorf("terminate original: %w", err)
	}

	slog.InfoContext(ctx, "Recurring series split",
		"template_id", original.ID,
		"successor_id", next.ID,
		"from", from.String(),
		"amount_cents", next.Amount.Cents)
	s.publish(ctx, original.ID, amqp.ActionTemplateUpserted)
	s.publish(ctx, next.ID, amqp.ActionTemplateUpserted)
	return original, next, nil
}

func (s *TemplateService) save(ctx context.Context, t core.Template) (core.Template, error) {
	if err := t.Validate(); err != nil {
		return core.Template{}, invalid(err)
	}
	if err := s.store.UpsertTemplate(ctx, t); err != nil {
		return core.Template{}, fmt.Errorf("save template: %w", err)
	}
	slog.DebugContext(ctx, "Template saved", "template_id", t.ID)
	s.publish(ctx, t.ID, amqp.ActionTemplateUpserted)
	return t, nil
}

func (s *TemplateService) ListPaymentMethods(ctx context.Context) ([]core.PaymentMethod, error) {
	return s.store.ListPaymentMethods(ctx)
}

func (s *TemplateService) SavePaymentMethod(ctx context.Context, pm core.PaymentMethod) (core.PaymentMethod, error) {
	if err := pm.Validate(); err != nil {
		return core.PaymentMethod{}, invalid(err)
	}
	if err := s.store.UpsertPaymentMethod(ctx, pm); err != nil {
		return core.PaymentMethod{}, fmt.Errorf("save payment method: %w", err)
	}
	slog.InfoContext(ctx, "Payment method saved", "payment_method", pm.Name, "billable", pm.Billable)
	s.publish(ctx, pm.Name, amqp.ActionMethodUpserted)
	return pm, nil
}

// DeletePaymentMethod removes a method. Templates that still reference it
// are kept and from then on count as non-billable.
func (s *TemplateService) DeletePaymentMethod(ctx context.Context, name string) error {
	if err := s.store.DeletePaymentMethod(ctx, name); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Payment method deleted", "payment_method", name)
	s.publish(ctx, name, amqp.ActionMethodDeleted)
	return nil
}

// publish is best effort: the write already succeeded.
func (s *TemplateService) publish(ctx context.Context, key, action string) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No publisher configured, skipping change message", "key", key)
		return
	}
	rev, err := s.store.Revision(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Failed to read store revision", "error", err)
	}
	if err := s.publisher.PublishTemplateChange(ctx, amqp.NewTemplateChangeMessage(key, action, rev)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change message", "key", key, "action", action, "error", err)
	}
}

// Export returns every template and payment method in the export format.
func (s *TemplateService) Export(ctx context.Context) (storage.Snapshot, error) {
	return storage.Export(ctx, s.store)
}

// Import upserts a snapshot. Templates are validated up front so a bad
// document writes nothing.
func (s *TemplateService) Import(ctx context.Context, snap storage.Snapshot) error {
	for _, t := range snap.Templates {
		if t.ID == "" {
			return invalid(fmt.Errorf("template %q: missing id", t.Description))
		}
		if err := t.Validate(); err != nil {
			return invalid(fmt.Errorf("template %s: %w", t.ID, err))
		}
	}
	for _, pm := range snap.PaymentMethods {
		if err := pm.Validate(); err != nil {
			return invalid(fmt.Errorf("payment method %q: %w", pm.Name, err))
		}
	}
	if err := storage.Import(ctx, s.store, snap); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Snapshot imported",
		"templates", len(snap.Templates),
		"payment_methods", len(snap.PaymentMethods))
	s.publish(ctx, "*", amqp.ActionSnapshotImported)
	return nil
}
