package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"saldo/internal/amqp"
	"saldo/internal/core"
	"saldo/internal/services"
	"saldo/internal/sheets"
)

// Config holds the projection window and schedule for the worker.
type Config struct {
	// Months is the projection horizon (default: 120).
	Months int

	// Opening is the balance the rolling projection starts from.
	Opening core.Money

	// Schedule is a cron expression for the periodic refresh (default: @daily).
	Schedule string
}

func DefaultConfig() Config {
	return Config{
		Months:   120,
		Schedule: "@daily",
	}
}

// ProjectionWorker keeps the exported projection current. It refreshes on
// every change message and on a cron schedule, which picks up the start
// month rolling forward even when nothing was edited.
type ProjectionWorker struct {
	projections *services.ProjectionService
	exporter    sheets.Exporter
	cfg         Config

	cron *cron.Cron
	now  func() time.Time

	mu      sync.Mutex
	last    exportMark
	running bool
}

// NewProjectionWorker builds a worker. exporter may be nil, in which case
// refreshes only compute and log.
func NewProjectionWorker(projections *services.ProjectionService, exporter sheets.Exporter, cfg Config) *ProjectionWorker {
	def := DefaultConfig()
	if cfg.Months <= 0 {
		cfg.Months = def.Months
	}
	if cfg.Schedule == "" {
		cfg.Schedule = def.Schedule
	}
	return &ProjectionWorker{
		projections: projections,
		exporter:    exporter,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Start runs an initial refresh and schedules the periodic one. Returns an
// error if already running or if the schedule does not parse.
func (w *ProjectionWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("projection worker is already running")
	}
	c := cron.New()
	if _, err := c.AddFunc(w.cfg.Schedule, func() {
		if err := w.Refresh(ctx, false); err != nil {
			slog.ErrorContext(ctx, "Scheduled projection refresh failed", "error", err)
		}
	}); err != nil {
		w.mu.Unlock()
		return fmt.Errorf("parse schedule %q: %w", w.cfg.Schedule, err)
	}
	w.cron = c
	w.running = true
	w.mu.Unlock()

	if err := w.Refresh(ctx, true); err != nil {
		slog.WarnContext(ctx, "Initial projection refresh failed", "error", err)
	}
	c.Start()

	slog.InfoContext(ctx, "Projection worker started",
		"schedule", w.cfg.Schedule,
		"months", w.cfg.Months,
		"exporter", w.exporter != nil)
	return nil
}

// Stop halts the schedule and waits for a running refresh to finish.
func (w *ProjectionWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	c := w.cron
	w.running = false
	w.mu.Unlock()

	select {
	case <-c.Stop().Done():
		slog.InfoContext(ctx, "Projection worker stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Projection worker stop timed out")
		return ctx.Err()
	}
}

// HandleChange processes one template change message from AMQP.
func (w *ProjectionWorker) HandleChange(ctx context.Context, msg *amqp.TemplateChangeMessage) error {
	slog.InfoContext(ctx, "Processing change message",
		"key", msg.Key,
		"action", msg.Action,
		"revision", msg.Revision)
	return w.Refresh(ctx, false)
}

// Refresh recomputes the rolling projection and the current month's
// statements and exports them. Unless force is set, nothing is exported when
// neither the store nor the start month changed since the last export.
func (w *ProjectionWorker) Refresh(ctx context.Context, force bool) error {
	now := w.now()
	start := core.YearMonthOf(now)

	rev, err := w.projections.Revision(ctx)
	if err != nil {
		return fmt.Errorf("read revision: %w", err)
	}
	w.mu.Lock()
	due := force || w.last.isDue(rev, now)
	w.mu.Unlock()
	if !due {
		slog.DebugContext(ctx, "Projection export up to date", "revision", rev, "start_month", start.String())
		return nil
	}

	p, err := w.projections.Project(ctx, services.ProjectionRequest{
		Start:   start,
		Months:  w.cfg.Months,
		Opening: w.cfg.Opening,
	})
	if err != nil {
		return fmt.Errorf("project: %w", err)
	}
	groups, err := w.projections.Statements(ctx, start)
	if err != nil {
		return fmt.Errorf("statements: %w", err)
	}

	if w.exporter != nil {
		if err := w.exporter.WriteProjection(ctx, p.Summaries); err != nil {
			return fmt.Errorf("export projection: %w", err)
		}
		if err := w.exporter.WriteStatements(ctx, groups); err != nil {
			return fmt.Errorf("export statements: %w", err)
		}
	}

	w.mu.Lock()
	w.last = exportMark{revision: rev, start: start, at: now}
	w.mu.Unlock()

	final := core.Money{}
	if n := len(p.Summaries); n > 0 {
		final = p.Summaries[n-1].ClosingBalance
	}
	slog.InfoContext(ctx, "Projection refreshed",
		"revision", rev,
		"start_month", start.String(),
		"months", len(p.Summaries),
		"statements", len(groups),
		"final_balance", final.String(),
		"skipped_templates", len(p.Diagnostics))
	return nil
}
