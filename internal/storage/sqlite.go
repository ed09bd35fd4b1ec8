package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"saldo/internal/core"

	_ "modernc.org/sqlite"
)

const (
	patternOnce        = "once"
	patternRecurring   = "recurring"
	patternInstallment = "installment"
)

// SQLiteRepository is the Store backed by a single SQLite file.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; serializing connections avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("SQLite store ready", "path", dbPath, "schema_version", version)
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// withTx runs fn in a transaction and bumps the store revision on success.
func (r *SQLiteRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE store_meta SET value = value + 1 WHERE key = 'revision'`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("bump revision: %w", err)
	}
	return tx.Commit()
}

func (r *SQLiteRepository) Revision(ctx context.Context) (int64, error) {
	var rev int64
	err := r.db.QueryRowContext(ctx, `SELECT value FROM store_meta WHERE key = 'revision'`).Scan(&rev)
	if err != nil {
		return 0, fmt.Errorf("read revision: %w", err)
	}
	return rev, nil
}

func (r *SQLiteRepository) UpsertTemplate(ctx context.Context, t core.Template) error {
	pattern, current, total := encodePattern(t)
	return r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO templates(id, description, category, subcategory, amount_cents, payment_method,
			anchor_date, billing_month, end_date, pattern, installment_current, installment_total,
			color, font_color, reconciled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			description=excluded.description,
			category=excluded.category,
			subcategory=excluded.subcategory,
			amount_cents=excluded.amount_cents,
			payment_method=excluded.payment_method,
			anchor_date=excluded.anchor_date,
			billing_month=excluded.billing_month,
			end_date=excluded.end_date,
			pattern=excluded.pattern,
			installment_current=excluded.installment_current,
			installment_total=excluded.installment_total,
			color=excluded.color,
			font_color=excluded.font_color,
			reconciled=excluded.reconciled,
			updated_at=CURRENT_TIMESTAMP`,
			t.ID, t.Description, t.Category, t.Subcategory, t.Amount.Cents, t.PaymentMethod,
			t.AnchorDate.String(), monthKey(t.BillingMonth), t.EndDate.String(), pattern, current, total,
			t.Color, t.FontColor, t.Reconciled)
		if err != nil {
			return fmt.Errorf("upsert template %s: %w", t.ID, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM template_overrides WHERE template_id = ?`, t.ID); err != nil {
			return fmt.Errorf("clear overrides: %w", err)
		}
		for month, amount := range t.Overrides {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO template_overrides(template_id, month, amount_cents) VALUES (?, ?, ?)`,
				t.ID, month.String(), amount.Cents); err != nil {
				return fmt.Errorf("insert override %s: %w", month, err)
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM template_styles WHERE template_id = ?`, t.ID); err != nil {
			return fmt.Errorf("clear styles: %w", err)
		}
		for month, st := range t.Styles {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO template_styles(template_id, month, color, font_color) VALUES (?, ?, ?, ?)`,
				t.ID, month.String(), st.Color, st.FontColor); err != nil {
				return fmt.Errorf("insert style %s: %w", month, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) DeleteTemplate(ctx context.Context, id string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete template %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM template_overrides WHERE template_id = ?`, id); err != nil {
			return fmt.Errorf("delete overrides: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM template_styles WHERE template_id = ?`, id); err != nil {
			return fmt.Errorf("delete styles: %w", err)
		}
		return nil
	})
}

const templateColumns = `id, description, category, subcategory, amount_cents, payment_method,
	anchor_date, billing_month, end_date, pattern, installment_current, installment_total,
	color, font_color, reconciled`

func (r *SQLiteRepository) GetTemplate(ctx context.Context, id string) (core.Template, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM templates WHERE id = ?`, id)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Template{}, ErrNotFound
	}
	if err != nil {
		return core.Template{}, fmt.Errorf("get template %s: %w", id, err)
	}
	byID := map[string]*core.Template{t.ID: &t}
	if err := r.attachOverrides(ctx, `WHERE template_id = ?`, []any{id}, byID); err != nil {
		return core.Template{}, err
	}
	if err := r.attachStyles(ctx, `WHERE template_id = ?`, []any{id}, byID); err != nil {
		return core.Template{}, err
	}
	return t, nil
}

func (r *SQLiteRepository) ListTemplates(ctx context.Context) ([]core.Template, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+templateColumns+` FROM templates ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	var out []core.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	byID := make(map[string]*core.Template, len(out))
	for i := range out {
		byID[out[i].ID] = &out[i]
	}
	if err := r.attachOverrides(ctx, "", nil, byID); err != nil {
		return nil, err
	}
	if err := r.attachStyles(ctx, "", nil, byID); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLiteRepository) attachOverrides(ctx context.Context, where string, args []any, byID map[string]*core.Template) error {
	rows, err := r.db.QueryContext(ctx, `SELECT template_id, month, amount_cents FROM template_overrides `+where, args...)
	if err != nil {
		return fmt.Errorf("load overrides: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, key string
		var cents int64
		if err := rows.Scan(&id, &key, &cents); err != nil {
			return fmt.Errorf("scan override: %w", err)
		}
		t, ok := byID[id]
		if !ok {
			continue
		}
		month, err := core.ParseYearMonth(key)
		if err != nil {
			return fmt.Errorf("template %s override: %w", id, err)
		}
		if t.Overrides == nil {
			t.Overrides = map[core.YearMonth]core.Money{}
		}
		t.Overrides[month] = core.Cents(cents)
	}
	return rows.Err()
}

func (r *SQLiteRepository) attachStyles(ctx context.Context, where string, args []any, byID map[string]*core.Template) error {
	rows, err := r.db.QueryContext(ctx, `SELECT template_id, month, color, font_color FROM template_styles `+where, args...)
	if err != nil {
		return fmt.Errorf("load styles: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, key string
		var st core.Style
		if err := rows.Scan(&id, &key, &st.Color, &st.FontColor); err != nil {
			return fmt.Errorf("scan style: %w", err)
		}
		t, ok := byID[id]
		if !ok {
			continue
		}
		month, err := core.ParseYearMonth(key)
		if err != nil {
			return fmt.Errorf("template %s style: %w", id, err)
		}
		if t.Styles == nil {
			t.Styles = map[core.YearMonth]core.Style{}
		}
		t.Styles[month] = st
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(s rowScanner) (core.Template, error) {
	var (
		t                    core.Template
		cents                int64
		anchor, billing, end string
		pattern              string
		current, total       int
	)
	err := s.Scan(&t.ID, &t.Description, &t.Category, &t.Subcategory, &cents, &t.PaymentMethod,
		&anchor, &billing, &end, &pattern, &current, &total,
		&t.Color, &t.FontColor, &t.Reconciled)
	if err != nil {
		return core.Template{}, err
	}
	t.Amount = core.Cents(cents)
	if anchor != "" {
		if t.AnchorDate, err = core.ParseDate(anchor); err != nil {
			return core.Template{}, fmt.Errorf("template %s anchor date: %w", t.ID, err)
		}
	}
	if end != "" {
		if t.EndDate, err = core.ParseDate(end); err != nil {
			return core.Template{}, fmt.Errorf("template %s end date: %w", t.ID, err)
		}
	}
	if billing != "" {
		if t.BillingMonth, err = core.ParseYearMonth(billing); err != nil {
			return core.Template{}, fmt.Errorf("template %s billing month: %w", t.ID, err)
		}
	}
	switch pattern {
	case patternRecurring:
		t.Pattern = core.Recurring{}
	case patternInstallment:
		t.Pattern = core.Installment{Current: current, Total: total}
	default:
		t.Pattern = core.Once{}
	}
	return t, nil
}

func encodePattern(t core.Template) (pattern string, current, total int) {
	if t.IsRecurring() {
		return patternRecurring, 0, 0
	}
	if plan, ok := t.InstallmentPlan(); ok {
		return patternInstallment, plan.Current, plan.Total
	}
	return patternOnce, 0, 0
}

func monthKey(ym core.YearMonth) string {
	if ym.IsZero() {
		return ""
	}
	return ym.String()
}

func (r *SQLiteRepository) UpsertPaymentMethod(ctx context.Context, pm core.PaymentMethod) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO payment_methods(name, billable, due_day, best_purchase_day)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			billable=excluded.billable,
			due_day=excluded.due_day,
			best_purchase_day=excluded.best_purchase_day,
			updated_at=CURRENT_TIMESTAMP`,
			pm.Name, pm.Billable, pm.DueDay, pm.BestPurchaseDay)
		if err != nil {
			return fmt.Errorf("upsert payment method %s: %w", pm.Name, err)
		}
		return nil
	})
}

func (r *SQLiteRepository) DeletePaymentMethod(ctx context.Context, name string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM payment_methods WHERE name = ?`, name)
		if err != nil {
			return fmt.Errorf("delete payment method %s: %w", name, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *SQLiteRepository) GetPaymentMethod(ctx context.Context, name string) (core.PaymentMethod, error) {
	var pm core.PaymentMethod
	err := r.db.QueryRowContext(ctx,
		`SELECT name, billable, due_day, best_purchase_day FROM payment_methods WHERE name = ?`, name).
		Scan(&pm.Name, &pm.Billable, &pm.DueDay, &pm.BestPurchaseDay)
	if errors.Is(err, sql.ErrNoRows) {
		return core.PaymentMethod{}, ErrNotFound
	}
	if err != nil {
		return core.PaymentMethod{}, fmt.Errorf("get payment method %s: %w", name, err)
	}
	return pm, nil
}

func (r *SQLiteRepository) ListPaymentMethods(ctx context.Context) ([]core.PaymentMethod, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, billable, due_day, best_purchase_day FROM payment_methods ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	defer rows.Close()
	var out []core.PaymentMethod
	for rows.Next() {
		var pm core.PaymentMethod
		if err := rows.Scan(&pm.Name, &pm.Billable, &pm.DueDay, &pm.BestPurchaseDay); err != nil {
			return nil, fmt.Errorf("scan payment method: %w", err)
		}
		out = append(out, pm)
	}
	return out, rows.Err()
}
