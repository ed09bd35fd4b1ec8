package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"saldo/internal/core"
	ports "saldo/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc             *gsheet.Service
	spreadsheetID   string
	projectionSheet string
	statementsSheet string
}

// Ensure interface conformance
var _ ports.Exporter = (*Client)(nil)

// Options selects the target spreadsheet and its sheets. Credentials fall
// back to GOOGLE_APPLICATION_CREDENTIALS when neither field is set.
type Options struct {
	SpreadsheetID   string
	ProjectionSheet string
	StatementsSheet string
	CredentialsJSON string
	CredentialsFile string
}

func (o Options) withDefaults() Options {
	o.SpreadsheetID = strings.TrimSpace(o.SpreadsheetID)
	if strings.TrimSpace(o.ProjectionSheet) == "" {
		o.ProjectionSheet = "Projection"
	}
	if strings.TrimSpace(o.StatementsSheet) == "" {
		o.StatementsSheet = "Statements"
	}
	return o
}

// New creates a Sheets exporter authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	opts = opts.withDefaults()
	if opts.SpreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	creds, err := resolveCredentials(ctx, opts)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets exporter ready",
		"spreadsheet_id", opts.SpreadsheetID,
		"projection_sheet", opts.ProjectionSheet,
		"statements_sheet", opts.StatementsSheet)
	return &Client{
		svc:             svc,
		spreadsheetID:   opts.SpreadsheetID,
		projectionSheet: opts.ProjectionSheet,
		statementsSheet: opts.StatementsSheet,
	}, nil
}

// resolveCredentials returns the service account JSON from inline config, a
// file, or the standard Google Cloud environment variable, in that order.
func resolveCredentials(ctx context.Context, opts Options) ([]byte, error) {
	inline := strings.TrimSpace(opts.CredentialsJSON)
	file := strings.TrimSpace(opts.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		slog.DebugContext(ctx, "Using inline JSON credentials")
		return []byte(inline), nil
	case file != "":
		slog.DebugContext(ctx, "Reading credentials from file", "path", file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func (c *Client) WriteProjection(ctx context.Context, summaries []core.MonthlySummary) error {
	return c.replace(ctx, c.projectionSheet, ports.ProjectionRows(summaries))
}

func (c *Client) WriteStatements(ctx context.Context, groups []core.StatementGroup) error {
	return c.replace(ctx, c.statementsSheet, ports.StatementRows(groups))
}

// replace clears the sheet and writes rows from A1.
func (c *Client) replace(ctx context.Context, sheet string, rows [][]any) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	clearRange := fmt.Sprintf("%s!A:Z", sheet)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", clearRange, err)
	}

	dataRange := fmt.Sprintf("%s!A1", sheet)
	vr := &gsheet.ValueRange{Values: rows}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return fmt.Errorf("update %s: %w", dataRange, err)
	}

	slog.InfoContext(ctx, "Sheet replaced", "sheet", sheet, "rows", len(rows)-1)
	return nil
}
