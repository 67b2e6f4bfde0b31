// Package google exports report documents to a Google Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"spendlens/internal/log"
	"spendlens/internal/report"
	"spendlens/internal/sheets"
)

const maxTitleLength = 100

// Config selects the spreadsheet and the service account used to write it.
// ServiceAccountJSON wins over ServiceAccountFile.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountFile string
	ServiceAccountJSON string
}

// Exporter writes each user's report to its own sheet named
// "<SheetName> <userID>", creating the sheet on first export.
type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
	logger        *log.Logger

	mu    sync.Mutex
	known map[string]bool
}

var _ sheets.ReportExporter = (*Exporter)(nil)

// NewExporter creates a Sheets client from service account credentials.
func NewExporter(ctx context.Context, cfg Config, logger *log.Logger) (*Exporter, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newExporter(svc, cfg.SpreadsheetID, cfg.SheetName, logger), nil
}

func newExporter(svc *gsheet.Service, spreadsheetID, sheetBase string, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = log.Discard()
	}
	if strings.TrimSpace(sheetBase) == "" {
		sheetBase = "Report"
	}
	return &Exporter{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(spreadsheetID),
		sheetBase:     strings.TrimSpace(sheetBase),
		logger:        logger.WithComponent(log.ComponentSheets),
		known:         make(map[string]bool),
	}
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	opts := []goption.ClientOption{goption.WithScopes(gsheet.SpreadsheetsScope)}
	switch {
	case strings.TrimSpace(cfg.ServiceAccountJSON) != "":
		opts = append(opts, goption.WithCredentialsJSON([]byte(cfg.ServiceAccountJSON)))
	case strings.TrimSpace(cfg.ServiceAccountFile) != "":
		opts = append(opts, goption.WithCredentialsFile(cfg.ServiceAccountFile))
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	service, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// ExportReport overwrites the user's sheet with doc.
func (e *Exporter) ExportReport(ctx context.Context, userID string, doc report.Document) error {
	if e.svc == nil {
		return errors.New("sheets service not initialized")
	}
	title := sheetTitle(e.sheetBase, userID)
	if err := e.ensureSheet(ctx, title); err != nil {
		return err
	}

	rng := quoteSheet(title)
	if _, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet %s: %w", title, err)
	}

	rows := reportRows(userID, doc)
	vr := &gsheet.ValueRange{Values: rows}
	if _, err := e.svc.Spreadsheets.Values.Update(e.spreadsheetID, rng+"!A1", vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write sheet %s: %w", title, err)
	}

	e.logger.InfoContext(ctx, "Exported report to sheet",
		log.FieldUserID, userID,
		"sheet", title,
		"rows", len(rows))
	return nil
}

func (e *Exporter) ensureSheet(ctx context.Context, title string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.known[title] {
		return nil
	}

	ss, err := e.svc.Spreadsheets.Get(e.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			e.known[s.Properties.Title] = true
		}
	}
	if e.known[title] {
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: title},
			},
		}},
	}
	if _, err := e.svc.Spreadsheets.BatchUpdate(e.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}
	e.known[title] = true
	e.logger.InfoContext(ctx, "Created sheet", "sheet", title)
	return nil
}

// sheetTitle builds a sheet title, replacing characters Sheets rejects.
func sheetTitle(base, userID string) string {
	title := strings.TrimSpace(base + " " + strings.TrimSpace(userID))
	title = strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', '*', '?', '/', '\\', ':':
			return '-'
		}
		return r
	}, title)
	if r := []rune(title); len(r) > maxTitleLength {
		title = string(r[:maxTitleLength])
	}
	return title
}

// quoteSheet quotes a sheet title for A1 notation.
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func reportRows(userID string, doc report.Document) [][]any {
	s := doc.Summary
	rows := [][]any{
		{"Spending report", userID},
		{"Reference", doc.Reference},
		{},
		{"Summary"},
		{"This month", s.CurrentMonthTotal},
		{"Expenses this month", s.CurrentMonthCount},
		{"Last month", s.LastMonthTotal},
		{"Change %", s.PercentChange},
		{"Monthly average", s.AverageMonthlySpend},
		{"Top categories", s.TopCategoriesLabel},
		{},
		{"Category", "Amount", "Share %"},
	}

	shares := make(map[string]float64, len(doc.Distribution))
	for _, d := range doc.Distribution {
		shares[d.Name] = d.Percentage
	}
	for _, c := range doc.Categories {
		rows = append(rows, []any{c.Category, c.Amount, shares[c.Category]})
	}

	rows = append(rows, []any{}, []any{"Month", "Total"})
	for _, t := range doc.Trend {
		rows = append(rows, []any{t.Label, t.Total})
	}

	if len(doc.Insights) > 0 {
		rows = append(rows, []any{}, []any{"Insight", "Type"})
		for _, in := range doc.Insights {
			rows = append(rows, []any{in.Text, in.Type})
		}
	}
	return rows
}
