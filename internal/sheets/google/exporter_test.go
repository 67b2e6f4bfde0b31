package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"spendlens/internal/analytics"
	"spendlens/internal/core"
	"spendlens/internal/log"
	"spendlens/internal/report"
)

func sampleDoc(t *testing.T) report.Document {
	t.Helper()
	r, err := analytics.Compute([]core.RawExpense{
		{Category: "Food", Amount: 50.0, Date: "2024-03-01"},
		{Category: "Transport", Amount: 50.0, Date: "2024-02-01"},
	}, core.NewDate(2024, 3, 20))
	require.NoError(t, err)
	return report.FromReport(r)
}

func TestSheetTitle(t *testing.T) {
	assert.Equal(t, "Report u1", sheetTitle("Report", "u1"))
	assert.Equal(t, "Report a-b-c", sheetTitle("Report", "a/b:c"))
	assert.Len(t, []rune(sheetTitle("Report", strings.Repeat("x", 200))), maxTitleLength)
}

func TestQuoteSheet(t *testing.T) {
	assert.Equal(t, "'Report u1'", quoteSheet("Report u1"))
	assert.Equal(t, "'O''Brien'", quoteSheet("O'Brien"))
}

func TestReportRows(t *testing.T) {
	doc := sampleDoc(t).WithInsights([]core.Insight{{Text: "note", Type: core.InsightInfo}})
	rows := reportRows("u1", doc)

	assert.Equal(t, []any{"Spending report", "u1"}, rows[0])
	assert.Equal(t, []any{"Reference", "2024-03-20"}, rows[1])
	assert.Contains(t, rows, []any{"Food", 50.0, 50.0})
	assert.Contains(t, rows, []any{"Utilities", 0.0, 0.0})
	assert.Contains(t, rows, []any{"Mar 2024", 50.0})
	assert.Equal(t, []any{"note", "info"}, rows[len(rows)-1])
}

type fakeSheets struct {
	mu       sync.Mutex
	titles   []string
	added    []string
	cleared  []string
	updated  map[string][][]any
	failGets bool
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	path := r.URL.Path

	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/spreadsheets/sheet-id"):
		if f.failGets {
			http.Error(w, `{"error":{"code":403,"message":"denied"}}`, http.StatusForbidden)
			return
		}
		resp := gsheet.Spreadsheet{}
		for _, title := range f.titles {
			resp.Sheets = append(resp.Sheets, &gsheet.Sheet{Properties: &gsheet.SheetProperties{Title: title}})
		}
		_ = json.NewEncoder(w).Encode(resp)
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			f.added = append(f.added, rq.AddSheet.Properties.Title)
			f.titles = append(f.titles, rq.AddSheet.Properties.Title)
		}
		_, _ = io.WriteString(w, `{}`)
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		f.cleared = append(f.cleared, path)
		_, _ = io.WriteString(w, `{}`)
	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		if f.updated == nil {
			f.updated = make(map[string][][]any)
		}
		f.updated[path[strings.Index(path, "/values/")+len("/values/"):]] = vr.Values
		_, _ = io.WriteString(w, `{}`)
	default:
		http.NotFound(w, r)
	}
}

func newTestExporter(t *testing.T, fake *fakeSheets) *Exporter {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return newExporter(svc, "sheet-id", "Report", log.Discard())
}

func TestExporter_ExportReport(t *testing.T) {
	fake := &fakeSheets{titles: []string{"Sheet1"}}
	e := newTestExporter(t, fake)
	doc := sampleDoc(t)

	require.NoError(t, e.ExportReport(context.Background(), "u1", doc))
	require.NoError(t, e.ExportReport(context.Background(), "u1", doc))

	assert.Equal(t, []string{"Report u1"}, fake.added, "sheet is created once")
	assert.Len(t, fake.cleared, 2)
	rows, ok := fake.updated["'Report u1'!A1"]
	require.True(t, ok, "updated ranges: %v", fake.updated)
	assert.Equal(t, "Spending report", rows[0][0])
}

func TestExporter_ExistingSheet(t *testing.T) {
	fake := &fakeSheets{titles: []string{"Report u2"}}
	e := newTestExporter(t, fake)

	require.NoError(t, e.ExportReport(context.Background(), "u2", sampleDoc(t)))
	assert.Empty(t, fake.added)
}

func TestExporter_Errors(t *testing.T) {
	e := newTestExporter(t, &fakeSheets{failGets: true})
	err := e.ExportReport(context.Background(), "u1", sampleDoc(t))
	assert.ErrorContains(t, err, "read spreadsheet")

	var empty Exporter
	assert.Error(t, empty.ExportReport(context.Background(), "u1", report.Document{}))
}

func TestNewExporter_Config(t *testing.T) {
	_, err := NewExporter(context.Background(), Config{}, nil)
	assert.ErrorContains(t, err, "GOOGLE_SPREADSHEET_ID")

	_, err = NewExporter(context.Background(), Config{SpreadsheetID: "x"}, nil)
	assert.ErrorContains(t, err, "missing service account credentials")
}
