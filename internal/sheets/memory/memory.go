// Package memory keeps exported reports in process, for development and
// tests.
package memory

import (
	"context"
	"sync"

	"spendlens/internal/report"
	"spendlens/internal/sheets"
)

type Exporter struct {
	mu      sync.Mutex
	reports map[string]report.Document
	count   int
}

var _ sheets.ReportExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{reports: make(map[string]report.Document)}
}

// ExportReport replaces the user's stored document.
func (e *Exporter) ExportReport(_ context.Context, userID string, doc report.Document) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reports[userID] = doc
	e.count++
	return nil
}

// Last returns the most recent document exported for userID.
func (e *Exporter) Last(userID string) (report.Document, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	doc, ok := e.reports[userID]
	return doc, ok
}

// Exports counts ExportReport calls.
func (e *Exporter) Exports() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count
}
