// Package sheets defines where rendered reports are exported to.
package sheets

import (
	"context"

	"spendlens/internal/report"
)

// ReportExporter writes a user's report document to an external sheet.
type ReportExporter interface {
	ExportReport(ctx context.Context, userID string, doc report.Document) error
}
