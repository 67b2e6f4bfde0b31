// Package csvfile reads and writes expense records as CSV with the columns
// id, category, amount, date, description, notes.
package csvfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"spendlens/internal/core"
)

// Row is one CSV line.
type Row struct {
	ID          string `csv:"id"`
	Category    string `csv:"category"`
	Amount      string `csv:"amount"`
	Date        string `csv:"date"`
	Description string `csv:"description"`
	Notes       string `csv:"notes"`
}

// Read parses CSV rows into raw records owned by userID. Numeric amounts are
// converted to decimals; anything else is kept as text and left for the
// analytics normalizer to reject.
func Read(r io.Reader, userID string) ([]core.RawExpense, error) {
	var rows []Row
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return []core.RawExpense{}, nil
		}
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	out := make([]core.RawExpense, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.raw(userID))
	}
	return out, nil
}

// ReadFile reads a CSV file from disk.
func ReadFile(path, userID string) ([]core.RawExpense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}
	defer f.Close()
	return Read(f, userID)
}

// Write renders records as CSV including the header line.
func Write(w io.Writer, records []core.RawExpense) error {
	rows := make([]*Row, 0, len(records))
	for _, r := range records {
		rows = append(rows, rowOf(r))
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteFile writes records to path, creating parent directories.
func WriteFile(path string, records []core.RawExpense) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	if err := Write(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (row Row) raw(userID string) core.RawExpense {
	rec := core.RawExpense{
		ID:          strings.TrimSpace(row.ID),
		UserID:      userID,
		Category:    row.Category,
		Description: row.Description,
		Notes:       row.Notes,
	}
	if amount := strings.TrimSpace(row.Amount); amount != "" {
		if d, err := decimal.NewFromString(amount); err == nil {
			rec.Amount = d
		} else {
			rec.Amount = amount
		}
	}
	if date := strings.TrimSpace(row.Date); date != "" {
		rec.Date = date
	}
	return rec
}

func rowOf(r core.RawExpense) *Row {
	row := &Row{
		ID:          r.ID,
		Category:    r.Category,
		Description: r.Description,
		Notes:       r.Notes,
	}
	if d, ok := r.AmountValue(); ok {
		row.Amount = d.String()
	} else if r.Amount != nil {
		row.Amount = fmt.Sprint(r.Amount)
	}
	switch d := r.Date.(type) {
	case nil:
	case string:
		row.Date = d
	default:
		if date, ok := r.CalendarDate(); ok {
			row.Date = date.String()
		} else {
			row.Date = fmt.Sprint(d)
		}
	}
	return row
}
