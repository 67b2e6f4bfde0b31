package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"spendlens/internal/core"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts text, json and yaml (yml is an alias).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown report format %q: %w", s, core.ErrInvalidInput)
}

// Render writes doc to w in the requested format.
func Render(w io.Writer, doc Document, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode json report: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml report: %w", err)
		}
		return enc.Close()
	case FormatText, "":
		return renderText(w, doc)
	}
	return fmt.Errorf("unknown report format %q: %w", f, core.ErrInvalidInput)
}

func renderText(w io.Writer, doc Document) error {
	p := message.NewPrinter(language.English)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	header := "Spending report"
	if doc.UserID != "" {
		header += " for " + doc.UserID
	}
	p.Fprintf(tw, "%s (reference %s)\n\n", header, doc.Reference)

	s := doc.Summary
	p.Fprintf(tw, "This month\t%.2f\t(%d expenses)\n", s.CurrentMonthTotal, s.CurrentMonthCount)
	p.Fprintf(tw, "Last month\t%.2f\t\n", s.LastMonthTotal)
	p.Fprintf(tw, "Change\t%+.1f%%\t\n", s.PercentChange)
	p.Fprintf(tw, "Monthly average\t%.2f\t\n", s.AverageMonthlySpend)
	p.Fprintf(tw, "Top categories\t%s\t\n", s.TopCategoriesLabel)

	if len(doc.Distribution) > 0 {
		p.Fprintf(tw, "\nCategory\tAmount\tShare\n")
		for _, d := range doc.Distribution {
			p.Fprintf(tw, "%s\t%.2f\t%.1f%%\n", d.Name, d.Value, d.Percentage)
		}
	}

	p.Fprintf(tw, "\nMonth\tTotal\t\n")
	for _, t := range doc.Trend {
		p.Fprintf(tw, "%s\t%.2f\t\n", t.Label, t.Total)
	}

	if len(doc.Insights) > 0 {
		p.Fprintf(tw, "\nInsights\n")
		for _, in := range doc.Insights {
			p.Fprintf(tw, "[%s]\t%s\t\n", in.Type, in.Text)
		}
	}

	r := doc.Records
	p.Fprintf(tw, "\nRecords: %d read, %d kept, %d dropped, %d undated\n", r.Total, r.Kept, r.Dropped, r.Undated)
	return tw.Flush()
}
