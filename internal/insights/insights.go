// Package insights produces short textual observations about a user's
// spending, either from a Gemini model or from fixed rules over a report.
package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"spendlens/internal/analytics"
	"spendlens/internal/core"
)

// Count is how many insights a generator returns.
const Count = 3

var (
	ErrNoExpenses        = errors.New("no expenses provided")
	ErrMalformedResponse = errors.New("malformed insight response")
)

// Input is what a generator works from. Expenses are already normalized.
type Input struct {
	Expenses []core.Expense
	Report   analytics.Report
}

// Generator returns exactly Count insights. The returned insights carry only
// Text and Type; callers assign identity and timestamps.
type Generator interface {
	Generate(ctx context.Context, in Input) ([]core.Insight, error)
	Name() string
}

// BuildPrompt renders the model prompt for the given expenses.
func BuildPrompt(expenses []core.Expense) string {
	var b strings.Builder
	b.WriteString("You are a personal finance AI.\n\n")
	fmt.Fprintf(&b, "Analyze the expenses and return EXACTLY %d insights as JSON array.\n", Count)
	b.WriteString("Each insight must have:\n")
	b.WriteString("- text\n")
	b.WriteString(`- type ("warning" | "success" | "info")` + "\n\n")
	b.WriteString("Example format:\n")
	b.WriteString(`[{ "text": "...", "type": "warning" }]` + "\n\n")
	b.WriteString("Expenses:\n")
	for _, e := range expenses {
		fmt.Fprintf(&b, "Category: %s, Amount: %s", e.Category, e.Amount.String())
		if !e.Date.IsZero() {
			fmt.Fprintf(&b, ", Date: %s", e.Date)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

type wireInsight struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

// ParseResponse decodes a model reply into insights. Markdown code fences
// and text around the JSON array are ignored. Entries with empty text or an
// unknown type are rejected, and anything past Count is dropped.
func ParseResponse(text string) ([]core.Insight, error) {
	body := extractJSONArray(text)
	if body == "" {
		return nil, fmt.Errorf("%w: no JSON array found", ErrMalformedResponse)
	}

	var wire []wireInsight
	if err := json.Unmarshal([]byte(body), &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(wire) < Count {
		return nil, fmt.Errorf("%w: got %d insights, want %d", ErrMalformedResponse, len(wire), Count)
	}

	out := make([]core.Insight, 0, Count)
	for _, w := range wire[:Count] {
		t, err := core.ParseInsightType(w.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		text := strings.TrimSpace(w.Text)
		if text == "" {
			return nil, fmt.Errorf("%w: empty insight text", ErrMalformedResponse)
		}
		out = append(out, core.Insight{Text: text, Type: t})
	}
	return out, nil
}

func extractJSONArray(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end < start {
		return ""
	}
	return text[start : end+1]
}
