package http

// This file implements parsing and validation of request bodies and query
// strings.

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"spendlens/internal/core"
	"spendlens/internal/services"
)

const maxBodyBytes = 1 << 20

// expenseRequest is the body of create and update calls. Amount accepts a
// JSON number or a decimal string such as "12,50".
type expenseRequest struct {
	UserID      string          `json:"userId"`
	Category    string          `json:"category"`
	Amount      json.RawMessage `json:"amount"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Notes       string          `json:"notes"`
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", core.ErrInvalidInput, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: body must hold a single JSON object", core.ErrInvalidInput)
	}
	return nil
}

// parseExpense decodes and converts the body into an expense. Validation of
// the result is left to the service.
func parseExpense(r *http.Request) (core.Expense, error) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		return core.Expense{}, err
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		return core.Expense{}, err
	}
	var date core.Date
	if strings.TrimSpace(req.Date) != "" {
		if date, err = core.ParseDate(req.Date); err != nil {
			return core.Expense{}, err
		}
	}

	return core.Expense{
		UserID:      strings.TrimSpace(req.UserID),
		Category:    sanitizeInput(req.Category),
		Amount:      amount,
		Date:        date,
		Description: sanitizeInput(req.Description),
		Notes:       sanitizeInput(req.Notes),
	}, nil
}

func parseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return decimal.Zero, fmt.Errorf("%w: amount is required", core.ErrInvalidAmount)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		// a bare JSON number
		s = string(raw)
	}
	return core.ParseAmount(s)
}

// parseDateParam reads an optional YYYY-MM-DD query parameter.
func parseDateParam(query url.Values, name string) (core.Date, error) {
	v := strings.TrimSpace(query.Get(name))
	if v == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: parameter %s", err, name)
	}
	return d, nil
}

// parseDashboardQuery reads ref, from and to.
func parseDashboardQuery(query url.Values) (services.DashboardQuery, error) {
	var (
		q   services.DashboardQuery
		err error
	)
	if q.Reference, err = parseDateParam(query, "ref"); err != nil {
		return q, err
	}
	if q.From, err = parseDateParam(query, "from"); err != nil {
		return q, err
	}
	if q.To, err = parseDateParam(query, "to"); err != nil {
		return q, err
	}
	return q, nil
}

// parseExpenseFilter reads category, q and sort. The sort value is checked
// by the service.
func parseExpenseFilter(query url.Values) services.ExpenseFilter {
	return services.ExpenseFilter{
		Category: strings.TrimSpace(query.Get("category")),
		Query:    strings.TrimSpace(query.Get("q")),
		Sort:     strings.ToLower(strings.TrimSpace(query.Get("sort"))),
	}
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' {
			return -1
		}
		if r == 127 {
			return -1
		}
		return r
	}, s))
}
