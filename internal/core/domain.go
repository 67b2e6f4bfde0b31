package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category is one of the fixed spending categories. The numeric order is the
// canonical order used for every category-indexed output.
type Category int

const (
	Food Category = iota
	Transport
	Entertainment
	Shopping
	Education
	Utilities
	Other
)

// NumCategories is the size of the category set.
const NumCategories = 7

const maxDescriptionLength = 200

var categoryNames = [NumCategories]string{
	"Food",
	"Transport",
	"Entertainment",
	"Shopping",
	"Education",
	"Utilities",
	"Other",
}

type (
	Date struct {
		time.Time
	}

	// Expense is a well-formed expense record. Date is zero when the record
	// carried no usable calendar date.
	Expense struct {
		ID          string
		UserID      string
		Category    string
		Amount      decimal.Decimal
		Date        Date
		Description string
		Notes       string
	}
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidDate      = errors.New("invalid date")
	ErrMissingUser      = errors.New("missing user id")
	ErrDescriptionLimit = errors.New("description too long (max 200 characters)")
)

// Categories returns the category set in canonical order.
func Categories() []Category {
	out := make([]Category, NumCategories)
	for i := range out {
		out[i] = Category(i)
	}
	return out
}

func (c Category) Valid() bool {
	return c >= 0 && int(c) < NumCategories
}

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCategory, int(c))
	}
	return []byte(categoryNames[c]), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	parsed, ok := ParseCategory(string(text))
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, string(text))
	}
	*c = parsed
	return nil
}

// ParseCategory matches a category name case-insensitively, ignoring
// surrounding whitespace.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for i, name := range categoryNames {
		if strings.EqualFold(s, name) {
			return Category(i), true
		}
	}
	return 0, false
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string and rejects impossible calendar dates
// such as 2024-02-30.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

// String renders the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		s = ""
	}
	return d.UnmarshalText([]byte(s))
}

// Validate checks an expense before it is written.
func (e Expense) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return ErrMissingUser
	}
	if _, ok := ParseCategory(e.Category); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, e.Category)
	}
	if !e.Amount.IsPositive() {
		return fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(e.Description) > maxDescriptionLength {
		return ErrDescriptionLimit
	}
	return nil
}

// Raw converts a validated expense back into its storage shape.
func (e Expense) Raw() RawExpense {
	raw := RawExpense{
		ID:          e.ID,
		UserID:      e.UserID,
		Category:    e.Category,
		Amount:      e.Amount,
		Description: e.Description,
		Notes:       e.Notes,
	}
	if !e.Date.IsZero() {
		raw.Date = e.Date.String()
	}
	return raw
}

// IsValidationError reports whether err stems from rejected user input.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrInvalidInput, ErrInvalidAmount, ErrInvalidCategory,
		ErrInvalidDate, ErrMissingUser, ErrDescriptionLimit,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
