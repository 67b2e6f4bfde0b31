package core

import (
	"encoding/json"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RawExpense is an expense record as it arrives from storage or the wire.
// Amount and Date are untyped because nothing upstream guarantees their shape;
// they are interpreted by AmountValue and CalendarDate.
type RawExpense struct {
	ID          string `json:"id"`
	UserID      string `json:"userId,omitempty"`
	Category    string `json:"category"`
	Amount      any    `json:"amount"`
	Date        any    `json:"date,omitempty"`
	Description string `json:"description,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// timestampLayouts are tried after DateLayout when reading a date string.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// AmountValue reports the amount as a decimal when it is a finite number.
// Strings, booleans, nil, NaN and infinities are not amounts.
func (r RawExpense) AmountValue() (decimal.Decimal, bool) {
	return amountOf(r.Amount)
}

// CalendarDate reports the calendar date of the record, if it has a usable one.
// Timestamps keep the date of their own offset.
func (r RawExpense) CalendarDate() (Date, bool) {
	return dateOf(r.Date)
}

func amountOf(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(n), true
	case float32:
		f := float64(n)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat32(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int8:
		return decimal.NewFromInt(int64(n)), true
	case int16:
		return decimal.NewFromInt(int64(n)), true
	case int32:
		return decimal.NewFromInt32(n), true
	case int64:
		return decimal.NewFromInt(n), true
	case uint:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(n)), 0), true
	case uint8:
		return decimal.NewFromInt(int64(n)), true
	case uint16:
		return decimal.NewFromInt(int64(n)), true
	case uint32:
		return decimal.NewFromInt(int64(n)), true
	case uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(n), 0), true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case decimal.Decimal:
		return n, true
	case *decimal.Decimal:
		if n == nil {
			return decimal.Zero, false
		}
		return *n, true
	default:
		return decimal.Zero, false
	}
}

func dateOf(v any) (Date, bool) {
	switch d := v.(type) {
	case string:
		return parseDateString(d)
	case []byte:
		return parseDateString(string(d))
	case time.Time:
		if d.IsZero() {
			return Date{}, false
		}
		return DateOf(d), true
	case *time.Time:
		if d == nil || d.IsZero() {
			return Date{}, false
		}
		return DateOf(*d), true
	case Date:
		return d, !d.IsZero()
	default:
		return Date{}, false
	}
}

func parseDateString(s string) (Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, false
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return DateOf(t), true
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), true
		}
	}
	return Date{}, false
}
