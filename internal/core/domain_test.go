package core

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseCategory(t *testing.T) {
	cases := []struct {
		in   string
		want Category
		ok   bool
	}{
		{"Food", Food, true},
		{" transport ", Transport, true},
		{"UTILITIES", Utilities, true},
		{"Other", Other, true},
		{"Groceries", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseCategory(tc.in)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Fatalf("ParseCategory(%q) = %v,%v want %v,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestCategoriesCanonicalOrder(t *testing.T) {
	want := []string{"Food", "Transport", "Entertainment", "Shopping", "Education", "Utilities", "Other"}
	got := Categories()
	if len(got) != len(want) {
		t.Fatalf("expected %d categories, got %d", len(want), len(got))
	}
	for i, c := range got {
		if c.String() != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], c)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Year() != 2024 || d.Month() != time.March || d.Day() != 15 {
		t.Fatalf("unexpected date %v", d)
	}
	for _, bad := range []string{"2024-02-30", "15/03/2024", ""} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("ParseDate(%q) expected ErrInvalidDate, got %v", bad, err)
		}
	}
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		D Date `json:"d"`
		Z Date `json:"z"`
	}{D: NewDate(2024, 1, 5)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"d":"2024-01-05","z":null}` {
		t.Fatalf("unexpected json %s", b)
	}

	var out struct {
		D Date `json:"d"`
	}
	if err := json.Unmarshal([]byte(`{"d":"2023-12-31"}`), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.D.Equal(NewDate(2023, 12, 31).Time) {
		t.Fatalf("unexpected date %v", out.D)
	}
}

func TestExpenseValidate(t *testing.T) {
	valid := Expense{
		UserID:   "u1",
		Category: "Food",
		Amount:   decimal.NewFromInt(12),
		Date:     NewDate(2024, 3, 1),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Expense)
		want   error
	}{
		{"missing user", func(e *Expense) { e.UserID = " " }, ErrMissingUser},
		{"unknown category", func(e *Expense) { e.Category = "Rent" }, ErrInvalidCategory},
		{"zero amount", func(e *Expense) { e.Amount = decimal.Zero }, ErrInvalidAmount},
		{"negative amount", func(e *Expense) { e.Amount = decimal.NewFromInt(-3) }, ErrInvalidAmount},
		{"zero date", func(e *Expense) { e.Date = Date{} }, ErrInvalidDate},
		{"long description", func(e *Expense) { e.Description = strings.Repeat("x", 201) }, ErrDescriptionLimit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := valid
			tc.mutate(&e)
			err := e.Validate()
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !IsValidationError(err) {
				t.Fatalf("expected validation error classification for %v", err)
			}
		})
	}
}

func TestRawExpenseAmountValue(t *testing.T) {
	cases := []struct {
		in   any
		want string
		ok   bool
	}{
		{12.5, "12.5", true},
		{float32(2.5), "2.5", true},
		{int64(-7), "-7", true},
		{uint8(3), "3", true},
		{json.Number("19.99"), "19.99", true},
		{decimal.NewFromInt(4), "4", true},
		{"50", "", false},
		{"NaN", "", false},
		{math.NaN(), "", false},
		{math.Inf(1), "", false},
		{true, "", false},
		{nil, "", false},
	}
	for i, tc := range cases {
		got, ok := RawExpense{Amount: tc.in}.AmountValue()
		if ok != tc.ok {
			t.Fatalf("case %d (%v): ok=%v want %v", i, tc.in, ok, tc.ok)
		}
		if ok && !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("case %d (%v): got %s want %s", i, tc.in, got, tc.want)
		}
	}
}

func TestRawExpenseCalendarDate(t *testing.T) {
	plus10 := time.FixedZone("AEST", 10*3600)
	cases := []struct {
		in   any
		want Date
		ok   bool
	}{
		{"2024-03-15", NewDate(2024, 3, 15), true},
		{"2024-03-15T23:30:00-05:00", NewDate(2024, 3, 15), true},
		{"2024-03-15 08:00:00", NewDate(2024, 3, 15), true},
		{time.Date(2024, 1, 1, 1, 0, 0, 0, plus10), NewDate(2024, 1, 1), true},
		{NewDate(2023, 12, 31), NewDate(2023, 12, 31), true},
		{"not a date", Date{}, false},
		{"", Date{}, false},
		{time.Time{}, Date{}, false},
		{42, Date{}, false},
		{nil, Date{}, false},
	}
	for i, tc := range cases {
		got, ok := RawExpense{Date: tc.in}.CalendarDate()
		if ok != tc.ok {
			t.Fatalf("case %d (%v): ok=%v want %v", i, tc.in, ok, tc.ok)
		}
		if ok && !got.Equal(tc.want.Time) {
			t.Fatalf("case %d (%v): got %v want %v", i, tc.in, got, tc.want)
		}
	}
}

func TestParseInsightType(t *testing.T) {
	if got, err := ParseInsightType(" Warning "); err != nil || got != InsightWarning {
		t.Fatalf("expected warning, got %q (%v)", got, err)
	}
	if _, err := ParseInsightType("alert"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
