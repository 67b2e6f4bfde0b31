package analytics

import (
	"fmt"
	"strconv"
	"time"

	"spendlens/internal/core"
)

// MonthKey identifies a calendar month. It is the bucket key for every
// month-based aggregate so that identical month names in different years never
// collide.
type MonthKey struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month bucket a date falls into.
func MonthOf(d core.Date) MonthKey {
	return MonthKey{Year: d.Year(), Month: d.Month()}
}

// Add moves the key by n months, rolling over year boundaries.
func (k MonthKey) Add(n int) MonthKey {
	idx := k.index() + n
	year := idx / 12
	month := idx % 12
	if month < 0 {
		month += 12
		year--
	}
	return MonthKey{Year: year, Month: time.Month(month + 1)}
}

// Sub returns the number of months from o to k.
func (k MonthKey) Sub(o MonthKey) int {
	return k.index() - o.index()
}

func (k MonthKey) index() int {
	return k.Year*12 + int(k.Month) - 1
}

// Label renders the key as a short English month and year, e.g. "Mar 2024".
// The label does not depend on the process locale.
func (k MonthKey) Label() string {
	return k.Month.String()[:3] + " " + strconv.Itoa(k.Year)
}

// String renders the key as YYYY-MM.
func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}
