package models

import (
	"fmt"
	"time"
)

// DateLayout is the canonical textual form of a report date.
const DateLayout = "2006-01-02"

// Date is a calendar date with day granularity. Reports are published per
// trading day, so times of day never matter and are not stored.
type Date struct {
	year  int
	month time.Month
	day   int
}

// NewDate builds a date from its components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{year: year, month: month, day: day}
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{year: y, month: m, day: d}
}

// ParseDate parses an ISO formatted date such as "2026-01-23".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("failed to parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Time returns the date at midnight UTC.
func (d Date) Time() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

// IsZero reports whether d is the zero date.
func (d Date) IsZero() bool {
	return d.year == 0 && d.month == 0 && d.day == 0
}

func (d Date) String() string {
	return d.Time().Format(DateLayout)
}

// Format renders the date with an arbitrary time layout.
func (d Date) Format(layout string) string {
	return d.Time().Format(layout)
}

// Before reports whether d falls before o.
func (d Date) Before(o Date) bool {
	if d.year != o.year {
		return d.year < o.year
	}
	if d.month != o.month {
		return d.month < o.month
	}
	return d.day < o.day
}

// After reports whether d falls after o.
func (d Date) After(o Date) bool {
	return o.Before(d)
}

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// MarshalCSV renders the date for csv columns.
func (d Date) MarshalCSV() (string, error) {
	return d.String(), nil
}

// UnmarshalCSV parses a csv date column.
func (d *Date) UnmarshalCSV(s string) error {
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON renders the date as a quoted ISO string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON parses a quoted ISO date string.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid date literal %s", s)
	}
	return d.UnmarshalCSV(s[1 : len(s)-1])
}
