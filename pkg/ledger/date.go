package ledger

import (
	"fmt"
	"time"
)

// DateLayout is the only accepted textual date form.
const DateLayout = "2006-01-02"

// Date is a calendar date with no time-of-day component.
// The zero value is 0001-01-01 and sorts before every real date.
type Date struct {
	t time.Time
}

// NewDate returns the date for year, month and day, normalizing overflow
// the way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

// MustParseDate is like ParseDate but panics on malformed input.
// Intended for tests and constants.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) Year() int          { return d.t.Year() }
func (d Date) Month() time.Month  { return d.t.Month() }
func (d Date) Day() int           { return d.t.Day() }
func (d Date) IsZero() bool       { return d.t.IsZero() }
func (d Date) Time() time.Time    { return d.t }
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) After(o Date) bool  { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool  { return d.t.Equal(o.t) }

// AddDays returns the date n days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// SameMonth reports whether d and o fall in the same calendar month of the same year.
func (d Date) SameMonth(o Date) bool {
	return d.Year() == o.Year() && d.Month() == o.Month()
}

// EndOfMonth returns the last day of d's month.
// Day 28 plus four days always lands in the following month; stepping back
// by that date's day-of-month gives the last day of d's month.
func (d Date) EndOfMonth() Date {
	next := NewDate(d.Year(), d.Month(), 28).AddDays(4)
	return next.AddDays(-next.Day())
}

func (d Date) String() string {
	return d.t.Format(DateLayout)
}

// MarshalText encodes the date as YYYY-MM-DD.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a YYYY-MM-DD date.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Clock supplies today's date for transactions entered without one.
type Clock interface {
	Today() Date
}

// SystemClock reads the local wall clock.
type SystemClock struct{}

// Today returns the current local date.
func (SystemClock) Today() Date {
	return DateOf(time.Now())
}

// FixedClock always returns the same date.
type FixedClock Date

// Today returns the fixed date.
func (c FixedClock) Today() Date {
	return Date(c)
}
