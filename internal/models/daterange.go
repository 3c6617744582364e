package models

import (
	"fmt"
	"time"
)

// DateLayout is the wire and storage format for report dates.
const DateLayout = "2006-01-02"

// DateRange is an inclusive range of UTC calendar dates.
type DateRange struct {
	From time.Time
	To   time.Time
}

// NewDateRange truncates both bounds to UTC dates and checks From <= To.
func NewDateRange(from, to time.Time) (DateRange, error) {
	r := DateRange{From: TruncateDate(from), To: TruncateDate(to)}
	if r.From.After(r.To) {
		return DateRange{}, fmt.Errorf("date range start %s is after end %s", r.From.Format(DateLayout), r.To.Format(DateLayout))
	}
	return r, nil
}

// ParseDateRange parses both bounds with ParseDate and validates the range.
func ParseDateRange(from, to string) (DateRange, error) {
	f, err := ParseDate(from)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid from date: %w", err)
	}
	t, err := ParseDate(to)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid to date: %w", err)
	}
	return NewDateRange(f, t)
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp and returns the UTC date.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD or RFC 3339, got %q", s)
	}
	return TruncateDate(t), nil
}

// TruncateDate drops the time of day after converting to UTC.
func TruncateDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Days returns the inclusive number of calendar days in the range.
func (r DateRange) Days() int {
	return int(r.To.Sub(r.From).Hours()/24) + 1
}

// FromString formats the start date.
func (r DateRange) FromString() string { return r.From.Format(DateLayout) }

// ToString formats the end date.
func (r DateRange) ToString() string { return r.To.Format(DateLayout) }

func (r DateRange) String() string {
	return r.FromString() + " - " + r.ToString()
}
