package engine

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - Calendar-month accounting period
// =============================================================================

// Period is the accounting period for credits and pool budgets: a single
// calendar month in UTC, rendered as "2025-03". Awards and pool usage are
// keyed by Period; pool rollover advances it one month at a time.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the period containing t (interpreted in UTC).
func PeriodOf(t time.Time) Period {
	t = t.UTC()
	return Period{Year: t.Year(), Month: t.Month()}
}

// ParsePeriod parses the "2006-01" form. Returns ErrInvalidPeriod for
// anything else.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

// Start returns the first instant of the period (UTC).
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the first instant of the following period. Periods are
// half-open: [Start, End).
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, 0)
}

// Next returns the following calendar month.
func (p Period) Next() Period {
	return PeriodOf(p.End())
}

// Contains reports whether t falls within the period.
func (p Period) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(p.Start()) && t.Before(p.End())
}

// Before reports whether p precedes q.
func (p Period) Before(q Period) bool {
	if p.Year != q.Year {
		return p.Year < q.Year
	}
	return p.Month < q.Month
}

// IsZero reports whether the period is unset.
func (p Period) IsZero() bool {
	return p.Year == 0
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}
