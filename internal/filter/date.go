package filter

import (
	"fmt"
	"time"

	"github.com/good-yellow-bee/pricedesk/internal/models"
)

// DateFilter keeps records whose timestamp lies in [From, To].
type DateFilter struct {
	From    time.Time
	To      time.Time
	Enabled bool
}

// NewDateFilter creates a filter from parsed from/to times.
// If both are zero, filter is disabled.
func NewDateFilter(from, to time.Time) *DateFilter {
	return &DateFilter{
		From:    from,
		To:      to,
		Enabled: !from.IsZero() || !to.IsZero(),
	}
}

// WindowFilter builds the DateFilter for a time window relative to now.
// Week and month use wall-clock subtraction, not calendar arithmetic.
func WindowFilter(c models.FilterCriteria, now time.Time) *DateFilter {
	switch c.Window {
	case models.WindowToday:
		return NewDateFilter(StartOfDay(now), now)
	case models.WindowWeek:
		return NewDateFilter(now.Add(-7*24*time.Hour), now)
	case models.WindowMonth:
		return NewDateFilter(now.Add(-30*24*time.Hour), now)
	case models.WindowRange:
		return NewDateFilter(c.From, c.To)
	default:
		return NewDateFilter(time.Time{}, time.Time{})
	}
}

// Matches reports whether the record falls in range. A disabled filter
// matches everything; an enabled one never matches an undated record.
func (f *DateFilter) Matches(rec *models.Record) bool {
	if !f.Enabled {
		return true
	}
	if !rec.HasTime() {
		return false
	}
	return f.MatchesTime(rec.Time())
}

// MatchesTime checks if a timestamp is within the date range (inclusive).
func (f *DateFilter) MatchesTime(ts time.Time) bool {
	if !f.Enabled {
		return true
	}

	if !f.From.IsZero() && ts.Before(f.From) {
		return false
	}

	if !f.To.IsZero() && ts.After(f.To) {
		return false
	}

	return true
}

// StartOfDay returns local midnight of t's day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ParseDate parses a date string in YYYY-MM-DD or RFC3339 format.
// For YYYY-MM-DD, it returns start of day in local timezone.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("invalid date format: %q (expected YYYY-MM-DD or RFC3339)", s)
}

// ParseDateEndOfDay parses a date string and returns end of day for YYYY-MM-DD format.
// For RFC3339, returns the exact time. For YYYY-MM-DD, returns 23:59:59.999999999.
func ParseDateEndOfDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
	}

	return time.Time{}, fmt.Errorf("invalid date format: %q (expected YYYY-MM-DD or RFC3339)", s)
}
