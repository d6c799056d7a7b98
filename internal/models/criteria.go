package models

import (
	"fmt"
	"time"
)

// TimeWindow selects which part of the timeline a filter pass keeps.
type TimeWindow string

const (
	WindowAll   TimeWindow = "all"
	WindowToday TimeWindow = "today"
	WindowWeek  TimeWindow = "week"
	WindowMonth TimeWindow = "month"
	WindowRange TimeWindow = "range"
)

// ParseTimeWindow converts a string to TimeWindow. Empty means all.
func ParseTimeWindow(s string) (TimeWindow, error) {
	switch s {
	case "", "all":
		return WindowAll, nil
	case "today":
		return WindowToday, nil
	case "week", "7d":
		return WindowWeek, nil
	case "month", "30d":
		return WindowMonth, nil
	case "range":
		return WindowRange, nil
	default:
		return "", fmt.Errorf("invalid time window: %q (expected all, today, week, month or range)", s)
	}
}

// FilterCriteria is the immutable value object describing one filter pass.
// It is rebuilt from request state before every pass.
type FilterCriteria struct {
	// Search is matched case-insensitively against the dashboard's search fields.
	Search string `json:"search,omitempty"`

	// Categorical maps a field name to the required value. "" and "all" pass.
	Categorical map[string]string `json:"categorical,omitempty"`

	// Window selects the time window. From/To are used only for WindowRange.
	Window TimeWindow `json:"window"`
	From   time.Time  `json:"from,omitempty"`
	To     time.Time  `json:"to,omitempty"`

	// Expression is an optional boolean expr-lang predicate.
	Expression string `json:"expression,omitempty"`
}

// AllCriteria returns criteria matching every record.
func AllCriteria() FilterCriteria {
	return FilterCriteria{Window: WindowAll}
}

// IsPassThrough reports whether the criteria keep every record.
func (c FilterCriteria) IsPassThrough() bool {
	if c.Search != "" || c.Expression != "" {
		return false
	}
	if c.Window != "" && c.Window != WindowAll {
		return false
	}
	for _, v := range c.Categorical {
		if v != "" && v != "all" {
			return false
		}
	}
	return true
}
