// Package stats computes the single-number KPIs shown above each dashboard
// table. KPIs always reduce over the whole loaded collection, never over the
// filtered rows.
package stats

import (
	"time"

	"github.com/good-yellow-bee/pricedesk/internal/filter"
	"github.com/good-yellow-bee/pricedesk/internal/models"
)

// Predicate selects records counted by a KPI.
type Predicate func(rec *models.Record, now time.Time) bool

// Def declares one KPI. A nil Match selects every record.
type Def struct {
	Key   string
	Label string
	Match Predicate
	// Distinct, when set, makes the KPI count distinct non-empty values of
	// this field among the selected records instead of the records.
	Distinct string
}

// Compute evaluates defs over records in declaration order.
func Compute(records []models.Record, defs []Def, now time.Time) []models.KPI {
	out := make([]models.KPI, len(defs))
	seen := make([]map[string]struct{}, len(defs))
	for i, d := range defs {
		out[i] = models.KPI{Key: d.Key, Label: d.Label}
		if d.Distinct != "" {
			seen[i] = make(map[string]struct{})
		}
	}
	for ri := range records {
		rec := &records[ri]
		for i, d := range defs {
			if d.Match != nil && !d.Match(rec, now) {
				continue
			}
			if seen[i] == nil {
				out[i].Value++
				continue
			}
			if v := rec.Text(d.Distinct); v != "" {
				seen[i][v] = struct{}{}
			}
		}
	}
	for i, s := range seen {
		if s != nil {
			out[i].Value = len(s)
		}
	}
	return out
}

// Lookup returns the value of the KPI with key.
func Lookup(kpis []models.KPI, key string) (int, bool) {
	for _, k := range kpis {
		if k.Key == key {
			return k.Value, true
		}
	}
	return 0, false
}

// Total counts every record.
func Total(*models.Record, time.Time) bool {
	return true
}

// Today counts records dated between local midnight and now.
func Today(rec *models.Record, now time.Time) bool {
	if !rec.HasTime() {
		return false
	}
	ts := rec.Time()
	return !ts.Before(filter.StartOfDay(now)) && !ts.After(now)
}

// StatusIs counts records whose status is any of statuses.
func StatusIs(statuses ...string) Predicate {
	return func(rec *models.Record, _ time.Time) bool {
		for _, s := range statuses {
			if rec.Status == s {
				return true
			}
		}
		return false
	}
}

// CategoryIs counts records whose category is any of categories.
func CategoryIs(categories ...string) Predicate {
	return func(rec *models.Record, _ time.Time) bool {
		for _, c := range categories {
			if rec.Category == c {
				return true
			}
		}
		return false
	}
}
