// Package filter implements the predicate engine that selects the records
// shown in a dashboard table.
package filter

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/good-yellow-bee/pricedesk/internal/models"
)

// Rules is the per-dashboard filter configuration.
type Rules struct {
	// SearchFields are the canonical fields scanned by the search predicate.
	SearchFields []string

	// Aliases maps field -> filter value -> extra record values that also
	// match it, e.g. "category" -> "price_alert" -> ["price_alert_created"].
	Aliases map[string]map[string][]string

	// Fields lists the extra record fields that accept categorical filters.
	// category, type, status and id always do, as do SearchFields.
	Fields []string
}

// ErrUnknownField is returned for a categorical filter on a field the
// dashboard does not have.
var ErrUnknownField = errors.New("unknown filter field")

// builtinFields are record attributes every dashboard filters on.
var builtinFields = []string{"category", "status", "id"}

// CanonicalField maps a filter field name onto the name alias tables are
// keyed under. "type" addresses the record category.
func CanonicalField(field string) string {
	if field == "type" {
		return "category"
	}
	return field
}

// Canonical maps a raw record value to the filter value it is an alias of.
// Values without an alias entry map to themselves.
func (r *Rules) Canonical(field, value string) string {
	if r == nil {
		return value
	}
	for canonical, aliases := range r.Aliases[CanonicalField(field)] {
		for _, a := range aliases {
			if a == value {
				return canonical
			}
		}
	}
	return value
}

// Accepts reports whether field may be used as a categorical filter.
func (r *Rules) Accepts(field string) bool {
	field = CanonicalField(field)
	for _, lists := range [][]string{builtinFields, r.SearchFields, r.Fields} {
		for _, f := range lists {
			if CanonicalField(f) == field {
				return true
			}
		}
	}
	_, ok := r.Aliases[field]
	return ok
}

// Filter is a compiled filter pass. It holds no record state.
type Filter struct {
	rules    *Rules
	criteria models.FilterCriteria
	search   string
	matcher  *ExprMatcher
}

// New compiles criteria for rules. It fails on an invalid expression, an
// unknown time window or a categorical filter on an unknown field.
func New(rules *Rules, criteria models.FilterCriteria) (*Filter, error) {
	if rules == nil {
		rules = &Rules{}
	}
	if criteria.Window == "" {
		criteria.Window = models.WindowAll
	}
	if _, err := models.ParseTimeWindow(string(criteria.Window)); err != nil {
		return nil, err
	}
	for field, want := range criteria.Categorical {
		if want != "" && want != "all" && !rules.Accepts(field) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
		}
	}

	f := &Filter{
		rules:    rules,
		criteria: criteria,
		search:   strings.ToLower(strings.TrimSpace(criteria.Search)),
	}
	if strings.TrimSpace(criteria.Expression) != "" {
		m, err := NewExprMatcher(criteria.Expression)
		if err != nil {
			return nil, err
		}
		f.matcher = m
	}
	return f, nil
}

// Apply compiles criteria and runs it over records.
func Apply(records []models.Record, criteria models.FilterCriteria, rules *Rules, now time.Time) ([]models.Record, error) {
	f, err := New(rules, criteria)
	if err != nil {
		return nil, err
	}
	return f.Apply(records, now), nil
}

// Apply returns the matching records, newest first. The input slice and
// its records are left untouched; the result holds copies.
func (f *Filter) Apply(records []models.Record, now time.Time) []models.Record {
	window := WindowFilter(f.criteria, now)

	out := make([]models.Record, 0, len(records))
	for i := range records {
		if f.matches(&records[i], window) {
			out = append(out, records[i].Clone())
		}
	}

	SortNewestFirst(out)
	return out
}

func (f *Filter) matches(rec *models.Record, window *DateFilter) bool {
	if !f.matchSearch(rec) || !f.matchCategorical(rec) || !window.Matches(rec) {
		return false
	}
	return f.matcher == nil || f.matcher.Match(rec)
}

func (f *Filter) matchSearch(rec *models.Record) bool {
	if f.search == "" {
		return true
	}
	for _, field := range f.rules.SearchFields {
		if strings.Contains(strings.ToLower(rec.Text(field)), f.search) {
			return true
		}
	}
	return false
}

func (f *Filter) matchCategorical(rec *models.Record) bool {
	for field, want := range f.criteria.Categorical {
		if want == "" || want == "all" {
			continue
		}
		if !MatchesValue(f.rules, field, rec.Text(field), want) {
			return false
		}
	}
	return true
}

// MatchesValue reports whether a record value satisfies a categorical filter
// value, honoring the alias table in rules.
func MatchesValue(rules *Rules, field, have, want string) bool {
	return have == want || rules.Canonical(field, have) == want
}

// SortNewestFirst orders records by timestamp descending. Undated records
// go after dated ones and keep their relative order.
func SortNewestFirst(records []models.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := &records[i], &records[j]
		switch {
		case a.HasTime() && b.HasTime():
			return a.Time().After(b.Time())
		case a.HasTime():
			return true
		default:
			return false
		}
	})
}
