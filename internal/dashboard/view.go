package dashboard

import (
	"errors"
	"time"

	"github.com/good-yellow-bee/pricedesk/internal/filter"
	"github.com/good-yellow-bee/pricedesk/internal/models"
	"github.com/good-yellow-bee/pricedesk/internal/normalize"
	"github.com/good-yellow-bee/pricedesk/internal/stats"
)

// ErrUnknownChart is returned for a chart name the dashboard does not declare.
var ErrUnknownChart = errors.New("unknown chart")

// ChartResult is one computed chart.
type ChartResult struct {
	Name   string                 `json:"name"`
	Title  string                 `json:"title"`
	Scope  Scope                  `json:"scope"`
	Result models.AggregateResult `json:"data"`
}

// View is what a dashboard renders for one set of criteria: the filtered
// rows, KPIs over the whole collection and every chart.
type View struct {
	Dashboard string          `json:"dashboard"`
	Title     string          `json:"title"`
	Total     int             `json:"total"`
	Matched   int             `json:"matched"`
	Rows      []models.Record `json:"rows"`
	Stats     []models.KPI    `json:"stats"`
	Charts    []ChartResult   `json:"charts"`
	LoadedAt  time.Time       `json:"loaded_at,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// NewNormalizer returns a normalizer for the dashboard's schema.
func NewNormalizer(def *Definition) *normalize.Normalizer {
	return normalize.New(def.Schema)
}

// BuildView runs filter, stats and charts over an already normalized
// collection. records is not modified.
func BuildView(def *Definition, records []models.Record, criteria models.FilterCriteria, now time.Time) (*View, error) {
	f, err := filter.New(def.FilterRules(), criteria)
	if err != nil {
		return nil, err
	}
	rows := f.Apply(records, now)

	v := &View{
		Dashboard: def.Name,
		Title:     def.Title,
		Total:     len(records),
		Matched:   len(rows),
		Rows:      rows,
		Stats:     stats.Compute(records, def.Stats, now),
		Charts:    make([]ChartResult, 0, len(def.Charts)),
	}
	for _, c := range def.Charts {
		v.Charts = append(v.Charts, ChartResult{
			Name:   c.Name,
			Title:  c.Title,
			Scope:  c.Scope,
			Result: c.Compute(&def.Filter, records, rows, now),
		})
	}
	return v, nil
}

// BuildChart computes a single chart.
func BuildChart(def *Definition, name string, records []models.Record, criteria models.FilterCriteria, now time.Time) (models.AggregateResult, error) {
	c, ok := def.Chart(name)
	if !ok {
		return models.AggregateResult{}, ErrUnknownChart
	}
	var rows []models.Record
	if c.Scope == ScopeFiltered {
		f, err := filter.New(def.FilterRules(), criteria)
		if err != nil {
			return models.AggregateResult{}, err
		}
		rows = f.Apply(records, now)
	}
	return c.Compute(&def.Filter, records, rows, now), nil
}

// Analyze runs the whole pipeline over a raw payload.
func Analyze(def *Definition, raws []map[string]any, criteria models.FilterCriteria, now time.Time) (*View, error) {
	records := NewNormalizer(def).NormalizeAll(raws)
	return BuildView(def, records, criteria, now)
}
