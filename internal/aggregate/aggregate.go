// Package aggregate derives chart series from record collections.
// Every function is pure and returns models.AggregateResult with a fixed
// label order.
package aggregate

import (
	"math"
	"sort"
	"time"

	"github.com/good-yellow-bee/pricedesk/internal/filter"
	"github.com/good-yellow-bee/pricedesk/internal/models"
)

// DefaultFallback is the bucket label for records whose value is missing or
// matches no declared bucket.
const DefaultFallback = "Other"

// Ellipsis is appended to truncated ranking labels.
const Ellipsis = "..."

// Bucket is one declared category of a distribution. Values lists the
// values counted under it, after alias mapping when Rules is set.
type Bucket struct {
	Label  string   `yaml:"label" json:"label"`
	Values []string `yaml:"values" json:"values"`
}

// DistributionConfig describes a categorical distribution.
type DistributionConfig struct {
	// Field is the record field grouped on ("category", "status", or a field name).
	Field string
	// Buckets are emitted in this order, zero counts included.
	Buckets []Bucket
	// Fallback labels the catch-all bucket. Empty means DefaultFallback.
	Fallback string
	// OmitFallback drops the catch-all bucket from the output when it is empty.
	OmitFallback bool
	// Rules maps raw values onto their canonical filter value before bucket
	// lookup, so buckets share the dashboard's alias table.
	Rules *filter.Rules
}

// OverTime counts records per local calendar day for the last days days,
// today included. Labels are short weekday names, oldest first.
func OverTime(records []models.Record, days int, now time.Time) models.AggregateResult {
	if days <= 0 {
		return models.NewAggregateResult(0)
	}

	today := filter.StartOfDay(now)
	starts := make([]time.Time, days)
	for i := 0; i < days; i++ {
		starts[i] = today.AddDate(0, 0, i-(days-1))
	}
	end := today.AddDate(0, 0, 1)

	counts := make([]float64, days)
	for i := range records {
		r := &records[i]
		if !r.HasTime() {
			continue
		}
		ts := r.Time().In(now.Location())
		if ts.Before(starts[0]) || !ts.Before(end) {
			continue
		}
		// Walk back from the newest day; days is small.
		for d := days - 1; d >= 0; d-- {
			if !ts.Before(starts[d]) {
				counts[d]++
				break
			}
		}
	}

	out := models.NewAggregateResult(days)
	for i, start := range starts {
		out.Add(start.Weekday().String()[:3], counts[i])
	}
	return out
}

// Distribution groups records into the configured buckets.
func Distribution(records []models.Record, cfg DistributionConfig) models.AggregateResult {
	index := make(map[string]int)
	for i, b := range cfg.Buckets {
		for _, v := range b.Values {
			index[v] = i
		}
	}

	counts := make([]float64, len(cfg.Buckets))
	var other float64
	for i := range records {
		v := cfg.Rules.Canonical(cfg.Field, records[i].Text(cfg.Field))
		if bi, ok := index[v]; ok && v != "" {
			counts[bi]++
			continue
		}
		other++
	}

	out := models.NewAggregateResult(len(cfg.Buckets) + 1)
	for i, b := range cfg.Buckets {
		out.Add(b.Label, counts[i])
	}
	if !cfg.OmitFallback || other > 0 {
		label := cfg.Fallback
		if label == "" {
			label = DefaultFallback
		}
		out.Add(label, other)
	}
	return out
}

// CountBy groups records by the raw value of field, ordered by count
// descending then label ascending. Empty values are counted under fallback.
func CountBy(records []models.Record, field, fallback string) []Ranked {
	if fallback == "" {
		fallback = DefaultFallback
	}
	counts := make(map[string]float64)
	for i := range records {
		v := records[i].Text(field)
		if v == "" {
			v = fallback
		}
		counts[v]++
	}

	items := make([]Ranked, 0, len(counts))
	for label, n := range counts {
		items = append(items, Ranked{Label: label, Value: n})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Value != items[j].Value {
			return items[i].Value > items[j].Value
		}
		return items[i].Label < items[j].Label
	})
	return items
}

// Percentage returns value/total*100 rounded to one decimal, or 0 when
// total is 0.
func Percentage(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	p := value / total * 100
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0
	}
	return math.Round(p*10) / 10
}

// Percentages converts a result's values into percentages of its total.
func Percentages(in models.AggregateResult) models.AggregateResult {
	total := in.Total()
	out := models.NewAggregateResult(in.Len())
	for i, label := range in.Labels {
		out.Add(label, Percentage(in.Values[i], total))
	}
	return out
}

// LoginStatus counts successful and failed login events. Other statuses
// are not charted.
func LoginStatus(records []models.Record) models.AggregateResult {
	var ok, failed float64
	for i := range records {
		switch records[i].Status {
		case "success", "successful", "succeeded":
			ok++
		case "failed", "failure", "fail", "blocked":
			failed++
		}
	}
	out := models.NewAggregateResult(2)
	out.Add("Successful", ok)
	out.Add("Failed", failed)
	return out
}
