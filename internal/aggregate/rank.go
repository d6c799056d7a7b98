package aggregate

import (
	"sort"

	"github.com/good-yellow-bee/pricedesk/internal/models"
)

// Ranked is one candidate for a top-N chart.
type Ranked struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// RankConfig configures a top-N ranking.
type RankConfig struct {
	// LabelField names the field used as the chart label.
	LabelField string
	// ValueField names the numeric field ranked on. Empty ranks groups of
	// LabelField by record count instead.
	ValueField string
	// N is how many entries to keep.
	N int
	// MaxLabel truncates labels longer than this many runes. 0 disables.
	MaxLabel int
}

// TopN sorts items by value descending (stable for ties), keeps the first n
// and truncates labels to maxLabel runes. n <= 0 keeps everything.
func TopN(items []Ranked, n, maxLabel int) models.AggregateResult {
	sorted := make([]Ranked, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value > sorted[j].Value
	})

	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}

	out := models.NewAggregateResult(len(sorted))
	for _, it := range sorted {
		out.Add(TruncateLabel(it.Label, maxLabel), it.Value)
	}
	return out
}

// RankByField ranks individual records by a numeric field.
func RankByField(records []models.Record, labelField, valueField string, n, maxLabel int) models.AggregateResult {
	items := make([]Ranked, 0, len(records))
	for i := range records {
		label := records[i].Text(labelField)
		if label == "" {
			label = "Unknown"
		}
		items = append(items, Ranked{Label: label, Value: records[i].Number(valueField)})
	}
	return TopN(items, n, maxLabel)
}

// RankByCount ranks the distinct values of groupField by how many records
// carry them.
func RankByCount(records []models.Record, groupField string, n, maxLabel int) models.AggregateResult {
	return TopN(CountBy(records, groupField, "Unknown"), n, maxLabel)
}

// Rank builds the ranking cfg describes.
func Rank(records []models.Record, cfg RankConfig) models.AggregateResult {
	if cfg.ValueField == "" {
		return RankByCount(records, cfg.LabelField, cfg.N, cfg.MaxLabel)
	}
	return RankByField(records, cfg.LabelField, cfg.ValueField, cfg.N, cfg.MaxLabel)
}

// TruncateLabel keeps the first max runes of s and appends an ellipsis when
// anything was cut.
func TruncateLabel(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + Ellipsis
}
