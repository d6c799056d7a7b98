package models

// AggregateResult is the chart series shape: labels and values aligned by index.
type AggregateResult struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// NewAggregateResult allocates a result with room for n points.
func NewAggregateResult(n int) AggregateResult {
	return AggregateResult{
		Labels: make([]string, 0, n),
		Values: make([]float64, 0, n),
	}
}

// Add appends one label/value pair.
func (a *AggregateResult) Add(label string, value float64) {
	a.Labels = append(a.Labels, label)
	a.Values = append(a.Values, value)
}

// Len returns the number of points.
func (a AggregateResult) Len() int {
	return len(a.Labels)
}

// Value returns the value for label and whether it exists.
func (a AggregateResult) Value(label string) (float64, bool) {
	for i, l := range a.Labels {
		if l == label {
			return a.Values[i], true
		}
	}
	return 0, false
}

// Total sums all values.
func (a AggregateResult) Total() float64 {
	var sum float64
	for _, v := range a.Values {
		sum += v
	}
	return sum
}

// KPI is a single-number summary card value.
type KPI struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value int    `json:"value"`
}
