package aggregate

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/good-yellow-bee/pricedesk/internal/filter"
	"github.com/good-yellow-bee/pricedesk/internal/models"
)

// Wednesday afternoon.
var testNow = time.Date(2024, 6, 12, 15, 30, 0, 0, time.Local)

func rec(category, status string, ts time.Time, fields map[string]any) models.Record {
	r := models.NewRecord()
	r.Category = category
	r.Status = status
	if !ts.IsZero() {
		r.Timestamp = &ts
	}
	for k, v := range fields {
		r.SetField(k, v)
	}
	return r
}

func notificationBuckets() DistributionConfig {
	return DistributionConfig{
		Field: "category",
		Buckets: []Bucket{
			{Label: "User Registration", Values: []string{"user_registration", "user_registered"}},
			{Label: "Price Alert", Values: []string{"price_alert", "price_alert_created"}},
			{Label: "Business Post", Values: []string{"business_post"}},
		},
	}
}

func TestOverTime_Chronology(t *testing.T) {
	records := []models.Record{
		rec("a", "", testNow, nil),
		rec("a", "", testNow.AddDate(0, 0, -6), nil),
		rec("a", "", testNow.AddDate(0, 0, -3), nil),
		rec("a", "", testNow.AddDate(0, 0, -1), nil),
		rec("a", "", testNow.AddDate(0, 0, -7), nil), // outside the window
		rec("a", "", time.Time{}, nil),               // undated
		rec("a", "", testNow, nil),
	}

	got := OverTime(records, 7, testNow)

	wantLabels := []string{"Thu", "Fri", "Sat", "Sun", "Mon", "Tue", "Wed"}
	if !reflect.DeepEqual(got.Labels, wantLabels) {
		t.Errorf("labels = %v, want %v", got.Labels, wantLabels)
	}
	wantValues := []float64{1, 0, 0, 1, 0, 1, 2}
	if !reflect.DeepEqual(got.Values, wantValues) {
		t.Errorf("values = %v, want %v", got.Values, wantValues)
	}

	// Reversing input order must not change the output.
	reversed := make([]models.Record, len(records))
	for i, r := range records {
		reversed[len(records)-1-i] = r
	}
	if again := OverTime(reversed, 7, testNow); !reflect.DeepEqual(again, got) {
		t.Errorf("order dependent: %v vs %v", again, got)
	}
}

func TestOverTime_DayBoundaries(t *testing.T) {
	midnight := time.Date(2024, 6, 12, 0, 0, 0, 0, time.Local)
	records := []models.Record{
		rec("a", "", midnight, nil),                     // today
		rec("a", "", midnight.Add(-time.Nanosecond), nil), // yesterday
	}
	got := OverTime(records, 2, testNow)
	if want := []float64{1, 1}; !reflect.DeepEqual(got.Values, want) {
		t.Errorf("values = %v, want %v", got.Values, want)
	}
}

func TestOverTime_ZeroDays(t *testing.T) {
	if got := OverTime(nil, 0, testNow); got.Len() != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
}

func TestDistribution_AliasMerging(t *testing.T) {
	records := []models.Record{
		rec("price_alert_created", "", testNow, nil),
		rec("price_alert", "", testNow, nil),
		rec("price_alert_created", "", testNow, nil),
	}
	got := Distribution(records, notificationBuckets())
	if v, _ := got.Value("Price Alert"); v != 3 {
		t.Errorf("Price Alert = %v, want 3", v)
	}
}

func TestDistribution_RulesAliases(t *testing.T) {
	cfg := DistributionConfig{
		Field: "category",
		Buckets: []Bucket{
			{Label: "Price Alert", Values: []string{"price_alert"}},
			{Label: "Password Change", Values: []string{"password_change"}},
		},
		Rules: &filter.Rules{Aliases: map[string]map[string][]string{
			"category": {
				"price_alert":     {"price_alert_created"},
				"password_change": {"password_change_attempted", "password_change_failed", "password_change_success"},
			},
		}},
	}
	records := []models.Record{
		rec("price_alert_created", "", testNow, nil),
		rec("price_alert", "", testNow, nil),
		rec("password_change_failed", "", testNow, nil),
		rec("password_change_success", "", testNow, nil),
		rec("password_change", "", testNow, nil),
	}
	got := Distribution(records, cfg)
	want := models.AggregateResult{
		Labels: []string{"Price Alert", "Password Change", "Other"},
		Values: []float64{2, 3, 0},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestDistribution_ZeroBucketsEmittedInOrder(t *testing.T) {
	got := Distribution(nil, notificationBuckets())
	want := models.AggregateResult{
		Labels: []string{"User Registration", "Price Alert", "Business Post", "Other"},
		Values: []float64{0, 0, 0, 0},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestDistribution_MissingFieldGoesToFallback(t *testing.T) {
	records := []models.Record{
		rec("", "", testNow, nil),
		rec("something_new", "", testNow, nil),
		rec("business_post", "", testNow, nil),
	}
	cfg := notificationBuckets()
	cfg.Fallback = "Unknown"

	got := Distribution(records, cfg)
	if v, _ := got.Value("Unknown"); v != 2 {
		t.Errorf("Unknown = %v, want 2", v)
	}
	if got.Total() != 3 {
		t.Errorf("total = %v, want 3 (no record dropped)", got.Total())
	}
}

func TestDistribution_OmitFallback(t *testing.T) {
	cfg := notificationBuckets()
	cfg.OmitFallback = true

	got := Distribution([]models.Record{rec("price_alert", "", testNow, nil)}, cfg)
	if got.Len() != 3 {
		t.Errorf("empty fallback should be omitted, got %v", got.Labels)
	}
	got = Distribution([]models.Record{rec("mystery", "", testNow, nil)}, cfg)
	if got.Len() != 4 {
		t.Errorf("non-empty fallback should be kept, got %v", got.Labels)
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		value, total, want float64
	}{
		{0, 0, 0},
		{5, 0, 0},
		{1, 3, 33.3},
		{2, 3, 66.7},
		{3, 3, 100},
		{1, 8, 12.5},
	}
	for _, tt := range tests {
		got := Percentage(tt.value, tt.total)
		if got != tt.want {
			t.Errorf("Percentage(%v, %v) = %v, want %v", tt.value, tt.total, got, tt.want)
		}
		if math.IsNaN(got) || math.IsInf(got, 0) {
			t.Errorf("Percentage(%v, %v) is not finite", tt.value, tt.total)
		}
	}
}

func TestPercentages(t *testing.T) {
	in := models.AggregateResult{Labels: []string{"a", "b"}, Values: []float64{1, 3}}
	got := Percentages(in)
	if want := []float64{25, 75}; !reflect.DeepEqual(got.Values, want) {
		t.Errorf("values = %v, want %v", got.Values, want)
	}

	empty := Percentages(models.AggregateResult{Labels: []string{"a"}, Values: []float64{0}})
	if empty.Values[0] != 0 {
		t.Errorf("zero total should yield 0, got %v", empty.Values[0])
	}
}

func TestLoginStatus(t *testing.T) {
	records := []models.Record{
		rec("login", "success", testNow, nil),
		rec("login", "failed", testNow, nil),
		rec("login", "success", testNow, nil),
	}
	got := LoginStatus(records)
	want := models.AggregateResult{
		Labels: []string{"Successful", "Failed"},
		Values: []float64{2, 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestTopN(t *testing.T) {
	items := []Ranked{
		{Label: "Samsung Galaxy S24 Ultra 512GB Titanium Black", Value: 10},
		{Label: "Pixel 8", Value: 30},
		{Label: "iPhone 15", Value: 30},
		{Label: "Xperia", Value: 5},
	}
	got := TopN(items, 3, 20)

	wantLabels := []string{"Pixel 8", "iPhone 15", "Samsung Galaxy S24 U..."}
	if !reflect.DeepEqual(got.Labels, wantLabels) {
		t.Errorf("labels = %v, want %v", got.Labels, wantLabels)
	}
	if want := []float64{30, 30, 10}; !reflect.DeepEqual(got.Values, want) {
		t.Errorf("values = %v, want %v", got.Values, want)
	}
	if items[0].Value != 10 {
		t.Error("TopN reordered its input")
	}
}

func TestRankByCount(t *testing.T) {
	records := []models.Record{
		rec("", "", testNow, map[string]any{"product": "iPhone 15"}),
		rec("", "", testNow, map[string]any{"product": "Pixel 8"}),
		rec("", "", testNow, map[string]any{"product": "iPhone 15"}),
		rec("", "", testNow, map[string]any{"product": ""}),
	}
	got := RankByCount(records, "product", 2, 0)
	want := models.AggregateResult{Labels: []string{"iPhone 15", "Pixel 8"}, Values: []float64{2, 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestRankByField(t *testing.T) {
	records := []models.Record{
		rec("", "", testNow, map[string]any{"title": "Spring sale", "views": float64(120)}),
		rec("", "", testNow, map[string]any{"title": "Clearance", "views": float64(400)}),
		rec("", "", testNow, map[string]any{"title": "Launch", "views": float64(80)}),
	}
	got := Rank(records, RankConfig{LabelField: "title", ValueField: "views", N: 2})
	want := models.AggregateResult{Labels: []string{"Clearance", "Spring sale"}, Values: []float64{400, 120}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestTruncateLabel(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"eleven chars", 10, "eleven cha..."},
		{"ünïcödé-label", 5, "ünïcö..."},
		{"anything", 0, "anything"},
	}
	for _, tt := range tests {
		if got := TruncateLabel(tt.in, tt.max); got != tt.want {
			t.Errorf("TruncateLabel(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
