package stats

import (
	"testing"
	"time"

	"github.com/good-yellow-bee/pricedesk/internal/models"
)

var testNow = time.Date(2024, 6, 12, 15, 30, 0, 0, time.Local)

func rec(status string, ts time.Time, fields map[string]any) models.Record {
	r := models.NewRecord()
	r.Status = status
	if !ts.IsZero() {
		r.Timestamp = &ts
	}
	for k, v := range fields {
		r.SetField(k, v)
	}
	return r
}

func TestCompute(t *testing.T) {
	records := []models.Record{
		rec("unread", testNow.Add(-time.Hour), nil),
		rec("read", testNow.Add(-25*time.Hour), nil),
		rec("unread", time.Time{}, nil),
		rec("unread", testNow.Add(time.Hour), nil), // clock skew: not "today" yet
	}
	defs := []Def{
		{Key: "total", Label: "Total", Match: Total},
		{Key: "today", Label: "Today", Match: Today},
		{Key: "unread", Label: "Unread", Match: StatusIs("unread")},
	}

	got := Compute(records, defs, testNow)

	want := map[string]int{"total": 4, "today": 1, "unread": 3}
	for key, w := range want {
		if v, ok := Lookup(got, key); !ok || v != w {
			t.Errorf("%s = %d, want %d", key, v, w)
		}
	}
	if got[0].Key != "total" || got[2].Key != "unread" {
		t.Errorf("KPI order not preserved: %+v", got)
	}
}

func TestCompute_Empty(t *testing.T) {
	got := Compute(nil, []Def{{Key: "total", Match: Total}}, testNow)
	if got[0].Value != 0 {
		t.Errorf("total = %d, want 0", got[0].Value)
	}
}

func TestCompute_DistinctAndCategory(t *testing.T) {
	records := []models.Record{
		rec("success", testNow, map[string]any{"email": "a@example.com"}),
		rec("failed", testNow, map[string]any{"email": "b@example.com"}),
		rec("success", testNow, map[string]any{"email": "a@example.com"}),
		rec("success", testNow, map[string]any{"email": ""}),
	}
	records[1].Category = "price_alert_created"
	records[2].Category = "price_alert"

	defs := []Def{
		{Key: "unique_users", Distinct: "email"},
		{Key: "unique_ok", Match: StatusIs("success"), Distinct: "email"},
		{Key: "alerts", Match: CategoryIs("price_alert", "price_alert_created")},
	}
	got := Compute(records, defs, testNow)

	want := map[string]int{"unique_users": 2, "unique_ok": 1, "alerts": 2}
	for key, w := range want {
		if v, ok := Lookup(got, key); !ok || v != w {
			t.Errorf("%s = %d, want %d", key, v, w)
		}
	}
}
