package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/good-yellow-bee/pricedesk/internal/dashboard"
	"github.com/good-yellow-bee/pricedesk/internal/models"
)

func TestCriteriaFlags(t *testing.T) {
	tests := []struct {
		name    string
		flags   criteriaFlags
		wantErr bool
		check   func(t *testing.T, c models.FilterCriteria)
	}{
		{
			name:  "search and filters",
			flags: criteriaFlags{search: "phone", filters: []string{"status=pending", "category=system"}},
			check: func(t *testing.T, c models.FilterCriteria) {
				if c.Search != "phone" || c.Categorical["status"] != "pending" || c.Categorical["category"] != "system" {
					t.Errorf("criteria = %+v", c)
				}
			},
		},
		{
			name:  "date range implies range window",
			flags: criteriaFlags{from: "2024-06-01", to: "2024-06-30"},
			check: func(t *testing.T, c models.FilterCriteria) {
				if c.Window != models.WindowRange {
					t.Errorf("window = %s, want range", c.Window)
				}
			},
		},
		{name: "malformed filter", flags: criteriaFlags{filters: []string{"status"}}, wantErr: true},
		{name: "bad window", flags: criteriaFlags{window: "fortnight"}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, err := tc.flags.criteria()
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if tc.check != nil {
				tc.check(t, c)
			}
		})
	}
}

func TestAnalyzeFile(t *testing.T) {
	def, err := lookupDashboard("business-posts")
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "posts.json")
	payload := `{"success":true,"posts":[
		{"_id":"p1","title":"Spring sale","status":"pending","views":10,"businessName":"Acme"},
		{"_id":"p2","title":"New store","status":"approved","views":50},
		{"_id":"p3","title":"Review me","status":"pending_review","views":5}
	]}`
	if err := os.WriteFile(path, []byte(payload), 0644); err != nil {
		t.Fatal(err)
	}

	criteria, err := (&criteriaFlags{filters: []string{"status=pending"}}).criteria()
	if err != nil {
		t.Fatal(err)
	}
	v, err := analyzeFile(def, path, criteria, time.Now())
	if err != nil {
		t.Fatalf("analyzeFile: %v", err)
	}
	if v.Total != 3 || v.Matched != 2 {
		t.Errorf("total = %d, matched = %d, want 3 and 2", v.Total, v.Matched)
	}

	if err := os.WriteFile(path, []byte(`{"success":false,"message":"Forbidden"}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := analyzeFile(def, path, criteria, time.Now()); err == nil || !strings.Contains(err.Error(), "Forbidden") {
		t.Errorf("err = %v, want body message", err)
	}
}

func TestValidateSetting(t *testing.T) {
	tests := []struct {
		key, value string
		wantErr    bool
	}{
		{"api.base_url", "https://api.example.com", false},
		{"api.base_url.logins", "https://auth.example.com", false},
		{"api.base_url.unknown", "https://x.example.com", true},
		{"api.base_url.logins", "not a url", true},
		{"theme", "dark", true},
	}
	for _, tc := range tests {
		err := validateSetting(tc.key, tc.value)
		if (err != nil) != tc.wantErr {
			t.Errorf("validateSetting(%q, %q) = %v, wantErr %v", tc.key, tc.value, err, tc.wantErr)
		}
	}
}

func TestReadYes(t *testing.T) {
	for input, want := range map[string]bool{
		"y\n":   true,
		"YES\n": true,
		"n\n":   false,
		"\n":    false,
		"":      false,
	} {
		got, err := readYes(strings.NewReader(input))
		if err != nil || got != want {
			t.Errorf("readYes(%q) = %v, %v; want %v", input, got, err, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Samsung Galaxy S24 Ultra", 10); got != "Samsung Ga..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
}

func TestEmitExport(t *testing.T) {
	def, err := lookupDashboard("business-posts")
	if err != nil {
		t.Fatal(err)
	}
	rec := models.NewRecord()
	rec.ID = "p1"
	rec.Status = "pending"
	rec.SetField("title", "Spring sale")
	v := &dashboard.View{Dashboard: def.Name, Rows: []models.Record{rec}}

	out := filepath.Join(t.TempDir(), "rows.csv")
	f := criteriaFlags{exportFormat: "csv", exportFile: out}
	if err := f.emit(def, v); err != nil {
		t.Fatalf("emit: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "id,timestamp,category,status,title") || !strings.Contains(string(data), "p1,,,pending,Spring sale") {
		t.Errorf("export = %q", data)
	}

	f.exportFormat = "xml"
	if err := f.emit(def, v); err == nil {
		t.Error("emit accepted unknown export format")
	}
}
