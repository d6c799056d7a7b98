package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/good-yellow-bee/pricedesk/internal/upstream"
)

func TestParse_ReportsPerItem(t *testing.T) {
	data := []byte(`[
		{"title": "Maintenance", "message": "Down at 2am", "type": "system"},
		{"title": "", "message": "no title", "type": "system"},
		{"title": "Bad", "message": "x", "type": "spam", "recipient": "not-an-email"},
		{"title": 42}
	]`)

	rep, err := Parse("notifications", data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rep.Total != 4 || len(rep.Valid) != 1 || rep.Invalid != 3 {
		t.Fatalf("total=%d valid=%d invalid=%d", rep.Total, len(rep.Valid), rep.Invalid)
	}
	if !rep.HasIssues() {
		t.Fatal("expected issues")
	}

	byItem := make(map[int][]Issue)
	for _, is := range rep.Issues {
		byItem[is.Index] = append(byItem[is.Index], is)
	}
	if len(byItem[1]) != 1 || byItem[1][0].Field != "title" || byItem[1][0].Message != "is required" {
		t.Errorf("item 1 issues = %+v", byItem[1])
	}
	if len(byItem[2]) != 2 {
		t.Errorf("item 2 issues = %+v, want type and recipient", byItem[2])
	}
	if len(byItem[3]) != 1 || byItem[3][0].Field != "" {
		t.Errorf("item 3 issues = %+v, want one decode issue", byItem[3])
	}
	if got := byItem[1][0].String(); got != "item 2: title is required" {
		t.Errorf("String() = %q", got)
	}
}

func TestParse_Envelopes(t *testing.T) {
	tests := []struct {
		name string
		data string
		want int
	}{
		{"items key", `{"items": [{"userEmail": "a@b.io", "productName": "TV", "targetPrice": 300}]}`, 1},
		{"kind key", `{"price-alerts": [{"userEmail": "a@b.io", "productName": "TV", "targetPrice": 300}]}`, 1},
		{"empty array", `[]`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep, err := Parse("price-alerts", []byte(tt.data))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if len(rep.Valid) != tt.want {
				t.Errorf("valid = %d, want %d (issues %v)", len(rep.Valid), tt.want, rep.Issues)
			}
		})
	}
}

func TestParse_FileErrors(t *testing.T) {
	for _, data := range []string{"", "not json", `{"other": []}`, `{"items": 5}`} {
		if _, err := Parse("notifications", []byte(data)); err == nil {
			t.Errorf("Parse(%q) expected error", data)
		}
	}
	if _, err := Parse("users", []byte(`[]`)); err == nil {
		t.Error("expected unknown kind error")
	}
}

func TestParse_PriceAlertRules(t *testing.T) {
	rep, err := Parse("price-alerts", []byte(`[
		{"userEmail": "a@b.io", "productName": "TV", "targetPrice": 0},
		{"userEmail": "a@b.io", "productName": "TV", "targetPrice": 10, "productUrl": "nope"}
	]`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rep.Valid) != 0 || len(rep.Issues) != 2 {
		t.Fatalf("issues = %+v", rep.Issues)
	}
	if rep.Issues[0].Field != "targetPrice" || rep.Issues[1].Field != "productUrl" {
		t.Errorf("fields = %q, %q", rep.Issues[0].Field, rep.Issues[1].Field)
	}
}

type recordingMutator struct {
	domain, method, path string
	body                 any
}

func (m *recordingMutator) Mutate(ctx context.Context, domain, method, path string, body any) (*upstream.MutationResult, error) {
	m.domain, m.method, m.path, m.body = domain, method, path, body
	return &upstream.MutationResult{Message: "imported"}, nil
}

func TestSubmit(t *testing.T) {
	rep, _ := Parse("notifications", []byte(`[
		{"title": "A", "message": "a", "type": "system"},
		{"title": "", "message": "b", "type": "system"}
	]`))

	m := &recordingMutator{}
	res, err := Submit(context.Background(), m, rep)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Message != "imported" || m.method != "POST" || m.path != "/api/admin/notifications/import" {
		t.Errorf("unexpected call %s %s %s", m.method, m.path, res.Message)
	}
	body := m.body.(map[string]any)
	if got := len(body["items"].([]any)); got != 1 {
		t.Errorf("submitted %d items, want 1", got)
	}

	empty := &Report{Kind: "notifications"}
	if _, err := Submit(context.Background(), m, empty); !errors.Is(err, ErrNothingToImport) {
		t.Errorf("Submit(empty) = %v", err)
	}
}

func TestKinds(t *testing.T) {
	got := Kinds()
	if len(got) != 2 || got[0] != "notifications" || got[1] != "price-alerts" {
		t.Errorf("Kinds() = %v", got)
	}
}
