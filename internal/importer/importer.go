// Package importer validates bulk JSON import files before they are sent
// upstream. Invalid items are reported individually; they never abort the
// import of the valid ones.
package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/good-yellow-bee/pricedesk/internal/upstream"
)

// ErrNothingToImport is returned by Submit when no item passed validation.
var ErrNothingToImport = errors.New("no valid items to import")

// NotificationItem is one broadcast notification.
type NotificationItem struct {
	Title     string `json:"title" validate:"required,max=120"`
	Message   string `json:"message" validate:"required,max=2000"`
	Type      string `json:"type" validate:"required,oneof=system price_alert user_registration business_post"`
	Recipient string `json:"recipient,omitempty" validate:"omitempty,email"`
	Priority  string `json:"priority,omitempty" validate:"omitempty,oneof=low normal high"`
}

// PriceAlertItem is one price-alert subscription.
type PriceAlertItem struct {
	UserEmail   string  `json:"userEmail" validate:"required,email"`
	ProductName string  `json:"productName" validate:"required,max=200"`
	ProductURL  string  `json:"productUrl,omitempty" validate:"omitempty,url"`
	Store       string  `json:"store,omitempty" validate:"max=80"`
	TargetPrice float64 `json:"targetPrice" validate:"required,gt=0"`
}

// Kind describes one importable collection.
type Kind struct {
	Name      string
	Dashboard string
	Path      string
	newItem   func() any
}

var kinds = map[string]Kind{
	"notifications": {
		Name:      "notifications",
		Dashboard: "notifications",
		Path:      "/api/admin/notifications/import",
		newItem:   func() any { return &NotificationItem{} },
	},
	"price-alerts": {
		Name:      "price-alerts",
		Dashboard: "price-alerts",
		Path:      "/api/admin/price-alerts/import",
		newItem:   func() any { return &PriceAlertItem{} },
	},
}

// Kinds returns the importable kind names.
func Kinds() []string {
	out := make([]string, 0, len(kinds))
	for name := range kinds {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// LookupKind returns the kind named name.
func LookupKind(name string) (Kind, bool) {
	k, ok := kinds[name]
	return k, ok
}

// Issue is one validation problem of one item.
type Issue struct {
	// Index is the zero-based position of the item in the file.
	Index   int    `json:"index"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Field == "" {
		return fmt.Sprintf("item %d: %s", i.Index+1, i.Message)
	}
	return fmt.Sprintf("item %d: %s %s", i.Index+1, i.Field, i.Message)
}

// Report is the result of validating an import file.
type Report struct {
	Kind    string  `json:"kind"`
	Total   int     `json:"total"`
	Valid   []any   `json:"-"`
	Invalid int     `json:"invalid"`
	Issues  []Issue `json:"issues,omitempty"`
}

// HasIssues reports whether any item failed validation.
func (r *Report) HasIssues() bool {
	return len(r.Issues) > 0
}

// Parse validates an import file of kind. The file is a JSON array of items,
// or an object holding the array under "items" or under the kind name.
// Only a file that is not such a document is an error.
func Parse(kind string, data []byte) (*Report, error) {
	k, ok := kinds[kind]
	if !ok {
		return nil, fmt.Errorf("unknown import kind %q", kind)
	}

	raws, err := items(data, kind)
	if err != nil {
		return nil, err
	}

	rep := &Report{Kind: kind, Total: len(raws)}
	for i, raw := range raws {
		item := k.newItem()
		dec := json.NewDecoder(bytes.NewReader(raw))
		if err := dec.Decode(item); err != nil {
			rep.Invalid++
			rep.Issues = append(rep.Issues, Issue{Index: i, Message: "invalid item: " + err.Error()})
			continue
		}
		if issues := validateItem(i, item); len(issues) > 0 {
			rep.Invalid++
			rep.Issues = append(rep.Issues, issues...)
			continue
		}
		rep.Valid = append(rep.Valid, item)
	}
	return rep, nil
}

func items(data []byte, kind string) ([]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("import file is empty")
	}

	var list []json.RawMessage
	if data[0] == '[' {
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("parse import file: %w", err)
		}
		return list, nil
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse import file: %w", err)
	}
	for _, key := range []string{"items", kind} {
		if raw, ok := doc[key]; ok {
			if err := json.Unmarshal(raw, &list); err != nil {
				return nil, fmt.Errorf("parse %q: %w", key, err)
			}
			return list, nil
		}
	}
	return nil, fmt.Errorf("import file has no items array")
}

// Mutator sends the import upstream.
type Mutator interface {
	Mutate(ctx context.Context, domain, method, path string, body any) (*upstream.MutationResult, error)
}

// Submit posts the report's valid items upstream in one request.
func Submit(ctx context.Context, m Mutator, rep *Report) (*upstream.MutationResult, error) {
	k, ok := kinds[rep.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown import kind %q", rep.Kind)
	}
	if len(rep.Valid) == 0 {
		return nil, ErrNothingToImport
	}
	return m.Mutate(ctx, k.Dashboard, http.MethodPost, k.Path, map[string]any{"items": rep.Valid})
}
