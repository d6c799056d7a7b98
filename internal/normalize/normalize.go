// Package normalize maps heterogeneous upstream JSON objects onto the
// canonical models.Record shape through declarative field-alias tables.
package normalize

import (
	"strings"

	"github.com/good-yellow-bee/pricedesk/internal/models"
)

// Schema describes where each canonical attribute may be found in a raw
// upstream object. Every list holds dotted paths tried in order; the first
// non-empty value wins.
type Schema struct {
	ID       []string
	Time     []string
	Category []string
	Status   []string

	// BoolStatus maps a boolean status value to {true, false} labels,
	// e.g. {"read", "unread"} for an isRead flag.
	BoolStatus [2]string

	// Fields maps canonical field names to their source paths.
	Fields map[string][]string

	// Defaults supplies values for fields that resolve to nothing.
	// Fields without a default fall back to "".
	Defaults map[string]any

	// Numeric lists canonical fields that hold numbers; they default to 0.
	Numeric []string
}

// Normalizer applies a Schema to raw objects.
type Normalizer struct {
	schema  Schema
	numeric map[string]bool
}

// New creates a Normalizer for schema.
func New(schema Schema) *Normalizer {
	numeric := make(map[string]bool, len(schema.Numeric))
	for _, f := range schema.Numeric {
		numeric[f] = true
	}
	return &Normalizer{schema: schema, numeric: numeric}
}

// Normalize converts one raw object. It never fails: unresolvable values
// fall back to safe defaults and an unresolvable timestamp stays nil.
func (n *Normalizer) Normalize(raw map[string]any) models.Record {
	rec := models.NewRecord()
	for k, v := range raw {
		rec.Metadata[k] = v
	}

	rec.ID = n.text(raw, n.schema.ID)
	rec.Category = n.text(raw, n.schema.Category)
	rec.Status = n.status(raw)

	if v, ok := first(raw, n.schema.Time); ok {
		if ts, ok := ResolveTime(v); ok {
			rec.Timestamp = &ts
		}
	}

	for name, paths := range n.schema.Fields {
		v, ok := first(raw, paths)
		switch {
		case ok && n.numeric[name]:
			rec.SetField(name, toNumber(v))
		case ok:
			rec.SetField(name, toText(v))
		case n.schema.Defaults[name] != nil:
			rec.SetField(name, n.schema.Defaults[name])
		case n.numeric[name]:
			rec.SetField(name, float64(0))
		default:
			rec.SetField(name, "")
		}
	}

	return rec
}

// NormalizeAll converts every raw object, keeping input order. Records that
// could not be resolved are kept so counts over the whole collection stay
// accurate.
func (n *Normalizer) NormalizeAll(raws []map[string]any) []models.Record {
	out := make([]models.Record, 0, len(raws))
	for _, raw := range raws {
		if raw == nil {
			raw = map[string]any{}
		}
		out = append(out, n.Normalize(raw))
	}
	return out
}

func (n *Normalizer) text(raw map[string]any, paths []string) string {
	v, ok := first(raw, paths)
	if !ok {
		return ""
	}
	return toText(v)
}

func (n *Normalizer) status(raw map[string]any) string {
	v, ok := first(raw, n.schema.Status)
	if !ok {
		return ""
	}
	if b, isBool := v.(bool); isBool && n.schema.BoolStatus[0] != "" {
		if b {
			return n.schema.BoolStatus[0]
		}
		return n.schema.BoolStatus[1]
	}
	return strings.ToLower(toText(v))
}

// first returns the first non-empty value found at any of paths.
func first(raw map[string]any, paths []string) (any, bool) {
	for _, p := range paths {
		v, ok := Lookup(raw, p)
		if !ok || isEmpty(v) {
			continue
		}
		return v, true
	}
	return nil, false
}

// Lookup resolves a dotted path ("businessInfo.businessName") in raw.
func Lookup(raw map[string]any, path string) (any, bool) {
	var cur any = raw
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	default:
		return false
	}
}
