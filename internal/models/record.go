// Package models contains the core data structures for pricedesk.
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Record is one entity fetched from an upstream admin API: a notification,
// a login event, a price-alert subscription or a business post.
type Record struct {
	// ID is unique within one collection. Empty when the payload had none.
	ID string `json:"id"`

	// Timestamp is nil when no time field could be resolved.
	Timestamp *time.Time `json:"timestamp"`

	// Category is the open-ended type/category enum of the record.
	Category string `json:"category"`

	// Status is the lifecycle state (pending, approved, active, unread, success...).
	Status string `json:"status"`

	// Fields holds canonical text and numeric fields used by search and ranking.
	Fields map[string]any `json:"fields,omitempty"`

	// Metadata is the raw upstream object.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewRecord creates a Record with initialized maps.
func NewRecord() Record {
	return Record{
		Fields:   make(map[string]any),
		Metadata: make(map[string]any),
	}
}

// HasTime reports whether the record has a resolved timestamp.
func (r *Record) HasTime() bool {
	return r.Timestamp != nil && !r.Timestamp.IsZero()
}

// Time returns the resolved timestamp or the zero time.
func (r *Record) Time() time.Time {
	if r.Timestamp == nil {
		return time.Time{}
	}
	return *r.Timestamp
}

// SetField sets a canonical field value.
func (r *Record) SetField(key string, value any) {
	if r.Fields == nil {
		r.Fields = make(map[string]any)
	}
	r.Fields[key] = value
}

// Text returns a field as a string. The names "id", "category" and "status"
// address the record's own attributes.
func (r *Record) Text(key string) string {
	switch key {
	case "id":
		return r.ID
	case "category", "type":
		return r.Category
	case "status":
		return r.Status
	}
	val, ok := r.Fields[key]
	if !ok || val == nil {
		return ""
	}
	switch v := val.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// Number returns a field as float64, or 0 when missing or non-numeric.
func (r *Record) Number(key string) float64 {
	val, ok := r.Fields[key]
	if !ok {
		return 0
	}
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// Clone returns a copy with its own field map. Metadata is shared since it is
// never written after normalization.
func (r Record) Clone() Record {
	out := r
	if r.Timestamp != nil {
		ts := *r.Timestamp
		out.Timestamp = &ts
	}
	if r.Fields != nil {
		out.Fields = make(map[string]any, len(r.Fields))
		for k, v := range r.Fields {
			out.Fields[k] = v
		}
	}
	return out
}
