package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// EpochMillisThreshold is 2000-01-01T00:00:00Z in milliseconds. Numeric
// timestamps below it are taken to be seconds. Backends emit both units, so
// the heuristic is kept as-is for wire compatibility.
const EpochMillisThreshold = 946684800000

// zoned layouts carry an explicit offset; local layouts are read in the
// local zone.
var (
	zonedLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999999Z0700",
		"2006-01-02T15:04:05Z0700",
		time.RFC1123Z,
		time.RFC1123,
	}
	localLayouts = []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
	}
)

// ResolveTime turns an upstream time value into a time.Time. It accepts
// ISO-8601 strings, numeric strings, JSON numbers (seconds or milliseconds),
// {"$date": ...} and {"_seconds": n} wrappers. The bool is false when the
// value cannot be resolved.
func ResolveTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return t, !t.IsZero()
	case float64:
		return fromEpoch(t)
	case int:
		return fromEpoch(float64(t))
	case int64:
		return fromEpoch(float64(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return fromEpoch(f)
	case string:
		return parseTimeString(t)
	case map[string]any:
		if d, ok := t["$date"]; ok {
			return ResolveTime(d)
		}
		for _, key := range []string{"_seconds", "seconds"} {
			if s, ok := t[key]; ok {
				f, isNum := s.(float64)
				if !isNum || f <= 0 {
					return time.Time{}, false
				}
				return time.Unix(int64(f), 0), true
			}
		}
	}
	return time.Time{}, false
}

// EpochToMillis applies the seconds/milliseconds heuristic.
func EpochToMillis(v float64) float64 {
	if v < EpochMillisThreshold {
		return v * 1000
	}
	return v
}

func fromEpoch(v float64) (time.Time, bool) {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return time.Time{}, false
	}
	ms := EpochToMillis(v)
	return time.UnixMilli(int64(ms)), true
}

func parseTimeString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fromEpoch(f)
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	// Date-only ISO strings are UTC midnight.
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func toText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	case map[string]any:
		// Mongo extended JSON ids.
		if oid, ok := t["$oid"].(string); ok {
			return oid
		}
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func toNumber(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case json.Number:
		f, _ := t.Float64()
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	case bool:
		if t {
			return 1
		}
		return 0
	default:
		return 0
	}
}
