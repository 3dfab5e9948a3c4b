// Package coerce converts loosely typed values (decoded from JSON or YAML) into
// strict optional scalars. Every function is total: it never panics and maps
// anything it cannot interpret to nil (or the zero value for the non-optional
// variants).
package coerce

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Number returns a pointer to a finite float64, or nil.
// Strings are trimmed and parsed; empty strings, NaN, ±Inf, booleans and
// composite values yield nil.
func Number(value any) *float64 {
	f, ok := toFloat(value)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}

	return &f
}

// String returns the trimmed textual form of value, or nil when value is nil,
// a composite, or trims to the empty string.
func String(value any) *string {
	s, ok := toText(value)
	if !ok {
		return nil
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	return &s
}

// StringOrEmpty is String for non-optional fields (identities, timestamps):
// it returns "" where String would return nil.
func StringOrEmpty(value any) string {
	if s := String(value); s != nil {
		return *s
	}

	return ""
}

// Int returns value as an integer identity, or 0 when it is missing, not a
// finite number, or not integral.
func Int(value any) int64 {
	f := Number(value)
	if f == nil || *f != math.Trunc(*f) || *f >= math.MaxInt64 || *f < math.MinInt64 {
		return 0
	}

	return int64(*f)
}

// Object returns value as a JSON-style object, otherwise nil. Any map whose
// keys are textual qualifies, including named map types produced by decoders.
func Object(value any) map[string]any {
	if v, ok := value.(map[string]any); ok {
		return v
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map || rv.IsNil() {
		return nil
	}

	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key, ok := mapKey(iter.Key())
		if !ok {
			return nil
		}

		out[key] = iter.Value().Interface()
	}

	return out
}

func mapKey(k reflect.Value) (string, bool) {
	if k.Kind() == reflect.Interface {
		if k.IsNil() {
			return "", false
		}
		k = k.Elem()
	}

	if k.Kind() == reflect.String {
		return k.String(), true
	}

	return toText(k.Interface())
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		return parseFloat(string(v))
	case string:
		return parseFloat(v)
	case []byte:
		return parseFloat(string(v))
	default:
		return 0, false
	}
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}

	return f, true
}

func toText(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case []byte:
		return string(v), true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	case time.Time:
		return formatTime(v), true
	case float64:
		return formatFloat(v)
	case float32:
		return formatFloat(float64(v))
	case int:
		return strconv.Itoa(v), true
	case int8:
		return strconv.FormatInt(int64(v), 10), true
	case int16:
		return strconv.FormatInt(int64(v), 10), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case uint:
		return strconv.FormatUint(uint64(v), 10), true
	case uint8:
		return strconv.FormatUint(uint64(v), 10), true
	case uint16:
		return strconv.FormatUint(uint64(v), 10), true
	case uint32:
		return strconv.FormatUint(uint64(v), 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	default:
		return "", false
	}
}

func formatFloat(f float64) (string, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false
	}

	return strconv.FormatFloat(f, 'f', -1, 64), true
}

// formatTime renders decoded timestamps (YAML reads unquoted dates as time.Time)
// as a calendar date when they fall on UTC midnight, otherwise as RFC 3339.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	if _, offset := t.Zone(); offset == 0 && t.Equal(t.Truncate(24*time.Hour)) {
		return t.Format(time.DateOnly)
	}

	return t.Format(time.RFC3339Nano)
}
