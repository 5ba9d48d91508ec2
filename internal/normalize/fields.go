package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// stringField coerces m[key] to text, falling back to def when the key is absent or null.
func stringField(m map[string]any, key, def string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return def
	}
	return strings.TrimSpace(toText(v))
}

// stringFieldOrDefault is stringField that also treats blank text as absent.
func stringFieldOrDefault(m map[string]any, key, def string) string {
	s := stringField(m, key, "")
	if s == "" {
		return def
	}
	return s
}

func getOptionalStringField(m map[string]any, key string) *string {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	s := strings.TrimSpace(toText(v))
	if s == "" {
		return nil
	}
	return &s
}

// getFloat64Field returns 0 for anything that is not a finite number.
func getFloat64Field(m map[string]any, key string) float64 {
	f := getOptionalFloat64Field(m, key)
	if f == nil {
		return 0
	}
	return *f
}

func getOptionalFloat64Field(m map[string]any, key string) *float64 {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	f, ok := ToFloat(v)
	if !ok {
		return nil
	}
	return &f
}

func getOptionalInt64Field(m map[string]any, key string) *int64 {
	f := getOptionalFloat64Field(m, key)
	if f == nil {
		return nil
	}
	n := int64(*f)
	return &n
}

// ToFloat reads a number out of a JSON number, a Go numeric type or numeric text.
// Thousands separators and surrounding spaces are tolerated.
func ToFloat(v any) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case int32:
		f = float64(val)
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(val), ",", "")
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toText(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int, int32, int64, bool:
		return fmt.Sprint(val)
	case json.Number:
		return val.String()
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
