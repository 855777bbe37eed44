package storage

import (
	"encoding/json"
	"sort"
	"time"
)

// Helfer zum Lesen und Schreiben von Knoten-Eigenschaften. Die Backends liefern Zahlen
// und Listen in unterschiedlichen Go-Typen (int64/float64, []any/[]string).

func propString(p map[string]any, k string) string {
	s, _ := p[k].(string)
	return s
}

func propFloat(p map[string]any, k string) *float64 {
	var v float64
	switch x := p[k].(type) {
	case float64:
		v = x
	case float32:
		v = float64(x)
	case int64:
		v = float64(x)
	case int:
		v = float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil
		}
		v = f
	default:
		return nil
	}
	return &v
}

func propStrings(p map[string]any, k string) []string {
	switch x := p[k].(type) {
	case []string:
		return append([]string(nil), x...)
	case []any:
		out := make([]string, 0, len(x))
		for _, v := range x {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func propTime(p map[string]any, k string) time.Time {
	switch x := p[k].(type) {
	case string:
		t, _ := time.Parse(time.RFC3339Nano, x)
		return t
	case time.Time:
		return x
	}
	return time.Time{}
}

func putString(m map[string]any, k, v string) {
	if v != "" {
		m[k] = v
	}
}

func putFloat(m map[string]any, k string, v *float64) {
	if v != nil {
		m[k] = *v
	}
}

func putStrings(m map[string]any, k string, v []string) {
	if len(v) > 0 {
		m[k] = append([]string(nil), v...)
	}
}

func putTime(m map[string]any, k string, t time.Time) {
	if !t.IsZero() {
		m[k] = t.UTC().Format(time.RFC3339Nano)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
