package app

import (
	"encoding/json"
	"math"
	"time"

	"testyourself-core/internal/domain"
)

// intField reads a numeric field regardless of how the backend decoded it.
func intField(fields map[string]any, key string) int {
	switch v := fields[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(math.Round(v))
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	default:
		return 0
	}
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

// nullableString reads an optional string field; missing, null and
// non-string values decode as nil.
func nullableString(fields map[string]any, key string) *string {
	switch v := fields[key].(type) {
	case string:
		return &v
	case *string:
		if v == nil {
			return nil
		}
		s := *v
		return &s
	default:
		return nil
	}
}

// registryRecords converts a decoded "items" value into records, dropping
// anything that is not an object.
func registryRecords(v any) []domain.RegistryRecord {
	var out []domain.RegistryRecord
	switch items := v.(type) {
	case []any:
		out = make([]domain.RegistryRecord, 0, len(items))
		for _, item := range items {
			switch m := item.(type) {
			case map[string]any:
				out = append(out, domain.RegistryRecord(m))
			case domain.RegistryRecord:
				out = append(out, m)
			}
		}
	case []map[string]any:
		out = make([]domain.RegistryRecord, 0, len(items))
		for _, m := range items {
			out = append(out, domain.RegistryRecord(m))
		}
	case []domain.RegistryRecord:
		out = append(out, items...)
	}
	return out
}

// timeField accepts native times and the RFC 3339 strings JSON backends return.
func timeField(fields map[string]any, key string) time.Time {
	switch v := fields[key].(type) {
	case time.Time:
		return v
	case string:
		t, _ := time.Parse(time.RFC3339Nano, v)
		return t
	default:
		return time.Time{}
	}
}

func optionalString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// optionalStringPtr stores a copy of *p, or nil, so documents never alias
// caller-owned strings.
func optionalStringPtr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
