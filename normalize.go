package sheetdb

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var truthyStrings = map[string]bool{"true": true, "1": true, "yes": true, "t": true, "y": true}

var falsyStrings = map[string]bool{"false": true, "0": true, "no": true, "f": true, "n": true}

// boolColumns are converted from truthy/falsy strings to bool during row normalization.
var boolColumns = map[string]bool{"active": true, "is_active": true, "is_deleted": true}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// isBlank reports whether a cell counts as absent for numeric and datetime coercion.
func isBlank(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		s := strings.TrimSpace(val)
		return s == "" || s == "None"
	}
	return false
}

// ToString renders any cell value as a string. Nil yields defaultValue.
func ToString(v interface{}, defaultValue string) string {
	switch val := v.(type) {
	case nil:
		return defaultValue
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case time.Time:
		return val.Format(time.RFC3339)
	case []byte:
		return string(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// ToInt coerces a cell value to int64, returning defaultValue when it cannot.
func ToInt(v interface{}, defaultValue int64) int64 {
	if isBlank(v) {
		return defaultValue
	}
	switch val := v.(type) {
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case int64:
		return val
	case uint:
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		return int64(val)
	case float32:
		return int64(val)
	case float64:
		return int64(val)
	case bool:
		if val {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(val)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f)
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

// ToFloat coerces a cell value to float64, returning defaultValue when it cannot.
func ToFloat(v interface{}, defaultValue float64) float64 {
	if isBlank(v) {
		return defaultValue
	}
	switch val := v.(type) {
	case int:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case uint:
		return float64(val)
	case uint32:
		return float64(val)
	case uint64:
		return float64(val)
	case float32:
		return float64(val)
	case float64:
		return val
	case bool:
		if val {
			return 1
		}
		return 0
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// ToBool coerces a cell value to bool. Strings are true only when they are
// one of true/1/yes/t/y (case-insensitive); blank values yield defaultValue.
func ToBool(v interface{}, defaultValue bool) bool {
	switch val := v.(type) {
	case nil:
		return defaultValue
	case bool:
		return val
	case string:
		s := strings.ToLower(strings.TrimSpace(val))
		if s == "" {
			return defaultValue
		}
		return truthyStrings[s]
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	}
	return defaultValue
}

// ToDatetimeString returns an ISO-8601 rendering of a time value, or the
// trimmed string when it already looks like a date. Anything else yields
// defaultValue.
func ToDatetimeString(v interface{}, defaultValue string) string {
	if isBlank(v) {
		return defaultValue
	}
	switch val := v.(type) {
	case time.Time:
		return val.Format(time.RFC3339)
	case *time.Time:
		if val == nil {
			return defaultValue
		}
		return val.Format(time.RFC3339)
	case string:
		s := strings.TrimSpace(val)
		if strings.Contains(s, "T") || strings.Contains(s, "-") {
			return s
		}
	}
	return defaultValue
}

// ToTime parses a cell value into a time.Time, returning defaultValue when it cannot.
func ToTime(v interface{}, defaultValue time.Time) time.Time {
	switch val := v.(type) {
	case time.Time:
		return val
	case string:
		s := ToDatetimeString(val, "")
		if s == "" {
			return defaultValue
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	}
	return defaultValue
}

// normalizeCell applies the per-column canonical form to one value.
func normalizeCell(column string, v interface{}) interface{} {
	if v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return v
	}
	s = strings.TrimSpace(s)
	if boolColumns[column] {
		lower := strings.ToLower(s)
		if truthyStrings[lower] {
			return true
		}
		if falsyStrings[lower] {
			return false
		}
	}
	return s
}

// NormalizeRow canonicalizes a raw row against the table's schema.
//
// In full mode every schema column is emitted, defaulting to "". In partial
// mode only columns already present in raw are emitted so untouched cells are
// never overwritten. Keys outside the schema are dropped in both modes except
// metadata keys, which always pass through. Rows of unknown tables are
// returned as an unmodified copy. NormalizeRow never fails and is idempotent.
func (r *Registry) NormalizeRow(table string, raw map[string]interface{}, partial bool) map[string]interface{} {
	schema, ok := r.Lookup(table)
	if !ok {
		out := make(map[string]interface{}, len(raw))
		for k, v := range raw {
			out[k] = v
		}
		return out
	}

	out := make(map[string]interface{}, len(schema.Columns))
	for k, v := range raw {
		if strings.HasPrefix(k, MetaPrefix) {
			out[k] = v
		}
	}
	for _, col := range schema.Columns {
		v, present := raw[col]
		if !present {
			if partial {
				continue
			}
			v = ""
		}
		out[col] = normalizeCell(col, v)
	}
	return out
}
