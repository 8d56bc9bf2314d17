package sheetdb

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// PredicateKind tags a Predicate.
type PredicateKind int

const (
	PredEq PredicateKind = iota
	PredNotEq
	PredIsNull
	PredIsTrue
	PredIsFalse
	PredIn
)

func (k PredicateKind) String() string {
	switch k {
	case PredEq:
		return "=="
	case PredNotEq:
		return "!="
	case PredIsNull:
		return "is null"
	case PredIsTrue:
		return "is true"
	case PredIsFalse:
		return "is false"
	case PredIn:
		return "in"
	default:
		return "unknown"
	}
}

// Predicate is one filter condition on a field.
type Predicate struct {
	Kind   PredicateKind
	Field  string
	Value  interface{}   // Eq, NotEq
	Values []interface{} // In
}

// Eq matches rows whose field equals value.
func Eq(field string, value interface{}) Predicate {
	return Predicate{Kind: PredEq, Field: field, Value: value}
}

// NotEq matches rows whose field does not equal value.
func NotEq(field string, value interface{}) Predicate {
	return Predicate{Kind: PredNotEq, Field: field, Value: value}
}

// IsNull matches rows whose field is empty, "None" or "NULL".
func IsNull(field string) Predicate {
	return Predicate{Kind: PredIsNull, Field: field}
}

// IsTrue matches rows whose field reads as true.
func IsTrue(field string) Predicate {
	return Predicate{Kind: PredIsTrue, Field: field}
}

// IsFalse matches rows whose field reads as false.
func IsFalse(field string) Predicate {
	return Predicate{Kind: PredIsFalse, Field: field}
}

// In matches rows whose field equals any of values.
func In(field string, values ...interface{}) Predicate {
	return Predicate{Kind: PredIn, Field: field, Values: values}
}

func (p Predicate) String() string {
	switch p.Kind {
	case PredEq, PredNotEq:
		return fmt.Sprintf("%s %s %v", p.Field, p.Kind, p.Value)
	case PredIn:
		return fmt.Sprintf("%s in %v", p.Field, p.Values)
	default:
		return fmt.Sprintf("%s %s", p.Field, p.Kind)
	}
}

// Match evaluates the predicate against one row.
func (p Predicate) Match(row *RowProxy) bool {
	value := row.Get(p.Field)
	switch p.Kind {
	case PredEq:
		return compareEqual(value, p.Value)
	case PredNotEq:
		return !compareEqual(value, p.Value)
	case PredIsNull:
		return isNullish(value)
	case PredIsTrue:
		return proxyBool(value)
	case PredIsFalse:
		return !proxyBool(value)
	case PredIn:
		for _, v := range p.Values {
			if compareEqual(value, v) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// isNullish reports nil and the strings "", "NONE" and "NULL" in any case.
func isNullish(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		switch strings.ToUpper(strings.TrimSpace(val)) {
		case "", "NONE", "NULL":
			return true
		}
	}
	return false
}

// compareEqual compares a row value with a filter value. A bool filter
// coerces the row value to bool; a null-ish filter matches null-ish rows;
// strings compare case-insensitively; numbers compare numerically.
func compareEqual(rowValue, filter interface{}) bool {
	if b, ok := filter.(bool); ok {
		return proxyBool(rowValue) == b
	}
	if isNullish(filter) {
		return isNullish(rowValue)
	}

	rs, rowIsString := rowValue.(string)
	fs, filterIsString := filter.(string)
	if rowIsString && filterIsString {
		return strings.EqualFold(rs, fs)
	}

	if isNumeric(filter) {
		if isNumeric(rowValue) {
			return toFloat64(rowValue) == toFloat64(filter)
		}
		if rowIsString {
			if f, err := strconv.ParseFloat(strings.TrimSpace(rs), 64); err == nil {
				return f == toFloat64(filter)
			}
		}
	}

	return fmt.Sprintf("%v", rowValue) == fmt.Sprintf("%v", filter)
}

// isNumeric checks if a value is numeric
func isNumeric(v interface{}) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

// toFloat64 converts a numeric value to float64
func toFloat64(v interface{}) float64 {
	return ToFloat(v, 0)
}

// Query is an in-memory view over the rows of one table. Every filtering
// method returns a new Query; the receiver is never modified.
type Query struct {
	table  string
	rows   []*RowProxy
	limit  int
	offset int
}

// NewQuery creates a query over rows.
func NewQuery(table string, rows []*RowProxy) *Query {
	return &Query{table: table, rows: rows}
}

// Table returns the table the rows belong to.
func (q *Query) Table() string {
	return q.table
}

// Where keeps the rows matching every predicate.
func (q *Query) Where(preds ...Predicate) *Query {
	out := &Query{table: q.table, limit: q.limit, offset: q.offset}
	out.rows = make([]*RowProxy, 0, len(q.rows))
	for _, row := range q.rows {
		if matchesAll(row, preds) {
			out.rows = append(out.rows, row)
		}
	}
	return out
}

func matchesAll(row *RowProxy, preds []Predicate) bool {
	for _, p := range preds {
		if !p.Match(row) {
			return false
		}
	}
	return true
}

// Filter keeps the rows whose fields equal the given values.
func (q *Query) Filter(fields map[string]interface{}) *Query {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	preds := make([]Predicate, 0, len(keys))
	for _, k := range keys {
		preds = append(preds, Eq(k, fields[k]))
	}
	return q.Where(preds...)
}

// FilterBy keeps the rows whose field equals value.
func (q *Query) FilterBy(field string, value interface{}) *Query {
	return q.Where(Eq(field, value))
}

// Active keeps the rows that are not soft-deleted.
func (q *Query) Active() *Query {
	return q.Where(IsFalse("is_deleted"))
}

// Limit caps the number of rows returned by All. Zero means no limit.
func (q *Query) Limit(n int) *Query {
	out := *q
	if n < 0 {
		n = 0
	}
	out.limit = n
	return &out
}

// Offset skips the first n rows in All and First.
func (q *Query) Offset(n int) *Query {
	out := *q
	if n < 0 {
		n = 0
	}
	out.offset = n
	return &out
}

// All returns the matching rows in a fresh slice.
func (q *Query) All() []*RowProxy {
	rows := q.rows
	if q.offset > 0 {
		if q.offset >= len(rows) {
			return []*RowProxy{}
		}
		rows = rows[q.offset:]
	}
	if q.limit > 0 && q.limit < len(rows) {
		rows = rows[:q.limit]
	}
	out := make([]*RowProxy, len(rows))
	copy(out, rows)
	return out
}

// First returns the first matching row, or nil.
func (q *Query) First() *RowProxy {
	rows := q.Limit(1).All()
	if len(rows) == 0 {
		return nil
	}
	return rows[0]
}

// Count returns the number of rows All would return.
func (q *Query) Count() int {
	return len(q.All())
}
