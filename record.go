package sheetdb

import "time"

// MetaPrefix marks keys that carry row metadata rather than column data.
// Metadata keys survive normalization and are never written as cells.
const MetaPrefix = "_"

// RowIdxKey is the metadata key under which a row's physical position is
// exposed when a Record is flattened to a map.
const RowIdxKey = "_row_idx"

// Record is one row of a logical table.
type Record struct {
	RowIdx int                    // 1-indexed physical row (header is row 1); zero when the backend has no physical rows
	Values map[string]interface{} // Column name to cell value
}

// NewRecord creates a record with an empty value map.
func NewRecord(rowIdx int) *Record {
	return &Record{RowIdx: rowIdx, Values: make(map[string]interface{})}
}

// Clone returns a copy whose value map can be modified independently.
func (r *Record) Clone() *Record {
	c := &Record{RowIdx: r.RowIdx, Values: make(map[string]interface{}, len(r.Values))}
	for k, v := range r.Values {
		c.Values[k] = v
	}
	return c
}

// Map flattens the record into a map that carries the row index under RowIdxKey.
func (r *Record) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(r.Values)+1)
	for k, v := range r.Values {
		m[k] = v
	}
	if r.RowIdx > 0 {
		m[RowIdxKey] = r.RowIdx
	}
	return m
}

// GetAsString returns the value as string or defaultValue if not found
func (r *Record) GetAsString(col string, defaultValue string) string {
	v, ok := r.Values[col]
	if !ok {
		return defaultValue
	}
	return ToString(v, defaultValue)
}

// GetAsInt64 returns the value as int64 or defaultValue if not found or unparseable
func (r *Record) GetAsInt64(col string, defaultValue int64) int64 {
	return ToInt(r.Values[col], defaultValue)
}

// GetAsFloat64 returns the value as float64 or defaultValue if not found or unparseable
func (r *Record) GetAsFloat64(col string, defaultValue float64) float64 {
	return ToFloat(r.Values[col], defaultValue)
}

// GetAsBool returns the value as bool or defaultValue if not found
func (r *Record) GetAsBool(col string, defaultValue bool) bool {
	v, ok := r.Values[col]
	if !ok {
		return defaultValue
	}
	return ToBool(v, defaultValue)
}

// GetAsTime returns the value as time.Time or defaultValue if not found or unparseable
func (r *Record) GetAsTime(col string, defaultValue time.Time) time.Time {
	return ToTime(r.Values[col], defaultValue)
}

// Set stores a value, allocating the map when needed.
func (r *Record) Set(col string, value interface{}) {
	if r.Values == nil {
		r.Values = make(map[string]interface{})
	}
	r.Values[col] = value
}
