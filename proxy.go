package sheetdb

import (
	"fmt"
	"strings"
	"time"
)

// FieldKind selects how a field's stored value is read back.
type FieldKind int

const (
	FieldString FieldKind = iota
	FieldBool
)

// FieldPolicy declares how a well-known field is read and what it defaults
// to when the row has no such key.
type FieldPolicy struct {
	Kind    FieldKind
	Default func(schema TableSchema) interface{}
}

func constDefault(v interface{}) func(TableSchema) interface{} {
	return func(TableSchema) interface{} { return v }
}

// FieldPolicies is the complete table of fields with read coercion or a
// default other than "".
var FieldPolicies = map[string]FieldPolicy{
	"active":     {Kind: FieldBool, Default: constDefault(true)},
	"is_active":  {Kind: FieldBool, Default: constDefault(true)},
	"is_deleted": {Kind: FieldBool, Default: constDefault(false)},
	"role":       {Kind: FieldString, Default: constDefault("operator")},
	"status": {Kind: FieldString, Default: func(s TableSchema) interface{} {
		if s.Configuration {
			return "active"
		}
		return "pending"
	}},
}

// FieldAliases lets a read of the key fall through to the value's column.
var FieldAliases = map[string]string{
	"user_role": "role",
}

var proxyTrue = map[string]bool{"true": true, "1": true, "yes": true, "active": true}

// proxyBool coerces a stored value the way boolean-like fields are read.
// Strings outside the recognized sets read as false.
func proxyBool(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return proxyTrue[strings.ToLower(strings.TrimSpace(val))]
	}
	return ToBool(v, true)
}

// RowProxy wraps one row of a query result. Reads resolve through field
// policies so they never yield nil; writes record the field as dirty and
// register the proxy with its session.
type RowProxy struct {
	table      string
	schema     TableSchema
	rowIdx     int
	data       map[string]interface{}
	dirty      map[string]bool
	dirtyOrder []string
	session    *Session
}

// NewRowProxy wraps rec. The proxy owns a copy of rec's values.
func NewRowProxy(table string, schema TableSchema, rec *Record, session *Session) *RowProxy {
	p := &RowProxy{
		table:   table,
		schema:  schema,
		data:    make(map[string]interface{}),
		dirty:   make(map[string]bool),
		session: session,
	}
	if rec != nil {
		p.rowIdx = rec.RowIdx
		for k, v := range rec.Values {
			p.data[k] = v
		}
	}
	return p
}

// Table returns the owning table name.
func (p *RowProxy) Table() string { return p.table }

// RowIdx returns the physical row of the proxy, zero when there is none.
func (p *RowProxy) RowIdx() int { return p.rowIdx }

// ID returns the value of the table's identity column.
func (p *RowProxy) ID() string {
	col := p.schema.Identity
	if col == "" {
		col = "id"
	}
	return strings.TrimSpace(p.String(col))
}

// Get resolves field: the stored value (coerced for boolean fields), then
// an alias, then the field's declared default, then "".
func (p *RowProxy) Get(field string) interface{} {
	if v, ok := p.data[field]; ok {
		return p.read(field, v)
	}
	if target, ok := FieldAliases[field]; ok {
		if v, ok := p.data[target]; ok {
			return p.read(target, v)
		}
	}
	if policy, ok := FieldPolicies[field]; ok {
		return policy.Default(p.schema)
	}
	return ""
}

func (p *RowProxy) read(field string, v interface{}) interface{} {
	if policy, ok := FieldPolicies[field]; ok && policy.Kind == FieldBool {
		return proxyBool(v)
	}
	if v == nil {
		return ""
	}
	return v
}

// Has reports whether the row holds field itself, without aliases or defaults.
func (p *RowProxy) Has(field string) bool {
	_, ok := p.data[field]
	return ok
}

// String reads field as a string.
func (p *RowProxy) String(field string) string {
	return ToString(p.Get(field), "")
}

// Bool reads field as a bool. "active" counts as true, so status columns
// can be tested directly.
func (p *RowProxy) Bool(field string) bool {
	return proxyBool(p.Get(field))
}

// Int reads field as an int64, zero when unparseable.
func (p *RowProxy) Int(field string) int64 {
	return ToInt(p.Get(field), 0)
}

// Float reads field as a float64, zero when unparseable.
func (p *RowProxy) Float(field string) float64 {
	return ToFloat(p.Get(field), 0)
}

// Time reads field as a time, the zero time when unparseable.
func (p *RowProxy) Time(field string) time.Time {
	return ToTime(p.Get(field), time.Time{})
}

// Set stores value under field and marks it dirty. Metadata names (with the
// "_" prefix) cannot be assigned.
func (p *RowProxy) Set(field string, value interface{}) error {
	if field == "" || strings.HasPrefix(field, MetaPrefix) {
		return fmt.Errorf("cannot assign reserved field %q", field)
	}
	p.data[field] = value
	if !p.dirty[field] {
		p.dirty[field] = true
		p.dirtyOrder = append(p.dirtyOrder, field)
	}
	if p.session != nil {
		p.session.track(p)
	}
	return nil
}

// MustSet is Set for field names known to be assignable.
func (p *RowProxy) MustSet(field string, value interface{}) *RowProxy {
	if err := p.Set(field, value); err != nil {
		panic(err)
	}
	return p
}

// DirtyFields returns the fields assigned since load or the last commit, in
// assignment order.
func (p *RowProxy) DirtyFields() []string {
	out := make([]string, len(p.dirtyOrder))
	copy(out, p.dirtyOrder)
	return out
}

// IsDirty reports whether any field was assigned since load or the last commit.
func (p *RowProxy) IsDirty() bool {
	return len(p.dirtyOrder) > 0
}

// dirtyValues reads the dirty fields back through Get.
func (p *RowProxy) dirtyValues() map[string]interface{} {
	out := make(map[string]interface{}, len(p.dirtyOrder))
	for _, f := range p.dirtyOrder {
		out[f] = p.Get(f)
	}
	return out
}

func (p *RowProxy) clearDirty() {
	p.dirty = make(map[string]bool)
	p.dirtyOrder = nil
}

// ToMap returns the table's canonical columns resolved through Get, plus
// "id" when it is not a canonical column. Rows of tables without a schema
// expose their stored non-metadata keys.
func (p *RowProxy) ToMap() map[string]interface{} {
	out := make(map[string]interface{}, len(p.schema.Columns)+1)
	if len(p.schema.Columns) == 0 {
		for k := range p.data {
			if !strings.HasPrefix(k, MetaPrefix) {
				out[k] = p.Get(k)
			}
		}
	}
	for _, col := range p.schema.Columns {
		out[col] = p.Get(col)
	}
	if _, ok := out["id"]; !ok {
		if p.schema.Identity != "" && p.schema.Identity != "id" {
			out["id"] = p.String(p.schema.Identity)
		} else {
			out["id"] = p.Get("id")
		}
	}
	return out
}
