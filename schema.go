package sheetdb

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// TableSchema describes one logical table: its canonical ordered columns and
// the column that identifies a row.
type TableSchema struct {
	Name     string   `yaml:"name"`
	Columns  []string `yaml:"columns"`
	Identity string   `yaml:"identity,omitempty"`
	// Configuration tables hold reference data; their rows default to
	// status "active" instead of "pending".
	Configuration bool `yaml:"configuration,omitempty"`
}

// HasColumn reports whether col is one of the schema's columns.
func (s TableSchema) HasColumn(col string) bool {
	return s.ColumnIndex(col) >= 0
}

// ColumnIndex returns the zero-based position of col, or -1.
func (s TableSchema) ColumnIndex(col string) int {
	for i, c := range s.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// Registry maps logical table names to schemas and model names to tables.
// It is built once at process start and must not be modified afterwards.
type Registry struct {
	tables map[string]TableSchema
	order  []string
	models map[string]string
}

// NewRegistry builds a registry from schemas. An empty Identity resolves to
// "id" when that column exists and to the first column otherwise.
func NewRegistry(schemas ...TableSchema) (*Registry, error) {
	r := &Registry{
		tables: make(map[string]TableSchema, len(schemas)),
		models: make(map[string]string),
	}
	for _, s := range schemas {
		if err := r.register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MustRegistry is like NewRegistry but panics on an invalid schema.
func MustRegistry(schemas ...TableSchema) *Registry {
	r, err := NewRegistry(schemas...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) register(s TableSchema) error {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return fmt.Errorf("table schema without name")
	}
	if len(s.Columns) == 0 {
		return fmt.Errorf("table %s: no columns", s.Name)
	}
	if _, dup := r.tables[s.Name]; dup {
		return fmt.Errorf("table %s: registered twice", s.Name)
	}
	cols := make([]string, len(s.Columns))
	seen := make(map[string]bool, len(s.Columns))
	for i, c := range s.Columns {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			return fmt.Errorf("table %s: empty or duplicate column %q", s.Name, c)
		}
		seen[c] = true
		cols[i] = c
	}
	s.Columns = cols

	if s.Identity == "" {
		s.Identity = s.Columns[0]
		if s.HasColumn("id") {
			s.Identity = "id"
		}
	} else if !s.HasColumn(s.Identity) {
		return fmt.Errorf("table %s: identity column %q not in columns", s.Name, s.Identity)
	}

	r.tables[s.Name] = s
	r.order = append(r.order, s.Name)
	return nil
}

// MapModel binds a model name (e.g. "FilingTask") to a table.
func (r *Registry) MapModel(model, table string) {
	r.models[model] = table
}

// Lookup returns the schema for table.
func (r *Registry) Lookup(table string) (TableSchema, bool) {
	s, ok := r.tables[table]
	return s, ok
}

// ColumnsFor returns the canonical ordered columns of table, or nil when the
// table has no canonical schema. Callers treat nil as "pass through".
func (r *Registry) ColumnsFor(table string) []string {
	s, ok := r.tables[table]
	if !ok {
		return nil
	}
	cols := make([]string, len(s.Columns))
	copy(cols, s.Columns)
	return cols
}

// CanonicalHeader trims each header cell and replaces it with the schema
// column of table it matches case-insensitively. Cells matching no column
// are kept as written.
func (r *Registry) CanonicalHeader(table string, header []string) []string {
	s := r.tables[table]
	out := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		out[i] = h
		for _, col := range s.Columns {
			if strings.EqualFold(h, col) {
				out[i] = col
				break
			}
		}
	}
	return out
}

// IdentityFor returns the identity column of table, or "" when unknown.
func (r *Registry) IdentityFor(table string) string {
	return r.tables[table].Identity
}

// Tables returns table names in registration order.
func (r *Registry) Tables() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Models returns the registered model names, sorted.
func (r *Registry) Models() []string {
	out := make([]string, 0, len(r.models))
	for m := range r.models {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// ResolveTable maps a model name or table name to a table name, falling back
// to the lower-cased identifier.
func (r *Registry) ResolveTable(model string) string {
	if t, ok := r.models[model]; ok {
		return t
	}
	if _, ok := r.tables[model]; ok {
		return model
	}
	return strings.ToLower(model)
}

type registryFile struct {
	Tables []TableSchema     `yaml:"tables"`
	Models map[string]string `yaml:"models"`
}

// LoadRegistryFile reads a YAML registry. Tables in the file replace
// same-named tables of base; other base tables and models are kept.
func LoadRegistryFile(path string, base *Registry) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry file: %w", err)
	}
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse registry file: %w", err)
	}

	overrides := make(map[string]bool, len(f.Tables))
	for _, t := range f.Tables {
		overrides[t.Name] = true
	}
	var schemas []TableSchema
	if base != nil {
		for _, name := range base.order {
			if !overrides[name] {
				schemas = append(schemas, base.tables[name])
			}
		}
	}
	schemas = append(schemas, f.Tables...)

	r, err := NewRegistry(schemas...)
	if err != nil {
		return nil, err
	}
	if base != nil {
		for m, t := range base.models {
			r.models[m] = t
		}
	}
	for m, t := range f.Models {
		r.models[m] = t
	}
	return r, nil
}
