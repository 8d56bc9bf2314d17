package sheetdb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	r, err := NewRegistry(
		TableSchema{Name: "a", Columns: []string{"name", "id"}},
		TableSchema{Name: "b", Columns: []string{"code", "label"}},
		TableSchema{Name: "c", Columns: []string{"x", "key"}, Identity: "key"},
	)
	require.NoError(t, err)
	assert.Equal(t, "id", r.IdentityFor("a"))
	assert.Equal(t, "code", r.IdentityFor("b"))
	assert.Equal(t, "key", r.IdentityFor("c"))
	assert.Equal(t, []string{"a", "b", "c"}, r.Tables())
	assert.Nil(t, r.ColumnsFor("missing"))

	cols := r.ColumnsFor("a")
	cols[0] = "mutated"
	assert.Equal(t, "name", r.ColumnsFor("a")[0], "ColumnsFor returns a copy")

	bad := []TableSchema{
		{Columns: []string{"id"}},
		{Name: "t"},
		{Name: "t", Columns: []string{"id", "id"}},
		{Name: "t", Columns: []string{"id"}, Identity: "nope"},
	}
	for _, s := range bad {
		_, err := NewRegistry(s)
		assert.Error(t, err, "%+v", s)
	}
	_, err = NewRegistry(TableSchema{Name: "t", Columns: []string{"id"}}, TableSchema{Name: "t", Columns: []string{"id"}})
	assert.Error(t, err, "duplicate table")
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Len(t, r.Tables(), 11)

	for _, table := range r.Tables() {
		s, _ := r.Lookup(table)
		assert.True(t, s.HasColumn(s.Identity), "%s identity %s", table, s.Identity)
		assert.True(t, s.HasColumn("is_deleted"), table)
	}

	users, _ := r.Lookup("users")
	assert.True(t, users.Configuration)
	tasks, _ := r.Lookup("tasks")
	assert.False(t, tasks.Configuration)
	assert.Equal(t, "task_id", tasks.Identity)
}

func TestResolveTable(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, "filing_tasks", r.ResolveTable("FilingTask"))
	assert.Equal(t, "attendance", r.ResolveTable("Attendance"))
	assert.Equal(t, "machines", r.ResolveTable("machines"))
	assert.Equal(t, "widgets", r.ResolveTable("Widgets"))
}

func TestLoadRegistryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.yaml")
	doc := `
tables:
  - name: machines
    identity: machine_id
    configuration: true
    columns: [machine_id, name, status, serial, is_deleted]
  - name: shifts
    columns: [shift_id, name, starts_at, is_deleted]
models:
  Shift: shifts
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	r, err := LoadRegistryFile(path, DefaultRegistry())
	require.NoError(t, err)

	assert.Len(t, r.Tables(), 12)
	assert.Contains(t, r.ColumnsFor("machines"), "serial")
	assert.Equal(t, "shift_id", r.IdentityFor("shifts"))
	assert.Equal(t, "shifts", r.ResolveTable("Shift"))
	assert.Equal(t, "tasks", r.ResolveTable("Task"), "base models are kept")

	_, err = LoadRegistryFile(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)

	badPath := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(badPath, []byte("tables: [{name: x}]"), 0o600))
	_, err = LoadRegistryFile(badPath, nil)
	assert.Error(t, err, "table without columns")
}

func TestRegistry_CanonicalHeader(t *testing.T) {
	r := MustRegistry(TableSchema{Name: "tasks", Columns: []string{"task_id", "status", "is_deleted"}})

	got := r.CanonicalHeader("tasks", []string{" Task_ID", "STATUS ", "Is_Deleted", "Notes", ""})
	assert.Equal(t, []string{"task_id", "status", "is_deleted", "Notes", ""}, got)

	got = r.CanonicalHeader("unknown", []string{" Status "})
	assert.Equal(t, []string{"Status"}, got, "tables without a schema keep their header text")
}
