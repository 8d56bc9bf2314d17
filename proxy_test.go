package sheetdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProxy(schema TableSchema, values map[string]interface{}) *RowProxy {
	rec := NewRecord(5)
	for k, v := range values {
		rec.Values[k] = v
	}
	return NewRowProxy(schema.Name, schema, rec, nil)
}

func TestRowProxy_Get(t *testing.T) {
	users := TableSchema{Name: "users", Columns: []string{"id", "role", "active"}, Identity: "id", Configuration: true}
	tasks := TableSchema{Name: "tasks", Columns: []string{"task_id", "status"}, Identity: "task_id"}

	t.Run("stored values", func(t *testing.T) {
		p := newProxy(users, map[string]interface{}{"id": "u1", "role": "admin", "active": "yes"})
		assert.Equal(t, "admin", p.Get("role"))
		assert.Equal(t, true, p.Get("active"))
		assert.Equal(t, "admin", p.Get("user_role"), "alias reads through")
	})

	t.Run("bool coercion", func(t *testing.T) {
		for in, want := range map[interface{}]bool{
			"true": true, "1": true, "YES": true, "active": true,
			"false": false, "0": false, "inactive": false, "": false, "garbage": false,
			true: true, false: false,
		} {
			p := newProxy(users, map[string]interface{}{"active": in})
			assert.Equal(t, want, p.Get("active"), "active=%#v", in)
		}
	})

	t.Run("defaults for absent fields", func(t *testing.T) {
		p := newProxy(users, map[string]interface{}{"id": "u1"})
		assert.Equal(t, true, p.Get("active"))
		assert.Equal(t, true, p.Get("is_active"))
		assert.Equal(t, false, p.Get("is_deleted"))
		assert.Equal(t, "operator", p.Get("role"))
		assert.Equal(t, "operator", p.Get("user_role"))
		assert.Equal(t, "active", p.Get("status"), "configuration tables default to active")
		assert.Equal(t, "", p.Get("anything"))

		task := newProxy(tasks, map[string]interface{}{"task_id": "t1"})
		assert.Equal(t, "pending", task.Get("status"))
	})

	t.Run("nil never leaks", func(t *testing.T) {
		p := newProxy(tasks, map[string]interface{}{"status": nil})
		assert.Equal(t, "", p.Get("status"))
	})

	t.Run("typed reads", func(t *testing.T) {
		p := newProxy(tasks, map[string]interface{}{"task_id": " t1 ", "priority": "3", "ratio": "0.5", "status": "active", "due": "2026-02-03"})
		assert.Equal(t, "t1", p.ID())
		assert.Equal(t, int64(3), p.Int("priority"))
		assert.Equal(t, 0.5, p.Float("ratio"))
		assert.True(t, p.Bool("status"))
		assert.Equal(t, 2026, p.Time("due").Year())
		assert.Equal(t, 5, p.RowIdx())
		assert.Equal(t, "tasks", p.Table())
		assert.True(t, p.Has("priority"))
		assert.False(t, p.Has("missing"))
	})
}

func TestRowProxy_Set(t *testing.T) {
	p := newProxy(testTasks, map[string]interface{}{"task_id": "t1", "title": "Cut", "status": "pending"})
	assert.False(t, p.IsDirty())

	require.NoError(t, p.Set("status", "done"))
	require.NoError(t, p.Set("title", "Cut panels"))
	require.NoError(t, p.Set("status", "blocked"))

	assert.Equal(t, []string{"status", "title"}, p.DirtyFields(), "each field once, in first-assignment order")
	assert.Equal(t, map[string]interface{}{"status": "blocked", "title": "Cut panels"}, p.dirtyValues())

	assert.Error(t, p.Set("_row_idx", 9))
	assert.Error(t, p.Set("", 1))
	assert.Panics(t, func() { p.MustSet("_table", "x") })
	assert.Equal(t, 5, p.RowIdx())

	p.clearDirty()
	assert.False(t, p.IsDirty())
	assert.Equal(t, "blocked", p.Get("status"), "clearing dirty state keeps values")
}

func TestRowProxy_ToMap(t *testing.T) {
	p := newProxy(testTasks, map[string]interface{}{"task_id": "t9", "title": "Cut", "extra": "x"})
	m := p.ToMap()

	assert.Equal(t, "t9", m["id"], "id carries the identity value")
	assert.Equal(t, "pending", m["status"])
	assert.Equal(t, false, m["is_deleted"])
	assert.NotContains(t, m, "extra")
	assert.Len(t, m, len(testTasks.Columns)+1)

	users := TableSchema{Name: "users", Columns: []string{"id", "name"}, Identity: "id"}
	m = newProxy(users, map[string]interface{}{"id": "u1"}).ToMap()
	assert.Equal(t, map[string]interface{}{"id": "u1", "name": ""}, m)
}
