package sheetdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadersCompatible(t *testing.T) {
	expected := []string{"id", "name"}
	assert.True(t, HeadersCompatible([]string{"id", "name"}, expected))
	assert.True(t, HeadersCompatible([]string{" ID ", "Name", "notes"}, expected), "case, padding and trailing columns are tolerated")
	assert.False(t, HeadersCompatible([]string{"id"}, expected))
	assert.False(t, HeadersCompatible([]string{"name", "id"}, expected))
	assert.False(t, HeadersCompatible(nil, expected))
}

func TestVerifyStructure(t *testing.T) {
	registry := MustRegistry(testTasks, testMachines)
	mgr := &memStructure{headers: map[string][]string{
		"tasks": {"task_id", "title"},
	}}

	report, err := VerifyStructure(context.Background(), registry, mgr, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"tasks"}, report.Repaired)
	assert.Equal(t, []string{"machines"}, report.Created)
	assert.Empty(t, report.OK)
	assert.Equal(t, testTasks.Columns, mgr.headers["tasks"])
	assert.Equal(t, testMachines.Columns, mgr.headers["machines"])

	report, err = VerifyStructure(context.Background(), registry, mgr, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"tasks", "machines"}, report.OK)

	mgr.failOn = "machines"
	_, err = VerifyStructure(context.Background(), registry, mgr, nil)
	assert.ErrorIs(t, err, errBackend)
}
