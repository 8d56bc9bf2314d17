package sheetdb

import (
	"context"
	"errors"
	"sync"
)

var errBackend = errors.New("backend unavailable")

// memGateway is an in-memory Gateway that counts calls and can be told to
// fail. Cells are stored as strings, the way a sheet holds them.
type memGateway struct {
	mu       sync.Mutex
	registry *Registry
	rows     map[string][]map[string]string

	reads, appends, batches, deletes int
	lastBatch                        []CellUpdate

	readFailures int             // fail this many reads before succeeding
	readErr      error           // fail every read while set
	failWrites   map[string]bool // tables whose writes fail
}

func newMemGateway(registry *Registry) *memGateway {
	return &memGateway{
		registry:   registry,
		rows:       make(map[string][]map[string]string),
		failWrites: make(map[string]bool),
	}
}

// seed appends raw rows without counting calls.
func (g *memGateway) seed(table string, rows ...map[string]string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rows[table] = append(g.rows[table], rows...)
}

func (g *memGateway) cell(table string, rowIdx int, col string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rows[table][rowIdx-2][col]
}

func (g *memGateway) counts() (reads, appends, batches int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reads, g.appends, g.batches
}

func (g *memGateway) ReadAll(ctx context.Context, table string) ([]*Record, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reads++
	if g.readErr != nil {
		return nil, g.readErr
	}
	if g.readFailures > 0 {
		g.readFailures--
		return nil, errBackend
	}

	cols := g.registry.ColumnsFor(table)
	out := make([]*Record, 0, len(g.rows[table]))
	for i, row := range g.rows[table] {
		rec := NewRecord(i + 2)
		for _, col := range cols {
			rec.Values[col] = row[col]
		}
		out = append(out, rec)
	}
	return out, nil
}

func (g *memGateway) AppendRow(ctx context.Context, table string, row map[string]interface{}) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.appends++
	if g.failWrites[table] {
		return errBackend
	}
	stored := make(map[string]string)
	for _, col := range g.registry.ColumnsFor(table) {
		stored[col] = ToString(row[col], "")
	}
	g.rows[table] = append(g.rows[table], stored)
	return nil
}

func (g *memGateway) UpdateCells(ctx context.Context, table string, rowIdx int, fields map[string]interface{}) error {
	return g.BatchUpdateCells(ctx, table, []CellUpdate{{RowIdx: rowIdx, Values: fields}})
}

func (g *memGateway) BatchUpdateCells(ctx context.Context, table string, updates []CellUpdate) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.batches++
	g.lastBatch = updates
	if g.failWrites[table] {
		return errBackend
	}
	schema, _ := g.registry.Lookup(table)
	for _, u := range updates {
		if u.RowIdx < 2 || u.RowIdx-2 >= len(g.rows[table]) {
			return ErrInvalidRowIndex
		}
		row := g.rows[table][u.RowIdx-2]
		for k, v := range u.Values {
			if schema.HasColumn(k) {
				row[k] = ToString(v, "")
			}
		}
	}
	return nil
}

func (g *memGateway) DeleteRow(ctx context.Context, table string, rowIdx int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deletes++
	if g.failWrites[table] {
		return errBackend
	}
	rows := g.rows[table]
	if rowIdx < 2 || rowIdx-2 >= len(rows) {
		return ErrInvalidRowIndex
	}
	g.rows[table] = append(rows[:rowIdx-2], rows[rowIdx-1:]...)
	return nil
}

// memStructure is an in-memory StructureManager.
type memStructure struct {
	headers map[string][]string
	created []string
	written []string
	failOn  string
}

func (m *memStructure) Headers(ctx context.Context, table string) ([]string, bool, error) {
	if table == m.failOn {
		return nil, false, errBackend
	}
	h, ok := m.headers[table]
	return h, ok, nil
}

func (m *memStructure) CreateTable(ctx context.Context, table string, headers []string) error {
	m.headers[table] = headers
	m.created = append(m.created, table)
	return nil
}

func (m *memStructure) WriteHeaders(ctx context.Context, table string, headers []string) error {
	m.headers[table] = headers
	m.written = append(m.written, table)
	return nil
}
