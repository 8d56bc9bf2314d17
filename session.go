package sheetdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// TableMarkerKey may name the target table inside data passed to Add.
// It is stripped before the row is inserted.
const TableMarkerKey = "_table"

// CommitResult reports the outcome of one Commit per table.
type CommitResult struct {
	Committed map[string]int   // Rows written per table
	Failed    map[string]error // Error per table whose batch failed
}

// Err joins the per-table failures, or returns nil when every batch succeeded.
func (r *CommitResult) Err() error {
	if r == nil || len(r.Failed) == 0 {
		return nil
	}
	tables := make([]string, 0, len(r.Failed))
	for t := range r.Failed {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	errs := make([]error, 0, len(tables))
	for _, t := range tables {
		errs = append(errs, fmt.Errorf("commit %s: %w", t, r.Failed[t]))
	}
	return errors.Join(errs...)
}

// Session is a unit of work over a Store. Queries hand out fresh row
// proxies; assignments on them are collected and written per table on
// Commit. Inserts and deletes go to the store immediately.
//
// A Session is meant for one request and is not shared between goroutines
// that mutate its rows concurrently.
type Session struct {
	store    Store
	registry *Registry
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	dirty   []*RowProxy
	tracked map[*RowProxy]bool
}

// NewSession creates a session over store.
func NewSession(store Store, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		store:    store,
		registry: store.Registry(),
		logger:   logger,
		now:      time.Now,
		tracked:  make(map[*RowProxy]bool),
	}
}

// Query loads every row of the table named by model, soft-deleted rows
// included, and wraps each in a proxy bound to this session.
func (s *Session) Query(ctx context.Context, model string) (*Query, error) {
	table := s.registry.ResolveTable(model)
	records, err := s.store.GetAll(ctx, table, true)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	schema, _ := s.registry.Lookup(table)
	rows := make([]*RowProxy, 0, len(records))
	for _, rec := range records {
		rows = append(rows, NewRowProxy(table, schema, rec, s))
	}
	return NewQuery(table, rows), nil
}

// Get returns the row of model identified by id as a session-bound proxy,
// or nil when there is none.
func (s *Session) Get(ctx context.Context, model, id string) (*RowProxy, error) {
	table := s.registry.ResolveTable(model)
	rec, err := s.store.GetByID(ctx, table, id)
	if err != nil || rec == nil {
		return nil, err
	}
	schema, _ := s.registry.Lookup(table)
	return NewRowProxy(table, schema, rec, s), nil
}

// Add inserts a row right away. When model is empty the table is taken from
// data[TableMarkerKey].
func (s *Session) Add(ctx context.Context, model string, data map[string]interface{}) (map[string]interface{}, error) {
	row := make(map[string]interface{}, len(data))
	for k, v := range data {
		row[k] = v
	}
	if model == "" {
		model = ToString(row[TableMarkerKey], "")
	}
	delete(row, TableMarkerKey)
	if model == "" {
		return nil, fmt.Errorf("%w: no table given", ErrUnknownTable)
	}
	return s.store.Insert(ctx, s.registry.ResolveTable(model), row)
}

// track registers a proxy with pending assignments. Tracking twice is a no-op.
func (s *Session) track(p *RowProxy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracked[p] {
		return
	}
	s.tracked[p] = true
	s.dirty = append(s.dirty, p)
}

func (s *Session) untrack(p *RowProxy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tracked[p] {
		return
	}
	delete(s.tracked, p)
	for i, d := range s.dirty {
		if d == p {
			s.dirty = append(s.dirty[:i], s.dirty[i+1:]...)
			break
		}
	}
}

// Dirty returns the number of proxies waiting for Commit.
func (s *Session) Dirty() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dirty)
}

// Commit writes the dirty fields of every tracked proxy, one batch per
// table in order of first assignment. Each batch carries only the assigned
// fields plus a fresh updated_at. A failing batch does not stop the others;
// failures are collected in the result and returned joined. The session is
// clean afterwards either way; proxies of failed tables keep their dirty
// fields for inspection.
func (s *Session) Commit(ctx context.Context) (*CommitResult, error) {
	s.mu.Lock()
	pending := s.dirty
	s.dirty = nil
	s.tracked = make(map[*RowProxy]bool)
	s.mu.Unlock()

	result := &CommitResult{
		Committed: make(map[string]int),
		Failed:    make(map[string]error),
	}

	var tables []string
	groups := make(map[string][]*RowProxy)
	for _, p := range pending {
		if _, seen := groups[p.table]; !seen {
			tables = append(tables, p.table)
		}
		groups[p.table] = append(groups[p.table], p)
	}

	stamp := s.now().UTC().Format(time.RFC3339)
	for _, table := range tables {
		rows := groups[table]
		schema, known := s.registry.Lookup(table)
		stamped := !known || schema.HasColumn("updated_at")
		updates := make([]RowUpdate, 0, len(rows))
		for _, p := range rows {
			values := p.dirtyValues()
			if len(values) == 0 {
				continue
			}
			if stamped {
				values["updated_at"] = stamp
			}
			updates = append(updates, RowUpdate{
				ID:     p.ID(),
				RowIdx: p.rowIdx,
				Values: s.registry.NormalizeRow(table, values, true),
			})
		}
		if len(updates) == 0 {
			continue
		}

		if err := s.store.UpdateBatch(ctx, table, updates); err != nil {
			s.logger.Error("commit batch failed", "table", table, "rows", len(updates), "error", err)
			result.Failed[table] = err
			continue
		}
		for _, p := range rows {
			if stamped {
				p.data["updated_at"] = stamp
			}
			p.clearDirty()
		}
		result.Committed[table] = len(updates)
	}

	return result, result.Err()
}

// Rollback forgets every pending assignment without writing it. The proxies
// keep their in-memory values; callers should drop them.
func (s *Session) Rollback() {
	s.mu.Lock()
	pending := s.dirty
	s.dirty = nil
	s.tracked = make(map[*RowProxy]bool)
	s.mu.Unlock()

	for _, p := range pending {
		p.clearDirty()
	}
}

// Delete removes the row behind p: a soft delete marks is_deleted, a hard
// delete removes the row from the backend. Pending assignments on p are
// discarded.
func (s *Session) Delete(ctx context.Context, p *RowProxy, soft bool) (bool, error) {
	if p == nil {
		return false, nil
	}
	s.untrack(p)
	p.clearDirty()

	id := p.ID()
	if id == "" {
		return false, nil
	}
	if soft {
		return s.store.SoftDelete(ctx, p.table, id)
	}
	return s.store.HardDelete(ctx, p.table, id)
}
