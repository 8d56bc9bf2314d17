package sheetdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Repository is the sheet-backed Store: table-level CRUD on top of a
// Gateway, with bulk reads served from a Cache.
type Repository struct {
	gateway  Gateway
	registry *Registry
	cache    *Cache
	config   Config
	logger   *slog.Logger
	now      func() time.Time
}

var _ Store = (*Repository)(nil)

// NewRepository creates a repository. A nil cache gets a fresh one sized by
// config.CacheTTL; a nil config uses DefaultConfig.
func NewRepository(gateway Gateway, registry *Registry, cache *Cache, config *Config) *Repository {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := config.withDefaults()
	if registry == nil {
		registry = DefaultRegistry()
	}
	if cache == nil {
		cache = NewCache(cfg.CacheTTL, cfg.Logger)
	}
	return &Repository{
		gateway:  gateway,
		registry: registry,
		cache:    cache,
		config:   cfg,
		logger:   cfg.Logger,
		now:      time.Now,
	}
}

// Registry returns the schema registry the repository normalizes against.
func (r *Repository) Registry() *Registry {
	return r.registry
}

// Cache returns the repository's table cache.
func (r *Repository) Cache() *Cache {
	return r.cache
}

// readWithRetry performs a bulk read, retrying with capped exponential backoff.
func (r *Repository) readWithRetry(ctx context.Context, table string) ([]*Record, error) {
	var records []*Record
	var err error

	for i := 0; i <= r.config.MaxRetries; i++ {
		records, err = r.gateway.ReadAll(ctx, table)
		if err == nil {
			return records, nil
		}
		if i == r.config.MaxRetries {
			break
		}

		backoff := time.Duration(1<<uint(i)) * r.config.RetryInterval
		if backoff > 2*time.Second {
			backoff = 2 * time.Second
		}
		r.logger.Warn("read failed, retrying", "table", table, "attempt", i+1, "backoff", backoff, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("read %s failed after %d retries: %w", table, r.config.MaxRetries, err)
}

// rawRows returns the cached gateway rows of table.
func (r *Repository) rawRows(ctx context.Context, table string) ([]*Record, error) {
	return r.cache.GetOrRefresh(ctx, table, func(ctx context.Context) ([]*Record, error) {
		return r.readWithRetry(ctx, table)
	})
}

// Refresh re-reads table from the gateway and replaces its cache entry. A
// failed read keeps the previous entry for stale fallback.
func (r *Repository) Refresh(ctx context.Context, table string) error {
	return r.cache.Refresh(ctx, table, func(ctx context.Context) ([]*Record, error) {
		return r.readWithRetry(ctx, table)
	})
}

// IsDeleted reports whether a raw is_deleted cell marks its row deleted:
// a true bool or "true", "1" or "yes" in any case. Every store hides rows by
// this test so they agree on what counts as deleted.
func IsDeleted(v interface{}) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "1", "yes":
			return true
		}
	}
	return false
}

// GetAll returns the canonical rows of table. Soft-deleted rows are skipped
// unless includeDeleted is set.
func (r *Repository) GetAll(ctx context.Context, table string, includeDeleted bool) ([]*Record, error) {
	raw, err := r.rawRows(ctx, table)
	if err != nil {
		return nil, err
	}

	out := make([]*Record, 0, len(raw))
	for _, rec := range raw {
		if !includeDeleted && IsDeleted(rec.Values["is_deleted"]) {
			continue
		}
		out = append(out, &Record{
			RowIdx: rec.RowIdx,
			Values: r.registry.NormalizeRow(table, rec.Values, false),
		})
	}
	return out, nil
}

func (r *Repository) identityColumn(table string) string {
	if id := r.registry.IdentityFor(table); id != "" {
		return id
	}
	return "id"
}

// findRaw scans the cached rows of table for id. Soft-deleted rows match too.
func (r *Repository) findRaw(ctx context.Context, table, id string) (*Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	raw, err := r.rawRows(ctx, table)
	if err != nil {
		return nil, err
	}
	col := r.identityColumn(table)
	for _, rec := range raw {
		if strings.TrimSpace(ToString(rec.Values[col], "")) == id {
			return rec, nil
		}
	}
	return nil, nil
}

// GetByID returns the canonical row whose identity column equals id, or nil.
func (r *Repository) GetByID(ctx context.Context, table, id string) (*Record, error) {
	rec, err := r.findRaw(ctx, table, id)
	if err != nil || rec == nil {
		return nil, err
	}
	return &Record{RowIdx: rec.RowIdx, Values: r.registry.NormalizeRow(table, rec.Values, false)}, nil
}

// Insert appends a row and returns it with generated defaults applied.
func (r *Repository) Insert(ctx context.Context, table string, data map[string]interface{}) (map[string]interface{}, error) {
	row := r.registry.NormalizeRow(table, PrepareInsert(r.registry, table, data, r.now()), false)
	if err := r.gateway.AppendRow(ctx, table, row); err != nil {
		return nil, fmt.Errorf("insert into %s: %w", table, err)
	}
	r.cache.Invalidate(table)
	return row, nil
}

// Update overwrites the given columns of the row identified by id. It
// reports false when id is empty or matches no row.
func (r *Repository) Update(ctx context.Context, table, id string, data map[string]interface{}) (bool, error) {
	rec, err := r.findRaw(ctx, table, id)
	if err != nil || rec == nil {
		return false, err
	}

	values := PrepareUpdate(r.registry, table, data, r.now())
	if err := r.gateway.UpdateCells(ctx, table, rec.RowIdx, values); err != nil {
		return false, fmt.Errorf("update %s %s: %w", table, id, err)
	}
	r.cache.Invalidate(table)
	return true, nil
}

// UpdateBatch writes several partial row updates of one table in a single
// gateway call. Updates whose row cannot be located are skipped and reported
// through an ErrNotFound error after the rest have been written.
func (r *Repository) UpdateBatch(ctx context.Context, table string, updates []RowUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	var missing []string
	cells := make([]CellUpdate, 0, len(updates))
	now := r.now()
	for _, u := range updates {
		idx := u.RowIdx
		if idx <= 0 {
			rec, err := r.findRaw(ctx, table, u.ID)
			if err != nil {
				return err
			}
			if rec == nil {
				missing = append(missing, u.ID)
				continue
			}
			idx = rec.RowIdx
		}
		values := PrepareUpdate(r.registry, table, u.Values, now)
		cells = append(cells, CellUpdate{RowIdx: idx, Values: values})
	}

	if len(cells) > 0 {
		if err := r.gateway.BatchUpdateCells(ctx, table, cells); err != nil {
			return fmt.Errorf("batch update %s: %w", table, err)
		}
		r.cache.Invalidate(table)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s %s", ErrNotFound, table, strings.Join(missing, ", "))
	}
	return nil
}

// SoftDelete marks the row identified by id as deleted.
func (r *Repository) SoftDelete(ctx context.Context, table, id string) (bool, error) {
	return r.Update(ctx, table, id, map[string]interface{}{"is_deleted": true})
}

// HardDelete physically removes the row identified by id.
func (r *Repository) HardDelete(ctx context.Context, table, id string) (bool, error) {
	rec, err := r.findRaw(ctx, table, id)
	if err != nil || rec == nil {
		return false, err
	}
	if err := r.gateway.DeleteRow(ctx, table, rec.RowIdx); err != nil {
		return false, fmt.Errorf("delete %s %s: %w", table, id, err)
	}
	r.cache.Invalidate(table)
	return true, nil
}

// PrepareInsert applies insert defaults to a copy of data: a UUID identity
// when none is given, created_at and updated_at stamped with one instant when
// absent, and is_deleted false when absent.
func PrepareInsert(registry *Registry, table string, data map[string]interface{}, now time.Time) map[string]interface{} {
	out := make(map[string]interface{}, len(data)+4)
	for k, v := range data {
		out[k] = v
	}

	idCol := registry.IdentityFor(table)
	if idCol == "" {
		idCol = "id"
	}
	if strings.TrimSpace(ToString(out[idCol], "")) == "" {
		out[idCol] = uuid.NewString()
	}

	ts := now.UTC().Format(time.RFC3339)
	if isBlank(out["created_at"]) {
		out["created_at"] = ts
	}
	if isBlank(out["updated_at"]) {
		out["updated_at"] = ts
	}
	if _, ok := out["is_deleted"]; !ok {
		out["is_deleted"] = false
	}
	return out
}

// PrepareUpdate stamps updated_at on a copy of data when the caller did not
// and keeps only the declared columns present in it.
func PrepareUpdate(registry *Registry, table string, data map[string]interface{}, now time.Time) map[string]interface{} {
	out := make(map[string]interface{}, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	if isBlank(out["updated_at"]) {
		out["updated_at"] = now.UTC().Format(time.RFC3339)
	}
	return registry.NormalizeRow(table, out, true)
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
