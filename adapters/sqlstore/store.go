package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	sheetdb "github.com/ideamans/go-sheetdb"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver
)

// seqColumn orders rows by insertion, the way a sheet orders them by position.
const seqColumn = "_seq"

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Store is a sheetdb.Store over a relational database. Every logical table
// maps to one SQL table of TEXT columns, so rows read back through the same
// normalization as sheet cells.
type Store struct {
	db       *sqlx.DB
	driver   string
	registry *sheetdb.Registry
	logger   *slog.Logger
	now      func() time.Time
	closed   atomic.Bool
}

var _ sheetdb.Store = (*Store)(nil)

// Open connects to the configured database and pings it.
func Open(ctx context.Context, config Config) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	cfg := config.withDefaults()

	dsn, err := cfg.dataSource()
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.BusyTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}

	store := New(db, cfg.Registry, cfg.Logger)
	if cfg.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}
	return store, nil
}

// New wraps an open connection. The driver name of db selects the dialect.
func New(db *sqlx.DB, registry *sheetdb.Registry, logger *slog.Logger) *Store {
	if registry == nil {
		registry = sheetdb.DefaultRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:       db,
		driver:   db.DriverName(),
		registry: registry,
		logger:   logger,
		now:      time.Now,
	}
}

// Close releases the underlying database resources.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying sqlx.DB for advanced callers.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Registry returns the schema registry the store normalizes against.
func (s *Store) Registry() *sheetdb.Registry {
	return s.registry
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}

// schema resolves table and fails on closed stores and unknown tables.
func (s *Store) schema(table string) (sheetdb.TableSchema, error) {
	if s.closed.Load() {
		return sheetdb.TableSchema{}, sheetdb.ErrClosed
	}
	schema, ok := s.registry.Lookup(table)
	if !ok {
		return schema, fmt.Errorf("%w: %s", sheetdb.ErrUnknownTable, table)
	}
	return schema, nil
}

// cellText stores every value as text, the way a sheet cell holds it.
func cellText(v interface{}) string {
	return sheetdb.ToString(v, "")
}

// scanRecords reads every row into canonical records. NULLs read as "".
// Soft-deleted rows are skipped unless includeDeleted is set.
func (s *Store) scanRecords(rows *sqlx.Rows, table string, includeDeleted bool) ([]*sheetdb.Record, error) {
	defer rows.Close()

	var out []*sheetdb.Record
	for rows.Next() {
		raw := make(map[string]interface{})
		if err := rows.MapScan(raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		for k, v := range raw {
			raw[k] = cellText(v)
		}
		if !includeDeleted && sheetdb.IsDeleted(raw["is_deleted"]) {
			continue
		}
		out = append(out, &sheetdb.Record{Values: s.registry.NormalizeRow(table, raw, false)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	return out, nil
}

// GetAll returns the canonical rows of table in insertion order. Soft-deleted
// rows are skipped unless includeDeleted is set.
func (s *Store) GetAll(ctx context.Context, table string, includeDeleted bool) ([]*sheetdb.Record, error) {
	schema, err := s.schema(table)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		quoteAll(schema.Columns), quoteIdent(table), quoteIdent(seqColumn))
	rows, err := s.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	records, err := s.scanRecords(rows, table, includeDeleted)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []*sheetdb.Record{}
	}
	return records, nil
}

// GetByID returns the row whose identity column equals id, or nil.
// Soft-deleted rows are returned too.
func (s *Store) GetByID(ctx context.Context, table, id string) (*sheetdb.Record, error) {
	schema, err := s.schema(table)
	if err != nil {
		return nil, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}

	query := s.db.Rebind(fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		quoteAll(schema.Columns), quoteIdent(table), quoteIdent(schema.Identity)))
	rows, err := s.db.QueryxContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	records, err := s.scanRecords(rows, table, true)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return records[0], nil
}

// Insert adds a row and returns it with generated defaults applied.
func (s *Store) Insert(ctx context.Context, table string, data map[string]interface{}) (map[string]interface{}, error) {
	schema, err := s.schema(table)
	if err != nil {
		return nil, err
	}
	row := s.registry.NormalizeRow(table, sheetdb.PrepareInsert(s.registry, table, data, s.now()), false)

	args := make([]interface{}, len(schema.Columns))
	marks := make([]string, len(schema.Columns))
	for i, col := range schema.Columns {
		args[i] = cellText(row[col])
		marks[i] = "?"
	}
	query := s.db.Rebind(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), quoteAll(schema.Columns), strings.Join(marks, ", ")))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("insert into %s: %w", table, err)
	}
	return row, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Rebind(query string) string
}

// updateRow writes the declared columns of values to the row with id and
// reports whether a row matched.
func (s *Store) updateRow(ctx context.Context, ex execer, schema sheetdb.TableSchema, id string, values map[string]interface{}) (bool, error) {
	cols := make([]string, 0, len(values))
	for col := range values {
		if schema.HasColumn(col) {
			cols = append(cols, col)
		}
	}
	if len(cols) == 0 {
		return false, nil
	}
	sort.Strings(cols)

	sets := make([]string, len(cols))
	args := make([]interface{}, 0, len(cols)+1)
	for i, col := range cols {
		sets[i] = quoteIdent(col) + " = ?"
		args = append(args, cellText(values[col]))
	}
	args = append(args, id)

	query := ex.Rebind(fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		quoteIdent(schema.Name), strings.Join(sets, ", "), quoteIdent(schema.Identity)))
	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update %s %s: %w", schema.Name, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Update overwrites the given columns of the row identified by id. It
// reports false when id is empty or matches no row.
func (s *Store) Update(ctx context.Context, table, id string, data map[string]interface{}) (bool, error) {
	schema, err := s.schema(table)
	if err != nil {
		return false, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return false, nil
	}
	return s.updateRow(ctx, s.db, schema, id, sheetdb.PrepareUpdate(s.registry, table, data, s.now()))
}

// UpdateBatch applies all updates of table in one transaction. Updates
// addressing no row are skipped and reported through an ErrNotFound error
// after the rest have been committed.
func (s *Store) UpdateBatch(ctx context.Context, table string, updates []sheetdb.RowUpdate) error {
	schema, err := s.schema(table)
	if err != nil {
		return err
	}
	if len(updates) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch update: %w", err)
	}

	var missing []string
	now := s.now()
	for _, u := range updates {
		id := strings.TrimSpace(u.ID)
		ok := false
		if id != "" {
			ok, err = s.updateRow(ctx, tx, schema, id, sheetdb.PrepareUpdate(s.registry, table, u.Values, now))
			if err != nil {
				_ = tx.Rollback()
				return err
			}
		}
		if !ok {
			missing = append(missing, u.ID)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch update: %w", err)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s %s", sheetdb.ErrNotFound, table, strings.Join(missing, ", "))
	}
	return nil
}

// SoftDelete marks the row identified by id as deleted.
func (s *Store) SoftDelete(ctx context.Context, table, id string) (bool, error) {
	return s.Update(ctx, table, id, map[string]interface{}{"is_deleted": true})
}

// HardDelete removes the row identified by id.
func (s *Store) HardDelete(ctx context.Context, table, id string) (bool, error) {
	schema, err := s.schema(table)
	if err != nil {
		return false, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return false, nil
	}

	query := s.db.Rebind(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quoteIdent(table), quoteIdent(schema.Identity)))
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("delete %s %s: %w", table, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
