package sqlstore

import (
	"context"
	"fmt"
	"strings"

	sheetdb "github.com/ideamans/go-sheetdb"
	"github.com/jmoiron/sqlx"
)

func (s *Store) seqDefinition() string {
	if s.driver == DriverPostgres {
		return quoteIdent(seqColumn) + " BIGSERIAL PRIMARY KEY"
	}
	return quoteIdent(seqColumn) + " INTEGER PRIMARY KEY AUTOINCREMENT"
}

func columnDefinition(schema sheetdb.TableSchema, col string) string {
	if col == schema.Identity {
		return quoteIdent(col) + " TEXT NOT NULL UNIQUE"
	}
	return quoteIdent(col) + " TEXT NOT NULL DEFAULT ''"
}

func (s *Store) createStatement(schema sheetdb.TableSchema) string {
	defs := []string{s.seqDefinition()}
	for _, col := range schema.Columns {
		defs = append(defs, columnDefinition(schema, col))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", quoteIdent(schema.Name), strings.Join(defs, ",\n\t"))
}

// existingColumns lists the columns the database already has for table.
func existingColumns(ctx context.Context, tx *sqlx.Tx, table string) (map[string]bool, error) {
	rows, err := tx.QueryxContext(ctx, fmt.Sprintf("SELECT * FROM %s WHERE 1 = 0", quoteIdent(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(cols))
	for _, c := range cols {
		have[c] = true
	}
	return have, nil
}

// Migrate creates a table for every registered schema and adds columns the
// registry declares but the database lacks. Existing columns and rows are
// never dropped.
func (s *Store) Migrate(ctx context.Context) error {
	if s.closed.Load() {
		return sheetdb.ErrClosed
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}

	for _, table := range s.registry.Tables() {
		schema, _ := s.registry.Lookup(table)
		if _, err := tx.ExecContext(ctx, s.createStatement(schema)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("create table %s: %w", table, err)
		}

		have, err := existingColumns(ctx, tx, table)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("inspect table %s: %w", table, err)
		}
		for _, col := range schema.Columns {
			if have[col] {
				continue
			}
			stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s TEXT NOT NULL DEFAULT ''", quoteIdent(table), quoteIdent(col))
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("add column %s.%s: %w", table, col, err)
			}
			s.logger.Info("added column", "table", table, "column", col)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}
