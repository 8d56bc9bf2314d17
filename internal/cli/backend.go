package cli

import (
	"context"
	"fmt"
	"strings"

	sheetdb "github.com/ideamans/go-sheetdb"
	"github.com/ideamans/go-sheetdb/adapters/excel"
	"github.com/ideamans/go-sheetdb/adapters/googlesheets"
	"github.com/ideamans/go-sheetdb/adapters/sqlstore"
)

// backend is an opened datastore. structure is nil for SQL backends and sql
// is nil for sheet backends.
type backend struct {
	registry  *sheetdb.Registry
	store     sheetdb.Store
	structure sheetdb.StructureManager
	sql       *sqlstore.Store
}

func (b *backend) Close() error {
	if b.sql != nil {
		return b.sql.Close()
	}
	return nil
}

func (a *app) registry() (*sheetdb.Registry, error) {
	path := a.v.GetString(keyRegistry)
	if path == "" {
		return sheetdb.DefaultRegistry(), nil
	}
	return sheetdb.LoadRegistryFile(path, sheetdb.DefaultRegistry())
}

// repositoryConfig overlays the configured cache TTL on an adapter default.
func (a *app) repositoryConfig(base *sheetdb.Config) *sheetdb.Config {
	cfg := *base
	if ttl := a.v.GetDuration(keyCacheTTL); ttl > 0 {
		cfg.CacheTTL = ttl
	}
	cfg.Logger = a.logger
	return &cfg
}

func (a *app) openBackend(ctx context.Context) (*backend, error) {
	registry, err := a.registry()
	if err != nil {
		return nil, err
	}

	kind := strings.ToLower(a.v.GetString(keyBackend))
	switch kind {
	case "sheets":
		adaptor, err := googlesheets.New(ctx,
			googlesheets.Config{SpreadsheetID: a.v.GetString(keySpreadsheetID), Registry: registry},
			googlesheets.Credentials{File: a.v.GetString(keyCredentials)},
		)
		if err != nil {
			return nil, err
		}
		repo := sheetdb.NewRepository(adaptor, registry, nil, a.repositoryConfig(googlesheets.DefaultRepositoryConfig()))
		return &backend{registry: registry, store: repo, structure: adaptor}, nil

	case "excel":
		adapter, err := excel.New(&excel.Config{FilePath: a.v.GetString(keyExcelFile), Registry: registry})
		if err != nil {
			return nil, err
		}
		repo := sheetdb.NewRepository(adapter, registry, nil, a.repositoryConfig(excel.DefaultRepositoryConfig()))
		return &backend{registry: registry, store: repo, structure: adapter}, nil

	case sqlstore.DriverSQLite, sqlstore.DriverPostgres:
		store, err := sqlstore.Open(ctx, sqlstore.Config{
			Driver:   kind,
			DSN:      a.v.GetString(keyDSN),
			Registry: registry,
			Logger:   a.logger,
		})
		if err != nil {
			return nil, err
		}
		return &backend{registry: registry, store: store, sql: store}, nil

	default:
		return nil, fmt.Errorf("unknown backend %q", kind)
	}
}

// withSession opens the backend, runs fn with a fresh session and closes
// the backend again.
func (a *app) withSession(ctx context.Context, fn func(b *backend, s *sheetdb.Session) error) error {
	b, err := a.openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()
	return fn(b, sheetdb.NewSession(b.store, a.logger))
}
