package sqlstore

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	sheetdb "github.com/ideamans/go-sheetdb"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrMissingDSN is returned when no database location is configured
var ErrMissingDSN = errors.New("database DSN is required")

// Config holds configuration for the SQL store
type Config struct {
	Driver string // DriverSQLite (default) or DriverPostgres
	// DSN is a file path or file: URI for SQLite, a connection string for PostgreSQL.
	DSN string

	BusyTimeout     time.Duration // SQLite busy timeout; also bounds the startup ping
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// AutoMigrate runs Migrate when the store is opened.
	AutoMigrate bool

	Registry *sheetdb.Registry // Defaults to sheetdb.DefaultRegistry()
	Logger   *slog.Logger      // Defaults to slog.Default()
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Driver {
	case "", DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported driver %q", c.Driver)
	}
	if strings.TrimSpace(c.DSN) == "" {
		return ErrMissingDSN
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.Driver == "" {
		c.Driver = DriverSQLite
	}
	if c.BusyTimeout <= 0 {
		c.BusyTimeout = 5 * time.Second
	}
	if c.MaxOpenConns <= 0 {
		// SQLite serializes writers anyway; one connection avoids SQLITE_BUSY.
		if c.Driver == DriverSQLite {
			c.MaxOpenConns = 1
		} else {
			c.MaxOpenConns = 10
		}
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = c.MaxOpenConns
	}
	if c.Registry == nil {
		c.Registry = sheetdb.DefaultRegistry()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// dataSource turns the configured DSN into what the driver expects.
func (c Config) dataSource() (string, error) {
	if c.Driver != DriverSQLite || strings.HasPrefix(c.DSN, "file:") || c.DSN == ":memory:" {
		return c.DSN, nil
	}
	abs, err := filepath.Abs(c.DSN)
	if err != nil {
		return "", fmt.Errorf("resolve sqlite path: %w", err)
	}
	busy := int(c.BusyTimeout / time.Millisecond)
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", abs, busy), nil
}
