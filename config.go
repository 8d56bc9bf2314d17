package sheetdb

import (
	"log/slog"
	"time"
)

// DefaultCacheTTL is how long a bulk read of one table stays fresh.
const DefaultCacheTTL = 60 * time.Second

// Config represents configuration for the sheet-backed repository
type Config struct {
	CacheTTL      time.Duration // Lifetime of a cached table read (default: 60s)
	MaxRetries    int           // Retries for bulk reads; writes are never retried (default: 2)
	RetryInterval time.Duration // Base interval for exponential backoff (default: 100ms)
	Logger        *slog.Logger  // Defaults to slog.Default()
}

// DefaultConfig returns the recommended configuration.
func DefaultConfig() *Config {
	return &Config{
		CacheTTL:      DefaultCacheTTL,
		MaxRetries:    2,
		RetryInterval: 100 * time.Millisecond,
	}
}

// withDefaults fills zero values. A negative MaxRetries disables retries.
func (c Config) withDefaults() Config {
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 2
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = 100 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}
