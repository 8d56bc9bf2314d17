package excel

import (
	"time"

	sheetdb "github.com/ideamans/go-sheetdb"
)

// Config holds configuration for Excel adapter
type Config struct {
	FilePath string // Path to the workbook; created on first write
	// Registry supplies column order for writes. Defaults to sheetdb.DefaultRegistry().
	Registry *sheetdb.Registry
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.FilePath == "" {
		return ErrMissingFilePath
	}
	return nil
}

// DefaultRepositoryConfig returns the recommended repository configuration
// for a local workbook
func DefaultRepositoryConfig() *sheetdb.Config {
	return &sheetdb.Config{
		CacheTTL:      5 * time.Second,
		MaxRetries:    1,
		RetryInterval: 50 * time.Millisecond,
	}
}
