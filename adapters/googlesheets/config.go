package googlesheets

import (
	"errors"
	"strings"
	"time"

	sheetdb "github.com/ideamans/go-sheetdb"
)

var (
	// ErrMissingSpreadsheetID is returned when no spreadsheet is configured
	ErrMissingSpreadsheetID = errors.New("spreadsheet ID is required")

	// ErrSheetNotFound is returned when a table has no worksheet
	ErrSheetNotFound = errors.New("worksheet not found")
)

// Config represents configuration specific to Google Sheets adapter
type Config struct {
	SpreadsheetID string
	// Registry supplies column order for writes. Defaults to sheetdb.DefaultRegistry().
	Registry *sheetdb.Registry
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.SpreadsheetID) == "" {
		return ErrMissingSpreadsheetID
	}
	return nil
}

// DefaultRepositoryConfig returns the recommended repository configuration
// for Google Sheets. Retries back off longer to stay within API quotas.
func DefaultRepositoryConfig() *sheetdb.Config {
	return &sheetdb.Config{
		CacheTTL:      60 * time.Second,
		MaxRetries:    3,
		RetryInterval: 1 * time.Second,
	}
}
