package excel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	sheetdb "github.com/ideamans/go-sheetdb"
	"github.com/xuri/excelize/v2"
)

// Adapter is a sheetdb.Gateway and sheetdb.StructureManager over a local
// workbook, with one worksheet per logical table. Every call opens the file
// and every write saves it, so the workbook can be edited between calls.
type Adapter struct {
	config   Config
	registry *sheetdb.Registry
	mu       sync.RWMutex
}

var (
	_ sheetdb.Gateway          = (*Adapter)(nil)
	_ sheetdb.StructureManager = (*Adapter)(nil)
)

// New creates a new Excel adapter with the given configuration
func New(config *Config) (*Adapter, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	registry := config.Registry
	if registry == nil {
		registry = sheetdb.DefaultRegistry()
	}
	return &Adapter{config: *config, registry: registry}, nil
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// open returns the workbook, or nil when the file does not exist yet.
func (a *Adapter) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(a.config.FilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidFileFormat, err)
	}
	return f, nil
}

// update opens or creates the workbook, applies fn and saves the result.
func (a *Adapter) update(ctx context.Context, fn func(f *excelize.File) error) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := a.open()
	if err != nil {
		return err
	}
	if f == nil {
		if err := os.MkdirAll(filepath.Dir(a.config.FilePath), 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		f = excelize.NewFile()
	}
	defer f.Close()

	if err := fn(f); err != nil {
		return err
	}
	if err := f.SaveAs(a.config.FilePath); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	return nil
}

func hasSheet(f *excelize.File, table string) bool {
	idx, err := f.GetSheetIndex(table)
	return err == nil && idx != -1
}

// ReadAll retrieves every data row of the table's worksheet. A missing file
// or worksheet reads as an empty table.
func (a *Adapter) ReadAll(ctx context.Context, table string) ([]*sheetdb.Record, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()

	f, err := a.open()
	if err != nil {
		return nil, err
	}
	if f == nil {
		return []*sheetdb.Record{}, nil
	}
	defer f.Close()

	if !hasSheet(f, table) {
		return []*sheetdb.Record{}, nil
	}
	rows, err := f.GetRows(table)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	if len(rows) == 0 {
		return []*sheetdb.Record{}, nil
	}

	header := a.registry.CanonicalHeader(table, rows[0])

	records := make([]*sheetdb.Record, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}

		record := sheetdb.NewRecord(i + 1)
		for j, col := range header {
			if col == "" {
				continue
			}
			value := ""
			if j < len(row) {
				value = row[j]
			}
			record.Values[col] = value
		}
		records = append(records, record)
	}
	return records, nil
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}

// columns returns the write order of table: the registry schema, or the
// worksheet's own header row for tables without one.
func (a *Adapter) columns(f *excelize.File, table string) ([]string, error) {
	if cols := a.registry.ColumnsFor(table); cols != nil {
		return cols, nil
	}
	if !hasSheet(f, table) {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, table)
	}
	rows, err := f.GetRows(table)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s has no header row", ErrSheetNotFound, table)
	}
	return rows[0], nil
}

// ensureSheet creates the worksheet with its header row when missing.
func (a *Adapter) ensureSheet(f *excelize.File, table string, cols []string) error {
	if hasSheet(f, table) {
		return nil
	}
	if _, err := f.NewSheet(table); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	a.dropDefaultSheet(f, table)
	return writeRow(f, table, 1, cols, 0)
}

// dropDefaultSheet removes the blank sheet a new workbook starts with.
func (a *Adapter) dropDefaultSheet(f *excelize.File, keep string) {
	const defaultSheet = "Sheet1"
	if keep == defaultSheet || !hasSheet(f, defaultSheet) {
		return
	}
	if _, ok := a.registry.Lookup(defaultSheet); ok {
		return
	}
	if rows, err := f.GetRows(defaultSheet); err == nil && len(rows) == 0 {
		_ = f.DeleteSheet(defaultSheet)
	}
}

// writeRow writes values across row, blanking up to width cells.
func writeRow(f *excelize.File, table string, row int, values []string, width int) error {
	if width < len(values) {
		width = len(values)
	}
	line := make([]interface{}, width)
	for i := range line {
		line[i] = ""
		if i < len(values) {
			line[i] = values[i]
		}
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(table, cell, &line); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}

// AppendRow adds one row after the last used row
func (a *Adapter) AppendRow(ctx context.Context, table string, row map[string]interface{}) error {
	return a.update(ctx, func(f *excelize.File) error {
		cols, err := a.columns(f, table)
		if err != nil {
			return err
		}
		if err := a.ensureSheet(f, table, cols); err != nil {
			return err
		}
		rows, err := f.GetRows(table)
		if err != nil {
			return fmt.Errorf("failed to get rows: %w", err)
		}

		values := make([]string, len(cols))
		for i, col := range cols {
			values[i] = cellValue(row[col])
		}
		return writeRow(f, table, len(rows)+1, values, 0)
	})
}

// UpdateCells overwrites the named cells of one row
func (a *Adapter) UpdateCells(ctx context.Context, table string, rowIdx int, fields map[string]interface{}) error {
	return a.BatchUpdateCells(ctx, table, []sheetdb.CellUpdate{{RowIdx: rowIdx, Values: fields}})
}

// BatchUpdateCells applies all cell updates of table and saves once
func (a *Adapter) BatchUpdateCells(ctx context.Context, table string, updates []sheetdb.CellUpdate) error {
	for _, u := range updates {
		if u.RowIdx < 2 {
			return fmt.Errorf("%w: %d", sheetdb.ErrInvalidRowIndex, u.RowIdx)
		}
	}
	if len(updates) == 0 {
		return nil
	}

	return a.update(ctx, func(f *excelize.File) error {
		if !hasSheet(f, table) {
			return fmt.Errorf("%w: %s", ErrSheetNotFound, table)
		}
		cols, err := a.columns(f, table)
		if err != nil {
			return err
		}

		for _, u := range updates {
			fields := make([]string, 0, len(u.Values))
			for field := range u.Values {
				fields = append(fields, field)
			}
			sort.Strings(fields)

			for _, field := range fields {
				idx := indexOf(cols, field)
				if idx < 0 {
					continue
				}
				cell, err := excelize.CoordinatesToCellName(idx+1, u.RowIdx)
				if err != nil {
					return err
				}
				if err := f.SetCellValue(table, cell, cellValue(u.Values[field])); err != nil {
					return fmt.Errorf("failed to set %s: %w", cell, err)
				}
			}
		}
		return nil
	})
}

// DeleteRow removes one physical row, shifting the rows below it up
func (a *Adapter) DeleteRow(ctx context.Context, table string, rowIdx int) error {
	if rowIdx < 2 {
		return fmt.Errorf("%w: %d", sheetdb.ErrInvalidRowIndex, rowIdx)
	}
	return a.update(ctx, func(f *excelize.File) error {
		if !hasSheet(f, table) {
			return fmt.Errorf("%w: %s", ErrSheetNotFound, table)
		}
		if err := f.RemoveRow(table, rowIdx); err != nil {
			return fmt.Errorf("failed to delete row: %w", err)
		}
		return nil
	})
}

// Headers returns the header row of table and whether its worksheet exists
func (a *Adapter) Headers(ctx context.Context, table string) ([]string, bool, error) {
	if err := checkContext(ctx); err != nil {
		return nil, false, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()

	f, err := a.open()
	if err != nil || f == nil {
		return nil, false, err
	}
	defer f.Close()

	if !hasSheet(f, table) {
		return nil, false, nil
	}
	rows, err := f.GetRows(table)
	if err != nil {
		return nil, true, fmt.Errorf("failed to get rows: %w", err)
	}
	headers := []string{}
	if len(rows) > 0 {
		for _, h := range rows[0] {
			headers = append(headers, strings.TrimSpace(h))
		}
	}
	return headers, true, nil
}

// CreateTable adds a worksheet named after table with headers in row 1
func (a *Adapter) CreateTable(ctx context.Context, table string, headers []string) error {
	return a.update(ctx, func(f *excelize.File) error {
		if hasSheet(f, table) {
			return fmt.Errorf("sheet %s already exists", table)
		}
		return a.ensureSheet(f, table, headers)
	})
}

// WriteHeaders replaces row 1 of the table's worksheet with headers
func (a *Adapter) WriteHeaders(ctx context.Context, table string, headers []string) error {
	return a.update(ctx, func(f *excelize.File) error {
		if !hasSheet(f, table) {
			return fmt.Errorf("%w: %s", ErrSheetNotFound, table)
		}
		rows, err := f.GetRows(table)
		if err != nil {
			return fmt.Errorf("failed to get rows: %w", err)
		}
		width := 0
		if len(rows) > 0 {
			width = len(rows[0])
		}
		return writeRow(f, table, 1, headers, width)
	})
}

func indexOf(cols []string, col string) int {
	for i, c := range cols {
		if c == col {
			return i
		}
	}
	return -1
}

// cellValue renders v as the text stored in a cell
func cellValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", val)
	}
}
