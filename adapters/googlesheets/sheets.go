package googlesheets

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	sheetdb "github.com/ideamans/go-sheetdb"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// readColumns bounds bulk reads; wider tables are not expected.
const readColumns = "A:ZZ"

// SheetsAdaptor is a sheetdb.Gateway and sheetdb.StructureManager over one
// spreadsheet, with one worksheet per logical table.
type SheetsAdaptor struct {
	service       *sheets.Service
	spreadsheetID string
	registry      *sheetdb.Registry

	mu       sync.Mutex
	sheetIDs map[string]int64 // worksheet title -> sheet ID
}

var (
	_ sheetdb.Gateway          = (*SheetsAdaptor)(nil)
	_ sheetdb.StructureManager = (*SheetsAdaptor)(nil)
)

// NewSheetsAdaptor creates a new Google Sheets adaptor with provided options
func NewSheetsAdaptor(ctx context.Context, config Config, opts ...option.ClientOption) (*SheetsAdaptor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	registry := config.Registry
	if registry == nil {
		registry = sheetdb.DefaultRegistry()
	}
	return &SheetsAdaptor{
		service:       service,
		spreadsheetID: config.SpreadsheetID,
		registry:      registry,
	}, nil
}

// a1Range builds an A1 range on the worksheet of table, quoting the title
// when it is not a plain identifier.
func a1Range(table, rng string) string {
	plain := table != ""
	for _, r := range table {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			plain = false
			break
		}
	}
	if plain {
		return table + "!" + rng
	}
	return "'" + strings.ReplaceAll(table, "'", "''") + "'!" + rng
}

// ReadAll retrieves every data row of the table's worksheet
func (a *SheetsAdaptor) ReadAll(ctx context.Context, table string) ([]*sheetdb.Record, error) {
	resp, err := a.service.Spreadsheets.Values.Get(a.spreadsheetID, a1Range(table, readColumns)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get sheet data: %w", err)
	}
	if len(resp.Values) == 0 {
		return []*sheetdb.Record{}, nil
	}

	header := make([]string, len(resp.Values[0]))
	for i, v := range resp.Values[0] {
		header[i] = cellString(v)
	}
	header = a.registry.CanonicalHeader(table, header)

	records := make([]*sheetdb.Record, 0, len(resp.Values)-1)
	for i := 1; i < len(resp.Values); i++ {
		row := resp.Values[i]
		if isEmptyRow(row) {
			continue
		}

		// Row 1 is the header, so data row i lives on physical row i+1
		record := sheetdb.NewRecord(i + 1)
		for j, col := range header {
			if col == "" {
				continue
			}
			value := ""
			if j < len(row) {
				value = cellString(row[j])
			}
			record.Values[col] = value
		}
		records = append(records, record)
	}
	return records, nil
}

func isEmptyRow(row []interface{}) bool {
	for _, v := range row {
		if cellString(v) != "" {
			return false
		}
	}
	return true
}

// columns returns the write order of table: the registry schema, or the
// worksheet's own header row for tables without one.
func (a *SheetsAdaptor) columns(ctx context.Context, table string) ([]string, error) {
	if cols := a.registry.ColumnsFor(table); cols != nil {
		return cols, nil
	}
	headers, exists, err := a.Headers(ctx, table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, table)
	}
	return headers, nil
}

// AppendRow adds one row after the last data row
func (a *SheetsAdaptor) AppendRow(ctx context.Context, table string, row map[string]interface{}) error {
	cols, err := a.columns(ctx, table)
	if err != nil {
		return err
	}
	values := make([]interface{}, len(cols))
	for i, col := range cols {
		values[i] = convertToSheetValue(row[col])
	}

	vr := &sheets.ValueRange{Values: [][]interface{}{values}}
	_, err = a.service.Spreadsheets.Values.Append(a.spreadsheetID, a1Range(table, "A1"), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}
	return nil
}

// UpdateCells overwrites the named cells of one row
func (a *SheetsAdaptor) UpdateCells(ctx context.Context, table string, rowIdx int, fields map[string]interface{}) error {
	return a.BatchUpdateCells(ctx, table, []sheetdb.CellUpdate{{RowIdx: rowIdx, Values: fields}})
}

// BatchUpdateCells writes all cell updates of table in one values:batchUpdate call
func (a *SheetsAdaptor) BatchUpdateCells(ctx context.Context, table string, updates []sheetdb.CellUpdate) error {
	cols, err := a.columns(ctx, table)
	if err != nil {
		return err
	}

	var data []*sheets.ValueRange
	for _, u := range updates {
		if u.RowIdx < 2 {
			return fmt.Errorf("%w: %d", sheetdb.ErrInvalidRowIndex, u.RowIdx)
		}
		fields := make([]string, 0, len(u.Values))
		for f := range u.Values {
			fields = append(fields, f)
		}
		sort.Strings(fields)

		for _, f := range fields {
			idx := indexOf(cols, f)
			if idx < 0 {
				continue // never write outside the known columns
			}
			cell := columnName(idx+1) + strconv.Itoa(u.RowIdx)
			data = append(data, &sheets.ValueRange{
				Range:  a1Range(table, cell),
				Values: [][]interface{}{{convertToSheetValue(u.Values[f])}},
			})
		}
	}
	if len(data) == 0 {
		return nil
	}

	req := &sheets.BatchUpdateValuesRequest{ValueInputOption: "RAW", Data: data}
	if _, err := a.service.Spreadsheets.Values.BatchUpdate(a.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to update cells: %w", err)
	}
	return nil
}

// DeleteRow removes one physical row, shifting the rows below it up
func (a *SheetsAdaptor) DeleteRow(ctx context.Context, table string, rowIdx int) error {
	if rowIdx < 2 {
		return fmt.Errorf("%w: %d", sheetdb.ErrInvalidRowIndex, rowIdx)
	}
	sheetID, err := a.sheetID(ctx, table)
	if err != nil {
		return err
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:         sheetID,
					Dimension:       "ROWS",
					StartIndex:      int64(rowIdx - 1),
					EndIndex:        int64(rowIdx),
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}
	if _, err := a.service.Spreadsheets.BatchUpdate(a.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete row: %w", err)
	}
	return nil
}

// sheetTitles lists worksheet titles with their sheet IDs
func (a *SheetsAdaptor) sheetTitles(ctx context.Context) (map[string]int64, error) {
	resp, err := a.service.Spreadsheets.Get(a.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get spreadsheet: %w", err)
	}
	ids := make(map[string]int64, len(resp.Sheets))
	for _, s := range resp.Sheets {
		if s.Properties != nil {
			ids[s.Properties.Title] = s.Properties.SheetId
		}
	}

	a.mu.Lock()
	a.sheetIDs = ids
	a.mu.Unlock()
	return ids, nil
}

func (a *SheetsAdaptor) sheetID(ctx context.Context, table string) (int64, error) {
	a.mu.Lock()
	id, ok := a.sheetIDs[table]
	a.mu.Unlock()
	if ok {
		return id, nil
	}

	ids, err := a.sheetTitles(ctx)
	if err != nil {
		return 0, err
	}
	id, ok = ids[table]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrSheetNotFound, table)
	}
	return id, nil
}

// Headers returns the header row of table and whether its worksheet exists
func (a *SheetsAdaptor) Headers(ctx context.Context, table string) ([]string, bool, error) {
	ids, err := a.sheetTitles(ctx)
	if err != nil {
		return nil, false, err
	}
	if _, ok := ids[table]; !ok {
		return nil, false, nil
	}

	resp, err := a.service.Spreadsheets.Values.Get(a.spreadsheetID, a1Range(table, "1:1")).Context(ctx).Do()
	if err != nil {
		return nil, true, fmt.Errorf("failed to get header row: %w", err)
	}
	headers := []string{}
	if len(resp.Values) > 0 {
		for _, v := range resp.Values[0] {
			headers = append(headers, strings.TrimSpace(cellString(v)))
		}
	}
	return headers, true, nil
}

// CreateTable adds a worksheet named after table and writes its header row
func (a *SheetsAdaptor) CreateTable(ctx context.Context, table string, headers []string) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: table},
			},
		}},
	}
	if _, err := a.service.Spreadsheets.BatchUpdate(a.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to add worksheet: %w", err)
	}

	a.mu.Lock()
	a.sheetIDs = nil
	a.mu.Unlock()

	return a.WriteHeaders(ctx, table, headers)
}

// WriteHeaders clears row 1 and writes headers into it
func (a *SheetsAdaptor) WriteHeaders(ctx context.Context, table string, headers []string) error {
	if _, err := a.service.Spreadsheets.Values.Clear(a.spreadsheetID, a1Range(table, "1:1"), &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to clear header row: %w", err)
	}

	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	vr := &sheets.ValueRange{Values: [][]interface{}{row}}
	_, err := a.service.Spreadsheets.Values.Update(a.spreadsheetID, a1Range(table, "A1"), vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}
	return nil
}

func indexOf(cols []string, col string) int {
	for i, c := range cols {
		if c == col {
			return i
		}
	}
	return -1
}

// columnName converts a column number to its A1 letters (1 -> A, 27 -> AA)
func columnName(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}

// cellString renders a cell from the API as the string the sheet shows
func cellString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprintf("%v", val)
	}
}

// convertToSheetValue converts a Go value to a Google Sheets cell value
func convertToSheetValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int, int8, int16, int32, int64:
		return fmt.Sprintf("%d", val)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val)
	case float32, float64:
		return fmt.Sprintf("%g", val)
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", val)
	}
}
