package sheetdb

import "context"

// CellUpdate addresses one physical row and the cells to overwrite on it.
type CellUpdate struct {
	RowIdx int
	Values map[string]interface{}
}

// Gateway is the only component that talks to the backing spreadsheet.
// Implementations do not retry or cache; errors are returned as-is.
type Gateway interface {
	// ReadAll returns every data row of table. Each record carries its
	// physical row index and a value for every header column ("" when the
	// cell is missing).
	ReadAll(ctx context.Context, table string) ([]*Record, error)

	// AppendRow writes one new row at the end of table, in schema column order.
	AppendRow(ctx context.Context, table string, row map[string]interface{}) error

	// UpdateCells overwrites the named cells of one row. Fields that are not
	// columns of table are ignored.
	UpdateCells(ctx context.Context, table string, rowIdx int, fields map[string]interface{}) error

	// BatchUpdateCells applies several row updates in as few calls as the
	// backend allows.
	BatchUpdateCells(ctx context.Context, table string, updates []CellUpdate) error

	// DeleteRow physically removes one row.
	DeleteRow(ctx context.Context, table string, rowIdx int) error
}

// StructureManager inspects and repairs worksheet layout.
type StructureManager interface {
	// Headers returns the header row of table and whether the worksheet exists.
	Headers(ctx context.Context, table string) ([]string, bool, error)

	// CreateTable adds a worksheet for table with the given header row.
	CreateTable(ctx context.Context, table string, headers []string) error

	// WriteHeaders replaces the header row of table.
	WriteHeaders(ctx context.Context, table string, headers []string) error
}

// RowUpdate is the intent to change some columns of one row. Sheet-backed
// stores address the row by RowIdx (locating it by ID when RowIdx is zero);
// relational stores address it by ID.
type RowUpdate struct {
	ID     string
	RowIdx int
	Values map[string]interface{}
}

// Store is table-level CRUD over one backend. Not-found conditions are
// reported through nil records and false results, not errors.
type Store interface {
	Registry() *Registry
	GetAll(ctx context.Context, table string, includeDeleted bool) ([]*Record, error)
	GetByID(ctx context.Context, table, id string) (*Record, error)
	Insert(ctx context.Context, table string, data map[string]interface{}) (map[string]interface{}, error)
	Update(ctx context.Context, table, id string, data map[string]interface{}) (bool, error)
	UpdateBatch(ctx context.Context, table string, updates []RowUpdate) error
	SoftDelete(ctx context.Context, table, id string) (bool, error)
	HardDelete(ctx context.Context, table, id string) (bool, error)
}
