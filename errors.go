package sheetdb

import "errors"

var (
	ErrNotFound        = errors.New("row not found")
	ErrUnknownTable    = errors.New("unknown table")
	ErrNoIdentity      = errors.New("row has no identity value")
	ErrInvalidRowIndex = errors.New("invalid row index")
	ErrClosed          = errors.New("store is closed")
)
