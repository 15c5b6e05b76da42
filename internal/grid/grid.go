// Package grid abstracts the remote tabular backing store. Each table is a
// 2-D grid of string cells whose row 0 is the header row. The store is rate
// limited and has no transactions; any call may fail transiently.
package grid

import (
	"context"
	"errors"
)

// Service provides raw row-level access to one spreadsheet-like store.
type Service interface {
	// ReadAllRows returns the full grid for a table, header row included.
	ReadAllRows(ctx context.Context, table string) ([][]string, error)
	// AppendRow adds a row after the last data row.
	AppendRow(ctx context.Context, table string, values []string) error
	// UpdateRow overwrites the row at rowIndex (0 is the header row).
	UpdateRow(ctx context.Context, table string, rowIndex int, values []string) error
	// DeleteRow removes the row at rowIndex, shifting later rows up.
	DeleteRow(ctx context.Context, table string, rowIndex int) error
}

var (
	// ErrTableNotFound indicates the named table does not exist in the store.
	ErrTableNotFound = errors.New("table not found")
	// ErrRowOutOfRange indicates a row index beyond the current grid.
	ErrRowOutOfRange = errors.New("row index out of range")
)
