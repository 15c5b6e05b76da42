package store

import "strings"

// Cell values for boolean fields. The backing grid is stringly typed; these
// match what spreadsheet checkboxes render as.
const (
	cellTrue  = "TRUE"
	cellFalse = "FALSE"
)

// Record is one data row of a table. It wraps a row snapshot; mutations are
// in-memory only until written back through the store. Field 0 is always the
// record_id.
type Record struct {
	table string
	cells []string
}

// NewRecord wraps a row snapshot as a record of the given table.
func NewRecord(table string, cells []string) *Record {
	return &Record{table: table, cells: cells}
}

// Table returns the table this record belongs to.
func (r *Record) Table() string {
	return r.table
}

// ID returns the record's unique record_id.
func (r *Record) ID() string {
	return r.Field(0)
}

// Field returns the raw cell value at the given field index. Indices past the
// end of a short row read as empty, mirroring how sparse worksheet rows come
// back from the backing store.
func (r *Record) Field(i int) string {
	if i < 0 || i >= len(r.cells) {
		return ""
	}
	return r.cells[i]
}

// SetField mutates the in-memory cell at the given field index.
func (r *Record) SetField(i int, value string) {
	if i < 0 {
		return
	}
	for len(r.cells) <= i {
		r.cells = append(r.cells, "")
	}
	r.cells[i] = value
}

// Bool reads a boolean field.
func (r *Record) Bool(i int) bool {
	return strings.EqualFold(r.Field(i), cellTrue)
}

// SetBool writes a boolean field.
func (r *Record) SetBool(i int, value bool) {
	if value {
		r.SetField(i, cellTrue)
	} else {
		r.SetField(i, cellFalse)
	}
}

// Cells returns a copy of the record's row.
func (r *Record) Cells() []string {
	out := make([]string, len(r.cells))
	copy(out, r.cells)
	return out
}
