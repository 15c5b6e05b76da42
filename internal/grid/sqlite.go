package grid

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLite is a local grid backend for development and offline use. Rows are
// stored positionally so that row indices behave exactly like worksheet rows.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (and initializes) a SQLite-backed grid at the given path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	schema := `
CREATE TABLE IF NOT EXISTS grid_rows (
    table_name TEXT NOT NULL,
    row_index  INTEGER NOT NULL,
    cells      TEXT NOT NULL,
    PRIMARY KEY (table_name, row_index)
);`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// EnsureTable seeds the header row for a table that does not exist yet.
func (s *SQLite) EnsureTable(ctx context.Context, table string, header []string) error {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM grid_rows WHERE table_name = ?`, table).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking table %s: %w", table, err)
	}
	if count > 0 {
		return nil
	}
	cells, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("encoding header: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO grid_rows (table_name, row_index, cells) VALUES (?, 0, ?)`,
		table, string(cells))
	if err != nil {
		return fmt.Errorf("seeding header for %s: %w", table, err)
	}
	return nil
}

func (s *SQLite) ReadAllRows(ctx context.Context, table string) ([][]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cells FROM grid_rows WHERE table_name = ? ORDER BY row_index`, table)
	if err != nil {
		return nil, fmt.Errorf("reading rows from %s: %w", table, err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		var encoded string
		if err := rows.Scan(&encoded); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		var cells []string
		if err := json.Unmarshal([]byte(encoded), &cells); err != nil {
			return nil, fmt.Errorf("decoding row: %w", err)
		}
		out = append(out, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading rows from %s: %w", table, err)
	}
	if out == nil {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	return out, nil
}

func (s *SQLite) AppendRow(ctx context.Context, table string, values []string) error {
	cells, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encoding row: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO grid_rows (table_name, row_index, cells)
		SELECT ?, COALESCE(MAX(row_index), -1) + 1, ?
		FROM grid_rows WHERE table_name = ?`,
		table, string(cells), table)
	if err != nil {
		return fmt.Errorf("appending row to %s: %w", table, err)
	}
	return nil
}

func (s *SQLite) UpdateRow(ctx context.Context, table string, rowIndex int, values []string) error {
	cells, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encoding row: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE grid_rows SET cells = ? WHERE table_name = ? AND row_index = ?`,
		string(cells), table, rowIndex)
	if err != nil {
		return fmt.Errorf("updating row %d in %s: %w", rowIndex, table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating row %d in %s: %w", rowIndex, table, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s row %d", ErrRowOutOfRange, table, rowIndex)
	}
	return nil
}

func (s *SQLite) DeleteRow(ctx context.Context, table string, rowIndex int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("deleting row %d from %s: %w", rowIndex, table, err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM grid_rows WHERE table_name = ? AND row_index = ?`,
		table, rowIndex)
	if err != nil {
		return fmt.Errorf("deleting row %d from %s: %w", rowIndex, table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting row %d from %s: %w", rowIndex, table, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s row %d", ErrRowOutOfRange, table, rowIndex)
	}

	// Shift later rows up so indices stay contiguous like worksheet rows.
	// The negate-then-flip keeps the primary key unique mid-update.
	_, err = tx.ExecContext(ctx, `
		UPDATE grid_rows SET row_index = -(row_index - 1)
		WHERE table_name = ? AND row_index > ?`,
		table, rowIndex)
	if err != nil {
		return fmt.Errorf("compacting rows in %s: %w", table, err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE grid_rows SET row_index = -row_index
		WHERE table_name = ? AND row_index < 0`,
		table)
	if err != nil {
		return fmt.Errorf("compacting rows in %s: %w", table, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("deleting row %d from %s: %w", rowIndex, table, err)
	}
	return nil
}
