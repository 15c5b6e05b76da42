package grid

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process Service used by tests and local experiments.
type Memory struct {
	mu     sync.Mutex
	tables map[string][][]string
}

// NewMemory creates a memory grid seeded with one header row per table.
func NewMemory(headers map[string][]string) *Memory {
	tables := make(map[string][][]string, len(headers))
	for table, header := range headers {
		tables[table] = [][]string{copyRow(header)}
	}
	return &Memory{tables: tables}
}

func (m *Memory) ReadAllRows(_ context.Context, table string) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, ok := m.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = copyRow(row)
	}
	return out, nil
}

func (m *Memory) AppendRow(_ context.Context, table string, values []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, ok := m.tables[table]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	m.tables[table] = append(rows, copyRow(values))
	return nil
}

func (m *Memory) UpdateRow(_ context.Context, table string, rowIndex int, values []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, ok := m.tables[table]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	if rowIndex < 0 || rowIndex >= len(rows) {
		return fmt.Errorf("%w: %s row %d", ErrRowOutOfRange, table, rowIndex)
	}
	rows[rowIndex] = copyRow(values)
	return nil
}

func (m *Memory) DeleteRow(_ context.Context, table string, rowIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, ok := m.tables[table]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	if rowIndex < 0 || rowIndex >= len(rows) {
		return fmt.Errorf("%w: %s row %d", ErrRowOutOfRange, table, rowIndex)
	}
	m.tables[table] = append(rows[:rowIndex], rows[rowIndex+1:]...)
	return nil
}

func copyRow(row []string) []string {
	out := make([]string, len(row))
	copy(out, row)
	return out
}
