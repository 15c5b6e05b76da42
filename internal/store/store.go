// Package store implements the generic record store over the backing grid:
// per-table snapshot caching, serialized writes, and filtered scans. It is the
// only layer that talks to the grid service directly.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/ganot/leaguedesk/internal/grid"
)

// Options tune caching and write pacing.
type Options struct {
	// CacheTTL is how long a table snapshot may serve reads before a refresh.
	CacheTTL time.Duration
	// WriteDelay, when non-zero, pauses before each write while holding the
	// table's write lock, giving the rate-limited backing store room to
	// breathe and coalescing bursts of writes.
	WriteDelay time.Duration
}

// Store is the record store. Writes to the same table never interleave; reads
// are served from a per-table cache that is invalidated on every write.
type Store struct {
	grid       grid.Service
	cacheTTL   time.Duration
	writeDelay time.Duration
	logger     *slog.Logger

	mu     sync.Mutex
	tables map[string]*tableState
	flight singleflight.Group
}

type tableState struct {
	writeMu sync.Mutex

	cacheMu   sync.Mutex
	snapshot  [][]string
	fetchedAt time.Time
	gen       uint64
}

// New creates a record store over the given grid service.
func New(g grid.Service, opts Options, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		grid:       g,
		cacheTTL:   opts.CacheTTL,
		writeDelay: opts.WriteDelay,
		logger:     logger,
		tables:     make(map[string]*tableState),
	}
}

func (s *Store) table(name string) *tableState {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.tables[name]
	if !ok {
		ts = &tableState{}
		s.tables[name] = ts
	}
	return ts
}

// GetTableData returns the full grid for a table, header row included. A
// cached snapshot younger than the TTL is served as-is; otherwise a fresh
// snapshot is fetched, with concurrent refreshes of the same table deduped.
// Each invalidation bumps the table's generation; a refresh that started
// before an invalidation must not install or serve its rows, otherwise a
// read begun before a write could resurrect the pre-write snapshot.
// Callers must not mutate the returned rows.
func (s *Store) GetTableData(ctx context.Context, table string) ([][]string, error) {
	ts := s.table(table)

	for {
		ts.cacheMu.Lock()
		if ts.snapshot != nil && time.Since(ts.fetchedAt) < s.cacheTTL {
			snapshot := ts.snapshot
			ts.cacheMu.Unlock()
			return snapshot, nil
		}
		gen := ts.gen
		ts.cacheMu.Unlock()

		v, err, _ := s.flight.Do(table, func() (any, error) {
			// The refresh is shared by every waiter, so it must outlive
			// cancellation of the caller that happened to start it.
			rows, err := s.grid.ReadAllRows(context.WithoutCancel(ctx), table)
			if err != nil {
				return nil, fmt.Errorf("reading table %s: %w", table, err)
			}
			ts.cacheMu.Lock()
			if ts.gen == gen {
				ts.snapshot = rows
				ts.fetchedAt = time.Now()
			}
			ts.cacheMu.Unlock()
			return rows, nil
		})
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ts.cacheMu.Lock()
		stale := ts.gen != gen
		ts.cacheMu.Unlock()
		if stale {
			continue
		}
		return v.([][]string), nil
	}
}

// Invalidate drops the cached snapshot for a table and marks any in-flight
// refresh stale.
func (s *Store) Invalidate(table string) {
	ts := s.table(table)
	ts.cacheMu.Lock()
	ts.snapshot = nil
	ts.gen++
	ts.cacheMu.Unlock()
	s.flight.Forget(table)
}

// CreateRecord assigns a fresh record_id to the given row (field 0), appends
// it to the table, and returns the new record. Domain-level natural keys must
// be checked by the caller before calling this.
func (s *Store) CreateRecord(ctx context.Context, table string, cells []string) (*Record, error) {
	rec := NewRecord(table, append([]string(nil), cells...))
	rec.SetField(0, uuid.NewString())

	ts := s.table(table)
	ts.writeMu.Lock()
	defer ts.writeMu.Unlock()

	if err := s.pace(ctx); err != nil {
		return nil, err
	}
	if err := s.grid.AppendRow(ctx, table, rec.Cells()); err != nil {
		return nil, fmt.Errorf("appending to table %s: %w", table, err)
	}
	s.Invalidate(table)

	s.logger.Debug("record created", "table", table, "record_id", rec.ID())
	return rec, nil
}

// UpdateRecord locates the row by record_id and overwrites it in place. The
// row index is resolved from a fresh read under the table's write lock, never
// from the cache.
func (s *Store) UpdateRecord(ctx context.Context, rec *Record) error {
	table := rec.Table()
	ts := s.table(table)
	ts.writeMu.Lock()
	defer ts.writeMu.Unlock()

	index, err := s.findRowIndex(ctx, table, rec.ID())
	if err != nil {
		return err
	}
	if index < 0 {
		return fmt.Errorf("%w: %s in table %s", ErrRecordNotFound, rec.ID(), table)
	}

	if err := s.pace(ctx); err != nil {
		return err
	}
	if err := s.grid.UpdateRow(ctx, table, index, rec.Cells()); err != nil {
		return fmt.Errorf("updating table %s: %w", table, err)
	}
	s.Invalidate(table)

	s.logger.Debug("record updated", "table", table, "record_id", rec.ID())
	return nil
}

// DeleteRecord removes the row whose record_id matches. A missing record is a
// no-op; callers must pre-validate existence.
func (s *Store) DeleteRecord(ctx context.Context, table, recordID string) error {
	ts := s.table(table)
	ts.writeMu.Lock()
	defer ts.writeMu.Unlock()

	index, err := s.findRowIndex(ctx, table, recordID)
	if err != nil {
		return err
	}
	if index < 0 {
		return nil
	}

	if err := s.pace(ctx); err != nil {
		return err
	}
	if err := s.grid.DeleteRow(ctx, table, index); err != nil {
		return fmt.Errorf("deleting from table %s: %w", table, err)
	}
	s.Invalidate(table)

	s.logger.Debug("record deleted", "table", table, "record_id", recordID)
	return nil
}

// GetRecords scans the table for rows matching every filter predicate using
// case-insensitive string equality. The filter maps field index to expected
// value; the header row is skipped. An empty result is not an error.
func (s *Store) GetRecords(ctx context.Context, table string, filter map[int]string) ([]*Record, error) {
	if len(filter) == 0 {
		return nil, ErrNoFilter
	}
	rows, err := s.GetTableData(ctx, table)
	if err != nil {
		return nil, err
	}

	var matches []*Record
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if rowMatches(row, filter) {
			matches = append(matches, NewRecord(table, append([]string(nil), row...)))
		}
	}
	return matches, nil
}

func rowMatches(row []string, filter map[int]string) bool {
	for field, want := range filter {
		var got string
		if field >= 0 && field < len(row) {
			got = row[field]
		}
		if !strings.EqualFold(got, want) {
			return false
		}
	}
	return true
}

// findRowIndex resolves a record_id to its current row index from a fresh
// grid read. Must be called with the table's write lock held so the index
// stays valid until the write lands.
func (s *Store) findRowIndex(ctx context.Context, table, recordID string) (int, error) {
	rows, err := s.grid.ReadAllRows(ctx, table)
	if err != nil {
		return 0, fmt.Errorf("reading table %s: %w", table, err)
	}
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) > 0 && strings.EqualFold(row[0], recordID) {
			return i, nil
		}
	}
	return -1, nil
}

func (s *Store) pace(ctx context.Context) error {
	if s.writeDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(s.writeDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
