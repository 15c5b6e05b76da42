package league

import (
	"context"
	"fmt"

	"github.com/ganot/leaguedesk/internal/store"
)

// Team wraps a row of the Team table.
type Team struct {
	rec *store.Record
}

func NewTeam(rec *store.Record) *Team {
	return &Team{rec: rec}
}

func (t *Team) Record() *store.Record { return t.rec }
func (t *Team) ID() string            { return t.rec.Field(TeamRecordID) }
func (t *Team) Name() string          { return t.rec.Field(TeamName) }

// TeamTable manipulates the Team table.
type TeamTable struct {
	store *store.Store
}

func NewTeamTable(s *store.Store) *TeamTable {
	return &TeamTable{store: s}
}

// Create adds a new Team after checking the name is free (case-insensitive).
func (t *TeamTable) Create(ctx context.Context, teamName string) (*Team, error) {
	existing, err := t.store.GetRecords(ctx, TableTeam, map[int]string{TeamName: teamName})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("%w: team %q", ErrAlreadyExists, teamName)
	}

	cells := make([]string, teamFieldCount)
	cells[TeamName] = teamName
	rec, err := t.store.CreateRecord(ctx, TableTeam, cells)
	if err != nil {
		return nil, err
	}
	return NewTeam(rec), nil
}

// ByName finds a team by name, case-insensitively.
func (t *TeamTable) ByName(ctx context.Context, teamName string) (*Team, error) {
	return t.findOne(ctx, map[int]string{TeamName: teamName})
}

// ByID finds a team by record_id.
func (t *TeamTable) ByID(ctx context.Context, recordID string) (*Team, error) {
	return t.findOne(ctx, map[int]string{TeamRecordID: recordID})
}

func (t *TeamTable) findOne(ctx context.Context, filter map[int]string) (*Team, error) {
	records, err := t.store.GetRecords(ctx, TableTeam, filter)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return NewTeam(records[0]), nil
}

// Delete removes a team row.
func (t *TeamTable) Delete(ctx context.Context, team *Team) error {
	return t.store.DeleteRecord(ctx, TableTeam, team.ID())
}
