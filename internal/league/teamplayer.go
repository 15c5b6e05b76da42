package league

import (
	"context"
	"fmt"

	"github.com/ganot/leaguedesk/internal/store"
)

// TeamPlayer wraps a row of the TeamPlayer join table. At most one row exists
// per player; at most one row per team carries each captaincy flag.
type TeamPlayer struct {
	rec *store.Record
}

func NewTeamPlayer(rec *store.Record) *TeamPlayer {
	return &TeamPlayer{rec: rec}
}

func (tp *TeamPlayer) Record() *store.Record { return tp.rec }
func (tp *TeamPlayer) ID() string            { return tp.rec.Field(TeamPlayerRecordID) }
func (tp *TeamPlayer) TeamID() string        { return tp.rec.Field(TeamPlayerTeamID) }
func (tp *TeamPlayer) PlayerID() string      { return tp.rec.Field(TeamPlayerPlayerID) }
func (tp *TeamPlayer) IsCaptain() bool       { return tp.rec.Bool(TeamPlayerIsCaptain) }
func (tp *TeamPlayer) IsCoCaptain() bool     { return tp.rec.Bool(TeamPlayerIsCoCaptain) }

func (tp *TeamPlayer) SetIsCaptain(v bool)   { tp.rec.SetBool(TeamPlayerIsCaptain, v) }
func (tp *TeamPlayer) SetIsCoCaptain(v bool) { tp.rec.SetBool(TeamPlayerIsCoCaptain, v) }

// TeamPlayerTable manipulates the TeamPlayer table.
type TeamPlayerTable struct {
	store *store.Store
}

func NewTeamPlayerTable(s *store.Store) *TeamPlayerTable {
	return &TeamPlayerTable{store: s}
}

// Create adds a membership row after checking the (team, player) pair is not
// already present.
func (t *TeamPlayerTable) Create(ctx context.Context, teamID, playerID string, isCaptain, isCoCaptain bool) (*TeamPlayer, error) {
	existing, err := t.store.GetRecords(ctx, TableTeamPlayer, map[int]string{
		TeamPlayerTeamID:   teamID,
		TeamPlayerPlayerID: playerID,
	})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("%w: team %s player %s", ErrAlreadyExists, teamID, playerID)
	}

	rec := store.NewRecord(TableTeamPlayer, make([]string, teamPlayerFieldCount))
	rec.SetField(TeamPlayerTeamID, teamID)
	rec.SetField(TeamPlayerPlayerID, playerID)
	rec.SetBool(TeamPlayerIsCaptain, isCaptain)
	rec.SetBool(TeamPlayerIsCoCaptain, isCoCaptain)

	created, err := t.store.CreateRecord(ctx, TableTeamPlayer, rec.Cells())
	if err != nil {
		return nil, err
	}
	return NewTeamPlayer(created), nil
}

// ByPlayerID returns the membership rows for a player, in grid row order.
// A consistent roster has at most one.
func (t *TeamPlayerTable) ByPlayerID(ctx context.Context, playerID string) ([]*TeamPlayer, error) {
	return t.find(ctx, map[int]string{TeamPlayerPlayerID: playerID})
}

// ByTeamID returns the membership rows for a team, in grid row order.
func (t *TeamPlayerTable) ByTeamID(ctx context.Context, teamID string) ([]*TeamPlayer, error) {
	return t.find(ctx, map[int]string{TeamPlayerTeamID: teamID})
}

func (t *TeamPlayerTable) find(ctx context.Context, filter map[int]string) ([]*TeamPlayer, error) {
	records, err := t.store.GetRecords(ctx, TableTeamPlayer, filter)
	if err != nil {
		return nil, err
	}
	out := make([]*TeamPlayer, len(records))
	for i, rec := range records {
		out[i] = NewTeamPlayer(rec)
	}
	return out, nil
}

// Update writes a mutated membership row back to the grid.
func (t *TeamPlayerTable) Update(ctx context.Context, tp *TeamPlayer) error {
	return t.store.UpdateRecord(ctx, tp.Record())
}

// Delete removes a membership row.
func (t *TeamPlayerTable) Delete(ctx context.Context, tp *TeamPlayer) error {
	return t.store.DeleteRecord(ctx, TableTeamPlayer, tp.ID())
}
