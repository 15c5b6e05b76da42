package league

import (
	"context"
	"fmt"

	"github.com/ganot/leaguedesk/internal/store"
)

// Player wraps a row of the Player table.
type Player struct {
	rec *store.Record
}

func NewPlayer(rec *store.Record) *Player {
	return &Player{rec: rec}
}

func (p *Player) Record() *store.Record { return p.rec }
func (p *Player) ID() string            { return p.rec.Field(PlayerRecordID) }
func (p *Player) DiscordID() string     { return p.rec.Field(PlayerDiscordID) }
func (p *Player) Name() string          { return p.rec.Field(PlayerName) }
func (p *Player) Region() string        { return p.rec.Field(PlayerRegion) }

// InvitedToTeamID is the pending team invite, empty when none.
func (p *Player) InvitedToTeamID() string { return p.rec.Field(PlayerInvitedToTeamID) }

func (p *Player) SetInvitedToTeamID(teamID string) {
	p.rec.SetField(PlayerInvitedToTeamID, teamID)
}

// PlayerTable manipulates the Player table.
type PlayerTable struct {
	store *store.Store
}

func NewPlayerTable(s *store.Store) *PlayerTable {
	return &PlayerTable{store: s}
}

// Create adds a new Player after checking both natural keys: the platform
// identity and the display name (case-insensitive).
func (t *PlayerTable) Create(ctx context.Context, discordID, playerName, region string) (*Player, error) {
	existing, err := t.store.GetRecords(ctx, TablePlayer, map[int]string{PlayerDiscordID: discordID})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("%w: player %s", ErrAlreadyExists, discordID)
	}
	existing, err = t.store.GetRecords(ctx, TablePlayer, map[int]string{PlayerName: playerName})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("%w: player name %q", ErrAlreadyExists, playerName)
	}

	cells := make([]string, playerFieldCount)
	cells[PlayerDiscordID] = discordID
	cells[PlayerName] = playerName
	cells[PlayerRegion] = region
	rec, err := t.store.CreateRecord(ctx, TablePlayer, cells)
	if err != nil {
		return nil, err
	}
	return NewPlayer(rec), nil
}

// ByDiscordID finds a player by platform identity.
func (t *PlayerTable) ByDiscordID(ctx context.Context, discordID string) (*Player, error) {
	return t.findOne(ctx, map[int]string{PlayerDiscordID: discordID})
}

// ByName finds a player by display name, case-insensitively.
func (t *PlayerTable) ByName(ctx context.Context, playerName string) (*Player, error) {
	return t.findOne(ctx, map[int]string{PlayerName: playerName})
}

// ByID finds a player by record_id.
func (t *PlayerTable) ByID(ctx context.Context, recordID string) (*Player, error) {
	return t.findOne(ctx, map[int]string{PlayerRecordID: recordID})
}

func (t *PlayerTable) findOne(ctx context.Context, filter map[int]string) (*Player, error) {
	records, err := t.store.GetRecords(ctx, TablePlayer, filter)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return NewPlayer(records[0]), nil
}

// Update writes a mutated player row back to the grid.
func (t *PlayerTable) Update(ctx context.Context, p *Player) error {
	return t.store.UpdateRecord(ctx, p.Record())
}

// Delete removes a player row.
func (t *PlayerTable) Delete(ctx context.Context, p *Player) error {
	return t.store.DeleteRecord(ctx, TablePlayer, p.ID())
}
