// Package league provides typed access to the league's tables: field
// enumerations mirroring each table's header row, record wrappers, and
// per-table helpers. A wrapper never persists anything by itself; every
// mutation must be written back through the store.
package league

import (
	"context"
	"fmt"
	"strings"

	"github.com/ganot/leaguedesk/internal/store"
)

// Table names in the backing grid.
const (
	TablePlayer     = "Player"
	TableTeam       = "Team"
	TableTeamPlayer = "TeamPlayer"
)

// Player table fields, in header-row order. Field 0 is always record_id.
const (
	PlayerRecordID = iota
	PlayerDiscordID
	PlayerName
	PlayerRegion
	PlayerInvitedToTeamID
	playerFieldCount
)

// Team table fields.
const (
	TeamRecordID = iota
	TeamName
	teamFieldCount
)

// TeamPlayer table fields.
const (
	TeamPlayerRecordID = iota
	TeamPlayerTeamID
	TeamPlayerPlayerID
	TeamPlayerIsCaptain
	TeamPlayerIsCoCaptain
	teamPlayerFieldCount
)

// Headers maps each table to its expected header row.
func Headers() map[string][]string {
	return map[string][]string{
		TablePlayer:     {"record_id", "discord_id", "player_name", "region", "invited_to_team_id"},
		TableTeam:       {"record_id", "team_name"},
		TableTeamPlayer: {"record_id", "team_id", "player_id", "is_captain", "is_co_captain"},
	}
}

// ValidateHeaders checks row 0 of every league table against the expected
// field enumeration. A mismatch means the grid and the code disagree about
// column order, which is a fatal configuration error.
func ValidateHeaders(ctx context.Context, s *store.Store) error {
	for table, want := range Headers() {
		rows, err := s.GetTableData(ctx, table)
		if err != nil {
			return fmt.Errorf("validating %s header: %w", table, err)
		}
		if len(rows) == 0 {
			return fmt.Errorf("table %s has no header row", table)
		}
		got := rows[0]
		if len(got) < len(want) {
			return fmt.Errorf("table %s header has %d columns, want %d", table, len(got), len(want))
		}
		for i, name := range want {
			if !strings.EqualFold(got[i], name) {
				return fmt.Errorf("table %s column %d is %q, want %q", table, i, got[i], name)
			}
		}
	}
	return nil
}

// NormalizeRegion matches a region string against the allowed set,
// case-insensitively, returning the canonical spelling.
func NormalizeRegion(region string, allowed []string) (string, bool) {
	for _, candidate := range allowed {
		if strings.EqualFold(region, candidate) {
			return candidate, true
		}
	}
	return "", false
}
