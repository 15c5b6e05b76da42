// Package roster implements the consistency engine for league membership.
// Every operation follows the same shape: resolve records, assert every
// precondition, perform the minimal ordered writes, then emit role-sync calls.
// The first failing guard aborts with no writes; role-sync failures after
// committed writes leave the store in its new state (see DESIGN.md).
package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/ganot/leaguedesk/internal/league"
)

// Service exposes one method per membership lifecycle action.
type Service struct {
	players     *league.PlayerTable
	teams       *league.TeamTable
	teamPlayers *league.TeamPlayerTable
	roles       RoleManager
	settings    Settings
	locks       *teamLocks
	logger      *slog.Logger
}

// NewService creates the roster engine.
func NewService(
	players *league.PlayerTable,
	teams *league.TeamTable,
	teamPlayers *league.TeamPlayerTable,
	roles RoleManager,
	settings Settings,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		players:     players,
		teams:       teams,
		teamPlayers: teamPlayers,
		roles:       roles,
		settings:    settings,
		locks:       newTeamLocks(),
		logger:      logger,
	}
}

// RegisterPlayer creates a Player and grants the regional player role.
func (s *Service) RegisterPlayer(ctx context.Context, discordID, displayName, region string) (*league.Player, error) {
	canonical, ok := league.NormalizeRegion(region, s.settings.Regions)
	if !ok {
		return nil, failf("Region must be one of %v.", s.settings.Regions)
	}

	player, err := s.players.Create(ctx, discordID, displayName, canonical)
	if err != nil {
		if errors.Is(err, league.ErrAlreadyExists) {
			return nil, failf("Player already registered.")
		}
		return nil, err
	}

	if err := s.roles.GrantRole(ctx, discordID, s.settings.Roles.playerRole(canonical)); err != nil {
		s.logger.Warn("role sync failed after register", "discord_id", discordID, "error", err)
		return nil, fmt.Errorf("syncing roles: %w", err)
	}
	s.logger.Info("player registered", "player", displayName, "region", canonical)
	return player, nil
}

// UnregisterPlayer revokes the player role and deletes the Player row. A
// player still on a team must leave first.
func (s *Service) UnregisterPlayer(ctx context.Context, discordID string) error {
	player, err := s.registeredPlayer(ctx, discordID, "You are not registered.")
	if err != nil {
		return err
	}
	membership, err := s.membership(ctx, player.ID())
	if err != nil {
		return err
	}
	if membership != nil {
		return failf("You must leave your team first.")
	}

	if err := s.roles.RevokeRolesByPrefix(ctx, discordID, s.settings.Roles.Player); err != nil {
		return fmt.Errorf("syncing roles: %w", err)
	}
	if err := s.players.Delete(ctx, player); err != nil {
		return err
	}
	s.logger.Info("player unregistered", "player", player.Name())
	return nil
}

// RegisterTeam creates a Team with the requestor as captain.
func (s *Service) RegisterTeam(ctx context.Context, discordID, teamName string) (*league.Team, error) {
	player, err := s.registeredPlayer(ctx, discordID, "You must be registered as a player to create a team.")
	if err != nil {
		return nil, err
	}
	if _, err := s.teams.ByName(ctx, teamName); err == nil {
		return nil, failf("Team already exists.")
	} else if !errors.Is(err, league.ErrNotFound) {
		return nil, err
	}
	membership, err := s.membership(ctx, player.ID())
	if err != nil {
		return nil, err
	}
	if membership != nil {
		return nil, failf("You are already on a team.")
	}

	team, err := s.teams.Create(ctx, teamName)
	if err != nil {
		return nil, err
	}
	if _, err := s.teamPlayers.Create(ctx, team.ID(), player.ID(), true, false); err != nil {
		return nil, err
	}

	if err := s.syncCaptainRoles(ctx, discordID, team.Name(), player.Region()); err != nil {
		return nil, err
	}
	s.logger.Info("team registered", "team", team.Name(), "captain", player.Name())
	return team, nil
}

// AddPlayerToTeam adds a registered, teamless player from the same region to
// the requestor's team. The requestor must be captain or co-captain.
func (s *Service) AddPlayerToTeam(ctx context.Context, requestorDiscordID, playerName string) error {
	requestor, err := s.registeredPlayer(ctx, requestorDiscordID, "You must be registered as a player to add a player.")
	if err != nil {
		return err
	}
	requestorMembership, err := s.membership(ctx, requestor.ID())
	if err != nil {
		return err
	}
	if requestorMembership == nil {
		return failf("You must be on a team to add a player.")
	}
	if !requestorMembership.IsCaptain() && !requestorMembership.IsCoCaptain() {
		return failf("You must be a team captain to add a player.")
	}

	teamID := requestorMembership.TeamID()
	unlock := s.locks.lock(teamID)
	defer unlock()

	members, err := s.teamPlayers.ByTeamID(ctx, teamID)
	if err != nil {
		return err
	}
	if len(members) >= s.settings.TeamPlayersMax {
		return failf("Team is full.")
	}
	team, err := s.teams.ByID(ctx, teamID)
	if err != nil {
		return err
	}

	player, err := s.players.ByName(ctx, playerName)
	if err != nil {
		if errors.Is(err, league.ErrNotFound) {
			return failf("Player not found.")
		}
		return err
	}
	if player.Region() != requestor.Region() {
		return failf("Player must be in the same region.")
	}
	playerMembership, err := s.membership(ctx, player.ID())
	if err != nil {
		return err
	}
	if playerMembership != nil {
		return failf("Player is already on a team.")
	}

	if _, err := s.teamPlayers.Create(ctx, teamID, player.ID(), false, false); err != nil {
		return err
	}

	if err := s.syncMemberRoles(ctx, player.DiscordID(), team.Name()); err != nil {
		return err
	}
	s.logger.Info("player added to team", "team", team.Name(), "player", player.Name())
	return nil
}

// InvitePlayerToTeam records a pending invite on the target player. The
// invite is accepted via AcceptInvite.
func (s *Service) InvitePlayerToTeam(ctx context.Context, requestorDiscordID, playerName string) error {
	requestor, err := s.registeredPlayer(ctx, requestorDiscordID, "You must be registered as a player to invite a player.")
	if err != nil {
		return err
	}
	requestorMembership, err := s.membership(ctx, requestor.ID())
	if err != nil {
		return err
	}
	if requestorMembership == nil {
		return failf("You must be on a team to invite a player.")
	}
	if !requestorMembership.IsCaptain() && !requestorMembership.IsCoCaptain() {
		return failf("You must be a team captain to invite a player.")
	}

	player, err := s.players.ByName(ctx, playerName)
	if err != nil {
		if errors.Is(err, league.ErrNotFound) {
			return failf("Player not found.")
		}
		return err
	}
	if player.Region() != requestor.Region() {
		return failf("Player must be in the same region.")
	}
	playerMembership, err := s.membership(ctx, player.ID())
	if err != nil {
		return err
	}
	if playerMembership != nil {
		return failf("Player is already on a team.")
	}

	player.SetInvitedToTeamID(requestorMembership.TeamID())
	if err := s.players.Update(ctx, player); err != nil {
		return err
	}
	s.logger.Info("player invited", "team_id", requestorMembership.TeamID(), "player", player.Name())
	return nil
}

// AcceptInvite joins the requestor to the team referenced by their pending
// invite.
func (s *Service) AcceptInvite(ctx context.Context, discordID string) (*league.Team, error) {
	player, err := s.registeredPlayer(ctx, discordID, "You must be registered as a player to accept an invite.")
	if err != nil {
		return nil, err
	}
	membership, err := s.membership(ctx, player.ID())
	if err != nil {
		return nil, err
	}
	if membership != nil {
		return nil, failf("You are already on a team.")
	}
	teamID := player.InvitedToTeamID()
	if teamID == "" {
		return nil, failf("You have no pending invite.")
	}

	unlock := s.locks.lock(teamID)
	defer unlock()

	team, err := s.teams.ByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, league.ErrNotFound) {
			return nil, failf("Team not found.")
		}
		return nil, err
	}
	members, err := s.teamPlayers.ByTeamID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if len(members) >= s.settings.TeamPlayersMax {
		return nil, failf("Team is full.")
	}

	if _, err := s.teamPlayers.Create(ctx, teamID, player.ID(), false, false); err != nil {
		return nil, err
	}
	player.SetInvitedToTeamID("")
	if err := s.players.Update(ctx, player); err != nil {
		return nil, err
	}

	if err := s.syncMemberRoles(ctx, discordID, team.Name()); err != nil {
		return nil, err
	}
	s.logger.Info("invite accepted", "team", team.Name(), "player", player.Name())
	return team, nil
}

// RemovePlayerFromTeam removes a non-captain member from the requestor's
// team. The requestor must be captain or co-captain.
func (s *Service) RemovePlayerFromTeam(ctx context.Context, requestorDiscordID, playerName string) error {
	requestor, err := s.registeredPlayer(ctx, requestorDiscordID, "You must be registered to remove players.")
	if err != nil {
		return err
	}
	requestorMembership, err := s.membership(ctx, requestor.ID())
	if err != nil {
		return err
	}
	if requestorMembership == nil {
		return failf("You must be on a team to remove players.")
	}
	if !requestorMembership.IsCaptain() && !requestorMembership.IsCoCaptain() {
		return failf("You must be a team captain to remove players.")
	}

	teamID := requestorMembership.TeamID()
	unlock := s.locks.lock(teamID)
	defer unlock()

	team, err := s.teams.ByID(ctx, teamID)
	if err != nil {
		return err
	}
	members, err := s.teamPlayers.ByTeamID(ctx, teamID)
	if err != nil {
		return err
	}

	player, err := s.players.ByName(ctx, playerName)
	if err != nil {
		if errors.Is(err, league.ErrNotFound) {
			return failf("Player not found.")
		}
		return err
	}
	var target *league.TeamPlayer
	for _, member := range members {
		if member.PlayerID() == player.ID() {
			target = member
		}
	}
	if target == nil {
		return failf("Player is not on the team.")
	}
	if target.IsCaptain() {
		return failf("Cannot remove the team captain.")
	}

	if err := s.teamPlayers.Delete(ctx, target); err != nil {
		return err
	}
	if len(members)-1 < s.settings.TeamPlayersMin {
		s.logger.Warn("team below minimum size", "team", team.Name(), "size", len(members)-1)
	}

	if err := s.removeTeamRoles(ctx, player.DiscordID()); err != nil {
		return fmt.Errorf("syncing roles: %w", err)
	}
	s.logger.Info("player removed from team", "team", team.Name(), "player", player.Name())
	return nil
}

// PromoteToCoCaptain makes a team member co-captain. Only the captain may
// promote, a team holds at most one co-captain, and captains cannot promote
// themselves.
func (s *Service) PromoteToCoCaptain(ctx context.Context, requestorDiscordID, playerName string) error {
	requestor, err := s.registeredPlayer(ctx, requestorDiscordID, "You must be registered as a player to promote players.")
	if err != nil {
		return err
	}
	requestorMembership, err := s.membership(ctx, requestor.ID())
	if err != nil {
		return err
	}
	if requestorMembership == nil {
		return failf("You must be on a team to promote players.")
	}
	if !requestorMembership.IsCaptain() {
		return failf("You must be team captain to promote players.")
	}

	teamID := requestorMembership.TeamID()
	unlock := s.locks.lock(teamID)
	defer unlock()

	members, err := s.teamPlayers.ByTeamID(ctx, teamID)
	if err != nil {
		return err
	}
	if findCoCaptain(members) != nil {
		return failf("Team already has a co-captain.")
	}

	player, err := s.players.ByName(ctx, playerName)
	if err != nil {
		if errors.Is(err, league.ErrNotFound) {
			return failf("Player not found.")
		}
		return err
	}
	var target *league.TeamPlayer
	for _, member := range members {
		if member.PlayerID() == player.ID() {
			target = member
		}
	}
	if target == nil {
		return failf("Player is not on the team.")
	}
	if player.ID() == requestor.ID() {
		return failf("Cannot promote yourself.")
	}

	target.SetIsCoCaptain(true)
	if err := s.teamPlayers.Update(ctx, target); err != nil {
		return err
	}

	role := s.settings.Roles.coCaptainRole(requestor.Region())
	if err := s.roles.GrantRole(ctx, player.DiscordID(), role); err != nil {
		return fmt.Errorf("syncing roles: %w", err)
	}
	s.logger.Info("player promoted to co-captain", "team_id", teamID, "player", player.Name())
	return nil
}

// DemoteFromCoCaptain clears a member's co-captain flag. Only the captain may
// demote.
func (s *Service) DemoteFromCoCaptain(ctx context.Context, requestorDiscordID, playerName string) error {
	requestor, err := s.registeredPlayer(ctx, requestorDiscordID, "You must be registered as a player to demote players.")
	if err != nil {
		return err
	}
	requestorMembership, err := s.membership(ctx, requestor.ID())
	if err != nil {
		return err
	}
	if requestorMembership == nil {
		return failf("You must be on a team to demote players.")
	}
	if !requestorMembership.IsCaptain() {
		return failf("You must be team captain to demote players.")
	}

	teamID := requestorMembership.TeamID()
	unlock := s.locks.lock(teamID)
	defer unlock()

	members, err := s.teamPlayers.ByTeamID(ctx, teamID)
	if err != nil {
		return err
	}
	player, err := s.players.ByName(ctx, playerName)
	if err != nil {
		if errors.Is(err, league.ErrNotFound) {
			return failf("Player not found.")
		}
		return err
	}
	var target *league.TeamPlayer
	for _, member := range members {
		if member.PlayerID() == player.ID() {
			target = member
		}
	}
	if target == nil {
		return failf("Player is not on the team.")
	}
	if !target.IsCoCaptain() {
		return failf("Player is not a co-captain.")
	}

	target.SetIsCoCaptain(false)
	if err := s.teamPlayers.Update(ctx, target); err != nil {
		return err
	}

	if err := s.roles.RevokeRolesByPrefix(ctx, player.DiscordID(), s.settings.Roles.CoCaptain); err != nil {
		return fmt.Errorf("syncing roles: %w", err)
	}
	s.logger.Info("player demoted from co-captain", "team_id", teamID, "player", player.Name())
	return nil
}

// LeaveTeam removes the requestor from their team. A leaving captain must
// have a co-captain, who is promoted to captain before the captain's row is
// deleted so the team never lacks a captain between writes.
func (s *Service) LeaveTeam(ctx context.Context, discordID string) error {
	player, err := s.registeredPlayer(ctx, discordID, "You must be registered as a player to leave a team.")
	if err != nil {
		return err
	}
	membership, err := s.membership(ctx, player.ID())
	if err != nil {
		return err
	}
	if membership == nil {
		return failf("You must be on a team to leave.")
	}

	teamID := membership.TeamID()
	unlock := s.locks.lock(teamID)
	defer unlock()

	team, err := s.teams.ByID(ctx, teamID)
	if err != nil {
		return err
	}
	members, err := s.teamPlayers.ByTeamID(ctx, teamID)
	if err != nil {
		return err
	}

	var successor *league.Player
	if membership.IsCaptain() {
		coCaptain := findCoCaptain(members)
		if coCaptain == nil {
			return failf("Captain must promote a co-captain before leaving.")
		}
		successor, err = s.players.ByID(ctx, coCaptain.PlayerID())
		if err != nil {
			return err
		}
		coCaptain.SetIsCaptain(true)
		coCaptain.SetIsCoCaptain(false)
		if err := s.teamPlayers.Update(ctx, coCaptain); err != nil {
			return err
		}
	}

	if err := s.teamPlayers.Delete(ctx, membership); err != nil {
		return err
	}
	if len(members)-1 < s.settings.TeamPlayersMin {
		s.logger.Warn("team below minimum size", "team", team.Name(), "size", len(members)-1)
	}

	if err := s.removeTeamRoles(ctx, discordID); err != nil {
		return fmt.Errorf("syncing roles: %w", err)
	}
	if successor != nil {
		// The successor's platform roles must match their new flags.
		if err := s.roles.RevokeRolesByPrefix(ctx, successor.DiscordID(), s.settings.Roles.CoCaptain); err != nil {
			return fmt.Errorf("syncing roles: %w", err)
		}
		if err := s.roles.GrantRole(ctx, successor.DiscordID(), s.settings.Roles.captainRole(successor.Region())); err != nil {
			return fmt.Errorf("syncing roles: %w", err)
		}
	}
	s.logger.Info("player left team", "team", team.Name(), "player", player.Name())
	return nil
}

// DisbandTeam deletes every membership row and then the Team row itself.
// Only the captain may disband. The Team row is only deleted once every
// member row is gone, so a mid-loop failure never orphans memberships.
func (s *Service) DisbandTeam(ctx context.Context, discordID string) error {
	player, err := s.registeredPlayer(ctx, discordID, "You must be registered as a player to disband a team.")
	if err != nil {
		return err
	}
	membership, err := s.membership(ctx, player.ID())
	if err != nil {
		return err
	}
	if membership == nil {
		return failf("You must be on a team to disband it.")
	}
	if !membership.IsCaptain() {
		return failf("You must be team captain to disband a team.")
	}

	teamID := membership.TeamID()
	unlock := s.locks.lock(teamID)
	defer unlock()

	team, err := s.teams.ByID(ctx, teamID)
	if err != nil {
		return err
	}
	members, err := s.teamPlayers.ByTeamID(ctx, teamID)
	if err != nil {
		return err
	}

	// Resolve member identities before any deletion so role sync can still
	// reach everyone afterwards.
	memberIDs := make([]string, 0, len(members))
	for _, member := range members {
		p, err := s.players.ByID(ctx, member.PlayerID())
		if err != nil {
			return err
		}
		memberIDs = append(memberIDs, p.DiscordID())
	}

	for _, member := range members {
		if err := s.teamPlayers.Delete(ctx, member); err != nil {
			return err
		}
	}
	if err := s.teams.Delete(ctx, team); err != nil {
		return err
	}

	var syncErr error
	for _, memberID := range memberIDs {
		if err := s.removeTeamRoles(ctx, memberID); err != nil {
			s.logger.Warn("role sync failed during disband", "member", memberID, "error", err)
			syncErr = err
		}
	}
	if syncErr != nil {
		return fmt.Errorf("syncing roles: %w", syncErr)
	}
	s.logger.Info("team disbanded", "team", team.Name())
	return nil
}

// GetPlayerDetails looks up a player by display name or platform identity.
func (s *Service) GetPlayerDetails(ctx context.Context, playerName, discordID string) (*PlayerDetails, error) {
	if playerName == "" && discordID == "" {
		return nil, failf("No player name or discord id provided.")
	}

	var player *league.Player
	var err error
	if discordID != "" {
		player, err = s.players.ByDiscordID(ctx, discordID)
	} else {
		player, err = s.players.ByName(ctx, playerName)
	}
	if err != nil {
		if errors.Is(err, league.ErrNotFound) {
			return nil, failf("Player not found.")
		}
		return nil, err
	}

	details := &PlayerDetails{
		Player: player.Name(),
		Region: player.Region(),
	}
	membership, err := s.membership(ctx, player.ID())
	if err != nil {
		return nil, err
	}
	if membership != nil {
		team, err := s.teams.ByID(ctx, membership.TeamID())
		if err != nil {
			return nil, err
		}
		teamName := team.Name()
		isCaptain := membership.IsCaptain()
		isCoCaptain := membership.IsCoCaptain()
		details.Team = &teamName
		details.IsCaptain = &isCaptain
		details.IsCoCaptain = &isCoCaptain
	}
	return details, nil
}

// GetTeamDetails looks up a team by name and returns its roster with the
// member names sorted alphabetically.
func (s *Service) GetTeamDetails(ctx context.Context, teamName string) (*TeamDetails, error) {
	team, err := s.teams.ByName(ctx, teamName)
	if err != nil {
		if errors.Is(err, league.ErrNotFound) {
			return nil, failf("Team not found.")
		}
		return nil, err
	}
	members, err := s.teamPlayers.ByTeamID(ctx, team.ID())
	if err != nil {
		return nil, err
	}

	details := &TeamDetails{Team: team.Name()}
	captains := 0
	coCaptains := 0
	for _, member := range members {
		p, err := s.players.ByID(ctx, member.PlayerID())
		if err != nil {
			return nil, err
		}
		name := p.Name()
		details.Players = append(details.Players, name)
		if member.IsCaptain() {
			captains++
			details.Captain = &name
		} else if member.IsCoCaptain() {
			coCaptains++
			details.CoCaptain = &name
		}
	}
	if captains > 1 || coCaptains > 1 {
		return nil, fmt.Errorf("%w: team %s has %d captains and %d co-captains",
			ErrCorruptRoster, team.Name(), captains, coCaptains)
	}
	sort.Strings(details.Players)
	return details, nil
}

// registeredPlayer resolves the requestor, turning absence into the given
// guard message.
func (s *Service) registeredPlayer(ctx context.Context, discordID, message string) (*league.Player, error) {
	player, err := s.players.ByDiscordID(ctx, discordID)
	if err != nil {
		if errors.Is(err, league.ErrNotFound) {
			return nil, failf("%s", message)
		}
		return nil, err
	}
	return player, nil
}

// membership returns the player's membership row, nil when teamless. More
// than one row violates the one-team-per-player invariant and is reported.
func (s *Service) membership(ctx context.Context, playerID string) (*league.TeamPlayer, error) {
	rows, err := s.teamPlayers.ByPlayerID(ctx, playerID)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return rows[0], nil
	default:
		return nil, fmt.Errorf("%w: player %s has %d team memberships", ErrCorruptRoster, playerID, len(rows))
	}
}

// findCoCaptain returns the first co-captain row in grid row order, or nil.
func findCoCaptain(members []*league.TeamPlayer) *league.TeamPlayer {
	for _, member := range members {
		if member.IsCoCaptain() {
			return member
		}
	}
	return nil
}

// syncCaptainRoles replaces any stale team or captaincy roles with the new
// team and captain roles.
func (s *Service) syncCaptainRoles(ctx context.Context, discordID, teamName, region string) error {
	if err := s.removeTeamRoles(ctx, discordID); err != nil {
		return fmt.Errorf("syncing roles: %w", err)
	}
	if err := s.roles.GrantRole(ctx, discordID, s.settings.Roles.teamRole(teamName)); err != nil {
		return fmt.Errorf("syncing roles: %w", err)
	}
	if err := s.roles.GrantRole(ctx, discordID, s.settings.Roles.captainRole(region)); err != nil {
		return fmt.Errorf("syncing roles: %w", err)
	}
	return nil
}

// syncMemberRoles replaces any stale team roles with the new team role.
func (s *Service) syncMemberRoles(ctx context.Context, discordID, teamName string) error {
	if err := s.removeTeamRoles(ctx, discordID); err != nil {
		return fmt.Errorf("syncing roles: %w", err)
	}
	if err := s.roles.GrantRole(ctx, discordID, s.settings.Roles.teamRole(teamName)); err != nil {
		return fmt.Errorf("syncing roles: %w", err)
	}
	return nil
}

// removeTeamRoles strips every team-scoped role family from a member.
func (s *Service) removeTeamRoles(ctx context.Context, discordID string) error {
	return s.roles.RevokeRolesByPrefix(ctx, discordID,
		s.settings.Roles.Team, s.settings.Roles.Captain, s.settings.Roles.CoCaptain)
}
