package roster_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ganot/leaguedesk/internal/domain/roster"
	"github.com/ganot/leaguedesk/internal/grid"
	"github.com/ganot/leaguedesk/internal/league"
	"github.com/ganot/leaguedesk/internal/mocks"
	"github.com/ganot/leaguedesk/internal/store"
)

type fixture struct {
	t           *testing.T
	svc         *roster.Service
	roles       *mocks.RoleManager
	store       *store.Store
	teamPlayers *league.TeamPlayerTable
}

func defaultSettings() roster.Settings {
	return roster.Settings{
		TeamPlayersMin: 4,
		TeamPlayersMax: 6,
		Regions:        []string{"NA", "EU", "OCE"},
		Roles: roster.RolePrefixes{
			Player:    "Player",
			Captain:   "Captain",
			CoCaptain: "CoCaptain",
			Team:      "Team:",
		},
	}
}

func newFixture(t *testing.T, settings roster.Settings) *fixture {
	t.Helper()
	g := grid.NewMemory(league.Headers())
	st := store.New(g, store.Options{CacheTTL: time.Hour}, nil)
	roles := &mocks.RoleManager{}
	teamPlayers := league.NewTeamPlayerTable(st)
	svc := roster.NewService(
		league.NewPlayerTable(st),
		league.NewTeamTable(st),
		teamPlayers,
		roles,
		settings,
		nil,
	)
	return &fixture{t: t, svc: svc, roles: roles, store: st, teamPlayers: teamPlayers}
}

func (f *fixture) allowAllRoles() {
	f.roles.On("GrantRole", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.roles.On("RevokeRolesByPrefix", mock.Anything, mock.Anything, mock.Anything).Return(nil)
}

func (f *fixture) register(ctx context.Context, discordID, name, region string) {
	f.t.Helper()
	_, err := f.svc.RegisterPlayer(ctx, discordID, name, region)
	require.NoError(f.t, err)
}

func requirePrecondition(t *testing.T, err error, message string) {
	t.Helper()
	require.Error(t, err)
	require.True(t, roster.IsPrecondition(err), "expected guard failure, got %v", err)
	require.Equal(t, message, err.Error())
}

func TestRegisterPlayer_NormalizesRegion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultSettings())
	f.allowAllRoles()

	player, err := f.svc.RegisterPlayer(ctx, "1001", "Ada", "na")
	require.NoError(t, err)
	require.Equal(t, "NA", player.Region())
	f.roles.AssertCalled(t, "GrantRole", mock.Anything, "1001", "PlayerNA")
}

func TestRegisterPlayer_UnknownRegion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultSettings())

	_, err := f.svc.RegisterPlayer(ctx, "1001", "Ada", "ASIA")
	require.True(t, roster.IsPrecondition(err))
	require.Contains(t, err.Error(), "Region must be one of")
}

func TestRegisterPlayer_Duplicate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultSettings())
	f.allowAllRoles()
	f.register(ctx, "1001", "Ada", "NA")

	_, err := f.svc.RegisterPlayer(ctx, "1001", "Ada", "NA")
	requirePrecondition(t, err, "Player already registered.")
}

func TestRegisterPlayer_RoleSyncFailureKeepsRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultSettings())
	f.roles.On("GrantRole", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("platform down"))

	_, err := f.svc.RegisterPlayer(ctx, "1001", "Ada", "NA")
	require.Error(t, err)
	require.False(t, roster.IsPrecondition(err))

	// The write landed before the role sync failed.
	details, err := f.svc.GetPlayerDetails(ctx, "Ada", "")
	require.NoError(t, err)
	require.Equal(t, "Ada", details.Player)
}

func TestUnregisterPlayer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultSettings())
	f.allowAllRoles()
	f.register(ctx, "1001", "Ada", "NA")

	require.NoError(t, f.svc.UnregisterPlayer(ctx, "1001"))

	_, err := f.svc.GetPlayerDetails(ctx, "Ada", "")
	requirePrecondition(t, err, "Player not found.")
}

func TestUnregisterPlayer_WhileOnTeam(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultSettings())
	f.allowAllRoles()
	f.register(ctx, "1001", "Ada", "NA")
	_, err := f.svc.RegisterTeam(ctx, "1001", "Alpha")
	require.NoError(t, err)

	err = f.svc.UnregisterPlayer(ctx, "1001")
	requirePrecondition(t, err, "You must leave your team first.")
}

func TestRegisterTeam_NameTakenCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultSettings())
	f.allowAllRoles()
	f.register(ctx, "1001", "Ada", "NA")
	f.register(ctx, "1002", "Brin", "NA")

	_, err := f.svc.RegisterTeam(ctx, "1001", "Foxes")
	require.NoError(t, err)

	_, err = f.svc.RegisterTeam(ctx, "1002", "foxes")
	requirePrecondition(t, err, "Team already exists.")
}

func TestScenario_RegisterTeamAndAddPlayer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultSettings())
	f.allowAllRoles()
	f.register(ctx, "1001", "Ada", "NA")
	f.register(ctx, "1002", "Brin", "NA")

	_, err := f.svc.RegisterTeam(ctx, "1001", "Alpha")
	require.NoError(t, err)
	require.NoError(t, f.svc.AddPlayerToTeam(ctx, "1001", "Brin"))

	details, err := f.svc.GetTeamDetails(ctx, "Alpha")
	require.NoError(t, err)
	require.Equal(t, "Alpha", details.Team)
	require.NotNil(t, details.Captain)
	require.Equal(t, "Ada", *details.Captain)
	require.Nil(t, details.CoCaptain)
	require.Equal(t, []string{"Ada", "Brin"}, details.Players)

	// Name lookups are case-insensitive.
	details, err = f.svc.GetTeamDetails(ctx, "ALPHA")
	require.NoError(t, err)
	require.Equal(t, "Alpha", details.Team)

	f.roles.AssertCalled(t, "GrantRole", mock.Anything, "1001", "Team:Alpha")
	f.roles.AssertCalled(t, "GrantRole", mock.Anything, "1001", "CaptainNA")
	f.roles.AssertCalled(t, "GrantRole", mock.Anything, "1002", "Team:Alpha")
}

func TestAddPlayerToTeam_RegionMismatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultSettings())
	f.allowAllRoles()
	f.register(ctx, "1001", "Ada", "NA")
	f.register(ctx, "1002", "Brin", "EU")
	_, err := f.svc.RegisterTeam(ctx, "1001", "Alpha")
	require.NoError(t, err)

	err = f.svc.AddPlayerToTeam(ctx, "1001", "Brin")
	requirePrecondition(t, err, "Player must be in the same region.")
}

func TestAddPlayerToTeam_RequiresCaptaincy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultSettings())
	f.allowAllRoles()
	f.register(ctx, "1001", "Ada", "NA")
	f.register(ctx, "1002", "Brin", "NA")
	f.register(ctx, "1003", "Cleo", "NA")
	_, err := f.svc.RegisterTeam(ctx, "1001", "Alpha")
	require.NoError(t, err)
	require.NoError(t, f.svc.AddPlayerToTeam(ctx, "1001", "Brin"))

	err = f.svc.AddPlayerToTeam(ctx, "1002", "Cleo")
	requirePrecondition(t, err, "You must be a team captain to add a player.")
}

func TestAddPlayerToTeam_TeamFull(t *testing.T) {
	ctx := context.Background()
	settings := defaultSettings()
	settings.TeamPlayersMin = 1
	settings.TeamPlayersMax = 2
	f := newFixture(t, settings)
	f.allowAllRoles()
	f.register(ctx, "1001", "Ada", "NA")
	f.register(ctx, "1002", "Brin", "NA")
	f.register(ctx, "1003", "Cleo", "NA")
	_, err := f.svc.RegisterTeam(ctx, "1001", "Alpha")
	require.NoError(t, err)
	require.NoError(t, f.svc.AddPlayerToTeam(ctx, "1001", "Brin"))

	err = f.svc.AddPlayerToTeam(ctx, "1001", "Cleo")
	requirePrecondition(t, err, "Team is full.")

	details, err := f.svc.GetTeamDetails(ctx, "Alpha")
	require.NoError(t, err)
	require.Len(t, details.Players, 2)
}

func TestInviteAndAccept(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultSettings())
	f.allowAllRoles()
	f.register(ctx, "1001", "Ada", "NA")
	f.register(ctx, "1002", "Brin", "NA")
	_, err := f.svc.RegisterTeam(ctx, "1001", "Alpha")
	require.NoError(t, err)

	require.NoError(t, f.svc.InvitePlayerToTeam(ctx, "1001", "Brin"))

	team, err := f.svc.AcceptInvite(ctx, "1002")
	require.NoError(t, err)
	require.Equal(t, "Alpha", team.Name())

	details, err := f.svc.GetTeamDetails(ctx, "Alpha")
	require.NoError(t, err)
	require.Equal(t, []string{"Ada", "Brin"}, details.Players)

	// The invite is consumed on acceptance.
	_, err = f.svc.AcceptInvite(ctx, "1002")
	requirePrecondition(t, err, "You are already on a team.")
}

func TestAcceptInvite_WithoutInvite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultSettings())
	f.allowAllRoles()
	f.register(ctx, "1001", "Ada", "NA")

	_, err := f.svc.AcceptInvite(ctx, "1001")
	requirePrecondition(t, err, "You have no pending invite.")
}

func TestAcceptInvite_TeamFilledUpMeanwhile(t *testing.T) {
	ctx := context.Background()
	settings := defaultSettings()
	settings.TeamPlayersMin = 1
	settings.TeamPlayersMax = 2
	f := newFixture(t, settings)
	f.allowAllRoles()
	f.register(ctx, "1001", "Ada", "NA")
	f.register(ctx, "1002", "Brin", "NA")
	f.register(ctx, "1003", "Cleo", "NA")
	_, err := f.svc.RegisterTeam(ctx, "1001", "Alpha")
	require.NoError(t, err)

	require.NoError(t, f.svc.InvitePlayerToTeam(ctx, "1001", "Cleo"))
	require.NoError(t, f.svc.AddPlayerToTeam(ctx, "1001", "Brin"))

	_, err = f.svc.AcceptInvite(ctx, "1003")
	requirePrecondition(t, err, "Team is full.")
}

func TestRemovePlayerFromTeam(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultSettings())
	f.allowAllRoles()
	f.register(ctx, "1001", "Ada", "NA")
	f.register(ctx, "1002", "Brin", "NA")
	_, err := f.svc.RegisterTeam(ctx, "1001", "Alpha")
	require.NoError(t, err)
	require.NoError(t, f.svc.AddPlayerToTeam(ctx, "1001", "Brin"))

	require.NoError(t, f.svc.RemovePlayerFromTeam(ctx, "1001", "Brin"))

	details, err := f.svc.GetTeamDetails(ctx, "Alpha")
	require.NoError(t, err)
	require.Equal(t, []string{"Ada"}, details.Players)
	f.roles.AssertCalled(t, "RevokeRolesByPrefix", mock.Anything, "1002",
		[]string{"Team:", "Captain", "CoCaptain"})
}

func TestRemovePlayerFromTeam_CaptainProtected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultSettings())
	f.allowAllRoles()
	f.register(ctx, "1001", "Ada", "NA")
	f.register(ctx, "1002", "Brin", "NA")
	_, err := f.svc.RegisterTeam(ctx, "1001", "Alpha")
	require.NoError(t, err)
	require.NoError(t, f.svc.AddPlayerToTeam(ctx, "1001", "Brin"))
	require.NoError(t, f.svc.PromoteToCoCaptain(ctx, "1001", "Brin"))

	err = f.svc.RemovePlayerFromTeam(ctx, "1002", "Ada")
	requirePrecondition(t, err, "Cannot remove the team captain.")
}

func TestPromoteToCoCaptain(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultSettings())
	f.allowAllRoles()
	f.register(ctx, "1001", "Ada", "NA")
	f.register(ctx, "1002", "Brin", "NA")
	f.register(ctx, "1003", "Cleo", "NA")
	_, err := f.svc.RegisterTeam(ctx, "1001", "Alpha")
	require.NoError(t, err)
	require.NoError(t, f.svc.AddPlayerToTeam(ctx, "1001", "Brin"))
	require.NoError(t, f.svc.AddPlayerToTeam(ctx, "1001", "Cleo"))

	require.NoError(t, f.svc.PromoteToCoCaptain(ctx, "1001", "Brin"))
	f.roles.AssertCalled(t, "GrantRole", mock.Anything, "1002", "CoCaptainNA")

	// A second promotion is rejected and Brin stays the sole co-captain.
	err = f.svc.PromoteToCoCaptain(ctx, "1001", "Cleo")
	requirePrecondition(t, err, "Team already has a co-captain.")

	details, err := f.svc.GetTeamDetails(ctx, "Alpha")
	require.NoError(t, err)
	require.NotNil(t, details.CoCaptain)
	require.Equal(t, "Brin", *details.CoCaptain)
}

func TestPromoteToCoCaptain_Self(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultSettings())
	f.allowAllRoles()
	f.register(ctx, "1001", "Ada", "NA")
	_, err := f.svc.RegisterTeam(ctx, "1001", "Alpha")
	require.NoError(t, err)

	err = f.svc.PromoteToCoCaptain(ctx, "1001", "Ada")
	requirePrecondition(t, err, "Cannot promote yourself.")
}

func TestDemoteFromCoCaptain(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultSettings())
	f.allowAllRoles()
	f.register(ctx, "1001", "Ada", "NA")
	f.register(ctx, "1002", "Brin", "NA")
	_, err := f.svc.RegisterTeam(ctx, "1001", "Alpha")
	require.NoError(t, err)
	require.NoError(t, f.svc.AddPlayerToTeam(ctx, "1001", "Brin"))
	require.NoError(t, f.svc.PromoteToCoCaptain(ctx, "1001", "Brin"))

	require.NoError(t, f.svc.DemoteFromCoCaptain(ctx, "1001", "Brin"))

	details, err := f.svc.GetTeamDetails(ctx, "Alpha")
	require.NoError(t, err)
	require.Nil(t, details.CoCaptain)

	err = f.svc.DemoteFromCoCaptain(ctx, "1001", "Brin")
	requirePrecondition(t, err, "Player is not a co-captain.")
}

func TestLeaveTeam_CaptainWithoutCoCaptain(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultSettings())
	f.allowAllRoles()
	f.register(ctx, "1001", "Ada", "NA")
	f.register(ctx, "1002", "Brin", "NA")
	_, err := f.svc.RegisterTeam(ctx, "1001", "Alpha")
	require.NoError(t, err)
	require.NoError(t, f.svc.AddPlayerToTeam(ctx, "1001", "Brin"))

	err = f.svc.LeaveTeam(ctx, "1001")
	requirePrecondition(t, err, "Captain must promote a co-captain before leaving.")

	// Nothing was mutated.
	details, err := f.svc.GetTeamDetails(ctx, "Alpha")
	require.NoError(t, err)
	require.Equal(t, []string{"Ada", "Brin"}, details.Players)
	require.Equal(t, "Ada", *details.Captain)
}

func TestLeaveTeam_CaptainSuccession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultSettings())
	f.allowAllRoles()
	f.register(ctx, "1001", "Ada", "NA")
	f.register(ctx, "1002", "Brin", "NA")
	_, err := f.svc.RegisterTeam(ctx, "1001", "Alpha")
	require.NoError(t, err)
	require.NoError(t, f.svc.AddPlayerToTeam(ctx, "1001", "Brin"))
	require.NoError(t, f.svc.PromoteToCoCaptain(ctx, "1001", "Brin"))

	require.NoError(t, f.svc.LeaveTeam(ctx, "1001"))

	details, err := f.svc.GetTeamDetails(ctx, "Alpha")
	require.NoError(t, err)
	require.Equal(t, []string{"Brin"}, details.Players)
	require.NotNil(t, details.Captain)
	require.Equal(t, "Brin", *details.Captain)
	require.Nil(t, details.CoCaptain)

	// The successor's platform roles follow the flag swap: the stale
	// co-captain role is revoked and the captain role granted.
	f.roles.AssertCalled(t, "RevokeRolesByPrefix", mock.Anything, "1002", []string{"CoCaptain"})
	f.roles.AssertCalled(t, "GrantRole", mock.Anything, "1002", "CaptainNA")
}

func TestLeaveTeam_Member(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultSettings())
	f.allowAllRoles()
	f.register(ctx, "1001", "Ada", "NA")
	f.register(ctx, "1002", "Brin", "NA")
	_, err := f.svc.RegisterTeam(ctx, "1001", "Alpha")
	require.NoError(t, err)
	require.NoError(t, f.svc.AddPlayerToTeam(ctx, "1001", "Brin"))

	require.NoError(t, f.svc.LeaveTeam(ctx, "1002"))

	details, err := f.svc.GetTeamDetails(ctx, "Alpha")
	require.NoError(t, err)
	require.Equal(t, []string{"Ada"}, details.Players)
}

func TestDisbandTeam(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultSettings())
	f.allowAllRoles()
	f.register(ctx, "1001", "Ada", "NA")
	f.register(ctx, "1002", "Brin", "NA")
	_, err := f.svc.RegisterTeam(ctx, "1001", "Alpha")
	require.NoError(t, err)
	require.NoError(t, f.svc.AddPlayerToTeam(ctx, "1001", "Brin"))

	require.NoError(t, f.svc.DisbandTeam(ctx, "1001"))

	_, err = f.svc.GetTeamDetails(ctx, "Alpha")
	requirePrecondition(t, err, "Team not found.")

	// Both former members are teamless again.
	for _, name := range []string{"Ada", "Brin"} {
		details, err := f.svc.GetPlayerDetails(ctx, name, "")
		require.NoError(t, err)
		require.Nil(t, details.Team)
	}
}

func TestDisbandTeam_RequiresCaptain(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultSettings())
	f.allowAllRoles()
	f.register(ctx, "1001", "Ada", "NA")
	f.register(ctx, "1002", "Brin", "NA")
	_, err := f.svc.RegisterTeam(ctx, "1001", "Alpha")
	require.NoError(t, err)
	require.NoError(t, f.svc.AddPlayerToTeam(ctx, "1001", "Brin"))

	err = f.svc.DisbandTeam(ctx, "1002")
	requirePrecondition(t, err, "You must be team captain to disband a team.")
}

func TestGetPlayerDetails_WithTeam(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultSettings())
	f.allowAllRoles()
	f.register(ctx, "1001", "Ada", "NA")
	_, err := f.svc.RegisterTeam(ctx, "1001", "Alpha")
	require.NoError(t, err)

	details, err := f.svc.GetPlayerDetails(ctx, "", "1001")
	require.NoError(t, err)
	require.Equal(t, "Ada", details.Player)
	require.Equal(t, "NA", details.Region)
	require.NotNil(t, details.Team)
	require.Equal(t, "Alpha", *details.Team)
	require.True(t, *details.IsCaptain)
	require.False(t, *details.IsCoCaptain)
}

func TestGetPlayerDetails_RequiresIdentifier(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultSettings())

	_, err := f.svc.GetPlayerDetails(ctx, "", "")
	requirePrecondition(t, err, "No player name or discord id provided.")
}

func TestGetTeamDetails_DetectsCorruption(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultSettings())
	f.allowAllRoles()
	f.register(ctx, "1001", "Ada", "NA")
	f.register(ctx, "1002", "Brin", "NA")
	team, err := f.svc.RegisterTeam(ctx, "1001", "Alpha")
	require.NoError(t, err)

	// Forge a second captain row behind the engine's back.
	brin, err := league.NewPlayerTable(f.store).ByName(ctx, "Brin")
	require.NoError(t, err)
	_, err = f.teamPlayers.Create(ctx, team.ID(), brin.ID(), true, false)
	require.NoError(t, err)

	_, err = f.svc.GetTeamDetails(ctx, "Alpha")
	require.ErrorIs(t, err, roster.ErrCorruptRoster)
}
