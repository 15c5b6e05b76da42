package roster

// PlayerDetails is the read projection for a single player.
type PlayerDetails struct {
	Player      string  `json:"player"`
	Region      string  `json:"region"`
	Team        *string `json:"team,omitempty"`
	IsCaptain   *bool   `json:"is_captain,omitempty"`
	IsCoCaptain *bool   `json:"is_co_captain,omitempty"`
}

// TeamDetails is the read projection for a team and its roster. Players are
// sorted alphabetically; CoCaptain is nil when the team has none.
type TeamDetails struct {
	Team      string   `json:"team"`
	Captain   *string  `json:"captain"`
	CoCaptain *string  `json:"co_captain"`
	Players   []string `json:"players"`
}

// Settings are the externally configured league constants.
type Settings struct {
	TeamPlayersMin int
	TeamPlayersMax int
	Regions        []string
	Roles          RolePrefixes
}

// RolePrefixes name the platform role families the engine maintains.
type RolePrefixes struct {
	Player    string
	Captain   string
	CoCaptain string
	Team      string
}

func (p RolePrefixes) playerRole(region string) string    { return p.Player + region }
func (p RolePrefixes) captainRole(region string) string   { return p.Captain + region }
func (p RolePrefixes) coCaptainRole(region string) string { return p.CoCaptain + region }
func (p RolePrefixes) teamRole(teamName string) string    { return p.Team + teamName }
