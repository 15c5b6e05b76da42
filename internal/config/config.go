package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config defines service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Grid     GridConfig     `yaml:"grid"`
	Store    StoreConfig    `yaml:"store"`
	League   LeagueConfig   `yaml:"league"`
	Platform PlatformConfig `yaml:"platform"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// GridConfig selects and configures the backing grid.
type GridConfig struct {
	Backend         string `yaml:"backend"` // "sheets" or "sqlite"
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	CredentialsFile string `yaml:"credentials_file"`
	SQLitePath      string `yaml:"sqlite_path"`
}

type StoreConfig struct {
	CacheTTLSeconds   int `yaml:"cache_ttl_seconds"`
	WriteDelaySeconds int `yaml:"write_delay_seconds"`
}

type LeagueConfig struct {
	TeamPlayersMin      int      `yaml:"team_players_min"`
	TeamPlayersMax      int      `yaml:"team_players_max"`
	Regions             []string `yaml:"regions"`
	RolePrefixPlayer    string   `yaml:"role_prefix_player"`
	RolePrefixCaptain   string   `yaml:"role_prefix_captain"`
	RolePrefixCoCaptain string   `yaml:"role_prefix_co_captain"`
	RolePrefixTeam      string   `yaml:"role_prefix_team"`
}

type PlatformConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
	GuildID string `yaml:"guild_id"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Grid: GridConfig{
			Backend:         "sheets",
			CredentialsFile: ".secrets/google_credentials.json",
			SQLitePath:      "leaguedesk.db",
		},
		Store: StoreConfig{
			CacheTTLSeconds:   300,
			WriteDelaySeconds: 0,
		},
		League: LeagueConfig{
			TeamPlayersMin:      4,
			TeamPlayersMax:      6,
			Regions:             []string{"NA", "EU", "OCE"},
			RolePrefixPlayer:    "Player",
			RolePrefixCaptain:   "Captain",
			RolePrefixCoCaptain: "CoCaptain",
			RolePrefixTeam:      "Team:",
		},
		Log: LogConfig{
			Level: "info",
		},
	}

	if path := os.Getenv("LEAGUEDESK_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("LEAGUEDESK_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("LEAGUEDESK_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LEAGUEDESK_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if backend := os.Getenv("LEAGUEDESK_GRID_BACKEND"); backend != "" {
		cfg.Grid.Backend = backend
	}
	if id := os.Getenv("LEAGUEDESK_SPREADSHEET_ID"); id != "" {
		cfg.Grid.SpreadsheetID = id
	}
	if path := os.Getenv("LEAGUEDESK_CREDENTIALS_FILE"); path != "" {
		cfg.Grid.CredentialsFile = path
	}
	if path := os.Getenv("LEAGUEDESK_SQLITE_PATH"); path != "" {
		cfg.Grid.SQLitePath = path
	}
	if ttlStr := os.Getenv("LEAGUEDESK_CACHE_TTL_SECONDS"); ttlStr != "" {
		ttl, err := strconv.Atoi(ttlStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LEAGUEDESK_CACHE_TTL_SECONDS: %w", err)
		}
		cfg.Store.CacheTTLSeconds = ttl
	}
	if delayStr := os.Getenv("LEAGUEDESK_WRITE_DELAY_SECONDS"); delayStr != "" {
		delay, err := strconv.Atoi(delayStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LEAGUEDESK_WRITE_DELAY_SECONDS: %w", err)
		}
		cfg.Store.WriteDelaySeconds = delay
	}
	if regions := os.Getenv("LEAGUEDESK_REGIONS"); regions != "" {
		cfg.League.Regions = splitList(regions)
	}
	if baseURL := os.Getenv("LEAGUEDESK_PLATFORM_BASE_URL"); baseURL != "" {
		cfg.Platform.BaseURL = baseURL
	}
	if token := os.Getenv("LEAGUEDESK_PLATFORM_TOKEN"); token != "" {
		cfg.Platform.Token = token
	}
	if guildID := os.Getenv("LEAGUEDESK_PLATFORM_GUILD_ID"); guildID != "" {
		cfg.Platform.GuildID = guildID
	}
	if level := os.Getenv("LEAGUEDESK_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
