package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ganot/leaguedesk/internal/config"
	"github.com/ganot/leaguedesk/internal/domain/roster"
	"github.com/ganot/leaguedesk/internal/grid"
	"github.com/ganot/leaguedesk/internal/league"
	"github.com/ganot/leaguedesk/internal/platform"
	"github.com/ganot/leaguedesk/internal/store"
	"github.com/ganot/leaguedesk/internal/transport"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	ctx := context.Background()

	gridSvc, cleanup, err := newGrid(ctx, cfg.Grid)
	if err != nil {
		logger.Error("failed to open backing grid", "backend", cfg.Grid.Backend, "error", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	recordStore := store.New(gridSvc, store.Options{
		CacheTTL:   time.Duration(cfg.Store.CacheTTLSeconds) * time.Second,
		WriteDelay: time.Duration(cfg.Store.WriteDelaySeconds) * time.Second,
	}, logger)

	// A header that disagrees with the field enumerations is a fatal
	// configuration error.
	if err := league.ValidateHeaders(ctx, recordStore); err != nil {
		logger.Error("table header validation failed", "error", err)
		os.Exit(1)
	}

	roleClient := platform.NewClient(cfg.Platform.BaseURL, cfg.Platform.Token, cfg.Platform.GuildID, logger)

	engine := roster.NewService(
		league.NewPlayerTable(recordStore),
		league.NewTeamTable(recordStore),
		league.NewTeamPlayerTable(recordStore),
		roleClient,
		roster.Settings{
			TeamPlayersMin: cfg.League.TeamPlayersMin,
			TeamPlayersMax: cfg.League.TeamPlayersMax,
			Regions:        cfg.League.Regions,
			Roles: roster.RolePrefixes{
				Player:    cfg.League.RolePrefixPlayer,
				Captain:   cfg.League.RolePrefixCaptain,
				CoCaptain: cfg.League.RolePrefixCoCaptain,
				Team:      cfg.League.RolePrefixTeam,
			},
		},
		logger,
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: transport.NewServer(engine),
	}

	go func() {
		logger.Info("server listening", "addr", addr, "grid", cfg.Grid.Backend)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	waitForShutdown(logger, httpServer)
}

func newGrid(ctx context.Context, cfg config.GridConfig) (grid.Service, func(), error) {
	switch cfg.Backend {
	case "sheets":
		g, err := grid.NewSheets(ctx, cfg.SpreadsheetID, cfg.CredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		return g, nil, nil
	case "sqlite":
		g, err := grid.NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		for table, header := range league.Headers() {
			if err := g.EnsureTable(ctx, table, header); err != nil {
				return nil, nil, err
			}
		}
		return g, func() { _ = g.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown grid backend %q", cfg.Backend)
	}
}

func waitForShutdown(logger *slog.Logger, server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
