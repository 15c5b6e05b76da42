// Package transport exposes the engine's read projections over HTTP for
// dashboards and debugging. Commands arrive through the chat platform, not
// here.
package transport

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ganot/leaguedesk/internal/domain/roster"
)

// RosterReader is the subset of the roster engine the HTTP surface needs.
type RosterReader interface {
	GetPlayerDetails(ctx context.Context, playerName, discordID string) (*roster.PlayerDetails, error)
	GetTeamDetails(ctx context.Context, teamName string) (*roster.TeamDetails, error)
}

// Server wires HTTP handlers.
type Server struct {
	engine RosterReader
}

// NewServer creates the HTTP router.
func NewServer(engine RosterReader) *http.ServeMux {
	srv := &Server{engine: engine}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", srv.handleHealth)
	mux.HandleFunc("GET /players", srv.handlePlayerLookup)
	mux.HandleFunc("GET /teams/{name}", srv.handleTeamLookup)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handlePlayerLookup(w http.ResponseWriter, r *http.Request) {
	details, err := s.engine.GetPlayerDetails(r.Context(),
		r.URL.Query().Get("name"), r.URL.Query().Get("discord_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, details)
}

func (s *Server) handleTeamLookup(w http.ResponseWriter, r *http.Request) {
	details, err := s.engine.GetTeamDetails(r.Context(), r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, details)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	if roster.IsPrecondition(err) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, "internal error", http.StatusInternalServerError)
}
