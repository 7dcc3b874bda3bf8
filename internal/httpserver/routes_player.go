package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Cristianojr9/palavreco/internal/stats"
)

// mountPlayerRoutes registers per-player endpoints. They work for accounts
// and for guests with an anonymous cookie.
func (s *Server) mountPlayerRoutes(r chi.Router) {
	r.Get("/stats/me", s.handleGetStats)
	r.Delete("/stats/me", s.handleResetStats)
	r.Get("/games/mine", s.handleRecentGames)
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	p := s.currentPlayer(w, r, false)
	if p.ID == "" {
		writeJSON(w, http.StatusOK, stats.Stats{})
		return
	}
	st, err := s.stats.Get(r.Context(), p.ID)
	if err != nil {
		internalError(w, r, "db_error", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleResetStats(w http.ResponseWriter, r *http.Request) {
	p := s.currentPlayer(w, r, false)
	if p.ID != "" {
		if err := s.stats.Reset(r.Context(), p.ID); err != nil {
			internalError(w, r, "db_error", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, stats.Stats{})
}

func (s *Server) handleRecentGames(w http.ResponseWriter, r *http.Request) {
	p := s.currentPlayer(w, r, false)
	if p.ID == "" {
		writeJSON(w, http.StatusOK, []stats.GameRecord{})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	games, err := s.stats.RecentGames(r.Context(), p.ID, limit)
	if err != nil {
		internalError(w, r, "db_error", err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}
