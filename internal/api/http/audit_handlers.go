package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/gradevision/internal/audit"
	"github.com/mind-engage/gradevision/internal/session"
)

// GET /sessions/{id}/events?limit=
func ListEventsHandler(m *session.Manager, repo *audit.Repo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := m.Get(id); err != nil {
			respondError(w, err)
			return
		}
		entries, err := repo.List(r.Context(), id, parseIntDefault(r.URL.Query().Get("limit"), 200))
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, entries)
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
