package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/gradevision/internal/session"
)

type previousReq struct {
	PreviousCGPA *float64 `json:"previous_cgpa"`
}

// POST /sessions
func CreateSessionHandler(m *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req previousReq
		if err := decode(w, r, &req, true); err != nil {
			respondError(w, err)
			return
		}
		snap := m.Create()
		if req.PreviousCGPA != nil {
			var err error
			if snap, err = m.SetPrevious(snap.ID, req.PreviousCGPA); err != nil {
				_ = m.Delete(snap.ID)
				respondError(w, err)
				return
			}
		}
		respondJSON(w, http.StatusCreated, snap)
	}
}

// GET /sessions/{id}
func GetSessionHandler(m *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := m.Get(chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, snap)
	}
}

// DELETE /sessions/{id}
func DeleteSessionHandler(m *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := m.Delete(chi.URLParam(r, "id")); err != nil {
			respondError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// POST /sessions/{id}/reset
func ResetSessionHandler(m *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := m.Reset(chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, snap)
	}
}

// PUT /sessions/{id}/previous
func SetPreviousHandler(m *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req previousReq
		if err := decode(w, r, &req, false); err != nil {
			respondError(w, err)
			return
		}
		snap, err := m.SetPrevious(chi.URLParam(r, "id"), req.PreviousCGPA)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, snap)
	}
}
