package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/gradevision/internal/grading"
	"github.com/mind-engage/gradevision/internal/intake"
	"github.com/mind-engage/gradevision/internal/session"
)

// POST /sessions/{id}/subjects
//
// Starts the descent for one subject. The response carries either the first
// question or, when none is needed, the finished result.
func BeginSubjectHandler(m *session.Manager, v *intake.Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in intake.SubjectInput
		if err := decode(w, r, &in, false); err != nil {
			respondError(w, err)
			return
		}
		subject, err := v.Subject(in)
		if err != nil {
			respondError(w, err)
			return
		}
		step, err := m.Begin(r.Context(), chi.URLParam(r, "id"), subject)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, step)
	}
}

type answerReq struct {
	Confident *bool `json:"confident"`
}

// POST /sessions/{id}/answer
func AnswerHandler(m *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req answerReq
		if err := decode(w, r, &req, false); err != nil {
			respondError(w, err)
			return
		}
		if req.Confident == nil {
			respondError(w, errors.Join(errBadJSON, errors.New("confident required")))
			return
		}
		step, err := m.Answer(r.Context(), chi.URLParam(r, "id"), *req.Confident)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, step)
	}
}

// DELETE /sessions/{id}/pending
func AbandonHandler(m *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := m.Abandon(chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, snap)
	}
}

type assessReq struct {
	Subjects []intake.SubjectInput `json:"subjects"`
}

// POST /sessions/{id}/assess
//
// Runs every subject through the server's own oracle. Only mounted when
// one is configured.
func AssessHandler(m *session.Manager, v *intake.Validator, e *grading.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req assessReq
		if err := decode(w, r, &req, false); err != nil {
			respondError(w, err)
			return
		}
		subjects, err := v.Subjects(req.Subjects)
		if err != nil {
			respondError(w, err)
			return
		}
		snap, err := m.AssessWith(r.Context(), chi.URLParam(r, "id"), e, subjects)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, snap)
	}
}
