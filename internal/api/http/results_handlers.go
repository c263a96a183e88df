package http

import (
	"bytes"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/gradevision/internal/ladder"
	"github.com/mind-engage/gradevision/internal/report"
	"github.com/mind-engage/gradevision/internal/session"
	"github.com/mind-engage/gradevision/internal/share"
)

type editReq struct {
	Grade string `json:"grade"`
}

// PATCH /sessions/{id}/results/{index}
func EditGradeHandler(m *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i, err := indexParam(r)
		if err != nil {
			respondError(w, err)
			return
		}
		var req editReq
		if err := decode(w, r, &req, false); err != nil {
			respondError(w, err)
			return
		}
		snap, err := m.Edit(r.Context(), chi.URLParam(r, "id"), i, strings.TrimSpace(req.Grade))
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, snap)
	}
}

// DELETE /sessions/{id}/results/{index}
func RemoveResultHandler(m *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i, err := indexParam(r)
		if err != nil {
			respondError(w, err)
			return
		}
		snap, err := m.Remove(chi.URLParam(r, "id"), i)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, snap)
	}
}

type shareResp struct {
	Token string `json:"token"`
	Path  string `json:"path"`
}

// GET /sessions/{id}/share
func ShareHandler(m *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := m.Get(chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, err)
			return
		}
		token, err := share.Encode(snap.PerSubject, snap.PreviousCGPA)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, shareResp{Token: token, Path: "/results?data=" + url.QueryEscape(token)})
	}
}

// GET /sessions/{id}/export.xlsx
func ExportXLSXHandler(m *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := m.Get(chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, err)
			return
		}
		// Nothing is written until the workbook is complete.
		var buf bytes.Buffer
		if err := report.WriteXLSX(&buf, snap.AggregateResult, snap.PreviousCGPA); err != nil {
			respondError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="gradevision.xlsx"`)
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		_, _ = buf.WriteTo(w)
	}
}

// GET /results?data=
func SharedResultsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shared, err := share.Decode(r.URL.Query().Get("data"))
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, shared)
	}
}

// GET /ladder
func LadderHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, ladder.Tiers())
	}
}
