package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/gradevision/internal/gpa"
	"github.com/mind-engage/gradevision/internal/intake"
	"github.com/mind-engage/gradevision/internal/ladder"
	"github.com/mind-engage/gradevision/internal/session"
	"github.com/mind-engage/gradevision/internal/share"
)

const maxBody = 1 << 20

var errBadJSON = errors.New("bad json")

type errorBody struct {
	Error  string              `json:"error"`
	Fields []intake.FieldError `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// respondError maps domain errors onto status codes.
func respondError(w http.ResponseWriter, err error) {
	var verr *intake.ValidationError
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusUnprocessableEntity, errorBody{Error: verr.Err.Error(), Fields: verr.Fields})
	case errors.Is(err, session.ErrNotFound), errors.Is(err, gpa.ErrIndexOutOfRange):
		respondJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, session.ErrBusy), errors.Is(err, session.ErrNoPending):
		respondJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, errBadJSON),
		errors.Is(err, intake.ErrNoSubjects),
		errors.Is(err, ladder.ErrUnknownTier),
		errors.Is(err, gpa.ErrInvalidPrevious),
		errors.Is(err, share.ErrInvalidToken):
		respondJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		respondJSON(w, http.StatusServiceUnavailable, errorBody{Error: "request cancelled"})
	default:
		respondJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

// decode reads a JSON body. An empty body leaves v untouched when allowEmpty.
func decode(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return errors.Join(errBadJSON, err)
	}
	return nil
}

func indexParam(r *http.Request) (int, error) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return 0, gpa.ErrIndexOutOfRange
	}
	return i, nil
}
