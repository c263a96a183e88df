package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	api "github.com/mind-engage/gradevision/internal/api/http"
	"github.com/mind-engage/gradevision/internal/audit"
	"github.com/mind-engage/gradevision/internal/db"
	"github.com/mind-engage/gradevision/internal/grading"
	"github.com/mind-engage/gradevision/internal/session"
)

type fixture struct {
	t   *testing.T
	srv *httptest.Server
}

func newFixture(t *testing.T, d api.Deps) *fixture {
	t.Helper()
	if d.Sessions == nil {
		d.Sessions = session.NewManager()
	}
	d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(api.NewRouter(d))
	t.Cleanup(srv.Close)
	return &fixture{t: t, srv: srv}
}

func (f *fixture) do(method, path string, body any, out any) int {
	f.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(f.t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	require.NoError(f.t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(f.t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		require.NoError(f.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type snapshot struct {
	ID           string                  `json:"id"`
	Results      []grading.SubjectResult `json:"results"`
	SGPA         float64                 `json:"sgpa"`
	Pending      *grading.Question       `json:"pending"`
	PreviousCGPA *float64                `json:"previous_cgpa"`
	OverallCGPA  *float64                `json:"overall_cgpa"`
}

type step struct {
	Question *grading.Question     `json:"question"`
	Result   *grading.SubjectResult `json:"result"`
	Session  snapshot              `json:"session"`
}

func subject(name string, cie, credits float64) map[string]any {
	return map[string]any{"name": name, "cie": cie, "credits": credits}
}

func TestInteractiveFlow(t *testing.T) {
	f := newFixture(t, api.Deps{})

	var snap snapshot
	require.Equal(t, http.StatusCreated, f.do("POST", "/sessions", map[string]any{"previous_cgpa": 8.5}, &snap))
	id := snap.ID
	require.NotEmpty(t, id)

	var st step
	require.Equal(t, http.StatusOK, f.do("POST", "/sessions/"+id+"/subjects", subject("Maths", 42, 4), &st))
	require.NotNil(t, st.Question)
	assert.Equal(t, "O", st.Question.Grade)
	assert.Equal(t, 96, st.Question.RequiredExamMarks)

	assert.Equal(t, http.StatusConflict, f.do("POST", "/sessions/"+id+"/subjects", subject("Physics", 30, 3), nil))

	require.Equal(t, http.StatusOK, f.do("POST", "/sessions/"+id+"/answer", map[string]any{"confident": false}, &st))
	assert.Equal(t, "A+", st.Question.Grade)
	require.Equal(t, http.StatusOK, f.do("POST", "/sessions/"+id+"/answer", map[string]any{"confident": true}, &st))
	require.NotNil(t, st.Result)
	assert.Equal(t, "A+", st.Result.Grade)
	assert.Equal(t, 9.0, st.Session.SGPA)
	require.NotNil(t, st.Session.OverallCGPA)
	assert.Equal(t, 8.75, *st.Session.OverallCGPA)

	assert.Equal(t, http.StatusConflict, f.do("POST", "/sessions/"+id+"/answer", map[string]any{"confident": true}, nil))

	require.Equal(t, http.StatusOK, f.do("PATCH", "/sessions/"+id+"/results/0", map[string]any{"grade": "b"}, &snap))
	assert.Equal(t, "B", snap.Results[0].Grade)
	assert.Equal(t, 16, snap.Results[0].RequiredExamMarks)
	assert.Equal(t, 6.0, snap.SGPA)

	assert.Equal(t, http.StatusBadRequest, f.do("PATCH", "/sessions/"+id+"/results/0", map[string]any{"grade": "Z"}, nil))
	assert.Equal(t, http.StatusNotFound, f.do("PATCH", "/sessions/"+id+"/results/4", map[string]any{"grade": "A"}, nil))

	var shared struct {
		Token string `json:"token"`
		Path  string `json:"path"`
	}
	require.Equal(t, http.StatusOK, f.do("GET", "/sessions/"+id+"/share", nil, &shared))
	assert.True(t, strings.HasPrefix(shared.Path, "/results?data="))

	var decoded snapshot
	require.Equal(t, http.StatusOK, f.do("GET", shared.Path, nil, &decoded))
	assert.Equal(t, 6.0, decoded.SGPA)
	require.NotNil(t, decoded.OverallCGPA)
	assert.Equal(t, 7.25, *decoded.OverallCGPA)

	resp, err := http.Get(f.srv.URL + "/sessions/" + id + "/export.xlsx")
	require.NoError(t, err)
	xlsx, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.GreaterOrEqual(t, len(xlsx), 2)
	assert.Equal(t, "PK", string(xlsx[:2]), "xlsx is a zip archive")
	assert.Equal(t, int64(len(xlsx)), resp.ContentLength, "workbook is sent whole")

	require.Equal(t, http.StatusOK, f.do("DELETE", "/sessions/"+id+"/results/0", nil, &snap))
	assert.Empty(t, snap.Results)

	assert.Equal(t, http.StatusNoContent, f.do("DELETE", "/sessions/"+id, nil, nil))
	assert.Equal(t, http.StatusNotFound, f.do("GET", "/sessions/"+id, nil, nil))
}

func TestValidationErrors(t *testing.T) {
	f := newFixture(t, api.Deps{})
	var snap snapshot
	f.do("POST", "/sessions", nil, &snap)

	req, _ := http.NewRequest("POST", f.srv.URL+"/sessions/"+snap.ID+"/subjects", strings.NewReader(`{"name":"Maths","cie":51,"credits":4}`))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var body struct {
		Fields []struct {
			Field string `json:"field"`
			Error string `json:"error"`
		} `json:"fields"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Fields, 1)
	assert.Equal(t, "cie", body.Fields[0].Field)
	assert.Equal(t, "CIE marks cannot exceed 50.", body.Fields[0].Error)

	assert.Equal(t, http.StatusBadRequest, f.do("POST", "/sessions/"+snap.ID+"/subjects", map[string]any{"nickname": "x"}, nil))
	assert.Equal(t, http.StatusBadRequest, f.do("POST", "/sessions/"+snap.ID+"/answer", map[string]any{}, nil))
	assert.Equal(t, http.StatusBadRequest, f.do("PUT", "/sessions/"+snap.ID+"/previous", map[string]any{"previous_cgpa": 11}, nil))
	assert.Equal(t, http.StatusBadRequest, f.do("GET", "/results?data=garbage!", nil, nil))
	assert.Equal(t, http.StatusNotFound, f.do("POST", "/sessions/missing/subjects", subject("Maths", 42, 4), nil))
}

func TestAssessWithServerOracle(t *testing.T) {
	e := grading.NewEngine(grading.OracleFunc(func(_ context.Context, q grading.Question) (bool, error) {
		return q.Grade == "A", nil
	}))
	f := newFixture(t, api.Deps{Engine: e})

	var snap snapshot
	f.do("POST", "/sessions", nil, &snap)
	code := f.do("POST", "/sessions/"+snap.ID+"/assess", map[string]any{"subjects": []any{
		subject("Maths", 42, 4), subject("Physics", 30, 3),
	}}, &snap)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, snap.Results, 2)
	assert.Equal(t, 8.0, snap.SGPA)

	assert.Equal(t, http.StatusBadRequest, f.do("POST", "/sessions/"+snap.ID+"/assess", map[string]any{"subjects": []any{}}, nil))
}

func TestAssessOutlivesRequestTimeout(t *testing.T) {
	slow := grading.OracleFunc(func(ctx context.Context, q grading.Question) (bool, error) {
		select {
		case <-time.After(30 * time.Millisecond):
			return true, nil
		case <-ctx.Done():
			return false, ctx.Err()
		}
	})
	subjects := map[string]any{"subjects": []any{subject("Maths", 42, 4), subject("Physics", 30, 3)}}

	f := newFixture(t, api.Deps{Engine: grading.NewEngine(slow), Timeout: 10 * time.Millisecond, AssessTimeout: 5 * time.Second})
	var snap snapshot
	f.do("POST", "/sessions", nil, &snap)
	require.Equal(t, http.StatusOK, f.do("POST", "/sessions/"+snap.ID+"/assess", subjects, &snap))
	assert.Len(t, snap.Results, 2)

	f = newFixture(t, api.Deps{Engine: grading.NewEngine(slow), AssessTimeout: 10 * time.Millisecond})
	var cut snapshot
	f.do("POST", "/sessions", nil, &cut)
	id := cut.ID
	assert.Equal(t, http.StatusServiceUnavailable, f.do("POST", "/sessions/"+id+"/assess", subjects, nil))
	cut = snapshot{}
	require.Equal(t, http.StatusOK, f.do("GET", "/sessions/"+id, nil, &cut))
	assert.Empty(t, cut.Results, "a run cut short keeps nothing")
}

func TestAssessNotMountedWithoutEngine(t *testing.T) {
	f := newFixture(t, api.Deps{})
	var snap snapshot
	f.do("POST", "/sessions", nil, &snap)
	code := f.do("POST", "/sessions/"+snap.ID+"/assess", map[string]any{"subjects": []any{subject("Maths", 42, 4)}}, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestEventsFromAuditLog(t *testing.T) {
	conn, err := db.Open(context.Background(), db.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	repo := audit.NewRepo(conn)

	f := newFixture(t, api.Deps{
		Sessions: session.NewManager(session.WithObserver(repo.Observer(nil))),
		Audit:    repo,
	})
	var snap snapshot
	f.do("POST", "/sessions", nil, &snap)
	f.do("POST", "/sessions/"+snap.ID+"/subjects", subject("Maths", 42, 4), nil)
	f.do("POST", "/sessions/"+snap.ID+"/answer", map[string]any{"confident": true}, nil)

	var entries []audit.Entry
	require.Equal(t, http.StatusOK, f.do("GET", "/sessions/"+snap.ID+"/events", nil, &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, grading.EventAsked, entries[0].Kind)
	assert.Equal(t, grading.EventConfirmed, entries[1].Kind)
	assert.Equal(t, grading.EventCommitted, entries[2].Kind)
}

func TestLadderAndProbes(t *testing.T) {
	ready := errors.New("db down")
	var readyErr error = ready
	f := newFixture(t, api.Deps{Ready: func() error { return readyErr }})

	var tiers []map[string]any
	require.Equal(t, http.StatusOK, f.do("GET", "/ladder", nil, &tiers))
	require.Len(t, tiers, 8)
	assert.Equal(t, "O", tiers[0]["name"])

	assert.Equal(t, http.StatusOK, f.do("GET", "/healthz", nil, nil))
	assert.Equal(t, http.StatusServiceUnavailable, f.do("GET", "/readyz", nil, nil))
	readyErr = nil
	assert.Equal(t, http.StatusOK, f.do("GET", "/readyz", nil, nil))
}
