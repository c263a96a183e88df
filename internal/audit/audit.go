// Package audit appends descent events to a SQL table.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/mind-engage/gradevision/internal/grading"
)

type Entry struct {
	Seq       int64             `json:"seq"`
	SessionID string            `json:"session_id"`
	Kind      grading.EventKind `json:"kind"`
	Subject   string            `json:"subject"`
	Data      json.RawMessage   `json:"data"`
	CreatedAt int64             `json:"created_at"`
}

type payload struct {
	Grade             string `json:"grade,omitempty"`
	RequiredExamMarks int    `json:"required_see_marks"`
	Error             string `json:"error,omitempty"`
}

type Repo struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepo(db *sql.DB) *Repo { return &Repo{db: db, now: time.Now} }

func (r *Repo) Append(ctx context.Context, sessionID string, ev grading.Event) error {
	p := payload{Grade: ev.Grade, RequiredExamMarks: ev.RequiredExamMarks}
	if ev.Err != nil {
		p.Error = ev.Err.Error()
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO audit_log (session_id, kind, subject, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		sessionID, string(ev.Kind), ev.Subject, string(data), r.now().Unix())
	return err
}

// List returns a session's entries oldest first.
func (r *Repo) List(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, session_id, kind, subject, data, created_at
		   FROM audit_log WHERE session_id = $1 ORDER BY seq LIMIT $2`,
		sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		var kind, data string
		if err := rows.Scan(&e.Seq, &e.SessionID, &kind, &e.Subject, &data, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Kind = grading.EventKind(kind)
		e.Data = json.RawMessage(data)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Observer writes every event it sees. A failed write is logged and the
// descent carries on.
func (r *Repo) Observer(log *slog.Logger) grading.Observer {
	if log == nil {
		log = slog.Default()
	}
	return grading.ObserverFunc(func(ctx context.Context, ev grading.Event) {
		if err := r.Append(context.WithoutCancel(ctx), grading.RunID(ctx), ev); err != nil {
			log.Error("failed to write audit entry", "kind", ev.Kind, "subject", ev.Subject, "err", err)
		}
	})
}
