package audit_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/gradevision/internal/audit"
	"github.com/mind-engage/gradevision/internal/db"
	"github.com/mind-engage/gradevision/internal/grading"
)

func openRepo(t *testing.T) *audit.Repo {
	t.Helper()
	conn, err := db.Open(context.Background(), db.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return audit.NewRepo(conn)
}

func TestAppendAndList(t *testing.T) {
	ctx := context.Background()
	repo := openRepo(t)

	require.NoError(t, repo.Append(ctx, "s1", grading.Event{Kind: grading.EventAsked, Subject: "Maths", Grade: "O", RequiredExamMarks: 96}))
	require.NoError(t, repo.Append(ctx, "s1", grading.Event{Kind: grading.EventOracleFailed, Subject: "Maths", Grade: "O", Err: errors.New("timeout")}))
	require.NoError(t, repo.Append(ctx, "s2", grading.Event{Kind: grading.EventAsked, Subject: "Physics"}))

	entries, err := repo.List(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, grading.EventAsked, entries[0].Kind)
	assert.Less(t, entries[0].Seq, entries[1].Seq)

	var p map[string]any
	require.NoError(t, json.Unmarshal(entries[1].Data, &p))
	assert.Equal(t, "timeout", p["error"])

	entries, err = repo.List(ctx, "none", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestObserverRecordsDescent(t *testing.T) {
	repo := openRepo(t)
	e := grading.NewEngine(grading.OracleFunc(func(_ context.Context, q grading.Question) (bool, error) {
		return q.Grade == "A+", nil
	}), grading.WithObserver(repo.Observer(nil)))

	ctx := grading.WithRunID(context.Background(), "run-1")
	_, err := e.Assess(ctx, grading.Subject{Name: "Maths", InternalMarks: 42, CreditWeight: 4})
	require.NoError(t, err)

	entries, err := repo.List(context.Background(), "run-1", 0)
	require.NoError(t, err)
	kinds := make([]grading.EventKind, len(entries))
	for i, e := range entries {
		kinds[i] = e.Kind
	}
	assert.Equal(t, []grading.EventKind{
		grading.EventAsked, grading.EventDeclined,
		grading.EventAsked, grading.EventConfirmed,
		grading.EventCommitted,
	}, kinds)
}
