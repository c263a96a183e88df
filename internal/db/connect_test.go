package db_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/gradevision/internal/db"
)

func TestOpenSQLite(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "audit.db")

	conn, err := db.Open(ctx, db.DriverSQLite, dsn)
	require.NoError(t, err)
	defer conn.Close()

	var n int
	require.NoError(t, conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&n))
	assert.Zero(t, n)

	// schema creation is repeatable
	again, err := db.Open(ctx, db.DriverSQLite, dsn)
	require.NoError(t, err)
	again.Close()
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := db.Open(context.Background(), "mysql", "")
	assert.ErrorContains(t, err, "unsupported driver")
}
