package radiusdb

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// The in-memory database exists per connection.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, InitSchema(db))
	return db
}

func countChecks(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM radcheck`).Scan(&n))
	return n
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	boom := errors.New("boom")

	err := WithTx(context.Background(), db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO radcheck (username, attribute, op, value) VALUES (?, ?, ?, ?)`,
			"acme_alice", "Cleartext-Password", ":=", "hunter2")
		require.NoError(t, err)
		return boom
	})

	// The fn error comes back unwrapped so callers can match on it.
	require.ErrorIs(t, err, boom)
	// No partial write survives: the daemon must see zero rows or all of them.
	require.Equal(t, 0, countChecks(t, db))
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	db := newTestDB(t)

	err := WithTx(context.Background(), db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO radcheck (username, attribute, op, value) VALUES (?, ?, ?, ?)`,
			"acme_alice", "Cleartext-Password", ":=", "hunter2")
		return err
	})

	require.NoError(t, err)
	require.Equal(t, 1, countChecks(t, db))
}
