package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenForTesting(t *testing.T) {
	conn, err := OpenForTesting()
	require.NoError(t, err)
	defer conn.Close()

	for _, table := range []string{"scan_sessions", "scanned_items"} {
		var name string
		err := conn.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	conn, err := OpenForTesting()
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, runMigrations(conn))

	var count int
	err = conn.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestOpenCreatesFile(t *testing.T) {
	path := t.TempDir() + "/scans.db"

	conn, err := Open(path)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Exec(`INSERT INTO scan_sessions (id, customer_id, employee_id, start_time) VALUES ('s1', 'c1', 'e1', CURRENT_TIMESTAMP)`)
	require.NoError(t, err)
}
