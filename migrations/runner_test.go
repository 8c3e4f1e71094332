package migrations

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite" // SQLite driver
)

func newSQLiteRunner(t *testing.T, path string) *Runner {
	t.Helper()

	db, err := sql.Open(DialectSQLite, path)
	require.NoError(t, err)

	runner, err := NewRunner(db, DialectSQLite, DefaultMigrationTable, nil)
	if err != nil {
		_ = db.Close()

		t.Fatalf("failed to create runner: %v", err)
	}

	t.Cleanup(func() {
		_ = runner.Close()
	})

	return runner
}

func TestRunner_SQLiteLifecycle(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	path := filepath.Join(t.TempDir(), "migrate.db")
	runner := newSQLiteRunner(t, path)

	status, err := runner.Status()
	require.NoError(t, err)
	assert.Equal(t, &Status{}, status, "fresh database has no version")

	require.NoError(t, runner.Up())

	status, err = runner.Status()
	require.NoError(t, err)
	assert.Equal(t, &Status{Version: 2, Applied: true}, status)

	// A second Up has nothing to apply.
	require.NoError(t, runner.Up())

	require.NoError(t, runner.Down())

	status, err = runner.Status()
	require.NoError(t, err)
	assert.Equal(t, uint(1), status.Version)
	assert.False(t, status.Dirty)
}

func TestRunner_SchemaIsUsable(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	path := filepath.Join(t.TempDir(), "schema.db")
	require.NoError(t, newSQLiteRunner(t, path).Up())

	db, err := sql.Open(DialectSQLite, path)
	require.NoError(t, err)

	defer func() {
		_ = db.Close()
	}()

	insert := `INSERT INTO employee_table
		(serial_number, first_name, last_name, salary, job_position, unique_id, phone_number)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = db.Exec(insert, 1, "Jane", "Doe", 5000, "Engineer", "janedoe", 5550100)
	require.NoError(t, err)

	_, err = db.Exec(insert, 2, "Jane", "Doe", 5000, "Engineer", "janedoe", 5550101)
	assert.Error(t, err, "unique_id must be unique")
}

func TestNewRunner_UnknownDialect(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	db, err := sql.Open(DialectSQLite, filepath.Join(t.TempDir(), "x.db"))
	require.NoError(t, err)

	defer func() {
		_ = db.Close()
	}()

	_, err = NewRunner(db, "oracle", "", nil)

	assert.ErrorIs(t, err, ErrUnknownDialect)
}
