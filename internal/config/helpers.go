package config

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/finops-tools/staffload/migrations"
)

const (
	occurrenceCount = 2
	startUpTimeOut  = 120 * time.Second
)

// TestDatabase encapsulates test database resources for cleanup.
// Used by integration tests across multiple packages to maintain consistent test infrastructure.
type TestDatabase struct {
	Container *postgres.PostgresContainer
	URL       string
}

// SetupTestDatabase creates a PostgreSQL container and applies the embedded migrations.
//
// Usage:
//
//	func TestMyFeature(t *testing.T) {
//		if testing.Short() {
//			t.Skip("skipping integration test in short mode")
//		}
//		ctx := context.Background()
//		testDB := config.SetupTestDatabase(ctx, t)
//		// ... connect with storage.NewConnection(storage.NewConfig(testDB.URL))
//	}
//
// The container is terminated when the test ends.
func SetupTestDatabase(ctx context.Context, t *testing.T) *TestDatabase {
	t.Helper()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("staffload_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(occurrenceCount).
				WithStartupTimeout(startUpTimeOut),
		),
	)
	require.NoError(t, err, "Failed to start postgres container")
	require.NotNil(t, pgContainer, "postgres container is nil")

	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(pgContainer)
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "Failed to get connection string")

	migrateSchema(t, migrations.DialectPostgres, connStr)

	return &TestDatabase{
		Container: pgContainer,
		URL:       connStr,
	}
}

// SetupSQLiteDatabase creates a migrated SQLite database file in a temporary
// directory and returns its sqlite:// URL.
func SetupSQLiteDatabase(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "staffload.db")

	migrateSchema(t, migrations.DialectSQLite, path)

	return "sqlite://" + path
}

// migrateSchema applies all migrations through a dedicated handle that is
// closed afterwards, so no connection stays pinned by the migration driver.
func migrateSchema(t *testing.T, dialect, dsn string) {
	t.Helper()

	db, err := sql.Open(dialect, dsn)
	require.NoError(t, err, "Failed to open database")

	runner, err := migrations.NewRunner(db, dialect, migrations.DefaultMigrationTable, nil)
	if err != nil {
		_ = db.Close()

		t.Fatalf("Failed to create migration runner: %v", err)
	}

	require.NoError(t, runner.Up(), "Failed to run migrations")
	require.NoError(t, runner.Close(), "Failed to close migration runner")
}
