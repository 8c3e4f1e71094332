package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver
)

const pingTimeout = 10 * time.Second

var (
	// ErrStoreConnection is returned when the store cannot be reached.
	ErrStoreConnection = errors.New("cannot connect to employee store")

	// ErrNoDatabaseConnection is returned when a store is built without a connection.
	ErrNoDatabaseConnection = errors.New("database connection is required")
)

// Connection is an open, verified database handle together with its dialect.
type Connection struct {
	*sql.DB
	dialect string
}

// NewConnection opens the database described by cfg and verifies it with a ping.
// Any failure is reported as ErrStoreConnection.
func NewConnection(cfg *Config) (*Connection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	driver, dsn, err := cfg.Driver()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrStoreConnection, cfg.MaskDatabaseURL(), err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("%w: %s: %w", ErrStoreConnection, cfg.MaskDatabaseURL(), err)
	}

	return &Connection{DB: db, dialect: driver}, nil
}

// Dialect returns the SQL dialect, one of the migrations.Dialect* constants.
func (c *Connection) Dialect() string {
	return c.dialect
}

// HealthCheck verifies the database connection is reachable.
func (c *Connection) HealthCheck(ctx context.Context) error {
	if err := c.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreConnection, err)
	}

	return nil
}
