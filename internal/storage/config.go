// Package storage provides the relational employee store and the load run audit log.
package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/finops-tools/staffload/internal/config"
	"github.com/finops-tools/staffload/migrations"
)

const (
	defaultMaxOpenConns    = 1
	defaultMaxIdleConns    = 1
	defaultConnMaxLifetime = 30 * time.Minute

	sqliteScheme = "sqlite://"
	fileScheme   = "file:"
)

var (
	// ErrDatabaseURLEmpty is returned when the database url is an empty string.
	ErrDatabaseURLEmpty = errors.New("database URL cannot be empty")

	// ErrUnsupportedDatabaseURL is returned when the URL scheme maps to no known driver.
	ErrUnsupportedDatabaseURL = errors.New("unsupported database URL scheme")
)

// Config holds the employee store connection configuration.
// A load run uses a single connection by default.
type Config struct {
	databaseURL     string
	MaxOpenConns    int           // Maximum number of open connections
	MaxIdleConns    int           // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of connections
}

// LoadConfig loads store configuration from environment variables with fallback to defaults.
func LoadConfig() *Config {
	return &Config{
		databaseURL:     config.GetEnvStr("DATABASE_URL", ""), // DatabaseURL is private for obvious reasons.
		MaxOpenConns:    config.GetEnvInt("DATABASE_MAX_OPEN_CONNS", defaultMaxOpenConns),
		MaxIdleConns:    config.GetEnvInt("DATABASE_MAX_IDLE_CONNS", defaultMaxIdleConns),
		ConnMaxLifetime: defaultConnMaxLifetime,
	}
}

// NewConfig returns a configuration for databaseURL with default pool settings.
func NewConfig(databaseURL string) *Config {
	return &Config{
		databaseURL:     databaseURL,
		MaxOpenConns:    defaultMaxOpenConns,
		MaxIdleConns:    defaultMaxIdleConns,
		ConnMaxLifetime: defaultConnMaxLifetime,
	}
}

// Validate checks that a database URL is present and that its scheme is supported.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.databaseURL) == "" {
		return ErrDatabaseURLEmpty
	}

	if _, _, err := c.Driver(); err != nil {
		return err
	}

	return nil
}

// Driver returns the database/sql driver name and the data source name to
// hand to it. postgres:// and postgresql:// URLs use lib/pq; sqlite://<path>
// and file: URLs use modernc.org/sqlite.
func (c *Config) Driver() (string, string, error) {
	url := strings.TrimSpace(c.databaseURL)

	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return migrations.DialectPostgres, url, nil
	case strings.HasPrefix(url, sqliteScheme):
		return migrations.DialectSQLite, strings.TrimPrefix(url, sqliteScheme), nil
	case strings.HasPrefix(url, fileScheme):
		return migrations.DialectSQLite, url, nil
	default:
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedDatabaseURL, c.MaskDatabaseURL())
	}
}

// MaskDatabaseURL returns a masked databaseURL safe for logging.
func (c *Config) MaskDatabaseURL() string {
	if c.databaseURL == "" {
		return ""
	}

	// Find the scheme separator
	schemeEnd := strings.Index(c.databaseURL, "://")
	if schemeEnd == -1 {
		return c.databaseURL
	}

	// Find the last @ which separates userinfo from host
	afterScheme := c.databaseURL[schemeEnd+3:]

	lastAtIndex := strings.LastIndex(afterScheme, "@")
	if lastAtIndex == -1 {
		return c.databaseURL
	}

	userInfo := afterScheme[:lastAtIndex]

	colonIndex := strings.Index(userInfo, ":")
	if colonIndex == -1 {
		return c.databaseURL
	}

	username := userInfo[:colonIndex]

	if userInfo[colonIndex+1:] == "" {
		return c.databaseURL
	}

	scheme := c.databaseURL[:schemeEnd]
	hostAndRest := afterScheme[lastAtIndex:]

	return scheme + "://" + username + ":***" + hostAndRest
}
