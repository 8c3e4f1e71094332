// Package migrations embeds the staffload schema and applies it with golang-migrate.
//
// Each supported dialect owns a directory of paired migration files following
// the 001_name.(up|down).sql naming standard. The files are embedded at build
// time so neither the migrator nor the tests depend on the working directory.
package migrations

import (
	"crypto/sha256"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

// Supported dialects. The values double as database/sql driver names.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

var (
	// ErrUnknownDialect is returned when no embedded migrations exist for a dialect.
	ErrUnknownDialect = errors.New("unknown migration dialect")

	// ErrNoMigrations is returned when a migration source contains no valid files.
	ErrNoMigrations = errors.New("no embedded migration files found")
)

//go:embed postgres/*.sql sqlite/*.sql
var embeddedMigrations embed.FS

// Migration filename regex: 001_migration_name.up.sql or 001_migration_name.down.sql.
var migrationFilenameRegex = regexp.MustCompile(`^(\d{3})_([a-zA-Z0-9_]+)\.(up|down)\.sql$`)

type (
	// EmbeddedMigration gives validated access to one dialect's migration files.
	EmbeddedMigration struct {
		fs        fs.FS
		checksums map[string]string // filename -> checksum for integrity checking
	}

	// MigrationInfo contains parsed information about a migration file.
	MigrationInfo struct {
		Sequence  int
		Name      string
		Direction string // "up" or "down"
		Filename  string
	}
)

// NewEmbeddedMigration returns the embedded migrations for dialect.
func NewEmbeddedMigration(dialect string) (*EmbeddedMigration, error) {
	switch dialect {
	case DialectPostgres, DialectSQLite:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, dialect)
	}

	sub, err := fs.Sub(embeddedMigrations, dialect)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations for %s: %w", dialect, err)
	}

	return NewEmbeddedMigrationFS(sub), nil
}

// NewEmbeddedMigrationFS wraps an arbitrary filesystem. Used by tests.
func NewEmbeddedMigrationFS(filesystem fs.FS) *EmbeddedMigration {
	return &EmbeddedMigration{
		fs:        filesystem,
		checksums: make(map[string]string),
	}
}

// FS returns the filesystem holding the migration files.
func (e *EmbeddedMigration) FS() fs.FS {
	return e.fs
}

// List returns all migration files that conform to the naming standard, sorted.
func (e *EmbeddedMigration) List() ([]string, error) {
	entries, err := fs.ReadDir(e.fs, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded migrations directory: %w", err)
	}

	var files []string

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		filename := entry.Name()
		if filepath.Ext(filename) == ".sql" && migrationFilenameRegex.MatchString(filename) {
			files = append(files, filename)
		}
	}

	sort.Strings(files)

	return files, nil
}

// Validate checks up/down pairing, sequence continuity and, on repeat calls,
// that no file changed since the previous validation.
func (e *EmbeddedMigration) Validate() error {
	files, err := e.List()
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return ErrNoMigrations
	}

	infos := make([]*MigrationInfo, 0, len(files))

	for _, file := range files {
		info, err := parseMigrationFilename(file)
		if err != nil {
			return err
		}

		infos = append(infos, info)
	}

	if err := validatePairing(infos); err != nil {
		return err
	}

	if err := validateSequence(infos); err != nil {
		return err
	}

	for _, file := range files {
		content, err := fs.ReadFile(e.fs, file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		sum := fmt.Sprintf("%x", sha256.Sum256(content))
		if stored, ok := e.checksums[file]; ok && stored != sum {
			return fmt.Errorf("checksum mismatch for %s: file has been modified", file)
		}

		e.checksums[file] = sum
	}

	return nil
}

func parseMigrationFilename(filename string) (*MigrationInfo, error) {
	matches := migrationFilenameRegex.FindStringSubmatch(filename)
	if len(matches) != 4 { //nolint:mnd // full match + three groups
		return nil, fmt.Errorf(
			"invalid migration filename format: %s (expected: 001_name.up.sql or 001_name.down.sql)",
			filename,
		)
	}

	sequence, err := strconv.Atoi(matches[1])
	if err != nil {
		return nil, fmt.Errorf("invalid sequence number in filename %s: %w", filename, err)
	}

	return &MigrationInfo{
		Sequence:  sequence,
		Name:      matches[2],
		Direction: matches[3],
		Filename:  filename,
	}, nil
}

// validatePairing ensures that every up migration has a corresponding down migration.
func validatePairing(infos []*MigrationInfo) error {
	pairs := make(map[string]map[string]bool)

	for _, info := range infos {
		key := fmt.Sprintf("%03d_%s", info.Sequence, info.Name)
		if pairs[key] == nil {
			pairs[key] = make(map[string]bool)
		}

		pairs[key][info.Direction] = true
	}

	for key, directions := range pairs {
		if !directions["up"] {
			return fmt.Errorf("orphaned down migration: missing up migration for %s", key)
		}

		if !directions["down"] {
			return fmt.Errorf("orphaned up migration: missing down migration for %s", key)
		}
	}

	return nil
}

// validateSequence ensures the sequence starts at 001 and has no gaps.
func validateSequence(infos []*MigrationInfo) error {
	seen := make(map[int]bool)

	var sequences []int

	for _, info := range infos {
		if !seen[info.Sequence] {
			seen[info.Sequence] = true
			sequences = append(sequences, info.Sequence)
		}
	}

	sort.Ints(sequences)

	if len(sequences) == 0 {
		return nil
	}

	if sequences[0] != 1 {
		return fmt.Errorf("migration sequence should start with 001, but found %03d", sequences[0])
	}

	for i := 1; i < len(sequences); i++ {
		if expected := sequences[i-1] + 1; sequences[i] != expected {
			return fmt.Errorf("gap in migration sequence: expected %03d, found %03d", expected, sequences[i])
		}
	}

	return nil
}
