package roster

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/finops-tools/staffload/internal/config"
	"github.com/finops-tools/staffload/internal/sheet"
)

// DefaultMappingPath is the default location of the column mapping file.
const DefaultMappingPath = ".staffload.yaml"

// MappingPathEnvVar is the environment variable name for a custom mapping path.
const MappingPathEnvVar = "STAFFLOAD_MAPPING_PATH"

// ErrInvalidMapping is returned when a column mapping is inconsistent.
var ErrInvalidMapping = errors.New("invalid column mapping")

// Mapping assigns a zero-based column index to every record field.
//
//nolint:tagliatelle // snake_case is intentional for YAML config files
type Mapping struct {
	SerialNumber int `yaml:"serial_number"`
	FirstName    int `yaml:"first_name"`
	LastName     int `yaml:"last_name"`
	Salary       int `yaml:"salary"`
	JobPosition  int `yaml:"job_position"`
	PhoneNumber  int `yaml:"phone_number"`

	// DedupKey is the column whose value identifies duplicate rows.
	DedupKey int `yaml:"dedup_key"`

	// HeaderRows is the number of leading rows that hold column titles.
	HeaderRows int `yaml:"header_rows"`
}

// DefaultMapping returns the standard workbook layout: fields in columns
// A..F, duplicates detected on column C, one header row.
func DefaultMapping() *Mapping {
	return &Mapping{
		SerialNumber: 0,
		FirstName:    1,
		LastName:     2,
		Salary:       3,
		JobPosition:  4,
		PhoneNumber:  5,
		DedupKey:     2,
		HeaderRows:   1,
	}
}

// Validate checks that every index is non-negative and that no two fields
// share a column. The dedup key may reuse any column.
func (m *Mapping) Validate() error {
	fields := []struct {
		name  string
		index int
	}{
		{FieldSerialNumber, m.SerialNumber},
		{FieldFirstName, m.FirstName},
		{FieldLastName, m.LastName},
		{FieldSalary, m.Salary},
		{FieldJobPosition, m.JobPosition},
		{FieldPhoneNumber, m.PhoneNumber},
	}

	used := make(map[int]string, len(fields))

	for _, f := range fields {
		if f.index < 0 {
			return fmt.Errorf("%w: %s has negative column %d", ErrInvalidMapping, f.name, f.index)
		}

		if other, ok := used[f.index]; ok {
			return fmt.Errorf("%w: %s and %s both use column %d", ErrInvalidMapping, other, f.name, f.index)
		}

		used[f.index] = f.name
	}

	if m.DedupKey < 0 {
		return fmt.Errorf("%w: dedup_key has negative column %d", ErrInvalidMapping, m.DedupKey)
	}

	if m.HeaderRows < 0 {
		return fmt.Errorf("%w: header_rows cannot be negative", ErrInvalidMapping)
	}

	return nil
}

// KeyFunc returns the dedup key function for this mapping: the text of the
// dedup key column. A key cell that renders as "" is an error.
func (m *Mapping) KeyFunc() func(sheet.Row) (string, error) {
	column := m.DedupKey

	return func(row sheet.Row) (string, error) {
		cell := row.Cell(column)

		key := cell.String()
		if key == "" {
			return "", fmt.Errorf("column %d: %w (%s cell)", column, ErrEmptyKey, cell.Kind)
		}

		return key, nil
	}
}

// LoadMapping reads a mapping from a YAML file. Fields absent from the file
// keep their default. A missing file yields the default mapping.
func LoadMapping(path string) (*Mapping, error) {
	m := DefaultMapping()

	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config source
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("Mapping file not found, using default column layout",
				slog.String("path", path))

			return m, nil
		}

		return nil, fmt.Errorf("failed to read mapping file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidMapping, path, err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return m, nil
}

// LoadMappingFromEnv loads the mapping from STAFFLOAD_MAPPING_PATH, falling
// back to .staffload.yaml in the current directory.
func LoadMappingFromEnv() (*Mapping, error) {
	return LoadMapping(config.GetEnvStr(MappingPathEnvVar, DefaultMappingPath))
}
