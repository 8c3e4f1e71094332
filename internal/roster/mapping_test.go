package roster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finops-tools/staffload/internal/sheet"
)

func writeMapping(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".staffload.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadMapping(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	t.Run("missing file yields default", func(t *testing.T) {
		m, err := LoadMapping(filepath.Join(t.TempDir(), "absent.yaml"))

		require.NoError(t, err)
		assert.Equal(t, DefaultMapping(), m)
	})

	t.Run("full mapping", func(t *testing.T) {
		path := writeMapping(t, `
serial_number: 5
first_name: 4
last_name: 3
salary: 2
job_position: 1
phone_number: 0
dedup_key: 0
header_rows: 2
`)

		m, err := LoadMapping(path)

		require.NoError(t, err)
		assert.Equal(t, &Mapping{
			SerialNumber: 5,
			FirstName:    4,
			LastName:     3,
			Salary:       2,
			JobPosition:  1,
			PhoneNumber:  0,
			DedupKey:     0,
			HeaderRows:   2,
		}, m)
	})

	t.Run("partial mapping keeps defaults", func(t *testing.T) {
		path := writeMapping(t, "dedup_key: 5\n")

		m, err := LoadMapping(path)

		require.NoError(t, err)

		want := DefaultMapping()
		want.DedupKey = 5
		assert.Equal(t, want, m)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeMapping(t, "salary: [unterminated\n")

		_, err := LoadMapping(path)

		assert.ErrorIs(t, err, ErrInvalidMapping)
	})

	t.Run("non-integer column", func(t *testing.T) {
		path := writeMapping(t, "salary: D\n")

		_, err := LoadMapping(path)

		assert.ErrorIs(t, err, ErrInvalidMapping)
	})

	t.Run("two fields on one column", func(t *testing.T) {
		path := writeMapping(t, "salary: 1\n")

		_, err := LoadMapping(path)

		require.ErrorIs(t, err, ErrInvalidMapping)
		assert.Contains(t, err.Error(), "first_name and salary both use column 1")
	})
}

func TestLoadMappingFromEnv(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	path := writeMapping(t, "dedup_key: 5\nheader_rows: 0\n")
	t.Setenv(MappingPathEnvVar, path)

	m, err := LoadMappingFromEnv()

	require.NoError(t, err)
	assert.Equal(t, 5, m.DedupKey)
	assert.Zero(t, m.HeaderRows)
}

func TestMapping_Validate(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	tests := []struct {
		name    string
		modify  func(m *Mapping)
		wantErr bool
	}{
		{name: "default", modify: func(*Mapping) {}, wantErr: false},
		{name: "dedup key shares a field column", modify: func(m *Mapping) { m.DedupKey = 5 }, wantErr: false},
		{name: "dedup key beyond fields", modify: func(m *Mapping) { m.DedupKey = 9 }, wantErr: false},
		{name: "negative field", modify: func(m *Mapping) { m.Salary = -1 }, wantErr: true},
		{name: "negative dedup key", modify: func(m *Mapping) { m.DedupKey = -1 }, wantErr: true},
		{name: "negative header rows", modify: func(m *Mapping) { m.HeaderRows = -2 }, wantErr: true},
		{name: "duplicate field columns", modify: func(m *Mapping) { m.PhoneNumber = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := DefaultMapping()
			tt.modify(m)

			err := m.Validate()

			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMapping)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMapping_KeyFunc(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	key := DefaultMapping().KeyFunc()

	got, err := key(sheet.NewRow(1, sheet.NumberCell(1), sheet.StringCell("Jane"), sheet.StringCell("Doe")))
	require.NoError(t, err)
	assert.Equal(t, "Doe", got)

	got, err = key(sheet.NewRow(2, sheet.NumberCell(1), sheet.StringCell("Jane"), sheet.NumberCell(42.7)))
	require.NoError(t, err)
	assert.Equal(t, "42", got)

	_, err = key(sheet.NewRow(3, sheet.NumberCell(1), sheet.StringCell("Jane"), sheet.BoolCell(true)))
	assert.ErrorIs(t, err, ErrEmptyKey)
}
