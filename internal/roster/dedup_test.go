package roster

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finops-tools/staffload/internal/sheet"
)

type keyedRow struct {
	id  int
	key string
}

func keyOf(r keyedRow) (string, error) {
	return r.key, nil
}

func TestDeduplicate(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	tests := []struct {
		name  string
		input []keyedRow
		want  []keyedRow
	}{
		{
			name:  "empty input",
			input: nil,
			want:  []keyedRow{},
		},
		{
			name:  "no duplicates",
			input: []keyedRow{{1, "a"}, {2, "b"}, {3, "c"}},
			want:  []keyedRow{{1, "a"}, {2, "b"}, {3, "c"}},
		},
		{
			name:  "later duplicates dropped",
			input: []keyedRow{{1, "a"}, {2, "b"}, {3, "a"}, {4, "c"}, {5, "b"}},
			want:  []keyedRow{{1, "a"}, {2, "b"}, {4, "c"}},
		},
		{
			name:  "all duplicates",
			input: []keyedRow{{1, "x"}, {2, "x"}, {3, "x"}},
			want:  []keyedRow{{1, "x"}},
		},
		{
			name:  "keys are case sensitive",
			input: []keyedRow{{1, "Doe"}, {2, "doe"}},
			want:  []keyedRow{{1, "Doe"}, {2, "doe"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Deduplicate(tt.input, keyOf)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeduplicate_Properties(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	// Deterministic pseudo-random inputs with a small key space to force collisions.
	for seed := 1; seed <= 50; seed++ {
		input := make([]keyedRow, 0, 40)
		state := seed

		for i := 0; i < 40; i++ {
			state = (state*1103515245 + 12345) & 0x7fffffff
			input = append(input, keyedRow{id: i, key: strconv.Itoa(state % 7)})
		}

		snapshot := append([]keyedRow(nil), input...)

		got, err := Deduplicate(input, keyOf)
		require.NoError(t, err)

		assert.Equal(t, snapshot, input, "input must not be modified")

		inputKeys := make(map[string]bool)
		for _, r := range input {
			inputKeys[r.key] = true
		}

		seen := make(map[string]bool)
		lastID := -1

		for _, r := range got {
			assert.False(t, seen[r.key], "duplicate key %q in output", r.key)
			assert.True(t, inputKeys[r.key], "key %q not in input", r.key)
			assert.Greater(t, r.id, lastID, "first-occurrence order not preserved")

			seen[r.key] = true
			lastID = r.id
		}

		assert.Len(t, seen, len(inputKeys), "every input key must survive")

		for _, r := range got {
			for _, earlier := range input[:r.id] {
				assert.NotEqual(t, r.key, earlier.key, "row %d is not the first occurrence", r.id)
			}
		}

		again, err := Deduplicate(got, keyOf)
		require.NoError(t, err)
		assert.Equal(t, got, again, "deduplication must be idempotent")
	}
}

func TestDeduplicate_KeyFailureReportsIndex(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	boom := errors.New("unreadable cell")
	key := func(r keyedRow) (string, error) {
		if r.key == "" {
			return "", boom
		}

		return r.key, nil
	}

	_, err := Deduplicate([]keyedRow{{0, "a"}, {1, "b"}, {2, ""}, {3, "c"}}, key)

	var keyErr *KeyError
	require.ErrorAs(t, err, &keyErr)
	assert.Equal(t, 2, keyErr.Index)
	assert.ErrorIs(t, err, boom)
}

func TestDeduplicateSheet(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	header := sheet.NewRow(0,
		sheet.StringCell("S.No"), sheet.StringCell("First"), sheet.StringCell("Last"),
		sheet.StringCell("Salary"), sheet.StringCell("Position"), sheet.StringCell("Phone"))

	rows := []sheet.Row{
		header,
		sheet.NewRow(1, sheet.NumberCell(1), sheet.StringCell("Jane"), sheet.StringCell("Doe"),
			sheet.NumberCell(5000), sheet.StringCell("Engineer"), sheet.StringCell("555-0100")),
		sheet.NewRow(2, sheet.NumberCell(2), sheet.StringCell("Jane"), sheet.StringCell("Doe"),
			sheet.NumberCell(5200), sheet.StringCell("Engineer"), sheet.StringCell("555-0100")),
		sheet.NewRow(3, sheet.NumberCell(3), sheet.StringCell("John"), sheet.StringCell("Smith"),
			sheet.NumberCell(4800), sheet.StringCell("Analyst"), sheet.StringCell("555-0200")),
	}

	t.Run("phone column key", func(t *testing.T) {
		m := DefaultMapping()
		m.DedupKey = 5

		result, err := DeduplicateSheet(&sheet.Sheet{Rows: rows}, m)

		require.NoError(t, err)
		assert.Equal(t, []sheet.Row{header}, result.Header)
		assert.Equal(t, []sheet.Row{rows[1], rows[3]}, result.Rows)
		assert.Equal(t, 1, result.Dropped)
		assert.Equal(t, []sheet.Row{header, rows[1], rows[3]}, result.All())
	})

	t.Run("header rows take no part in key tracking", func(t *testing.T) {
		m := DefaultMapping()
		m.DedupKey = 1

		withTitleKey := append([]sheet.Row(nil), rows...)
		withTitleKey = append(withTitleKey, sheet.NewRow(4, sheet.NumberCell(4), sheet.StringCell("First"),
			sheet.StringCell("Row"), sheet.NumberCell(1), sheet.StringCell("x"), sheet.NumberCell(1)))

		result, err := DeduplicateSheet(&sheet.Sheet{Rows: withTitleKey}, m)

		require.NoError(t, err)
		assert.Equal(t, []sheet.Row{withTitleKey[1], withTitleKey[3], withTitleKey[4]}, result.Rows)
	})

	t.Run("numeric key cells render as integers", func(t *testing.T) {
		m := DefaultMapping()
		m.DedupKey = 0

		numeric := []sheet.Row{
			header,
			sheet.NewRow(1, sheet.NumberCell(7)),
			sheet.NewRow(2, sheet.NumberCell(7.9)),
			sheet.NewRow(3, sheet.StringCell("7")),
			sheet.NewRow(4, sheet.NumberCell(8)),
		}

		result, err := DeduplicateSheet(&sheet.Sheet{Rows: numeric}, m)

		require.NoError(t, err)
		assert.Equal(t, []sheet.Row{numeric[1], numeric[4]}, result.Rows)
	})

	t.Run("empty key cell fails with source row index", func(t *testing.T) {
		broken := []sheet.Row{
			header,
			rows[1],
			sheet.NewRow(7, sheet.NumberCell(9), sheet.StringCell("No")),
		}

		_, err := DeduplicateSheet(&sheet.Sheet{Rows: broken}, DefaultMapping())

		var keyErr *KeyError
		require.ErrorAs(t, err, &keyErr)
		assert.Equal(t, 7, keyErr.Index)
		assert.ErrorIs(t, err, ErrEmptyKey)
	})

	t.Run("sheet shorter than header", func(t *testing.T) {
		m := DefaultMapping()
		m.HeaderRows = 3

		result, err := DeduplicateSheet(&sheet.Sheet{Rows: rows[:2]}, m)

		require.NoError(t, err)
		assert.Len(t, result.Header, 2)
		assert.Empty(t, result.Rows)
	})
}
