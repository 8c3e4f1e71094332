package roster

import (
	"errors"
	"fmt"

	"github.com/finops-tools/staffload/internal/sheet"
)

// ErrEmptyKey is returned by a key function when the key cell has no text.
var ErrEmptyKey = errors.New("dedup key is empty")

// KeyError reports a row whose dedup key could not be computed.
type KeyError struct {
	Index int // zero-based position in the input sequence
	Err   error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("dedup key for row %d: %v", e.Index, e.Err)
}

func (e *KeyError) Unwrap() error {
	return e.Err
}

// Deduplicate returns the rows whose key has not been seen before, in input
// order. The first pass decides which rows to keep, the second copies them;
// rows is never modified. The first key failure aborts with a *KeyError.
func Deduplicate[R any](rows []R, key func(R) (string, error)) ([]R, error) {
	seen := make(map[string]struct{}, len(rows))
	keep := make([]bool, len(rows))
	kept := 0

	for i, row := range rows {
		k, err := key(row)
		if err != nil {
			return nil, &KeyError{Index: i, Err: err}
		}

		if _, dup := seen[k]; dup {
			continue
		}

		seen[k] = struct{}{}
		keep[i] = true
		kept++
	}

	out := make([]R, 0, kept)

	for i, row := range rows {
		if keep[i] {
			out = append(out, row)
		}
	}

	return out, nil
}

// DedupResult is the outcome of deduplicating a worksheet.
type DedupResult struct {
	Header  []sheet.Row
	Rows    []sheet.Row // kept data rows, first occurrence order
	Dropped int
}

// All returns the header rows followed by the kept data rows.
func (r *DedupResult) All() []sheet.Row {
	all := make([]sheet.Row, 0, len(r.Header)+len(r.Rows))
	all = append(all, r.Header...)

	return append(all, r.Rows...)
}

// DeduplicateSheet removes data rows of s whose dedup key column repeats an
// earlier row. Header rows pass through and take no part in key tracking.
// A KeyError index refers to the source row (sheet.Row.Index).
func DeduplicateSheet(s *sheet.Sheet, m *Mapping) (*DedupResult, error) {
	headerRows := min(m.HeaderRows, len(s.Rows))
	header := s.Rows[:headerRows]
	data := s.Rows[headerRows:]

	kept, err := Deduplicate(data, m.KeyFunc())
	if err != nil {
		var keyErr *KeyError
		if errors.As(err, &keyErr) {
			keyErr.Index = data[keyErr.Index].Index
		}

		return nil, err
	}

	return &DedupResult{
		Header:  header,
		Rows:    kept,
		Dropped: len(data) - len(kept),
	}, nil
}
