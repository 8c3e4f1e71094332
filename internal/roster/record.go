// Package roster models employee records read from a workbook: the positional
// column mapping, field coercion and the deduplication pass.
package roster

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/finops-tools/staffload/internal/sheet"
)

// MaxJobPositionLength is the length limit of employee_table.job_position, in characters.
const MaxJobPositionLength = 255

// Field names, matching the employee_table columns.
const (
	FieldSerialNumber = "serial_number"
	FieldFirstName    = "first_name"
	FieldLastName     = "last_name"
	FieldSalary       = "salary"
	FieldJobPosition  = "job_position"
	FieldPhoneNumber  = "phone_number"
)

var (
	// ErrNotNumeric is returned when a numeric-only field holds a non-numeric value.
	ErrNotNumeric = errors.New("value is not numeric")

	// ErrOutOfRange is returned when a numeric value does not fit the field.
	ErrOutOfRange = errors.New("value out of range")
)

type (
	// Record is one employee as persisted to employee_table.
	Record struct {
		SerialNumber int64
		FirstName    string
		LastName     string
		Salary       int64
		JobPosition  string
		PhoneNumber  int64
	}

	// FieldError reports a cell that could not be coerced to its field type.
	FieldError struct {
		Row    int    // zero-based source row index
		Column int    // zero-based column index
		Field  string // field name
		Kind   sheet.Kind
		Err    error
	}
)

func (e *FieldError) Error() string {
	return fmt.Sprintf("row %d: %s (column %d, %s cell): %v", e.Row, e.Field, e.Column, e.Kind, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// ParseRecord coerces the mapped cells of row into a Record. The first field
// that cannot be coerced is reported as a *FieldError.
func ParseRecord(row sheet.Row, m *Mapping) (*Record, error) {
	var (
		rec Record
		err error
	)

	if rec.SerialNumber, err = intField(row, m.SerialNumber, FieldSerialNumber, false); err != nil {
		return nil, err
	}

	rec.FirstName = row.Cell(m.FirstName).String()
	rec.LastName = row.Cell(m.LastName).String()

	if rec.Salary, err = intField(row, m.Salary, FieldSalary, false); err != nil {
		return nil, err
	}

	rec.JobPosition = row.Cell(m.JobPosition).String()

	if rec.PhoneNumber, err = intField(row, m.PhoneNumber, FieldPhoneNumber, true); err != nil {
		return nil, err
	}

	return &rec, nil
}

// TruncateJobPosition shortens s to MaxJobPositionLength characters and
// reports whether it did.
func TruncateJobPosition(s string) (string, bool) {
	if utf8.RuneCountInString(s) <= MaxJobPositionLength {
		return s, false
	}

	return string([]rune(s)[:MaxJobPositionLength]), true
}

func intField(row sheet.Row, column int, field string, phone bool) (int64, error) {
	cell := row.Cell(column)

	n, err := cellInt(cell, phone)
	if err != nil {
		return 0, &FieldError{Row: row.Index, Column: column, Field: field, Kind: cell.Kind, Err: err}
	}

	return n, nil
}

// cellInt coerces a cell to an integer. Numbers are truncated toward zero.
// Text is accepted when it is an integer; phone numbers may also contain
// the usual separators.
func cellInt(cell sheet.Cell, phone bool) (int64, error) {
	switch cell.Kind {
	case sheet.KindNumber:
		return floatToInt(cell.Number)
	case sheet.KindString, sheet.KindFormula:
		text := strings.TrimSpace(cell.Text)
		if phone {
			text = stripPhoneSeparators(text)
		}

		if text == "" {
			return 0, ErrNotNumeric
		}

		n, err := strconv.ParseInt(text, 10, 64)
		if err == nil {
			return n, nil
		}

		if errors.Is(err, strconv.ErrRange) {
			return 0, ErrOutOfRange
		}

		if f, ferr := strconv.ParseFloat(text, 64); ferr == nil && !phone {
			return floatToInt(f)
		}

		return 0, ErrNotNumeric
	default:
		return 0, ErrNotNumeric
	}
}

func floatToInt(f float64) (int64, error) {
	const limit = 1 << 63

	if f != f || f >= limit || f < -limit { // NaN or beyond int64
		return 0, ErrOutOfRange
	}

	return int64(f), nil
}

func stripPhoneSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.', '+':
			return -1
		}

		return r
	}, s)
}
