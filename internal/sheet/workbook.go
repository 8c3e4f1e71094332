package sheet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// DefaultOutputSheet is the worksheet name used when writing deduplicated rows.
const DefaultOutputSheet = "UniqueData"

var (
	// ErrSourceRead is returned when the input workbook is missing or unreadable.
	ErrSourceRead = errors.New("source workbook unreadable")

	// ErrNoSheets is returned when a workbook contains no worksheets.
	ErrNoSheets = errors.New("workbook contains no sheets")

	// ErrSinkWrite is returned when the output workbook cannot be written.
	ErrSinkWrite = errors.New("output workbook not written")
)

// Builtin number formats that render a serial number as a date or time.
var builtinDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true,
	20: true, 21: true, 22: true, 45: true, 46: true, 47: true,
}

// Layouts accepted for cells stored with the ISO 8601 date type.
var isoDateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// Read loads the first worksheet of the workbook at path.
func Read(path string) (*Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceRead, path, err)
	}

	defer func() {
		_ = f.Close() // Ignore close error
	}()

	names := f.GetSheetList()
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSheets, path)
	}

	name := names[0]

	values, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read sheet %s: %w", ErrSourceRead, name, err)
	}

	out := &Sheet{Name: name, Rows: make([]Row, 0, len(values))}

	for r, rowValues := range values {
		row := Row{Index: r, Cells: make([]Cell, len(rowValues))}

		for c := range rowValues {
			cell, err := readCell(f, name, c+1, r+1)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %d: %w", ErrSourceRead, r, c, err)
			}

			row.Cells[c] = cell
		}

		out.Rows = append(out.Rows, row)
	}

	return out, nil
}

// Write stores rows in a new single-sheet workbook at path. Rows are written
// contiguously from the first row; cells keep their kind.
func Write(path string, s *Sheet) error {
	f := excelize.NewFile()

	defer func() {
		_ = f.Close()
	}()

	name := s.Name
	if name == "" {
		name = DefaultOutputSheet
	}

	if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
		return fmt.Errorf("%w: %w", ErrSinkWrite, err)
	}

	for r, row := range s.Rows {
		for c, cell := range row.Cells {
			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrSinkWrite, err)
			}

			if err := writeCell(f, name, ref, cell); err != nil {
				return fmt.Errorf("%w: cell %s: %w", ErrSinkWrite, ref, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSinkWrite, path, err)
	}

	return nil
}

func readCell(f *excelize.File, sheet string, col, row int) (Cell, error) {
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return Cell{}, err
	}

	formula, err := f.GetCellFormula(sheet, ref)
	if err != nil {
		return Cell{}, err
	}

	if formula != "" {
		cached, err := f.GetCellValue(sheet, ref)
		if err != nil {
			return Cell{}, err
		}

		return FormulaCell(formula, cached), nil
	}

	cellType, err := f.GetCellType(sheet, ref)
	if err != nil {
		return Cell{}, err
	}

	raw, err := f.GetCellValue(sheet, ref, excelize.Options{RawCellValue: true})
	if err != nil {
		return Cell{}, err
	}

	switch cellType {
	case excelize.CellTypeBool:
		return BoolCell(raw == "1" || strings.EqualFold(raw, "true")), nil
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		return StringCell(raw), nil
	case excelize.CellTypeDate:
		for _, layout := range isoDateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return DateCell(t), nil
			}
		}

		return StringCell(raw), nil
	case excelize.CellTypeError:
		return Cell{}, nil
	}

	// Numeric cells usually carry no explicit type attribute.
	if raw == "" {
		return Cell{}, nil
	}

	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return StringCell(raw), nil
	}

	if isDateStyled(f, sheet, ref) {
		if t, err := excelize.ExcelDateToTime(n, false); err == nil {
			return DateCell(t), nil
		}
	}

	return NumberCell(n), nil
}

func writeCell(f *excelize.File, sheet, ref string, cell Cell) error {
	switch cell.Kind {
	case KindString:
		return f.SetCellStr(sheet, ref, cell.Text)
	case KindNumber:
		return f.SetCellFloat(sheet, ref, cell.Number, -1, 64)
	case KindDate:
		return f.SetCellValue(sheet, ref, cell.Time)
	case KindBool:
		return f.SetCellBool(sheet, ref, cell.Bool)
	case KindFormula:
		return f.SetCellFormula(sheet, ref, cell.Formula)
	default:
		return nil
	}
}

func isDateStyled(f *excelize.File, sheet, ref string) bool {
	styleID, err := f.GetCellStyle(sheet, ref)
	if err != nil || styleID == 0 {
		return false
	}

	style, err := f.GetStyle(styleID)
	if err != nil || style == nil {
		return false
	}

	if style.CustomNumFmt != nil {
		return isDateFormatCode(*style.CustomNumFmt)
	}

	return builtinDateFormats[style.NumFmt]
}

// isDateFormatCode reports whether a custom number format renders a date.
// Quoted literals, escaped characters and bracketed sections are ignored.
func isDateFormatCode(code string) bool {
	var (
		inQuote   bool
		inBracket bool
		escaped   bool
	)

	for _, r := range strings.ToLower(code) {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		case r == 'y', r == 'd', r == 'h', r == 's':
			return true
		}
	}

	return false
}
