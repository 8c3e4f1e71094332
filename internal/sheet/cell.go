// Package sheet reads and writes the employee workbooks.
//
// Cells are classified into a small set of kinds so that a row read from one
// workbook can be written to another without losing its type: strings stay
// strings, numbers stay numbers, dates keep a date format, booleans stay
// booleans and formulas are written back as formulas.
package sheet

import (
	"strconv"
	"time"
)

// Kind is the type of value held by a Cell.
type Kind int

// Cell kinds.
const (
	KindEmpty Kind = iota
	KindString
	KindNumber
	KindDate
	KindBool
	KindFormula
)

var kindNames = map[Kind]string{
	KindEmpty:   "empty",
	KindString:  "string",
	KindNumber:  "number",
	KindDate:    "date",
	KindBool:    "bool",
	KindFormula: "formula",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return "unknown"
}

type (
	// Cell is a single typed spreadsheet value.
	Cell struct {
		Kind    Kind
		Text    string    // KindString value, or the cached result of a KindFormula
		Number  float64   // KindNumber value
		Time    time.Time // KindDate value
		Bool    bool      // KindBool value
		Formula string    // KindFormula expression without the leading "="
	}

	// Row is an ordered list of cells. Index is the zero-based row number in
	// the workbook the row was read from.
	Row struct {
		Index int
		Cells []Cell
	}

	// Sheet is the first worksheet of a workbook.
	Sheet struct {
		Name string
		Rows []Row
	}
)

// StringCell returns a KindString cell.
func StringCell(s string) Cell { return Cell{Kind: KindString, Text: s} }

// NumberCell returns a KindNumber cell.
func NumberCell(n float64) Cell { return Cell{Kind: KindNumber, Number: n} }

// DateCell returns a KindDate cell.
func DateCell(t time.Time) Cell { return Cell{Kind: KindDate, Time: t} }

// BoolCell returns a KindBool cell.
func BoolCell(b bool) Cell { return Cell{Kind: KindBool, Bool: b} }

// FormulaCell returns a KindFormula cell with its cached result.
func FormulaCell(formula, cached string) Cell {
	return Cell{Kind: KindFormula, Formula: formula, Text: cached}
}

// IsEmpty reports whether the cell holds no value.
func (c Cell) IsEmpty() bool {
	return c.Kind == KindEmpty
}

// String coerces the cell to text: strings pass through, numbers are
// truncated to an integer, every other kind yields "".
func (c Cell) String() string {
	switch c.Kind {
	case KindString:
		return c.Text
	case KindNumber:
		return strconv.FormatInt(int64(c.Number), 10)
	default:
		return ""
	}
}

// Cell returns the cell at column i, or an empty cell when the row is shorter.
func (r Row) Cell(i int) Cell {
	if i < 0 || i >= len(r.Cells) {
		return Cell{}
	}

	return r.Cells[i]
}

// NewRow builds a row from cells.
func NewRow(index int, cells ...Cell) Row {
	return Row{Index: index, Cells: cells}
}
