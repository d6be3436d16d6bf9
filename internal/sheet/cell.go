// Package sheet turns a settlement workbook into materialized rows and
// finds the reporting year and header layout inside them.
package sheet

import (
	"strconv"
	"strings"
	"time"
)

// Kind tells how a cell was stored in the workbook.
type Kind int

const (
	KindEmpty Kind = iota
	KindText
	KindNumber
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	default:
		return "empty"
	}
}

// Cell is one decoded cell. Text is always the displayed value; Number and
// Time are only meaningful for KindNumber and KindDate.
type Cell struct {
	Text   string
	Raw    string
	Kind   Kind
	Number float64
	Time   time.Time
}

// Row is a decoded sheet row. Trailing empty cells may be missing.
type Row []Cell

// At returns the cell at index i, or an empty cell when i is out of range.
func (r Row) At(i int) Cell {
	if i < 0 || i >= len(r) {
		return Cell{}
	}
	return r[i]
}

// TextCell builds a KindText cell, or KindEmpty for blank text.
func TextCell(s string) Cell {
	if strings.TrimSpace(s) == "" {
		return Cell{Text: s, Raw: s, Kind: KindEmpty}
	}
	return Cell{Text: s, Raw: s, Kind: KindText}
}

// NumberCell builds a KindNumber cell.
func NumberCell(v float64) Cell {
	s := FormatNumber(v)
	return Cell{Text: s, Raw: s, Kind: KindNumber, Number: v}
}

// DateCell builds a KindDate cell.
func DateCell(t time.Time) Cell {
	s := t.Format(time.RFC3339)
	return Cell{Text: s, Raw: s, Kind: KindDate, Time: t}
}

// IsEmpty reports whether the cell carries no usable value.
func (c Cell) IsEmpty() bool {
	return c.Kind == KindEmpty || (c.Kind == KindText && strings.TrimSpace(c.Text) == "")
}

// String renders the cell as plain text. Numbers never use exponent form so
// long operation ids survive intact.
func (c Cell) String() string {
	if c.Kind == KindNumber {
		return FormatNumber(c.Number)
	}
	return c.Text
}

// FormatNumber renders v with the minimal digits and no exponent.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
