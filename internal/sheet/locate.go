package sheet

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// YearScanRows is how many leading rows are searched for the reporting year.
const YearScanRows = 8

var yearPattern = regexp.MustCompile(`202[0-9]`)

// InferYear returns the first 202x year mentioned in the first YearScanRows
// rows, scanning row by row and cell by cell. Without a match it falls back
// to now's year.
func InferYear(rows []Row, now time.Time) int {
	for i, row := range rows {
		if i >= YearScanRows {
			break
		}
		for _, cell := range row {
			if m := yearPattern.FindString(cell.Text); m != "" {
				year, err := strconv.Atoi(m)
				if err == nil {
					return year
				}
			}
		}
	}
	return now.Year()
}

// Column is a logical column of the settlement export.
type Column int

const (
	ColOperationID Column = iota
	ColPurchaseDate
	ColGross
	ColBreakdown
	ColCosts
	ColNet
	ColProduct
	numColumns
)

var columnNames = [numColumns]string{
	ColOperationID:  "operation_id",
	ColPurchaseDate: "purchase_date",
	ColGross:        "gross",
	ColBreakdown:    "breakdown",
	ColCosts:        "costs",
	ColNet:          "net",
	ColProduct:      "product",
}

func (c Column) String() string {
	if c < 0 || c >= numColumns {
		return "unknown"
	}
	return columnNames[c]
}

// Columns lists every logical column in declaration order.
func Columns() []Column {
	out := make([]Column, numColumns)
	for i := range out {
		out[i] = Column(i)
	}
	return out
}

// ParseColumn maps a name such as "operation_id" back to its Column.
func ParseColumn(name string) (Column, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range columnNames {
		if n == name {
			return Column(i), true
		}
	}
	return 0, false
}

// ColumnMap maps logical columns to physical indices. Absent columns hold -1.
type ColumnMap struct {
	idx [numColumns]int
}

// NewColumnMap returns a map with every column absent.
func NewColumnMap() ColumnMap {
	var m ColumnMap
	for i := range m.idx {
		m.idx[i] = -1
	}
	return m
}

// Index returns the physical index of col, or -1.
func (m ColumnMap) Index(col Column) int {
	if col < 0 || col >= numColumns {
		return -1
	}
	return m.idx[col]
}

// Has reports whether col was found in the header.
func (m ColumnMap) Has(col Column) bool {
	return m.Index(col) >= 0
}

// Set records the physical index of col.
func (m *ColumnMap) Set(col Column, index int) {
	if col >= 0 && col < numColumns {
		m.idx[col] = index
	}
}

// Indices returns the found columns keyed by name, for logging and output.
func (m ColumnMap) Indices() map[string]int {
	out := make(map[string]int)
	for _, col := range Columns() {
		if m.Has(col) {
			out[col.String()] = m.Index(col)
		}
	}
	return out
}

// HeaderLabels lists the accepted header texts for each column.
type HeaderLabels map[Column][]string

// DefaultHeaderLabels returns the labels used by the marketplace export.
func DefaultHeaderLabels() HeaderLabels {
	return HeaderLabels{
		ColOperationID:  {"Número de operación"},
		ColPurchaseDate: {"Fecha de la compra"},
		ColGross:        {"Cobro"},
		ColBreakdown:    {"Resumen"},
		ColCosts:        {"Cargos e impuestos"},
		ColNet:          {"Total a recibir"},
		ColProduct:      {"Descripción del ítem"},
	}
}

// Merge returns a copy of l with the extra labels appended per column.
func (l HeaderLabels) Merge(extra HeaderLabels) HeaderLabels {
	out := make(HeaderLabels, len(l))
	for col, labels := range l {
		out[col] = append([]string(nil), labels...)
	}
	for col, labels := range extra {
		out[col] = append(out[col], labels...)
	}
	return out
}

func (l HeaderLabels) lookup() map[string]Column {
	out := make(map[string]Column)
	for col, labels := range l {
		for _, label := range labels {
			out[normalizeLabel(label)] = col
		}
	}
	return out
}

func normalizeLabel(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// LocateHeader finds the header row using the default labels.
func LocateHeader(rows []Row) (ColumnMap, int, bool) {
	return LocateHeaderWith(rows, DefaultHeaderLabels())
}

// LocateHeaderWith scans rows from the top, recording the index of every cell
// whose text equals a known label. The first row after which the operation id
// column is known is the header; rows after it are data.
func LocateHeaderWith(rows []Row, labels HeaderLabels) (ColumnMap, int, bool) {
	known := labels.lookup()
	cols := NewColumnMap()

	for i, row := range rows {
		for c, cell := range row {
			if cell.Kind == KindEmpty {
				continue
			}
			if col, ok := known[normalizeLabel(cell.Text)]; ok {
				cols.Set(col, c)
			}
		}
		if cols.Has(ColOperationID) {
			return cols, i, true
		}
	}
	return NewColumnMap(), -1, false
}
