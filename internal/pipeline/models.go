package pipeline

import (
	"github.com/dvloznov/settlement-tracker/internal/domain"
	"github.com/dvloznov/settlement-tracker/internal/sheet"
)

// RawSale is one data row as read from the sheet, before any parsing.
// Cells for columns missing from the header are empty.
type RawSale struct {
	RowIndex    int
	Year        int
	OperationID sheet.Cell
	Date        sheet.Cell
	Gross       sheet.Cell
	Net         sheet.Cell
	Costs       sheet.Cell
	Breakdown   sheet.Cell
	Product     sheet.Cell
}

// NewRawSale picks the cells of row according to cols.
func NewRawSale(row sheet.Row, cols sheet.ColumnMap, year, rowIndex int) RawSale {
	cell := func(c sheet.Column) sheet.Cell {
		if !cols.Has(c) {
			return sheet.Cell{}
		}
		return row.At(cols.Index(c))
	}
	return RawSale{
		RowIndex:    rowIndex,
		Year:        year,
		OperationID: cell(sheet.ColOperationID),
		Date:        cell(sheet.ColPurchaseDate),
		Gross:       cell(sheet.ColGross),
		Net:         cell(sheet.ColNet),
		Costs:       cell(sheet.ColCosts),
		Breakdown:   cell(sheet.ColBreakdown),
		Product:     cell(sheet.ColProduct),
	}
}

// Stats counts what happened to the rows of one file.
type Stats struct {
	DataRows        int `json:"data_rows"`
	SkippedRows     int `json:"skipped_rows"`
	DegradedDates   int `json:"degraded_dates"`
	DegradedAmounts int `json:"degraded_amounts"`

	// DuplicateOperations counts records whose operation id was already seen.
	DuplicateOperations int `json:"duplicate_operations"`
}

// Result is the outcome of processing one settlement file.
type Result struct {
	ImportID    string              `json:"import_id"`
	Checksum    string              `json:"checksum_sha256"`
	Format      sheet.Format        `json:"format"`
	Year        int                 `json:"year"`
	HeaderRow   int                 `json:"header_row"`
	HeaderFound bool                `json:"header_found"`
	Columns     map[string]int      `json:"columns"`
	Records     []domain.SaleRecord `json:"records"`
	Stats       Stats               `json:"stats"`
}
