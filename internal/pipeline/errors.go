package pipeline

import (
	"errors"

	"github.com/dvloznov/settlement-tracker/internal/sheet"
)

var (
	// ErrInputTooLarge is returned before decoding when the input exceeds
	// the configured size cap.
	ErrInputTooLarge = errors.New("input exceeds maximum size")

	// ErrUnsupportedFormat is returned when the input is not an .xls or .xlsx workbook.
	ErrUnsupportedFormat = sheet.ErrUnsupportedFormat

	// ErrEmptyWorkbook is returned when the workbook has no sheet.
	ErrEmptyWorkbook = sheet.ErrEmptyWorkbook
)
