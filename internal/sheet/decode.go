package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/gabriel-vasile/mimetype"
	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnsupportedFormat is returned when the input is neither .xls nor .xlsx.
	ErrUnsupportedFormat = errors.New("unsupported workbook format")
	// ErrEmptyWorkbook is returned when the workbook has no sheet to read.
	ErrEmptyWorkbook = errors.New("workbook has no sheets")
)

// Format identifies the container of a workbook.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
)

const (
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeZip  = "application/zip"
	mimeXLS  = "application/vnd.ms-excel"
	mimeOLE  = "application/x-ole-storage"
)

// Detect sniffs the workbook container from its leading bytes.
func Detect(data []byte) (Format, error) {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		switch {
		case m.Is(mimeXLSX), m.Is(mimeZip):
			return FormatXLSX, nil
		case m.Is(mimeXLS), m.Is(mimeOLE):
			return FormatXLS, nil
		}
	}
	return "", fmt.Errorf("Detect: %s: %w", mimetype.Detect(data).String(), ErrUnsupportedFormat)
}

// Decode reads the first sheet of a workbook into memory.
func Decode(data []byte) ([]Row, error) {
	format, err := Detect(data)
	if err != nil {
		return nil, err
	}
	return DecodeFormat(data, format)
}

// DecodeFormat reads the first sheet of a workbook of a known format.
func DecodeFormat(data []byte, format Format) ([]Row, error) {
	switch format {
	case FormatXLSX:
		return decodeXLSX(data)
	case FormatXLS:
		return decodeXLS(data)
	default:
		return nil, fmt.Errorf("DecodeFormat: %q: %w", format, ErrUnsupportedFormat)
	}
}

func decodeXLSX(data []byte) ([]Row, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decodeXLSX: failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("decodeXLSX: %w", ErrEmptyWorkbook)
	}
	name := sheets[0]

	formatted, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("decodeXLSX: failed to read rows of %q: %w", name, err)
	}
	raw, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("decodeXLSX: failed to read raw rows of %q: %w", name, err)
	}

	rows := make([]Row, len(formatted))
	for r, values := range formatted {
		row := make(Row, len(values))
		for c, text := range values {
			rawText := text
			if r < len(raw) && c < len(raw[r]) {
				rawText = raw[r][c]
			}
			row[c] = xlsxCell(f, name, r, c, text, rawText)
		}
		rows[r] = row
	}
	return rows, nil
}

func xlsxCell(f *excelize.File, sheetName string, r, c int, text, raw string) Cell {
	if strings.TrimSpace(text) == "" && strings.TrimSpace(raw) == "" {
		return Cell{Text: text, Raw: raw, Kind: KindEmpty}
	}

	ref, err := excelize.CoordinatesToCellName(c+1, r+1)
	if err != nil {
		return Cell{Text: text, Raw: raw, Kind: KindText}
	}
	typ, err := f.GetCellType(sheetName, ref)
	if err != nil {
		return Cell{Text: text, Raw: raw, Kind: KindText}
	}

	switch typ {
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Cell{Text: text, Raw: raw, Kind: KindText}
		}
		if isDateStyled(f, sheetName, ref) {
			if t, err := excelize.ExcelDateToTime(v, false); err == nil {
				return Cell{Text: text, Raw: raw, Kind: KindDate, Time: t}
			}
		}
		return Cell{Text: text, Raw: raw, Kind: KindNumber, Number: v}
	case excelize.CellTypeDate:
		if t, ok := parseDateText(raw); ok {
			return Cell{Text: text, Raw: raw, Kind: KindDate, Time: t}
		}
	}
	return Cell{Text: text, Raw: raw, Kind: KindText}
}

var quotedOrBracketed = regexp.MustCompile(`"[^"]*"|\[[^\]]*\]`)

// isDateStyled reports whether the cell's number format renders a date.
// Time-only formats are left as numbers.
func isDateStyled(f *excelize.File, sheetName, ref string) bool {
	idx, err := f.GetCellStyle(sheetName, ref)
	if err != nil || idx == 0 {
		return false
	}
	style, err := f.GetStyle(idx)
	if err != nil || style == nil {
		return false
	}
	if style.CustomNumFmt != nil {
		code := strings.ToLower(quotedOrBracketed.ReplaceAllString(*style.CustomNumFmt, ""))
		return strings.ContainsAny(code, "dy")
	}
	switch {
	case style.NumFmt >= 14 && style.NumFmt <= 17, style.NumFmt == 22:
		return true
	case style.NumFmt >= 27 && style.NumFmt <= 36, style.NumFmt >= 50 && style.NumFmt <= 58:
		return true
	}
	return false
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"2006-01-02",
}

func parseDateText(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Text matching plainFloat is assumed to come from a numeric record, which
// the legacy reader renders in Go float syntax: "1.5" reads as 1.5, not the
// es-AR 15. Text amounts in the export carry a "$" and never match.
// groupedNumber ("1.500") stays text for the regional parser.
var (
	plainFloat    = regexp.MustCompile(`^-?\d+(\.\d+)?([eE][-+]?\d+)?$`)
	groupedNumber = regexp.MustCompile(`^-?\d{1,3}(\.\d{3})+$`)
)

func decodeXLS(data []byte) (rows []Row, err error) {
	// extrame/xls panics on some malformed streams.
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("decodeXLS: malformed workbook: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("decodeXLS: failed to open workbook: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, fmt.Errorf("decodeXLS: %w", ErrEmptyWorkbook)
	}
	ws := wb.GetSheet(0)
	if ws == nil {
		return nil, fmt.Errorf("decodeXLS: %w", ErrEmptyWorkbook)
	}

	maxRow := int(ws.MaxRow)
	rows = make([]Row, 0, maxRow+1)
	for i := 0; i <= maxRow; i++ {
		r := ws.Row(i)
		if r == nil {
			rows = append(rows, nil)
			continue
		}
		row := make(Row, r.LastCol())
		for c := 0; c < r.LastCol(); c++ {
			row[c] = xlsCell(r.Col(c))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// xlsCell types a legacy cell from its rendered text, since the reader does
// not expose record types. Numbers are only recognised in Go's float syntax;
// "1.500" stays text because the export uses "." for thousands.
func xlsCell(text string) Cell {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Cell{Text: text, Raw: text, Kind: KindEmpty}
	}
	if plainFloat.MatchString(trimmed) && !groupedNumber.MatchString(trimmed) {
		if v, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return Cell{Text: text, Raw: text, Kind: KindNumber, Number: v}
		}
	}
	if t, ok := parseDateText(trimmed); ok {
		return Cell{Text: text, Raw: text, Kind: KindDate, Time: t}
	}
	return Cell{Text: text, Raw: text, Kind: KindText}
}
