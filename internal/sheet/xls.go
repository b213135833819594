package sheet

import (
	"bytes"
	"fmt"
	"io"

	"github.com/extrame/xls"

	"github.com/fd-manager/fdm/internal/model"
)

const (
	xlsCharset = "utf-8"

	// xlsMaxCols is the column limit of a BIFF8 sheet.
	xlsMaxCols = 256

	// xlsDateFormat is an unused user format slot. Cells styled with a
	// built-in date format are moved onto it so they render as RFC 3339
	// timestamps instead of a year and month.
	xlsDateFormat = 0xFFFE
)

// XLSReader reads the first sheet of a legacy BIFF (.xls) workbook.
type XLSReader struct{}

// Format returns the reader name.
func (x *XLSReader) Format() string { return "xls" }

// Read parses an xls workbook. The whole file is buffered because the
// BIFF reader needs to seek.
func (x *XLSReader) Read(r io.Reader) (model.RawTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return model.RawTable{}, fmt.Errorf("reading xls: %w", err)
	}

	wb, err := xls.OpenReader(bytes.NewReader(data), xlsCharset)
	if err != nil {
		return model.RawTable{}, fmt.Errorf("opening workbook: %w", err)
	}
	if wb == nil || wb.NumSheets() == 0 {
		return model.RawTable{}, fmt.Errorf("workbook has no sheets")
	}
	useFullDates(wb)
	ws := wb.GetSheet(0)

	var rows [][]string
	var lines []int
	for i := 0; i <= int(ws.MaxRow); i++ {
		row, ok := rowAt(ws, i)
		if !ok {
			continue
		}
		rows = append(rows, rowCells(row))
		lines = append(lines, i+1)
	}
	return fromRows(rows, lines), nil
}

// rowAt returns row i of ws. The library dereferences rows that hold no
// cells, so a gap in the sheet surfaces as a panic.
func rowAt(ws *xls.WorkSheet, i int) (row *xls.Row, ok bool) {
	defer func() {
		if recover() != nil {
			row, ok = nil, false
		}
	}()
	return ws.Row(i), true
}

// rowCells reads every column of row. Row.LastCol is only set when the file
// carries ROW records, so it cannot bound the scan.
func rowCells(row *xls.Row) []string {
	cells := make([]string, xlsMaxCols)
	last := 0
	for j := range cells {
		if cells[j] = row.Col(j); cells[j] != "" {
			last = j + 1
		}
	}
	return cells[:last]
}

// useFullDates points every cell style that uses a built-in date format at
// xlsDateFormat. Number-record dates still come back as serials.
func useFullDates(wb *xls.WorkBook) {
	moved := false
	for _, xf := range wb.Xfs {
		switch f := xf.(type) {
		case *xls.Xf8:
			if builtinDateFormat(f.Format) {
				f.Format, moved = xlsDateFormat, true
			}
		case *xls.Xf5:
			if builtinDateFormat(f.Format) {
				f.Format, moved = xlsDateFormat, true
			}
		}
	}
	if moved {
		wb.Formats[xlsDateFormat] = &xls.Format{}
	}
}

// builtinDateFormat reports whether n is one of the format ids BIFF
// reserves for dates and times.
func builtinDateFormat(n uint16) bool {
	return 14 <= n && n <= 17 || n == 22 || 27 <= n && n <= 36 || 50 <= n && n <= 58
}
