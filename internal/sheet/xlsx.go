package sheet

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/fd-manager/fdm/internal/model"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	xlsxDateFormat  = "yyyy-mm-dd"
	xlsxSheetName   = "Sheet1"
	xlsxColWidth    = 16
)

// XLSXReader reads the first sheet of an Office Open XML workbook.
// Cells are read raw, so dates arrive as Excel serial numbers.
type XLSXReader struct{}

// Format returns the reader name.
func (x *XLSXReader) Format() string { return "xlsx" }

// Read parses an xlsx workbook.
func (x *XLSXReader) Read(r io.Reader) (model.RawTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return model.RawTable{}, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	name := f.GetSheetName(0)
	if name == "" {
		return model.RawTable{}, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return model.RawTable{}, fmt.Errorf("reading sheet %q: %w", name, err)
	}
	return fromRows(rows, nil), nil
}

// XLSXWriter writes a single-sheet workbook with a bold header row.
// Amounts are written as numbers and dates as date-formatted cells.
type XLSXWriter struct{}

// Format returns the writer name.
func (x *XLSXWriter) Format() string { return "xlsx" }

// ContentType returns the MIME type of the output.
func (x *XLSXWriter) ContentType() string { return xlsxContentType }

// Extension returns the file extension of the output.
func (x *XLSXWriter) Extension() string { return ".xlsx" }

// Write serializes header and rows to w.
func (x *XLSXWriter) Write(w io.Writer, header []string, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	hdr := make([]any, len(header))
	for i, h := range header {
		hdr[i] = h
	}
	if err := f.SetSheetRow(xlsxSheetName, "A1", &hdr); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	dateCols := make(map[int]bool)
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = xlsxCell(v)
			if _, ok := cells[j].(time.Time); ok {
				dateCols[j] = true
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(xlsxSheetName, cell, &cells); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if err := x.style(f, len(header), len(rows), dateCols); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func (x *XLSXWriter) style(f *excelize.File, numCols, numRows int, dateCols map[int]bool) error {
	if numCols == 0 {
		return nil
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(numCols, 1)
	if err != nil {
		return fmt.Errorf("header range: %w", err)
	}
	if err := f.SetCellStyle(xlsxSheetName, "A1", last, bold); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	lastCol, err := excelize.ColumnNumberToName(numCols)
	if err != nil {
		return fmt.Errorf("column range: %w", err)
	}
	if err := f.SetColWidth(xlsxSheetName, "A", lastCol, xlsxColWidth); err != nil {
		return fmt.Errorf("setting column width: %w", err)
	}

	if len(dateCols) == 0 || numRows == 0 {
		return nil
	}
	numFmt := xlsxDateFormat
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return fmt.Errorf("creating date style: %w", err)
	}
	for col := range dateCols {
		top, _ := excelize.CoordinatesToCellName(col+1, 2)
		bottom, _ := excelize.CoordinatesToCellName(col+1, numRows+1)
		if err := f.SetCellStyle(xlsxSheetName, top, bottom, dateStyle); err != nil {
			return fmt.Errorf("styling date column: %w", err)
		}
	}
	return nil
}

func xlsxCell(v any) any {
	switch c := v.(type) {
	case decimal.Decimal:
		return c.InexactFloat64()
	case time.Time:
		if c.IsZero() {
			return ""
		}
		return c
	default:
		return v
	}
}
