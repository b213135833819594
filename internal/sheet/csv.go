package sheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/fd-manager/fdm/internal/model"
)

const utf8BOM = "\ufeff"

// CSVReader reads comma-separated files. Ragged rows are allowed.
type CSVReader struct{}

// Format returns the reader name.
func (c *CSVReader) Format() string { return "csv" }

// Read parses a CSV file.
func (c *CSVReader) Read(r io.Reader) (model.RawTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var records [][]string
	var lines []int
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return model.RawTable{}, fmt.Errorf("reading CSV: %w", err)
		}
		line, _ := cr.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], utf8BOM)
	}
	return fromRows(records, lines), nil
}

// CSVWriter writes comma-separated files.
type CSVWriter struct{}

// Format returns the writer name.
func (c *CSVWriter) Format() string { return "csv" }

// ContentType returns the MIME type of the output.
func (c *CSVWriter) ContentType() string { return "text/csv" }

// Extension returns the file extension of the output.
func (c *CSVWriter) Extension() string { return ".csv" }

// Write serializes header and rows to w.
func (c *CSVWriter) Write(w io.Writer, header []string, rows [][]any) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, row := range rows {
		rec := make([]string, len(row))
		for j, v := range row {
			rec[j] = formatCell(v)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
