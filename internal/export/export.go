// Package export serializes the full working table to a downloadable file.
package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/fd-manager/fdm/internal/model"
	"github.com/fd-manager/fdm/internal/sheet"
)

// DefaultFormat is used when no format is requested.
const DefaultFormat = "xlsx"

// DefaultFileName is the download name of an exported workbook.
const DefaultFileName = "updated_fdr.xlsx"

var writers = sheet.DefaultRegistry()

// WriterFor returns the sheet writer for format; blank means DefaultFormat.
func WriterFor(format string) (sheet.Writer, error) {
	format = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), ".")
	if format == "" {
		format = DefaultFormat
	}
	w := writers.Writer(format)
	if w == nil {
		return nil, fmt.Errorf("unsupported export format %q (want xlsx or csv)", format)
	}
	return w, nil
}

// Export writes every record of t to w: the canonical columns in order,
// then preserved extra columns, with no index column.
func Export(w io.Writer, t model.Table, format string) error {
	sw, err := WriterFor(format)
	if err != nil {
		return err
	}
	if err := sw.Write(w, t.Headers(), Rows(t)); err != nil {
		return fmt.Errorf("exporting %s: %w", sw.Format(), err)
	}
	return nil
}

// ExportBytes renders t in memory.
func ExportBytes(t model.Table, format string) ([]byte, error) {
	var buf bytes.Buffer
	if err := Export(&buf, t, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FileName returns the download name for format, based on DefaultFileName
// or the configured base name.
func FileName(base, format string) (string, error) {
	sw, err := WriterFor(format)
	if err != nil {
		return "", err
	}
	if base == "" {
		base = DefaultFileName
	}
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base + sw.Extension(), nil
}

// Rows converts records to typed cells in Headers order.
func Rows(t model.Table) [][]any {
	rows := make([][]any, len(t.Records))
	for i, r := range t.Records {
		row := []any{
			r.Customer,
			r.Initial,
			r.Bank,
			r.DepositAmount,
			r.MaturityAmount,
			r.DepositDate,
			r.Interest,
			r.FDRNumber,
			r.MaturityDate,
		}
		for _, col := range t.Extra {
			row = append(row, r.Extra[col])
		}
		rows[i] = row
	}
	return rows
}
