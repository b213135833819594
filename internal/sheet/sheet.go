// Package sheet reads and writes spreadsheet files. Readers return the first
// sheet as a model.RawTable; writers take a header and typed rows.
package sheet

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd-manager/fdm/internal/model"
)

// Reader converts a spreadsheet into a RawTable.
type Reader interface {
	Read(r io.Reader) (model.RawTable, error)
	Format() string
}

// Writer serializes a header and rows into a spreadsheet.
// Row cells may be string, decimal.Decimal, time.Time, float64 or int.
type Writer interface {
	Write(w io.Writer, header []string, rows [][]any) error
	Format() string
	ContentType() string
	Extension() string
}

// Registry holds readers and writers keyed by format name.
type Registry struct {
	readers map[string]Reader
	writers map[string]Writer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		readers: make(map[string]Reader),
		writers: make(map[string]Writer),
	}
}

// RegisterReader adds a reader. Panics on duplicate format.
func (r *Registry) RegisterReader(rd Reader) {
	key := strings.ToLower(rd.Format())
	if _, ok := r.readers[key]; ok {
		panic("duplicate reader format: " + key)
	}
	r.readers[key] = rd
}

// RegisterWriter adds a writer. Panics on duplicate format.
func (r *Registry) RegisterWriter(w Writer) {
	key := strings.ToLower(w.Format())
	if _, ok := r.writers[key]; ok {
		panic("duplicate writer format: " + key)
	}
	r.writers[key] = w
}

// Reader returns the reader for format, or nil.
func (r *Registry) Reader(format string) Reader {
	return r.readers[strings.ToLower(format)]
}

// Writer returns the writer for format, or nil.
func (r *Registry) Writer(format string) Writer {
	return r.writers[strings.ToLower(format)]
}

// ReaderFormats returns the registered reader formats, sorted.
func (r *Registry) ReaderFormats() []string {
	return sortedFormats(r.readers)
}

// WriterFormats returns the registered writer formats, sorted.
func (r *Registry) WriterFormats() []string {
	return sortedFormats(r.writers)
}

func sortedFormats[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DefaultRegistry returns a registry with all built-in codecs.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.RegisterReader(&XLSXReader{})
	r.RegisterReader(&XLSReader{})
	r.RegisterReader(&CSVReader{})
	r.RegisterWriter(&XLSXWriter{})
	r.RegisterWriter(&CSVWriter{})
	return r
}

// FormatOf returns the format name implied by a file name's extension.
func FormatOf(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}

// Read picks a reader by the file name's extension and reads from r.
func (r *Registry) Read(name string, src io.Reader) (model.RawTable, error) {
	format := FormatOf(name)
	rd := r.Reader(format)
	if rd == nil {
		return model.RawTable{}, fmt.Errorf("unsupported file type %q", filepath.Ext(name))
	}
	raw, err := rd.Read(src)
	if err != nil {
		return model.RawTable{}, fmt.Errorf("reading %s: %w", format, err)
	}
	return raw, nil
}

// ReadFile opens path and reads it with the reader for its extension.
func (r *Registry) ReadFile(path string) (model.RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.RawTable{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return r.Read(path, f)
}

// fromRows turns the first non-blank row into the header and keeps the
// remaining non-blank rows.
func fromRows(rows [][]string, lines []int) model.RawTable {
	var raw model.RawTable
	for i, row := range rows {
		if blank(row) {
			continue
		}
		if raw.Header == nil {
			raw.Header = row
			continue
		}
		raw.Rows = append(raw.Rows, row)
		line := i + 1
		if i < len(lines) {
			line = lines[i]
		}
		raw.Lines = append(raw.Lines, line)
	}
	return raw
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// formatCell renders a typed cell as text. Amounts keep every digit so a
// written file loads back unchanged.
func formatCell(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case decimal.Decimal:
		return c.String()
	case time.Time:
		if c.IsZero() {
			return ""
		}
		return c.Format(model.DateFormat)
	default:
		return fmt.Sprint(c)
	}
}
