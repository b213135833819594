package model

// Table is the canonical working table.
type Table struct {
	Records []Record
	Extra   []string // preserved extra column names, in input order
}

// Len returns the number of records.
func (t Table) Len() int { return len(t.Records) }

// Empty reports whether the table has no records.
func (t Table) Empty() bool { return len(t.Records) == 0 }

// Headers returns the canonical columns followed by any extra columns.
func (t Table) Headers() []string {
	h := make([]string, 0, len(Columns)+len(t.Extra))
	h = append(h, Columns...)
	return append(h, t.Extra...)
}

// HasColumn reports whether col is a canonical or preserved extra column.
func (t Table) HasColumn(col string) bool {
	for _, c := range Columns {
		if c == col {
			return true
		}
	}
	for _, c := range t.Extra {
		if c == col {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the table.
func (t Table) Clone() Table {
	c := Table{
		Records: make([]Record, len(t.Records)),
		Extra:   append([]string(nil), t.Extra...),
	}
	for i, r := range t.Records {
		c.Records[i] = r.Clone()
	}
	return c
}

// WithRecords returns a table with the same column layout holding recs.
func (t Table) WithRecords(recs []Record) Table {
	return Table{Records: recs, Extra: t.Extra}
}

// RawTable is a spreadsheet as read from disk: one header row plus string cells.
type RawTable struct {
	Header []string
	Rows   [][]string
	Lines  []int // 1-based source row of each entry in Rows; may be nil
}

// Line returns the source row number of Rows[row]. Without recorded lines
// the header is taken to be row 1 with no blank rows in between.
func (r RawTable) Line(row int) int {
	if row >= 0 && row < len(r.Lines) {
		return r.Lines[row]
	}
	return row + 2
}

// Cell returns the value at row, col or "" when the row is short.
func (r RawTable) Cell(row, col int) string {
	if row < 0 || row >= len(r.Rows) || col < 0 || col >= len(r.Rows[row]) {
		return ""
	}
	return r.Rows[row][col]
}
