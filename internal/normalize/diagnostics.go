package normalize

import (
	"fmt"
	"strings"
)

// Diagnostics reports what a normalization pass discarded or derived.
type Diagnostics struct {
	RowsRead         int             `json:"rows_read"`
	RowsKept         int             `json:"rows_kept"`
	Dropped          []DroppedRow    `json:"dropped,omitempty"`
	MissingColumns   []string        `json:"missing_columns,omitempty"`
	Unknown          []UnknownColumn `json:"unknown_columns,omitempty"`
	Duplicates       []string        `json:"duplicate_columns,omitempty"`
	MaturitySupplied bool            `json:"maturity_supplied"`
	MaturityDerived  int             `json:"maturity_derived"`
	MaturityRepaired int             `json:"maturity_repaired"`
}

// DroppedRow is an input row excluded for lacking required values.
type DroppedRow struct {
	Row     int      `json:"row"` // source row number, counting blank rows; the first row is 1
	Missing []string `json:"missing"`
}

func (d DroppedRow) String() string {
	return fmt.Sprintf("row %d: missing %s", d.Row, strings.Join(d.Missing, ", "))
}

// UnknownColumn is an input header that matched no alias.
type UnknownColumn struct {
	Header     string `json:"header"`
	Suggestion string `json:"suggestion,omitempty"` // closest known header
	Column     string `json:"column,omitempty"`     // canonical column of Suggestion
}

func (u UnknownColumn) String() string {
	if u.Suggestion == "" {
		return fmt.Sprintf("%q", u.Header)
	}
	return fmt.Sprintf("%q (did you mean %q -> %s?)", u.Header, u.Suggestion, u.Column)
}

// Summary is a one-line description suitable for logs and CLI output.
func (d Diagnostics) Summary() string {
	s := fmt.Sprintf("kept %d of %d rows", d.RowsKept, d.RowsRead)
	if n := len(d.Dropped); n > 0 {
		s += fmt.Sprintf(", dropped %d", n)
	}
	if d.MaturityDerived > 0 {
		s += fmt.Sprintf(", derived %d maturity dates", d.MaturityDerived)
	}
	if d.MaturityRepaired > 0 {
		s += fmt.Sprintf(", replaced %d unusable maturity dates", d.MaturityRepaired)
	}
	return s
}
