// Package normalize maps an uploaded spreadsheet onto the canonical FD
// record schema.
package normalize

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/schollz/closestmatch"
	"github.com/shopspring/decimal"

	"github.com/fd-manager/fdm/internal/model"
)

// ErrNoHeader is returned for a spreadsheet without a header row.
var ErrNoHeader = errors.New("spreadsheet has no header row")

// Options configures a normalization pass.
type Options struct {
	Aliases      map[string]string // input header -> canonical column
	Mode         Mode
	LooseHeaders bool
	TermMonths   int // used to derive a missing maturity date
	DayFirst     bool
}

// DefaultOptions returns strict mode with the default aliases and a 60-month term.
func DefaultOptions() Options {
	return Options{
		Aliases:    DefaultAliases(),
		Mode:       ModeStrict,
		TermMonths: model.DefaultTermMonths,
		DayFirst:   true,
	}
}

// Validate checks the options before use.
func (o Options) Validate() error {
	switch o.Mode {
	case ModeStrict, ModePreserve:
	default:
		return fmt.Errorf("unknown column mode %q", o.Mode)
	}
	if o.TermMonths <= 0 {
		return fmt.Errorf("term months must be positive, got %d", o.TermMonths)
	}
	return validateAliases(o.Aliases)
}

// Result is the canonical table plus what happened on the way.
type Result struct {
	Table       model.Table
	Diagnostics Diagnostics
}

// Normalize converts raw into the canonical table. Rows missing any required
// value are dropped and reported in the diagnostics, never as an error.
func Normalize(raw model.RawTable, opts Options) (Result, error) {
	if err := opts.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid options: %w", err)
	}
	if len(raw.Header) == 0 {
		return Result{}, ErrNoHeader
	}

	layout := mapColumns(raw.Header, opts)
	diag := Diagnostics{
		RowsRead:         len(raw.Rows),
		MaturitySupplied: layout.has(model.ColMaturityDate),
		Unknown:          layout.unknown,
		Duplicates:       layout.duplicates,
	}
	for _, col := range model.RequiredColumns {
		if !layout.has(col) {
			diag.MissingColumns = append(diag.MissingColumns, col)
		}
	}

	table := model.Table{}
	if opts.Mode == ModePreserve {
		table.Extra = layout.extraNames()
	}

	for i := range raw.Rows {
		rec, missing := layout.record(raw, i, opts.DayFirst)
		if len(missing) > 0 {
			diag.Dropped = append(diag.Dropped, DroppedRow{Row: raw.Line(i), Missing: missing})
			continue
		}

		if diag.MaturitySupplied {
			md, ok := ParseDate(layout.text(raw, i, model.ColMaturityDate), opts.DayFirst)
			if ok && !md.Before(rec.DepositDate) {
				rec.MaturityDate = md
			} else {
				rec.MaturityDate = model.AddMonths(rec.DepositDate, opts.TermMonths)
				diag.MaturityRepaired++
			}
		} else {
			rec.MaturityDate = model.AddMonths(rec.DepositDate, opts.TermMonths)
			diag.MaturityDerived++
		}

		if opts.Mode == ModePreserve && len(layout.extras) > 0 {
			rec.Extra = make(map[string]string, len(layout.extras))
			for _, ex := range layout.extras {
				rec.Extra[ex.name] = strings.TrimSpace(raw.Cell(i, ex.index))
			}
		}
		table.Records = append(table.Records, rec)
	}
	diag.RowsKept = len(table.Records)

	return Result{Table: table, Diagnostics: diag}, nil
}

type extraColumn struct {
	name  string
	index int
}

// columnLayout records where each canonical column lives in the input.
type columnLayout struct {
	index      map[string]int
	extras     []extraColumn
	unknown    []UnknownColumn
	duplicates []string
}

func mapColumns(header []string, opts Options) columnLayout {
	m := newHeaderMatcher(opts.Aliases, opts.LooseHeaders)
	l := columnLayout{index: make(map[string]int)}
	seenExtra := make(map[string]bool)

	var unknown []string
	for i, h := range header {
		if col, ok := m.match(h); ok {
			if _, dup := l.index[col]; dup {
				l.duplicates = append(l.duplicates, h)
				continue
			}
			l.index[col] = i
			continue
		}
		name := strings.TrimSpace(h)
		if name == "" || seenExtra[name] {
			continue
		}
		seenExtra[name] = true
		unknown = append(unknown, h)
		l.extras = append(l.extras, extraColumn{name: name, index: i})
	}
	l.unknown = suggest(unknown, opts.Aliases)
	return l
}

func (l columnLayout) has(col string) bool {
	_, ok := l.index[col]
	return ok
}

func (l columnLayout) extraNames() []string {
	names := make([]string, len(l.extras))
	for i, ex := range l.extras {
		names[i] = ex.name
	}
	return names
}

// text returns the trimmed cell for a canonical column, or "" when the
// column is absent from the input.
func (l columnLayout) text(raw model.RawTable, row int, col string) string {
	idx, ok := l.index[col]
	if !ok {
		return ""
	}
	return strings.TrimSpace(raw.Cell(row, idx))
}

// record coerces one row and lists the required columns it lacks.
func (l columnLayout) record(raw model.RawTable, row int, dayFirst bool) (model.Record, []string) {
	var missing []string
	need := func(col, v string) string {
		if v == "" {
			missing = append(missing, col)
		}
		return v
	}
	amount := func(col string, allowNegative bool) decimal.Decimal {
		d, ok := ParseAmount(l.text(raw, row, col))
		if !ok || (!allowNegative && d.IsNegative()) {
			missing = append(missing, col)
		}
		return d
	}
	date := func(col string) time.Time {
		t, ok := ParseDate(l.text(raw, row, col), dayFirst)
		if !ok {
			missing = append(missing, col)
		}
		return t
	}

	rec := model.Record{
		Customer:       need(model.ColCustomer, l.text(raw, row, model.ColCustomer)),
		Initial:        need(model.ColInitial, strings.ToUpper(l.text(raw, row, model.ColInitial))),
		Bank:           need(model.ColBank, l.text(raw, row, model.ColBank)),
		DepositAmount:  amount(model.ColDepositAmount, false),
		MaturityAmount: amount(model.ColMaturityAmount, false),
		DepositDate:    date(model.ColDepositDate),
		Interest:       amount(model.ColInterest, true),
		FDRNumber:      l.text(raw, row, model.ColFDRNumber),
	}
	return rec, missing
}

// suggest pairs each unknown header with the closest known alias, if any.
func suggest(unknown []string, aliases map[string]string) []UnknownColumn {
	if len(unknown) == 0 {
		return nil
	}
	known := make([]string, 0, len(aliases))
	for h := range aliases {
		known = append(known, h)
	}
	sort.Strings(known)
	cm := closestmatch.New(known, []int{2, 3})

	out := make([]UnknownColumn, len(unknown))
	for i, h := range unknown {
		out[i] = UnknownColumn{Header: h}
		if match := cm.Closest(h); match != "" {
			out[i].Suggestion = match
			out[i].Column = aliases[match]
		}
	}
	return out
}
