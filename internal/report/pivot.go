package report

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fd-manager/fdm/internal/model"
)

// Agg is a pivot aggregation function.
type Agg string

const (
	AggSum   Agg = "sum"
	AggMean  Agg = "mean"
	AggCount Agg = "count"
)

// ParseAgg parses an aggregation name case-insensitively. Blank means sum.
func ParseAgg(s string) (Agg, error) {
	switch a := Agg(strings.ToLower(strings.TrimSpace(s))); a {
	case "":
		return AggSum, nil
	case AggSum, AggMean, AggCount:
		return a, nil
	}
	return "", fmt.Errorf("%w: unknown aggregation %q (want sum, mean or count)", ErrInvalidSpec, s)
}

// PivotSpec selects the dimensions, value columns and aggregation of a pivot.
type PivotSpec struct {
	Rows   []string `json:"rows"`
	Cols   []string `json:"cols"`
	Values []string `json:"values"`
	Agg    Agg      `json:"agg"`
}

// PivotRow is one output row. Cells are laid out value-major: for each
// value, one cell per column key followed by that value's grand total.
type PivotRow struct {
	Keys       []string          `json:"keys"`
	Cells      []decimal.Decimal `json:"cells"`
	Subtotal   bool              `json:"subtotal,omitempty"`
	GrandTotal bool              `json:"grand_total,omitempty"`
}

// PivotTable is the result of Pivot.
type PivotTable struct {
	Spec       PivotSpec  `json:"spec"`
	ColKeys    [][]string `json:"col_keys"`
	Rows       []PivotRow `json:"rows"`
	GrandTotal PivotRow   `json:"grand_total"`
}

// Header returns the column labels: row dimensions, then for each value its
// column blocks and its grand total column.
func (p PivotTable) Header() []string {
	h := append([]string(nil), p.Spec.Rows...)
	for _, v := range p.Spec.Values {
		for _, ck := range p.ColKeys {
			h = append(h, v+" | "+strings.Join(ck, " / "))
		}
		if len(p.ColKeys) == 0 {
			h = append(h, v)
		} else {
			h = append(h, v+" | "+GrandTotalLabel)
		}
	}
	return h
}

// Cell returns the cell of row for value index v and column key index c.
// c == len(ColKeys) addresses the value's grand total column.
func (p PivotTable) Cell(row PivotRow, v, c int) decimal.Decimal {
	return row.Cells[v*(len(p.ColKeys)+1)+c]
}

type acc struct {
	sum decimal.Decimal
	n   int64
}

func (a *acc) add(d decimal.Decimal) {
	a.sum = a.sum.Add(d)
	a.n++
}

func (a acc) result(agg Agg) decimal.Decimal {
	switch agg {
	case AggCount:
		return decimal.NewFromInt(a.n)
	case AggMean:
		if a.n == 0 {
			return decimal.Zero
		}
		return a.sum.Div(decimal.NewFromInt(a.n))
	}
	return a.sum
}

// Pivot aggregates value columns over row and column dimensions with grand
// total margins. When the rows are exactly Bank and Customer and the
// aggregation is sum, a "<Bank> Total" row follows each bank's rows.
func Pivot(t model.Table, spec PivotSpec) (PivotTable, error) {
	if len(spec.Rows) == 0 || len(spec.Values) == 0 {
		return PivotTable{}, ErrInsufficientSelection
	}
	agg, err := ParseAgg(string(spec.Agg))
	if err != nil {
		return PivotTable{}, err
	}
	spec.Agg = agg
	for _, d := range append(slices.Clone(spec.Rows), spec.Cols...) {
		if !t.HasColumn(d) {
			return PivotTable{}, fmt.Errorf("%w: unknown dimension %q", ErrInvalidSpec, d)
		}
	}
	for _, v := range spec.Values {
		if !slices.Contains(model.AmountColumns, v) {
			return PivotTable{}, fmt.Errorf("%w: %q is not a value column (want one of %s)",
				ErrInvalidSpec, v, strings.Join(model.AmountColumns, ", "))
		}
	}
	if t.Empty() {
		return PivotTable{}, ErrNoRecords
	}

	nv := len(spec.Values)
	rowKeys := map[string][]string{}
	colKeys := map[string][]string{}
	cells := map[[2]string][]acc{} // (row, col) -> per value
	rowMargin := map[string][]acc{}
	colMargin := map[string][]acc{}
	total := make([]acc, nv)

	get := func(m map[string][]acc, k string) []acc {
		a, ok := m[k]
		if !ok {
			a = make([]acc, nv)
			m[k] = a
		}
		return a
	}

	for _, r := range t.Records {
		rk := keyOf(r, spec.Rows)
		ck := keyOf(r, spec.Cols)
		rid, cid := joinKey(rk), joinKey(ck)
		rowKeys[rid] = rk
		colKeys[cid] = ck
		c, ok := cells[[2]string{rid, cid}]
		if !ok {
			c = make([]acc, nv)
			cells[[2]string{rid, cid}] = c
		}
		rm, cm := get(rowMargin, rid), get(colMargin, cid)
		for i, v := range spec.Values {
			amt, _ := r.Amount(v)
			c[i].add(amt)
			rm[i].add(amt)
			cm[i].add(amt)
			total[i].add(amt)
		}
	}

	subtotals := wantsSubtotals(spec)
	rows := sortKeys(rowKeys)
	if subtotals {
		bi, ci := slices.Index(spec.Rows, model.ColBank), slices.Index(spec.Rows, model.ColCustomer)
		slices.SortStableFunc(rows, func(a, b []string) int {
			if c := strings.Compare(a[bi], b[bi]); c != 0 {
				return c
			}
			return strings.Compare(a[ci], b[ci])
		})
	}

	pt := PivotTable{Spec: spec}
	var cols [][]string
	if len(spec.Cols) > 0 {
		cols = sortKeys(colKeys)
		pt.ColKeys = cols
	}
	width := nv * (len(cols) + 1)

	for _, rk := range rows {
		rid := joinKey(rk)
		row := PivotRow{Keys: rk, Cells: make([]decimal.Decimal, 0, width)}
		for i := range spec.Values {
			for _, ck := range cols {
				var v decimal.Decimal
				if c, ok := cells[[2]string{rid, joinKey(ck)}]; ok {
					v = c[i].result(agg)
				}
				row.Cells = append(row.Cells, v)
			}
			row.Cells = append(row.Cells, rowMargin[rid][i].result(agg))
		}
		pt.Rows = append(pt.Rows, row)
	}

	gt := PivotRow{Keys: make([]string, len(spec.Rows)), Cells: make([]decimal.Decimal, 0, width), GrandTotal: true}
	gt.Keys[0] = GrandTotalLabel
	for i := range spec.Values {
		for _, ck := range cols {
			gt.Cells = append(gt.Cells, colMargin[joinKey(ck)][i].result(agg))
		}
		gt.Cells = append(gt.Cells, total[i].result(agg))
	}
	pt.GrandTotal = gt

	if subtotals {
		pt.Rows = insertBankSubtotals(pt.Rows, slices.Index(spec.Rows, model.ColBank), slices.Index(spec.Rows, model.ColCustomer), width)
	}
	return pt, nil
}

func wantsSubtotals(spec PivotSpec) bool {
	return spec.Agg == AggSum && len(spec.Rows) == 2 &&
		slices.Contains(spec.Rows, model.ColBank) && slices.Contains(spec.Rows, model.ColCustomer)
}

func insertBankSubtotals(rows []PivotRow, bankIdx, custIdx, width int) []PivotRow {
	var out []PivotRow
	flush := func(bank string, sums []decimal.Decimal) {
		keys := make([]string, 2)
		keys[bankIdx] = bank
		keys[custIdx] = bank + TotalSuffix
		out = append(out, PivotRow{Keys: keys, Cells: sums, Subtotal: true})
	}
	var bank string
	var sums []decimal.Decimal
	for i, r := range rows {
		if i > 0 && r.Keys[bankIdx] != bank {
			flush(bank, sums)
		}
		if i == 0 || r.Keys[bankIdx] != bank {
			bank = r.Keys[bankIdx]
			sums = make([]decimal.Decimal, width)
		}
		for j, c := range r.Cells {
			sums[j] = sums[j].Add(c)
		}
		out = append(out, r)
	}
	if len(rows) > 0 {
		flush(bank, sums)
	}
	return out
}

func keyOf(r model.Record, dims []string) []string {
	k := make([]string, len(dims))
	for i, d := range dims {
		k[i], _ = r.Field(d)
	}
	return k
}

// joinKey builds a map key from a dimension tuple; the unit separator never
// appears in spreadsheet text.
func joinKey(k []string) string {
	return strings.Join(k, "\x1f")
}

func sortKeys(m map[string][]string) [][]string {
	out := make([][]string, 0, len(m))
	for _, k := range m {
		out = append(out, k)
	}
	slices.SortFunc(out, func(a, b []string) int { return slices.Compare(a, b) })
	return out
}
