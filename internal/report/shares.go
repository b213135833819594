package report

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fd-manager/fdm/internal/model"
)

var hundred = decimal.NewFromInt(100)

// Slice is one segment of a share breakdown.
type Slice struct {
	Label   string          `json:"label"`
	Value   decimal.Decimal `json:"value"`
	Percent decimal.Decimal `json:"percent"` // of the total, two decimals
}

// Shares sums value per distinct dim value, largest first, with each
// slice's percentage of the total.
func Shares(t model.Table, dim, value string) ([]Slice, error) {
	if !t.HasColumn(dim) {
		return nil, fmt.Errorf("%w: unknown dimension %q", ErrInvalidSpec, dim)
	}
	if !slices.Contains(model.AmountColumns, value) {
		return nil, fmt.Errorf("%w: %q is not a value column", ErrInvalidSpec, value)
	}
	if t.Empty() {
		return nil, ErrNoRecords
	}

	sums := map[string]decimal.Decimal{}
	total := decimal.Zero
	for _, r := range t.Records {
		label, _ := r.Field(dim)
		amt, _ := r.Amount(value)
		sums[label] = sums[label].Add(amt)
		total = total.Add(amt)
	}

	out := make([]Slice, 0, len(sums))
	for label, v := range sums {
		s := Slice{Label: label, Value: v}
		if !total.IsZero() {
			s.Percent = v.Mul(hundred).DivRound(total, 2)
		}
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b Slice) int {
		if c := b.Value.Cmp(a.Value); c != 0 {
			return c
		}
		return strings.Compare(a.Label, b.Label)
	})
	return out, nil
}
