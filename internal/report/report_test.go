package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd-manager/fdm/internal/model"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func rec(customer, bank, da, ma, interest string) model.Record {
	return model.Record{
		Customer:       customer,
		Initial:        customer[:1],
		Bank:           bank,
		DepositAmount:  dec(da),
		MaturityAmount: dec(ma),
		Interest:       dec(interest),
		DepositDate:    time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		MaturityDate:   time.Date(2028, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func sample() model.Table {
	return model.Table{Records: []model.Record{
		rec("Ravi", "SBI", "1000", "1300", "6.5"),
		rec("Asha", "SBI", "500", "650", "6.5"),
		rec("Ravi", "SBI", "200", "260", "7"),
		rec("Amit", "BOB", "300", "390", "7.25"),
	}}
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	if !dec(want).Equal(got) {
		assert.Fail(t, "want "+want+", got "+got.String(), msgAndArgs...)
	}
}

func TestSummarizeByBank(t *testing.T) {
	s := SummarizeByBank(sample())

	require.Len(t, s.Rows, 5)
	var labels []string
	for _, r := range s.Rows {
		labels = append(labels, r.Bank+"/"+r.Customer)
	}
	assert.Equal(t, []string{
		"BOB/Amit", "BOB/BOB Total",
		"SBI/Asha", "SBI/Ravi", "SBI/SBI Total",
	}, labels)

	ravi := s.Rows[3]
	assertDec(t, "1200", ravi.DepositAmount)
	assertDec(t, "1560", ravi.MaturityAmount)
	assertDec(t, "13.5", ravi.Interest)
	assert.Equal(t, 2, ravi.Count)

	sbi := s.Rows[4]
	assert.True(t, sbi.Subtotal)
	assertDec(t, "1700", sbi.DepositAmount)
	assert.Equal(t, 3, sbi.Count)

	assertDec(t, "2000", s.GrandTotal.DepositAmount)
	assertDec(t, "2600", s.GrandTotal.MaturityAmount)
	assert.Equal(t, 4, s.GrandTotal.Count)
	assert.Equal(t, []string{"BOB", "SBI"}, s.Banks())
}

func TestSummarizeByBank_GrandTotalMatchesRecords(t *testing.T) {
	tbl := sample()
	s := SummarizeByBank(tbl)
	sum := decimal.Zero
	for _, r := range tbl.Records {
		sum = sum.Add(r.DepositAmount)
	}
	assertDec(t, sum.String(), s.GrandTotal.DepositAmount)

	subtotals := decimal.Zero
	for _, r := range s.Rows {
		if r.Subtotal {
			subtotals = subtotals.Add(r.DepositAmount)
		}
	}
	assertDec(t, sum.String(), subtotals)
}

func TestSummarizeByBank_Empty(t *testing.T) {
	s := SummarizeByBank(model.Table{})
	assert.Empty(t, s.Rows)
	assert.True(t, s.GrandTotal.DepositAmount.IsZero())
}

func TestPivot_BankCustomerSubtotals(t *testing.T) {
	pt, err := Pivot(sample(), PivotSpec{
		Rows:   []string{model.ColBank, model.ColCustomer},
		Values: []string{model.ColDepositAmount},
		Agg:    AggSum,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{model.ColBank, model.ColCustomer, model.ColDepositAmount}, pt.Header())
	var keys [][]string
	for _, r := range pt.Rows {
		keys = append(keys, r.Keys)
	}
	assert.Equal(t, [][]string{
		{"BOB", "Amit"},
		{"BOB", "BOB Total"},
		{"SBI", "Asha"},
		{"SBI", "Ravi"},
		{"SBI", "SBI Total"},
	}, keys)
	assertDec(t, "300", pt.Rows[1].Cells[0])
	assert.True(t, pt.Rows[1].Subtotal)
	assertDec(t, "1700", pt.Rows[4].Cells[0])
	assertDec(t, "2000", pt.GrandTotal.Cells[0])
	assert.Equal(t, GrandTotalLabel, pt.GrandTotal.Keys[0])
}

func TestPivot_SubtotalsFollowBankWhenCustomerFirst(t *testing.T) {
	pt, err := Pivot(sample(), PivotSpec{
		Rows:   []string{model.ColCustomer, model.ColBank},
		Values: []string{model.ColDepositAmount},
	})
	require.NoError(t, err)
	var keys [][]string
	for _, r := range pt.Rows {
		keys = append(keys, r.Keys)
	}
	assert.Equal(t, [][]string{
		{"Amit", "BOB"},
		{"BOB Total", "BOB"},
		{"Asha", "SBI"},
		{"Ravi", "SBI"},
		{"SBI Total", "SBI"},
	}, keys)
}

func TestPivot_ColumnsAndMargins(t *testing.T) {
	tbl := sample()
	tbl.Records[3].Customer = "Ravi"
	pt, err := Pivot(tbl, PivotSpec{
		Rows:   []string{model.ColCustomer},
		Cols:   []string{model.ColBank},
		Values: []string{model.ColDepositAmount, model.ColMaturityAmount},
		Agg:    AggSum,
	})
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"BOB"}, {"SBI"}}, pt.ColKeys)
	assert.Equal(t, []string{
		model.ColCustomer,
		"DepositAmount | BOB", "DepositAmount | SBI", "DepositAmount | Grand Total",
		"MaturityAmount | BOB", "MaturityAmount | SBI", "MaturityAmount | Grand Total",
	}, pt.Header())

	require.Len(t, pt.Rows, 2)
	asha := pt.Rows[0]
	assert.Equal(t, []string{"Asha"}, asha.Keys)
	assertDec(t, "0", pt.Cell(asha, 0, 0), "missing cell is zero")
	assertDec(t, "500", pt.Cell(asha, 0, 1))
	assertDec(t, "500", pt.Cell(asha, 0, 2))

	ravi := pt.Rows[1]
	assertDec(t, "300", pt.Cell(ravi, 0, 0))
	assertDec(t, "1200", pt.Cell(ravi, 0, 1))
	assertDec(t, "1500", pt.Cell(ravi, 0, 2))
	assertDec(t, "1950", pt.Cell(ravi, 1, 2))

	for v := range pt.Spec.Values {
		for c := 0; c < len(pt.ColKeys)+1; c++ {
			sum := decimal.Zero
			for _, r := range pt.Rows {
				sum = sum.Add(pt.Cell(r, v, c))
			}
			assertDec(t, sum.String(), pt.Cell(pt.GrandTotal, v, c), "grand total of value %d col %d", v, c)
		}
	}
	assertDec(t, "2000", pt.Cell(pt.GrandTotal, 0, 2))
}

func TestPivot_MeanAndCount(t *testing.T) {
	spec := PivotSpec{
		Rows:   []string{model.ColBank},
		Values: []string{model.ColDepositAmount},
		Agg:    AggMean,
	}
	pt, err := Pivot(sample(), spec)
	require.NoError(t, err)
	require.Len(t, pt.Rows, 2)
	assertDec(t, "300", pt.Rows[0].Cells[0])
	assertDec(t, "1700", pt.Rows[1].Cells[0].Mul(decimal.NewFromInt(3)).Round(0))
	assertDec(t, "500", pt.GrandTotal.Cells[0], "mean over records, not over rows")
	for _, r := range pt.Rows {
		assert.False(t, r.Subtotal)
	}

	spec.Agg = AggCount
	pt, err = Pivot(sample(), spec)
	require.NoError(t, err)
	assertDec(t, "1", pt.Rows[0].Cells[0])
	assertDec(t, "3", pt.Rows[1].Cells[0])
	assertDec(t, "4", pt.GrandTotal.Cells[0])
}

func TestPivot_NoSubtotalsForMean(t *testing.T) {
	pt, err := Pivot(sample(), PivotSpec{
		Rows:   []string{model.ColBank, model.ColCustomer},
		Values: []string{model.ColInterest},
		Agg:    AggMean,
	})
	require.NoError(t, err)
	assert.Len(t, pt.Rows, 3)
}

func TestPivot_ExtraColumnDimension(t *testing.T) {
	tbl := sample()
	tbl.Extra = []string{"Branch"}
	for i := range tbl.Records {
		tbl.Records[i].Extra = map[string]string{"Branch": "Main"}
	}
	tbl.Records[0].Extra["Branch"] = "East"
	pt, err := Pivot(tbl, PivotSpec{Rows: []string{"Branch"}, Values: []string{model.ColDepositAmount}})
	require.NoError(t, err)
	require.Len(t, pt.Rows, 2)
	assert.Equal(t, []string{"East"}, pt.Rows[0].Keys)
	assertDec(t, "1000", pt.Rows[0].Cells[0])
	assertDec(t, "1000", pt.Rows[1].Cells[0])
}

func TestPivot_Errors(t *testing.T) {
	tests := []struct {
		name string
		tbl  model.Table
		spec PivotSpec
		want error
	}{
		{"no rows", sample(), PivotSpec{Values: []string{model.ColInterest}}, ErrInsufficientSelection},
		{"no values", sample(), PivotSpec{Rows: []string{model.ColBank}}, ErrInsufficientSelection},
		{"no selection on empty table", model.Table{}, PivotSpec{}, ErrInsufficientSelection},
		{"unknown dim", sample(), PivotSpec{Rows: []string{"Branch"}, Values: []string{model.ColInterest}}, ErrInvalidSpec},
		{"text value", sample(), PivotSpec{Rows: []string{model.ColBank}, Values: []string{model.ColCustomer}}, ErrInvalidSpec},
		{"bad agg", sample(), PivotSpec{Rows: []string{model.ColBank}, Values: []string{model.ColInterest}, Agg: "median"}, ErrInvalidSpec},
		{"empty table", model.Table{}, PivotSpec{Rows: []string{model.ColBank}, Values: []string{model.ColInterest}}, ErrNoRecords},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Pivot(tt.tbl, tt.spec)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseAgg(t *testing.T) {
	a, err := ParseAgg(" MEAN ")
	require.NoError(t, err)
	assert.Equal(t, AggMean, a)

	a, err = ParseAgg("")
	require.NoError(t, err)
	assert.Equal(t, AggSum, a)

	_, err = ParseAgg("max")
	assert.ErrorIs(t, err, ErrInvalidSpec)
}

func TestShares(t *testing.T) {
	slices, err := Shares(sample(), model.ColBank, model.ColDepositAmount)
	require.NoError(t, err)
	require.Len(t, slices, 2)
	assert.Equal(t, "SBI", slices[0].Label)
	assertDec(t, "1700", slices[0].Value)
	assertDec(t, "85", slices[0].Percent)
	assert.Equal(t, "BOB", slices[1].Label)
	assertDec(t, "15", slices[1].Percent)
}

func TestShares_Errors(t *testing.T) {
	_, err := Shares(model.Table{}, model.ColBank, model.ColDepositAmount)
	assert.ErrorIs(t, err, ErrNoRecords)

	_, err = Shares(sample(), "Nope", model.ColDepositAmount)
	assert.ErrorIs(t, err, ErrInvalidSpec)

	_, err = Shares(sample(), model.ColBank, model.ColBank)
	assert.ErrorIs(t, err, ErrInvalidSpec)
}
