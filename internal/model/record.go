package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Canonical column names, in export order.
const (
	ColCustomer       = "Customer"
	ColInitial        = "Initial"
	ColBank           = "Bank"
	ColDepositAmount  = "DepositAmount"
	ColMaturityAmount = "MaturityAmount"
	ColDepositDate    = "DepositDate"
	ColInterest       = "Interest"
	ColFDRNumber      = "FDRNumber"
	ColMaturityDate   = "MaturityDate"
)

// DateFormat is the layout used for dates in exports and report keys.
const DateFormat = "2006-01-02"

// DefaultTermMonths is the FD term used to derive a missing maturity date.
const DefaultTermMonths = 60

// Columns lists the canonical columns in export order.
var Columns = []string{
	ColCustomer,
	ColInitial,
	ColBank,
	ColDepositAmount,
	ColMaturityAmount,
	ColDepositDate,
	ColInterest,
	ColFDRNumber,
	ColMaturityDate,
}

// RequiredColumns must all be populated for a row to enter the working table.
var RequiredColumns = []string{
	ColCustomer,
	ColInitial,
	ColBank,
	ColDepositAmount,
	ColMaturityAmount,
	ColDepositDate,
	ColInterest,
}

// AmountColumns are the numeric columns that can be aggregated.
var AmountColumns = []string{ColDepositAmount, ColMaturityAmount, ColInterest}

// Record is one fixed deposit.
type Record struct {
	Customer       string
	Initial        string // upper-cased
	Bank           string
	DepositAmount  decimal.Decimal
	MaturityAmount decimal.Decimal
	DepositDate    time.Time
	Interest       decimal.Decimal
	FDRNumber      string
	MaturityDate   time.Time
	Extra          map[string]string // preserved unknown columns, keyed by header
}

// Amount returns the value of a numeric column.
func (r Record) Amount(col string) (decimal.Decimal, bool) {
	switch col {
	case ColDepositAmount:
		return r.DepositAmount, true
	case ColMaturityAmount:
		return r.MaturityAmount, true
	case ColInterest:
		return r.Interest, true
	}
	return decimal.Zero, false
}

// Field returns the display value of any column, canonical or extra.
// Dates are formatted with DateFormat and amounts with two decimals.
func (r Record) Field(col string) (string, bool) {
	switch col {
	case ColCustomer:
		return r.Customer, true
	case ColInitial:
		return r.Initial, true
	case ColBank:
		return r.Bank, true
	case ColFDRNumber:
		return r.FDRNumber, true
	case ColDepositDate:
		return formatDate(r.DepositDate), true
	case ColMaturityDate:
		return formatDate(r.MaturityDate), true
	}
	if amt, ok := r.Amount(col); ok {
		return amt.StringFixed(2), true
	}
	v, ok := r.Extra[col]
	return v, ok
}

// FDRKey returns the lookup key for the record's FDR number.
func (r Record) FDRKey() string {
	return FDRKey(r.FDRNumber)
}

// Clone returns a copy that shares no mutable state with r.
func (r Record) Clone() Record {
	c := r
	if r.Extra != nil {
		c.Extra = make(map[string]string, len(r.Extra))
		for k, v := range r.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

// FDRKey normalizes an FDR number for comparison: whitespace removed, upper-cased.
func FDRKey(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

// AddMonths adds n calendar months to t, clamping the day to the end of the
// target month ("2024-01-31" + 1 month = "2024-02-29").
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateFormat)
}
