// Package report aggregates the working table: the per-bank customer
// summary, a generalized pivot, and share breakdowns.
package report

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/fd-manager/fdm/internal/model"
)

var (
	// ErrNoRecords is returned when there is nothing to aggregate.
	ErrNoRecords = errors.New("no records to aggregate")
	// ErrInsufficientSelection is returned for a pivot without row
	// dimensions or value columns.
	ErrInsufficientSelection = errors.New("select at least one row dimension and one value column")
	// ErrInvalidSpec is returned for unknown dimensions, values or aggregations.
	ErrInvalidSpec = errors.New("invalid report selection")
)

// TotalSuffix is appended to a bank name to label its subtotal row.
const TotalSuffix = " Total"

// GrandTotalLabel labels margin rows and columns.
const GrandTotalLabel = "Grand Total"

// Totals holds the summed amount columns of a group of records.
type Totals struct {
	DepositAmount  decimal.Decimal `json:"deposit_amount"`
	MaturityAmount decimal.Decimal `json:"maturity_amount"`
	Interest       decimal.Decimal `json:"interest"`
	Count          int             `json:"count"`
}

func (t *Totals) addRecord(r model.Record) {
	t.DepositAmount = t.DepositAmount.Add(r.DepositAmount)
	t.MaturityAmount = t.MaturityAmount.Add(r.MaturityAmount)
	t.Interest = t.Interest.Add(r.Interest)
	t.Count++
}

func (t *Totals) add(o Totals) {
	t.DepositAmount = t.DepositAmount.Add(o.DepositAmount)
	t.MaturityAmount = t.MaturityAmount.Add(o.MaturityAmount)
	t.Interest = t.Interest.Add(o.Interest)
	t.Count += o.Count
}

// SummaryRow is one customer within a bank, or a bank subtotal.
type SummaryRow struct {
	Bank     string `json:"bank"`
	Customer string `json:"customer"` // "<Bank> Total" on subtotal rows
	Subtotal bool   `json:"subtotal"`
	Totals
}

// Summary is the bank/customer breakdown shown for the ALL selector.
type Summary struct {
	Rows       []SummaryRow `json:"rows"`
	GrandTotal Totals       `json:"grand_total"`
}

// Banks returns the distinct banks in the summary, in row order.
func (s Summary) Banks() []string {
	var banks []string
	for _, r := range s.Rows {
		if r.Subtotal {
			banks = append(banks, r.Bank)
		}
	}
	return banks
}

// SummarizeByBank sums the amount columns per customer within each bank,
// sorted by bank then customer, with a subtotal row closing each bank.
func SummarizeByBank(t model.Table) Summary {
	byBank := make(map[string]map[string]*Totals)
	for _, r := range t.Records {
		customers, ok := byBank[r.Bank]
		if !ok {
			customers = make(map[string]*Totals)
			byBank[r.Bank] = customers
		}
		tot, ok := customers[r.Customer]
		if !ok {
			tot = &Totals{}
			customers[r.Customer] = tot
		}
		tot.addRecord(r)
	}

	var s Summary
	for _, bank := range sortedKeys(byBank) {
		customers := byBank[bank]
		var bankTotal Totals
		for _, name := range sortedKeys(customers) {
			tot := *customers[name]
			s.Rows = append(s.Rows, SummaryRow{Bank: bank, Customer: name, Totals: tot})
			bankTotal.add(tot)
		}
		s.Rows = append(s.Rows, SummaryRow{
			Bank:     bank,
			Customer: bank + TotalSuffix,
			Subtotal: true,
			Totals:   bankTotal,
		})
		s.GrandTotal.add(bankTotal)
	}
	return s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
