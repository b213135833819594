// Package ledger holds the transitions of the working table: adding a new
// deposit and renewing an existing one by FDR number. Every transition
// returns a new table and leaves its input untouched.
package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd-manager/fdm/internal/model"
)

// ErrNotFound is returned when no record carries the requested FDR number.
var ErrNotFound = errors.New("FDR number not found")

// AddParams holds the fields of a new deposit.
type AddParams struct {
	Customer       string          `json:"customer" validate:"notblank"`
	Initial        string          `json:"initial" validate:"notblank"`
	Bank           string          `json:"bank" validate:"notblank"`
	DepositAmount  decimal.Decimal `json:"deposit_amount" validate:"gte=0"`
	MaturityAmount decimal.Decimal `json:"maturity_amount" validate:"gte=0"`
	DepositDate    time.Time       `json:"deposit_date" validate:"required"`
	Interest       decimal.Decimal `json:"interest"`
	FDRNumber      string          `json:"fdr_number"`
	MaturityDate   time.Time       `json:"maturity_date"` // zero: derived from TermMonths
	TermMonths     int             `json:"term_months" validate:"gte=0"`
}

// RenewParams holds the fields replaced when a deposit is renewed.
type RenewParams struct {
	DepositAmount  decimal.Decimal `json:"deposit_amount" validate:"gte=0"`
	MaturityAmount decimal.Decimal `json:"maturity_amount" validate:"gte=0"`
	DepositDate    time.Time       `json:"deposit_date" validate:"required"`
	Interest       decimal.Decimal `json:"interest"`
	FDRNumber      string          `json:"fdr_number" validate:"notblank"` // the new FDR number
	MaturityDate   time.Time       `json:"maturity_date"`
	TermMonths     int             `json:"term_months" validate:"gte=0"`
}

// Add validates p and returns a copy of t with the new deposit appended.
func Add(t model.Table, p AddParams) (model.Table, model.Record, error) {
	if err := validateStruct(p); err != nil {
		return t, model.Record{}, err
	}
	maturity, err := maturityDate(p.DepositDate, p.MaturityDate, p.TermMonths)
	if err != nil {
		return t, model.Record{}, err
	}

	rec := model.Record{
		Customer:       strings.TrimSpace(p.Customer),
		Initial:        strings.ToUpper(strings.TrimSpace(p.Initial)),
		Bank:           strings.TrimSpace(p.Bank),
		DepositAmount:  p.DepositAmount,
		MaturityAmount: p.MaturityAmount,
		DepositDate:    p.DepositDate,
		Interest:       p.Interest,
		FDRNumber:      strings.TrimSpace(p.FDRNumber),
		MaturityDate:   maturity,
	}
	out := t.Clone()
	out.Records = append(out.Records, rec)
	return out, rec, nil
}

// Find returns the index and value of the first record whose FDR number
// matches fdr, ignoring case and whitespace.
func Find(t model.Table, fdr string) (int, model.Record, bool) {
	key := model.FDRKey(fdr)
	if key == "" {
		return -1, model.Record{}, false
	}
	for i, r := range t.Records {
		if r.FDRKey() == key {
			return i, r, true
		}
	}
	return -1, model.Record{}, false
}

// Renew replaces the amounts, dates, interest and FDR number of the first
// record matching oldFDR. Customer, initial, bank and extra columns are kept.
func Renew(t model.Table, oldFDR string, p RenewParams) (model.Table, model.Record, error) {
	i, _, ok := Find(t, oldFDR)
	if !ok {
		return t, model.Record{}, fmt.Errorf("renewing %q: %w", strings.TrimSpace(oldFDR), ErrNotFound)
	}
	if err := validateStruct(p); err != nil {
		return t, model.Record{}, err
	}
	maturity, err := maturityDate(p.DepositDate, p.MaturityDate, p.TermMonths)
	if err != nil {
		return t, model.Record{}, err
	}

	out := t.Clone()
	rec := &out.Records[i]
	rec.DepositAmount = p.DepositAmount
	rec.MaturityAmount = p.MaturityAmount
	rec.DepositDate = p.DepositDate
	rec.Interest = p.Interest
	rec.FDRNumber = strings.TrimSpace(p.FDRNumber)
	rec.MaturityDate = maturity
	return out, *rec, nil
}

func maturityDate(deposit, maturity time.Time, termMonths int) (time.Time, error) {
	if maturity.IsZero() {
		if termMonths == 0 {
			termMonths = model.DefaultTermMonths
		}
		return model.AddMonths(deposit, termMonths), nil
	}
	if maturity.Before(deposit) {
		return time.Time{}, &ValidationError{Problems: []string{
			fmt.Sprintf("maturity_date %s is before deposit_date %s",
				maturity.Format(model.DateFormat), deposit.Format(model.DateFormat)),
		}}
	}
	return maturity, nil
}
