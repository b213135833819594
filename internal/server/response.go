package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/fd-manager/fdm/internal/ledger"
	"github.com/fd-manager/fdm/internal/model"
	"github.com/fd-manager/fdm/internal/normalize"
	"github.com/fd-manager/fdm/internal/query"
	"github.com/fd-manager/fdm/internal/report"
	"github.com/fd-manager/fdm/internal/session"
	"github.com/fd-manager/fdm/internal/sheet"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error    string   `json:"error"`
	Problems []string `json:"problems,omitempty"`
}

// writeErr maps err to a status code and writes it as JSON.
func writeErr(w http.ResponseWriter, err error) {
	body := errorBody{Error: err.Error()}
	var ve *ledger.ValidationError
	if errors.As(err, &ve) {
		body.Problems = ve.Problems
	}
	writeJSON(w, statusOf(err), body)
}

func statusOf(err error) int {
	var ve *ledger.ValidationError
	var bad badRequest
	switch {
	case errors.Is(err, session.ErrIncorrectPassword),
		errors.Is(err, session.ErrUnknownSession),
		errors.Is(err, errLoginRequired):
		return http.StatusUnauthorized
	case errors.Is(err, session.ErrNoUpload):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, report.ErrInsufficientSelection):
		return http.StatusUnprocessableEntity
	case errors.Is(err, report.ErrInvalidSpec),
		errors.Is(err, normalize.ErrNoHeader),
		errors.As(err, &ve),
		errors.As(err, &bad):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// badRequest marks client mistakes that have no sentinel of their own.
type badRequest struct{ err error }

func (b badRequest) Error() string { return b.err.Error() }
func (b badRequest) Unwrap() error { return b.err }

// recordJSON is the wire form of a record.
type recordJSON struct {
	Customer       string            `json:"customer"`
	Initial        string            `json:"initial"`
	Bank           string            `json:"bank"`
	DepositAmount  decimal.Decimal   `json:"deposit_amount"`
	MaturityAmount decimal.Decimal   `json:"maturity_amount"`
	DepositDate    string            `json:"deposit_date"`
	Interest       decimal.Decimal   `json:"interest"`
	FDRNumber      string            `json:"fdr_number"`
	MaturityDate   string            `json:"maturity_date"`
	MaturingSoon   bool              `json:"maturing_soon"`
	Extra          map[string]string `json:"extra,omitempty"`
}

func toJSON(r model.Record, soon bool) recordJSON {
	deposit, _ := r.Field(model.ColDepositDate)
	maturity, _ := r.Field(model.ColMaturityDate)
	return recordJSON{
		Customer:       r.Customer,
		Initial:        r.Initial,
		Bank:           r.Bank,
		DepositAmount:  r.DepositAmount,
		MaturityAmount: r.MaturityAmount,
		DepositDate:    deposit,
		Interest:       r.Interest,
		FDRNumber:      r.FDRNumber,
		MaturityDate:   maturity,
		MaturingSoon:   soon,
		Extra:          r.Extra,
	}
}

func annotatedJSON(recs []query.Annotated) []recordJSON {
	out := make([]recordJSON, len(recs))
	for i, a := range recs {
		out[i] = toJSON(a.Record, a.MaturingSoon)
	}
	return out
}

type formatsJSON struct {
	Read  []string `json:"read"`
	Write []string `json:"write"`
}

func formats(reg *sheet.Registry) formatsJSON {
	return formatsJSON{Read: reg.ReaderFormats(), Write: reg.WriterFormats()}
}
