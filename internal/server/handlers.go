package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/fd-manager/fdm/internal/buildinfo"
	"github.com/fd-manager/fdm/internal/export"
	"github.com/fd-manager/fdm/internal/ledger"
	"github.com/fd-manager/fdm/internal/model"
	"github.com/fd-manager/fdm/internal/normalize"
	"github.com/fd-manager/fdm/internal/query"
	"github.com/fd-manager/fdm/internal/report"
	"github.com/fd-manager/fdm/internal/session"
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": buildinfo.String(),
		"formats": formats(s.sheets),
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, badRequest{fmt.Errorf("decoding login: %w", err)})
		return
	}

	sess, ok := s.sessionFrom(r)
	if !ok {
		sess = s.store.New()
	}
	// A failed attempt is still recorded on the session.
	var loginErr error
	sess, err := s.store.Update(sess.ID, func(cur session.Session) (session.Session, error) {
		next, err := s.gate.Login(cur, req.Password)
		loginErr = err
		return next, nil
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	if loginErr != nil {
		setSessionCookie(w, sess.ID)
		s.log.Warn("login failed", "session", sess.ID)
		writeErr(w, loginErr)
		return
	}
	// An id handed out before login must not carry the authenticated session.
	if sess, err = s.store.Rotate(sess.ID); err != nil {
		writeErr(w, err)
		return
	}
	setSessionCookie(w, sess.ID)
	writeJSON(w, http.StatusOK, map[string]any{"authenticated": true})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.sessionFrom(r); ok {
		s.store.Delete(sess.ID)
	}
	http.SetCookie(w, &http.Cookie{Name: CookieName, Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

type uploadResponse struct {
	Source      string                `json:"source"`
	Rows        int                   `json:"rows"`
	Headers     []string              `json:"headers"`
	Summary     string                `json:"summary"`
	Diagnostics normalize.Diagnostics `json:"diagnostics"`
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeErr(w, badRequest{fmt.Errorf("reading upload: %w", err)})
		return
	}
	defer file.Close()

	raw, err := s.sheets.Read(hdr.Filename, file)
	if err != nil {
		writeErr(w, badRequest{err})
		return
	}
	res, err := normalize.Normalize(raw, s.cfg.NormalizeOptions())
	if err != nil {
		writeErr(w, err)
		return
	}
	if _, err := s.store.Update(sessionID(r), func(cur session.Session) (session.Session, error) {
		return cur.Load(hdr.Filename, res), nil
	}); err != nil {
		writeErr(w, err)
		return
	}

	s.log.Info("upload normalized", "file", hdr.Filename, "summary", res.Diagnostics.Summary())
	for _, d := range res.Diagnostics.Dropped {
		s.log.Debug("row dropped", "file", hdr.Filename, "row", d.Row, "missing", d.Missing)
	}
	writeJSON(w, http.StatusOK, uploadResponse{
		Source:      hdr.Filename,
		Rows:        res.Table.Len(),
		Headers:     res.Table.Headers(),
		Summary:     res.Diagnostics.Summary(),
		Diagnostics: res.Diagnostics,
	})
}

func (s *Server) working(r *http.Request) (model.Table, error) {
	sess, ok := s.store.Get(sessionID(r))
	if !ok {
		return model.Table{}, errLoginRequired
	}
	return sess.Working()
}

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	tbl, err := s.working(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	mode := query.MatchSubstring
	if strings.EqualFold(r.URL.Query().Get("match"), "exact") {
		mode = query.MatchExact
	}
	res := query.FilterWith(tbl, r.URL.Query().Get("q"), mode)
	if res.All {
		writeJSON(w, http.StatusOK, map[string]any{
			"selector": res.Selector,
			"all":      true,
			"summary":  report.SummarizeByBank(res.Table),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"selector": res.Selector,
		"count":    res.Table.Len(),
		"records":  annotatedJSON(query.Annotate(res.Table.Records, s.now(), s.cfg.SoonHorizon())),
	})
}

// depositRequest is the body of add and renew. Dates accept the same
// layouts as uploaded spreadsheets.
type depositRequest struct {
	Customer       string          `json:"customer"`
	Initial        string          `json:"initial"`
	Bank           string          `json:"bank"`
	DepositAmount  decimal.Decimal `json:"deposit_amount"`
	MaturityAmount decimal.Decimal `json:"maturity_amount"`
	DepositDate    string          `json:"deposit_date"`
	Interest       decimal.Decimal `json:"interest"`
	FDRNumber      string          `json:"fdr_number"`
	MaturityDate   string          `json:"maturity_date"`
	TermMonths     int             `json:"term_months"`
}

func (s *Server) decodeDeposit(r *http.Request) (depositRequest, time.Time, time.Time, error) {
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, time.Time{}, time.Time{}, badRequest{fmt.Errorf("decoding request: %w", err)}
	}
	deposit, err := s.parseDate("deposit_date", req.DepositDate)
	if err != nil {
		return req, time.Time{}, time.Time{}, err
	}
	maturity, err := s.parseDate("maturity_date", req.MaturityDate)
	if err != nil {
		return req, time.Time{}, time.Time{}, err
	}
	if req.TermMonths == 0 {
		req.TermMonths = s.cfg.Maturity.TermMonths
	}
	return req, deposit, maturity, nil
}

// parseDate returns the zero time for a blank value; validation decides
// whether the field was required.
func (s *Server) parseDate(field, v string) (time.Time, error) {
	if strings.TrimSpace(v) == "" {
		return time.Time{}, nil
	}
	t, ok := normalize.ParseDate(v, s.cfg.Columns.DayFirst)
	if !ok {
		return time.Time{}, badRequest{fmt.Errorf("%s %q is not a date", field, v)}
	}
	return t, nil
}

func (s *Server) addRecord(w http.ResponseWriter, r *http.Request) {
	req, deposit, maturity, err := s.decodeDeposit(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	params := ledger.AddParams{
		Customer:       req.Customer,
		Initial:        req.Initial,
		Bank:           req.Bank,
		DepositAmount:  req.DepositAmount,
		MaturityAmount: req.MaturityAmount,
		DepositDate:    deposit,
		Interest:       req.Interest,
		FDRNumber:      req.FDRNumber,
		MaturityDate:   maturity,
		TermMonths:     req.TermMonths,
	}

	var added model.Record
	_, err = s.store.Update(sessionID(r), func(cur session.Session) (session.Session, error) {
		tbl, err := cur.Working()
		if err != nil {
			return cur, err
		}
		out, rec, err := ledger.Add(tbl, params)
		if err != nil {
			return cur, err
		}
		added = rec
		return cur.Apply(out), nil
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	s.log.Info("deposit added", "fdr", added.FDRNumber, "bank", added.Bank)
	writeJSON(w, http.StatusCreated, toJSON(added, query.MaturingSoon(added, s.now(), s.cfg.SoonHorizon())))
}

func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) {
	tbl, err := s.working(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	fdr := mux.Vars(r)["fdr"]
	_, rec, ok := ledger.Find(tbl, fdr)
	if !ok {
		writeErr(w, fmt.Errorf("%q: %w", fdr, ledger.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, toJSON(rec, query.MaturingSoon(rec, s.now(), s.cfg.SoonHorizon())))
}

func (s *Server) renewRecord(w http.ResponseWriter, r *http.Request) {
	fdr := mux.Vars(r)["fdr"]
	req, deposit, maturity, err := s.decodeDeposit(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	params := ledger.RenewParams{
		DepositAmount:  req.DepositAmount,
		MaturityAmount: req.MaturityAmount,
		DepositDate:    deposit,
		Interest:       req.Interest,
		FDRNumber:      req.FDRNumber,
		MaturityDate:   maturity,
		TermMonths:     req.TermMonths,
	}

	var renewed model.Record
	_, err = s.store.Update(sessionID(r), func(cur session.Session) (session.Session, error) {
		tbl, err := cur.Working()
		if err != nil {
			return cur, err
		}
		out, rec, err := ledger.Renew(tbl, fdr, params)
		if err != nil {
			return cur, err
		}
		renewed = rec
		return cur.Apply(out), nil
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	s.log.Info("deposit renewed", "old_fdr", fdr, "new_fdr", renewed.FDRNumber)
	writeJSON(w, http.StatusOK, toJSON(renewed, query.MaturingSoon(renewed, s.now(), s.cfg.SoonHorizon())))
}

func (s *Server) bankReport(w http.ResponseWriter, r *http.Request) {
	tbl, err := s.working(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report.SummarizeByBank(tbl))
}

// writeNotice answers an aggregation over an empty table.
func writeNotice(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusOK, map[string]string{"notice": err.Error()})
}

func (s *Server) pivotReport(w http.ResponseWriter, r *http.Request) {
	tbl, err := s.working(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	var spec report.PivotSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeErr(w, badRequest{fmt.Errorf("decoding pivot: %w", err)})
		return
	}
	pt, err := report.Pivot(tbl, spec)
	if errors.Is(err, report.ErrNoRecords) {
		writeNotice(w, err)
		return
	}
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"header": pt.Header(), "pivot": pt})
}

func (s *Server) sharesReport(w http.ResponseWriter, r *http.Request) {
	tbl, err := s.working(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	dim := r.URL.Query().Get("by")
	if dim == "" {
		dim = model.ColBank
	}
	value := r.URL.Query().Get("value")
	if value == "" {
		value = model.ColDepositAmount
	}
	slices, err := report.Shares(tbl, dim, value)
	if errors.Is(err, report.ErrNoRecords) {
		writeNotice(w, err)
		return
	}
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"by": dim, "value": value, "slices": slices})
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	tbl, err := s.working(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = s.cfg.Export.Format
	}
	sw, err := export.WriterFor(format)
	if err != nil {
		writeErr(w, badRequest{err})
		return
	}
	name, err := export.FileName(s.cfg.Export.FileName, format)
	if err != nil {
		writeErr(w, badRequest{err})
		return
	}
	data, err := export.ExportBytes(tbl, format)
	if err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", sw.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
