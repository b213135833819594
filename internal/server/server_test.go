package server

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd-manager/fdm/internal/config"
)

const sampleCSV = `Customer Name,fisrt Name,Bank Name,Deposit Amt,Maturity Amt,Deposit Date,Interest,FDR NO
Asha,a,SBI,1000,1300,2020-06-20,6.5,FD001
Amit,A,BOB,500,650,2023-01-01,7,FD002
Bina,B,SBI,700,900,2021-02-01,7.1,FD003
Broken,C,SBI,,100,2021-01-01,5,FD004
`

type testEnv struct {
	srv *Server
	ts  *httptest.Server
	cli *http.Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s := New(config.Default(), nil)
	s.now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testEnv{srv: s, ts: ts, cli: &http.Client{Jar: jar}}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.cli.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func (e *testEnv) upload(t *testing.T, name, content string) (int, []byte) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := e.cli.Post(e.ts.URL+"/api/upload", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	code, _ := e.do(t, http.MethodPost, "/api/login", map[string]string{"password": config.DefaultPassword})
	require.Equal(t, http.StatusOK, code)
}

func (e *testEnv) sessionCookie(t *testing.T) string {
	t.Helper()
	u, err := url.Parse(e.ts.URL)
	require.NoError(t, err)
	for _, c := range e.cli.Jar.Cookies(u) {
		if c.Name == CookieName {
			return c.Value
		}
	}
	return ""
}

func (e *testEnv) loaded(t *testing.T) {
	t.Helper()
	e.login(t)
	code, body := e.upload(t, "fd.csv", sampleCSV)
	require.Equal(t, http.StatusOK, code, string(body))
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

type listResponse struct {
	Selector string       `json:"selector"`
	All      bool         `json:"all"`
	Count    int          `json:"count"`
	Records  []recordJSON `json:"records"`
	Summary  struct {
		Rows []struct {
			Bank     string `json:"bank"`
			Customer string `json:"customer"`
			Subtotal bool   `json:"subtotal"`
		} `json:"rows"`
		GrandTotal struct {
			DepositAmount string `json:"deposit_amount"`
		} `json:"grand_total"`
	} `json:"summary"`
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	code, body := e.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `"status":"ok"`)
	assert.Contains(t, string(body), `"xls"`)
}

func TestLoginRequired(t *testing.T) {
	e := newTestEnv(t)
	for _, path := range []string{"/api/records?q=ALL", "/api/reports/banks", "/api/export"} {
		code, body := e.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, code, path)
		assert.Contains(t, string(body), "login required")
	}
}

func TestLogin(t *testing.T) {
	e := newTestEnv(t)

	code, body := e.do(t, http.MethodPost, "/api/login", map[string]string{"password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Contains(t, string(body), "incorrect password")

	code, _ = e.do(t, http.MethodGet, "/api/reports/banks", nil)
	assert.Equal(t, http.StatusUnauthorized, code, "failed attempt does not authenticate")

	e.login(t)
	code, _ = e.do(t, http.MethodGet, "/api/reports/banks", nil)
	assert.Equal(t, http.StatusConflict, code, "authenticated, but nothing uploaded yet")

	code, _ = e.do(t, http.MethodPost, "/api/logout", nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = e.do(t, http.MethodGet, "/api/reports/banks", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestLogin_IssuesFreshSessionID(t *testing.T) {
	e := newTestEnv(t)

	code, _ := e.do(t, http.MethodPost, "/api/login", map[string]string{"password": "nope"})
	require.Equal(t, http.StatusUnauthorized, code)
	before := e.sessionCookie(t)
	require.NotEmpty(t, before)

	e.login(t)
	after := e.sessionCookie(t)
	assert.NotEqual(t, before, after)
	assert.Equal(t, 1, e.srv.store.Len())
	_, ok := e.srv.store.Get(before)
	assert.False(t, ok, "pre-login id no longer resolves")

	// A client still holding the pre-login id is not authenticated.
	req, err := http.NewRequest(http.MethodGet, e.ts.URL+"/api/reports/banks", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: before})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	code, _ = e.do(t, http.MethodGet, "/api/reports/banks", nil)
	assert.Equal(t, http.StatusConflict, code, "new id is authenticated")
}

func TestLogin_BadBody(t *testing.T) {
	e := newTestEnv(t)
	req, err := http.NewRequest(http.MethodPost, e.ts.URL+"/api/login", bytes.NewBufferString("{"))
	require.NoError(t, err)
	resp, err := e.cli.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadRequiredBeforeQueries(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)
	code, body := e.do(t, http.MethodGet, "/api/records?q=A", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Contains(t, string(body), "upload required")
}

func TestUpload(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	code, body := e.upload(t, "fd.csv", sampleCSV)
	require.Equal(t, http.StatusOK, code, string(body))
	res := decode[uploadResponse](t, body)
	assert.Equal(t, "fd.csv", res.Source)
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, 4, res.Diagnostics.RowsRead)
	require.Len(t, res.Diagnostics.Dropped, 1)
	assert.Equal(t, 5, res.Diagnostics.Dropped[0].Row)
	assert.Contains(t, res.Summary, "kept 3 of 4 rows")
}

func TestUpload_BadFile(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	code, body := e.upload(t, "fd.ods", "whatever")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, string(body), "unsupported file type")

	code, _ = e.upload(t, "empty.csv", "")
	assert.Equal(t, http.StatusBadRequest, code, "no header row")
}

func TestListRecords(t *testing.T) {
	e := newTestEnv(t)
	e.loaded(t)

	code, body := e.do(t, http.MethodGet, "/api/records?q=a", nil)
	require.Equal(t, http.StatusOK, code)
	res := decode[listResponse](t, body)
	assert.Equal(t, "A", res.Selector)
	assert.False(t, res.All)
	require.Equal(t, 2, res.Count)
	assert.Equal(t, "Asha", res.Records[0].Customer)
	assert.Equal(t, "2025-06-20", res.Records[0].MaturityDate)
	assert.True(t, res.Records[0].MaturingSoon)
	assert.Equal(t, "Amit", res.Records[1].Customer)
	assert.False(t, res.Records[1].MaturingSoon)

	code, body = e.do(t, http.MethodGet, "/api/records?q=zzz", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, decode[listResponse](t, body).Count)
}

func TestListRecords_All(t *testing.T) {
	e := newTestEnv(t)
	e.loaded(t)

	code, body := e.do(t, http.MethodGet, "/api/records?q=all", nil)
	require.Equal(t, http.StatusOK, code)
	res := decode[listResponse](t, body)
	assert.True(t, res.All)
	require.Len(t, res.Summary.Rows, 5)
	assert.Equal(t, "BOB Total", res.Summary.Rows[1].Customer)
	assert.True(t, res.Summary.Rows[1].Subtotal)
	assert.Equal(t, "2200", res.Summary.GrandTotal.DepositAmount)
}

func TestAddRecord(t *testing.T) {
	e := newTestEnv(t)
	e.loaded(t)

	code, body := e.do(t, http.MethodPost, "/api/records", map[string]any{
		"customer":        "Vishal",
		"initial":         "v",
		"bank":            "HDFC",
		"deposit_amount":  "2000",
		"maturity_amount": 2600,
		"deposit_date":    "31/01/2024",
		"interest":        "7.1",
		"fdr_number":      "FD005",
	})
	require.Equal(t, http.StatusCreated, code, string(body))
	rec := decode[recordJSON](t, body)
	assert.Equal(t, "V", rec.Initial)
	assert.Equal(t, "2024-01-31", rec.DepositDate)
	assert.Equal(t, "2029-01-31", rec.MaturityDate)

	code, body = e.do(t, http.MethodGet, "/api/records?q=V", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, decode[listResponse](t, body).Count)
}

func TestAddRecord_Invalid(t *testing.T) {
	e := newTestEnv(t)
	e.loaded(t)

	code, body := e.do(t, http.MethodPost, "/api/records", map[string]any{
		"customer":       "Vishal",
		"deposit_amount": "-5",
		"deposit_date":   "2024-01-01",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	eb := decode[errorBody](t, body)
	assert.Contains(t, eb.Problems, "bank is required")
	assert.Contains(t, eb.Problems, "deposit_amount must be at least 0")

	code, body = e.do(t, http.MethodPost, "/api/records", map[string]any{"deposit_date": "someday"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, string(body), "is not a date")
}

func TestGetRecord(t *testing.T) {
	e := newTestEnv(t)
	e.loaded(t)

	code, body := e.do(t, http.MethodGet, "/api/records/fd002", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Amit", decode[recordJSON](t, body).Customer)

	code, body = e.do(t, http.MethodGet, "/api/records/FD999", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, string(body), "not found")
}

func TestRenewRecord(t *testing.T) {
	e := newTestEnv(t)
	e.loaded(t)

	code, body := e.do(t, http.MethodPost, "/api/records/FD001/renew", map[string]any{
		"deposit_amount":  "1300",
		"maturity_amount": "1700",
		"deposit_date":    "2025-06-20",
		"interest":        "7",
		"fdr_number":      "FD101",
	})
	require.Equal(t, http.StatusOK, code, string(body))
	rec := decode[recordJSON](t, body)
	assert.Equal(t, "Asha", rec.Customer)
	assert.Equal(t, "FD101", rec.FDRNumber)
	assert.Equal(t, "2030-06-20", rec.MaturityDate)
	assert.False(t, rec.MaturingSoon)

	code, _ = e.do(t, http.MethodGet, "/api/records/FD001", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = e.do(t, http.MethodPost, "/api/records/FD999/renew", map[string]any{
		"deposit_date": "2025-06-20", "fdr_number": "X",
	})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestPivotReport(t *testing.T) {
	e := newTestEnv(t)
	e.loaded(t)

	code, _ := e.do(t, http.MethodPost, "/api/reports/pivot", map[string]any{"rows": []string{"Bank"}})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = e.do(t, http.MethodPost, "/api/reports/pivot", map[string]any{
		"rows": []string{"Bank"}, "values": []string{"Customer"},
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body := e.do(t, http.MethodPost, "/api/reports/pivot", map[string]any{
		"rows":   []string{"Bank", "Customer"},
		"values": []string{"DepositAmount"},
		"agg":    "sum",
	})
	require.Equal(t, http.StatusOK, code, string(body))
	res := decode[struct {
		Header []string `json:"header"`
		Pivot  struct {
			Rows []struct {
				Keys     []string `json:"keys"`
				Subtotal bool     `json:"subtotal"`
			} `json:"rows"`
			GrandTotal struct {
				Cells []string `json:"cells"`
			} `json:"grand_total"`
		} `json:"pivot"`
	}](t, body)
	assert.Equal(t, []string{"Bank", "Customer", "DepositAmount"}, res.Header)
	require.Len(t, res.Pivot.Rows, 5)
	assert.Equal(t, []string{"SBI", "SBI Total"}, res.Pivot.Rows[4].Keys)
	assert.Equal(t, []string{"2200"}, res.Pivot.GrandTotal.Cells)
}

func TestSharesReport(t *testing.T) {
	e := newTestEnv(t)
	e.loaded(t)

	code, body := e.do(t, http.MethodGet, "/api/reports/shares?by=Bank&value=DepositAmount", nil)
	require.Equal(t, http.StatusOK, code, string(body))
	res := decode[struct {
		Slices []struct {
			Label string `json:"label"`
			Value string `json:"value"`
		} `json:"slices"`
	}](t, body)
	require.Len(t, res.Slices, 2)
	assert.Equal(t, "SBI", res.Slices[0].Label)
	assert.Equal(t, "1700", res.Slices[0].Value)
}

func TestExport(t *testing.T) {
	e := newTestEnv(t)
	e.loaded(t)

	resp, err := e.cli.Get(e.ts.URL + "/api/export?format=csv")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="updated_fdr.csv"`, resp.Header.Get("Content-Disposition"))

	rows, err := csv.NewReader(resp.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4, "header plus every kept record, unfiltered")
	assert.Equal(t, "Customer", rows[0][0])

	resp2, err := e.cli.Get(e.ts.URL + "/api/export")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, `attachment; filename="updated_fdr.xlsx"`, resp2.Header.Get("Content-Disposition"))

	code, _ := e.do(t, http.MethodGet, "/api/export?format=pdf", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSweep(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)
	require.Equal(t, 1, e.srv.store.Len())

	e.srv.cfg.Server.SessionTTL = time.Nanosecond
	time.Sleep(time.Millisecond)
	e.srv.Sweep()
	assert.Equal(t, 0, e.srv.store.Len())

	code, _ := e.do(t, http.MethodGet, "/api/reports/banks", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestSessionsAreIsolated(t *testing.T) {
	e := newTestEnv(t)
	e.loaded(t)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	second := &testEnv{srv: e.srv, ts: e.ts, cli: &http.Client{Jar: jar}}
	second.login(t)

	code, _ := second.do(t, http.MethodGet, "/api/records?q=ALL", nil)
	assert.Equal(t, http.StatusConflict, code, "second session has no upload")
}
