package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sayiza/orapgsync/internal/testutil"
	"github.com/sayiza/orapgsync/pkg/catalog"
	"github.com/sayiza/orapgsync/pkg/types"
)

func testCatalog() *catalog.Metadata {
	cat := catalog.Empty("hr")
	cat.AddTable(&catalog.Table{Schema: "hr", Name: "emp", Columns: []catalog.Column{
		{Name: "empno", OracleType: "number", Category: types.Numeric},
		{Name: "ename", OracleType: "varchar2(30)", Category: types.Text},
		{Name: "hire_date", OracleType: "date", Category: types.Date},
	}})
	cat.AddViewColumns("hr", "emp_v", []catalog.ViewColumn{
		{Name: "empno", PostgresType: "text", Category: types.Text},
	})
	return cat
}

func testHandler(t *testing.T) http.Handler {
	t.Helper()
	srv := New(Config{
		Catalog: testCatalog(),
		Addr:    ":0",
		Logger:  testutil.NewTestLogger(t),
	})
	return srv.Handler()
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h := testHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestTransformEndpoint(t *testing.T) {
	h := testHandler(t)
	rec := postJSON(t, h, "/v1/transform", `{"source": "SELECT NVL(ename, 'x') FROM emp"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp transformResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "SELECT COALESCE(ename, 'x') FROM emp", resp.SQL)
	assert.False(t, resp.Failed)
	assert.NotEmpty(t, resp.RunID)
	assert.Empty(t, resp.Diagnostics)
}

func TestTransformEndpointReportsDiagnostics(t *testing.T) {
	h := testHandler(t)
	rec := postJSON(t, h, "/v1/transform", `{"source": "SELECT REGEXP_INSTR(ename, 'a') FROM emp"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp transformResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Failed)
	assert.Empty(t, resp.SQL)
	require.NotEmpty(t, resp.Diagnostics)
	assert.Equal(t, "error", resp.Diagnostics[0].Severity)
	assert.Equal(t, "unsupported-construct", resp.Diagnostics[0].Kind)
}

func TestTransformEndpointRejectsEmptySource(t *testing.T) {
	h := testHandler(t)
	rec := postJSON(t, h, "/v1/transform", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransformEndpointRejectsBadJSON(t *testing.T) {
	h := testHandler(t)
	rec := postJSON(t, h, "/v1/transform", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransformEndpointParseErrorIsUnprocessable(t *testing.T) {
	h := testHandler(t)
	rec := postJSON(t, h, "/v1/transform", `{"source": "SELECT FROM FROM"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestTransformViewEndpointAppliesCasts(t *testing.T) {
	h := testHandler(t)
	rec := postJSON(t, h, "/v1/transform/view",
		`{"schema": "hr", "view": "emp_v", "source": "SELECT empno FROM emp"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp transformResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.SQL, "CREATE OR REPLACE VIEW hr.emp_v AS")
	assert.Contains(t, resp.SQL, "CAST(empno AS text) AS empno")
}

func TestTransformViewEndpointRequiresViewName(t *testing.T) {
	h := testHandler(t)
	rec := postJSON(t, h, "/v1/transform/view", `{"source": "SELECT 1 FROM dual"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunsEndpointsWithoutStore(t *testing.T) {
	h := testHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/runs?source=x", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/runs/run-1", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTransformEndpointUsesCatalogTypes(t *testing.T) {
	cat := catalog.Empty("hr")
	cat.AddTable(&catalog.Table{Schema: "hr", Name: "accounts", Columns: []catalog.Column{
		{Name: "valid_until", OracleType: "date", Category: types.Date},
	}})
	srv := New(Config{Catalog: cat, Addr: ":0", Logger: testutil.NewTestLogger(t)})

	rec := postJSON(t, srv.Handler(), "/v1/transform", `{"source": "SELECT valid_until + 30 FROM accounts"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp transformResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "SELECT valid_until + (30 * INTERVAL '1 day') FROM accounts", resp.SQL)
	assert.False(t, resp.Failed)
}

func TestTransformEndpointHonorsDateFragments(t *testing.T) {
	srv := New(Config{
		Catalog:       catalog.Empty("hr"),
		Addr:          ":0",
		DateFragments: []string{"valid"},
		Logger:        testutil.NewTestLogger(t),
	})

	rec := postJSON(t, srv.Handler(), "/v1/transform", `{"source": "SELECT valid_until + 1 FROM accounts"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp transformResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "SELECT valid_until + (1 * INTERVAL '1 day') FROM accounts", resp.SQL)
}
