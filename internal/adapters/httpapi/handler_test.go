package httpapi

import (
	"contactbook/internal/blob"
	"contactbook/internal/core"
	"contactbook/pkg/domain"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	svc     *core.Service
	blobs   blob.Store
	handler http.Handler
	logs    *observer.ObservedLogs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	rec, err := core.NewPrometheusMetricsRecorder(reg)
	require.NoError(t, err)
	zcore, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(zcore)
	svc := core.NewInMemoryService(core.NewDefaultRulesEngine(), core.WithMetrics(rec), core.WithLogger(logger))
	blobs := blob.NewMemory()
	h := NewHandler(svc, blobs,
		WithLogger(logger),
		WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
	)
	return &fixture{svc: svc, blobs: blobs, handler: h.Routes(), logs: logs}
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	resp := httptest.NewRecorder()
	f.handler.ServeHTTP(resp, req)
	return resp
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out), resp.Body.String())
	return out
}

func TestCreateGetUpdateDelete(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/v1/contacts", `{"code":"c1","name":" Ada ","surname":"Lovelace","number":"555"}`)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	assert.Equal(t, "/api/v1/contacts/c1", resp.Header().Get("Location"))
	created := decode[contactResponse](t, resp)
	assert.Equal(t, "Ada", created.Contact.Name)

	resp = f.do(t, http.MethodGet, "/api/v1/contacts/c1", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Lovelace", decode[contactResponse](t, resp).Contact.Surname)

	resp = f.do(t, http.MethodPut, "/api/v1/contacts/c1", `{"name":"Ada","surname":"King","number":"556"}`)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	updated := decode[contactResponse](t, resp).Contact
	assert.Equal(t, "King", updated.Surname)
	assert.Equal(t, "c1", updated.Code())

	resp = f.do(t, http.MethodDelete, "/api/v1/contacts/c1", "")
	require.Equal(t, http.StatusNoContent, resp.Code)
	assert.Empty(t, resp.Body.String())

	resp = f.do(t, http.MethodGet, "/api/v1/contacts/c1", "")
	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Contains(t, decode[map[string]string](t, resp)["error"], "not found")
}

func TestErrorStatusMapping(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/v1/contacts", `{"code":"c1","name":"Ada"}`).Code)

	cases := []struct {
		name   string
		method string
		target string
		body   string
		status int
	}{
		{"duplicate code", http.MethodPost, "/api/v1/contacts", `{"code":"c1","name":"Again"}`, http.StatusConflict},
		{"missing name", http.MethodPost, "/api/v1/contacts", `{"code":"c2"}`, http.StatusUnprocessableEntity},
		{"empty code", http.MethodPost, "/api/v1/contacts", `{"name":"Nobody"}`, http.StatusBadRequest},
		{"malformed json", http.MethodPost, "/api/v1/contacts", `{"code":`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/v1/contacts", `{"code":"c3","nick":"x"}`, http.StatusBadRequest},
		{"code mismatch", http.MethodPut, "/api/v1/contacts/c1", `{"code":"other","name":"Ada"}`, http.StatusBadRequest},
		{"update missing", http.MethodPut, "/api/v1/contacts/nope", `{"name":"Ada"}`, http.StatusNotFound},
		{"update invalid", http.MethodPut, "/api/v1/contacts/c1", `{"name":""}`, http.StatusUnprocessableEntity},
		{"delete missing", http.MethodDelete, "/api/v1/contacts/nope", "", http.StatusNotFound},
		{"bad import mode", http.MethodPost, "/api/v1/contacts/import?mode=upsert", `[]`, http.StatusBadRequest},
		{"bad import payload", http.MethodPost, "/api/v1/contacts/import", `{"code":"x"}`, http.StatusBadRequest},
		{"duplicate in import", http.MethodPost, "/api/v1/contacts/import", `[{"code":"x","name":"A"},{"code":"x","name":"B"}]`, http.StatusBadRequest},
		{"wrong method", http.MethodPatch, "/api/v1/contacts/c1", `{}`, http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := f.do(t, tc.method, tc.target, tc.body)
			require.Equal(t, tc.status, resp.Code, resp.Body.String())
		})
	}

	got, err := f.svc.GetContact(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name, "failed requests leave state untouched")
}

func TestRuleViolationResponseListsViolations(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodPost, "/api/v1/contacts", `{"code":"c2","number":"1"}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	body := decode[struct {
		Error      string             `json:"error"`
		Violations []domain.Violation `json:"violations"`
	}](t, resp)
	require.Len(t, body.Violations, 1)
	assert.Equal(t, core.RuleContactRequiredFields, body.Violations[0].Rule)
	assert.Contains(t, body.Error, "transaction blocked by rules")
}

func TestCreateReturnsWarnings(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/v1/contacts", `{"code":"c1","name":"Ada","number":"555"}`).Code)
	resp := f.do(t, http.MethodPost, "/api/v1/contacts", `{"code":"c2","name":"Bea","number":"555"}`)
	require.Equal(t, http.StatusCreated, resp.Code)
	body := decode[contactResponse](t, resp)
	require.Len(t, body.Violations, 1)
	assert.Equal(t, domain.SeverityWarn, body.Violations[0].Severity)
}

func TestListAndSearch(t *testing.T) {
	f := newFixture(t)
	for _, body := range []string{
		`{"code":"c1","name":"Ada","surname":"Lovelace"}`,
		`{"code":"c2","name":"Grace","surname":"Hopper"}`,
	} {
		require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/v1/contacts", body).Code)
	}

	list := decode[listResponse](t, f.do(t, http.MethodGet, "/api/v1/contacts", ""))
	require.Len(t, list.Contacts, 2)
	assert.Equal(t, "c2", list.Contacts[0].Code(), "ordered by surname")

	found := decode[listResponse](t, f.do(t, http.MethodGet, "/api/v1/contacts?q=love", ""))
	require.Len(t, found.Contacts, 1)
	assert.Equal(t, "c1", found.Contacts[0].Code())

	resp := f.do(t, http.MethodGet, "/api/v1/contacts?q=zzz", "")
	assert.JSONEq(t, `{"contacts":[]}`, resp.Body.String())
}

func TestExportAndImport(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/v1/contacts", `{"code":"c1","name":"Ada"}`).Code)

	resp := f.do(t, http.MethodPost, "/api/v1/contacts/export", `{"key":"exports/book.json"}`)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	info := decode[map[string]any](t, resp)
	assert.Equal(t, "exports/book.json", info["key"])

	resp = f.do(t, http.MethodPost, "/api/v1/contacts/export", `{"key":"exports/book.json"}`)
	require.Equal(t, http.StatusConflict, resp.Code)

	resp = f.do(t, http.MethodPost, "/api/v1/contacts/export", "")
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.True(t, strings.HasPrefix(decode[map[string]any](t, resp)["key"].(string), "exports/contacts-"))

	_, rc, err := f.blobs.Get(context.Background(), "exports/book.json")
	require.NoError(t, err)
	payload, _ := io.ReadAll(rc)
	_ = rc.Close()

	resp = f.do(t, http.MethodPost, "/api/v1/contacts/import?mode=replace", `[{"code":"c9","name":"Solo"}]`)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	report := decode[core.ImportReport](t, resp)
	assert.Equal(t, core.ImportReport{Mode: core.ImportReplace, Added: 1, Removed: 1}, report)

	resp = f.do(t, http.MethodPost, "/api/v1/contacts/import", string(payload))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, core.ImportReport{Mode: core.ImportMerge, Added: 1}, decode[core.ImportReport](t, resp))
}

func TestExportWithoutBlobStore(t *testing.T) {
	svc := core.NewInMemoryService(core.NewDefaultRulesEngine())
	h := NewHandler(svc, nil).Routes()
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/contacts/export", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestBodyLimit(t *testing.T) {
	f := newFixture(t)
	big := `{"code":"c1","name":"` + strings.Repeat("a", maxRequestBodySize) + `"}`
	resp := f.do(t, http.MethodPost, "/api/v1/contacts", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)

	bigList := "[" + strings.Repeat(`{"code":"x","name":"y"},`, maxRequestBodySize/20) + `{"code":"z","name":"y"}]`
	resp = f.do(t, http.MethodPost, "/api/v1/contacts/import", bigList)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)
}

func TestHealthMetricsAndRequestID(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"status":"ok"}`, resp.Body.String())
	generated := resp.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)

	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/v1/contacts", `{"code":"c1","name":"Ada"}`).Code)
	resp = f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `contactbook_service_operations_total{operation="add_contact",status="success"} 1`)

	const supplied = "3f1c9a52-5a34-4c1e-9d0c-0d7c8b1e2f44"
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, supplied)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, supplied, rec.Header().Get(RequestIDHeader))

	entries := f.logs.FilterMessage("http request").FilterField(zap.String("request_id", supplied)).All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(http.StatusOK), entries[0].ContextMap()["status"])
}

func TestOpenAPIDocument(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/openapi.yaml", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/yaml", resp.Header().Get("Content-Type"))
	assert.Contains(t, resp.Body.String(), "/api/v1/contacts/{code}:")
}

func TestRequestIDFromContextDefault(t *testing.T) {
	assert.Empty(t, RequestIDFromContext(context.Background()))
}
