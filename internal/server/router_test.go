package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/invoicing/internal/lock"
	"github.com/diewo77/invoicing/internal/repository"
	"github.com/diewo77/invoicing/internal/services"
	"github.com/diewo77/invoicing/internal/testutil"
)

func newHandler(t *testing.T, logOut *bytes.Buffer) http.Handler {
	t.Helper()
	gdb := testutil.DB(t)
	store := repository.New(gdb)
	log := zerolog.New(logOut)
	return New(Deps{
		DB:       gdb,
		Invoices: services.NewInvoiceService(store, lock.NewKeyedMutex(), log),
		Catalog:  services.NewCatalogService(store, log),
		Log:      log,
	})
}

func TestHealthz(t *testing.T) {
	h := newHandler(t, &bytes.Buffer{})
	for _, path := range []string{"/health", "/healthz"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	}
}

func TestNotFoundAndMethodNotAllowedAreJSON(t *testing.T) {
	h := newHandler(t, &bytes.Buffer{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"not_found"}`, w.Body.String())

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/invoices", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRequestLogging(t *testing.T) {
	var logs bytes.Buffer
	h := newHandler(t, &logs)

	req := httptest.NewRequest(http.MethodPost, "/suppliers", strings.NewReader(`{"code":"ACME","name":"Acme"}`))
	req.Header.Set("X-Request-Id", "req-123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var found bool
	for _, line := range bytes.Split(bytes.TrimSpace(logs.Bytes()), []byte("\n")) {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		if entry["message"] != "request" {
			continue
		}
		found = true
		assert.Equal(t, "POST", entry["method"])
		assert.Equal(t, "/suppliers", entry["path"])
		assert.EqualValues(t, 201, entry["status"])
		assert.Equal(t, "req-123", entry["request_id"])
	}
	assert.True(t, found, logs.String())
}

func TestRecoverReturnsJSON(t *testing.T) {
	var logs bytes.Buffer
	h := withRecover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(zerolog.New(&logs).WithContext(req.Context()))
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal_error"}`, w.Body.String())
	assert.Contains(t, logs.String(), "boom")
}
