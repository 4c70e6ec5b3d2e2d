package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/econdata/internal/app"
	"github.com/bobmcallan/econdata/internal/common"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := common.NewDefaultConfig()
	cfg.Platform.DefaultStore = "MEMORY"
	cfg.Storage.Text.Path = filepath.Join(t.TempDir(), "text")
	cfg.Storage.Badger.Path = ""

	a, err := app.NewAppWithConfig(context.Background(), cfg, common.NewSilentLogger())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return NewServer(a)
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rr := do(t, s, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestVersion(t *testing.T) {
	s := newTestServer(t)
	rr := do(t, s, http.MethodGet, "/api/version", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var info common.VersionInfo
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &info))
	assert.Equal(t, common.Version, info.Version)
}

func TestRegistry(t *testing.T) {
	s := newTestServer(t)
	rr := do(t, s, http.MethodGet, "/api/registry", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string][]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, []string{"MEMORY", "TEXT"}, body["stores"])
	assert.Contains(t, body["providers"], "TEST")
	assert.Equal(t, []string{"NOUPDATE", "SIMPLE"}, body["policies"])
}

func TestSeries_Fetch(t *testing.T) {
	s := newTestServer(t)
	rr := do(t, s, http.MethodGet, "/api/series/TEST@TEST1", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Ticker string `json:"ticker"`
		Record struct {
			FullTicker string `json:"full_ticker"`
		} `json:"record"`
		Observations []json.RawMessage `json:"observations"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "TEST@TEST1", resp.Ticker)
	assert.Equal(t, "TEST@TEST1", resp.Record.FullTicker)
	assert.Len(t, resp.Observations, 2)
}

func TestSeries_ErrorStatus(t *testing.T) {
	s := newTestServer(t)
	// policies only run on a cache hit
	require.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/series/TEST@TEST1", "").Code)

	tests := []struct {
		name   string
		path   string
		status int
		code   string
	}{
		{"invalid ticker", "/api/series/TEST@", http.StatusBadRequest, "invalid_ticker"},
		{"unknown provider", "/api/series/NOPE@X", http.StatusUnprocessableEntity, "unknown_code"},
		{"unknown store", "/api/series/TEST@TEST1?store=NOPE", http.StatusUnprocessableEntity, "unknown_code"},
		{"unknown policy", "/api/series/TEST@TEST1?policy=WEEKLY", http.StatusUnprocessableEntity, "unknown_code"},
		{"provider has no series", "/api/series/TEST@MISSING", http.StatusNotFound, "not_found"},
		{"push only", "/api/series/PUSH@X", http.StatusUnprocessableEntity, "push_only"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, s, http.MethodGet, tt.path, "")
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
			assert.Equal(t, tt.code, decodeError(t, rr).Code)
		})
	}
}

func TestMetadata(t *testing.T) {
	s := newTestServer(t)

	rr := do(t, s, http.MethodGet, "/api/metadata/TEST@TEST1", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	require.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/series/TEST@TEST1", "").Code)

	rr = do(t, s, http.MethodGet, "/api/metadata/TEST@TEST1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"full_ticker":"TEST@TEST1"`)
}

func TestSeriesURL(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/series/TEST@TEST1", "").Code)

	rr := do(t, s, http.MethodGet, "/api/url/TEST@TEST1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"url":"https://github.com/bobmcallan/econdata"}`, rr.Body.String())
}

func TestTransfer(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/series/TEST@TEST1", "").Code)

	rr := do(t, s, http.MethodPost, "/api/transfer/TEST@TEST1", `{"from":"MEMORY","to":"TEXT"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(t, s, http.MethodGet, "/api/metadata/TEST@TEST1?store=TEXT", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestTransfer_Validation(t *testing.T) {
	s := newTestServer(t)

	rr := do(t, s, http.MethodPost, "/api/transfer/TEST@TEST1", `{"from":"MEMORY"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, s, http.MethodPost, "/api/transfer/TEST@TEST1", `not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, s, http.MethodPost, "/api/transfer/TEST@TEST1", `{"from":"MEMORY","to":"MEMORY"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestRoutes_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t)
	rr := do(t, s, http.MethodPost, "/api/series/TEST@TEST1", "{}")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	rr = do(t, s, http.MethodGet, "/api/nothing", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
