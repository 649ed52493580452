package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := HTTPLoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte("quota"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/analyze?async=true", nil)
	req.Header.Set("X-User", "alice")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "http_request", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "POST", entry["method"])
	assert.Equal(t, "/api/analyze", entry["path"])
	assert.Equal(t, "async=true", entry["query"])
	assert.Equal(t, float64(http.StatusPaymentRequired), entry["status"])
	assert.Equal(t, float64(5), entry["bytes"])
	assert.Equal(t, "alice", entry["user"])
	assert.Equal(t, "", entry["trace_id"])
}

func TestHTTPLoggingMiddlewareServerErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := HTTPLoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
}

func TestHTTPErrorLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	HTTPErrorLogger(logger, http.StatusBadGateway, errors.New("sidecar down"), httptest.NewRequest(http.MethodPost, "/api/rewrite", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "http_error", entry["msg"])
	assert.Equal(t, "sidecar down", entry["error"])
	assert.Equal(t, float64(http.StatusBadGateway), entry["status"])
}
