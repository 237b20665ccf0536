// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ops

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ManuGH/dvrtalk/internal/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type staticChecker health.Status

func (s staticChecker) Name() string { return "static" }

func (s staticChecker) Check(context.Context) health.CheckResult {
	return health.CheckResult{Status: health.Status(s)}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "192.0.2.1:1234"
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouterEndpoints(t *testing.T) {
	hm := health.NewManager("v9")
	hm.RegisterChecker(staticChecker(health.StatusUnhealthy))
	r := NewRouter(RouterConfig{Health: hm, Version: "v9", Commands: []string{"pause"}})

	rec := get(t, r, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dvrtalk_http_requests_in_flight")

	assert.Equal(t, http.StatusOK, get(t, r, "/healthz").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, r, "/readyz").Code)

	rec = get(t, r, "/version")
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "v9", body["version"])
	assert.Equal(t, []any{"pause"}, body["commands"])
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))

	assert.Equal(t, http.StatusNotFound, get(t, r, "/nope").Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	r := NewRouter(RouterConfig{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	r.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get(HeaderRequestID))
}

func TestRateLimit(t *testing.T) {
	r := NewRouter(RouterConfig{RateLimit: 2})
	assert.Equal(t, http.StatusOK, get(t, r, "/version").Code)
	assert.Equal(t, http.StatusOK, get(t, r, "/version").Code)
	rec := get(t, r, "/version")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestRecoverer(t *testing.T) {
	h := Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := get(t, h, "/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}

func TestServeShutsDownOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, ln, NewRouter(RouterConfig{Version: "v1"})) }()

	client := &http.Client{Timeout: 2 * time.Second}
	res, err := client.Get("http://" + ln.Addr().String() + "/version")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, res.Body)
	require.NoError(t, res.Body.Close())
	assert.Equal(t, http.StatusOK, res.StatusCode)
	client.CloseIdleConnections()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("ops server did not stop")
	}
}
