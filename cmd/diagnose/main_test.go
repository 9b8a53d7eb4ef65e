package main

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zlibsearch/internal/api"
	"zlibsearch/internal/healthcheck"
)

func fakeAPI(t *testing.T, searchStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		if searchStatus != http.StatusOK {
			api.WriteError(w, searchStatus, api.CodeEngineError, "search failed", nil)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"books":[]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestDiagnoseHTTPOnly(t *testing.T) {
	srv := fakeAPI(t, http.StatusOK)
	var out bytes.Buffer

	ok := diagnose(context.Background(), &out, srv.URL, "", "test")

	assert.True(t, ok)
	assert.Contains(t, out.String(), "Books: 0")
	assert.NotContains(t, out.String(), "[3]")
}

func TestDiagnoseReportsSearchFailure(t *testing.T) {
	srv := fakeAPI(t, http.StatusInternalServerError)
	var out bytes.Buffer

	ok := diagnose(context.Background(), &out, srv.URL, "", "test")

	assert.False(t, ok)
	assert.Contains(t, out.String(), "engine_error")
}

func TestDiagnoseGRPCHealth(t *testing.T) {
	srv := fakeAPI(t, http.StatusOK)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	hs := healthcheck.New()
	go func() { _ = hs.Serve(ln) }()
	t.Cleanup(hs.Stop)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	assert.False(t, diagnose(ctx, &out, srv.URL, ln.Addr().String(), "x"), "NOT_SERVING must fail")
	assert.Contains(t, out.String(), "NOT_SERVING")

	hs.SetServing(true)
	out.Reset()
	assert.True(t, diagnose(ctx, &out, srv.URL, ln.Addr().String(), "x"))
	assert.Contains(t, out.String(), "SERVING")
}
