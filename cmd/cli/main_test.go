package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zlibsearch/internal/api"
)

func TestExecuteRequestPrintsTable(t *testing.T) {
	var gotLimit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("limit")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"books":[{"id":42,"title":"Hitchhiker's Guide","author":"Douglas Adams","extension":"epub","year":1979}]}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	lim := uint(3)
	require.NoError(t, executeRequest(&out, api.NewClient(srv.URL, time.Second), "guide", &lim))

	assert.Equal(t, "3", gotLimit)
	assert.Contains(t, out.String(), "Hitchhiker's Guide")
	assert.Contains(t, out.String(), "Douglas Adams")
	assert.Contains(t, out.String(), "1979")
	assert.Contains(t, out.String(), "1 books in")
}

func TestExecuteRequestSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.WriteError(w, http.StatusInternalServerError, api.CodeEngineError, "search failed", nil)
	}))
	defer srv.Close()

	err := executeRequest(&bytes.Buffer{}, api.NewClient(srv.URL, time.Second), "x", nil)
	var se *api.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Status)
	assert.Equal(t, api.CodeEngineError, se.Body.Code)
}

func TestClip(t *testing.T) {
	assert.Equal(t, "abc", clip("abc", 5))
	assert.Equal(t, "Мас…", clip("Мастер", 4))
}
