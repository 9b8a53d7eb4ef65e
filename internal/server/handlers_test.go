package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"zlibsearch/internal/api"
	"zlibsearch/internal/config"
	"zlibsearch/internal/metrics"
	"zlibsearch/internal/search"
)

type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) Search(ctx context.Context, query string, limit uint) ([]search.Book, error) {
	args := m.Called(ctx, query, limit)
	books, _ := args.Get(0).([]search.Book)
	return books, args.Error(1)
}

func fiveBooks() []search.Book {
	return []search.Book{
		{ID: 50, Title: "Programming Rust"},
		{ID: 10, Title: "The Rust Programming Language"},
		{ID: 40, Title: "Rust in Action"},
		{ID: 20, Title: "Rust for Rustaceans"},
		{ID: 30, Title: "Zero To Production In Rust"},
	}
}

func newTestRouter(engine search.Engine) http.Handler {
	return NewRouter(NewState(engine, nil, search.DefaultLimit), RouterOptions{})
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestSearchWithLimit(t *testing.T) {
	engine := new(mockEngine)
	engine.On("Search", mock.Anything, "rust", uint(5)).Return(fiveBooks(), nil).Once()

	rec := do(t, newTestRouter(engine), http.MethodGet, "/search?query=rust&limit=5")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got search.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, fiveBooks(), got.Books, "engine order is preserved")
	engine.AssertExpectations(t)
}

func TestSearchDefaultLimitIs30(t *testing.T) {
	engine := new(mockEngine)
	engine.On("Search", mock.Anything, "test", uint(30)).Return([]search.Book{}, nil).Once()

	rec := do(t, newTestRouter(engine), http.MethodGet, "/search?query=test")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"books":[]}`, rec.Body.String())
	engine.AssertExpectations(t)
}

func TestSearchLimitPassedThroughUnclamped(t *testing.T) {
	for _, tc := range []struct {
		raw  string
		want uint
	}{
		{"0", 0},
		{"1", 1},
		{"100000", 100000},
		{"007", 7},
		{"%2B3", 3},
	} {
		t.Run(tc.raw, func(t *testing.T) {
			engine := new(mockEngine)
			engine.On("Search", mock.Anything, "q", tc.want).Return(nil, nil).Once()

			rec := do(t, newTestRouter(engine), http.MethodGet, "/search?query=q&limit="+tc.raw)

			assert.Equal(t, http.StatusOK, rec.Code)
			engine.AssertExpectations(t)
		})
	}
}

func TestSearchEmptyQueryPassedVerbatim(t *testing.T) {
	engine := new(mockEngine)
	engine.On("Search", mock.Anything, "", uint(30)).Return([]search.Book{}, nil).Once()

	rec := do(t, newTestRouter(engine), http.MethodGet, "/search?query=")

	assert.Equal(t, http.StatusOK, rec.Code)
	engine.AssertExpectations(t)
}

func TestSearchQueryIsDecodedNotTrimmed(t *testing.T) {
	engine := new(mockEngine)
	engine.On("Search", mock.Anything, " Стивен Кинг ", uint(30)).Return([]search.Book{}, nil).Once()

	rec := do(t, newTestRouter(engine), http.MethodGet, "/search?query=+%D0%A1%D1%82%D0%B8%D0%B2%D0%B5%D0%BD+%D0%9A%D0%B8%D0%BD%D0%B3+")

	assert.Equal(t, http.StatusOK, rec.Code)
	engine.AssertExpectations(t)
}

func TestSearchQueryDecodingIsLenient(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"semicolon", "/search?query=C;%20the%20language", "C; the language"},
		{"trailing percent", "/search?query=100%", "100%"},
		{"malformed escape", "/search?query=%zz", "%zz"},
		{"short escape", "/search?query=50%2", "50%2"},
		{"escape next to text", "/search?query=%41%zzB", "A%zzB"},
		{"no equals sign", "/search?query", ""},
		{"empty pairs", "/search?&&query=go&", "go"},
		{"escaped key", "/search?%71uery=go", "go"},
		{"invalid utf-8", "/search?query=%FF", "\uFFFD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := new(mockEngine)
			engine.On("Search", mock.Anything, tt.want, uint(30)).Return([]search.Book{}, nil).Once()

			rec := do(t, newTestRouter(engine), http.MethodGet, tt.target)

			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			engine.AssertExpectations(t)
		})
	}
}

func TestSearchBadRequestsNeverReachEngine(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"missing query", "/search"},
		{"missing query with limit", "/search?limit=5"},
		{"non numeric limit", "/search?query=test&limit=abc"},
		{"negative limit", "/search?query=test&limit=-1"},
		{"empty limit", "/search?query=test&limit="},
		{"fractional limit", "/search?query=test&limit=1.5"},
		{"overflowing limit", "/search?query=test&limit=99999999999999999999999"},
		{"duplicate query", "/search?query=a&query=b"},
		{"duplicate limit", "/search?query=a&limit=1&limit=2"},
		{"double plus limit", "/search?query=a&limit=%2B%2B3"},
		{"lone plus limit", "/search?query=a&limit=%2B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := new(mockEngine)

			rec := do(t, newTestRouter(engine), http.MethodGet, tt.target)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var env api.ErrorEnvelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			assert.Equal(t, api.CodeBadRequest, env.Error.Code)
			engine.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestSearchEngineErrorIsNotSwallowed(t *testing.T) {
	engine := new(mockEngine)
	engine.On("Search", mock.Anything, "rust", uint(30)).Return(nil, errors.New("index unavailable")).Once()

	rec := do(t, newTestRouter(engine), http.MethodGet, "/search?query=rust")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"books"`)
	var env api.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, api.CodeEngineError, env.Error.Code)
	engine.AssertExpectations(t)
}

func TestHealthIsEmpty200(t *testing.T) {
	engine := new(mockEngine)
	h := newTestRouter(engine)

	for _, method := range []string{http.MethodGet, http.MethodHead} {
		rec := do(t, h, method, "/")
		assert.Equal(t, http.StatusOK, rec.Code, method)
		assert.Empty(t, rec.Body.String(), method)
	}
	engine.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
}

func TestResultRoundTripKeepsCountAndOrder(t *testing.T) {
	for _, k := range []int{0, 1, 5, 250} {
		books := make([]search.Book, k)
		for i := range books {
			books[i] = search.Book{ID: uint64(k - i)}
		}
		engine := new(mockEngine)
		engine.On("Search", mock.Anything, "x", uint(k)).Return(books, nil).Once()

		rec := do(t, newTestRouter(engine), http.MethodGet, "/search?query=x&limit="+strconv.Itoa(k))
		require.Equal(t, http.StatusOK, rec.Code)

		var raw map[string][]map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
		require.Len(t, raw["books"], k)
		for i, b := range raw["books"] {
			assert.EqualValues(t, k-i, b["id"])
		}
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	h := newTestRouter(new(mockEngine))

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/nope").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodPost, "/search?query=x").Code)
}

func TestRouterOptions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewHTTP(reg)
	engine := new(mockEngine)
	engine.On("Search", mock.Anything, "go", uint(30)).Return([]search.Book{{ID: 1}}, nil)

	h := NewRouter(NewState(engine, m, 0), RouterOptions{
		Metrics:        m,
		MetricsPath:    "/metrics",
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORS:           true,
		RateLimit:      config.RateLimitConfig{RPS: 0.0001, Burst: 1},
	})

	first := do(t, h, http.MethodGet, "/search?query=go")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "*", first.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, first.Header().Get("X-Request-ID"))

	assert.Equal(t, http.StatusTooManyRequests, do(t, h, http.MethodGet, "/search?query=go").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/").Code, "health is not rate limited")

	scrape := do(t, h, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, scrape.Code)
	assert.Contains(t, scrape.Body.String(), `zlibsearch_http_requests_total{method="GET",route="/search",status="200"} 1`)
	assert.Contains(t, scrape.Body.String(), `zlibsearch_http_requests_total{method="GET",route="/search",status="429"} 1`)
	assert.Contains(t, scrape.Body.String(), "zlibsearch_search_books_returned_count 1")
}

func TestBindQuery(t *testing.T) {
	q, err := bindQuery("query=a+b&limit=12", 30)
	require.NoError(t, err)
	assert.Equal(t, search.Query{Query: "a b", Limit: 12}, q)

	q, err = bindQuery("limit=3&query=x&extra=1", 30)
	require.NoError(t, err)
	assert.Equal(t, search.Query{Query: "x", Limit: 3}, q, "unknown parameters are ignored")

	q, err = bindQuery("query=a;b&limit=%2B4", 30)
	require.NoError(t, err)
	assert.Equal(t, search.Query{Query: "a;b", Limit: 4}, q)

	_, err = bindQuery("", 30)
	assert.ErrorIs(t, err, errMissingQuery)

	_, err = bindQuery("query=a&query=b", 30)
	assert.ErrorIs(t, err, errDuplicate)
}
