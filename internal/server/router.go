package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"zlibsearch/internal/api"
	"zlibsearch/internal/config"
	"zlibsearch/internal/metrics"
	"zlibsearch/internal/middleware"
)

// RouterOptions carries the optional parts of the HTTP surface.
type RouterOptions struct {
	Metrics        *metrics.HTTP // nil disables instrumentation
	MetricsPath    string
	MetricsHandler http.Handler // nil disables the scrape endpoint
	CORS           bool
	RateLimit      config.RateLimitConfig
}

// NewRouter registers GET / and GET /search, plus the scrape endpoint when
// configured. Only /search is rate limited.
func NewRouter(st *State, opts RouterOptions) http.Handler {
	h := NewHandler(st)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger)
	if opts.Metrics != nil {
		r.Use(middleware.Metrics(opts.Metrics))
	}
	if opts.CORS {
		r.Use(middleware.CORS)
	}
	r.Use(chimw.GetHead)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		api.WriteError(w, http.StatusNotFound, api.CodeNotFound, "no such route", r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		api.WriteError(w, http.StatusMethodNotAllowed, api.CodeBadRequest, "method not allowed", r.Method)
	})

	r.Get("/", h.Health)

	r.Group(func(r chi.Router) {
		if opts.RateLimit.RPS > 0 {
			r.Use(middleware.RateLimit(opts.RateLimit.RPS, opts.RateLimit.Burst))
		}
		r.Get("/search", h.Search)
	})

	if opts.MetricsHandler != nil && opts.MetricsPath != "" {
		r.Method(http.MethodGet, opts.MetricsPath, opts.MetricsHandler)
	}

	return r
}
