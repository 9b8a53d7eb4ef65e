package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// HTTP holds the collectors of the search API.
type HTTP struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	BooksReturned   prometheus.Histogram
	EngineErrors    prometheus.Counter
}

// NewHTTP registers the API collectors on reg.
func NewHTTP(reg prometheus.Registerer) *HTTP {
	f := promauto.With(reg)
	return &HTTP{
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zlibsearch_http_requests_total",
			Help: "Total number of HTTP requests to the search API",
		}, []string{"method", "route", "status"}),

		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "zlibsearch_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),

		BooksReturned: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "zlibsearch_search_books_returned",
			Help:    "Number of books returned per search",
			Buckets: []float64{0, 1, 5, 10, 30, 100, 500, 1000},
		}),

		EngineErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "zlibsearch_search_engine_errors_total",
			Help: "Searches that failed inside the engine",
		}),
	}
}

// ObserveSearch records the outcome of one engine call.
func (m *HTTP) ObserveSearch(books int, err error) {
	if err != nil {
		m.EngineErrors.Inc()
		return
	}
	m.BooksReturned.Observe(float64(books))
}

// Ingest holds the indexer collectors on a private registry so they can be
// pushed to a Pushgateway at the end of a run.
type Ingest struct {
	Registry      *prometheus.Registry
	Records       *prometheus.CounterVec
	BatchDuration prometheus.Histogram
}

func NewIngest() *Ingest {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Ingest{
		Registry: reg,
		Records: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zlibsearch_ingest_records_total",
			Help: "Records read from the dump, by outcome",
		}, []string{"status"}),
		BatchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "zlibsearch_ingest_batch_duration_seconds",
			Help:    "Time spent writing one batch to the index",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Ingest) ObserveRecord(status string) {
	m.Records.WithLabelValues(status).Inc()
}

func (m *Ingest) ObserveBatch(_ int, took time.Duration) {
	m.BatchDuration.Observe(took.Seconds())
}

// Push sends the collected ingest metrics to a Pushgateway.
func (m *Ingest) Push(ctx context.Context, url, job string) error {
	return push.New(url, job).Gatherer(m.Registry).PushContext(ctx)
}
