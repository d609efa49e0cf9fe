// Package metrics exposes Prometheus collectors for the scrape pipeline and the report server.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache lookup results.
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

var (
	cacheLookupsTotal          *prometheus.CounterVec
	fetchesTotal               *prometheus.CounterVec
	fetchedBytesTotal          *prometheus.CounterVec
	rowsLoadedTotal            *prometheus.CounterVec
	unresolvedReferencesTotal  *prometheus.CounterVec
	pipelineRunsTotal          *prometheus.CounterVec
	rateLimitDelaySeconds      *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		cacheLookupsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "movierank_cache_lookups_total",
				Help: "Response cache lookups, labeled by result (hit or miss).",
			},
			[]string{"result"},
		)

		fetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "movierank_fetches_total",
				Help: "Network fetches performed on cache misses, labeled by site and status.",
			},
			[]string{"site", "status"},
		)

		fetchedBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "movierank_fetched_bytes_total",
				Help: "Bytes downloaded on cache misses, labeled by site.",
			},
			[]string{"site"},
		)

		rowsLoadedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "movierank_rows_loaded_total",
				Help: "Rows inserted into the store, labeled by table.",
			},
			[]string{"table"},
		)

		unresolvedReferencesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "movierank_unresolved_references_total",
				Help: "Movie rows inserted with a NULL reference, labeled by kind (country or rank).",
			},
			[]string{"kind"},
		)

		pipelineRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "movierank_pipeline_runs_total",
				Help: "Completed pipeline runs, labeled by status.",
			},
			[]string{"status"},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "movierank_rate_limit_delay_seconds",
				Help:    "Time spent waiting for a download token, labeled by site.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"site"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCacheLookup counts a cache hit or miss.
func ObserveCacheLookup(result string) {
	Init()
	cacheLookupsTotal.WithLabelValues(result).Inc()
}

// ObserveFetch records one network fetch and its payload size.
func ObserveFetch(site string, status string, bytesFetched int) {
	Init()
	sanitizedSite := SanitizeSite(site)
	fetchesTotal.WithLabelValues(sanitizedSite, status).Inc()
	if bytesFetched > 0 {
		fetchedBytesTotal.WithLabelValues(sanitizedSite).Add(float64(bytesFetched))
	}
}

// ObserveRowsLoaded adds n inserted rows for table.
func ObserveRowsLoaded(table string, n int) {
	Init()
	if n > 0 {
		rowsLoadedTotal.WithLabelValues(table).Add(float64(n))
	}
}

// ObserveUnresolvedReference counts a reference that resolved to NULL.
func ObserveUnresolvedReference(kind string) {
	Init()
	unresolvedReferencesTotal.WithLabelValues(kind).Inc()
}

// ObservePipelineRun counts a finished pipeline run.
func ObservePipelineRun(status string) {
	Init()
	pipelineRunsTotal.WithLabelValues(status).Inc()
}

// ObserveRateLimitDelay records how long a download waited for its token.
func ObserveRateLimitDelay(site string, delay time.Duration) {
	Init()
	rateLimitDelaySeconds.WithLabelValues(SanitizeSite(site)).Observe(delay.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
