package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	upstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atdw_requests_total",
			Help: "Total number of requests sent to the ATDW API.",
		},
		[]string{"method", "endpoint", "status"},
	)
	upstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "atdw_request_duration_seconds",
			Help:    "Histogram of ATDW API request durations.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "endpoint", "status"},
	)
	upstreamRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atdw_retries_total",
			Help: "Retries caused by rate limiting or network failures.",
		},
		[]string{"endpoint", "reason"},
	)
	productsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loader_products_total",
			Help: "Products handled by the loader, by outcome.",
		},
		[]string{"outcome"},
	)
	batchCommitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loader_batch_commits_total",
			Help: "Batch transaction commits, by trigger.",
		},
		[]string{"trigger"},
	)
	attributesRegisteredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "loader_attributes_registered_total",
			Help: "Attribute definitions added to the catalog.",
		},
	)
)

func init() {
	prometheus.MustRegister(upstreamRequestsTotal)
	prometheus.MustRegister(upstreamRequestDuration)
	prometheus.MustRegister(upstreamRetriesTotal)
	prometheus.MustRegister(productsTotal)
	prometheus.MustRegister(batchCommitsTotal)
	prometheus.MustRegister(attributesRegisteredTotal)
}

// RecordRequest записывает метрики для запроса к API.
func RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	status := classifyStatus(statusCode)
	upstreamRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	upstreamRequestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
}

func RecordRetry(endpoint, reason string) {
	upstreamRetriesTotal.WithLabelValues(endpoint, reason).Inc()
}

// Product outcomes.
const (
	OutcomeInserted = "inserted"
	OutcomeUpdated  = "updated"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
)

func RecordProduct(outcome string) {
	productsTotal.WithLabelValues(outcome).Inc()
}

// RecordCommit counts a batch commit; trigger is "size", "failure", "idle",
// "discovery" or "final".
func RecordCommit(trigger string) {
	batchCommitsTotal.WithLabelValues(trigger).Inc()
}

func RecordAttributesRegistered(n int) {
	attributesRegisteredTotal.Add(float64(n))
}

// classifyStatus классифицирует HTTP-статус код в строку.
func classifyStatus(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "2xx"
	} else if statusCode == http.StatusTooManyRequests {
		return "429"
	} else if statusCode >= 300 && statusCode < 400 {
		return "3xx"
	} else if statusCode >= 400 && statusCode < 500 {
		return "4xx"
	} else if statusCode >= 500 && statusCode < 600 {
		return "5xx"
	}
	return "unknown"
}

// MetricsHandler возвращает HTTP-обработчик для экспорта метрик Prometheus.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
