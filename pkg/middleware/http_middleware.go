package middleware

import (
	"net/http"
	"time"

	"gotourism_loader/metrics"
)

// MetricsTransport оборачивает http.RoundTripper для сбора метрик исходящих запросов.
type MetricsTransport struct {
	Base http.RoundTripper
}

func NewMetricsTransport(base http.RoundTripper) *MetricsTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &MetricsTransport{Base: base}
}

func (t *MetricsTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	start := time.Now()

	resp, err := t.Base.RoundTrip(r)

	// Код 0 означает, что ответ не получен.
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	metrics.RecordRequest(r.Method, Endpoint(r), status, time.Since(start))
	return resp, err
}
