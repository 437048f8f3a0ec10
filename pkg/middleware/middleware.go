package middleware

import (
	"context"
	"net/http"
)

type endpointKey struct{}

// WithEndpoint помечает исходящий запрос логическим именем эндпоинта для метрик.
func WithEndpoint(ctx context.Context, endpoint string) context.Context {
	return context.WithValue(ctx, endpointKey{}, endpoint)
}

// Endpoint returns the label set by WithEndpoint, or the URL path.
func Endpoint(r *http.Request) string {
	if e, ok := r.Context().Value(endpointKey{}).(string); ok && e != "" {
		return e
	}
	return r.URL.Path
}
