package atdw

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gotourism_loader/config"
	"gotourism_loader/metrics"
	"gotourism_loader/pkg/middleware"
)

type BaseClient struct {
	ApiURL string
	apiKey string
	log    *zap.Logger
	client *http.Client

	limiter           *rate.Limiter
	maxRetries        int
	backoffFactor     float64
	defaultRetryAfter time.Duration
	retryDelay        time.Duration
	sleep             func(ctx context.Context, d time.Duration) error
}

func NewBaseClient(cfg config.ATDWConfig, log *zap.Logger) *BaseClient {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	factor := cfg.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	return &BaseClient{
		ApiURL:            cfg.BaseURL,
		apiKey:            cfg.APIKey,
		log:               log,
		client:            &http.Client{Timeout: timeout, Transport: middleware.NewMetricsTransport(nil)},
		limiter:           rate.NewLimiter(limit, 1),
		maxRetries:        cfg.MaxRetries,
		backoffFactor:     factor,
		defaultRetryAfter: cfg.DefaultRetryAfter,
		retryDelay:        cfg.RetryDelay,
		sleep:             sleepContext,
	}
}

type retryableError struct {
	reason string
	wait   time.Duration
	cause  error
}

func (e *retryableError) Error() string { return e.cause.Error() }
func (e *retryableError) Unwrap() error { return e.cause }

// get performs a GET with the API key attached, retrying 429 and network
// failures with exponential backoff. The body is returned as UTF-8.
func (c *BaseClient) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("key", c.apiKey)
	if q.Get("out") == "" {
		q.Set("out", "json")
	}

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		body, err := c.doRequest(ctx, endpoint, q)
		if err == nil {
			return body, nil
		}

		var retry *retryableError
		if !errors.As(err, &retry) {
			return nil, err
		}
		if attempt >= c.maxRetries {
			return nil, fmt.Errorf("%w: %s after %d attempts: %v", ErrRetriesExhausted, endpoint, attempt+1, retry.cause)
		}

		wait := time.Duration(float64(retry.wait) * math.Pow(c.backoffFactor, float64(attempt)))
		metrics.RecordRetry(endpoint, retry.reason)
		c.log.Warn("retrying request",
			zap.String("endpoint", endpoint),
			zap.String("reason", retry.reason),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", c.maxRetries),
			zap.Duration("wait", wait),
		)
		if err := c.sleep(ctx, wait); err != nil {
			return nil, fmt.Errorf("request was cancelled: %w", err)
		}
	}
}

func (c *BaseClient) doRequest(ctx context.Context, endpoint string, q url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(middleware.WithEndpoint(ctx, endpoint), http.MethodGet, c.ApiURL+endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("request was cancelled: %w", ctx.Err())
		}
		return nil, &retryableError{reason: "network", wait: c.retryDelay, cause: fmt.Errorf("failed to execute request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &retryableError{
			reason: "rate_limited",
			wait:   c.retryAfter(resp.Header.Get("Retry-After")),
			cause:  fmt.Errorf("%s returned 429", endpoint),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Code: resp.StatusCode, Endpoint: endpoint}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &retryableError{reason: "network", wait: c.retryDelay, cause: fmt.Errorf("failed to read response body: %w", err)}
	}
	return decodeBody(resp.Header.Get("Content-Type"), raw)
}

// retryAfter понимает секунды и HTTP-дату; иначе берётся значение по умолчанию.
func (c *BaseClient) retryAfter(header string) time.Duration {
	if header != "" {
		if secs, err := strconv.Atoi(header); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
		if t, err := http.ParseTime(header); err == nil {
			if d := time.Until(t); d > 0 {
				return d
			}
			return 0
		}
	}
	return c.defaultRetryAfter
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
