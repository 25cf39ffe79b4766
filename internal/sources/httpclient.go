package sources

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/skimlabs/curation-service/internal/domain"
	"github.com/skimlabs/curation-service/internal/observability"
)

// HTTPClientConfig configures the HTTP client.
type HTTPClientConfig struct {
	// Timeout is the request timeout for HTTP operations.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxRetries is the maximum number of attempts for rate-limited requests.
	MaxRetries int

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// APIKey is an optional API key for authentication.
	APIKey string

	// APIKeyHeader is the header name for the API key (e.g., "x-api-key").
	APIKeyHeader string

	// Metrics records per-request observations. May be nil.
	Metrics *observability.Metrics
}

// HTTPClient wraps http.Client with rate limiting and retry on throttling.
// It is safe for concurrent use.
//
// Retry policy: a 429 response is retried with exponential backoff plus
// uniform jitter (2^attempt + rand[0,1) seconds) up to MaxRetries attempts.
// A 403 fails immediately with domain.ErrForbidden, since it signals a key
// or permission problem that retrying cannot fix. All other non-2xx
// responses fail immediately on the first attempt.
type HTTPClient struct {
	client      *http.Client
	rateLimiter *RateLimiter
	config      HTTPClientConfig
	source      string
	metrics     *observability.Metrics

	// sleep and jitter are swappable in tests.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

// NewHTTPClient creates a new HTTP client with rate limiting.
func NewHTTPClient(source string, cfg HTTPClientConfig) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 1
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = 1
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Skim-CurationService/1.0"
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: NewRateLimiter(cfg.RateLimit, cfg.BurstSize),
		config:      cfg,
		source:      source,
		metrics:     cfg.Metrics,
		sleep:       sleepContext,
		jitter:      rand.Float64,
	}
}

// Do executes an HTTP request with rate limiting and throttling retries.
// It waits for the rate limiter before each attempt and sets the User-Agent
// and optional API key headers.
//
// The request body is not preserved across retries; callers must provide
// requests with GetBody set if the body needs to be resent on retry.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	if c.config.APIKey != "" && c.config.APIKeyHeader != "" {
		req.Header.Set(c.config.APIKeyHeader, c.config.APIKey)
	}

	endpoint := req.URL.Path

	for attempt := 0; attempt < c.config.MaxRetries; attempt++ {
		if err := c.rateLimiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		start := time.Now()
		resp, err := c.client.Do(req)
		if err != nil {
			if c.metrics != nil {
				c.metrics.RecordSourceRequestFailed(c.source, endpoint, "network")
			}
			return nil, fmt.Errorf("request failed: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			drainBody(resp)
			if c.metrics != nil {
				c.metrics.RecordSourceRateLimited(c.source)
			}
			delay := c.backoffDelay(attempt)
			if attempt == c.config.MaxRetries-1 {
				if c.metrics != nil {
					c.metrics.RecordSourceRequestFailed(c.source, endpoint, "rate_limited")
				}
				return nil, domain.NewRateLimitError(c.source, delay)
			}
			if c.metrics != nil {
				c.metrics.RecordSourceRetry(c.source)
			}
			if err := c.sleep(req.Context(), delay); err != nil {
				return nil, err
			}
			if err := resetRequestBody(req); err != nil {
				return nil, fmt.Errorf("cannot retry request: %w", err)
			}

		case resp.StatusCode == http.StatusForbidden:
			drainBody(resp)
			if c.metrics != nil {
				c.metrics.RecordSourceRequestFailed(c.source, endpoint, "forbidden")
			}
			return nil, domain.NewExternalAPIError(c.source, resp.StatusCode, "access forbidden, check API key", domain.ErrForbidden)

		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			drainBody(resp)
			if c.metrics != nil {
				c.metrics.RecordSourceRequestFailed(c.source, endpoint, "status")
			}
			return nil, domain.NewExternalAPIError(c.source, resp.StatusCode, "unexpected status", nil)

		default:
			if c.metrics != nil {
				c.metrics.RecordSourceRequest(c.source, endpoint, time.Since(start).Seconds())
			}
			return resp, nil
		}
	}

	return nil, domain.NewRateLimitError(c.source, 0)
}

// backoffDelay computes the wait before the next attempt:
// 2^attempt seconds plus uniform jitter in [0, 1) seconds.
func (c *HTTPClient) backoffDelay(attempt int) time.Duration {
	seconds := math.Pow(2, float64(attempt)) + c.jitter()
	return time.Duration(seconds * float64(time.Second))
}

// sleepContext waits for the duration, respecting context cancellation.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// drainBody consumes and closes a response body so the connection can be reused.
func drainBody(resp *http.Response) {
	if resp.Body != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
}

// resetRequestBody resets the request body for retry if possible.
func resetRequestBody(req *http.Request) error {
	if req.Body == nil || req.GetBody == nil {
		return nil
	}

	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("failed to get request body for retry: %w", err)
	}
	req.Body = body
	return nil
}
