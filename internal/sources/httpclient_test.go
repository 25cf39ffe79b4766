package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skimlabs/curation-service/internal/domain"
	"github.com/skimlabs/curation-service/internal/observability"
)

// newTestClient returns a client with instant sleeps and no jitter so
// retry tests run fast and deterministically.
func newTestClient(cfg HTTPClientConfig) (*HTTPClient, *[]time.Duration) {
	cfg.RateLimit = 1000
	cfg.BurstSize = 1000
	c := NewHTTPClient("test_source", cfg)

	var delays []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	c.jitter = func() float64 { return 0 }
	return c, &delays
}

func TestHTTPClient_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, _ := newTestClient(HTTPClientConfig{})

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTPClient_SetsHeaders(t *testing.T) {
	var gotUserAgent, gotAPIKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		gotAPIKey = r.Header.Get("x-api-key")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, _ := newTestClient(HTTPClientConfig{
		APIKey:       "secret-key",
		APIKeyHeader: "x-api-key",
	})

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "Skim-CurationService/1.0", gotUserAgent)
	assert.Equal(t, "secret-key", gotAPIKey)
}

func TestHTTPClient_RetriesOnRateLimit(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, delays := newTestClient(HTTPClientConfig{MaxRetries: 3})

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, 3, calls)
	// Exponential backoff: 2^0 then 2^1 seconds (jitter pinned to zero).
	require.Len(t, *delays, 2)
	assert.Equal(t, time.Second, (*delays)[0])
	assert.Equal(t, 2*time.Second, (*delays)[1])
}

func TestHTTPClient_RateLimitExhausted(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, _ := newTestClient(HTTPClientConfig{MaxRetries: 3})

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.True(t, errors.Is(err, domain.ErrRateLimited))
	assert.Equal(t, 3, calls)
}

func TestHTTPClient_ForbiddenNotRetried(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client, _ := newTestClient(HTTPClientConfig{MaxRetries: 3})

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	_, err = client.Do(req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	assert.Equal(t, 1, calls)

	var apiErr *domain.ExternalAPIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "test_source", apiErr.Source)
}

func TestHTTPClient_ServerErrorFailsImmediately(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, _ := newTestClient(HTTPClientConfig{MaxRetries: 3})

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	_, err = client.Do(req)
	require.Error(t, err)
	assert.Equal(t, 1, calls)

	var apiErr *domain.ExternalAPIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}

func TestHTTPClient_ContextCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, _ := newTestClient(HTTPClientConfig{MaxRetries: 3})
	client.sleep = sleepContext

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	_, err = client.Do(req)
	require.Error(t, err)
}

func TestHTTPClient_RecordsMetrics(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	m := observability.NewMetrics("test_httpclient")
	client, _ := newTestClient(HTTPClientConfig{MaxRetries: 3, Metrics: m})

	req, err := http.NewRequest(http.MethodGet, server.URL+"/paper/search", nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourceRequestsTotal.WithLabelValues("test_source", "/paper/search")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourceRateLimited.WithLabelValues("test_source")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourceRetries.WithLabelValues("test_source")))
}

func TestHTTPClient_RecordsFailureMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	m := observability.NewMetrics("test_httpclient_failures")
	client, _ := newTestClient(HTTPClientConfig{MaxRetries: 3, Metrics: m})

	req, err := http.NewRequest(http.MethodGet, server.URL+"/paper/search", nil)
	require.NoError(t, err)

	_, err = client.Do(req)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourceRequestsFailed.WithLabelValues("test_source", "/paper/search", "forbidden")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SourceRequestsTotal.WithLabelValues("test_source", "/paper/search")))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(100, 2)

	assert.True(t, rl.Allow())
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())

	require.NoError(t, rl.Wait(context.Background()))
}

func TestBackoffDelayIncludesJitter(t *testing.T) {
	c := NewHTTPClient("test_source", HTTPClientConfig{})
	c.jitter = func() float64 { return 0.5 }

	assert.Equal(t, 1500*time.Millisecond, c.backoffDelay(0))
	assert.Equal(t, 2500*time.Millisecond, c.backoffDelay(1))
}
