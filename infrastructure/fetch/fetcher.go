// Package fetch retrieves page text over HTTP.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/felixgeelhaar/nosql/infrastructure/logging"
	"github.com/felixgeelhaar/nosql/infrastructure/resilience"
	"github.com/felixgeelhaar/nosql/infrastructure/telemetry"
)

// ErrInvalidURL is returned when a request cannot be built for a URL.
var ErrInvalidURL = errors.New("invalid url")

// Config configures the HTTP fetcher.
type Config struct {
	// Timeout bounds a single fetch, including reading the body.
	Timeout time.Duration
	// MaxConcurrent limits in-flight fetches. Further fetches wait for a
	// slot.
	MaxConcurrent int
	// MaxQueue is how many fetches may wait for a slot.
	MaxQueue int
	// MaxBodyBytes caps the body that is read. Zero means unlimited.
	MaxBodyBytes int64
	// UserAgent is the User-Agent header value.
	UserAgent string
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:       30 * time.Second,
		MaxConcurrent: 10,
		MaxQueue:      1024,
		UserAgent:     "nosql-page-cache/1.0",
	}
}

// Option configures the fetcher.
type Option func(*HTTPFetcher)

// WithHTTPClient replaces the HTTP client. The client's transport is used
// as is.
func WithHTTPClient(client *http.Client) Option {
	return func(f *HTTPFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m telemetry.Metrics) Option {
	return func(f *HTTPFetcher) {
		if m != nil {
			f.metrics = m
		}
	}
}

// HTTPFetcher performs GET requests and returns the body as text.
type HTTPFetcher struct {
	config   Config
	client   *http.Client
	executor *resilience.Executor[string]
	metrics  telemetry.Metrics
}

// NewHTTPFetcher creates a fetcher. The default client is instrumented with
// otelhttp.
func NewHTTPFetcher(config Config, opts ...Option) *HTTPFetcher {
	defaults := DefaultConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = defaults.MaxConcurrent
	}
	if config.MaxQueue <= 0 {
		config.MaxQueue = defaults.MaxQueue
	}
	if config.UserAgent == "" {
		config.UserAgent = defaults.UserAgent
	}

	f := &HTTPFetcher{
		config: config,
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		executor: resilience.NewExecutorWithOptions[string](
			resilience.WithMaxConcurrent(config.MaxConcurrent),
			resilience.WithMaxQueue(config.MaxQueue),
			resilience.WithTimeout(config.Timeout),
		),
		metrics: telemetry.NoopMetricsProvider{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the body of url. Non-2xx responses are returned like any
// other body and logged at warn level.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	return f.executor.Execute(ctx, func(ctx context.Context) (string, error) {
		return f.get(ctx, url)
	})
}

// Close releases the fetcher's queue worker. Fetches must not be in flight.
func (f *HTTPFetcher) Close() error {
	return f.executor.Close()
}

func (f *HTTPFetcher) get(ctx context.Context, url string) (string, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		f.metrics.RecordFetch(ctx, 0, time.Since(start))
		logging.Error().
			Add(logging.URL(url)).
			Add(logging.ErrorField(err)).
			Msg("fetch failed")
		return "", err
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if f.config.MaxBodyBytes > 0 {
		body = io.LimitReader(resp.Body, f.config.MaxBodyBytes)
	}
	text, err := io.ReadAll(body)
	duration := time.Since(start)
	f.metrics.RecordFetch(ctx, resp.StatusCode, duration)
	if err != nil {
		return "", fmt.Errorf("read body of %s: %w", url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logging.Warn().
			Add(logging.URL(url)).
			Add(logging.StatusCode(resp.StatusCode)).
			Msg("non-success response")
	} else {
		logging.Debug().
			Add(logging.URL(url)).
			Add(logging.StatusCode(resp.StatusCode)).
			Add(logging.Duration(duration)).
			Msg("page fetched")
	}

	return string(text), nil
}
