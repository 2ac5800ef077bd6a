// Package web provides a page cache that counts URL accesses and keeps
// fetched pages for a short time.
package web

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/felixgeelhaar/nosql/domain/kv"
	"github.com/felixgeelhaar/nosql/domain/middleware"
	"github.com/felixgeelhaar/nosql/infrastructure/logging"
	"github.com/felixgeelhaar/nosql/infrastructure/telemetry"
)

const (
	// DefaultTTL is how long a fetched page stays cached.
	DefaultTTL = 10 * time.Second

	// DefaultCountPrefix prefixes the per-URL access counter key.
	DefaultCountPrefix = "count:"

	getPageOperation = "web.GetPage"
)

// Fetcher retrieves the text of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string) (string, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, url string) (string, error) {
	return f(ctx, url)
}

// PageCache serves page text from a key-value store, fetching on a miss.
type PageCache struct {
	store       kv.Store
	fetcher     Fetcher
	ttl         time.Duration
	countPrefix string
	metrics     telemetry.Metrics
	middleware  []middleware.Middleware
	getPage     middleware.Handler
}

// Option configures a PageCache.
type Option func(*PageCache)

// WithTTL sets how long fetched pages are cached.
func WithTTL(ttl time.Duration) Option {
	return func(p *PageCache) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// WithCountPrefix sets the prefix of the access counter keys. An empty
// prefix is ignored: the counter key must never equal the page key.
func WithCountPrefix(prefix string) Option {
	return func(p *PageCache) {
		if prefix != "" {
			p.countPrefix = prefix
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m telemetry.Metrics) Option {
	return func(p *PageCache) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithMiddleware adds middleware around every GetPage call, outside the
// access counter.
func WithMiddleware(ms ...middleware.Middleware) Option {
	return func(p *PageCache) {
		p.middleware = append(p.middleware, ms...)
	}
}

// NewPageCache creates a page cache over store that fetches with fetcher.
func NewPageCache(store kv.Store, fetcher Fetcher, opts ...Option) *PageCache {
	p := &PageCache{
		store:       store,
		fetcher:     fetcher,
		ttl:         DefaultTTL,
		countPrefix: DefaultCountPrefix,
		metrics:     telemetry.NoopMetricsProvider{},
	}
	for _, opt := range opts {
		opt(p)
	}

	chain := append(append([]middleware.Middleware{}, p.middleware...), p.countAccess, p.cacheResult)
	p.getPage = middleware.Chain(chain...)(p.fetch)
	return p
}

// GetPage returns the text of url. Every call increments the access
// counter of url, including calls served from the cache.
func (p *PageCache) GetPage(ctx context.Context, url string) (string, error) {
	result, err := p.getPage(ctx, &middleware.Invocation{
		Name: getPageOperation,
		Args: []any{url},
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// AccessCount returns how many times url has been requested.
func (p *PageCache) AccessCount(ctx context.Context, url string) (int64, error) {
	raw, found, err := p.store.Get(ctx, p.CountKey(url))
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	return parseCount(raw)
}

// CountKey returns the key of the access counter for url.
func (p *PageCache) CountKey(url string) string {
	return p.countPrefix + url
}

// TTL returns the cache lifetime of fetched pages.
func (p *PageCache) TTL() time.Duration {
	return p.ttl
}

func parseCount(raw []byte) (int64, error) {
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("access counter %q: %w", raw, kv.ErrWrongType)
	}
	return n, nil
}

func (p *PageCache) countAccess(next middleware.Handler) middleware.Handler {
	return func(ctx context.Context, inv *middleware.Invocation) (any, error) {
		url := inv.Args[0].(string)
		if _, err := p.store.Incr(ctx, p.CountKey(url)); err != nil {
			return nil, err
		}
		return next(ctx, inv)
	}
}

func (p *PageCache) cacheResult(next middleware.Handler) middleware.Handler {
	return func(ctx context.Context, inv *middleware.Invocation) (any, error) {
		url := inv.Args[0].(string)

		cached, found, err := p.store.Get(ctx, url)
		if err != nil {
			return nil, err
		}
		if found && len(cached) > 0 {
			p.metrics.RecordPageRequest(ctx, true)
			logging.Debug().
				Add(logging.URL(url)).
				Add(logging.Cached(true)).
				Msg("page served from cache")
			return string(cached), nil
		}

		p.metrics.RecordPageRequest(ctx, false)
		result, err := next(ctx, inv)
		if err != nil {
			return nil, err
		}

		text := result.(string)
		if err := p.store.SetEX(ctx, url, []byte(text), p.ttl); err != nil {
			return nil, err
		}
		logging.Debug().
			Add(logging.URL(url)).
			Add(logging.Cached(false)).
			Add(logging.Int64("bytes", int64(len(text)))).
			Msg("page fetched")
		return text, nil
	}
}

func (p *PageCache) fetch(ctx context.Context, inv *middleware.Invocation) (any, error) {
	return p.fetcher.Fetch(ctx, inv.Args[0].(string))
}
