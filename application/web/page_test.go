package web_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/nosql/application/web"
	"github.com/felixgeelhaar/nosql/domain/kv"
	"github.com/felixgeelhaar/nosql/domain/middleware"
	"github.com/felixgeelhaar/nosql/infrastructure/storage/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// countingFetcher returns body and counts fetches per URL.
type countingFetcher struct {
	mu    sync.Mutex
	body  string
	err   error
	calls map[string]int
}

func newCountingFetcher(body string) *countingFetcher {
	return &countingFetcher{body: body, calls: make(map[string]int)}
}

func (f *countingFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[url]++
	if f.err != nil {
		return "", f.err
	}
	return f.body, nil
}

func (f *countingFetcher) count(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

const testURL = "http://example.com/page"

func TestGetPage_CachesWithinTTL(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := memory.NewStore(memory.WithClock(clock.Now))
	fetcher := newCountingFetcher("<html>hi</html>")
	pages := web.NewPageCache(store, fetcher)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := pages.GetPage(ctx, testURL)
		if err != nil {
			t.Fatalf("GetPage() error = %v", err)
		}
		if got != "<html>hi</html>" {
			t.Errorf("GetPage() = %q", got)
		}
		clock.Advance(time.Second)
	}

	if n := fetcher.count(testURL); n != 1 {
		t.Errorf("fetches = %d, want 1", n)
	}
	if n, _ := pages.AccessCount(ctx, testURL); n != 3 {
		t.Errorf("AccessCount() = %d, want 3", n)
	}
}

func TestGetPage_RefetchesAfterExpiry(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := memory.NewStore(memory.WithClock(clock.Now))
	fetcher := newCountingFetcher("body")
	pages := web.NewPageCache(store, fetcher)
	ctx := context.Background()

	if _, err := pages.GetPage(ctx, testURL); err != nil {
		t.Fatalf("GetPage() error = %v", err)
	}
	clock.Advance(web.DefaultTTL)
	if _, err := pages.GetPage(ctx, testURL); err != nil {
		t.Fatalf("GetPage() error = %v", err)
	}

	if n := fetcher.count(testURL); n != 2 {
		t.Errorf("fetches = %d, want 2", n)
	}
	if n, _ := pages.AccessCount(ctx, testURL); n != 2 {
		t.Errorf("AccessCount() = %d, want 2", n)
	}
}

func TestGetPage_HitDoesNotResetTTL(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := memory.NewStore(memory.WithClock(clock.Now))
	fetcher := newCountingFetcher("body")
	pages := web.NewPageCache(store, fetcher)
	ctx := context.Background()

	_, _ = pages.GetPage(ctx, testURL)
	clock.Advance(9 * time.Second)
	_, _ = pages.GetPage(ctx, testURL)
	clock.Advance(time.Second)
	_, _ = pages.GetPage(ctx, testURL)

	if n := fetcher.count(testURL); n != 2 {
		t.Errorf("fetches = %d, want 2", n)
	}
}

func TestGetPage_KeyLayout(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	pages := web.NewPageCache(store, newCountingFetcher("body"))
	ctx := context.Background()

	if _, err := pages.GetPage(ctx, testURL); err != nil {
		t.Fatalf("GetPage() error = %v", err)
	}

	if raw, found, _ := store.Get(ctx, "count:"+testURL); !found || string(raw) != "1" {
		t.Errorf("count key = %q (found %v), want 1", raw, found)
	}
	if raw, found, _ := store.Get(ctx, testURL); !found || string(raw) != "body" {
		t.Errorf("page key = %q (found %v), want body", raw, found)
	}
}

func TestGetPage_EmptyCachedValueIsMiss(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	fetcher := newCountingFetcher("")
	pages := web.NewPageCache(store, fetcher)
	ctx := context.Background()

	_, _ = pages.GetPage(ctx, testURL)
	_, _ = pages.GetPage(ctx, testURL)

	if n := fetcher.count(testURL); n != 2 {
		t.Errorf("fetches = %d, want 2", n)
	}
}

func TestGetPage_FetchErrorStillCounts(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	fetcher := newCountingFetcher("")
	fetcher.err = errors.New("connection refused")
	pages := web.NewPageCache(store, fetcher)
	ctx := context.Background()

	if _, err := pages.GetPage(ctx, testURL); !errors.Is(err, fetcher.err) {
		t.Fatalf("GetPage() error = %v, want fetch error", err)
	}
	if n, _ := pages.AccessCount(ctx, testURL); n != 1 {
		t.Errorf("AccessCount() = %d, want 1", n)
	}
	if _, found, _ := store.Get(ctx, testURL); found {
		t.Error("failed fetch should not be cached")
	}
}

func TestGetPage_Options(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := memory.NewStore(memory.WithClock(clock.Now))
	fetcher := newCountingFetcher("body")
	pages := web.NewPageCache(store, fetcher,
		web.WithTTL(time.Minute),
		web.WithCountPrefix("hits:"),
		web.WithMetrics(nil),
	)
	ctx := context.Background()

	if pages.TTL() != time.Minute {
		t.Errorf("TTL() = %v, want 1m", pages.TTL())
	}
	if pages.CountKey("u") != "hits:u" {
		t.Errorf("CountKey() = %q", pages.CountKey("u"))
	}

	_, _ = pages.GetPage(ctx, testURL)
	clock.Advance(30 * time.Second)
	_, _ = pages.GetPage(ctx, testURL)
	if n := fetcher.count(testURL); n != 1 {
		t.Errorf("fetches = %d, want 1", n)
	}
	if _, found, _ := store.Get(ctx, "hits:"+testURL); !found {
		t.Error("counter should use custom prefix")
	}
}

func TestGetPage_EmptyCountPrefixIgnored(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	fetcher := newCountingFetcher("<html>x</html>")
	pages := web.NewPageCache(store, fetcher, web.WithCountPrefix(""))
	ctx := context.Background()

	if got := pages.CountKey(testURL); got != web.DefaultCountPrefix+testURL {
		t.Errorf("CountKey() = %q, want default prefix", got)
	}

	got, err := pages.GetPage(ctx, testURL)
	if err != nil {
		t.Fatalf("GetPage() error = %v", err)
	}
	if got != "<html>x</html>" {
		t.Errorf("GetPage() = %q, want fetched page, not the counter", got)
	}
	if n := fetcher.count(testURL); n != 1 {
		t.Errorf("fetches = %d, want 1", n)
	}
}

func TestAccessCount(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	pages := web.NewPageCache(store, newCountingFetcher("x"))
	ctx := context.Background()

	if n, err := pages.AccessCount(ctx, "never"); err != nil || n != 0 {
		t.Errorf("AccessCount(never) = %d, %v; want 0", n, err)
	}

	_ = store.Set(ctx, "count:bad", []byte("abc"))
	if _, err := pages.AccessCount(ctx, "bad"); !errors.Is(err, kv.ErrWrongType) {
		t.Errorf("AccessCount(bad) error = %v, want ErrWrongType", err)
	}
}

func TestFetcherFunc(t *testing.T) {
	t.Parallel()

	f := web.FetcherFunc(func(_ context.Context, url string) (string, error) {
		return "page:" + url, nil
	})
	pages := web.NewPageCache(memory.NewStore(), f)
	got, err := pages.GetPage(context.Background(), "u")
	if err != nil || got != "page:u" {
		t.Errorf("GetPage() = %q, %v", got, err)
	}
}

func TestGetPage_Concurrent(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	pages := web.NewPageCache(store, newCountingFetcher("body"))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = pages.GetPage(ctx, testURL)
		}()
	}
	wg.Wait()

	if n, _ := pages.AccessCount(ctx, testURL); n != 20 {
		t.Errorf("AccessCount() = %d, want 20", n)
	}
}

func TestGetPage_Middleware(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	var seen []string
	record := func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, inv *middleware.Invocation) (any, error) {
			seen = append(seen, inv.Name)
			return next(ctx, inv)
		}
	}
	pages := web.NewPageCache(store, newCountingFetcher("x"), web.WithMiddleware(record))

	for i := 0; i < 2; i++ {
		if _, err := pages.GetPage(context.Background(), testURL); err != nil {
			t.Fatalf("GetPage() error = %v", err)
		}
	}
	if len(seen) != 2 || seen[0] != "web.GetPage" {
		t.Errorf("middleware saw %v, want two web.GetPage calls", seen)
	}
}
