package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/nosql/domain/kv"
	"github.com/felixgeelhaar/nosql/infrastructure/storage/memory"
)

// fakeClock is a manually advanced time source.
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
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestStore_SetAndGet(t *testing.T) {
	t.Parallel()

	t.Run("sets and gets value", func(t *testing.T) {
		t.Parallel()

		s := memory.NewStore()
		ctx := context.Background()

		if err := s.Set(ctx, "key1", []byte("value1")); err != nil {
			t.Fatalf("Set() error = %v", err)
		}

		value, found, err := s.Get(ctx, "key1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if !found {
			t.Fatal("Get() should find the key")
		}
		if string(value) != "value1" {
			t.Errorf("Get() value = %s, want value1", value)
		}
	})

	t.Run("returns miss for non-existent key", func(t *testing.T) {
		t.Parallel()

		s := memory.NewStore()
		value, found, err := s.Get(context.Background(), "nonexistent")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if found || value != nil {
			t.Errorf("Get() = %v, %v; want nil, false", value, found)
		}
	})

	t.Run("stored value is isolated from caller mutation", func(t *testing.T) {
		t.Parallel()

		s := memory.NewStore()
		ctx := context.Background()
		data := []byte("abc")
		_ = s.Set(ctx, "k", data)
		data[0] = 'z'

		value, _, _ := s.Get(ctx, "k")
		if string(value) != "abc" {
			t.Errorf("Get() = %s, want abc", value)
		}
	})

	t.Run("rejects empty key", func(t *testing.T) {
		t.Parallel()

		s := memory.NewStore()
		if err := s.Set(context.Background(), "", []byte("v")); !errors.Is(err, kv.ErrInvalidKey) {
			t.Errorf("Set(\"\") error = %v, want ErrInvalidKey", err)
		}
	})
}

func TestStore_SetEX(t *testing.T) {
	t.Parallel()

	t.Run("expires after ttl", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		s := memory.NewStore(memory.WithClock(clock.Now))
		ctx := context.Background()

		if err := s.SetEX(ctx, "page", []byte("<html>"), 10*time.Second); err != nil {
			t.Fatalf("SetEX() error = %v", err)
		}

		clock.Advance(9 * time.Second)
		if _, found, _ := s.Get(ctx, "page"); !found {
			t.Error("value should still be present before ttl")
		}

		clock.Advance(time.Second)
		if _, found, _ := s.Get(ctx, "page"); found {
			t.Error("value should be gone once ttl elapsed")
		}
		if s.Len() != 0 {
			t.Errorf("Len() = %d, want 0", s.Len())
		}
	})

	t.Run("rejects non-positive ttl", func(t *testing.T) {
		t.Parallel()

		s := memory.NewStore()
		err := s.SetEX(context.Background(), "k", []byte("v"), 0)
		if !errors.Is(err, kv.ErrInvalidTTL) {
			t.Errorf("SetEX(ttl=0) error = %v, want ErrInvalidTTL", err)
		}
	})

	t.Run("set clears a previous expiration", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		s := memory.NewStore(memory.WithClock(clock.Now))
		ctx := context.Background()

		_ = s.SetEX(ctx, "k", []byte("temp"), time.Second)
		_ = s.Set(ctx, "k", []byte("perm"))
		clock.Advance(time.Hour)

		value, found, _ := s.Get(ctx, "k")
		if !found || string(value) != "perm" {
			t.Errorf("Get() = %s, %v; want perm, true", value, found)
		}
	})
}

func TestStore_Incr(t *testing.T) {
	t.Parallel()

	t.Run("counts from zero", func(t *testing.T) {
		t.Parallel()

		s := memory.NewStore()
		ctx := context.Background()

		for want := int64(1); want <= 3; want++ {
			got, err := s.Incr(ctx, "count:http://example.com")
			if err != nil {
				t.Fatalf("Incr() error = %v", err)
			}
			if got != want {
				t.Errorf("Incr() = %d, want %d", got, want)
			}
		}

		value, _, _ := s.Get(ctx, "count:http://example.com")
		if string(value) != "3" {
			t.Errorf("stored counter = %s, want 3", value)
		}
	})

	t.Run("increments a numeric string", func(t *testing.T) {
		t.Parallel()

		s := memory.NewStore()
		ctx := context.Background()
		_ = s.Set(ctx, "n", []byte("41"))

		got, err := s.Incr(ctx, "n")
		if err != nil || got != 42 {
			t.Errorf("Incr() = %d, %v; want 42, nil", got, err)
		}
	})

	t.Run("rejects non-integer value", func(t *testing.T) {
		t.Parallel()

		s := memory.NewStore()
		ctx := context.Background()
		_ = s.Set(ctx, "n", []byte("abc"))

		if _, err := s.Incr(ctx, "n"); !errors.Is(err, kv.ErrWrongType) {
			t.Errorf("Incr() error = %v, want ErrWrongType", err)
		}
	})

	t.Run("is safe for concurrent use", func(t *testing.T) {
		t.Parallel()

		s := memory.NewStore()
		ctx := context.Background()

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					_, _ = s.Incr(ctx, "n")
				}
			}()
		}
		wg.Wait()

		value, _, _ := s.Get(ctx, "n")
		if string(value) != "1000" {
			t.Errorf("counter = %s, want 1000", value)
		}
	})
}

func TestStore_Lists(t *testing.T) {
	t.Parallel()

	t.Run("rpush appends in order", func(t *testing.T) {
		t.Parallel()

		s := memory.NewStore()
		ctx := context.Background()

		n, err := s.RPush(ctx, "Cache.Store:inputs", []byte("a"), []byte("b"))
		if err != nil || n != 2 {
			t.Fatalf("RPush() = %d, %v; want 2, nil", n, err)
		}
		n, _ = s.RPush(ctx, "Cache.Store:inputs", []byte("c"))
		if n != 3 {
			t.Errorf("RPush() length = %d, want 3", n)
		}

		items, err := s.LRange(ctx, "Cache.Store:inputs", 0, -1)
		if err != nil {
			t.Fatalf("LRange() error = %v", err)
		}
		want := []string{"a", "b", "c"}
		if len(items) != len(want) {
			t.Fatalf("LRange() len = %d, want %d", len(items), len(want))
		}
		for i := range want {
			if string(items[i]) != want[i] {
				t.Errorf("items[%d] = %s, want %s", i, items[i], want[i])
			}
		}
	})

	t.Run("lrange on missing key is empty", func(t *testing.T) {
		t.Parallel()

		s := memory.NewStore()
		items, err := s.LRange(context.Background(), "missing", 0, -1)
		if err != nil {
			t.Fatalf("LRange() error = %v", err)
		}
		if len(items) != 0 {
			t.Errorf("LRange() = %v, want empty", items)
		}
	})

	t.Run("type mismatches are rejected", func(t *testing.T) {
		t.Parallel()

		s := memory.NewStore()
		ctx := context.Background()
		_ = s.Set(ctx, "str", []byte("v"))
		_, _ = s.RPush(ctx, "list", []byte("v"))

		if _, err := s.RPush(ctx, "str", []byte("x")); !errors.Is(err, kv.ErrWrongType) {
			t.Errorf("RPush on string error = %v, want ErrWrongType", err)
		}
		if _, _, err := s.Get(ctx, "list"); !errors.Is(err, kv.ErrWrongType) {
			t.Errorf("Get on list error = %v, want ErrWrongType", err)
		}
		if _, err := s.Incr(ctx, "list"); !errors.Is(err, kv.ErrWrongType) {
			t.Errorf("Incr on list error = %v, want ErrWrongType", err)
		}
		if _, err := s.LRange(ctx, "str", 0, -1); !errors.Is(err, kv.ErrWrongType) {
			t.Errorf("LRange on string error = %v, want ErrWrongType", err)
		}
	})
}

func TestStore_FlushDB(t *testing.T) {
	t.Parallel()

	s := memory.NewStore()
	ctx := context.Background()
	_ = s.Set(ctx, "a", []byte("1"))
	_, _ = s.RPush(ctx, "b", []byte("2"))

	if err := s.FlushDB(ctx); err != nil {
		t.Fatalf("FlushDB() error = %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() after flush = %d, want 0", s.Len())
	}
}

func TestStore_ContextCancellation(t *testing.T) {
	t.Parallel()

	s := memory.NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Set(ctx, "k", []byte("v")); !errors.Is(err, context.Canceled) {
		t.Errorf("Set() error = %v, want context.Canceled", err)
	}
	if _, _, err := s.Get(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Errorf("Get() error = %v, want context.Canceled", err)
	}
	if _, err := s.Incr(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Errorf("Incr() error = %v, want context.Canceled", err)
	}
	if err := s.FlushDB(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("FlushDB() error = %v, want context.Canceled", err)
	}
}
