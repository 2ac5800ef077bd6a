// Package cache provides a key-value cache that counts and records every
// Store call.
package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/nosql/domain/kv"
	"github.com/felixgeelhaar/nosql/domain/middleware"
	infmw "github.com/felixgeelhaar/nosql/infrastructure/middleware"
)

// StoreOperation is the name under which Store calls are counted and recorded.
const StoreOperation = "Cache.Store"

// ErrInvalidText is returned by GetStr when the stored value is not UTF-8.
var ErrInvalidText = errors.New("value is not valid UTF-8 text")

// Call is one recorded Store invocation.
type Call struct {
	// Input is the formatted argument list, e.g. ("a").
	Input string
	// Output is the formatted result.
	Output string
}

// Cache stores values under random keys.
type Cache struct {
	store       kv.Store
	storeFn     middleware.Handler
	newKey      func() string
	flushOnInit bool
	middleware  []middleware.Middleware
}

// Option configures a Cache.
type Option func(*Cache)

// WithFlushOnInit controls whether New clears the store. Defaults to true.
func WithFlushOnInit(flush bool) Option {
	return func(c *Cache) {
		c.flushOnInit = flush
	}
}

// WithMiddleware adds middleware around Store, outside the counting and
// history middleware.
func WithMiddleware(ms ...middleware.Middleware) Option {
	return func(c *Cache) {
		c.middleware = append(c.middleware, ms...)
	}
}

// WithKeyGenerator replaces the UUIDv4 key generator.
func WithKeyGenerator(fn func() string) Option {
	return func(c *Cache) {
		if fn != nil {
			c.newKey = fn
		}
	}
}

// New creates a cache over store and, unless disabled, flushes it.
func New(ctx context.Context, store kv.Store, opts ...Option) (*Cache, error) {
	c := &Cache{
		store:       store,
		newKey:      uuid.NewString,
		flushOnInit: true,
	}
	for _, opt := range opts {
		opt(c)
	}

	chain := middleware.NewRegistry(c.middleware...).
		Use(infmw.CallHistory(store), infmw.CountCalls(store))
	c.storeFn = chain.Wrap(c.storeValue)

	if c.flushOnInit {
		if err := store.FlushDB(ctx); err != nil {
			return nil, fmt.Errorf("flush store: %w", err)
		}
	}
	return c, nil
}

// Store saves data under a new random key and returns the key.
// data must be a string, []byte, integer or float.
func (c *Cache) Store(ctx context.Context, data any) (string, error) {
	if _, err := kv.Encode(data); err != nil {
		return "", err
	}

	result, err := c.storeFn(ctx, &middleware.Invocation{
		Name: StoreOperation,
		Args: []any{data},
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *Cache) storeValue(ctx context.Context, inv *middleware.Invocation) (any, error) {
	value, err := kv.Encode(inv.Args[0])
	if err != nil {
		return nil, err
	}

	key := c.newKey()
	if err := c.store.Set(ctx, key, value); err != nil {
		return nil, err
	}
	return key, nil
}

// Get returns the raw value stored under key, or nil if there is none.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	value, found, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return value, nil
}

// GetWith returns the value under key converted by fn. fn receives nil
// when the key does not exist.
func GetWith[T any](ctx context.Context, c *Cache, key string, fn func([]byte) (T, error)) (T, error) {
	raw, err := c.Get(ctx, key)
	if err != nil {
		var zero T
		return zero, err
	}
	return fn(raw)
}

// GetStr returns the value under key as text.
func (c *Cache) GetStr(ctx context.Context, key string) (string, error) {
	return GetWith(ctx, c, key, func(raw []byte) (string, error) {
		if raw == nil {
			return "", kv.ErrKeyNotFound
		}
		if !utf8.Valid(raw) {
			return "", ErrInvalidText
		}
		return string(raw), nil
	})
}

// GetInt returns the value under key as an int64. Missing keys and values
// that do not parse as a base-10 integer yield 0, and so do integers outside
// the int64 range such as a stored math.MaxUint64. Use GetBigInt for those.
func (c *Cache) GetInt(ctx context.Context, key string) (int64, error) {
	return GetWith(ctx, c, key, func(raw []byte) (int64, error) {
		n, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
		if err != nil {
			return 0, nil
		}
		return n, nil
	})
}

// GetBigInt returns the value under key as an integer of any size. Missing
// keys and values that do not parse as a base-10 integer yield 0.
func (c *Cache) GetBigInt(ctx context.Context, key string) (*big.Int, error) {
	return GetWith(ctx, c, key, func(raw []byte) (*big.Int, error) {
		n, ok := new(big.Int).SetString(strings.TrimSpace(string(raw)), 10)
		if !ok {
			return new(big.Int), nil
		}
		return n, nil
	})
}

// Calls returns how many times the operation name has been called.
func (c *Cache) Calls(ctx context.Context, name string) (int64, error) {
	raw, found, err := c.store.Get(ctx, name)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("counter %q: %w", name, kv.ErrWrongType)
	}
	return n, nil
}

// History returns the recorded calls of name, oldest first. Inputs and
// outputs are paired by position; an input without an output is dropped.
func (c *Cache) History(ctx context.Context, name string) ([]Call, error) {
	inputs, err := c.store.LRange(ctx, infmw.InputsKey(name), 0, -1)
	if err != nil {
		return nil, err
	}
	outputs, err := c.store.LRange(ctx, infmw.OutputsKey(name), 0, -1)
	if err != nil {
		return nil, err
	}

	n := min(len(inputs), len(outputs))
	calls := make([]Call, n)
	for i := range n {
		calls[i] = Call{Input: string(inputs[i]), Output: string(outputs[i])}
	}
	return calls, nil
}

// Replay writes the call count and history of name to w.
func (c *Cache) Replay(ctx context.Context, w io.Writer, name string) error {
	count, err := c.Calls(ctx, name)
	if err != nil {
		return err
	}
	calls, err := c.History(ctx, name)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "%s was called %d times:\n", name, count); err != nil {
		return err
	}
	for _, call := range calls {
		if _, err := fmt.Fprintf(w, "%s%s -> %s\n", name, call.Input, call.Output); err != nil {
			return err
		}
	}
	return nil
}
