// Package memory provides an in-process implementation of kv.Store.
package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/felixgeelhaar/nosql/domain/kv"
)

// entry holds a string or list value with an optional expiration.
type entry struct {
	value     []byte
	list      [][]byte
	isList    bool
	expiresAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	if e.expiresAt.IsZero() {
		return false
	}
	return !now.Before(e.expiresAt)
}

// Store is an in-memory implementation of kv.Store.
// Expired keys are dropped lazily on access.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

// Option configures the store.
type Option func(*Store)

// WithClock sets the time source used for expiration.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates an empty in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// lookup returns the live entry for key. Must be called with lock held.
func (s *Store) lookup(key string) (*entry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if e.expired(s.now()) {
		delete(s.entries, key)
		return nil, false
	}
	return e, true
}

// Set stores a value with no expiration.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.set(ctx, key, value, time.Time{})
}

// SetEX stores a value that expires after ttl.
func (s *Store) SetEX(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return kv.ErrInvalidTTL
	}
	return s.set(ctx, key, value, s.now().Add(ttl))
}

func (s *Store) set(ctx context.Context, key string, value []byte, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return kv.ErrInvalidKey
	}

	// Store a copy to prevent external mutation
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = &entry{value: valueCopy, expiresAt: expiresAt}
	return nil
}

// Get retrieves a value.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok {
		return nil, false, nil
	}
	if e.isList {
		return nil, false, kv.ErrWrongType
	}

	value := make([]byte, len(e.value))
	copy(value, e.value)
	return value, true, nil
}

// Incr increments the integer stored under key, keeping any expiration.
func (s *Store) Incr(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if key == "" {
		return 0, kv.ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok {
		s.entries[key] = &entry{value: []byte("1")}
		return 1, nil
	}
	if e.isList {
		return 0, kv.ErrWrongType
	}

	n, err := strconv.ParseInt(string(e.value), 10, 64)
	if err != nil {
		return 0, kv.ErrWrongType
	}
	n++
	e.value = strconv.AppendInt(nil, n, 10)
	return n, nil
}

// RPush appends values to a list.
func (s *Store) RPush(ctx context.Context, key string, values ...[]byte) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if key == "" {
		return 0, kv.ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok {
		e = &entry{isList: true}
		s.entries[key] = e
	}
	if !e.isList {
		return 0, kv.ErrWrongType
	}

	for _, v := range values {
		item := make([]byte, len(v))
		copy(item, v)
		e.list = append(e.list, item)
	}
	return int64(len(e.list)), nil
}

// LRange returns a range of list elements.
func (s *Store) LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok {
		return [][]byte{}, nil
	}
	if !e.isList {
		return nil, kv.ErrWrongType
	}

	lo, hi := kv.ListRange(int64(len(e.list)), start, stop)
	out := make([][]byte, 0, hi-lo)
	for _, item := range e.list[lo:hi] {
		c := make([]byte, len(item))
		copy(c, item)
		out = append(out, c)
	}
	return out, nil
}

// FlushDB removes all keys.
func (s *Store) FlushDB(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*entry)
	return nil
}

// Len returns the number of live keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for _, e := range s.entries {
		if !e.expired(now) {
			n++
		}
	}
	return n
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

var _ kv.Store = (*Store)(nil)
