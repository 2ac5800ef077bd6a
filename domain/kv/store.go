// Package kv provides the domain interface for key-value store backends.
package kv

import (
	"context"
	"time"
)

// Store defines the key-value operations the caches are built on.
// Implementations may be Redis, BadgerDB, or in-memory.
type Store interface {
	// Set stores a value under key with no expiration.
	Set(ctx context.Context, key string, value []byte) error

	// Get retrieves the value stored under key.
	// Returns the value, whether it was found, and any error.
	// Expired keys are reported as not found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Incr increments the integer stored under key by one and returns the
	// new value. An absent key is treated as zero.
	Incr(ctx context.Context, key string) (int64, error)

	// RPush appends values to the list stored under key and returns the
	// list length after the push.
	RPush(ctx context.Context, key string, values ...[]byte) (int64, error)

	// LRange returns list elements between start and stop inclusive.
	// Negative indexes count from the end of the list, -1 being the last.
	LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)

	// SetEX stores a value under key that expires after ttl.
	SetEX(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// FlushDB removes every key owned by the store.
	FlushDB(ctx context.Context) error

	// Close releases the underlying client.
	Close() error
}

// Backend names a Store implementation.
type Backend string

// Supported backends.
const (
	BackendRedis  Backend = "redis"
	BackendMemory Backend = "memory"
	BackendBadger Backend = "badger"
)

// Valid reports whether b names a known backend.
func (b Backend) Valid() bool {
	switch b {
	case BackendRedis, BackendMemory, BackendBadger:
		return true
	}
	return false
}

// ListRange resolves Redis-style start/stop indexes against a list of
// length n. The returned bounds are a half-open slice range; lo == hi
// means the range is empty.
func ListRange(n, start, stop int64) (lo, hi int64) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return 0, 0
	}
	return start, stop + 1
}
