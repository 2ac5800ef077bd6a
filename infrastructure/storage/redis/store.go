package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/nosql/domain/kv"
)

// Store is a Redis-backed implementation of kv.Store.
type Store struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewStore connects to Redis and verifies the connection with PING.
func NewStore(cfg Config, opts ...ConfigOption) (*Store, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Join(kv.ErrConnectionFailed, err)
	}

	return &Store{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// NewStoreFromClient creates a store from an existing Redis client.
func NewStoreFromClient(client redis.UniversalClient, keyPrefix string) *Store {
	return &Store{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (s *Store) prefixKey(key string) string {
	return s.keyPrefix + key
}

// Set issues SET key value.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return kv.ErrInvalidKey
	}

	return s.wrapError(s.client.Set(ctx, s.prefixKey(key), value, 0).Err())
}

// Get issues GET key. redis.Nil is reported as not found.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	result, err := s.client.Get(ctx, s.prefixKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, s.wrapError(err)
	}

	return result, true, nil
}

// Incr issues INCR key.
func (s *Store) Incr(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if key == "" {
		return 0, kv.ErrInvalidKey
	}

	n, err := s.client.Incr(ctx, s.prefixKey(key)).Result()
	if err != nil {
		return 0, s.wrapError(err)
	}
	return n, nil
}

// RPush issues RPUSH key value [value ...].
func (s *Store) RPush(ctx context.Context, key string, values ...[]byte) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if key == "" {
		return 0, kv.ErrInvalidKey
	}
	if len(values) == 0 {
		return s.listLen(ctx, key)
	}

	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}

	n, err := s.client.RPush(ctx, s.prefixKey(key), args...).Result()
	if err != nil {
		return 0, s.wrapError(err)
	}
	return n, nil
}

func (s *Store) listLen(ctx context.Context, key string) (int64, error) {
	n, err := s.client.LLen(ctx, s.prefixKey(key)).Result()
	if err != nil {
		return 0, s.wrapError(err)
	}
	return n, nil
}

// LRange issues LRANGE key start stop.
func (s *Store) LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items, err := s.client.LRange(ctx, s.prefixKey(key), start, stop).Result()
	if err != nil {
		return nil, s.wrapError(err)
	}

	out := make([][]byte, len(items))
	for i, item := range items {
		out[i] = []byte(item)
	}
	return out, nil
}

// SetEX issues SETEX key ttl value.
func (s *Store) SetEX(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return kv.ErrInvalidKey
	}
	if ttl <= 0 {
		return kv.ErrInvalidTTL
	}

	return s.wrapError(s.client.SetEx(ctx, s.prefixKey(key), value, ttl).Err())
}

// FlushDB issues FLUSHDB, or deletes only the prefixed keys when the store
// is namespaced.
func (s *Store) FlushDB(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.keyPrefix == "" {
		return s.wrapError(s.client.FlushDB(ctx).Err())
	}

	iter := s.client.Scan(ctx, 0, prefixPattern(s.keyPrefix), 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		key := iter.Val()
		if !strings.HasPrefix(key, s.keyPrefix) {
			continue
		}
		keys = append(keys, key)
		// Delete in batches of 100
		if len(keys) >= 100 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return s.wrapError(err)
			}
			keys = keys[:0]
		}
	}

	if err := iter.Err(); err != nil {
		return s.wrapError(err)
	}

	if len(keys) > 0 {
		if err := s.client.Del(ctx, keys...).Err(); err != nil {
			return s.wrapError(err)
		}
	}

	return nil
}

// prefixPattern returns a SCAN MATCH pattern for keys starting with prefix.
// Glob metacharacters in prefix are escaped so they match literally.
func prefixPattern(prefix string) string {
	var b strings.Builder
	b.Grow(len(prefix) + 2)
	for _, r := range prefix {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('*')
	return b.String()
}

// Ping checks the Redis connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.wrapError(s.client.Ping(ctx).Err())
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Client returns the underlying Redis client for advanced operations.
func (s *Store) Client() redis.UniversalClient {
	return s.client
}

// wrapError maps Redis errors onto kv domain errors.
func (s *Store) wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(kv.ErrOperationTimeout, err)
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.Join(kv.ErrOperationTimeout, err)
	}

	var redisErr redis.Error
	if errors.As(err, &redisErr) {
		msg := redisErr.Error()
		if strings.HasPrefix(msg, "WRONGTYPE") || strings.Contains(msg, "not an integer") {
			return errors.Join(kv.ErrWrongType, err)
		}
	}

	return err
}

var _ kv.Store = (*Store)(nil)
