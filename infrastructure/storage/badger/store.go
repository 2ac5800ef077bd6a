package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/felixgeelhaar/nosql/domain/kv"
)

// Value tags. Every stored value starts with one of these so that string
// and list operations can detect a key holding the other kind.
const (
	tagString byte = 's'
	tagList   byte = 'l'
)

// Store is a BadgerDB-backed implementation of kv.Store.
type Store struct {
	db         *badger.DB
	keyPrefix  string
	maxRetries int
	gcStop     chan struct{}
	gcWg       sync.WaitGroup
	closeOnce  sync.Once
}

// NewStore opens a BadgerDB store with the given configuration.
func NewStore(cfg Config, opts ...Option) (*Store, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := newStore(db, cfg.KeyPrefix, cfg.MaxTxnRetries)

	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.startGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}

	return s, nil
}

// NewStoreFromDB creates a store from an existing BadgerDB database.
func NewStoreFromDB(db *badger.DB, keyPrefix string) *Store {
	return newStore(db, keyPrefix, DefaultConfig().MaxTxnRetries)
}

func newStore(db *badger.DB, keyPrefix string, maxRetries int) *Store {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	return &Store{
		db:         db,
		keyPrefix:  keyPrefix,
		maxRetries: maxRetries,
		gcStop:     make(chan struct{}),
	}
}

// startGC starts the value log garbage collection goroutine.
func (s *Store) startGC(interval time.Duration, discardRatio float64) {
	s.gcWg.Add(1)
	go func() {
		defer s.gcWg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.gcStop:
				return
			case <-ticker.C:
				for s.db.RunValueLogGC(discardRatio) == nil {
				}
			}
		}
	}()
}

func (s *Store) prefixKey(key string) []byte {
	return []byte(s.keyPrefix + key)
}

// update runs fn in a read-write transaction, retrying on conflicts.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < s.maxRetries; i++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

// Set stores a value with no expiration.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return kv.ErrInvalidKey
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.prefixKey(key), encodeString(value))
	})
}

// SetEX stores a value that expires after ttl.
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

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(s.prefixKey(key), encodeString(value)).WithTTL(ttl))
	})
}

// Get retrieves a value.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		raw, _, err := read(txn, s.prefixKey(key))
		if err != nil {
			return err
		}
		value, err = decodeString(raw)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
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

	k := s.prefixKey(key)
	var n int64

	err := s.update(func(txn *badger.Txn) error {
		raw, expiresAt, err := read(txn, k)
		n = 0
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			current, err := decodeString(raw)
			if err != nil {
				return err
			}
			n, err = strconv.ParseInt(string(current), 10, 64)
			if err != nil {
				return kv.ErrWrongType
			}
		}
		n++

		e := badger.NewEntry(k, encodeString(strconv.AppendInt(nil, n, 10)))
		e.ExpiresAt = expiresAt
		return txn.SetEntry(e)
	})
	if err != nil {
		return 0, err
	}
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

	k := s.prefixKey(key)
	var length int64

	err := s.update(func(txn *badger.Txn) error {
		raw, expiresAt, err := read(txn, k)
		var items [][]byte
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			items, err = decodeList(raw)
			if err != nil {
				return err
			}
		}

		items = append(items, values...)
		length = int64(len(items))

		e := badger.NewEntry(k, encodeList(items))
		e.ExpiresAt = expiresAt
		return txn.SetEntry(e)
	})
	if err != nil {
		return 0, err
	}
	return length, nil
}

// LRange returns a range of list elements.
func (s *Store) LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var items [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		raw, _, err := read(txn, s.prefixKey(key))
		if err != nil {
			return err
		}
		items, err = decodeList(raw)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return [][]byte{}, nil
	}
	if err != nil {
		return nil, err
	}

	lo, hi := kv.ListRange(int64(len(items)), start, stop)
	return items[lo:hi], nil
}

// FlushDB deletes every key under the store prefix (all keys when the
// prefix is empty).
func (s *Store) FlushDB(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(s.keyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return err
	}

	wb := s.db.NewWriteBatch()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			wb.Cancel()
			return err
		}
	}
	return wb.Flush()
}

// Close stops GC and closes the database.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.gcStop)
		s.gcWg.Wait()
		err = s.db.Close()
	})
	return err
}

// DB returns the underlying BadgerDB database.
func (s *Store) DB() *badger.DB {
	return s.db
}

// read returns a copy of the raw value and its expiry.
func read(txn *badger.Txn, key []byte) ([]byte, uint64, error) {
	item, err := txn.Get(key)
	if err != nil {
		return nil, 0, err
	}
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return nil, 0, err
	}
	return raw, item.ExpiresAt(), nil
}

func encodeString(value []byte) []byte {
	out := make([]byte, 0, len(value)+1)
	out = append(out, tagString)
	return append(out, value...)
}

func decodeString(raw []byte) ([]byte, error) {
	if len(raw) == 0 || raw[0] != tagString {
		return nil, kv.ErrWrongType
	}
	return raw[1:], nil
}

// encodeList writes the tag followed by uvarint length-prefixed items.
func encodeList(items [][]byte) []byte {
	size := 1
	for _, item := range items {
		size += binary.MaxVarintLen64 + len(item)
	}
	out := make([]byte, 0, size)
	out = append(out, tagList)
	for _, item := range items {
		out = binary.AppendUvarint(out, uint64(len(item)))
		out = append(out, item...)
	}
	return out
}

func decodeList(raw []byte) ([][]byte, error) {
	if len(raw) == 0 || raw[0] != tagList {
		return nil, kv.ErrWrongType
	}

	var items [][]byte
	rest := raw[1:]
	for len(rest) > 0 {
		n, w := binary.Uvarint(rest)
		if w <= 0 || uint64(len(rest)-w) < n {
			return nil, fmt.Errorf("badger: corrupt list encoding")
		}
		rest = rest[w:]
		items = append(items, rest[:n:n])
		rest = rest[n:]
	}
	return items, nil
}

var _ kv.Store = (*Store)(nil)
