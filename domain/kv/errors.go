package kv

import "errors"

// Domain errors for key-value operations.
var (
	// ErrKeyNotFound is returned when a typed read requires a key that does not exist.
	ErrKeyNotFound = errors.New("key not found")

	// ErrInvalidKey is returned when a key is invalid (e.g., empty).
	ErrInvalidKey = errors.New("invalid key")

	// ErrInvalidTTL is returned when an expiring write is given a non-positive TTL.
	ErrInvalidTTL = errors.New("invalid ttl")

	// ErrWrongType is returned when an operation is applied to a key holding
	// the wrong kind of value, or INCR is applied to a non-integer.
	ErrWrongType = errors.New("operation against a key holding the wrong kind of value")

	// ErrUnsupportedType is returned when a value cannot be encoded for storage.
	ErrUnsupportedType = errors.New("unsupported value type")

	// ErrConnectionFailed is returned when connection to the store backend fails.
	ErrConnectionFailed = errors.New("store connection failed")

	// ErrOperationTimeout is returned when a store operation times out.
	ErrOperationTimeout = errors.New("store operation timeout")
)
