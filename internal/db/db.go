package db

import (
	"context"
	"time"
)

// Store is the storage facade shared by every repository.
type Store interface {
	Pinger
	KVStore
	HashStore
	CounterStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value and counter operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
	Del(ctx context.Context, key string) (bool, error)
}

// HashStore provides hash-based record operations.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	// HGetAll returns an empty map when the key does not exist.
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) (bool, error)
}

// CounterStore provides atomic conditional counters.
type CounterStore interface {
	// IncrIfBelow increments key by one only while its value is below limit, in a single
	// atomic step. It returns the post-increment value and true, or the unchanged value
	// and false. ttl > 0 is applied once, when the key has no expiry yet.
	IncrIfBelow(ctx context.Context, key string, limit int64, ttl time.Duration) (int64, bool, error)
}
