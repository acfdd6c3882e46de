package usage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/quickai/quickai/internal/db"
	"github.com/quickai/quickai/internal/domain"
	"github.com/quickai/quickai/internal/domain/clock"
)

// store is the consumer interface for usage counters (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
	IncrIfBelow(ctx context.Context, key string, limit int64, ttl time.Duration) (int64, bool, error)
}

// Counter keeps one integer key per (user, resource, day).
// A new day is a new key, so counters never need resetting.
type Counter struct {
	store     store
	prefix    string
	retention time.Duration
}

// New creates a usage counter. retention > 0 sets a TTL on each day's key;
// zero keeps records forever.
func New(s store, keyPrefix string, retention time.Duration) *Counter {
	return &Counter{store: s, prefix: keyPrefix, retention: retention}
}

// Key returns the storage key of a usage record.
func (c *Counter) Key(userID string, r domain.Resource, day clock.Day) string {
	return c.prefix + "usage:" + userID + ":" + string(r) + ":" + day.String()
}

// CurrentCount returns the recorded count, 0 when absent.
func (c *Counter) CurrentCount(ctx context.Context, userID string, r domain.Resource, day clock.Day) (int64, error) {
	key := c.Key(userID, r, day)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: usage GET %s: %w", domain.ErrStorageUnavailable, key, err)
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("usage GET %s parse: %w", key, err)
	}
	return n, nil
}

// Increment adds one unconditionally and returns the new count.
// The retention TTL is set once, on the first write of the day's key.
func (c *Counter) Increment(ctx context.Context, userID string, r domain.Resource, day clock.Day) (int64, error) {
	key := c.Key(userID, r, day)
	n, err := c.store.IncrBy(ctx, key, 1)
	if err != nil {
		return 0, fmt.Errorf("%w: usage INCRBY %s: %w", domain.ErrStorageUnavailable, key, err)
	}
	if c.retention > 0 {
		if err := c.store.Expire(ctx, key, c.retention, true); err != nil {
			return n, fmt.Errorf("%w: usage EXPIRE %s: %w", domain.ErrStorageUnavailable, key, err)
		}
	}
	return n, nil
}

// IncrementIfBelow adds one only while the count is below limit, atomically.
// It returns the post-increment count and true, or the current count and false.
func (c *Counter) IncrementIfBelow(
	ctx context.Context, userID string, r domain.Resource, day clock.Day, limit int64,
) (int64, bool, error) {
	key := c.Key(userID, r, day)
	n, ok, err := c.store.IncrIfBelow(ctx, key, limit, c.retention)
	if err != nil {
		return 0, false, fmt.Errorf("%w: usage increment %s: %w", domain.ErrStorageUnavailable, key, err)
	}
	return n, ok, nil
}
