package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/quickai/quickai/internal/domain"
	"github.com/quickai/quickai/internal/domain/clock"
)

const (
	selectUsageSQL = `SELECT count FROM usage WHERE user_id = $1 AND resource = $2 AND day = $3`

	// The WHERE on the conflict branch makes the check and the increment one statement.
	// No returned row means the limit was already reached.
	incrementBelowSQL = `INSERT INTO usage (user_id, resource, day, count)
VALUES ($1, $2, $3, 1)
ON CONFLICT (user_id, resource, day) DO UPDATE SET count = usage.count + 1
WHERE usage.count < $4
RETURNING count`

	deleteUsageBeforeSQL = `DELETE FROM usage WHERE day < $1`
)

// UsageCounter keeps one row per (user, resource, day).
type UsageCounter struct {
	q querier
}

// NewUsageCounter creates a usage counter.
func NewUsageCounter(q querier) *UsageCounter {
	return &UsageCounter{q: q}
}

// CurrentCount returns the recorded count, 0 when absent.
func (c *UsageCounter) CurrentCount(ctx context.Context, userID string, r domain.Resource, day clock.Day) (int64, error) {
	var n int64
	if err := c.q.GetContext(ctx, &n, selectUsageSQL, userID, string(r), day.Date()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, storageErr(fmt.Sprintf("usage %s/%s/%s", userID, r, day), err)
	}
	return n, nil
}

// Increment adds one unconditionally and returns the new count.
func (c *UsageCounter) Increment(ctx context.Context, userID string, r domain.Resource, day clock.Day) (int64, error) {
	n, _, err := c.IncrementIfBelow(ctx, userID, r, day, math.MaxInt64)
	return n, err
}

// IncrementIfBelow adds one only while the count is below limit.
func (c *UsageCounter) IncrementIfBelow(
	ctx context.Context, userID string, r domain.Resource, day clock.Day, limit int64,
) (int64, bool, error) {
	if limit <= 0 {
		n, err := c.CurrentCount(ctx, userID, r, day)
		return n, false, err
	}

	var n int64
	err := c.q.GetContext(ctx, &n, incrementBelowSQL, userID, string(r), day.Date(), limit)
	if err == nil {
		return n, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, storageErr(fmt.Sprintf("usage increment %s/%s/%s", userID, r, day), err)
	}
	n, err = c.CurrentCount(ctx, userID, r, day)
	return n, false, err
}

// DeleteBefore removes usage rows of days strictly before day.
func (c *UsageCounter) DeleteBefore(ctx context.Context, day clock.Day) (int64, error) {
	res, err := c.q.ExecContext(ctx, deleteUsageBeforeSQL, day.Date())
	if err != nil {
		return 0, storageErr("prune usage", err)
	}
	return res.RowsAffected()
}
