package retention

import (
	"context"
	"time"

	"github.com/quickai/quickai/internal/domain/clock"
)

// UsagePruner deletes usage records of past days.
type UsagePruner interface {
	DeleteBefore(ctx context.Context, day clock.Day) (int64, error)
}

// EntitlementPruner deletes entitlement records that expired.
type EntitlementPruner interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
