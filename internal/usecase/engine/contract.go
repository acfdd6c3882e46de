package engine

import (
	"context"

	"github.com/quickai/quickai/internal/domain"
	"github.com/quickai/quickai/internal/domain/clock"
	"github.com/quickai/quickai/internal/domain/entitlement"
	"github.com/quickai/quickai/internal/domain/preferences"
)

// EntitlementStore answers whether a user holds premium right now.
type EntitlementStore interface {
	Grant(ctx context.Context, userID string, d entitlement.Duration) (entitlement.Entitlement, error)
	Revoke(ctx context.Context, userID string) (bool, error)
	IsActive(ctx context.Context, userID string) (bool, error)
	Expiry(ctx context.Context, userID string) (entitlement.Entitlement, bool, error)
}

// QuotaCounter persists per-day usage counts.
type QuotaCounter interface {
	CurrentCount(ctx context.Context, userID string, r domain.Resource, day clock.Day) (int64, error)
	Increment(ctx context.Context, userID string, r domain.Resource, day clock.Day) (int64, error)
	IncrementIfBelow(ctx context.Context, userID string, r domain.Resource, day clock.Day, limit int64) (int64, bool, error)
}

// PreferencesRepository stores per-user model and agent selections.
type PreferencesRepository interface {
	Get(ctx context.Context, userID string) (preferences.Preferences, error)
	Update(ctx context.Context, userID string, patch preferences.Patch) (preferences.Preferences, error)
}
