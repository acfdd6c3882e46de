package entitlement

import (
	"context"

	domentitlement "github.com/quickai/quickai/internal/domain/entitlement"
)

// Repository defines the storage contract for entitlement records.
type Repository interface {
	Put(ctx context.Context, e domentitlement.Entitlement) error
	Get(ctx context.Context, userID string) (domentitlement.Entitlement, bool, error)
	Delete(ctx context.Context, userID string) (bool, error)
}
