package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/quickai/quickai/internal/db"
	"github.com/quickai/quickai/internal/domain"
	"github.com/quickai/quickai/internal/domain/entitlement"
)

const (
	upsertEntitlementSQL = `INSERT INTO entitlements (user_id, expires_at, granted_at)
VALUES ($1, $2, $3)
ON CONFLICT (user_id) DO UPDATE SET expires_at = EXCLUDED.expires_at, granted_at = EXCLUDED.granted_at`

	selectEntitlementSQL = `SELECT user_id, expires_at, granted_at FROM entitlements WHERE user_id = $1`

	deleteEntitlementSQL = `DELETE FROM entitlements WHERE user_id = $1`

	deleteExpiredEntitlementsSQL = `DELETE FROM entitlements WHERE expires_at IS NOT NULL AND expires_at <= $1`
)

type entitlementRow struct {
	UserID    string       `db:"user_id"`
	ExpiresAt sql.NullTime `db:"expires_at"`
	GrantedAt time.Time    `db:"granted_at"`
}

// EntitlementRepo stores one row per premium user.
type EntitlementRepo struct {
	q querier
}

// NewEntitlementRepo creates an entitlement repository.
func NewEntitlementRepo(q querier) *EntitlementRepo {
	return &EntitlementRepo{q: q}
}

// Put inserts or replaces the user's record.
func (r *EntitlementRepo) Put(ctx context.Context, e entitlement.Entitlement) error {
	var expires sql.NullTime
	if t, ok := e.ExpiresAt(); ok {
		expires = sql.NullTime{Time: t, Valid: true}
	}
	if _, err := r.q.ExecContext(ctx, upsertEntitlementSQL, e.UserID(), expires, e.GrantedAt()); err != nil {
		return storageErr("put entitlement "+e.UserID(), err)
	}
	return nil
}

// Get returns the stored record, expired or not.
func (r *EntitlementRepo) Get(ctx context.Context, userID string) (entitlement.Entitlement, bool, error) {
	var row entitlementRow
	if err := r.q.GetContext(ctx, &row, selectEntitlementSQL, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entitlement.Entitlement{}, false, nil
		}
		return entitlement.Entitlement{}, false, storageErr("get entitlement "+userID, err)
	}
	var expires *time.Time
	if row.ExpiresAt.Valid {
		t := row.ExpiresAt.Time.UTC()
		expires = &t
	}
	return entitlement.Restore(row.UserID, row.GrantedAt.UTC(), expires), true, nil
}

// Delete removes the record and reports whether one existed.
func (r *EntitlementRepo) Delete(ctx context.Context, userID string) (bool, error) {
	res, err := r.q.ExecContext(ctx, deleteEntitlementSQL, userID)
	if err != nil {
		return false, storageErr("delete entitlement "+userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("delete entitlement "+userID, err)
	}
	return n > 0, nil
}

// DeleteExpired removes records whose expiry is at or before now.
func (r *EntitlementRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, deleteExpiredEntitlementsSQL, now)
	if err != nil {
		return 0, storageErr("delete expired entitlements", err)
	}
	return res.RowsAffected()
}

func storageErr(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStorageUnavailable, what, &db.Error{Op: db.OpSQL, Err: err})
}
