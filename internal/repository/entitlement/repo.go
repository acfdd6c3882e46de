package entitlement

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/quickai/quickai/internal/domain"
	domentitlement "github.com/quickai/quickai/internal/domain/entitlement"
)

// store is the consumer interface for entitlement records (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) (bool, error)
}

const (
	fieldExpiresAt = "expires_at"
	fieldGrantedAt = "granted_at"
)

// Repo stores one hash per user: {expires_at: unix ms or "", granted_at: unix ms}.
type Repo struct {
	store  store
	prefix string
}

// New creates an entitlement repository.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, prefix: keyPrefix}
}

func (r *Repo) key(userID string) string {
	return r.prefix + "entitlement:" + userID
}

// Put installs e, replacing any previous record of the same user.
// Both fields are always written, so a single HSET fully overwrites the record.
func (r *Repo) Put(ctx context.Context, e domentitlement.Entitlement) error {
	fields := map[string]string{
		fieldExpiresAt: "",
		fieldGrantedAt: strconv.FormatInt(e.GrantedAt().UnixMilli(), 10),
	}
	if exp, ok := e.ExpiresAt(); ok {
		fields[fieldExpiresAt] = strconv.FormatInt(exp.UnixMilli(), 10)
	}
	if err := r.store.HSet(ctx, r.key(e.UserID()), fields); err != nil {
		return fmt.Errorf("%w: put entitlement %s: %w", domain.ErrStorageUnavailable, e.UserID(), err)
	}
	return nil
}

// Get returns the stored record, expired or not. false means no record.
func (r *Repo) Get(ctx context.Context, userID string) (domentitlement.Entitlement, bool, error) {
	m, err := r.store.HGetAll(ctx, r.key(userID))
	if err != nil {
		return domentitlement.Entitlement{}, false, fmt.Errorf(
			"%w: get entitlement %s: %w", domain.ErrStorageUnavailable, userID, err)
	}
	if len(m) == 0 {
		return domentitlement.Entitlement{}, false, nil
	}
	e, err := fromHash(userID, m)
	if err != nil {
		return domentitlement.Entitlement{}, false, err
	}
	return e, true, nil
}

// Delete removes the record and reports whether one existed.
func (r *Repo) Delete(ctx context.Context, userID string) (bool, error) {
	existed, err := r.store.Del(ctx, r.key(userID))
	if err != nil {
		return false, fmt.Errorf("%w: delete entitlement %s: %w", domain.ErrStorageUnavailable, userID, err)
	}
	return existed, nil
}

func fromHash(userID string, m map[string]string) (domentitlement.Entitlement, error) {
	var granted time.Time
	if raw := m[fieldGrantedAt]; raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return domentitlement.Entitlement{}, fmt.Errorf("parse %s of %s: %w", fieldGrantedAt, userID, err)
		}
		granted = time.UnixMilli(ms).UTC()
	}

	var expires *time.Time
	if raw := m[fieldExpiresAt]; raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return domentitlement.Entitlement{}, fmt.Errorf("parse %s of %s: %w", fieldExpiresAt, userID, err)
		}
		t := time.UnixMilli(ms).UTC()
		expires = &t
	}
	return domentitlement.Restore(userID, granted, expires), nil
}
