package entitlement

import (
	"context"
	"fmt"

	"github.com/quickai/quickai/internal/domain"
	"github.com/quickai/quickai/internal/domain/clock"
	domentitlement "github.com/quickai/quickai/internal/domain/entitlement"
)

// Service is the entitlement store: grants, revocations and lazy expiry.
// Expired records are not deleted; they simply stop counting as active.
type Service struct {
	repo Repository
	cal  *clock.Calendar
}

// New creates an entitlement service.
func New(repo Repository, cal *clock.Calendar) *Service {
	return &Service{repo: repo, cal: cal}
}

// Grant installs a premium record starting now, replacing any previous one.
// Grants do not stack: a 7-day grant on top of 30 remaining days leaves 7.
func (s *Service) Grant(ctx context.Context, userID string, d domentitlement.Duration) (domentitlement.Entitlement, error) {
	if err := domain.ValidateUserID(userID); err != nil {
		return domentitlement.Entitlement{}, err
	}
	e := domentitlement.New(userID, s.cal.Now(), d)
	if err := s.repo.Put(ctx, e); err != nil {
		return domentitlement.Entitlement{}, fmt.Errorf("grant entitlement: %w", err)
	}
	return e, nil
}

// Revoke removes the record. It reports whether one existed, expired or not.
func (s *Service) Revoke(ctx context.Context, userID string) (bool, error) {
	if err := domain.ValidateUserID(userID); err != nil {
		return false, err
	}
	existed, err := s.repo.Delete(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("revoke entitlement: %w", err)
	}
	return existed, nil
}

// IsActive reports whether the user currently holds premium.
func (s *Service) IsActive(ctx context.Context, userID string) (bool, error) {
	_, ok, err := s.Expiry(ctx, userID)
	return ok, err
}

// Expiry returns the active record. false when absent or expired.
func (s *Service) Expiry(ctx context.Context, userID string) (domentitlement.Entitlement, bool, error) {
	if err := domain.ValidateUserID(userID); err != nil {
		return domentitlement.Entitlement{}, false, err
	}
	e, ok, err := s.repo.Get(ctx, userID)
	if err != nil {
		return domentitlement.Entitlement{}, false, fmt.Errorf("read entitlement: %w", err)
	}
	if !ok || !e.ActiveAt(s.cal.Now()) {
		return domentitlement.Entitlement{}, false, nil
	}
	return e, true, nil
}
