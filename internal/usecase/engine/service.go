// Package engine decides whether a user may consume one unit of a resource today.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/quickai/quickai/internal/domain"
	"github.com/quickai/quickai/internal/domain/clock"
	"github.com/quickai/quickai/internal/domain/entitlement"
	"github.com/quickai/quickai/internal/domain/preferences"
	"github.com/quickai/quickai/internal/domain/quota"
	"github.com/quickai/quickai/internal/metrics"
)

// Status summarizes a user's premium state and today's usage.
type Status struct {
	UserID        string
	IsPremium     bool
	Unlimited     bool       // premium without expiry
	ExpiresAt     *time.Time // nil unless premium with expiry
	RemainingDays int        // -1 for unlimited, 0 when not premium
	Day           clock.Day
	ResetsAt      time.Time

	TextUsedToday  int64
	TextLimit      int64 // quota.Unlimited for premium users
	ImageUsedToday int64
	ImageLimit     int64
}

// Service is the entitlement engine. It holds no mutable state; per-key
// serializability comes from the counter's atomic conditional increment.
type Service struct {
	ents    EntitlementStore
	counter QuotaCounter
	prefs   PreferencesRepository
	cal     *clock.Calendar
	limits  quota.Limits
	logger  *zap.Logger
}

// New creates an engine. logger can be nil.
func New(
	ents EntitlementStore, counter QuotaCounter, prefs PreferencesRepository,
	cal *clock.Calendar, limits quota.Limits, logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		ents:    ents,
		counter: counter,
		prefs:   prefs,
		cal:     cal,
		limits:  limits,
		logger:  logger,
	}
}

// Limits returns the configured daily caps.
func (s *Service) Limits() quota.Limits { return s.limits }

// CheckAndConsume decides one request and, when allowed for a non-premium user,
// records it against today's count. Storage failures are returned wrapped in
// domain.ErrStorageUnavailable and must be treated as a denial.
func (s *Service) CheckAndConsume(
	ctx context.Context, userID string, r domain.Resource, premiumGated bool,
) (quota.Decision, error) {
	if err := domain.ValidateUserID(userID); err != nil {
		return quota.Decision{}, err
	}
	limit, err := s.limits.For(r)
	if err != nil {
		return quota.Decision{}, err
	}

	d, err := s.decide(ctx, userID, r, limit, premiumGated)
	metrics.ObserveDecision(string(r), d.Allowed, string(d.Reason), err)
	if err != nil {
		s.logger.Warn("Quota check failed",
			zap.String("user_id", userID),
			zap.String("resource", string(r)),
			zap.Error(err),
		)
		return quota.Deny(quota.ReasonNone), storageErr(err)
	}
	return d, nil
}

func (s *Service) decide(
	ctx context.Context, userID string, r domain.Resource, limit int64, premiumGated bool,
) (quota.Decision, error) {
	premium, err := s.ents.IsActive(ctx, userID)
	if err != nil {
		return quota.Decision{}, fmt.Errorf("entitlement lookup: %w", err)
	}
	if premiumGated && !premium {
		return quota.Deny(quota.ReasonPremiumModelRequired), nil
	}
	if premium {
		return quota.Allow(quota.Unlimited), nil
	}

	day := s.cal.Today()
	count, err := s.counter.CurrentCount(ctx, userID, r, day)
	if err != nil {
		return quota.Decision{}, fmt.Errorf("read usage: %w", err)
	}
	d, err := quota.Evaluate(false, r, count, s.limits)
	if err != nil {
		return quota.Decision{}, err
	}
	if !d.Allowed {
		return d, nil
	}

	post, ok, err := s.counter.IncrementIfBelow(ctx, userID, r, day, limit)
	if err != nil {
		return quota.Decision{}, fmt.Errorf("record usage: %w", err)
	}
	if !ok {
		// Lost the race to a concurrent request between the read and the increment.
		return quota.Deny(quota.ReasonDailyLimitReached), nil
	}
	return quota.Allow(quota.Remaining(limit, post)), nil
}

// IsPremium reports whether the user holds an active entitlement.
func (s *Service) IsPremium(ctx context.Context, userID string) (bool, error) {
	if err := domain.ValidateUserID(userID); err != nil {
		return false, err
	}
	premium, err := s.ents.IsActive(ctx, userID)
	if err != nil {
		return false, storageErr(fmt.Errorf("entitlement lookup: %w", err))
	}
	return premium, nil
}

// GrantEntitlement installs premium for d, replacing any existing grant.
func (s *Service) GrantEntitlement(ctx context.Context, userID string, d entitlement.Duration) (entitlement.Entitlement, error) {
	e, err := s.ents.Grant(ctx, userID, d)
	if err != nil {
		return entitlement.Entitlement{}, fmt.Errorf("grant: %w", err)
	}
	metrics.EntitlementChangesTotal.WithLabelValues("grant").Inc()

	fields := []zap.Field{zap.String("user_id", userID), zap.Stringer("duration", d)}
	if exp, ok := e.ExpiresAt(); ok {
		fields = append(fields, zap.Time("expires_at", exp))
	}
	s.logger.Info("Premium granted", fields...)
	return e, nil
}

// RevokeEntitlement removes premium. It reports whether a record existed.
func (s *Service) RevokeEntitlement(ctx context.Context, userID string) (bool, error) {
	existed, err := s.ents.Revoke(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("revoke: %w", err)
	}
	if existed {
		metrics.EntitlementChangesTotal.WithLabelValues("revoke").Inc()
	}
	s.logger.Info("Premium revoked", zap.String("user_id", userID), zap.Bool("existed", existed))
	return existed, nil
}

// Status reports premium state and today's counts.
func (s *Service) Status(ctx context.Context, userID string) (Status, error) {
	if err := domain.ValidateUserID(userID); err != nil {
		return Status{}, err
	}

	e, premium, err := s.ents.Expiry(ctx, userID)
	if err != nil {
		return Status{}, storageErr(fmt.Errorf("status: %w", err))
	}

	now := s.cal.Now()
	st := Status{
		UserID:     userID,
		IsPremium:  premium,
		Day:        s.cal.Today(),
		ResetsAt:   s.cal.NextReset(),
		TextLimit:  s.limits.Text,
		ImageLimit: s.limits.Image,
	}
	if premium {
		st.Unlimited = e.IsUnlimited()
		st.RemainingDays = e.RemainingDays(now)
		if exp, ok := e.ExpiresAt(); ok {
			st.ExpiresAt = &exp
		}
		st.TextLimit = quota.Unlimited
		st.ImageLimit = quota.Unlimited
	}

	if st.TextUsedToday, err = s.counter.CurrentCount(ctx, userID, domain.ResourceText, st.Day); err != nil {
		return Status{}, storageErr(fmt.Errorf("status: %w", err))
	}
	if st.ImageUsedToday, err = s.counter.CurrentCount(ctx, userID, domain.ResourceImage, st.Day); err != nil {
		return Status{}, storageErr(fmt.Errorf("status: %w", err))
	}
	return st, nil
}

// GetPreferences returns the user's settings, defaults when none were saved.
func (s *Service) GetPreferences(ctx context.Context, userID string) (preferences.Preferences, error) {
	if err := domain.ValidateUserID(userID); err != nil {
		return preferences.Preferences{}, err
	}
	p, err := s.prefs.Get(ctx, userID)
	if err != nil {
		return preferences.Preferences{}, storageErr(fmt.Errorf("get preferences: %w", err))
	}
	return p, nil
}

// SetPreferences applies a partial update and returns the merged settings.
func (s *Service) SetPreferences(ctx context.Context, userID string, patch preferences.Patch) (preferences.Preferences, error) {
	if err := domain.ValidateUserID(userID); err != nil {
		return preferences.Preferences{}, err
	}
	p, err := s.prefs.Update(ctx, userID, patch)
	if err != nil {
		return preferences.Preferences{}, storageErr(fmt.Errorf("set preferences: %w", err))
	}
	return p, nil
}

// storageErr makes sure a failure reaching storage is reported as ErrStorageUnavailable.
func storageErr(err error) error {
	if errors.Is(err, domain.ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
}
