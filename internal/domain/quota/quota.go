// Package quota holds the pure daily-quota decision rules.
package quota

import (
	"fmt"

	"github.com/quickai/quickai/internal/domain"
)

// Unlimited marks an uncapped remaining budget.
const Unlimited int64 = -1

// Default daily limits for non-premium users.
const (
	DefaultTextLimit  = 50
	DefaultImageLimit = 15
)

// Reason explains a denial. Empty when allowed.
type Reason string

// Denial reasons.
const (
	ReasonNone                 Reason = ""
	ReasonPremiumModelRequired Reason = "premium_model_required"
	ReasonDailyLimitReached    Reason = "daily_limit_reached"
)

// Limits are the per-resource daily caps.
type Limits struct {
	Text  int64
	Image int64
}

// DefaultLimits returns the stock 50 text / 15 image caps.
func DefaultLimits() Limits {
	return Limits{Text: DefaultTextLimit, Image: DefaultImageLimit}
}

// For returns the cap for r.
func (l Limits) For(r domain.Resource) (int64, error) {
	switch r {
	case domain.ResourceText:
		return l.Text, nil
	case domain.ResourceImage:
		return l.Image, nil
	default:
		return 0, fmt.Errorf("%w: %q", domain.ErrUnknownResource, r)
	}
}

// Decision is the outcome of a quota check.
type Decision struct {
	Allowed   bool
	Remaining int64 // Unlimited for premium users
	Reason    Reason
}

// IsUnlimited reports whether Remaining is uncapped.
func (d Decision) IsUnlimited() bool { return d.Remaining == Unlimited }

// Allow builds an allowing decision.
func Allow(remaining int64) Decision {
	return Decision{Allowed: true, Remaining: remaining}
}

// Deny builds a denying decision with nothing remaining.
func Deny(reason Reason) Decision {
	return Decision{Remaining: 0, Reason: reason}
}

// Evaluate applies the policy. Premium users are always allowed with an unlimited budget;
// everyone else is allowed while count is below the resource's cap.
func Evaluate(isPremium bool, r domain.Resource, count int64, limits Limits) (Decision, error) {
	limit, err := limits.For(r)
	if err != nil {
		return Decision{}, err
	}
	if isPremium {
		return Allow(Unlimited), nil
	}
	if count >= limit {
		return Deny(ReasonDailyLimitReached), nil
	}
	return Allow(limit - count), nil
}

// Remaining returns max(0, limit-count).
func Remaining(limit, count int64) int64 {
	if count >= limit {
		return 0
	}
	return limit - count
}
